package bus

import (
	"context"
	"fmt"
	"time"

	"feellog/domain/events"
	"feellog/domain/records"
)

// DefaultCompletedSubject is the subject completion messages go to.
const DefaultCompletedSubject = "feellog.records.completed"

// JSONPublisher is satisfied by *Client.
type JSONPublisher interface {
	PublishJSON(subject string, v any) error
}

// CompletedMessage is the payload published for a completed record.
type CompletedMessage struct {
	RecordID    records.RecordID `json:"record_id"`
	Message     string           `json:"message"`
	CompletedAt time.Time        `json:"completed_at"`
}

// CompletionPublisher forwards record completions to a NATS subject.
type CompletionPublisher struct {
	publisher JSONPublisher
	subject   string
}

func NewCompletionPublisher(publisher JSONPublisher, subject string) *CompletionPublisher {
	if subject == "" {
		subject = DefaultCompletedSubject
	}
	return &CompletionPublisher{publisher: publisher, subject: subject}
}

func (p *CompletionPublisher) Subject() string { return p.subject }

// PublishRecordCompleted publishes event unless ctx is already done.
func (p *CompletionPublisher) PublishRecordCompleted(ctx context.Context, event events.RecordCompletedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := CompletedMessage{
		RecordID:    event.RecordID,
		Message:     event.Message,
		CompletedAt: event.Timestamp.UTC(),
	}
	if err := p.publisher.PublishJSON(p.subject, msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}
