package events

import (
	"context"
	"time"

	"feellog/domain/events"
	"feellog/logging"
)

// SSEBroadcaster defines the broadcasting the notification handlers need
type SSEBroadcaster interface {
	BroadcastRecordToast(event events.RecordCompletedEvent)
	BroadcastStateUpdate()
}

// AnalysisTracker is the part of the store that tracks the analysis loading flag
type AnalysisTracker interface {
	EndVideoAnalysis()
}

// CompletionSink forwards completion events outside the process (e.g. NATS)
type CompletionSink interface {
	PublishRecordCompleted(ctx context.Context, event events.RecordCompletedEvent) error
}

// NotificationEventHandlers handles record events and converts them to notifications
type NotificationEventHandlers struct {
	sseBroadcaster SSEBroadcaster
	tracker        AnalysisTracker
	sink           CompletionSink
	logger         *logging.Logger
}

// NewNotificationEventHandlers creates event handlers for notifications. sink may be nil.
func NewNotificationEventHandlers(sseBroadcaster SSEBroadcaster, tracker AnalysisTracker, sink CompletionSink) *NotificationEventHandlers {
	return &NotificationEventHandlers{
		sseBroadcaster: sseBroadcaster,
		tracker:        tracker,
		sink:           sink,
		logger:         logging.Default().WithComponent("notification_events"),
	}
}

// RegisterHandlers registers all notification event handlers with the event bus
func (h *NotificationEventHandlers) RegisterHandlers(eventBus *RecordEventBus) {
	eventBus.OnRecordTrackingStarted(h.handleRecordTrackingStarted)
	eventBus.OnRecordCompleted(h.handleRecordCompleted)
}

func (h *NotificationEventHandlers) handleRecordTrackingStarted(event events.RecordTrackingStartedEvent) {
	h.logger.Info("Handling record tracking started event", "record_id", event.RecordID)

	h.sseBroadcaster.BroadcastStateUpdate()
}

func (h *NotificationEventHandlers) handleRecordCompleted(event events.RecordCompletedEvent) {
	h.logger.Info("Handling record completed event", "record_id", event.RecordID)

	h.tracker.EndVideoAnalysis()

	h.sseBroadcaster.BroadcastRecordToast(event)
	h.sseBroadcaster.BroadcastStateUpdate()

	if h.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.sink.PublishRecordCompleted(ctx, event); err != nil {
		h.logger.Warn("Failed to forward record completed event", "record_id", event.RecordID, "error", err)
	}
}
