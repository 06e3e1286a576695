package application

import (
	"context"
	"sync"
	"time"

	"feellog/domain/contracts"
	"feellog/domain/events"
	"feellog/domain/records"
	"feellog/logging"
	"feellog/platform/clock"
)

const (
	// DefaultPollInterval is the cadence of latest-status checks.
	DefaultPollInterval = time.Second
	// DefaultCompletionMessage is the toast text for a completed analysis.
	DefaultCompletionMessage = "Video analysis complete!"
)

// PollerConfig configures the status poller.
type PollerConfig struct {
	Interval          time.Duration
	CompletionMessage string
	// ExpectedErrors classify fetch failures that are not worth a log entry.
	ExpectedErrors []contracts.ErrorClassifier
}

// DefaultPollerConfig returns the default poller configuration.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:          DefaultPollInterval,
		CompletionMessage: DefaultCompletionMessage,
		ExpectedErrors:    contracts.DefaultExpectedErrors(),
	}
}

// PollerStatus is a point-in-time view of the poller.
type PollerStatus struct {
	Running         bool                 `json:"running"`
	Phase           records.TrackerPhase `json:"phase"`
	TrackedRecordID records.RecordID     `json:"tracked_record_id,omitempty"`
	LastPollAt      *time.Time           `json:"last_poll_at,omitempty"`
	Ticks           uint64               `json:"ticks"`
}

// StatusPoller watches the latest analysis record and raises a notification
// when the record it is tracking moves from processing to completed.
//
// Ticks run on a single goroutine, so a slow fetch delays the next check
// instead of overlapping it.
type StatusPoller struct {
	source        contracts.RecordStatusSource
	notifications *NotificationService
	publisher     events.RecordEventPublisher
	clock         clock.Clock
	config        PollerConfig
	logger        *logging.Logger

	// mu guards the tracker state and poll bookkeeping
	mu         sync.Mutex
	state      records.TrackerState
	lastPollAt *time.Time
	ticks      uint64

	// lifecycleMu guards ticker, stopCh and runDone. A run holds it while
	// applying a fetched result so Stop cannot interleave with a completion.
	lifecycleMu sync.Mutex
	ticker      clock.Ticker
	stopCh      chan struct{}
	// runDone is closed when the latest run goroutine has returned.
	runDone chan struct{}
}

// NewStatusPoller creates a stopped poller. publisher may be nil.
func NewStatusPoller(
	source contracts.RecordStatusSource,
	notifications *NotificationService,
	publisher events.RecordEventPublisher,
	clk clock.Clock,
	config PollerConfig,
) *StatusPoller {
	if clk == nil {
		clk = clock.System{}
	}
	if config.Interval <= 0 {
		config.Interval = DefaultPollInterval
	}
	if config.CompletionMessage == "" {
		config.CompletionMessage = DefaultCompletionMessage
	}
	if config.ExpectedErrors == nil {
		config.ExpectedErrors = contracts.DefaultExpectedErrors()
	}

	return &StatusPoller{
		source:        source,
		notifications: notifications,
		publisher:     publisher,
		clock:         clk,
		config:        config,
		logger:        logging.Default().WithComponent("status_poller"),
		state:         records.Idle(),
	}
}

// Start begins polling. Calling Start on a running poller does nothing.
// Cancelling ctx stops the poller like Stop. After a Stop, Start waits for
// the previous run's in-flight fetch so two fetches never overlap.
func (p *StatusPoller) Start(ctx context.Context) {
	for {
		p.lifecycleMu.Lock()
		if p.ticker != nil {
			p.lifecycleMu.Unlock()
			return
		}
		previous := p.runDone
		if previous == nil || isClosed(previous) {
			break
		}
		p.lifecycleMu.Unlock()
		<-previous
	}
	defer p.lifecycleMu.Unlock()

	p.ticker = p.clock.NewTicker(p.config.Interval)
	p.stopCh = make(chan struct{})
	p.runDone = make(chan struct{})
	go p.run(ctx, p.ticker, p.stopCh, p.runDone)

	p.logger.Poller("Status poller started", "interval_ms", p.config.Interval.Milliseconds())
}

// Stop ends polling, releases the ticker and hides any pending notification.
// An in-flight fetch is not cancelled. Calling Stop on a stopped poller does nothing.
func (p *StatusPoller) Stop() {
	p.lifecycleMu.Lock()
	stopped := p.stopLocked(nil)
	p.lifecycleMu.Unlock()

	if stopped {
		p.afterStop()
	}
}

// IsRunning reports whether the poller has an active ticker.
func (p *StatusPoller) IsRunning() bool {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()
	return p.ticker != nil
}

// Status returns the current poller status.
func (p *StatusPoller) Status() PollerStatus {
	running := p.IsRunning()

	p.mu.Lock()
	defer p.mu.Unlock()

	status := PollerStatus{
		Running:         running,
		Phase:           p.state.Phase(),
		TrackedRecordID: p.state.RecordID(),
		Ticks:           p.ticks,
	}
	if p.lastPollAt != nil {
		t := *p.lastPollAt
		status.LastPollAt = &t
	}
	return status
}

// stopLocked stops the ticker. When owner is non-nil only that run's
// channel is stopped, so a stale goroutine cannot stop a restarted poller.
func (p *StatusPoller) stopLocked(owner chan struct{}) bool {
	if p.ticker == nil {
		return false
	}
	if owner != nil && owner != p.stopCh {
		return false
	}

	p.ticker.Stop()
	close(p.stopCh)
	p.ticker = nil
	p.stopCh = nil
	return true
}

func (p *StatusPoller) afterStop() {
	if p.notifications != nil {
		p.notifications.Dismiss()
	}
	p.logger.Poller("Status poller stopped")
}

func (p *StatusPoller) run(ctx context.Context, ticker clock.Ticker, stopCh, done chan struct{}) {
	defer close(done)

	// Fetches outlive Stop and parent cancellation.
	fetchCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			p.lifecycleMu.Lock()
			stopped := p.stopLocked(stopCh)
			p.lifecycleMu.Unlock()
			if stopped {
				p.afterStop()
			}
			return
		case <-ticker.C():
			p.poll(fetchCtx, stopCh)
		}
	}
}

// poll fetches once and applies the result unless the run was stopped
// while the fetch was in flight.
func (p *StatusPoller) poll(ctx context.Context, stopCh chan struct{}) {
	result, err := p.source.LatestStatus(ctx)

	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()
	if isClosed(stopCh) {
		p.logger.Debug("Discarding record status fetched after stop")
		return
	}
	p.apply(result, err)
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// tick performs one fetch-and-evaluate cycle. Errors never escape.
func (p *StatusPoller) tick(ctx context.Context) {
	result, err := p.source.LatestStatus(ctx)
	p.apply(result, err)
}

// apply records one fetch outcome and advances the tracker.
func (p *StatusPoller) apply(result records.PollResult, err error) {
	now := p.clock.Now()

	p.mu.Lock()
	p.ticks++
	p.lastPollAt = &now
	p.mu.Unlock()

	if err != nil {
		if !contracts.IsExpected(err, p.config.ExpectedErrors) {
			p.logger.Error("Failed to check record status", "error", err)
		}
		return
	}

	if result.Malformed() {
		p.logger.Warn("Malformed record status response", "status", result.Status)
	}

	p.mu.Lock()
	previous := p.state
	next, completion := records.Transition(previous, result, now)
	p.state = next
	p.mu.Unlock()

	if !previous.IsTracking() && next.IsTracking() {
		p.logger.Poller("Start tracking record", "record_id", next.RecordID())
		if p.publisher != nil {
			p.publisher.PublishRecordTrackingStarted(events.RecordTrackingStartedEvent{
				RecordID:  next.RecordID(),
				Timestamp: now,
			})
		}
	}

	if completion == nil {
		return
	}

	p.logger.Poller("Record completed", "record_id", completion.RecordID)
	if p.notifications != nil {
		p.notifications.Show(p.config.CompletionMessage, completion.RecordID)
	}
	if p.publisher != nil {
		p.publisher.PublishRecordCompleted(events.RecordCompletedEvent{
			RecordID:  completion.RecordID,
			Message:   p.config.CompletionMessage,
			Timestamp: completion.ObservedAt,
		})
	}
}
