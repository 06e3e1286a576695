package application

import (
	"sync"
	"time"

	"feellog/domain/records"
	"feellog/logging"
	"feellog/platform/clock"
)

// DefaultHideAfter is how long a completion toast stays visible.
const DefaultHideAfter = 3000 * time.Millisecond

// NotificationState is the toast state the presentation layer renders.
type NotificationState struct {
	Visible  bool             `json:"visible"`
	Message  string           `json:"message"`
	RecordID records.RecordID `json:"record_id,omitempty"`
	ShownAt  *time.Time       `json:"shown_at,omitempty"`
}

// NotificationService owns the single transient notification and its
// auto-hide timer. Listeners are called synchronously after every change.
type NotificationService struct {
	mu        sync.Mutex
	clock     clock.Clock
	hideAfter time.Duration
	state     NotificationState
	hideTimer clock.Timer
	// generation invalidates hide callbacks from a timer that was replaced
	generation uint64
	listeners  []func(NotificationState)
	logger     *logging.Logger
}

// NewNotificationService creates a notification service. A non-positive
// hideAfter falls back to DefaultHideAfter.
func NewNotificationService(clk clock.Clock, hideAfter time.Duration) *NotificationService {
	if clk == nil {
		clk = clock.System{}
	}
	if hideAfter <= 0 {
		hideAfter = DefaultHideAfter
	}
	return &NotificationService{
		clock:     clk,
		hideAfter: hideAfter,
		logger:    logging.Default().WithComponent("notifications"),
	}
}

// OnChange registers a listener for state changes.
func (s *NotificationService) OnChange(listener func(NotificationState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// State returns the current notification state.
func (s *NotificationService) State() NotificationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Show makes the notification visible and (re)arms the hide timer.
func (s *NotificationService) Show(message string, recordID records.RecordID) {
	s.mu.Lock()
	if s.hideTimer != nil {
		s.hideTimer.Stop()
	}
	now := s.clock.Now()
	s.state = NotificationState{Visible: true, Message: message, RecordID: recordID, ShownAt: &now}
	s.generation++
	gen := s.generation
	s.hideTimer = s.clock.AfterFunc(s.hideAfter, func() { s.hide(gen) })
	state, listeners := s.state, s.snapshotListeners()
	s.mu.Unlock()

	s.logger.Info("Notification shown", "record_id", recordID, "hide_after_ms", s.hideAfter.Milliseconds())
	notify(listeners, state)
}

// Dismiss hides the notification now and cancels a pending hide timer.
func (s *NotificationService) Dismiss() {
	s.mu.Lock()
	if s.hideTimer != nil {
		s.hideTimer.Stop()
		s.hideTimer = nil
	}
	s.generation++
	if !s.state.Visible {
		s.mu.Unlock()
		return
	}
	s.state.Visible = false
	state, listeners := s.state, s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners, state)
}

func (s *NotificationService) hide(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || !s.state.Visible {
		s.mu.Unlock()
		return
	}
	s.state.Visible = false
	s.hideTimer = nil
	state, listeners := s.state, s.snapshotListeners()
	s.mu.Unlock()

	s.logger.Debug("Notification auto-hidden", "record_id", state.RecordID)
	notify(listeners, state)
}

func (s *NotificationService) snapshotListeners() []func(NotificationState) {
	listeners := make([]func(NotificationState), len(s.listeners))
	copy(listeners, s.listeners)
	return listeners
}

func notify(listeners []func(NotificationState), state NotificationState) {
	for _, l := range listeners {
		l(state)
	}
}
