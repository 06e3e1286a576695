package events

import (
	"sync"

	"feellog/domain/events"
	"feellog/logging"
)

// RecordEventBus provides type-safe event publishing and subscription for record events
type RecordEventBus struct {
	mu     sync.RWMutex
	logger *logging.Logger

	trackingStartedHandlers []func(events.RecordTrackingStartedEvent)
	completedHandlers       []func(events.RecordCompletedEvent)
}

var _ events.RecordEventPublisher = (*RecordEventBus)(nil)

// NewRecordEventBus creates a new typed record event bus
func NewRecordEventBus() *RecordEventBus {
	return &RecordEventBus{
		logger:                  logging.Default().WithComponent("record_event_bus"),
		trackingStartedHandlers: make([]func(events.RecordTrackingStartedEvent), 0),
		completedHandlers:       make([]func(events.RecordCompletedEvent), 0),
	}
}

// Subscribe methods for each event type

func (bus *RecordEventBus) OnRecordTrackingStarted(handler func(events.RecordTrackingStartedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.trackingStartedHandlers = append(bus.trackingStartedHandlers, handler)
}

func (bus *RecordEventBus) OnRecordCompleted(handler func(events.RecordCompletedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.completedHandlers = append(bus.completedHandlers, handler)
}

// Publish methods for each event type

func (bus *RecordEventBus) PublishRecordTrackingStarted(event events.RecordTrackingStartedEvent) {
	bus.mu.RLock()
	handlers := make([]func(events.RecordTrackingStartedEvent), len(bus.trackingStartedHandlers))
	copy(handlers, bus.trackingStartedHandlers)
	bus.mu.RUnlock()

	// Execute handlers asynchronously to avoid blocking the poller
	for _, handler := range handlers {
		go func(h func(events.RecordTrackingStartedEvent)) {
			defer func() {
				if r := recover(); r != nil {
					bus.logger.Error("Event handler panicked in RecordTrackingStarted",
						"record_id", event.RecordID,
						"panic", r)
				}
			}()
			h(event)
		}(handler)
	}
}

func (bus *RecordEventBus) PublishRecordCompleted(event events.RecordCompletedEvent) {
	bus.mu.RLock()
	handlers := make([]func(events.RecordCompletedEvent), len(bus.completedHandlers))
	copy(handlers, bus.completedHandlers)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		go func(h func(events.RecordCompletedEvent)) {
			defer func() {
				if r := recover(); r != nil {
					bus.logger.Error("Event handler panicked in RecordCompleted",
						"record_id", event.RecordID,
						"panic", r)
				}
			}()
			h(event)
		}(handler)
	}
}
