package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feellog/domain/events"
	"feellog/domain/records"
)

func TestRecordEventBus_PublishRecordCompleted_Success(t *testing.T) {
	// Arrange
	eventBus := NewRecordEventBus()
	done := make(chan events.RecordCompletedEvent, 1)

	eventBus.OnRecordCompleted(func(event events.RecordCompletedEvent) {
		done <- event
	})

	// Act
	testEvent := events.RecordCompletedEvent{
		RecordID:  "rec-1",
		Message:   "Video analysis complete!",
		Timestamp: time.Now(),
	}
	eventBus.PublishRecordCompleted(testEvent)

	// Assert
	select {
	case received := <-done:
		assert.Equal(t, records.RecordID("rec-1"), received.RecordID)
		assert.Equal(t, "Video analysis complete!", received.Message)
		assert.False(t, received.Timestamp.IsZero())
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Handler was not called within timeout")
	}
}

func TestRecordEventBus_PublishRecordTrackingStarted_Success(t *testing.T) {
	eventBus := NewRecordEventBus()
	done := make(chan events.RecordTrackingStartedEvent, 1)

	eventBus.OnRecordTrackingStarted(func(event events.RecordTrackingStartedEvent) {
		done <- event
	})

	eventBus.PublishRecordTrackingStarted(events.RecordTrackingStartedEvent{RecordID: "rec-2", Timestamp: time.Now()})

	select {
	case received := <-done:
		assert.Equal(t, records.RecordID("rec-2"), received.RecordID)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Handler was not called within timeout")
	}
}

func TestRecordEventBus_MultipleHandlers(t *testing.T) {
	eventBus := NewRecordEventBus()
	const handlerCount = 3

	var wg sync.WaitGroup
	wg.Add(handlerCount)
	for i := 0; i < handlerCount; i++ {
		eventBus.OnRecordCompleted(func(events.RecordCompletedEvent) {
			wg.Done()
		})
	}

	eventBus.PublishRecordCompleted(events.RecordCompletedEvent{RecordID: "rec-3", Timestamp: time.Now()})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Not all handlers were called within timeout")
	}
}

func TestRecordEventBus_NoHandlers(t *testing.T) {
	eventBus := NewRecordEventBus()

	assert.NotPanics(t, func() {
		eventBus.PublishRecordCompleted(events.RecordCompletedEvent{RecordID: "rec-4"})
		eventBus.PublishRecordTrackingStarted(events.RecordTrackingStartedEvent{RecordID: "rec-4"})
	})
}

func TestRecordEventBus_HandlerPanicRecovery(t *testing.T) {
	// Arrange
	eventBus := NewRecordEventBus()
	done := make(chan bool, 1)

	eventBus.OnRecordCompleted(func(events.RecordCompletedEvent) {
		panic("test panic")
	})
	eventBus.OnRecordCompleted(func(events.RecordCompletedEvent) {
		done <- true
	})

	// Act
	eventBus.PublishRecordCompleted(events.RecordCompletedEvent{RecordID: "rec-5", Timestamp: time.Now()})

	// Assert - the healthy handler still runs
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Good handler was not called after panic in another handler")
	}
}

func TestRecordEventBus_EventIsolation(t *testing.T) {
	eventBus := NewRecordEventBus()
	completed := make(chan struct{}, 1)
	started := make(chan struct{}, 1)

	eventBus.OnRecordCompleted(func(events.RecordCompletedEvent) { completed <- struct{}{} })
	eventBus.OnRecordTrackingStarted(func(events.RecordTrackingStartedEvent) { started <- struct{}{} })

	eventBus.PublishRecordTrackingStarted(events.RecordTrackingStartedEvent{RecordID: "rec-6"})

	select {
	case <-started:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("tracking started handler was not called")
	}
	assert.Never(t, func() bool { return len(completed) > 0 }, 30*time.Millisecond, 5*time.Millisecond)
}

func TestRecordEventBus_ConcurrentPublishing(t *testing.T) {
	eventBus := NewRecordEventBus()
	const eventCount = 50

	var mu sync.Mutex
	received := make(map[records.RecordID]bool)
	var wg sync.WaitGroup
	wg.Add(eventCount)

	eventBus.OnRecordCompleted(func(event events.RecordCompletedEvent) {
		mu.Lock()
		received[event.RecordID] = true
		mu.Unlock()
		wg.Done()
	})

	for i := 0; i < eventCount; i++ {
		go func(i int) {
			eventBus.PublishRecordCompleted(events.RecordCompletedEvent{
				RecordID:  records.RecordID(string(rune('a'+i%26)) + string(rune('0'+i/26))),
				Timestamp: time.Now(),
			})
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Not all events were handled within timeout")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, eventCount)
}
