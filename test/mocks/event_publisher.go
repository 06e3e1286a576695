package mocks

import (
	"github.com/stretchr/testify/mock"

	"feellog/domain/events"
)

// MockRecordEventPublisher is a mock implementation of RecordEventPublisher for testing
type MockRecordEventPublisher struct {
	mock.Mock
}

var _ events.RecordEventPublisher = (*MockRecordEventPublisher)(nil)

func (m *MockRecordEventPublisher) PublishRecordTrackingStarted(event events.RecordTrackingStartedEvent) {
	m.Called(event)
}

func (m *MockRecordEventPublisher) PublishRecordCompleted(event events.RecordCompletedEvent) {
	m.Called(event)
}
