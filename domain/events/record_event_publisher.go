package events

// RecordEventPublisher defines the interface for publishing record-related events.
type RecordEventPublisher interface {
	PublishRecordTrackingStarted(event RecordTrackingStartedEvent)
	PublishRecordCompleted(event RecordCompletedEvent)
}
