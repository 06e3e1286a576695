package events

import (
	"time"

	"feellog/domain/records"
)

// RecordTrackingStartedEvent represents the poller picking up a processing record
type RecordTrackingStartedEvent struct {
	RecordID  records.RecordID
	Timestamp time.Time
}

// RecordCompletedEvent represents a tracked record whose analysis has completed
type RecordCompletedEvent struct {
	RecordID  records.RecordID
	Message   string
	Timestamp time.Time
}
