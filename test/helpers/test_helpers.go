package helpers

import (
	"time"

	"feellog/domain/records"
)

// Processing builds a latest-status response for a record still being analysed.
func Processing(id records.RecordID) records.PollResult {
	return records.PollResult{RecordID: id, Status: records.RecordStatusProcessing}
}

// Completed builds a latest-status response for a finished record.
func Completed(id records.RecordID) records.PollResult {
	return records.PollResult{RecordID: id, Status: records.RecordStatusCompleted}
}

// NoRecords builds the response returned before the user has uploaded anything.
func NoRecords() records.PollResult {
	return records.PollResult{Message: "No analysis records yet."}
}

// TestTime returns the fixed instant fake clocks start from.
func TestTime() time.Time {
	return time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
}
