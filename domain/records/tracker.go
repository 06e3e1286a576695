package records

import "time"

// TrackerPhase enumerates the tracker states.
type TrackerPhase string

const (
	TrackerIdle     TrackerPhase = "idle"
	TrackerTracking TrackerPhase = "tracking"
)

// TrackerState is either idle or tracking exactly one record.
type TrackerState struct {
	phase    TrackerPhase
	recordID RecordID
}

// Idle returns the idle tracker state.
func Idle() TrackerState {
	return TrackerState{phase: TrackerIdle}
}

// Tracking returns a state tracking the given record.
func Tracking(id RecordID) TrackerState {
	if id.IsZero() {
		return Idle()
	}
	return TrackerState{phase: TrackerTracking, recordID: id}
}

// Phase returns the current phase. The zero TrackerState is idle.
func (s TrackerState) Phase() TrackerPhase {
	if s.phase == "" {
		return TrackerIdle
	}
	return s.phase
}

// IsTracking reports whether a record is being tracked.
func (s TrackerState) IsTracking() bool {
	return s.Phase() == TrackerTracking
}

// RecordID returns the tracked record, or the empty id when idle.
func (s TrackerState) RecordID() RecordID {
	return s.recordID
}

// CompletionEvent is emitted once when a tracked record completes.
type CompletionEvent struct {
	RecordID   RecordID
	ObservedAt time.Time
}

// Transition applies one poll result to the tracker state.
//
// A completion event is produced only when the tracked record itself is
// reported completed. A different record id while tracking is ignored.
func Transition(state TrackerState, result PollResult, now time.Time) (TrackerState, *CompletionEvent) {
	if state.IsTracking() {
		if result.RecordID == state.recordID && result.Status == RecordStatusCompleted {
			return Idle(), &CompletionEvent{RecordID: state.recordID, ObservedAt: now}
		}
		return state, nil
	}

	if result.Status == RecordStatusProcessing && !result.RecordID.IsZero() {
		return Tracking(result.RecordID), nil
	}
	return state, nil
}
