package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RecordStatus represents the analysis status reported for a record.
type RecordStatus string

const (
	RecordStatusProcessing RecordStatus = "processing"
	RecordStatusCompleted  RecordStatus = "completed"
)

// IsKnown reports whether the status is one the tracker reacts to.
func (s RecordStatus) IsKnown() bool {
	return s == RecordStatusProcessing || s == RecordStatusCompleted
}

// RecordID is the opaque identifier the backend assigns to an analysis record.
// The empty value means the record id was absent.
type RecordID string

// IsZero reports whether the id is absent.
func (id RecordID) IsZero() bool {
	return id == ""
}

func (id RecordID) String() string {
	return string(id)
}

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (id *RecordID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode record id: %w", err)
		}
		*id = RecordID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode record id: %w", err)
	}
	canonical, err := canonicalNumber(n)
	if err != nil {
		return fmt.Errorf("decode record id %q: %w", n, err)
	}
	*id = RecordID(canonical)
	return nil
}

// canonicalNumber gives numerically equal ids the same text, so 7, 7.0
// and 7e0 all decode to "7". Integer literals keep every digit.
func canonicalNumber(n json.Number) (string, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if s == "-0" {
			return "0", nil
		}
		return s, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", err
	}
	if f == 0 {
		f = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// PollResult is the parsed response of one latest-status request.
// Only RecordID and Status are read; the message is kept for diagnostics.
type PollResult struct {
	RecordID RecordID     `json:"record_id"`
	Status   RecordStatus `json:"status"`
	Message  string       `json:"message,omitempty"`
}

// Empty reports a response without any record, which the backend sends
// when the user has not uploaded anything yet.
func (r PollResult) Empty() bool {
	return r.RecordID.IsZero() && r.Status == ""
}

// Malformed reports a tracked status that arrived without a record id.
func (r PollResult) Malformed() bool {
	return r.RecordID.IsZero() && r.Status.IsKnown()
}
