package devapi

import (
	"context"
	"encoding/json"
	"errors"

	"feellog/domain/records"
)

// DefaultAnalysisDoneSubject carries analyzer results for uploaded records.
const DefaultAnalysisDoneSubject = "feellog.analysis.done"

// AnalysisResult is published by the analyzer when a record is finished.
type AnalysisResult struct {
	RecordID records.RecordID `json:"record_id"`
	UserID   string           `json:"user_id"`
}

// HandleAnalysisResult completes the record named in an analyzer message.
// Its signature matches bus.Client.SubscribeJSON handlers.
func (s *Server) HandleAnalysisResult(ctx context.Context, data []byte) {
	var msg AnalysisResult
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("Ignoring undecodable analysis result", "error", err)
		return
	}
	if msg.RecordID.IsZero() || msg.UserID == "" {
		s.logger.Warn("Ignoring analysis result without record or user", "record_id", msg.RecordID)
		return
	}

	err := s.repo.CompleteRecord(ctx, msg.UserID, msg.RecordID, s.clock.Now())
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn("Analysis result for unknown record", "record_id", msg.RecordID, "user_id", msg.UserID)
		return
	}
	if err != nil {
		s.logger.Error("Failed to complete record from analysis result", "record_id", msg.RecordID, "error", err)
		return
	}

	s.logger.Info("Record completed by analyzer", "record_id", msg.RecordID)
}
