package contracts

import (
	"context"
	"io"

	"feellog/domain/records"
	"feellog/domain/session"
)

// RecordStatusSource provides the latest analysis record status for the signed-in user.
type RecordStatusSource interface {
	LatestStatus(ctx context.Context) (records.PollResult, error)
}

// FeelLogAPI abstracts the remote Feel-Log HTTP API consumed by the companion.
// Implementations forward session credentials on every call.
type FeelLogAPI interface {
	RecordStatusSource

	// Authentication
	AuthStatus(ctx context.Context) (*session.AuthStatus, error)
	Login(ctx context.Context, email, password string) (*session.User, error)
	GuestLogin(ctx context.Context) error
	Logout(ctx context.Context) error

	// Dashboard and settings
	Dashboard(ctx context.Context) ([]session.Report, error)
	SetPersona(ctx context.Context, personaID string) (string, error)

	// Video analysis
	AnalyzeVideo(ctx context.Context, filename string, video io.Reader) (records.RecordID, error)
}
