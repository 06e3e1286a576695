package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"feellog/domain/contracts"
	"feellog/domain/records"
	"feellog/domain/session"
)

// MockFeelLogAPI implements contracts.FeelLogAPI for testing
type MockFeelLogAPI struct {
	mock.Mock
}

var _ contracts.FeelLogAPI = (*MockFeelLogAPI)(nil)

func (m *MockFeelLogAPI) LatestStatus(ctx context.Context) (records.PollResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(records.PollResult), args.Error(1)
}

func (m *MockFeelLogAPI) AuthStatus(ctx context.Context) (*session.AuthStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.AuthStatus), args.Error(1)
}

func (m *MockFeelLogAPI) Login(ctx context.Context, email, password string) (*session.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.User), args.Error(1)
}

func (m *MockFeelLogAPI) GuestLogin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockFeelLogAPI) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockFeelLogAPI) Dashboard(ctx context.Context) ([]session.Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]session.Report), args.Error(1)
}

func (m *MockFeelLogAPI) SetPersona(ctx context.Context, personaID string) (string, error) {
	args := m.Called(ctx, personaID)
	return args.String(0), args.Error(1)
}

func (m *MockFeelLogAPI) AnalyzeVideo(ctx context.Context, filename string, video io.Reader) (records.RecordID, error) {
	args := m.Called(ctx, filename, video)
	return args.Get(0).(records.RecordID), args.Error(1)
}
