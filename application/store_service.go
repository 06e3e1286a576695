package application

import (
	"context"
	"fmt"
	"io"
	"sync"

	"feellog/domain/contracts"
	"feellog/domain/records"
	"feellog/domain/session"
	"feellog/logging"
)

// User-facing fallback messages when the API gives none.
const (
	MsgLoginFailed   = "Login failed."
	MsgLogoutFailed  = "Logout failed."
	MsgPersonaFailed = "Failed to change chatbot persona."
	MsgUploadFailed  = "Failed to start video analysis."
)

// StoreService holds the companion's client-side state and forwards user
// actions to the Feel-Log API. One instance is built by the composition root.
type StoreService struct {
	api    contracts.FeelLogAPI
	logger *logging.Logger

	mu        sync.RWMutex
	state     session.State
	listeners []func(session.State)
}

// NewStoreService creates a store in the signed-out state.
func NewStoreService(api contracts.FeelLogAPI) *StoreService {
	return &StoreService{
		api:    api,
		logger: logging.Default().WithComponent("store"),
		state:  session.State{RecentReports: []session.Report{}},
	}
}

// OnChange registers a listener called after every state mutation.
func (s *StoreService) OnChange(listener func(session.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// Snapshot returns a copy of the current state.
func (s *StoreService) Snapshot() session.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// IsGuest reports whether nobody is signed in.
func (s *StoreService) IsGuest() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsGuest()
}

// update applies fn under the write lock and notifies listeners.
func (s *StoreService) update(fn func(*session.State)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.Clone()
	listeners := make([]func(session.State), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func signOut(st *session.State) {
	st.IsLoggedIn = false
	st.User = nil
}

// CheckLoginStatus refreshes the authentication state from the API.
// Failures are logged and leave the store signed out.
func (s *StoreService) CheckLoginStatus(ctx context.Context) {
	status, err := s.api.AuthStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to check login status", "error", err)
		s.update(signOut)
		return
	}

	s.update(func(st *session.State) {
		st.IsLoggedIn = status.IsLoggedIn
		if status.IsLoggedIn {
			st.User = status.User
		} else {
			st.User = nil
		}
	})
}

// Login signs in and reports success. On failure the API's message (or a
// fallback) is surfaced through the error state.
func (s *StoreService) Login(ctx context.Context, email, password string) bool {
	s.update(func(st *session.State) { st.Error.Message = "" })

	user, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "error", err)
		s.update(func(st *session.State) {
			st.Error.Message = contracts.APIMessage(err, MsgLoginFailed)
			signOut(st)
		})
		return false
	}

	s.logger.Security("User signed in", "user_id", userID(user))
	s.update(func(st *session.State) {
		st.IsLoggedIn = true
		st.User = user
	})
	return true
}

// GuestLogin drops any session and continues as a guest.
func (s *StoreService) GuestLogin(ctx context.Context) bool {
	if err := s.api.GuestLogin(ctx); err != nil {
		s.logger.Warn("Guest login failed", "error", err)
		s.update(func(st *session.State) { st.Error.Message = contracts.APIMessage(err, MsgLoginFailed) })
		return false
	}
	s.update(func(st *session.State) {
		signOut(st)
		st.Error.Message = ""
		st.RecentReports = []session.Report{}
	})
	return true
}

// Logout ends the session. User state is cleared only when the API agrees.
func (s *StoreService) Logout(ctx context.Context) bool {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("Logout failed", "error", err)
		s.update(func(st *session.State) { st.Error.Message = contracts.APIMessage(err, MsgLogoutFailed) })
		return false
	}

	s.logger.Security("User signed out")
	s.update(func(st *session.State) {
		signOut(st)
		st.ChatbotPersona = ""
		st.RecentReports = []session.Report{}
		st.Error.Message = ""
	})
	return true
}

// FetchRecentReports loads the dashboard report cards; failures clear them.
func (s *StoreService) FetchRecentReports(ctx context.Context) {
	reports, err := s.api.Dashboard(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch recent reports", "error", err)
		reports = []session.Report{}
	}
	s.update(func(st *session.State) { st.RecentReports = reports })
}

// SetChatbotPersona selects a chatbot persona.
func (s *StoreService) SetChatbotPersona(ctx context.Context, personaID string) bool {
	msg, err := s.api.SetPersona(ctx, personaID)
	if err != nil {
		s.logger.Error("Failed to set chatbot persona", "persona_id", personaID, "error", err)
		s.update(func(st *session.State) { st.Error.Message = MsgPersonaFailed })
		return false
	}

	s.logger.Info("Chatbot persona set", "persona_id", personaID, "message", msg)
	s.update(func(st *session.State) { st.ChatbotPersona = personaID })
	return true
}

// StartVideoAnalysis marks analysis as loading and uploads the video.
// The loading flag stays set until EndVideoAnalysis, which the completion
// event handler calls; a failed upload clears it immediately.
func (s *StoreService) StartVideoAnalysis(ctx context.Context, filename string, video io.Reader) (records.RecordID, error) {
	s.update(func(st *session.State) {
		st.Loading.VideoAnalysis = true
		st.Error.Message = ""
	})

	recordID, err := s.api.AnalyzeVideo(ctx, filename, video)
	if err != nil {
		s.logger.Error("Failed to start video analysis", "filename", filename, "error", err)
		s.update(func(st *session.State) {
			st.Loading.VideoAnalysis = false
			st.Error.Message = contracts.APIMessage(err, MsgUploadFailed)
		})
		return "", fmt.Errorf("start video analysis: %w", err)
	}

	s.logger.Info("Video analysis requested", "record_id", recordID, "filename", filename)
	return recordID, nil
}

// EndVideoAnalysis clears the analysis loading flag.
func (s *StoreService) EndVideoAnalysis() {
	s.update(func(st *session.State) { st.Loading.VideoAnalysis = false })
}

func userID(u *session.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
