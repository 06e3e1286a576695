package session

import "encoding/json"

// User identifies the signed-in account.
type User struct {
	ID       string `json:"user_id"`
	Nickname string `json:"user_nickname"`
}

// AuthStatus is the response of the auth-status check.
type AuthStatus struct {
	IsLoggedIn bool  `json:"is_logged_in"`
	User       *User `json:"user,omitempty"`
}

// Report is a dashboard report card. The card layout is owned by the
// backend and forwarded untouched.
type Report = json.RawMessage

// LoadingState tracks long-running user actions.
type LoadingState struct {
	VideoAnalysis bool `json:"video_analysis"`
}

// ErrorState holds the last user-facing error message.
type ErrorState struct {
	Message string `json:"message,omitempty"`
}

// State is a snapshot of the companion's client-side state.
type State struct {
	IsLoggedIn     bool         `json:"is_logged_in"`
	User           *User        `json:"user"`
	ChatbotPersona string       `json:"chatbot_persona,omitempty"`
	RecentReports  []Report     `json:"recent_reports"`
	Loading        LoadingState `json:"loading"`
	Error          ErrorState   `json:"error"`
}

// IsGuest reports whether nobody is signed in.
func (s State) IsGuest() bool {
	return !s.IsLoggedIn
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s State) Clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.RecentReports = make([]Report, len(s.RecentReports))
	for i, r := range s.RecentReports {
		out.RecentReports[i] = append(Report(nil), r...)
	}
	return out
}
