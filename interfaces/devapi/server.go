// Package devapi serves a local stand-in for the Feel-Log backend endpoints
// the companion talks to, backed by SQLite.
package devapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"feellog/domain/records"
	"feellog/domain/session"
	"feellog/logging"
	"feellog/platform/clock"
)

const (
	DefaultCookieName = "feellog_session"
	recentReportLimit = 5
	maxUploadMemory   = 32 << 20
)

// Config configures the dev API server.
type Config struct {
	// UploadDir receives uploaded videos; empty discards them.
	UploadDir    string
	CookieName   string
	PasswordCost int
	// EnableDevRoutes mounts /dev endpoints that stand in for the analyzer.
	EnableDevRoutes bool
}

type ctxKey struct{}

// Server implements the Feel-Log endpoints used by the companion.
type Server struct {
	repo   *Repository
	config Config
	clock  clock.Clock
	logger *logging.Logger
}

func NewServer(repo *Repository, config Config, clk clock.Clock) *Server {
	if config.CookieName == "" {
		config.CookieName = DefaultCookieName
	}
	if config.PasswordCost == 0 {
		config.PasswordCost = bcrypt.DefaultCost
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Server{
		repo:   repo,
		config: config,
		clock:  clk,
		logger: logging.Default().WithComponent("devapi"),
	}
}

// Routes returns the /api router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "Feel-Log dev API is running.")
	})
	r.Post("/signup_email", s.Signup)
	r.Post("/login_email", s.Login)
	r.Post("/guest_login", s.GuestLogin)
	r.Get("/auth/status", s.AuthStatus)
	r.Get("/dashboard", s.Dashboard)

	r.Group(func(r chi.Router) {
		r.Use(s.requireLogin)
		r.Post("/logout", s.Logout)
		r.Post("/analyze_video", s.AnalyzeVideo)
		r.Get("/records/latest-status", s.LatestStatus)
		r.Post("/settings/persona", s.SetPersona)
		if s.config.EnableDevRoutes {
			r.Post("/dev/records/{recordID}/complete", s.CompleteRecord)
		}
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// currentUser resolves the session cookie, or returns nil for guests.
func (s *Server) currentUser(r *http.Request) *User {
	cookie, err := r.Cookie(s.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, err := s.repo.SessionUser(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("Failed to resolve session", "error", err)
		}
		return nil
	}
	return user
}

func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := s.currentUser(r)
		if user == nil {
			writeMessage(w, http.StatusUnauthorized, "Login required.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

func userFrom(ctx context.Context) *User {
	user, _ := ctx.Value(ctxKey{}).(*User)
	return user
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(s.config.CookieName); err == nil && cookie.Value != "" {
		if err := s.repo.DeleteSession(r.Context(), cookie.Value); err != nil {
			s.logger.Warn("Failed to delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func toSessionUser(u *User) *session.User {
	return &session.User{ID: u.ID, Nickname: u.Nickname}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// Signup creates an account
func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" || req.Nickname == "" {
		writeMessage(w, http.StatusBadRequest, "Email, password and nickname are required.")
		return
	}

	userID, err := s.register(r.Context(), req.Email, req.Password, req.Nickname)
	if errors.Is(err, ErrDuplicate) {
		writeMessage(w, http.StatusConflict, "Email or nickname already exists.")
		return
	}
	if err != nil {
		s.logger.Error("Signup failed", "email", req.Email, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error.")
		return
	}

	s.logger.Security("User registered", "user_id", userID)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Signup complete.", "user_id": userID})
}

func (s *Server) register(ctx context.Context, email, password, nickname string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.PasswordCost)
	if err != nil {
		return "", err
	}
	return s.repo.CreateUser(ctx, email, nickname, string(hash), s.clock.Now())
}

// Seed creates an account unless the email is already registered.
func (s *Server) Seed(ctx context.Context, email, password, nickname string) error {
	if _, err := s.repo.UserByEmail(ctx, email); err == nil {
		return nil
	}
	_, err := s.register(ctx, email, password, nickname)
	return err
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials and starts a cookie session
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Please enter both email and password.")
		return
	}

	user, err := s.repo.UserByEmail(r.Context(), req.Email)
	if err == nil {
		err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	}
	if err != nil {
		s.logger.Security("Login rejected", "email", req.Email)
		writeMessage(w, http.StatusUnauthorized, "Email or password does not match.")
		return
	}

	token, err := s.repo.CreateSession(r.Context(), user.ID, s.clock.Now())
	if err != nil {
		s.logger.Error("Failed to create session", "user_id", user.ID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error.")
		return
	}
	s.setSessionCookie(w, token)

	s.logger.Security("User logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful.", "user": toSessionUser(user)})
}

// GuestLogin drops any session
func (s *Server) GuestLogin(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w, r)
	writeMessage(w, http.StatusOK, "Entering guest mode.")
}

// Logout ends the session
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w, r)
	writeMessage(w, http.StatusOK, "Logout successful.")
}

// AuthStatus reports whether the cookie belongs to a live session
func (s *Server) AuthStatus(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r)
	if user == nil {
		writeJSON(w, http.StatusOK, session.AuthStatus{IsLoggedIn: false})
		return
	}
	writeJSON(w, http.StatusOK, session.AuthStatus{IsLoggedIn: true, User: toSessionUser(user)})
}

// Dashboard lists recent report cards; guests get none
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r)
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]any{"is_logged_in": false, "reports": []json.RawMessage{}})
		return
	}

	reports, err := s.repo.RecentReports(r.Context(), user.ID, recentReportLimit)
	if err != nil {
		s.logger.Error("Failed to load reports", "user_id", user.ID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to load data.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"is_logged_in": true, "reports": reports})
}

// AnalyzeVideo stores the upload and registers a processing record
func (s *Server) AnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeMessage(w, http.StatusBadRequest, "No video file.")
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No video file.")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		writeMessage(w, http.StatusBadRequest, "Invalid file name.")
		return
	}

	videoPath, err := s.saveUpload(user.ID, filename, file)
	if err != nil {
		s.logger.Error("Failed to store upload", "user_id", user.ID, "filename", filename, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error.")
		return
	}

	recordID, err := s.repo.CreateRecord(r.Context(), user.ID, videoPath, s.clock.Now())
	if err != nil {
		s.logger.Error("Failed to create record", "user_id", user.ID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error.")
		return
	}

	s.logger.Info("Video analysis requested", "user_id", user.ID, "record_id", recordID)
	writeJSON(w, http.StatusAccepted, map[string]any{"message": "Video analysis request accepted.", "record_id": recordID})
}

func (s *Server) saveUpload(userID, filename string, src io.Reader) (string, error) {
	if s.config.UploadDir == "" {
		_, err := io.Copy(io.Discard, src)
		return filename, err
	}

	dir := filepath.Join(s.config.UploadDir, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, filename)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

// LatestStatus reports the status of the user's newest record
func (s *Server) LatestStatus(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	rec, err := s.repo.LatestRecord(r.Context(), user.ID)
	if errors.Is(err, ErrNotFound) {
		writeMessage(w, http.StatusOK, "No analysis records yet.")
		return
	}
	if err != nil {
		s.logger.Error("Failed to load latest record", "user_id", user.ID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error.")
		return
	}

	writeJSON(w, http.StatusOK, records.PollResult{RecordID: records.RecordID(rec.ID), Status: rec.Status})
}

type personaRequest struct {
	ChatbotID string `json:"chatbot_id"`
}

// SetPersona changes the user's chatbot persona
func (s *Server) SetPersona(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req personaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatbotID == "" {
		writeMessage(w, http.StatusBadRequest, "Chatbot ID is required.")
		return
	}

	if err := s.repo.SetPersona(r.Context(), user.ID, req.ChatbotID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrNotFound) {
			status = http.StatusNotFound
		}
		s.logger.Warn("Failed to change persona", "user_id", user.ID, "persona_id", req.ChatbotID, "error", err)
		writeMessage(w, status, "Failed to change persona.")
		return
	}
	writeMessage(w, http.StatusOK, "Chatbot persona changed.")
}

// CompleteRecord flips a record to completed in place of the analyzer
func (s *Server) CompleteRecord(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	recordID := records.RecordID(chi.URLParam(r, "recordID"))

	err := s.repo.CompleteRecord(r.Context(), user.ID, recordID, s.clock.Now())
	if errors.Is(err, ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Record not found.")
		return
	}
	if err != nil {
		s.logger.Error("Failed to complete record", "record_id", recordID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error.")
		return
	}

	s.logger.Info("Record marked completed", "record_id", recordID)
	writeJSON(w, http.StatusOK, records.PollResult{RecordID: recordID, Status: records.RecordStatusCompleted})
}

