package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"feellog/application"
	"feellog/domain/contracts"
	"feellog/domain/records"
	"feellog/domain/session"
	"feellog/interfaces/web/templates/components/ui"
	"feellog/logging"
)

const maxUploadMemory = 32 << 20

// StoreService is the store surface the handlers drive.
type StoreService interface {
	Snapshot() session.State
	CheckLoginStatus(ctx context.Context)
	Login(ctx context.Context, email, password string) bool
	GuestLogin(ctx context.Context) bool
	Logout(ctx context.Context) bool
	FetchRecentReports(ctx context.Context)
	SetChatbotPersona(ctx context.Context, personaID string) bool
	StartVideoAnalysis(ctx context.Context, filename string, video io.Reader) (records.RecordID, error)
}

// NotificationSource exposes the current completion notification.
type NotificationSource interface {
	State() application.NotificationState
	Dismiss()
}

// PollerStatusSource exposes the poller's bookkeeping.
type PollerStatusSource interface {
	Status() application.PollerStatus
}

// ToastBroadcaster pushes short-lived messages to connected browsers.
type ToastBroadcaster interface {
	BroadcastToast(message, toastType string)
}

// StoreHandlers exposes the companion state and user actions as JSON endpoints.
type StoreHandlers struct {
	store         StoreService
	notifications NotificationSource
	poller        PollerStatusSource
	toasts        ToastBroadcaster
	logger        *logging.Logger
}

// NewStoreHandlers creates the JSON handlers.
func NewStoreHandlers(store StoreService, notifications NotificationSource, poller PollerStatusSource) *StoreHandlers {
	return &StoreHandlers{
		store:         store,
		notifications: notifications,
		poller:        poller,
		logger:        logging.Default().WithComponent("store_handler"),
	}
}

// WithToasts makes failed user actions raise an error toast.
func (h *StoreHandlers) WithToasts(toasts ToastBroadcaster) *StoreHandlers {
	h.toasts = toasts
	return h
}

// actionFailed logs a rejected user action and tells connected browsers.
func (h *StoreHandlers) actionFailed(r *http.Request, action, message string) {
	h.logger.WithContext(r.Context()).Warn("User action failed", "action", action, "message", message)
	if h.toasts != nil {
		h.toasts.BroadcastToast(message, "error")
	}
}

// RegisterRoutes mounts the handlers on r.
func (h *StoreHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Post("/login", h.Login)
		r.Post("/guest-login", h.GuestLogin)
		r.Post("/logout", h.Logout)
		r.Post("/auth/refresh", h.RefreshAuth)
		r.Get("/dashboard", h.Dashboard)
		r.Post("/persona", h.SetPersona)
		r.Post("/videos", h.UploadVideo)
		r.Get("/notification", h.GetNotification)
		r.Delete("/notification", h.DismissNotification)
		r.Get("/poller", h.GetPollerStatus)
	})
	r.Get("/toast", h.Toast)
}

// GetState returns the store snapshot
func (h *StoreHandlers) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login signs in with email and password
func (h *StoreHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if !h.store.Login(r.Context(), req.Email, req.Password) {
		message := h.store.Snapshot().Error.Message
		h.actionFailed(r, "login", message)
		writeMessage(w, http.StatusUnauthorized, message)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// GuestLogin continues without an account
func (h *StoreHandlers) GuestLogin(w http.ResponseWriter, r *http.Request) {
	if !h.store.GuestLogin(r.Context()) {
		writeMessage(w, http.StatusBadGateway, h.store.Snapshot().Error.Message)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// Logout ends the session
func (h *StoreHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if !h.store.Logout(r.Context()) {
		writeMessage(w, http.StatusBadGateway, h.store.Snapshot().Error.Message)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// RefreshAuth re-checks the login status with the API
func (h *StoreHandlers) RefreshAuth(w http.ResponseWriter, r *http.Request) {
	h.store.CheckLoginStatus(r.Context())
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// Dashboard reloads and returns the recent report cards
func (h *StoreHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.store.FetchRecentReports(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"reports": h.store.Snapshot().RecentReports})
}

type personaRequest struct {
	PersonaID string `json:"persona_id"`
}

// SetPersona selects the chatbot persona
func (h *StoreHandlers) SetPersona(w http.ResponseWriter, r *http.Request) {
	var req personaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PersonaID == "" {
		writeMessage(w, http.StatusBadRequest, "persona_id is required")
		return
	}

	if !h.store.SetChatbotPersona(r.Context(), req.PersonaID) {
		message := h.store.Snapshot().Error.Message
		h.actionFailed(r, "set_persona", message)
		writeMessage(w, http.StatusBadGateway, message)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// UploadVideo forwards a multipart "video" upload to the analysis endpoint
func (h *StoreHandlers) UploadVideo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeMessage(w, http.StatusBadRequest, "expected multipart form with a video file")
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "no video file")
		return
	}
	defer file.Close()

	recordID, err := h.store.StartVideoAnalysis(r.Context(), header.Filename, file)
	if err != nil {
		status := http.StatusBadGateway
		var apiErr *contracts.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			status = http.StatusUnauthorized
		}
		message := h.store.Snapshot().Error.Message
		h.actionFailed(r, "upload_video", message)
		writeMessage(w, status, message)
		return
	}

	h.logger.WithContext(r.Context()).Info("Video upload accepted", "record_id", recordID, "filename", header.Filename)
	writeJSON(w, http.StatusAccepted, map[string]any{"record_id": recordID})
}

// GetNotification returns the completion notification state
func (h *StoreHandlers) GetNotification(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.notifications.State())
}

// DismissNotification hides the notification before its timer fires
func (h *StoreHandlers) DismissNotification(w http.ResponseWriter, r *http.Request) {
	h.notifications.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

// GetPollerStatus returns the poller's current status
func (h *StoreHandlers) GetPollerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.poller.Status())
}

// Toast renders the visible notification as an HTML fragment, or nothing
func (h *StoreHandlers) Toast(w http.ResponseWriter, r *http.Request) {
	state := h.notifications.State()
	if !state.Visible {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	view := ui.ToastNotificationView{
		Message:  state.Message,
		Type:     "success",
		RecordID: state.RecordID.String(),
	}
	if state.ShownAt != nil {
		view.Timestamp = *state.ShownAt
	}
	RenderResponse(r.Context(), w, r, ui.RichToastNotification(view))
}
