package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"feellog/application"
	"feellog/domain/events"
	"feellog/interfaces/web/presenters"
	"feellog/logging"
	platformevents "feellog/platform/events"
)

// SSEClient represents a connected Server-Sent Events client.
type SSEClient struct {
	id      string
	writer  http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}

	// writeMu serialises writes from concurrent broadcasts
	writeMu  sync.Mutex
	lastSent time.Time
}

// SSEManager manages Server-Sent Events connections and real-time broadcasting.
// Streams completion toasts, notification state and refresh hints.
type SSEManager struct {
	clients        map[string]*SSEClient
	mu             sync.RWMutex
	logger         *logging.Logger
	toastPresenter presenters.ToastFormatter

	stop     chan struct{}
	stopOnce sync.Once
}

var _ platformevents.SSEBroadcaster = (*SSEManager)(nil)

// NewSSEManager creates a new SSE connection manager with cleanup routines.
func NewSSEManager() *SSEManager {
	manager := &SSEManager{
		clients:        make(map[string]*SSEClient),
		logger:         logging.Default().WithComponent("sse_manager"),
		toastPresenter: presenters.NewToastPresenter(),
		stop:           make(chan struct{}),
	}

	// Start cleanup routine for stale connections
	go manager.cleanupRoutine()

	return manager
}

// AddClient adds a new SSE client connection
func (s *SSEManager) AddClient(clientID string, w http.ResponseWriter) *SSEClient {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("Response writer does not support flushing")
		return nil
	}

	flusher.Flush()

	client := &SSEClient{
		id:       clientID,
		writer:   w,
		flusher:  flusher,
		done:     make(chan struct{}),
		lastSent: time.Now(),
	}

	s.mu.Lock()
	s.clients[clientID] = client
	total := len(s.clients)
	s.mu.Unlock()

	s.logger.Info("SSE client connected", "client_id", clientID, "total_clients", total)

	return client
}

// RemoveClient removes an SSE client connection
func (s *SSEManager) RemoveClient(clientID string) {
	s.mu.Lock()
	client, exists := s.clients[clientID]
	if exists {
		delete(s.clients, clientID)
	}
	s.mu.Unlock()

	if exists {
		// Close channel outside of lock to prevent double-close panic
		select {
		case <-client.done:
		default:
			close(client.done)
		}
		s.logger.Info("SSE client disconnected", "client_id", clientID)
	}
}

// ClientCount returns the number of connected clients.
func (s *SSEManager) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// BroadcastRecordToast broadcasts the completion toast for a record
func (s *SSEManager) BroadcastRecordToast(event events.RecordCompletedEvent) {
	toastHTML, err := s.toastPresenter.FormatRecordCompletedToast(event)
	if err != nil {
		s.logger.Error("Failed to format record toast", "error", err, "record_id", event.RecordID)
		return
	}
	s.broadcast("toast", toastHTML, "record_id", event.RecordID)
}

// BroadcastToast broadcasts a simple toast notification to all connected clients
func (s *SSEManager) BroadcastToast(message, toastType string) {
	toastHTML, err := s.toastPresenter.FormatToastNotification(message, toastType)
	if err != nil {
		s.logger.Error("Failed to format toast notification", "error", err, "message", message)
		return
	}
	s.broadcast("toast", toastHTML, "type", toastType)
}

// BroadcastNotification pushes the notification state so clients can show or hide it
func (s *SSEManager) BroadcastNotification(state application.NotificationState) {
	data, err := json.Marshal(state)
	if err != nil {
		s.logger.Error("Failed to encode notification state", "error", err)
		return
	}
	s.broadcast("notification", string(data), "visible", state.Visible)
}

// BroadcastStateUpdate tells clients to refetch /api/state
func (s *SSEManager) BroadcastStateUpdate() {
	message := `{"action": "refresh", "timestamp": "` + time.Now().Format(time.RFC3339) + `"}`
	s.broadcast("state-updated", message)
}

// broadcast sends one event to every client and drops the ones that fail.
func (s *SSEManager) broadcast(event, data string, logAttrs ...any) {
	// Copy clients list to avoid holding lock during I/O
	s.mu.RLock()
	if len(s.clients) == 0 {
		s.mu.RUnlock()
		s.logger.Debug("No SSE clients connected, skipping broadcast", "event", event)
		return
	}
	clientList := make(map[string]*SSEClient, len(s.clients))
	for id, client := range s.clients {
		clientList[id] = client
	}
	s.mu.RUnlock()

	successCount := 0
	failedClients := []string{}
	for clientID, client := range clientList {
		if err := s.sendToClient(client, event, data); err != nil {
			s.logger.Warn("Failed to send event to client",
				"client_id", clientID,
				"event", event,
				"error", err)
			failedClients = append(failedClients, clientID)
		} else {
			successCount++
		}
	}

	for _, clientID := range failedClients {
		s.RemoveClient(clientID)
	}

	attrs := append([]any{
		"event", event,
		"total_clients", len(clientList),
		"successful", successCount,
		"failed", len(failedClients),
	}, logAttrs...)
	s.logger.Info("Broadcasted SSE event", attrs...)
}

// sendToClient sends an SSE message to a specific client
func (s *SSEManager) sendToClient(client *SSEClient, event, data string) error {
	var message string
	if event == "keepalive" || event == "connected" {
		// Comments keep the stream open without triggering listeners
		message = fmt.Sprintf(": %s\n\n", data)
	} else {
		message = fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
	}

	client.writeMu.Lock()
	defer client.writeMu.Unlock()

	select {
	case <-client.done:
		return fmt.Errorf("client connection closed")
	default:
	}

	if _, err := client.writer.Write([]byte(message)); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	client.flusher.Flush()
	client.lastSent = time.Now()

	return nil
}

// SendKeepAlive sends keep-alive messages to all clients
func (s *SSEManager) SendKeepAlive() {
	s.mu.RLock()
	clientList := make(map[string]*SSEClient, len(s.clients))
	for id, client := range s.clients {
		clientList[id] = client
	}
	s.mu.RUnlock()

	failedClients := []string{}
	for clientID, client := range clientList {
		if err := s.sendToClient(client, "keepalive", time.Now().Format(time.RFC3339)); err != nil {
			s.logger.Debug("Keep-alive failed, removing client", "client_id", clientID)
			failedClients = append(failedClients, clientID)
		}
	}

	for _, clientID := range failedClients {
		s.RemoveClient(clientID)
	}
}

// cleanupRoutine periodically pings clients until Close is called
func (s *SSEManager) cleanupRoutine() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.SendKeepAlive()
		}
	}
}

// Close disconnects every client and stops the keep-alive routine.
func (s *SSEManager) Close() {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.RLock()
	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.RemoveClient(id)
	}
}

// HandleSSEConnection handles the SSE endpoint
func (s *SSEManager) HandleSSEConnection(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	client := s.AddClient(clientID, w)
	if client == nil {
		http.Error(w, "Failed to establish SSE connection", http.StatusInternalServerError)
		return
	}

	if err := s.sendToClient(client, "connected", "client "+clientID); err != nil {
		s.logger.Error("Failed to send connection comment", "client_id", clientID, "error", err)
		s.RemoveClient(clientID)
		return
	}

	select {
	case <-r.Context().Done():
		s.logger.Debug("SSE client context cancelled", "client_id", clientID)
	case <-client.done:
	}
	s.RemoveClient(clientID)

	// Wait out any in-flight write before the ResponseWriter is released.
	client.writeMu.Lock()
	client.writeMu.Unlock()
}
