package devapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"feellog/database"
	"feellog/logging"
	"feellog/test/helpers"
)

type devFixture struct {
	server *httptest.Server
	api    *Server
	client *http.Client
	clock  *helpers.FakeClock
}

func newDevFixture(t *testing.T) *devFixture {
	t.Helper()

	logger := logging.NewLoggerWithWriter(&logging.Config{Level: "error", Format: "text"}, io.Discard)
	db, err := database.New(database.Config{Path: database.MemoryPath, BusyTimeoutMs: 1000, EnableForeignKeys: true}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clk := helpers.NewFakeClock(time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC))
	api := NewServer(NewRepository(db), Config{PasswordCost: bcrypt.MinCost, EnableDevRoutes: true}, clk)

	root := chi.NewRouter()
	root.Mount("/api", api.Routes())
	server := httptest.NewServer(root)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &devFixture{server: server, api: api, client: &http.Client{Jar: jar}, clock: clk}
}

func (f *devFixture) call(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+"/api"+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && json.Valid(raw) {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (f *devFixture) signupAndLogin(t *testing.T) {
	t.Helper()
	status, _ := f.call(t, http.MethodPost, "/signup_email", `{"email":"mina@example.com","password":"pw","nickname":"mina"}`)
	require.Equal(t, http.StatusCreated, status)
	status, _ = f.call(t, http.MethodPost, "/login_email", `{"email":"mina@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, status)
}

func (f *devFixture) upload(t *testing.T, filename string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("video", filename)
	require.NoError(t, err)
	_, _ = part.Write([]byte("video"))
	require.NoError(t, mw.Close())

	resp, err := f.client.Post(f.server.URL+"/api/analyze_video", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out struct {
		RecordID string `json:"record_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.RecordID)
	return out.RecordID
}

func TestServer_ProtectedRoutesRequireLogin(t *testing.T) {
	f := newDevFixture(t)

	for _, path := range []string{"/records/latest-status"} {
		status, body := f.call(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Login required.", body["message"])
	}
	status, _ := f.call(t, http.MethodPost, "/logout", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = f.call(t, http.MethodPost, "/settings/persona", `{"chatbot_id":"coach"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestServer_SignupAndLogin(t *testing.T) {
	f := newDevFixture(t)

	status, body := f.call(t, http.MethodPost, "/signup_email", `{"email":"mina@example.com","password":"pw","nickname":"mina"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, body["user_id"])

	status, _ = f.call(t, http.MethodPost, "/signup_email", `{"email":"mina@example.com","password":"pw","nickname":"other"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, body = f.call(t, http.MethodPost, "/login_email", `{"email":"mina@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Email or password does not match.", body["message"])

	status, _ = f.call(t, http.MethodPost, "/login_email", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = f.call(t, http.MethodPost, "/login_email", `{"email":"mina@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.Equal(t, "mina", user["user_nickname"])

	status, body = f.call(t, http.MethodGet, "/auth/status", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["is_logged_in"])
}

func TestServer_LatestStatusLifecycle(t *testing.T) {
	f := newDevFixture(t)
	f.signupAndLogin(t)

	status, body := f.call(t, http.MethodGet, "/records/latest-status", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "No analysis records yet.", body["message"])
	assert.NotContains(t, body, "record_id")

	first := f.upload(t, "monday.mp4")
	f.clock.Advance(time.Second)
	second := f.upload(t, "tuesday.mp4")

	status, body = f.call(t, http.MethodGet, "/records/latest-status", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, second, body["record_id"])
	assert.Equal(t, "processing", body["status"])

	status, _ = f.call(t, http.MethodPost, "/dev/records/"+first+"/complete", "")
	require.Equal(t, http.StatusOK, status)

	_, body = f.call(t, http.MethodGet, "/records/latest-status", "")
	assert.Equal(t, "processing", body["status"], "completing an older record leaves the latest untouched")

	status, _ = f.call(t, http.MethodPost, "/dev/records/"+second+"/complete", "")
	require.Equal(t, http.StatusOK, status)

	_, body = f.call(t, http.MethodGet, "/records/latest-status", "")
	assert.Equal(t, second, body["record_id"])
	assert.Equal(t, "completed", body["status"])

	status, body = f.call(t, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["reports"], 2)

	status, _ = f.call(t, http.MethodPost, "/dev/records/unknown/complete", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_AnalyzeVideoRequiresFile(t *testing.T) {
	f := newDevFixture(t)
	f.signupAndLogin(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file"))
	require.NoError(t, mw.Close())

	resp, err := f.client.Post(f.server.URL+"/api/analyze_video", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_PersonaAndLogout(t *testing.T) {
	f := newDevFixture(t)
	f.signupAndLogin(t)

	status, _ := f.call(t, http.MethodPost, "/settings/persona", `{"chatbot_id":"coach"}`)
	assert.Equal(t, http.StatusOK, status)

	status, _ = f.call(t, http.MethodPost, "/settings/persona", `{"chatbot_id":"pirate"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.call(t, http.MethodPost, "/settings/persona", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.call(t, http.MethodPost, "/logout", "")
	require.Equal(t, http.StatusOK, status)

	_, body := f.call(t, http.MethodGet, "/auth/status", "")
	assert.Equal(t, false, body["is_logged_in"])
	status, _ = f.call(t, http.MethodGet, "/records/latest-status", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestServer_GuestDashboard(t *testing.T) {
	f := newDevFixture(t)

	status, _ := f.call(t, http.MethodPost, "/guest_login", "")
	require.Equal(t, http.StatusOK, status)

	status, body := f.call(t, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["is_logged_in"])
	assert.Empty(t, body["reports"])
}

func TestServer_SeedIsIdempotent(t *testing.T) {
	f := newDevFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, f.api.Seed(ctx, "demo@example.com", "demo", "demo"))
	require.NoError(t, f.api.Seed(ctx, "demo@example.com", "demo", "demo"))

	status, _ := f.call(t, http.MethodPost, "/login_email", `{"email":"demo@example.com","password":"demo"}`)
	assert.Equal(t, http.StatusOK, status)
}
