package application

import (
	"context"
	"io"
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
	"feellog/domain/records"
	"feellog/infrastructure/apiclient"
	"feellog/interfaces/devapi"
	"feellog/logging"
	"feellog/test/helpers"
)

// TestCompletionFlowAgainstDevAPI drives the poller through the real HTTP
// client against the SQLite-backed dev API.
func TestCompletionFlowAgainstDevAPI(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewLoggerWithWriter(&logging.Config{Level: "error", Format: "text"}, io.Discard)

	db, err := database.New(database.Config{Path: database.MemoryPath, BusyTimeoutMs: 1000, EnableForeignKeys: true}, logger)
	require.NoError(t, err)
	defer db.Close()

	clk := helpers.NewFakeClock(time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC))
	dev := devapi.NewServer(devapi.NewRepository(db), devapi.Config{PasswordCost: bcrypt.MinCost, EnableDevRoutes: true}, clk)
	require.NoError(t, dev.Seed(ctx, "mina@example.com", "pw", "mina"))

	root := chi.NewRouter()
	root.Mount("/api", dev.Routes())
	server := httptest.NewServer(root)
	defer server.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	httpClient := &http.Client{Jar: jar}
	api := apiclient.NewWithHTTPClient(server.URL+"/api", httpClient)

	notifications := NewNotificationService(clk, DefaultHideAfter)
	poller := NewStatusPoller(api, notifications, nil, clk, DefaultPollerConfig())
	poller.logger = logger
	store := NewStoreService(api)

	// Signed out: the poll is rejected with 401 and stays idle.
	poller.tick(ctx)
	assert.Equal(t, records.TrackerIdle, poller.Status().Phase)

	require.True(t, store.Login(ctx, "mina@example.com", "pw"))

	// Signed in without records: quiet idle.
	poller.tick(ctx)
	assert.Equal(t, records.TrackerIdle, poller.Status().Phase)

	recordID, err := store.StartVideoAnalysis(ctx, "monday.mp4", strings.NewReader("video"))
	require.NoError(t, err)

	poller.tick(ctx)
	require.Equal(t, recordID, poller.Status().TrackedRecordID)
	assert.False(t, notifications.State().Visible)

	resp, err := httpClient.Post(server.URL+"/api/dev/records/"+recordID.String()+"/complete", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	poller.tick(ctx)
	state := notifications.State()
	assert.True(t, state.Visible)
	assert.Equal(t, recordID, state.RecordID)
	assert.Equal(t, records.TrackerIdle, poller.Status().Phase)

	// A completed latest record seen while idle is not announced again.
	poller.tick(ctx)
	clk.Advance(DefaultHideAfter)
	assert.False(t, notifications.State().Visible)
	poller.tick(ctx)
	assert.False(t, notifications.State().Visible)
}
