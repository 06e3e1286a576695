package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithWriter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&Config{Level: "info", Format: "json"}, &buf).WithComponent("status_poller")

	logger.Poller("Started tracking record", "record_id", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Started tracking record", entry["msg"])
	assert.Equal(t, "status_poller", entry["component"])
	assert.Equal(t, "poller", entry["subsystem"])
	assert.Equal(t, "abc", entry["record_id"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&Config{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	logger.Database("also hidden")
	assert.Empty(t, buf.String())

	logger.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestWithContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(DefaultConfig(), &buf)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	logger.WithContext(ctx).Info("handled")

	assert.Contains(t, buf.String(), `"request_id":"req-42"`)

	buf.Reset()
	logger.WithContext(context.Background()).Info("plain")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestPerformance_DebugOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&Config{Level: "info", Format: "json"}, &buf)

	logger.Performance("GET /dashboard", 120*time.Millisecond)
	assert.Empty(t, buf.String())

	logger = NewLoggerWithWriter(&Config{Level: "debug", Format: "json"}, &buf)
	logger.Performance("GET /dashboard", 120*time.Millisecond, slog.Int("status", 200))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "performance", entry["msg"])
	assert.Equal(t, "GET /dashboard", entry["operation"])
	assert.EqualValues(t, 120, entry["duration_ms"])
	assert.EqualValues(t, 200, entry["status"])
}
