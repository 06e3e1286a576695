package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"feellog/application"
	"feellog/infrastructure/bus"
)

func TestLoadAppConfigFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "FEELLOG_API_BASE_URL", "FEELLOG_API_TIMEOUT", "FEELLOG_API_WITH_CREDENTIALS",
		"POLL_INTERVAL", "NOTIFICATION_HIDE_AFTER", "NOTIFICATION_COMPLETION_MESSAGE", "NATS_URL", "NATS_SUBJECT_COMPLETED",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadAppConfigFromEnv()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "http://localhost:5000/api", cfg.API.BaseURL)
	assert.Zero(t, cfg.API.Timeout)
	assert.True(t, cfg.API.WithCredentials)
	assert.Equal(t, time.Second, cfg.Poller.Interval)
	assert.Equal(t, 3*time.Second, cfg.Notification.HideAfter)
	assert.Equal(t, application.DefaultCompletionMessage, cfg.Notification.CompletionMessage)
	assert.False(t, cfg.NATS.Enabled())
	assert.Equal(t, bus.DefaultCompletedSubject, cfg.NATS.SubjectCompleted)
}

func TestLoadAppConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("FEELLOG_API_BASE_URL", "https://api.feel-log.example/api")
	t.Setenv("FEELLOG_API_TIMEOUT", "10s")
	t.Setenv("FEELLOG_API_WITH_CREDENTIALS", "false")
	t.Setenv("POLL_INTERVAL", "2500")
	t.Setenv("NOTIFICATION_HIDE_AFTER", "5s")
	t.Setenv("NOTIFICATION_COMPLETION_MESSAGE", "Done!")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg := LoadAppConfigFromEnv()

	assert.Equal(t, "https://api.feel-log.example/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.False(t, cfg.API.WithCredentials)
	assert.Equal(t, 2500*time.Millisecond, cfg.Poller.Interval)
	assert.Equal(t, 5*time.Second, cfg.Notification.HideAfter)
	assert.True(t, cfg.NATS.Enabled())

	poller := cfg.PollerSettings()
	assert.Equal(t, 2500*time.Millisecond, poller.Interval)
	assert.Equal(t, "Done!", poller.CompletionMessage)
	assert.NotEmpty(t, poller.ExpectedErrors)
}

func TestLoadPollerConfigFromEnv_RejectsNonPositive(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "0s")
	assert.Equal(t, application.DefaultPollInterval, LoadPollerConfigFromEnv().Interval)

	t.Setenv("POLL_INTERVAL", "nonsense")
	assert.Equal(t, application.DefaultPollInterval, LoadPollerConfigFromEnv().Interval)
}

func TestParseBool(t *testing.T) {
	assert.True(t, parseBool("YES", false))
	assert.False(t, parseBool("off", true))
	assert.True(t, parseBool("maybe", true))
}
