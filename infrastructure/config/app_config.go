package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"feellog/application"
	"feellog/database"
	"feellog/infrastructure/apiclient"
	"feellog/infrastructure/bus"
	"feellog/interfaces/devapi"
	"feellog/logging"
)

// AppConfig holds the companion's system configuration.
type AppConfig struct {
	HTTPAddr     string
	HTTPLogPath  string
	API          *apiclient.Config
	Poller       *PollerConfig
	Notification *NotificationConfig
	NATS         *NATSConfig
	Logging      *logging.Config
}

// PollerConfig holds status poller settings.
type PollerConfig struct {
	Interval  time.Duration `env:"POLL_INTERVAL" default:"1s"`
	AutoStart bool          `env:"POLL_AUTOSTART" default:"true"`
}

// NotificationConfig holds completion notification settings.
type NotificationConfig struct {
	HideAfter         time.Duration `env:"NOTIFICATION_HIDE_AFTER" default:"3s"`
	CompletionMessage string        `env:"NOTIFICATION_COMPLETION_MESSAGE"`
}

// NATSConfig holds the optional completion sink. An empty URL disables it.
type NATSConfig struct {
	URL              string `env:"NATS_URL"`
	SubjectCompleted string `env:"NATS_SUBJECT_COMPLETED" default:"feellog.records.completed"`
}

// Enabled reports whether a NATS URL is configured.
func (c *NATSConfig) Enabled() bool {
	return c != nil && c.URL != ""
}

// DevAPIConfig holds the local dev API server settings.
type DevAPIConfig struct {
	HTTPAddr     string
	HTTPLogPath  string
	UploadDir    string
	SeedEmail    string
	SeedPassword string
	SeedNickname string

	// NATSURL enables the analyzer result listener when set.
	NATSURL             string
	AnalysisDoneSubject string

	Database *database.Config
	Logging  *logging.Config
}

// LoadAppConfigFromEnv loads complete application configuration from environment variables.
func LoadAppConfigFromEnv() *AppConfig {
	return &AppConfig{
		HTTPAddr:     getEnvWithDefault("HTTP_ADDR", ":8080"),
		HTTPLogPath:  getEnvWithDefault("HTTP_LOG_PATH", ""),
		API:          LoadAPIConfigFromEnv(),
		Poller:       LoadPollerConfigFromEnv(),
		Notification: LoadNotificationConfigFromEnv(),
		NATS:         LoadNATSConfigFromEnv(),
		Logging:      LoadLoggingConfigFromEnv(),
	}
}

// LoadDevAPIConfigFromEnv loads the dev API configuration from environment variables.
func LoadDevAPIConfigFromEnv() *DevAPIConfig {
	return &DevAPIConfig{
		HTTPAddr:            getEnvWithDefault("DEVAPI_HTTP_ADDR", ":5000"),
		HTTPLogPath:         getEnvWithDefault("HTTP_LOG_PATH", ""),
		UploadDir:           getEnvWithDefault("DEVAPI_UPLOAD_DIR", ""),
		SeedEmail:           getEnvWithDefault("DEVAPI_SEED_EMAIL", ""),
		SeedPassword:        getEnvWithDefault("DEVAPI_SEED_PASSWORD", ""),
		SeedNickname:        getEnvWithDefault("DEVAPI_SEED_NICKNAME", "demo"),
		NATSURL:             getEnvWithDefault("NATS_URL", ""),
		AnalysisDoneSubject: getEnvWithDefault("DEVAPI_NATS_SUBJECT_ANALYSIS_DONE", devapi.DefaultAnalysisDoneSubject),
		Database:            LoadDatabaseConfigFromEnv(),
		Logging:             LoadLoggingConfigFromEnv(),
	}
}

// LoadAPIConfigFromEnv loads Feel-Log API client configuration from environment variables.
func LoadAPIConfigFromEnv() *apiclient.Config {
	defaults := apiclient.DefaultConfig()
	return &apiclient.Config{
		BaseURL:         getEnvWithDefault("FEELLOG_API_BASE_URL", defaults.BaseURL),
		Timeout:         getEnvDurationWithDefault("FEELLOG_API_TIMEOUT", defaults.Timeout),
		WithCredentials: getEnvBoolWithDefault("FEELLOG_API_WITH_CREDENTIALS", defaults.WithCredentials),
	}
}

// LoadPollerConfigFromEnv loads poller configuration from environment variables.
func LoadPollerConfigFromEnv() *PollerConfig {
	return &PollerConfig{
		Interval:  getEnvPositiveDurationWithDefault("POLL_INTERVAL", application.DefaultPollInterval),
		AutoStart: getEnvBoolWithDefault("POLL_AUTOSTART", true),
	}
}

// LoadNotificationConfigFromEnv loads notification configuration from environment variables.
func LoadNotificationConfigFromEnv() *NotificationConfig {
	return &NotificationConfig{
		HideAfter:         getEnvPositiveDurationWithDefault("NOTIFICATION_HIDE_AFTER", application.DefaultHideAfter),
		CompletionMessage: getEnvWithDefault("NOTIFICATION_COMPLETION_MESSAGE", application.DefaultCompletionMessage),
	}
}

// LoadNATSConfigFromEnv loads the optional NATS sink configuration.
func LoadNATSConfigFromEnv() *NATSConfig {
	return &NATSConfig{
		URL:              getEnvWithDefault("NATS_URL", ""),
		SubjectCompleted: getEnvWithDefault("NATS_SUBJECT_COMPLETED", bus.DefaultCompletedSubject),
	}
}

// LoadDatabaseConfigFromEnv loads database configuration from environment variables.
func LoadDatabaseConfigFromEnv() *database.Config {
	return &database.Config{
		Path:              getEnvWithDefault("DB_PATH", "./feellog-dev.db"),
		MaxOpenConns:      getEnvIntWithDefault("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:      getEnvIntWithDefault("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:   getEnvDurationWithDefault("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime:   getEnvDurationWithDefault("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		BusyTimeoutMs:     getEnvIntWithDefault("DB_BUSY_TIMEOUT_MS", 5000),
		EnableForeignKeys: getEnvBoolWithDefault("DB_ENABLE_FOREIGN_KEYS", true),
		EnableWAL:         getEnvBoolWithDefault("DB_ENABLE_WAL", true),
	}
}

// LoadLoggingConfigFromEnv loads logging configuration from environment variables.
func LoadLoggingConfigFromEnv() *logging.Config {
	return &logging.Config{
		Level:  getEnvWithDefault("LOG_LEVEL", "info"),
		Format: getEnvWithDefault("LOG_FORMAT", "json"),
		Output: getEnvWithDefault("LOG_OUTPUT", "stdout"),
	}
}

// PollerSettings converts the loaded values into the poller's configuration.
func (c *AppConfig) PollerSettings() application.PollerConfig {
	cfg := application.DefaultPollerConfig()
	cfg.Interval = c.Poller.Interval
	if c.Notification.CompletionMessage != "" {
		cfg.CompletionMessage = c.Notification.CompletionMessage
	}
	return cfg
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(v string, def bool) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// Helper functions for environment variable parsing.
func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return parseBool(value, defaultValue)
	}
	return defaultValue
}

// getEnvDurationWithDefault accepts Go durations ("1500ms") or bare milliseconds.
func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvPositiveDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if d := getEnvDurationWithDefault(key, defaultValue); d > 0 {
		return d
	}
	return defaultValue
}
