package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"feellog/logging"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Config holds database configuration
type Config struct {
	Path              string        `env:"DB_PATH" default:"./feellog-dev.db"`
	MaxOpenConns      int           `env:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns      int           `env:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime   time.Duration `env:"DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime   time.Duration `env:"DB_CONN_MAX_IDLE_TIME" default:"15m"`
	BusyTimeoutMs     int           `env:"DB_BUSY_TIMEOUT_MS" default:"5000"`
	EnableForeignKeys bool          `env:"DB_ENABLE_FOREIGN_KEYS" default:"true"`
	EnableWAL         bool          `env:"DB_ENABLE_WAL" default:"true"`
}

// IsMemory reports whether the config points at an in-memory database.
func (c Config) IsMemory() bool {
	return c.Path == MemoryPath
}

// Database wraps the SQL database connections and provides managed access
type Database struct {
	readDB  *sql.DB // Connection pool for reads
	writeDB *sql.DB // Serialized connection for writes
	config  Config
	logger  *logging.Logger
}

// New creates a new Database instance with separate read/write connections.
// In-memory databases share one connection for both, since every new
// connection would otherwise see an empty database.
func New(config Config, logger *logging.Logger) (*Database, error) {
	dsn := buildDSN(config)

	logger.Database("Opening database connections",
		"path", config.Path,
		"memory", config.IsMemory(),
		"read_max_open_conns", config.MaxOpenConns,
		"write_max_open_conns", 1)

	writeDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open write database: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)

	readDB := writeDB
	if config.IsMemory() {
		writeDB.SetConnMaxLifetime(0)
		writeDB.SetConnMaxIdleTime(0)
	} else {
		writeDB.SetConnMaxLifetime(config.ConnMaxLifetime)
		writeDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

		readDB, err = sql.Open("sqlite", dsn)
		if err != nil {
			writeDB.Close()
			return nil, fmt.Errorf("failed to open read database: %w", err)
		}
		readDB.SetMaxOpenConns(config.MaxOpenConns)
		readDB.SetMaxIdleConns(config.MaxIdleConns)
		readDB.SetConnMaxLifetime(config.ConnMaxLifetime)
		readDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}

	database := &Database{
		readDB:  readDB,
		writeDB: writeDB,
		config:  config,
		logger:  logger,
	}

	if err := database.initialize(); err != nil {
		database.closeConns()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.runMigrations(); err != nil {
		database.closeConns()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	logger.Database("Database initialized successfully",
		"path", config.Path,
		"wal_mode", config.EnableWAL && !config.IsMemory())

	return database, nil
}

// buildDSN constructs the SQLite DSN. Pragmas are applied to every new connection.
func buildDSN(config Config) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", config.BusyTimeoutMs))
	if config.EnableForeignKeys {
		q.Add("_pragma", "foreign_keys(1)")
	}
	if config.EnableWAL && !config.IsMemory() {
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
	}
	q.Add("_pragma", "temp_store(MEMORY)")

	return "file:" + config.Path + "?" + q.Encode()
}

// initialize checks both connections
func (d *Database) initialize() error {
	if err := d.readDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping read database: %w", err)
	}
	if err := d.writeDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping write database: %w", err)
	}

	if d.config.EnableWAL && !d.config.IsMemory() {
		var journalMode string
		if err := d.writeDB.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
			return fmt.Errorf("failed to read journal mode: %w", err)
		}
		if journalMode != "wal" {
			d.logger.Warn("WAL mode not enabled", "journal_mode", journalMode)
		}
	}

	d.logPoolStats()
	return nil
}

// ReadDB returns the read database connection
func (d *Database) ReadDB() *sql.DB {
	return d.readDB
}

// WriteDB returns the write database connection
func (d *Database) WriteDB() *sql.DB {
	return d.writeDB
}

// Close closes both database connections
func (d *Database) Close() error {
	d.logger.Database("Closing database connections")

	if d.config.EnableWAL && !d.config.IsMemory() {
		if _, err := d.writeDB.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
			d.logger.Warn("failed to checkpoint WAL", "error", err)
		}
	}
	return d.closeConns()
}

func (d *Database) closeConns() error {
	var errs []error
	if d.readDB != d.writeDB {
		if err := d.readDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("read connection: %w", err))
		}
	}
	if err := d.writeDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("write connection: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to close connections: %v", errs)
	}
	return nil
}

// Health checks database connectivity and returns pool statistics
func (d *Database) Health(ctx context.Context) (map[string]any, error) {
	if err := d.readDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("read database ping failed: %w", err)
	}
	if err := d.writeDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("write database ping failed: %w", err)
	}

	readStats := d.readDB.Stats()
	writeStats := d.writeDB.Stats()

	return map[string]any{
		"read_pool": map[string]any{
			"open_connections": readStats.OpenConnections,
			"in_use":           readStats.InUse,
			"idle":             readStats.Idle,
			"wait_count":       readStats.WaitCount,
			"wait_duration":    readStats.WaitDuration.String(),
		},
		"write_pool": map[string]any{
			"open_connections": writeStats.OpenConnections,
			"in_use":           writeStats.InUse,
			"idle":             writeStats.Idle,
			"wait_count":       writeStats.WaitCount,
			"wait_duration":    writeStats.WaitDuration.String(),
		},
	}, nil
}

func (d *Database) logPoolStats() {
	readStats := d.readDB.Stats()
	writeStats := d.writeDB.Stats()

	d.logger.Database("Connection pool stats",
		"read_open", readStats.OpenConnections,
		"read_idle", readStats.Idle,
		"write_open", writeStats.OpenConnections,
		"write_idle", writeStats.Idle)
}

// WithTx executes a function within a database transaction (uses write connection)
func (d *Database) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			d.logger.Error("Failed to rollback transaction", "error", rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
