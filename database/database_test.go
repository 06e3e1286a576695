package database

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feellog/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLoggerWithWriter(&logging.Config{Level: "error", Format: "text"}, io.Discard)
}

func memoryConfig() Config {
	return Config{Path: MemoryPath, BusyTimeoutMs: 1000, EnableForeignKeys: true}
}

func TestNew_InMemoryAppliesMigrations(t *testing.T) {
	db, err := New(memoryConfig(), testLogger())
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.ReadDB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)

	require.NoError(t, db.ReadDB().QueryRow("SELECT COUNT(*) FROM personas").Scan(&count))
	assert.Equal(t, 3, count)
	assert.Same(t, db.ReadDB(), db.WriteDB())
}

func TestNew_FileDatabaseIsIdempotent(t *testing.T) {
	cfg := Config{
		Path:              filepath.Join(t.TempDir(), "dev.db"),
		MaxOpenConns:      4,
		MaxIdleConns:      2,
		BusyTimeoutMs:     1000,
		EnableForeignKeys: true,
		EnableWAL:         true,
	}

	db, err := New(cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(cfg, testLogger())
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.ReadDB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)

	health, err := db.Health(context.Background())
	require.NoError(t, err)
	assert.Contains(t, health, "read_pool")
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, err := New(memoryConfig(), testLogger())
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	err = db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO personas (id, name) VALUES ('temp', 'Temp')"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.ReadDB().QueryRow("SELECT COUNT(*) FROM personas WHERE id = 'temp'").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := New(memoryConfig(), testLogger())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.WriteDB().Exec(
		"INSERT INTO records (id, user_id, video_path, created_at) VALUES ('r1', 'missing', 'x.mp4', CURRENT_TIMESTAMP)")
	assert.Error(t, err)
}

func TestLoadMigrations(t *testing.T) {
	t.Run("sorted by version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/10_late.sql": {Data: []byte("SELECT 1;")},
			"migrations/2_early.sql": {Data: []byte("SELECT 1;")},
		}
		migrations, err := loadMigrations(fsys)
		require.NoError(t, err)
		require.Len(t, migrations, 2)
		assert.Equal(t, int64(2), migrations[0].Version)
		assert.Equal(t, "10_late", migrations[1].Name)
	})

	t.Run("duplicate versions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/1_a.sql": {Data: []byte("SELECT 1;")},
			"migrations/1_b.sql": {Data: []byte("SELECT 1;")},
		}
		_, err := loadMigrations(fsys)
		assert.ErrorContains(t, err, "duplicate migration version 1")
	})

	t.Run("malformed name", func(t *testing.T) {
		fsys := fstest.MapFS{"migrations/init.sql": {Data: []byte("SELECT 1;")}}
		_, err := loadMigrations(fsys)
		assert.ErrorContains(t, err, "malformed migration filename")
	})
}
