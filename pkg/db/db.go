// Package db pkg/db/db.go provides SQLite persistence for the replay engine
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// busy timeout plus immediate transactions keep concurrent writers from
	// failing with SQLITE_BUSY on lock upgrade.
	connParams = "_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"

	// SQL statements for database initialization.
	createTablesSQL = `
	-- Environments (owned by the settings UI)
	CREATE TABLE IF NOT EXISTS environments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		fish_device_id TEXT NOT NULL DEFAULT '',
		plant_device_id TEXT NOT NULL DEFAULT '',
		speed_multiplier INTEGER NOT NULL DEFAULT 1,
		enabled BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Virtual devices
	CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		device_type TEXT NOT NULL,
		mac_address TEXT NOT NULL,
		api_key TEXT NOT NULL
	);

	-- Streaming sessions
	CREATE TABLE IF NOT EXISTS streaming_sessions (
		id TEXT PRIMARY KEY,
		environment_id TEXT NOT NULL,
		device_type TEXT NOT NULL,
		status TEXT NOT NULL,
		last_row_sent INTEGER NOT NULL DEFAULT 0,
		total_rows INTEGER NOT NULL,
		consecutive_errors INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		last_advanced_at TIMESTAMP,
		lease_owner TEXT,
		lease_expires_at TIMESTAMP,
		CHECK (last_row_sent >= 0 AND last_row_sent <= total_rows)
	);

	-- Cron run audit
	CREATE TABLE IF NOT EXISTS cron_runs (
		run_id TEXT PRIMARY KEY,
		trigger_source TEXT NOT NULL,
		backend TEXT NOT NULL,
		environment_ids TEXT NOT NULL,
		session_ids TEXT NOT NULL,
		readings_sent INTEGER NOT NULL DEFAULT 0,
		errors TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);

	-- Session event log
	CREATE TABLE IF NOT EXISTS event_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		row_index INTEGER,
		count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	-- Pre-environment replay configuration
	CREATE TABLE IF NOT EXISTS legacy_configs (
		user_id TEXT PRIMARY KEY,
		fish_device_id TEXT NOT NULL DEFAULT '',
		plant_device_id TEXT NOT NULL DEFAULT '',
		fish_row INTEGER NOT NULL DEFAULT 0,
		plant_row INTEGER NOT NULL DEFAULT 0,
		enabled BOOLEAN NOT NULL DEFAULT 1,
		migrated_environment_id TEXT,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- At most one live session per environment and device type
	CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_live
		ON streaming_sessions(environment_id, device_type)
		WHERE status IN ('active', 'paused');
	CREATE INDEX IF NOT EXISTS idx_sessions_env_created
		ON streaming_sessions(environment_id, device_type, created_at);
	CREATE INDEX IF NOT EXISTS idx_environments_user
		ON environments(user_id);
	CREATE INDEX IF NOT EXISTS idx_event_log_session_time
		ON event_log(session_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_cron_runs_started
		ON cron_runs(started_at);
	`
)

// DB represents the database connection and operations.
type DB struct {
	*sql.DB
}

var _ Service = (*DB)(nil)

// New creates a new database connection and initializes the schema.
func New(dbPath string) (*DB, error) {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}

	sqlDB, err := sql.Open("sqlite3", dbPath+sep+connParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToEnableWAL, err)
	}

	db := &DB{sqlDB}
	if err := db.initSchema(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInit, err)
	}

	return db, nil
}

// initSchema creates the database tables if they don't exist.
func (db *DB) initSchema() error {
	_, err := db.Exec(createTablesSQL)

	return err
}

// withTx runs fn in a transaction, rolling back when fn or the commit fails.
func (db *DB) withTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToBeginTx, err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Printf("Error rolling back transaction: %v", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Printf("failed to close rows: %v", err)
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
