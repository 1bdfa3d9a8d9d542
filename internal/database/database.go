package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// Names of the triggers that enforce storage-level invariants. The creation
// protocol recognises a conflict by the first one.
const (
	overlapConstraint  = "no_overlapping_reservations"
	terminalConstraint = "reservation_status_terminal"
)

// Options tune the connection pool.
type Options struct {
	MaxOpenConns  int
	BusyTimeoutMS int
}

// DB is the persisted store for clients and reservations.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

// NewDB opens the SQLite database at path and creates the schema.
func NewDB(path string, opts Options, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 5
	}
	if opts.BusyTimeoutMS <= 0 {
		opts.BusyTimeoutMS = 5000
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// _txlock=immediate takes the write lock at BEGIN, so a transaction never
	// has to upgrade a stale read snapshot; writers queue behind busy_timeout.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=%d&_foreign_keys=on&_txlock=immediate",
		path, opts.BusyTimeoutMS)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{
		DB:     db,
		path:   path,
		logger: logger,
	}

	if err := instance.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,

		// Instants are UTC Unix nanoseconds so that ordering and overlap
		// comparisons are plain integer comparisons.
		`CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'confirmed',
			notes TEXT,
			created_at INTEGER NOT NULL,
			CHECK (start_time < end_time),
			CHECK (status IN ('confirmed', 'cancelled')),
			FOREIGN KEY (client_id) REFERENCES clients(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_status_time ON reservations(status, start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_client ON reservations(client_id, start_time)`,

		// Exclusion constraint over (interval, status = confirmed).
		`CREATE TRIGGER IF NOT EXISTS ` + overlapConstraint + `_insert
		BEFORE INSERT ON reservations
		WHEN NEW.status = 'confirmed'
		BEGIN
			SELECT RAISE(ABORT, '` + overlapConstraint + `')
			WHERE EXISTS (
				SELECT 1 FROM reservations
				WHERE status = 'confirmed'
				AND start_time < NEW.end_time
				AND NEW.start_time < end_time
			);
		END`,

		`CREATE TRIGGER IF NOT EXISTS ` + overlapConstraint + `_update
		BEFORE UPDATE OF status, start_time, end_time ON reservations
		WHEN NEW.status = 'confirmed'
		BEGIN
			SELECT RAISE(ABORT, '` + overlapConstraint + `')
			WHERE EXISTS (
				SELECT 1 FROM reservations
				WHERE id <> NEW.id
				AND status = 'confirmed'
				AND start_time < NEW.end_time
				AND NEW.start_time < end_time
			);
		END`,

		`CREATE TRIGGER IF NOT EXISTS ` + terminalConstraint + `
		BEFORE UPDATE OF status ON reservations
		WHEN OLD.status = 'cancelled' AND NEW.status <> 'cancelled'
		BEGIN
			SELECT RAISE(ABORT, '` + terminalConstraint + `');
		END`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) Close() error {
	return db.DB.Close()
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
