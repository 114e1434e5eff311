package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Journal stores partition snapshots and notifications.
type Journal struct {
	db    *sql.DB
	clock *Clock
}

// Option configures Open.
type Option func(*config)

type config struct {
	busyTimeoutMS int
	synchronous   string
}

// WithBusyTimeout sets how long a writer waits on a locked database.
//
// Default: 5000ms.
func WithBusyTimeout(ms int) Option {
	return func(c *config) { c.busyTimeoutMS = ms }
}

// WithSynchronous sets the SQLite synchronous pragma ("OFF", "NORMAL",
// "FULL").
//
// Default: "NORMAL".
func WithSynchronous(mode string) Option {
	return func(c *config) { c.synchronous = mode }
}

// Open creates or opens a journal database at path. The clock resumes
// after the highest stored sequence number.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Journal, error) {
	cfg := config{busyTimeoutMS: 5000, synchronous: "NORMAL"}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, cfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	var last sql.NullInt64
	if err := db.QueryRow("SELECT MAX(seq) FROM notifications").Scan(&last); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal: read last seq: %w", err)
	}

	slog.Debug("journal opened",
		"path", path,
		"last_seq", last.Int64,
	)
	return &Journal{db: db, clock: NewClockAt(last.Int64)}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Seq returns the sequence number of the last appended entry.
func (j *Journal) Seq() int64 { return j.clock.Current() }

func applyPragmas(db *sql.DB, cfg config) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA synchronous = %s", cfg.synchronous),
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeoutMS),
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("journal schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// pragma returns the current value of a pragma. Used by tests.
func (j *Journal) pragma(name string) (string, error) {
	var value string
	if err := j.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	return value, nil
}
