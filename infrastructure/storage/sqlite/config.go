// Package sqlite stores session summaries in a SQLite file.
package sqlite

import (
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

// Config configures the SQLite history store.
type Config struct {
	// Path is the database file.
	Path string

	// JournalMode is passed as _journal_mode; WAL lets history readers run
	// while a session saves.
	JournalMode string

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration

	MaxOpenConns    int
	ConnMaxLifetime time.Duration

	// AutoMigrate creates the sessions table on open.
	AutoMigrate bool
}

// Option configures the SQLite history store.
type Option func(*Config)

// WithPath sets the database file.
func WithPath(path string) Option {
	return func(c *Config) {
		c.Path = path
	}
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		Path:            "taskloop.db",
		JournalMode:     "WAL",
		BusyTimeout:     5 * time.Second,
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
	}
}

var (
	ErrConnectionFailed = errors.New("sqlite: connection failed")
	ErrMigrationFailed  = errors.New("sqlite: migration failed")
)

// DSN returns the go-sqlite3 data source name for cfg.
func (c Config) DSN() string {
	q := url.Values{}
	q.Set("mode", "rwc")
	if c.JournalMode != "" {
		q.Set("_journal_mode", c.JournalMode)
	}
	if c.BusyTimeout > 0 {
		q.Set("_busy_timeout", strconv.FormatInt(c.BusyTimeout.Milliseconds(), 10))
	}
	return "file:" + c.Path + "?" + q.Encode()
}

func openDB(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", cfg.DSN())
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return db, nil
}
