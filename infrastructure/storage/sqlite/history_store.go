package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/felixgeelhaar/taskloop/domain/history"
)

// HistoryStore is a SQLite-backed implementation of history.Store.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a new SQLite history store.
func NewHistoryStore(cfg Config, opts ...Option) (*HistoryStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &HistoryStore{db: db}
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewHistoryStoreFromDB creates a history store from an existing database connection.
func NewHistoryStoreFromDB(db *sql.DB) (*HistoryStore, error) {
	s := &HistoryStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *HistoryStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL,
			laps INTEGER NOT NULL,
			deliveries INTEGER NOT NULL,
			experience_gained INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			duration INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Save persists a summary.
func (s *HistoryStore) Save(ctx context.Context, summary history.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := summary.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, ended_at, laps, deliveries, experience_gained, outcome, reason, duration)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID, summary.StartedAt.UnixNano(), summary.EndedAt.UnixNano(),
		summary.Laps, summary.Deliveries, summary.ExperienceGained,
		summary.Outcome, summary.Reason, int64(summary.Duration),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return history.ErrExists
		}
		return err
	}
	return nil
}

// Get retrieves a summary by ID.
func (s *HistoryStore) Get(ctx context.Context, id string) (history.Summary, error) {
	if err := ctx.Err(); err != nil {
		return history.Summary{}, err
	}
	if id == "" {
		return history.Summary{}, history.ErrInvalidID
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, ended_at, laps, deliveries, experience_gained, outcome, reason, duration
		 FROM sessions WHERE id = ?`, id)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Summary{}, history.ErrNotFound
	}
	return summary, err
}

// List returns the most recent summaries first.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]history.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := `SELECT id, started_at, ended_at, laps, deliveries, experience_gained, outcome, reason, duration
		FROM sessions ORDER BY ended_at DESC, id ASC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []history.Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (history.Summary, error) {
	var (
		summary        history.Summary
		started, ended int64
		duration       int64
	)
	err := row.Scan(&summary.ID, &started, &ended, &summary.Laps, &summary.Deliveries,
		&summary.ExperienceGained, &summary.Outcome, &summary.Reason, &duration)
	if err != nil {
		return history.Summary{}, err
	}
	summary.StartedAt = time.Unix(0, started).UTC()
	summary.EndedAt = time.Unix(0, ended).UTC()
	summary.Duration = time.Duration(duration)
	return summary, nil
}

// isUniqueViolation checks if the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ history.Store = (*HistoryStore)(nil)
