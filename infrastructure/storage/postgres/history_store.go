package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/taskloop/domain/history"
)

// HistoryStore is a PostgreSQL-backed implementation of history.Store.
type HistoryStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewHistoryStore creates a history store on an existing pool.
func NewHistoryStore(pool *pgxpool.Pool, schema string) *HistoryStore {
	if schema == "" {
		schema = "public"
	}
	return &HistoryStore{pool: pool, schema: schema}
}

// Open connects with cfg, creates the sessions table and returns the store.
func Open(ctx context.Context, cfg Config, opts ...Option) (*HistoryStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := NewHistoryStore(pool, cfg.Schema)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *HistoryStore) tableName() string {
	return fmt.Sprintf("%s.sessions", s.schema)
}

// Migrate creates the sessions table if it does not exist.
func (s *HistoryStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NOT NULL,
			laps INTEGER NOT NULL,
			deliveries INTEGER NOT NULL,
			experience_gained BIGINT NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			duration_ns BIGINT NOT NULL
		)
	`, s.tableName()))
	return s.wrapError(err)
}

// Save persists a summary.
func (s *HistoryStore) Save(ctx context.Context, summary history.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := summary.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, started_at, ended_at, laps, deliveries, experience_gained, outcome, reason, duration_ns)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.tableName())

	_, err := s.pool.Exec(ctx, query,
		summary.ID,
		summary.StartedAt,
		summary.EndedAt,
		summary.Laps,
		summary.Deliveries,
		summary.ExperienceGained,
		summary.Outcome,
		summary.Reason,
		int64(summary.Duration),
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return history.ErrExists
		}
		return s.wrapError(err)
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

	query := fmt.Sprintf(`
		SELECT id, started_at, ended_at, laps, deliveries, experience_gained, outcome, reason, duration_ns
		FROM %s
		WHERE id = $1
	`, s.tableName())

	summary, err := scanSummary(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return history.Summary{}, history.ErrNotFound
		}
		return history.Summary{}, s.wrapError(err)
	}
	return summary, nil
}

// List returns the most recent summaries first.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]history.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, started_at, ended_at, laps, deliveries, experience_gained, outcome, reason, duration_ns
		FROM %s
		ORDER BY ended_at DESC, id ASC
	`, s.tableName())
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	var out []history.Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, s.wrapError(err)
		}
		out = append(out, summary)
	}
	return out, s.wrapError(rows.Err())
}

// Close closes the pool.
func (s *HistoryStore) Close() {
	s.pool.Close()
}

func scanSummary(row pgx.Row) (history.Summary, error) {
	var (
		summary  history.Summary
		duration int64
	)
	err := row.Scan(
		&summary.ID,
		&summary.StartedAt,
		&summary.EndedAt,
		&summary.Laps,
		&summary.Deliveries,
		&summary.ExperienceGained,
		&summary.Outcome,
		&summary.Reason,
		&duration,
	)
	summary.Duration = time.Duration(duration)
	return summary, err
}

// wrapError wraps database errors with the connection error.
func (s *HistoryStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return errors.Join(ErrConnectionFailed, err)
}

var _ history.Store = (*HistoryStore)(nil)
