// Package history provides the domain model for finished session summaries.
package history

import (
	"context"
	"sort"
	"time"
)

// Summary describes one finished session.
type Summary struct {
	ID               string        `json:"id"`
	StartedAt        time.Time     `json:"started_at"`
	EndedAt          time.Time     `json:"ended_at"`
	Laps             int           `json:"laps"`
	Deliveries       int           `json:"deliveries"`
	ExperienceGained int64         `json:"experience_gained"`
	Outcome          string        `json:"outcome"`
	Reason           string        `json:"reason,omitempty"`
	Duration         time.Duration `json:"duration"`
}

// Validate checks the summary can be stored.
func (s Summary) Validate() error {
	if s.ID == "" {
		return ErrInvalidID
	}
	if s.EndedAt.Before(s.StartedAt) {
		return ErrInvalidTimes
	}
	return nil
}

// Store persists session summaries.
// Implementations may be in-memory, SQLite, Redis, or any other backend.
type Store interface {
	// Save persists a summary. Saving an existing ID returns ErrExists.
	Save(ctx context.Context, s Summary) error

	// Get retrieves a summary by ID.
	Get(ctx context.Context, id string) (Summary, error)

	// List returns the most recent summaries first. Zero limit means all.
	List(ctx context.Context, limit int) ([]Summary, error)
}

// SortRecent orders summaries by end time, newest first. Ties are broken by ID
// so listings are stable.
func SortRecent(s []Summary) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].EndedAt.Equal(s[j].EndedAt) {
			return s[i].EndedAt.After(s[j].EndedAt)
		}
		return s[i].ID < s[j].ID
	})
}
