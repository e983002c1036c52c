// Package memory provides in-memory implementations of storage interfaces.
package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/taskloop/domain/history"
)

// HistoryStore is an in-memory implementation of history.Store.
type HistoryStore struct {
	summaries map[string]history.Summary
	mu        sync.RWMutex
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		summaries: make(map[string]history.Summary),
	}
}

// Save persists a summary.
func (s *HistoryStore) Save(ctx context.Context, summary history.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := summary.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.summaries[summary.ID]; exists {
		return history.ErrExists
	}
	s.summaries[summary.ID] = summary
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

	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.summaries[id]
	if !ok {
		return history.Summary{}, history.ErrNotFound
	}
	return summary, nil
}

// List returns the most recent summaries first.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]history.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]history.Summary, 0, len(s.summaries))
	for _, summary := range s.summaries {
		out = append(out, summary)
	}
	s.mu.RUnlock()

	history.SortRecent(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored summaries.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.summaries)
}

var _ history.Store = (*HistoryStore)(nil)
