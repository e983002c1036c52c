package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/taskloop/domain/history"
)

// HistoryStore is a BadgerDB-backed implementation of history.Store.
type HistoryStore struct {
	db        *badger.DB
	keyPrefix string
}

// NewHistoryStore opens a database and creates a history store.
func NewHistoryStore(cfg Config, opts ...Option) (*HistoryStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewHistoryStoreFromDB(db, cfg.KeyPrefix), nil
}

// NewHistoryStoreFromDB creates a history store from an existing database.
func NewHistoryStoreFromDB(db *badger.DB, keyPrefix string) *HistoryStore {
	return &HistoryStore{db: db, keyPrefix: keyPrefix}
}

// Key format: prefix:session:id
func (s *HistoryStore) summaryKey(id string) []byte {
	return []byte(s.keyPrefix + "session:" + id)
}

func (s *HistoryStore) scanPrefix() []byte {
	return []byte(s.keyPrefix + "session:")
}

// Save persists a summary.
func (s *HistoryStore) Save(ctx context.Context, summary history.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := summary.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	key := s.summaryKey(summary.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return history.ErrExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

// Get retrieves a summary by ID.
func (s *HistoryStore) Get(ctx context.Context, id string) (history.Summary, error) {
	if err := ctx.Err(); err != nil {
		return history.Summary{}, err
	}
	if id == "" {
		return history.Summary{}, history.ErrInvalidID
	}

	var summary history.Summary
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.summaryKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return history.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &summary)
		})
	})
	if err != nil {
		return history.Summary{}, err
	}
	return summary, nil
}

// List returns the most recent summaries first.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]history.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []history.Summary
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := s.scanPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var summary history.Summary
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &summary)
			}); err != nil {
				return err
			}
			out = append(out, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	history.SortRecent(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

var _ history.Store = (*HistoryStore)(nil)
