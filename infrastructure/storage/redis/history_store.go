package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/taskloop/domain/history"
)

// ErrConnectionFailed indicates the Redis server could not be reached.
var ErrConnectionFailed = errors.New("redis: connection failed")

// HistoryStore is a Redis-backed implementation of history.Store. Each
// summary is a JSON string; a sorted set scored by end time indexes them.
type HistoryStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewHistoryStore connects to Redis and creates a history store.
func NewHistoryStore(cfg Config, opts ...ConfigOption) (*HistoryStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	clientOpts, err := cfg.clientOptions()
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}
	client := redis.NewClient(clientOpts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	return NewHistoryStoreFromClient(client, cfg.KeyPrefix), nil
}

// NewHistoryStoreFromClient creates a history store from an existing client.
func NewHistoryStoreFromClient(client *redis.Client, keyPrefix string) *HistoryStore {
	return &HistoryStore{client: client, keyPrefix: keyPrefix}
}

func (s *HistoryStore) summaryKey(id string) string {
	return s.keyPrefix + "session:" + id
}

func (s *HistoryStore) indexKey() string {
	return s.keyPrefix + "sessions"
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

	created, err := s.client.SetNX(ctx, s.summaryKey(summary.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return history.ErrExists
	}

	return s.client.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(summary.EndedAt.UnixNano()),
		Member: summary.ID,
	}).Err()
}

// Get retrieves a summary by ID.
func (s *HistoryStore) Get(ctx context.Context, id string) (history.Summary, error) {
	if err := ctx.Err(); err != nil {
		return history.Summary{}, err
	}
	if id == "" {
		return history.Summary{}, history.ErrInvalidID
	}

	data, err := s.client.Get(ctx, s.summaryKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return history.Summary{}, history.ErrNotFound
	}
	if err != nil {
		return history.Summary{}, err
	}
	return decode(data)
}

// List returns the most recent summaries first.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]history.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.summaryKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]history.Summary, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			// Index entry without a value.
			continue
		}
		summary, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	history.SortRecent(out)
	return out, nil
}

// Close closes the client.
func (s *HistoryStore) Close() error {
	return s.client.Close()
}

func decode(data []byte) (history.Summary, error) {
	var summary history.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return history.Summary{}, fmt.Errorf("unmarshal summary: %w", err)
	}
	return summary, nil
}

var _ history.Store = (*HistoryStore)(nil)
