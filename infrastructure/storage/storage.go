// Package storage opens the session history store a configuration names.
package storage

import (
	"context"
	"errors"
	"fmt"

	domainconfig "github.com/felixgeelhaar/taskloop/domain/config"
	"github.com/felixgeelhaar/taskloop/domain/history"
	"github.com/felixgeelhaar/taskloop/infrastructure/storage/badger"
	"github.com/felixgeelhaar/taskloop/infrastructure/storage/dynamodb"
	"github.com/felixgeelhaar/taskloop/infrastructure/storage/memory"
	"github.com/felixgeelhaar/taskloop/infrastructure/storage/mongodb"
	"github.com/felixgeelhaar/taskloop/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/taskloop/infrastructure/storage/redis"
	"github.com/felixgeelhaar/taskloop/infrastructure/storage/sqlite"
)

// Drivers lists the supported history store drivers.
var Drivers = []string{"memory", "sqlite", "redis", "postgres", "badger", "mongodb", "dynamodb"}

// ErrUnknownDriver is returned for a driver not in Drivers.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Store is a history store that holds resources until closed.
type Store struct {
	history.Store
	close func() error
}

// Close releases the store's connections.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open opens the store cfg selects. An empty driver means memory.
func Open(ctx context.Context, cfg domainconfig.StorageConfig) (*Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return &Store{Store: memory.NewHistoryStore()}, nil

	case "sqlite":
		s, err := sqlite.NewHistoryStore(sqlite.DefaultConfig(), sqlite.WithPath(cfg.DSN))
		if err != nil {
			return nil, err
		}
		return &Store{Store: s, close: s.Close}, nil

	case "redis":
		s, err := redis.NewHistoryStore(redis.DefaultConfig(), redis.WithDSN(cfg.DSN))
		if err != nil {
			return nil, err
		}
		return &Store{Store: s, close: s.Close}, nil

	case "postgres":
		s, err := postgres.Open(ctx, postgres.DefaultConfig(), postgres.WithDSN(cfg.DSN))
		if err != nil {
			return nil, err
		}
		return &Store{Store: s, close: func() error { s.Close(); return nil }}, nil

	case "badger":
		s, err := badger.NewHistoryStore(badger.DefaultConfig(), badger.WithDir(cfg.DSN))
		if err != nil {
			return nil, err
		}
		return &Store{Store: s, close: s.Close}, nil

	case "mongodb":
		client, err := mongodb.Connect(ctx, mongodb.DefaultConfig(), mongodb.WithURI(cfg.DSN))
		if err != nil {
			return nil, err
		}
		s := mongodb.NewHistoryStore(client, "")
		return &Store{Store: s, close: func() error { return client.Close(context.Background()) }}, nil

	case "dynamodb":
		dcfg := dynamodb.DefaultConfig()
		if cfg.DSN != "" {
			dcfg.TableName = cfg.DSN
		}
		client, err := dynamodb.NewClient(ctx, dcfg)
		if err != nil {
			return nil, err
		}
		if err := dynamodb.CreateTable(ctx, client, dcfg.TableName); err != nil {
			return nil, err
		}
		return &Store{Store: dynamodb.NewHistoryStore(client, dcfg)}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}
