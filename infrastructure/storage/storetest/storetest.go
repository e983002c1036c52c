// Package storetest holds the behavior every history.Store must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/taskloop/domain/history"
)

// Summary returns a valid summary that ended offset after a fixed start.
func Summary(id string, offset time.Duration) history.Summary {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return history.Summary{
		ID:               id,
		StartedAt:        start,
		EndedAt:          start.Add(offset),
		Laps:             3,
		Deliveries:       75,
		ExperienceGained: 12500,
		Outcome:          "stopped",
		Reason:           "stop requested",
		Duration:         offset,
	}
}

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) history.Store) {
	t.Helper()

	t.Run("save and get", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		want := Summary("s-1", time.Hour)
		if err := store.Save(ctx, want); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := store.Get(ctx, "s-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.ID != want.ID || got.Laps != want.Laps || got.Deliveries != want.Deliveries {
			t.Errorf("Get() = %+v, want %+v", got, want)
		}
		if got.ExperienceGained != want.ExperienceGained || got.Outcome != want.Outcome || got.Reason != want.Reason {
			t.Errorf("Get() = %+v, want %+v", got, want)
		}
		if !got.StartedAt.Equal(want.StartedAt) || !got.EndedAt.Equal(want.EndedAt) {
			t.Errorf("times = %v..%v, want %v..%v", got.StartedAt, got.EndedAt, want.StartedAt, want.EndedAt)
		}
		if got.Duration != want.Duration {
			t.Errorf("Duration = %v, want %v", got.Duration, want.Duration)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		if err := store.Save(ctx, Summary("dup", time.Minute)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := store.Save(ctx, Summary("dup", time.Hour)); !errors.Is(err, history.ErrExists) {
			t.Errorf("second Save() error = %v, want ErrExists", err)
		}
	})

	t.Run("invalid summary", func(t *testing.T) {
		store := newStore(t)
		if err := store.Save(context.Background(), history.Summary{}); !errors.Is(err, history.ErrInvalidID) {
			t.Errorf("Save() error = %v, want ErrInvalidID", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, history.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
		if _, err := store.Get(context.Background(), ""); !errors.Is(err, history.ErrInvalidID) {
			t.Errorf("Get(\"\") error = %v, want ErrInvalidID", err)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		saved := []struct {
			id     string
			offset time.Duration
		}{
			{"first", time.Minute},
			{"third", 3 * time.Minute},
			{"second", 2 * time.Minute},
		}
		for _, s := range saved {
			if err := store.Save(ctx, Summary(s.id, s.offset)); err != nil {
				t.Fatalf("Save(%s) error = %v", s.id, err)
			}
		}

		all, err := store.List(ctx, 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		want := []string{"third", "second", "first"}
		if len(all) != len(want) {
			t.Fatalf("List() returned %d summaries, want %d", len(all), len(want))
		}
		for i, id := range want {
			if all[i].ID != id {
				t.Errorf("List()[%d] = %s, want %s", i, all[i].ID, id)
			}
		}

		limited, err := store.List(ctx, 2)
		if err != nil {
			t.Fatalf("List(2) error = %v", err)
		}
		if len(limited) != 2 || limited[0].ID != "third" {
			t.Errorf("List(2) = %v", limited)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := store.Save(ctx, Summary("c", time.Minute)); !errors.Is(err, context.Canceled) {
			t.Errorf("Save() error = %v, want context.Canceled", err)
		}
	})
}
