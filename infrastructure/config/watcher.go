package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	domainconfig "github.com/felixgeelhaar/taskloop/domain/config"
	"github.com/felixgeelhaar/taskloop/domain/session"
	"github.com/felixgeelhaar/taskloop/infrastructure/logging"
)

// Watcher reloads a configuration file when it changes and emits the live
// toggles it contains. Only changed toggles are emitted; a file that fails to
// load keeps the previous toggles.
type Watcher struct {
	path   string
	loader *Loader
	last   session.Toggles
}

// NewWatcher creates a watcher for path. initial is the toggles the session
// started with.
func NewWatcher(path string, loader *Loader, initial session.Toggles) *Watcher {
	if loader == nil {
		loader = NewLoader()
	}
	return &Watcher{path: path, loader: loader, last: initial}
}

// Watch starts watching and returns a channel of toggle changes. The channel
// holds at most one pending value; a newer change replaces an unread one. It
// is closed when ctx is done.
func (w *Watcher) Watch(ctx context.Context) (<-chan session.Toggles, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainconfig.ErrWatchFailed, err)
	}
	// Editors often replace the file, so watch the directory.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("%w: %v", domainconfig.ErrWatchFailed, err)
	}

	out := make(chan session.Toggles, 1)
	go func() {
		defer close(out)
		defer fsw.Close()

		name := filepath.Clean(w.path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != name {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if toggles, changed := w.reload(); changed {
					offer(out, toggles)
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logging.Warn().
					Add(logging.Component("config")).
					Add(logging.ErrorField(err)).
					Msg("config watch error")
			}
		}
	}()

	return out, nil
}

func (w *Watcher) reload() (session.Toggles, bool) {
	cfg, err := w.loader.LoadFile(w.path)
	if err != nil {
		logging.Warn().
			Add(logging.Component("config")).
			Add(logging.Str("path", w.path)).
			Add(logging.ErrorField(err)).
			Msg("config reload failed, keeping previous options")
		return w.last, false
	}

	toggles := cfg.Toggles()
	if toggles == w.last {
		return toggles, false
	}
	w.last = toggles

	logging.Info().
		Add(logging.Component("config")).
		Add(logging.Bool("extended_carry", toggles.ExtendedCarry)).
		Add(logging.Bool("claim_offerings", toggles.ClaimOfferings)).
		Msg("session options changed")
	return toggles, true
}

// offer sends v, replacing any value the reader has not taken yet.
func offer(out chan session.Toggles, v session.Toggles) {
	for {
		select {
		case out <- v:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}
