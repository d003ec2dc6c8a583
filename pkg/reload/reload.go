// Package reload re-reads a configuration file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself so editors
// that save by renaming a temp file over the original keep triggering
// reloads. Bursts of events (truncate then write) are coalesced into one
// load after a short quiet period.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultQuiet is how long the file must stay untouched before it is loaded.
const DefaultQuiet = 100 * time.Millisecond

// Watch calls load(path) after every change to path and passes the result to
// onChange. A failed load is logged and the previous value stays in effect.
// Watch blocks until ctx is cancelled.
func Watch[T any](ctx context.Context, path string, load func(string) (T, error), onChange func(T)) error {
	return WatchQuiet(ctx, path, DefaultQuiet, load, onChange)
}

// WatchQuiet is Watch with an explicit quiet period.
func WatchQuiet[T any](ctx context.Context, path string, quiet time.Duration, load func(string) (T, error), onChange func(T)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("reload: resolve %q: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("reload: new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("reload: watch %q: %w", filepath.Dir(abs), err)
	}
	slog.Info("reload: watching for changes", "path", abs)

	timer := time.NewTimer(quiet)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(quiet)

		case <-timer.C:
			v, err := load(abs)
			if err != nil {
				slog.Error("reload: keeping previous config", "path", abs, "err", err)
				continue
			}
			slog.Info("reload: config reloaded", "path", abs)
			onChange(v)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("reload: watcher error", "err", err)
		}
	}
}
