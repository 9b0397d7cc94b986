// Package watch triggers a callback when a database file changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when no debounce interval is configured.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a database file, and its -wal and -journal companions,
// for changes.
type Watcher struct {
	files    map[string]struct{}
	callback func(ctx context.Context) error
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewWatcher creates a new file watcher. callback runs once per burst of
// writes, after debounce has passed without further events.
func NewWatcher(file string, debounce time.Duration, logger *slog.Logger, callback func(ctx context.Context) error) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	absPath, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory so files replaced by rename are still seen.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		files: map[string]struct{}{
			absPath:              {},
			absPath + "-wal":     {},
			absPath + "-journal": {},
		},
		callback: callback,
		debounce: debounce,
		logger:   logger,
		watcher:  watcher,
		done:     make(chan struct{}),
	}, nil
}

// Start starts watching. The callback's context is cancelled by Stop.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer cancel()

		debounceTimer := time.NewTimer(w.debounce)
		debounceTimer.Stop()
		defer debounceTimer.Stop()
		var debounceCh <-chan time.Time

		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.relevant(event) {
					continue
				}
				// Debounce: reset timer on each event
				debounceTimer.Reset(w.debounce)
				debounceCh = debounceTimer.C

			case <-debounceCh:
				debounceCh = nil
				w.logger.Debug("database file changed")
				if err := w.callback(ctx); err != nil {
					w.logger.Warn("watch callback failed", "error", err)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watch error", "error", err)

			case <-ctx.Done():
				return

			case <-w.done:
				return
			}
		}
	}()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	eventPath, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[eventPath]
	return ok
}

// Stop stops watching and waits for a running callback to return.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
