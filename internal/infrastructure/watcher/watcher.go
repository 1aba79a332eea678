package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/weightandsee/core/internal/infrastructure/logger"
)

// Reloader re-reads the document when the file no longer matches what the
// store last wrote or read.
type Reloader interface {
	ReloadIfChanged(ctx context.Context) (bool, error)
}

// DocumentWatcher reloads the store after the document is edited outside
// the process. It watches the containing directory because atomic saves
// replace the file by rename.
type DocumentWatcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	reloader    Reloader
	logger      *logger.Logger
	dir         string
	base        string
	debounceDur time.Duration
	pendingAt   time.Time
	pending     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Reloads       int
	Skipped       int
	Errors        int
	LastEventTime time.Time
	LastEventType string
}

// New creates a watcher for the document at path.
func New(path string, reloader Reloader, debounce time.Duration, log *logger.Logger) (*DocumentWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	return &DocumentWatcher{
		watcher:     w,
		reloader:    reloader,
		logger:      log.WithComponent("watcher"),
		dir:         filepath.Dir(path),
		base:        filepath.Base(path),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It does not block.
func (dw *DocumentWatcher) Start(ctx context.Context) error {
	dw.mu.Lock()
	if dw.running {
		dw.mu.Unlock()
		return nil
	}
	dw.running = true
	dw.mu.Unlock()

	if err := os.MkdirAll(dw.dir, 0o755); err != nil {
		dw.logger.Warnw("Failed to create data dir", "dir", dw.dir, "error", err)
	}

	if err := dw.watcher.Add(dw.dir); err != nil {
		dw.mu.Lock()
		dw.running = false
		dw.mu.Unlock()
		return err
	}
	dw.logger.Infow("Watching document", "dir", dw.dir, "file", dw.base)

	go dw.run(ctx)

	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (dw *DocumentWatcher) Stop() {
	dw.mu.Lock()
	if !dw.running {
		dw.mu.Unlock()
		return
	}
	dw.running = false
	dw.mu.Unlock()

	close(dw.stopCh)
	<-dw.doneCh

	if err := dw.watcher.Close(); err != nil {
		dw.logger.Errorw("Error closing watcher", "error", err)
	}
	dw.logger.Debugw("Watcher stopped")
}

func (dw *DocumentWatcher) run(ctx context.Context) {
	defer close(dw.doneCh)

	tick := dw.debounceDur / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-dw.stopCh:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			dw.handleEvent(event)

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.logger.Errorw("Watcher error", "error", err)
			dw.mu.Lock()
			dw.stats.Errors++
			dw.mu.Unlock()

		case <-ticker.C:
			dw.processPending(ctx)
		}
	}
}

func (dw *DocumentWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != dw.base {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return
	}

	dw.mu.Lock()
	dw.stats.Events++
	dw.stats.LastEventTime = time.Now()
	dw.stats.LastEventType = eventType
	dw.pending = true
	dw.pendingAt = time.Now()
	dw.mu.Unlock()
}

func (dw *DocumentWatcher) processPending(ctx context.Context) {
	dw.mu.Lock()
	if !dw.pending || time.Since(dw.pendingAt) < dw.debounceDur {
		dw.mu.Unlock()
		return
	}
	dw.pending = false
	dw.mu.Unlock()

	reloaded, err := dw.reloader.ReloadIfChanged(ctx)

	dw.mu.Lock()
	defer dw.mu.Unlock()
	switch {
	case err != nil:
		dw.stats.Errors++
		dw.logger.Warnw("Reload after external edit failed", "error", err)
	case reloaded:
		dw.stats.Reloads++
		dw.logger.Infow("Document changed on disk, reloaded", "file", dw.base)
	default:
		dw.stats.Skipped++
	}
}

// Stats returns a snapshot of the watcher counters.
func (dw *DocumentWatcher) Stats() Stats {
	dw.mu.RLock()
	defer dw.mu.RUnlock()
	return dw.stats
}

// IsWatching reports whether the event loop is running.
func (dw *DocumentWatcher) IsWatching() bool {
	dw.mu.RLock()
	defer dw.mu.RUnlock()
	return dw.running
}
