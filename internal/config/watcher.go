package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"foodbridge/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the config file and reloads it on change, so theme and
// page-size edits take effect in a running dashboard without a restart.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	onChange func(*Config)

	lastEvent   time.Time
	debounceDur time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for the config file at path. onChange is
// called with the freshly loaded config after edits settle; it runs on the
// watcher goroutine, so callers that feed a UI should forward the value
// through their own event loop.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		path:        path,
		onChange:    onChange,
		debounceDur: 300 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; events are handled on a goroutine.
// Watches the parent directory: editors replace files on save, which would
// drop a watch on the file itself.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var pending bool

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.lastEvent = time.Now()
			w.mu.Unlock()
			pending = true

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.BootError("config watcher: %v", err)

		case <-ticker.C:
			if !pending {
				continue
			}
			w.mu.Lock()
			settled := time.Since(w.lastEvent) >= w.debounceDur
			w.mu.Unlock()
			if !settled {
				continue
			}
			pending = false

			cfg, err := Load(w.path)
			if err != nil {
				logging.BootError("config reload failed: %v", err)
				continue
			}
			if err := cfg.Validate(); err != nil {
				logging.BootError("config reload rejected: %v", err)
				continue
			}
			logging.Boot("config reloaded from %s", w.path)
			w.onChange(cfg)
		}
	}
}
