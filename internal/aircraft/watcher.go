package aircraft

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultReloadDebounce = 250 * time.Millisecond

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce is how long the directory must stay quiet before a reload.
	Debounce time.Duration

	// OnReload is called after every successful reload.
	OnReload func(profiles []*Profile)

	Logger Logger
}

// Watcher reloads a Registry when profile files in a directory change.
type Watcher struct {
	fs       *fsnotify.Watcher
	registry *Registry
	dir      string
	debounce time.Duration
	onReload func([]*Profile)
	logger   Logger
}

// NewWatcher starts watching dir. Call Run to process events.
func NewWatcher(registry *Registry, dir string, opts WatcherOptions) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fs watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	w := &Watcher{
		fs:       fw,
		registry: registry,
		dir:      dir,
		debounce: opts.Debounce,
		onReload: opts.OnReload,
		logger:   opts.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = defaultReloadDebounce
	}
	if w.logger == nil {
		w.logger = noopLogger{}
	}
	return w, nil
}

// Run processes file events until ctx is cancelled. Bursts of events are
// collapsed into one reload.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close() //nolint:errcheck // shutdown

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !isProfileFile(filepath.Base(event.Name)) || event.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("profile change", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("profile watcher error", "error", err)

		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	if err := w.registry.Reload(); err != nil {
		w.logger.Error("profile reload failed, keeping previous set", "dir", w.dir, "error", err)
		return
	}
	if w.onReload != nil {
		w.onReload(w.registry.List())
	}
}
