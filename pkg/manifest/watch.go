package manifest

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last write before
// reloading.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a local manifest whenever its file changes.
type Watcher struct {
	path     string
	onChange func(*Manifest, error)
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for path. onChange receives every reload,
// including ones that fail to parse.
func NewWatcher(path string, onChange func(*Manifest, error)) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   slog.Default().With("component", "manifest.watcher"),
	}
}

// WithDebounce sets the debounce duration.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// WithLogger sets the watcher's logger.
func (w *Watcher) WithLogger(logger *slog.Logger) *Watcher {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// Watch blocks until ctx ends. The containing directory is watched so that
// editors that replace the file on save are followed.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	name := filepath.Base(w.path)
	if err := fw.Add(dir); err != nil {
		return err
	}
	w.logger.Debug("watching manifest", "path", w.path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		m, err := LoadFile(w.path)
		if err != nil {
			w.logger.Warn("manifest reload failed", "path", w.path, "error", err)
		} else {
			w.logger.Info("manifest reloaded", "path", w.path, "routes", len(m.Routes))
		}
		w.onChange(m, err)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, reload)
			mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
