package catalog

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conveyor-designer/backend/internal/models"
)

// DefaultDebounce groups the write bursts editors produce on save.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reloads the catalog service when its file changes on disk.
// Editors usually replace the file (write to temp, rename over), which
// drops a watch on the file itself, so the parent directory is watched
// and events are matched by name.
type Watcher struct {
	service  *Service
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onReload func(*models.Catalog)
	done     chan struct{}
}

// NewWatcher creates a watcher for the service's catalog file. onReload
// fires after every successful reload and may be nil.
func NewWatcher(service *Service, debounce time.Duration, onReload func(*models.Catalog)) (*Watcher, error) {
	if service.Path() == "" {
		return nil, fmt.Errorf("no catalog file configured")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		service:  service,
		fsw:      fsw,
		debounce: debounce,
		onReload: onReload,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. It returns after the watch is registered; the
// reload loop runs in the background until Close.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.service.Path())
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	fmt.Printf("[Catalog] Watching %s for changes\n", w.service.Path())
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	target := filepath.Base(w.service.Path())
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.service.Reload(); err != nil {
				fmt.Printf("[Catalog] Reload failed, keeping previous: %v\n", err)
				continue
			}
			if w.onReload != nil {
				w.onReload(w.service.Catalog())
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			fmt.Printf("[Catalog] Watch error: %v\n", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
