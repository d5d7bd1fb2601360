// Package watch regenerates the sourcemap manifest whenever the script tree
// changes on disk. Every regeneration is a full re-walk; the watcher only
// decides when to run it.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a script root recursively and invokes a callback after a
// quiet period, batching editor save bursts into one regeneration.
type Watcher struct {
	root     string
	onChange func()
	logger   *slog.Logger
	debounce *debouncer
}

// debouncer delays the callback until events stop arriving
type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	delay    time.Duration
	callback func()
}

// New creates a watcher over the script root directory
func New(root string, delay time.Duration, onChange func(), logger *slog.Logger) *Watcher {
	return &Watcher{
		root:     root,
		onChange: onChange,
		logger:   logger,
		debounce: &debouncer{delay: delay},
	}
}

// Run regenerates once immediately, then watches until the context is
// cancelled. Directories created while watching are added to the watch set.
func (w *Watcher) Run(ctx context.Context) error {
	w.onChange()

	if _, err := os.Stat(w.root); err != nil {
		return fmt.Errorf("script root not watchable: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = fsw.Close()
	}()

	if err := w.addRecursive(fsw, w.root); err != nil {
		return err
	}
	w.logger.Info("watching script root", "path", w.root)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fsw, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			w.logger.Debug("script tree changed", "path", event.Name, "op", event.Op.String())
			w.debounce.trigger(w.onChange)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// addRecursive adds dir and all of its subdirectories to the watch set
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A directory may vanish between the event and the walk.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(path)
	})
}

// trigger schedules the callback to run after the debounce delay
func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		cb := d.callback
		d.mu.Unlock()

		if cb != nil {
			cb()
		}
	})
}
