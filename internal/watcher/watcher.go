// Package watcher reports changes to files in a directory.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher watches a directory and calls onChange once matching files settle
type Watcher struct {
	dir      string
	exts     map[string]bool
	onChange func()
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a watcher for dir. Only files with one of exts trigger
// onChange; no exts means every file does.
func New(dir string, onChange func(), exts ...string) *Watcher {
	w := &Watcher{
		dir:      dir,
		exts:     make(map[string]bool, len(exts)),
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   slog.Default(),
	}
	for _, ext := range exts {
		w.exts[strings.ToLower(ext)] = true
	}
	return w
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// WithLogger sets the logger
func (w *Watcher) WithLogger(logger *slog.Logger) *Watcher {
	if logger != nil {
		w.logger = logger
	}
	return w
}

func (w *Watcher) matches(name string) bool {
	if len(w.exts) == 0 {
		return true
	}
	return w.exts[strings.ToLower(filepath.Ext(name))]
}

// Watch blocks until ctx is cancelled or the watch fails. Editors that
// replace files show up as create or rename events, so those count as changes.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("watching for changes", "dir", w.dir)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&changeOps == 0 || !w.matches(event.Name) {
				continue
			}
			w.logger.Debug("file event", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			w.logger.Info("files changed", "dir", w.dir)
			w.onChange()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "dir", w.dir, "error", err)

		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		}
	}
}
