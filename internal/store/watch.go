package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher follows writes to a File made by other processes and turns them
// into change notifications for this process's subscribers.
type Watcher struct {
	file     *File
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for f. Bursts of file events closer together
// than debounce are collapsed into one reload.
func NewWatcher(f *File, debounce time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{file: f, debounce: debounce, logger: logger}
}

// Run watches until ctx is cancelled. The directory is watched rather than
// the file because atomic replacement swaps the inode on every write.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.file.Path())
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	name := filepath.Clean(w.file.Path())

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("store watcher error", "error", err)
		case <-timer.C:
			if err := w.file.Reload(); err != nil {
				w.logger.Warn("reload store", "path", name, "error", err)
			}
		}
	}
}
