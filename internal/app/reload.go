package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ErrBinaryUpdated is returned by BinaryWatcher.Run once the watched
// executable is newer than it was at start.
var ErrBinaryUpdated = errors.New("executable updated")

// BinaryWatcher polls an executable's modification time so a long-running
// service can restart itself after a rebuild.
type BinaryWatcher struct {
	path     string
	baseline time.Time
	interval time.Duration
	logger   *slog.Logger
}

// NewBinaryWatcher watches path, or the running executable when path is
// empty. Symlinks are resolved so a rebuilt target is noticed.
func NewBinaryWatcher(path string, interval time.Duration, logger *slog.Logger) (*BinaryWatcher, error) {
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		path = exe
	}
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &BinaryWatcher{path: path, baseline: info.ModTime(), interval: interval, logger: logger}, nil
}

// Path is the watched file.
func (w *BinaryWatcher) Path() string { return w.path }

// Updated reports whether the file changed since the baseline.
func (w *BinaryWatcher) Updated() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		// Mid-rebuild the file may be missing for a moment.
		return false
	}
	return info.ModTime().After(w.baseline)
}

// Run polls until the file changes, returning ErrBinaryUpdated, or until
// ctx ends, returning nil.
func (w *BinaryWatcher) Run(ctx context.Context) error {
	w.logger.Debug("watching executable", "path", w.path, "modified", w.baseline.Format(time.TimeOnly))
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if w.Updated() {
				w.logger.Info("newer executable detected", "path", w.path)
				return ErrBinaryUpdated
			}
		}
	}
}

// Reexec replaces the current process with path, keeping the arguments and
// environment. It only returns on failure.
func Reexec(path string) error {
	return syscall.Exec(path, os.Args, os.Environ())
}
