package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"screenshot-pro/internal/capture"
)

// ErrNoSource is returned by DesktopHost when no capture source is set.
var ErrNoSource = errors.New("no capture source")

// Launcher opens a window described by spec.
type Launcher func(ctx context.Context, spec WindowSpec) error

// DesktopHost runs the service outside a browser: captures come from a
// capture.Source, the "active tab" is fixed, and windows are opened by a
// Launcher.
type DesktopHost struct {
	Source capture.Source
	Tab    capture.Tab
	Screen WindowBounds
	Launch Launcher
	Logger *slog.Logger

	mu         sync.Mutex
	lastWindow int
}

var _ Host = (*DesktopHost)(nil)

func (h *DesktopHost) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// ActiveTab returns the configured tab. ok is false when it has no URL.
func (h *DesktopHost) ActiveTab(context.Context) (capture.Tab, bool, error) {
	return h.Tab, h.Tab.URL != "", nil
}

// CaptureVisibleTab reads the capture source.
func (h *DesktopHost) CaptureVisibleTab(ctx context.Context, _ int) (image.Image, error) {
	if h.Source == nil {
		return nil, ErrNoSource
	}
	return h.Source.CaptureVisibleRegion(ctx)
}

// CurrentWindow returns the screen bounds.
func (h *DesktopHost) CurrentWindow(context.Context) (WindowBounds, error) {
	return h.Screen, nil
}

// CreateWindow hands spec to the launcher and returns a fresh window id.
func (h *DesktopHost) CreateWindow(ctx context.Context, spec WindowSpec) (int, error) {
	if h.Launch != nil {
		if err := h.Launch(ctx, spec); err != nil {
			return 0, err
		}
	}
	h.mu.Lock()
	h.lastWindow++
	id := h.lastWindow
	h.mu.Unlock()
	h.logger().Info("window opened", "window", id, "url", spec.URL, "bounds", spec.Bounds)
	return id, nil
}

// OpenSidePanel only logs; the desktop has no side panel.
func (h *DesktopHost) OpenSidePanel(_ context.Context, tabID int) error {
	h.logger().Info("side panel requested", "tab", tabID)
	return nil
}

// AnnotationID extracts the screenshot id from an AnnotationURL.
func AnnotationID(pageURL string) (int64, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(u.Query().Get("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ExecLauncher starts this executable with args built from the screenshot id
// of an annotation window, e.g. "annotate <id>". The child is not waited on.
func ExecLauncher(args func(id int64) []string, logger *slog.Logger) Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, spec WindowSpec) error {
		id, ok := AnnotationID(spec.URL)
		if !ok {
			return fmt.Errorf("unsupported window %q", spec.URL)
		}
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
		cmd := exec.Command(self, args(id)...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start annotator: %w", err)
		}
		go func() {
			if err := cmd.Wait(); err != nil {
				logger.Warn("annotator exited", "screenshot", id, "error", err)
			}
		}()
		return nil
	}
}
