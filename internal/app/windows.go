package app

import (
	"context"
	"fmt"
	"image"
	"math"

	"screenshot-pro/internal/capture"
)

// Annotation window size.
const (
	AnnotationWindowWidth  = 1200
	AnnotationWindowHeight = 800
)

// WindowBounds is a window rectangle in screen pixels.
type WindowBounds struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowSpec describes a window to create.
type WindowSpec struct {
	URL     string
	Popup   bool
	Bounds  WindowBounds
	Focused bool
}

// WindowHandle identifies an opened annotation surface.
type WindowHandle struct {
	WindowID     int
	ScreenshotID int64
}

// Host is the platform the background service runs in: it owns tabs,
// windows and the side panel.
type Host interface {
	ActiveTab(ctx context.Context) (tab capture.Tab, ok bool, err error)
	CaptureVisibleTab(ctx context.Context, windowID int) (image.Image, error)
	CurrentWindow(ctx context.Context) (WindowBounds, error)
	CreateWindow(ctx context.Context, spec WindowSpec) (windowID int, err error)
	OpenSidePanel(ctx context.Context, tabID int) error
}

// WindowManager opens the annotation surface and the side panel.
type WindowManager struct {
	host Host
}

// NewWindowManager wraps host.
func NewWindowManager(host Host) *WindowManager {
	return &WindowManager{host: host}
}

// AnnotationURL is the page the annotation surface loads for screenshot id.
func AnnotationURL(id int64) string {
	return fmt.Sprintf("public/annotation.html?id=%d", id)
}

// CenteredBounds places a w×h window over the middle of current.
func CenteredBounds(current WindowBounds, w, h int) WindowBounds {
	return WindowBounds{
		Left:   roundHalfUp(float64(current.Width-w)/2 + float64(current.Left)),
		Top:    roundHalfUp(float64(current.Height-h)/2 + float64(current.Top)),
		Width:  w,
		Height: h,
	}
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// OpenAnnotationSurface opens a focused popup editing screenshot id, centered
// on the current window.
func (m *WindowManager) OpenAnnotationSurface(ctx context.Context, id int64) (WindowHandle, error) {
	current, err := m.host.CurrentWindow(ctx)
	if err != nil {
		return WindowHandle{}, fmt.Errorf("current window: %w", err)
	}
	windowID, err := m.host.CreateWindow(ctx, WindowSpec{
		URL:     AnnotationURL(id),
		Popup:   true,
		Bounds:  CenteredBounds(current, AnnotationWindowWidth, AnnotationWindowHeight),
		Focused: true,
	})
	if err != nil {
		return WindowHandle{}, fmt.Errorf("open annotation window: %w", err)
	}
	return WindowHandle{WindowID: windowID, ScreenshotID: id}, nil
}

// OpenSidePanel shows the side panel for tabID.
func (m *WindowManager) OpenSidePanel(ctx context.Context, tabID int) error {
	if err := m.host.OpenSidePanel(ctx, tabID); err != nil {
		return fmt.Errorf("open side panel: %w", err)
	}
	return nil
}
