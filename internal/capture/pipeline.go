// Package capture turns visible-region rasters into stored screenshots.
package capture

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"screenshot-pro/internal/raster"
	"screenshot-pro/internal/store"
	"screenshot-pro/pkg/geometry"
)

// User-facing notices.
const (
	MsgTabCaptured   = "Full tab screenshot captured! Check the sidebar to view it."
	MsgAreaCaptured  = "Screenshot captured! Click the extension icon to view it."
	MsgCaptureFailed = "Error capturing screenshot. The area might be invalid."
	MsgTabFailed     = "Error capturing tab. Please try again."
	MsgSaveFailed    = "Error saving screenshot. Please try again."
)

// Tab identifies the page being captured.
type Tab struct {
	ID       int    `json:"id"`
	WindowID int    `json:"windowId"`
	URL      string `json:"url"`
	Title    string `json:"title"`
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Pipeline captures, crops, encodes and stores screenshots.
type Pipeline struct {
	source   Source
	shots    *store.Screenshots
	notifier Notifier
	logger   *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithNotifier sets who is told about finished captures.
func WithNotifier(n Notifier) PipelineOption {
	return func(p *Pipeline) { p.notifier = n }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a pipeline reading from src and saving into shots.
func NewPipeline(src Source, shots *store.Screenshots, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{source: src, shots: shots, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) grab(ctx context.Context) (image.Image, error) {
	img, err := p.source.CaptureVisibleRegion(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: source returned no pixels", ErrCaptureFailed)
	}
	return img, nil
}

// CaptureTab stores the whole visible region of tab.
func (p *Pipeline) CaptureTab(ctx context.Context, tab Tab) (store.Screenshot, error) {
	frame, err := p.grab(ctx)
	if err != nil {
		p.logger.Error("capture tab", "tab", tab.ID, "error", err)
		p.notify(ctx, MsgTabFailed)
		return store.Screenshot{}, err
	}
	dataURL, err := raster.EncodeDataURL(frame)
	if err != nil {
		p.notify(ctx, MsgTabFailed)
		return store.Screenshot{}, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}

	saved, err := p.shots.Add(ctx, store.Screenshot{
		URL:     tab.URL,
		Title:   tab.Title,
		DataURL: dataURL,
		Type:    store.KindFullTab,
	})
	if err != nil {
		p.logger.Error("save tab screenshot", "tab", tab.ID, "error", err)
		p.notify(ctx, MsgSaveFailed)
		return store.Screenshot{}, err
	}
	p.logger.Info("tab captured", "id", saved.ID, "url", tab.URL)
	p.notify(ctx, MsgTabCaptured)
	return saved, nil
}

// CaptureArea stores the area of tab selected in viewport CSS pixels. dpr is
// the device pixel ratio of the page; invalid values count as 1.
func (p *Pipeline) CaptureArea(ctx context.Context, tab Tab, area geometry.Rect, dpr float64) (store.Screenshot, error) {
	frame, err := p.grab(ctx)
	if err != nil {
		p.logger.Error("capture area", "tab", tab.ID, "error", err)
		p.notify(ctx, MsgCaptureFailed)
		return store.Screenshot{}, err
	}

	cropped, err := CropToArea(frame, area, dpr)
	if err != nil {
		p.logger.Warn("crop area", "tab", tab.ID, "area", area, "error", err)
		p.notify(ctx, MsgCaptureFailed)
		return store.Screenshot{}, err
	}
	dataURL, err := EncodeCrop(cropped)
	if err != nil {
		p.notify(ctx, MsgCaptureFailed)
		return store.Screenshot{}, err
	}

	saved, err := p.shots.Add(ctx, store.Screenshot{
		URL:     tab.URL,
		Title:   tab.Title,
		DataURL: dataURL,
		Type:    store.KindAreaSelection,
		Area:    store.AreaFromRect(area.Normalize()),
	})
	if err != nil {
		p.logger.Error("save area screenshot", "tab", tab.ID, "error", err)
		p.notify(ctx, MsgSaveFailed)
		return store.Screenshot{}, err
	}
	p.logger.Info("area captured", "id", saved.ID, "width", cropped.Rect.Dx(), "height", cropped.Rect.Dy())
	p.notify(ctx, MsgAreaCaptured)
	return saved, nil
}

func (p *Pipeline) notify(ctx context.Context, msg string) {
	if p.notifier != nil {
		p.notifier.Notify(ctx, msg)
	}
}
