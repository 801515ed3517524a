package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"screenshot-pro/internal/raster"
)

// Source obtains a raster of the currently visible region.
type Source interface {
	CaptureVisibleRegion(ctx context.Context) (image.Image, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (image.Image, error)

// CaptureVisibleRegion implements Source.
func (f SourceFunc) CaptureVisibleRegion(ctx context.Context) (image.Image, error) {
	return f(ctx)
}

// FileSource serves a raster read from disk on every capture. It stands in
// for the browser when capturing from the command line.
type FileSource struct {
	Path string
}

// CaptureVisibleRegion implements Source.
func (s FileSource) CaptureVisibleRegion(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := raster.Load(s.Path)
	if err != nil {
		return nil, err
	}
	return img, nil
}

type timeoutSource struct {
	src Source
	d   time.Duration
}

// WithTimeout bounds every capture on src to d. A source that ignores its
// context is abandoned when the deadline passes; its result is discarded.
func WithTimeout(src Source, d time.Duration) Source {
	if d <= 0 {
		return src
	}
	return timeoutSource{src: src, d: d}
}

type result struct {
	img image.Image
	err error
}

func (t timeoutSource) CaptureVisibleRegion(ctx context.Context) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	ch := make(chan result, 1)
	go func() {
		img, err := t.src.CaptureVisibleRegion(ctx)
		ch <- result{img: img, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, t.d)
		}
		return r.img, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, t.d)
		}
		return nil, ctx.Err()
	}
}
