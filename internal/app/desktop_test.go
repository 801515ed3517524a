package app

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenshot-pro/internal/capture"
	"screenshot-pro/internal/messaging"
	"screenshot-pro/internal/store"
)

func TestAnnotationID(t *testing.T) {
	id, ok := AnnotationID(AnnotationURL(1712345678901))
	require.True(t, ok)
	assert.Equal(t, int64(1712345678901), id)

	_, ok = AnnotationID("public/annotation.html")
	assert.False(t, ok)
	_, ok = AnnotationID("public/annotation.html?id=abc")
	assert.False(t, ok)
}

func TestDesktopHostDrivesBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var launched []WindowSpec
	host := &DesktopHost{
		Source: capture.SourceFunc(func(context.Context) (image.Image, error) {
			return image.NewRGBA(image.Rect(0, 0, 40, 30)), nil
		}),
		Tab:    capture.Tab{ID: 1, URL: "https://example.com", Title: "Example"},
		Screen: WindowBounds{Left: 0, Top: 0, Width: 1920, Height: 1080},
		Launch: func(_ context.Context, spec WindowSpec) error {
			launched = append(launched, spec)
			return nil
		},
	}
	bus := messaging.NewBus()
	kv := store.NewMemory()
	bg := NewBackground(host, bus, kv)
	ep, err := bg.Register(bus)
	require.NoError(t, err)
	go ep.Run(ctx)

	saved, err := bg.CaptureTab(ctx, host.Tab)
	require.NoError(t, err)
	assert.Equal(t, store.KindFullTab, saved.Type)

	h, err := bg.Windows().OpenAnnotationSurface(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, h.WindowID)
	require.Len(t, launched, 1)
	assert.Equal(t, WindowBounds{Left: 360, Top: 140, Width: 1200, Height: 800}, launched[0].Bounds)

	id, ok := AnnotationID(launched[0].URL)
	require.True(t, ok)
	assert.Equal(t, saved.ID, id)
}

func TestDesktopHostWithoutSource(t *testing.T) {
	h := &DesktopHost{}
	_, err := h.CaptureVisibleTab(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNoSource)

	_, ok, err := h.ActiveTab(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBinaryWatcherNoticesRebuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenshot-pro")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o755))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	w, err := NewBinaryWatcher(path, 5*time.Millisecond, nil)
	require.NoError(t, err)
	assert.False(t, w.Updated())

	now := time.Now()
	require.NoError(t, os.Chtimes(path, now, now))
	assert.True(t, w.Updated())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, w.Run(ctx), ErrBinaryUpdated)
}

func TestBinaryWatcherStopsWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenshot-pro")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o755))
	w, err := NewBinaryWatcher(path, time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx))

	_, err = NewBinaryWatcher(filepath.Join(t.TempDir(), "missing"), 0, nil)
	assert.Error(t, err)
}
