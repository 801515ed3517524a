package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenshot-pro/internal/raster"
	"screenshot-pro/internal/store"
	"screenshot-pro/pkg/geometry"
)

// frame builds a raster where every pixel encodes its own coordinates.
func frame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func staticSource(img image.Image) Source {
	return SourceFunc(func(context.Context) (image.Image, error) { return img, nil })
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(_ context.Context, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func TestCropToAreaDPR2IsExactCopy(t *testing.T) {
	src := frame(200, 200)
	out, err := CropToArea(src, geometry.NewRect(10, 20, 30, 15), 2)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 60, 30), out.Rect)

	for y := 0; y < 30; y++ {
		for x := 0; x < 60; x++ {
			require.Equal(t, src.RGBAAt(20+x, 40+y), out.RGBAAt(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestCropToAreaDefaultsDPR(t *testing.T) {
	src := frame(50, 50)
	out, err := CropToArea(src, geometry.NewRect(5, 5, 10, 10), 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 10), out.Rect)
	assert.Equal(t, src.RGBAAt(5, 5), out.RGBAAt(0, 0))
}

func TestCropToAreaNegativeSizeIsNormalized(t *testing.T) {
	src := frame(50, 50)
	out, err := CropToArea(src, geometry.Rect{X: 20, Y: 20, Width: -10, Height: -10}, 1)
	require.NoError(t, err)
	assert.Equal(t, src.RGBAAt(10, 10), out.RGBAAt(0, 0))
}

func TestCropToAreaEmpty(t *testing.T) {
	src := frame(50, 50)
	_, err := CropToArea(src, geometry.NewRect(5, 5, 0, 10), 1)
	assert.ErrorIs(t, err, ErrEmptyCapture)

	// Entirely outside the raster: nothing visible.
	_, err = CropToArea(src, geometry.NewRect(100, 100, 20, 20), 1)
	assert.ErrorIs(t, err, ErrEmptyCapture)

	_, err = CropToArea(image.NewRGBA(image.Rect(0, 0, 50, 50)), geometry.NewRect(0, 0, 20, 20), 1)
	assert.ErrorIs(t, err, ErrEmptyCapture)
}

func TestEncodeCrop(t *testing.T) {
	url, err := EncodeCrop(frame(20, 20))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(url), MinDataURLLength)
}

func TestPipelineCaptureArea(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	n := &recordingNotifier{}
	p := NewPipeline(staticSource(frame(100, 100)), store.NewScreenshots(kv), WithNotifier(n))

	tab := Tab{ID: 7, URL: "https://example.com/page", Title: "Example"}
	rec, err := p.CaptureArea(ctx, tab, geometry.NewRect(10, 10, 20, 20), 1)
	require.NoError(t, err)
	assert.Equal(t, store.KindAreaSelection, rec.Type)
	require.NotNil(t, rec.Area)
	assert.Equal(t, store.Area{X: 10, Y: 10, Width: 20, Height: 20}, *rec.Area)

	img, _, err := raster.DecodeDataURL(rec.DataURL)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(20, 20), img.Bounds().Size())

	list, err := store.NewScreenshots(kv).List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{MsgAreaCaptured}, n.msgs)
}

func TestPipelineCaptureTab(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	p := NewPipeline(staticSource(frame(40, 30)), store.NewScreenshots(kv))

	rec, err := p.CaptureTab(ctx, Tab{URL: "https://a.test", Title: "A"})
	require.NoError(t, err)
	assert.Equal(t, store.KindFullTab, rec.Type)
	assert.Nil(t, rec.Area)
	assert.NotZero(t, rec.ID)
}

func TestPipelineSourceErrors(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	denied := SourceFunc(func(context.Context) (image.Image, error) {
		return nil, NewPermissionError("user dismissed the prompt")
	})
	n := &recordingNotifier{}
	p := NewPipeline(denied, store.NewScreenshots(kv), WithNotifier(n))

	_, err := p.CaptureTab(ctx, Tab{})
	assert.ErrorIs(t, err, ErrCaptureFailed)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Contains(t, err.Error(), "user dismissed the prompt")

	_, err = p.CaptureArea(ctx, Tab{}, geometry.NewRect(0, 0, 10, 10), 1)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, []string{MsgTabFailed, MsgCaptureFailed}, n.msgs)

	list, err := store.NewScreenshots(kv).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// readOnlyKV rejects every write.
type readOnlyKV struct{ store.KV }

func (readOnlyKV) Set(context.Context, map[string]any) error {
	return errors.New("quota exceeded")
}

func TestPipelineStorageFailureIsAnnounced(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	p := NewPipeline(staticSource(frame(40, 40)), store.NewScreenshots(readOnlyKV{store.NewMemory()}), WithNotifier(n))

	_, err := p.CaptureTab(ctx, Tab{URL: "https://a.test"})
	assert.ErrorIs(t, err, store.ErrStorageFailure)
	_, err = p.CaptureArea(ctx, Tab{URL: "https://a.test"}, geometry.NewRect(0, 0, 20, 20), 1)
	assert.ErrorIs(t, err, store.ErrStorageFailure)

	assert.Equal(t, []string{MsgSaveFailed, MsgSaveFailed}, n.msgs)
}

func TestPipelineEmptyAreaNotSaved(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	n := &recordingNotifier{}
	p := NewPipeline(staticSource(image.NewRGBA(image.Rect(0, 0, 50, 50))), store.NewScreenshots(kv), WithNotifier(n))

	_, err := p.CaptureArea(ctx, Tab{}, geometry.NewRect(0, 0, 20, 20), 1)
	assert.ErrorIs(t, err, ErrEmptyCapture)
	assert.Equal(t, []string{MsgCaptureFailed}, n.msgs)

	list, err := store.NewScreenshots(kv).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWithTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	slow := SourceFunc(func(context.Context) (image.Image, error) {
		<-block
		return nil, errors.New("unreachable")
	})

	_, err := WithTimeout(slow, 20*time.Millisecond).CaptureVisibleRegion(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)

	fast := WithTimeout(staticSource(frame(2, 2)), time.Second)
	img, err := fast.CaptureVisibleRegion(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, img)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	data, err := raster.EncodePNG(frame(12, 8))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	img, err := FileSource{Path: path}.CaptureVisibleRegion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, image.Pt(12, 8), img.Bounds().Size())

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "nope.png")}.CaptureVisibleRegion(context.Background())
	assert.Error(t, err)
}
