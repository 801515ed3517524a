package raster

import (
	"encoding/base64"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 11), B: uint8((x + y) * 3), A: 255})
		}
	}
	return img
}

func TestFlattenEmptyOverlayIsIdentity(t *testing.T) {
	base := gradient(40, 30)
	out, err := Flatten(base, image.NewRGBA(base.Rect))
	require.NoError(t, err)
	assert.Equal(t, base.Pix, out.Pix)

	out, err = Flatten(base, nil)
	require.NoError(t, err)
	assert.Equal(t, base.Pix, out.Pix)
}

func TestFlattenNRGBABase(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range base.Pix {
		base.Pix[i] = uint8(i * 13)
	}
	out, err := Flatten(base, image.NewRGBA(base.Rect))
	require.NoError(t, err)
	assert.Equal(t, ToRGBA(base).Pix, out.Pix)
}

func TestFlattenCompositesOverlay(t *testing.T) {
	base := gradient(10, 10)
	overlay := image.NewRGBA(base.Rect)
	red := color.RGBA{R: 255, A: 255}
	overlay.SetRGBA(3, 4, red)
	// half transparent premultiplied white
	overlay.SetRGBA(5, 5, color.RGBA{R: 128, G: 128, B: 128, A: 128})

	out, err := Flatten(base, overlay)
	require.NoError(t, err)
	assert.Equal(t, red, out.RGBAAt(3, 4))
	assert.Equal(t, base.RGBAAt(0, 0), out.RGBAAt(0, 0))

	mixed := out.RGBAAt(5, 5)
	assert.Greater(t, mixed.R, base.RGBAAt(5, 5).R)
	assert.Equal(t, uint8(255), mixed.A)
}

func TestFlattenSizeMismatch(t *testing.T) {
	_, err := Flatten(gradient(10, 10), image.NewRGBA(image.Rect(0, 0, 9, 10)))
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestCompositeOffsetAndOpacity(t *testing.T) {
	c := NewComposite(4, 4)
	solid := image.NewUniform(color.RGBA{B: 255, A: 255})
	bg := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(bg.Pix); i += 4 {
		bg.Pix[i+3] = 255
	}
	c.AddLayer(NewLayer("bg", bg), 0, 0)

	patch := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			patch.Set(x, y, solid.C)
		}
	}
	l := NewLayer("patch", patch)
	l.Opacity = 0.5
	c.AddLayer(l, 2, 2)

	hidden := NewLayer("hidden", patch)
	hidden.Visible = false
	c.AddLayer(hidden, 0, 0)

	out := c.Render()
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(0, 0))
	got := out.RGBAAt(3, 3)
	assert.InDelta(t, 128, int(got.B), 2)
	assert.Equal(t, uint8(255), got.A)
}

func TestEncodePNGDeterministic(t *testing.T) {
	img := gradient(64, 48)
	a, err := EncodePNG(img)
	require.NoError(t, err)
	b, err := EncodePNG(gradient(64, 48))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDataURLRoundTrip(t *testing.T) {
	img := gradient(16, 16)
	url, err := EncodeDataURL(img)
	require.NoError(t, err)
	assert.Contains(t, url, PNGDataURLPrefix)

	back, mime, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, img.Pix, ToRGBA(back).Pix)
}

func TestDecodeDataURLErrors(t *testing.T) {
	_, _, err := DecodeDataURL("http://example.com/a.png")
	assert.ErrorIs(t, err, ErrInvalidDataURL)

	_, _, err = DecodeDataURL("data:image/png;base64")
	assert.ErrorIs(t, err, ErrInvalidDataURL)

	_, _, err = DecodeDataURL("data:image/png,rawbytes")
	assert.ErrorIs(t, err, ErrInvalidDataURL)

	_, _, err = DecodeDataURL("data:image/png;base64,!!!")
	assert.ErrorIs(t, err, ErrInvalidDataURL)

	text := base64.StdEncoding.EncodeToString([]byte("just some text, not pixels"))
	_, _, err = DecodeDataURL("data:image/png;base64," + text)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestThumbnail(t *testing.T) {
	th := Thumbnail(gradient(400, 100), 200)
	assert.Equal(t, 200, th.Rect.Dx())
	assert.Equal(t, 50, th.Rect.Dy())

	th = Thumbnail(gradient(100, 400), 200)
	assert.Equal(t, 50, th.Rect.Dx())
	assert.Equal(t, 200, th.Rect.Dy())

	small := gradient(20, 10)
	assert.Equal(t, small.Pix, Thumbnail(small, 0).Pix)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	data, err := EncodePNG(gradient(8, 6))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	img, format, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Pt(8, 6), img.Bounds().Size())

	_, _, err = Load(filepath.Join(dir, "notes.txt"))
	assert.Error(t, err)

	fake := filepath.Join(dir, "fake.png")
	require.NoError(t, os.WriteFile(fake, []byte("just some text, not pixels"), 0o644))
	_, _, err = Load(fake)
	assert.ErrorIs(t, err, ErrNotImage)

	noExt := filepath.Join(dir, "capture")
	require.NoError(t, os.WriteFile(noExt, data, 0o644))
	_, format, err = Load(noExt)
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	_, _, err = Load(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
