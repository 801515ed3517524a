package render

import (
	"image"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"screenshot-pro/internal/annotation"
)

// faceCache hands out one font.Face per pixel size. Faces are not safe for
// concurrent use, so drawing holds mu.
type faceCache struct {
	mu     sync.Mutex
	font   *opentype.Font
	faces  map[float64]font.Face
	logger *slog.Logger
}

func newFaceCache(logger *slog.Logger) *faceCache {
	fc := &faceCache{faces: make(map[float64]font.Face), logger: logger}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		logger.Error("parse embedded font, falling back to bitmap face", "error", err)
	} else {
		fc.font = f
	}
	return fc
}

// face returns the face for size. Must be called with mu held.
func (fc *faceCache) face(size float64) font.Face {
	if fc.font == nil {
		return basicfont.Face7x13
	}
	if f, ok := fc.faces[size]; ok {
		return f
	}
	f, err := opentype.NewFace(fc.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		fc.logger.Error("create font face", "size", size, "error", err)
		return basicfont.Face7x13
	}
	fc.faces[size] = f
	return f
}

// draw renders the text with its baseline starting at the anchor.
func (fc *faceCache) draw(dst *image.RGBA, t annotation.Text) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(t.Color),
		Face: fc.face(t.FontSize),
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(math.Round(t.Anchor.X * 64)),
			Y: fixed.Int26_6(math.Round(t.Anchor.Y * 64)),
		},
	}
	d.DrawString(t.Content)
}

func (fc *faceCache) close() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for size, f := range fc.faces {
		_ = f.Close()
		delete(fc.faces, size)
	}
}
