// Package render draws annotation sequences onto raster surfaces.
package render

import (
	"image"
	"image/draw"
)

// Surface is the transparent overlay annotations are drawn on. It always has
// its origin at (0,0) and matches the intrinsic size of the screenshot.
type Surface struct {
	img *image.RGBA
}

// NewSurface allocates a transparent surface.
func NewSurface(width, height int) *Surface {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// SurfaceFor returns a surface sized to match img.
func SurfaceFor(img image.Image) *Surface {
	b := img.Bounds()
	return NewSurface(b.Dx(), b.Dy())
}

// Image returns the backing raster. Callers must not keep it across a Clear
// if they need a snapshot; use Snapshot instead.
func (s *Surface) Image() *image.RGBA { return s.img }

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.img.Rect.Dx() }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.img.Rect.Dy() }

// Clear resets every pixel to transparent.
func (s *Surface) Clear() {
	clear(s.img.Pix)
}

// Snapshot returns an independent copy of the surface pixels.
func (s *Surface) Snapshot() *image.RGBA {
	out := image.NewRGBA(s.img.Rect)
	draw.Draw(out, out.Rect, s.img, s.img.Rect.Min, draw.Src)
	return out
}
