package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
)

// ErrSizeMismatch is returned when an overlay does not match its base image.
var ErrSizeMismatch = errors.New("overlay size does not match base image")

// Composite stacks layers over a background colour.
type Composite struct {
	Width     int
	Height    int
	Layers    []*Layer
	BackColor color.Color
}

// NewComposite creates a new Composite with a transparent background.
func NewComposite(width, height int) *Composite {
	return &Composite{
		Width:     width,
		Height:    height,
		BackColor: color.Transparent,
	}
}

// AddLayer appends layer at (x, y). Later layers are drawn on top.
func (c *Composite) AddLayer(layer *Layer, x, y int) {
	layer.Offset = image.Pt(x, y)
	c.Layers = append(c.Layers, layer)
}

// Render produces the final composited image.
func (c *Composite) Render() *image.RGBA {
	result := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	draw.Draw(result, result.Bounds(), image.NewUniform(c.BackColor), image.Point{}, draw.Src)

	// Over a transparent background the first layer is a straight copy.
	op := draw.Over
	if _, _, _, a := c.BackColor.RGBA(); a == 0 {
		op = draw.Src
	}
	for _, l := range c.Layers {
		if l == nil || l.Image == nil || !l.Visible || l.Opacity <= 0 {
			continue
		}
		c.compositeLayer(result, l, op)
		op = draw.Over
	}
	return result
}

// compositeLayer draws a single layer onto dst. Fully opaque layers skip the
// opacity mask, so an empty layer drawn Over leaves dst untouched.
func (c *Composite) compositeLayer(dst *image.RGBA, l *Layer, op draw.Op) {
	src := l.Image
	sb := src.Bounds()
	r := sb.Sub(sb.Min).Add(l.Offset).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	sp := sb.Min.Add(r.Min.Sub(l.Offset))

	if l.Opacity >= 1 {
		draw.Draw(dst, r, src, sp, op)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(min(l.Opacity, 1) * 255))})
	draw.DrawMask(dst, r, src, sp, mask, image.Point{}, op)
}

// Flatten burns an annotation overlay into a copy of base. Both must have the
// same dimensions. The base is copied exactly and the overlay composited over
// it at 1:1, so a fully transparent overlay yields the base pixels unchanged.
func Flatten(base image.Image, overlay image.Image) (*image.RGBA, error) {
	bb := base.Bounds()
	if overlay != nil && overlay.Bounds().Size() != bb.Size() {
		return nil, fmt.Errorf("%w: base %v, overlay %v", ErrSizeMismatch, bb.Size(), overlay.Bounds().Size())
	}

	c := NewComposite(bb.Dx(), bb.Dy())
	c.AddLayer(NewLayer("screenshot", base), 0, 0)
	if overlay != nil {
		c.AddLayer(NewLayer("annotations", overlay), 0, 0)
	}
	return c.Render(), nil
}

// ToRGBA returns img as an *image.RGBA with origin (0,0), copying if needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}

