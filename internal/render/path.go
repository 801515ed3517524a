package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"screenshot-pro/pkg/geometry"
)

// Winding signs for path.add. Outlines with a hole add the hole reversed so the
// rasterizer's signed coverage cancels inside it; everything else is solid so
// overlapping pieces of one stroke never cancel.
const (
	solid = 1.0
	hole  = -1.0
)

// path collects closed polygons that are filled together in one pass.
type path struct {
	polys [][]geometry.Point2D
	minX  float64
	minY  float64
	maxX  float64
	maxY  float64
}

func newPath() *path {
	return &path{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
	}
}

func (p *path) add(poly []geometry.Point2D, winding float64) {
	if len(poly) < 3 {
		return
	}
	poly = geometry.Oriented(poly, winding)
	for _, v := range poly {
		p.minX = math.Min(p.minX, v.X)
		p.minY = math.Min(p.minY, v.Y)
		p.maxX = math.Max(p.maxX, v.X)
		p.maxY = math.Max(p.maxY, v.Y)
	}
	p.polys = append(p.polys, poly)
}

// disc adds a filled circle, used for round caps and joins.
func (p *path) disc(c geometry.Point2D, r float64) {
	if r <= 0 {
		return
	}
	p.add(geometry.RegularPolygon(c, r, geometry.CircleSegments(r)), solid)
}

// line adds a stroked segment with round caps.
func (p *path) line(a, b geometry.Point2D, width float64) {
	p.add(geometry.SegmentQuad(a, b, width), solid)
	p.disc(a, width/2)
	if b != a {
		p.disc(b, width/2)
	}
}

// ring adds a circle outline of the given stroke width.
func (p *path) ring(c geometry.Point2D, r, width float64) {
	outer := r + width/2
	inner := r - width/2
	n := geometry.CircleSegments(outer)
	p.add(geometry.RegularPolygon(c, outer, n), solid)
	if inner > 0 {
		p.add(geometry.RegularPolygon(c, inner, n), hole)
	}
}

// frame adds a rectangle outline with square (miter) corners.
func (p *path) frame(r geometry.Rect, width float64) {
	h := width / 2
	outer := geometry.NewRect(r.X-h, r.Y-h, r.Width+width, r.Height+width)
	p.add(geometry.RectPolygon(outer), solid)
	if r.Width > width && r.Height > width {
		inner := geometry.NewRect(r.X+h, r.Y+h, r.Width-width, r.Height-width)
		p.add(geometry.RectPolygon(inner), hole)
	}
}

// bounds returns the integer pixel box touched by the path.
func (p *path) bounds() image.Rectangle {
	if len(p.polys) == 0 {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor(p.minX))-1, int(math.Floor(p.minY))-1,
		int(math.Ceil(p.maxX))+1, int(math.Ceil(p.maxY))+1,
	)
}

// fill rasterizes the path onto dst with an anti-aliased mask, compositing the
// color over what is already there. The rasterizer covers only the path's
// bounding box clipped to dst.
func (p *path) fill(dst *image.RGBA, c color.Color) {
	r := p.bounds().Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	z.DrawOp = draw.Over
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for _, poly := range p.polys {
		z.MoveTo(float32(poly[0].X-ox), float32(poly[0].Y-oy))
		for _, v := range poly[1:] {
			z.LineTo(float32(v.X-ox), float32(v.Y-oy))
		}
		z.ClosePath()
	}
	z.Draw(dst, r, image.NewUniform(c), image.Point{})
}
