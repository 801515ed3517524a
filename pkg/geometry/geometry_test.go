package geometry

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSelectionIgnoresDragDirection(t *testing.T) {
	want := Rect{X: 10, Y: 10, Width: 100, Height: 50}

	assert.Equal(t, want, NormalizeSelection(ViewportPoint{X: 10, Y: 10}, ViewportPoint{X: 110, Y: 60}))
	assert.Equal(t, want, NormalizeSelection(ViewportPoint{X: 110, Y: 60}, ViewportPoint{X: 10, Y: 10}))
	assert.Equal(t, want, NormalizeSelection(ViewportPoint{X: 110, Y: 10}, ViewportPoint{X: 10, Y: 60}))
}

func TestToViewportPointAddsScroll(t *testing.T) {
	p := ToViewportPoint(15, 20, Offset{X: 100, Y: 5})
	assert.Equal(t, ViewportPoint{X: 115, Y: 25}, p)
}

func TestToImagePointScalesAxesIndependently(t *testing.T) {
	// Rendered at 500x300 inside the viewport, intrinsic 1000x900.
	element := Rect{X: 50, Y: 20, Width: 500, Height: 300}
	intrinsic := Size{Width: 1000, Height: 900}

	p := ToImagePoint(ViewportPoint{X: 150, Y: 120}, element, intrinsic)
	assert.InDelta(t, 200, p.X, 1e-9)
	assert.InDelta(t, 300, p.Y, 1e-9)

	origin := ToImagePoint(ViewportPoint{X: 50, Y: 20}, element, intrinsic)
	assert.Equal(t, ImagePoint{}, origin)
}

func TestToImagePointZeroRenderedSize(t *testing.T) {
	p := ToImagePoint(ViewportPoint{X: 7, Y: 9}, Rect{}, Size{Width: 100, Height: 100})
	assert.False(t, math.IsInf(p.X, 0) || math.IsNaN(p.X))
	assert.Equal(t, ImagePoint{X: 7, Y: 9}, p)
}

func TestScaleForDevicePixelRatio(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}

	assert.Equal(t, Rect{X: 20, Y: 40, Width: 60, Height: 80}, ScaleForDevicePixelRatio(r, 2))
	assert.Equal(t, r, ScaleForDevicePixelRatio(r, 0), "zero ratio falls back to 1")
	assert.Equal(t, r, ScaleForDevicePixelRatio(r, math.NaN()))
	assert.Equal(t, r, ScaleForDevicePixelRatio(r, -3))
}

func TestRectNormalize(t *testing.T) {
	r := Rect{X: 100, Y: 50, Width: -40, Height: -10}
	assert.Equal(t, Rect{X: 60, Y: 40, Width: 40, Height: 10}, r.Normalize())
	assert.True(t, Rect{Width: 0, Height: 5}.Empty())
}

func TestCircleRadiusIsFullDragDistance(t *testing.T) {
	// 3-4-5 triangle: the radius is the whole drag, not half of it.
	assert.InDelta(t, 5, ImagePoint{}.Distance(ImagePoint{X: 3, Y: 4}), 1e-12)
}

func TestArrowHeadAngleAndLength(t *testing.T) {
	start := ImagePoint{X: 0, Y: 0}
	end := ImagePoint{X: 10, Y: 0}

	left, right := ArrowHead(start, end, 20, math.Pi/6)

	reversed := Point2D{X: -1, Y: 0}
	for _, barb := range []ImagePoint{left, right} {
		v := Point2D(barb).Sub(Point2D(end))
		length := math.Hypot(v.X, v.Y)
		assert.InDelta(t, 20, length, 1e-9, "barb length is constant even when the shaft is shorter")

		cos := (v.X*reversed.X + v.Y*reversed.Y) / length
		assert.InDelta(t, 30, math.Acos(cos)*180/math.Pi, 1e-9)
	}
	// Barbs sit on opposite sides of the shaft.
	assert.InDelta(t, -left.Y, right.Y, 1e-9)
	assert.NotEqual(t, left, right)
}

func TestRectPolygonIsClockwise(t *testing.T) {
	poly := RectPolygon(NewRect(0, 0, 10, 5))
	assert.InDelta(t, 50, SignedArea(poly), 1e-9)

	ccw := Oriented(poly, -1)
	assert.InDelta(t, -50, SignedArea(ccw), 1e-9)
	assert.Equal(t, Point2D{X: 0, Y: 0}, poly[0], "input untouched")
	assert.InDelta(t, 50, SignedArea(Oriented(ccw, 1)), 1e-9)
}

func TestPointInPolygon(t *testing.T) {
	poly := RectPolygon(NewRect(0, 0, 10, 10))
	assert.True(t, PointInPolygon(Point2D{X: 5, Y: 5}, poly))
	assert.False(t, PointInPolygon(Point2D{X: 15, Y: 5}, poly))
	assert.False(t, PointInPolygon(Point2D{X: 5, Y: 5}, poly[:2]))
}

func TestSegmentQuad(t *testing.T) {
	q := SegmentQuad(Point2D{X: 0, Y: 0}, Point2D{X: 10, Y: 0}, 4)
	assert.Len(t, q, 4)
	assert.InDelta(t, 40, math.Abs(SignedArea(q)), 1e-9)
	assert.Nil(t, SegmentQuad(Point2D{X: 1, Y: 1}, Point2D{X: 1, Y: 1}, 4))
}

func TestRegularPolygonApproachesCircle(t *testing.T) {
	r := 50.0
	n := CircleSegments(r)
	assert.GreaterOrEqual(t, n, 24)
	assert.Equal(t, 720, CircleSegments(1e6))

	pts := RegularPolygon(Point2D{X: 100, Y: 100}, r, n)
	assert.Len(t, pts, n)
	for _, p := range pts {
		assert.InDelta(t, r, math.Hypot(p.X-100, p.Y-100), 1e-9)
	}
	assert.InDelta(t, math.Pi*r*r, math.Abs(SignedArea(pts)), math.Pi*r*r*0.01)
	assert.Len(t, RegularPolygon(Point2D{}, 1, 1), 3)
}

func TestPixelRectFloorsOriginAndSize(t *testing.T) {
	r := Rect{X: 10.7, Y: 3.2, Width: 20.9, Height: 5.5}
	assert.Equal(t, image.Rect(10, 3, 30, 8), r.PixelRect())
}
