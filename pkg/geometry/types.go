// Package geometry holds the coordinate types shared by selection, annotation
// and capture, and the conversions between viewport and image space.
package geometry

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point2D is a position with no frame attached. Frame-specific code uses
// ViewportPoint or ImagePoint instead.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point2D) vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

func fromVec(v r2.Vec) Point2D { return Point2D{X: v.X, Y: v.Y} }

// Distance is the Euclidean distance to other.
func (p Point2D) Distance(other Point2D) float64 {
	return r2.Norm(r2.Sub(p.vec(), other.vec()))
}

func (p Point2D) Add(other Point2D) Point2D { return fromVec(r2.Add(p.vec(), other.vec())) }

func (p Point2D) Sub(other Point2D) Point2D { return fromVec(r2.Sub(p.vec(), other.vec())) }

func (p Point2D) Scale(factor float64) Point2D { return fromVec(r2.Scale(factor, p.vec())) }

// Rect is an axis-aligned rectangle. The JSON form matches the stored
// capture area {x, y, width, height}.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// RectFromCorners spans two opposite corners given in any order.
func RectFromCorners(a, b Point2D) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// Normalize flips negative extents so width and height are >= 0.
func (r Rect) Normalize() Rect {
	return RectFromCorners(Point2D{X: r.X, Y: r.Y}, Point2D{X: r.X + r.Width, Y: r.Y + r.Height})
}

// Empty reports whether r covers no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// PixelRect snaps r onto the pixel grid: the origin and the size are each
// floored, so the pixel count never exceeds the fractional extent.
func (r Rect) PixelRect() image.Rectangle {
	x, y := int(math.Floor(r.X)), int(math.Floor(r.Y))
	return image.Rect(x, y, x+int(math.Floor(r.Width)), y+int(math.Floor(r.Height)))
}

// Size is a width and height, typically an image's intrinsic pixel size.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func NewSize(width, height float64) Size {
	return Size{Width: width, Height: height}
}

// AffineTransform maps p to (A·x + B·y + TX, C·x + D·y + TY).
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

func Scale(sx, sy float64) AffineTransform {
	return AffineTransform{A: sx, D: sy}
}

func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// Compose returns t∘inner: inner is applied first, then t.
func (t AffineTransform) Compose(inner AffineTransform) AffineTransform {
	return AffineTransform{
		A:  t.A*inner.A + t.B*inner.C,
		B:  t.A*inner.B + t.B*inner.D,
		TX: t.A*inner.TX + t.B*inner.TY + t.TX,
		C:  t.C*inner.A + t.D*inner.C,
		D:  t.C*inner.B + t.D*inner.D,
		TY: t.C*inner.TX + t.D*inner.TY + t.TY,
	}
}
