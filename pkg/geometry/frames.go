package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultDevicePixelRatio is used when the host reports no usable ratio.
const DefaultDevicePixelRatio = 1.0

// ViewportPoint is a position in CSS pixels relative to the visible viewport.
// It is what capture requests and selection rectangles are expressed in.
type ViewportPoint Point2D

// ImagePoint is a position in the intrinsic pixel grid of a raster.
// Annotations are always placed in this frame.
type ImagePoint Point2D

// Offset is a scroll offset in CSS pixels.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point returns the viewport point as a frame-less Point2D.
func (p ViewportPoint) Point() Point2D { return Point2D(p) }

// Point returns the image point as a frame-less Point2D.
func (p ImagePoint) Point() Point2D { return Point2D(p) }

// Distance returns the Euclidean distance between two image points.
func (p ImagePoint) Distance(other ImagePoint) float64 {
	return Point2D(p).Distance(Point2D(other))
}

// ToViewportPoint converts a pointer event position into viewport space,
// adding the scroll offset of the element that received the event.
// Fixed-position overlays pass a zero offset.
func ToViewportPoint(clientX, clientY float64, scroll Offset) ViewportPoint {
	return ViewportPoint{X: clientX + scroll.X, Y: clientY + scroll.Y}
}

// ViewportToImage returns the transform mapping viewport coordinates inside an
// element's bounding rect onto the intrinsic pixel grid of the image it shows.
// Each axis is scaled independently; an axis with no rendered extent keeps scale 1.
func ViewportToImage(element Rect, intrinsic Size) AffineTransform {
	sx, sy := 1.0, 1.0
	if element.Width > 0 && intrinsic.Width > 0 {
		sx = intrinsic.Width / element.Width
	}
	if element.Height > 0 && intrinsic.Height > 0 {
		sy = intrinsic.Height / element.Height
	}
	return Scale(sx, sy).Compose(Translation(-element.X, -element.Y))
}

// ToImagePoint maps a viewport point over an element onto image space.
func ToImagePoint(client ViewportPoint, element Rect, intrinsic Size) ImagePoint {
	return ImagePoint(ViewportToImage(element, intrinsic).Apply(Point2D(client)))
}

// NormalizeDPR returns dpr, or DefaultDevicePixelRatio when dpr is missing,
// zero, negative or not a number.
func NormalizeDPR(dpr float64) float64 {
	if dpr <= 0 || math.IsNaN(dpr) || math.IsInf(dpr, 0) {
		return DefaultDevicePixelRatio
	}
	return dpr
}

// ScaleForDevicePixelRatio multiplies every field of rect by the device pixel
// ratio, turning CSS pixels into raster pixels.
func ScaleForDevicePixelRatio(rect Rect, dpr float64) Rect {
	dpr = NormalizeDPR(dpr)
	return Rect{
		X:      rect.X * dpr,
		Y:      rect.Y * dpr,
		Width:  rect.Width * dpr,
		Height: rect.Height * dpr,
	}
}

// NormalizeSelection returns the viewport rectangle spanned by two drag corners,
// independent of drag direction.
func NormalizeSelection(start, current ViewportPoint) Rect {
	return RectFromCorners(Point2D(start), Point2D(current))
}

// ArrowHead returns the two barb end points of an arrow drawn from start to end.
// Each barb has the given length and deviates by spread radians from the
// reversed shaft direction. The barbs do not depend on the shaft length.
func ArrowHead(start, end ImagePoint, length, spread float64) (ImagePoint, ImagePoint) {
	angle := math.Atan2(end.Y-start.Y, end.X-start.X)
	tip := r2.Vec{X: end.X, Y: end.Y}
	back := r2.Vec{
		X: end.X - length*math.Cos(angle),
		Y: end.Y - length*math.Sin(angle),
	}
	left := r2.Rotate(back, -spread, tip)
	right := r2.Rotate(back, spread, tip)
	return ImagePoint{X: left.X, Y: left.Y}, ImagePoint{X: right.X, Y: right.Y}
}
