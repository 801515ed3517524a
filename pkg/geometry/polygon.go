package geometry

import "math"

// SignedArea returns the shoelace area of a closed polygon. In image space
// (y grows downward) a positive area means the vertices run clockwise on screen.
func SignedArea(polygon []Point2D) float64 {
	n := len(polygon)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += crossProduct(Point2D{}, polygon[i], polygon[j])
	}
	return sum / 2
}

// Oriented returns the polygon with its winding forced to the sign of want:
// positive for clockwise on screen, negative for counter-clockwise. The input
// is not modified.
func Oriented(polygon []Point2D, want float64) []Point2D {
	out := make([]Point2D, len(polygon))
	copy(out, polygon)
	if SignedArea(out)*want < 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// CircleSegments picks a vertex count for approximating a circle of radius r
// so that no edge is much longer than two pixels.
func CircleSegments(r float64) int {
	n := int(math.Ceil(2 * math.Pi * r / 2))
	if n < 24 {
		n = 24
	}
	if n > 720 {
		n = 720
	}
	return n
}

// RegularPolygon returns n vertices evenly spaced on the circle of radius r
// around center, starting at angle zero.
func RegularPolygon(center Point2D, r float64, n int) []Point2D {
	if n < 3 {
		n = 3
	}
	pts := make([]Point2D, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Point2D{X: center.X + r*math.Cos(a), Y: center.Y + r*math.Sin(a)}
	}
	return pts
}

// SegmentQuad returns the rectangle covering a line segment of the given width,
// or nil when the segment has no length.
func SegmentQuad(a, b Point2D, width float64) []Point2D {
	d := b.Sub(a)
	l := math.Hypot(d.X, d.Y)
	if l == 0 {
		return nil
	}
	h := width / 2
	nx, ny := -d.Y/l*h, d.X/l*h
	return []Point2D{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}
}

// RectPolygon returns the four corners of r in clockwise screen order.
func RectPolygon(r Rect) []Point2D {
	return []Point2D{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y + r.Height},
	}
}

// PointInPolygon tests if a point is inside a polygon using ray casting.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		if ((polygon[i].Y > p.Y) != (polygon[j].Y > p.Y)) &&
			(p.X < (polygon[j].X-polygon[i].X)*(p.Y-polygon[i].Y)/(polygon[j].Y-polygon[i].Y)+polygon[i].X) {
			inside = !inside
		}
		j = i
	}
	return inside
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
