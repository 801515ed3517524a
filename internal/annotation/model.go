// Package annotation provides the annotation records and the per-window editing session.
package annotation

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"screenshot-pro/pkg/colorutil"
	"screenshot-pro/pkg/geometry"
)

// Tool represents the current drawing tool.
type Tool int

const (
	ToolPen Tool = iota
	ToolRectangle
	ToolCircle
	ToolArrow
	ToolText
)

func (t Tool) String() string {
	switch t {
	case ToolPen:
		return "pen"
	case ToolRectangle:
		return "rectangle"
	case ToolCircle:
		return "circle"
	case ToolArrow:
		return "arrow"
	case ToolText:
		return "text"
	default:
		return "unknown"
	}
}

// IsShape reports whether the tool draws a two-point shape.
func (t Tool) IsShape() bool {
	return t == ToolRectangle || t == ToolCircle || t == ToolArrow
}

// ParseTool maps a toolbar name ("pen", "arrow", ...) to a Tool.
func ParseTool(name string) (Tool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pen":
		return ToolPen, nil
	case "rectangle", "rect":
		return ToolRectangle, nil
	case "circle":
		return ToolCircle, nil
	case "arrow":
		return ToolArrow, nil
	case "text":
		return ToolText, nil
	}
	return ToolPen, fmt.Errorf("unknown tool %q", name)
}

// ErrInvalidAnnotation is returned when a record fails validation.
var ErrInvalidAnnotation = errors.New("invalid annotation")

// Style is the stroke style shared by pen and shape annotations.
type Style struct {
	Color color.RGBA
	Width float64
}

// DefaultStyle matches the editor's initial toolbar state.
func DefaultStyle() Style {
	return Style{Color: colorutil.MustParse(colorutil.DefaultAnnotationColor), Width: 3}
}

// NewStyle validates a color value and width.
func NewStyle(colorValue string, width float64) (Style, error) {
	c, err := colorutil.Parse(colorValue)
	if err != nil {
		return Style{}, fmt.Errorf("%w: %v", ErrInvalidAnnotation, err)
	}
	s := Style{Color: c, Width: width}
	if err := s.Validate(); err != nil {
		return Style{}, err
	}
	return s, nil
}

// Validate checks the width is a positive number and the color is visible.
func (s Style) Validate() error {
	if !(s.Width > 0) {
		return fmt.Errorf("%w: stroke width must be positive, got %v", ErrInvalidAnnotation, s.Width)
	}
	if s.Color.A == 0 {
		return fmt.Errorf("%w: stroke color is fully transparent", ErrInvalidAnnotation)
	}
	return nil
}

// Annotation is one committed drawing record. The set of implementations is
// closed: Pen, Rectangle, Circle, Arrow and Text.
type Annotation interface {
	// Tool returns the tool that produced the record.
	Tool() Tool
	// Validate reports whether the record may enter a Sequence.
	Validate() error

	clone() Annotation
}

// Pen is a freehand poly-line.
type Pen struct {
	Points []geometry.ImagePoint
	Style  Style
}

// Rectangle is an axis-aligned outline between two corners.
type Rectangle struct {
	Start, End geometry.ImagePoint
	Style      Style
}

// Circle is an outline centred on Start passing through End.
type Circle struct {
	Start, End geometry.ImagePoint
	Style      Style
}

// Arrow is a shaft from Start to End with a two-barb head at End.
type Arrow struct {
	Start, End geometry.ImagePoint
	Style      Style
}

// Text is a string drawn with its baseline starting at Anchor.
type Text struct {
	Anchor   geometry.ImagePoint
	Content  string
	Color    color.RGBA
	FontSize float64
}

func (Pen) Tool() Tool       { return ToolPen }
func (Rectangle) Tool() Tool { return ToolRectangle }
func (Circle) Tool() Tool    { return ToolCircle }
func (Arrow) Tool() Tool     { return ToolArrow }
func (Text) Tool() Tool      { return ToolText }

// Validate implements Annotation.
func (a Pen) Validate() error {
	if len(a.Points) < 2 {
		return fmt.Errorf("%w: pen stroke needs at least 2 points, got %d", ErrInvalidAnnotation, len(a.Points))
	}
	return a.Style.Validate()
}

// Validate implements Annotation.
func (a Rectangle) Validate() error { return a.Style.Validate() }

// Validate implements Annotation.
func (a Circle) Validate() error { return a.Style.Validate() }

// Validate implements Annotation.
func (a Arrow) Validate() error { return a.Style.Validate() }

// Validate implements Annotation.
func (a Text) Validate() error {
	if a.Content == "" {
		return fmt.Errorf("%w: empty text", ErrInvalidAnnotation)
	}
	if !(a.FontSize > 0) {
		return fmt.Errorf("%w: font size must be positive, got %v", ErrInvalidAnnotation, a.FontSize)
	}
	if a.Color.A == 0 {
		return fmt.Errorf("%w: text color is fully transparent", ErrInvalidAnnotation)
	}
	return nil
}

// Radius is the full start-to-end drag distance. The drawn circle is therefore
// larger than the dragged box, which is the intended feedback.
func (a Circle) Radius() float64 {
	return a.Start.Distance(a.End)
}

func (a Pen) clone() Annotation {
	pts := make([]geometry.ImagePoint, len(a.Points))
	copy(pts, a.Points)
	a.Points = pts
	return a
}

func (a Rectangle) clone() Annotation { return a }
func (a Circle) clone() Annotation    { return a }
func (a Arrow) clone() Annotation     { return a }
func (a Text) clone() Annotation      { return a }
