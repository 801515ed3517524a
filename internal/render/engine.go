package render

import (
	"image"
	"image/color"
	"log/slog"

	"screenshot-pro/internal/annotation"
	"screenshot-pro/pkg/colorutil"
	"screenshot-pro/pkg/geometry"
)

const (
	// PreviewAlpha is the opacity of a shape while it is being dragged (0.8).
	PreviewAlpha uint8 = 204

	// ArrowHeadLength is the barb length in image pixels, independent of the
	// shaft length.
	ArrowHeadLength = 20.0

	// ArrowHeadSpread is the angle between each barb and the reversed shaft.
	ArrowHeadSpread = 0.5235987755982988 // π/6
)

// Engine draws annotations. Rendering never fails: records are validated when
// they enter a sequence, so anything reaching the engine is drawable.
type Engine struct {
	text   *faceCache
	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a render engine with the embedded Go Regular font.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.text = newFaceCache(e.logger)
	return e
}

// Close releases cached font faces.
func (e *Engine) Close() {
	e.text.close()
}

// RenderFull clears the surface and draws every committed annotation in
// order. Later records end up on top.
func (e *Engine) RenderFull(s *Surface, seq *annotation.Sequence) {
	s.Clear()
	if seq == nil {
		return
	}
	seq.Each(func(a annotation.Annotation) {
		e.draw(s.img, a, 0xff)
	})
}

// RenderIncrementalSegment draws only the newest segment of an in-progress
// pen stroke. Pens are always rasterized segment by segment, so the result
// is pixel-identical to the same segment drawn by RenderFull.
func (e *Engine) RenderIncrementalSegment(s *Surface, prev, next geometry.ImagePoint, style annotation.Style) {
	e.segment(s.img, prev, next, style, 0xff)
}

// RenderPreview draws the shape being dragged at PreviewAlpha. The caller
// redraws committed annotations beneath it on the next frame, which erases it.
// Pen and text have no preview.
func (e *Engine) RenderPreview(s *Surface, tool annotation.Tool, start, current geometry.ImagePoint, style annotation.Style) {
	var a annotation.Annotation
	switch tool {
	case annotation.ToolRectangle:
		a = annotation.Rectangle{Start: start, End: current, Style: style}
	case annotation.ToolCircle:
		a = annotation.Circle{Start: start, End: current, Style: style}
	case annotation.ToolArrow:
		a = annotation.Arrow{Start: start, End: current, Style: style}
	default:
		return
	}
	e.draw(s.img, a, PreviewAlpha)
}

// RenderFrame is a full redraw followed by the optional drag preview.
func (e *Engine) RenderFrame(s *Surface, seq *annotation.Sequence, preview *annotation.Preview) {
	e.RenderFull(s, seq)
	if preview != nil {
		e.RenderPreview(s, preview.Tool, preview.Start, preview.Current, preview.Style)
	}
}

func (e *Engine) draw(dst *image.RGBA, a annotation.Annotation, alpha uint8) {
	switch a := a.(type) {
	case annotation.Pen:
		for i := 1; i < len(a.Points); i++ {
			e.segment(dst, a.Points[i-1], a.Points[i], a.Style, alpha)
		}
	case annotation.Rectangle:
		p := newPath()
		r := geometry.RectFromCorners(a.Start.Point(), a.End.Point())
		p.frame(r, a.Style.Width)
		p.fill(dst, paint(a.Style.Color, alpha))
	case annotation.Circle:
		p := newPath()
		p.ring(a.Start.Point(), a.Radius(), a.Style.Width)
		p.fill(dst, paint(a.Style.Color, alpha))
	case annotation.Arrow:
		left, right := geometry.ArrowHead(a.Start, a.End, ArrowHeadLength, ArrowHeadSpread)
		p := newPath()
		p.line(a.Start.Point(), a.End.Point(), a.Style.Width)
		p.line(a.End.Point(), left.Point(), a.Style.Width)
		p.line(a.End.Point(), right.Point(), a.Style.Width)
		p.fill(dst, paint(a.Style.Color, alpha))
	case annotation.Text:
		if alpha != 0xff {
			a.Color = premultiplied(colorutil.WithAlpha(a.Color, alpha))
		}
		e.text.draw(dst, a)
	default:
		e.logger.Warn("render: unknown annotation type", "tool", a.Tool().String())
	}
}

func (e *Engine) segment(dst *image.RGBA, from, to geometry.ImagePoint, style annotation.Style, alpha uint8) {
	p := newPath()
	p.line(from.Point(), to.Point(), style.Width)
	p.fill(dst, paint(style.Color, alpha))
}

func paint(c color.RGBA, alpha uint8) color.Color {
	if alpha == 0xff {
		return c
	}
	return colorutil.WithAlpha(c, alpha)
}

func premultiplied(c color.NRGBA) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}
