package annotation

import "screenshot-pro/pkg/geometry"

// DefaultTextScale multiplies the stroke width to get the font size of text
// placed with the text tool.
const DefaultTextScale = 6.0

// TextSizing decides the font size of new text annotations. When Fixed is
// positive it wins (the configured settings size); otherwise the stroke width
// is multiplied by Scale.
type TextSizing struct {
	Scale float64
	Fixed float64
}

// FontSize returns the font size for text drawn with the given stroke width.
func (ts TextSizing) FontSize(strokeWidth float64) float64 {
	if ts.Fixed > 0 {
		return ts.Fixed
	}
	scale := ts.Scale
	if !(scale > 0) {
		scale = DefaultTextScale
	}
	return strokeWidth * scale
}

// gesture is the in-progress, not yet committed drawing.
type gesture struct {
	tool    Tool
	start   geometry.ImagePoint
	current geometry.ImagePoint
	points  []geometry.ImagePoint
}

// Session holds the state of one annotation window: selected tool and style,
// the committed sequence and at most one in-progress gesture.
type Session struct {
	tool   Tool
	style  Style
	sizing TextSizing

	seq     Sequence
	active  *gesture
	pending *PendingText
}

// Option configures a Session.
type Option func(*Session)

// WithTool sets the initial tool.
func WithTool(t Tool) Option { return func(s *Session) { s.tool = t } }

// WithStyle sets the initial stroke style.
func WithStyle(st Style) Option { return func(s *Session) { s.style = st } }

// WithTextSizing sets how text font sizes are derived.
func WithTextSizing(ts TextSizing) Option { return func(s *Session) { s.sizing = ts } }

// NewSession creates an empty editing session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		tool:   ToolPen,
		style:  DefaultStyle(),
		sizing: TextSizing{Scale: DefaultTextScale},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tool returns the selected tool.
func (s *Session) Tool() Tool { return s.tool }

// Style returns the selected stroke style.
func (s *Session) Style() Style { return s.style }

// SetTool switches tools. Any in-progress gesture is discarded.
func (s *Session) SetTool(t Tool) {
	if t != s.tool {
		s.CancelGesture()
	}
	s.tool = t
}

// SetStyle changes the style used by subsequent gestures.
func (s *Session) SetStyle(st Style) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.style = st
	return nil
}

// Sequence returns the committed annotations.
func (s *Session) Sequence() *Sequence { return &s.seq }

// Drawing reports whether a gesture is in progress.
func (s *Session) Drawing() bool { return s.active != nil }

// BeginStroke opens a provisional gesture. Pens start a point list, shapes
// record their anchor. The text tool does not use gestures; it reports false.
func (s *Session) BeginStroke(tool Tool, p geometry.ImagePoint) bool {
	if tool == ToolText {
		return false
	}
	g := &gesture{tool: tool, start: p, current: p}
	if tool == ToolPen {
		g.points = []geometry.ImagePoint{p}
	}
	s.active = g
	return true
}

// ExtendStroke feeds a pointer move into the open gesture. For pens it returns
// the previous point so the caller can draw just the newest segment.
func (s *Session) ExtendStroke(tool Tool, p geometry.ImagePoint) (prev geometry.ImagePoint, ok bool) {
	g := s.active
	if g == nil || g.tool != tool {
		return geometry.ImagePoint{}, false
	}
	prev = g.current
	g.current = p
	if tool == ToolPen {
		prev = g.points[len(g.points)-1]
		g.points = append(g.points, p)
	}
	return prev, true
}

// CommitStroke finishes the open gesture. A pen commits only with at least
// two points and ignores end; shapes always commit start and end.
func (s *Session) CommitStroke(tool Tool, end geometry.ImagePoint) (Annotation, bool) {
	g := s.active
	if g == nil || g.tool != tool {
		return nil, false
	}
	s.active = nil

	var a Annotation
	switch tool {
	case ToolPen:
		if len(g.points) < 2 {
			return nil, false
		}
		a = Pen{Points: g.points, Style: s.style}
	case ToolRectangle:
		a = Rectangle{Start: g.start, End: end, Style: s.style}
	case ToolCircle:
		a = Circle{Start: g.start, End: end, Style: s.style}
	case ToolArrow:
		a = Arrow{Start: g.start, End: end, Style: s.style}
	default:
		return nil, false
	}
	if err := s.seq.Append(a); err != nil {
		return nil, false
	}
	return a, true
}

// Preview describes the shape currently being dragged.
type Preview struct {
	Tool           Tool
	Start, Current geometry.ImagePoint
	Style          Style
}

// Preview returns the uncommitted shape, if a shape gesture is open.
func (s *Session) Preview() (Preview, bool) {
	g := s.active
	if g == nil || !g.tool.IsShape() {
		return Preview{}, false
	}
	return Preview{Tool: g.tool, Start: g.start, Current: g.current, Style: s.style}, true
}

// CancelGesture drops the in-progress gesture and any pending text request.
func (s *Session) CancelGesture() {
	s.active = nil
	if s.pending != nil {
		s.pending.session = nil
		s.pending = nil
	}
}

// AddTextAnnotation commits text at p. Only the empty string is ignored;
// whitespace is kept as typed.
func (s *Session) AddTextAnnotation(p geometry.ImagePoint, text string) (Annotation, bool) {
	if text == "" {
		return nil, false
	}
	a := Text{
		Anchor:   p,
		Content:  text,
		Color:    s.style.Color,
		FontSize: s.sizing.FontSize(s.style.Width),
	}
	if err := s.seq.Append(a); err != nil {
		return nil, false
	}
	return a, true
}

// PendingText is an outstanding request for text entry at a point. The UI
// answers it with Resolve once the user submits or dismisses the prompt.
type PendingText struct {
	Point   geometry.ImagePoint
	session *Session
}

// RequestText opens a text request at p, replacing any earlier one.
func (s *Session) RequestText(p geometry.ImagePoint) *PendingText {
	s.active = nil
	if s.pending != nil {
		s.pending.session = nil
	}
	s.pending = &PendingText{Point: p, session: s}
	return s.pending
}

// Resolve answers the request. ok=false or empty text adds nothing. A request
// that was superseded or cancelled is ignored.
func (pt *PendingText) Resolve(text string, ok bool) (Annotation, bool) {
	s := pt.session
	if s == nil || s.pending != pt {
		return nil, false
	}
	pt.session = nil
	s.pending = nil
	if !ok {
		return nil, false
	}
	return s.AddTextAnnotation(pt.Point, text)
}

// Undo removes the most recent annotation; a no-op on an empty sequence.
func (s *Session) Undo() (Annotation, bool) {
	return s.seq.Undo()
}

// Clear removes every annotation. Asking the user first is the caller's job.
func (s *Session) Clear() {
	s.seq.Clear()
}
