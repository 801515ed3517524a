package annotation

import "screenshot-pro/pkg/geometry"

// CommandKind identifies a pointer or toolbar event fed to a Session.
type CommandKind int

const (
	CmdPointerDown CommandKind = iota
	CmdPointerMove
	CmdPointerUp
	CmdPointerLeave
	CmdSelectTool
	CmdUndo
	CmdClear
	CmdCancel
)

// Command is one input event, already mapped into image coordinates.
type Command struct {
	Kind  CommandKind
	Point geometry.ImagePoint
	Tool  Tool
}

// Effect tells the renderer how much of the surface changed.
type Effect int

const (
	// EffectNone means nothing visible changed.
	EffectNone Effect = iota
	// EffectSegment means one new pen segment From->To must be drawn.
	EffectSegment
	// EffectPreview means the full redraw plus the in-progress shape.
	EffectPreview
	// EffectRedraw means the committed sequence must be redrawn.
	EffectRedraw
	// EffectTextPrompt means the UI must ask for text and resolve Pending.
	EffectTextPrompt
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectSegment:
		return "segment"
	case EffectPreview:
		return "preview"
	case EffectRedraw:
		return "redraw"
	case EffectTextPrompt:
		return "text-prompt"
	default:
		return "unknown"
	}
}

// Result is what Apply reports back to the view.
type Result struct {
	Effect     Effect
	From, To   geometry.ImagePoint
	Annotation Annotation
	Pending    *PendingText
}

// Apply feeds a command to the session using the selected tool.
func (s *Session) Apply(cmd Command) Result {
	switch cmd.Kind {
	case CmdPointerDown:
		if s.tool == ToolText {
			return Result{Effect: EffectTextPrompt, Pending: s.RequestText(cmd.Point)}
		}
		if s.BeginStroke(s.tool, cmd.Point) {
			return Result{Effect: EffectNone}
		}
	case CmdPointerMove:
		prev, ok := s.ExtendStroke(s.tool, cmd.Point)
		if !ok {
			break
		}
		if s.tool == ToolPen {
			return Result{Effect: EffectSegment, From: prev, To: cmd.Point}
		}
		return Result{Effect: EffectPreview}
	case CmdPointerUp:
		if !s.Drawing() {
			break
		}
		a, ok := s.CommitStroke(s.tool, cmd.Point)
		if ok {
			return Result{Effect: EffectRedraw, Annotation: a}
		}
		// A discarded shape preview still has to be erased.
		return Result{Effect: EffectRedraw}
	case CmdPointerLeave:
		// Leaving the surface ends the gesture the same way a release does.
		if !s.Drawing() {
			break
		}
		g := s.active
		a, ok := s.CommitStroke(s.tool, g.current)
		if ok {
			return Result{Effect: EffectRedraw, Annotation: a}
		}
		return Result{Effect: EffectRedraw}
	case CmdSelectTool:
		drawing := s.Drawing()
		s.SetTool(cmd.Tool)
		if drawing {
			return Result{Effect: EffectRedraw}
		}
	case CmdUndo:
		if a, ok := s.Undo(); ok {
			return Result{Effect: EffectRedraw, Annotation: a}
		}
	case CmdClear:
		if s.seq.Len() > 0 {
			s.Clear()
			return Result{Effect: EffectRedraw}
		}
	case CmdCancel:
		drawing := s.Drawing()
		s.CancelGesture()
		if drawing {
			return Result{Effect: EffectRedraw}
		}
	}
	return Result{Effect: EffectNone}
}
