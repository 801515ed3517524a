package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenshot-pro/pkg/geometry"
)

func pt(x, y float64) geometry.ImagePoint { return geometry.ImagePoint{X: x, Y: y} }

func TestPenCommit(t *testing.T) {
	s := NewSession()
	require.True(t, s.BeginStroke(ToolPen, pt(0, 0)))
	prev, ok := s.ExtendStroke(ToolPen, pt(5, 5))
	require.True(t, ok)
	assert.Equal(t, pt(0, 0), prev)
	prev, ok = s.ExtendStroke(ToolPen, pt(10, 5))
	require.True(t, ok)
	assert.Equal(t, pt(5, 5), prev)

	a, ok := s.CommitStroke(ToolPen, pt(99, 99))
	require.True(t, ok)
	pen := a.(Pen)
	assert.Equal(t, []geometry.ImagePoint{pt(0, 0), pt(5, 5), pt(10, 5)}, pen.Points)
	assert.Equal(t, 1, s.Sequence().Len())
	assert.False(t, s.Drawing())
}

func TestPenNeedsTwoPoints(t *testing.T) {
	s := NewSession()
	s.BeginStroke(ToolPen, pt(3, 3))
	_, ok := s.CommitStroke(ToolPen, pt(3, 3))
	assert.False(t, ok)
	assert.Equal(t, 0, s.Sequence().Len())
}

func TestShapeCommit(t *testing.T) {
	for _, tool := range []Tool{ToolRectangle, ToolCircle, ToolArrow} {
		s := NewSession(WithTool(tool))
		s.BeginStroke(tool, pt(10, 10))
		s.ExtendStroke(tool, pt(20, 20))
		a, ok := s.CommitStroke(tool, pt(40, 30))
		require.True(t, ok, tool.String())
		assert.Equal(t, tool, a.Tool())
	}

	s := NewSession()
	s.BeginStroke(ToolCircle, pt(0, 0))
	a, ok := s.CommitStroke(ToolCircle, pt(3, 4))
	require.True(t, ok)
	assert.InDelta(t, 5.0, a.(Circle).Radius(), 1e-9)
}

func TestToolMismatchIsNoop(t *testing.T) {
	s := NewSession()
	s.BeginStroke(ToolRectangle, pt(0, 0))
	_, ok := s.ExtendStroke(ToolPen, pt(1, 1))
	assert.False(t, ok)
	_, ok = s.CommitStroke(ToolArrow, pt(1, 1))
	assert.False(t, ok)
	assert.True(t, s.Drawing())
	assert.Equal(t, 0, s.Sequence().Len())
}

func TestInProgressNeverInSequence(t *testing.T) {
	s := NewSession(WithTool(ToolArrow))
	s.Apply(Command{Kind: CmdPointerDown, Point: pt(0, 0)})
	r := s.Apply(Command{Kind: CmdPointerMove, Point: pt(50, 50)})
	assert.Equal(t, EffectPreview, r.Effect)
	assert.Equal(t, 0, s.Sequence().Len())

	p, ok := s.Preview()
	require.True(t, ok)
	assert.Equal(t, pt(50, 50), p.Current)

	r = s.Apply(Command{Kind: CmdPointerUp, Point: pt(60, 60)})
	assert.Equal(t, EffectRedraw, r.Effect)
	assert.Equal(t, 1, s.Sequence().Len())
	_, ok = s.Preview()
	assert.False(t, ok)
}

func TestUndoIsInverseOfCommit(t *testing.T) {
	s := NewSession(WithTool(ToolRectangle))
	s.BeginStroke(ToolRectangle, pt(0, 0))
	first, _ := s.CommitStroke(ToolRectangle, pt(10, 10))
	before := s.Sequence().All()

	s.BeginStroke(ToolRectangle, pt(5, 5))
	second, ok := s.CommitStroke(ToolRectangle, pt(20, 20))
	require.True(t, ok)

	undone, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, second, undone)
	assert.Equal(t, before, s.Sequence().All())
	assert.Equal(t, first, s.Sequence().At(0))
}

func TestUndoOnEmptyIsNoop(t *testing.T) {
	s := NewSession()
	_, ok := s.Undo()
	assert.False(t, ok)
	r := s.Apply(Command{Kind: CmdUndo})
	assert.Equal(t, EffectNone, r.Effect)
}

func TestClear(t *testing.T) {
	s := NewSession()
	s.AddTextAnnotation(pt(1, 1), "a")
	s.AddTextAnnotation(pt(2, 2), "b")
	r := s.Apply(Command{Kind: CmdClear})
	assert.Equal(t, EffectRedraw, r.Effect)
	assert.Equal(t, 0, s.Sequence().Len())
}

func TestTextPrompt(t *testing.T) {
	s := NewSession(WithTool(ToolText))
	r := s.Apply(Command{Kind: CmdPointerDown, Point: pt(30, 40)})
	require.Equal(t, EffectTextPrompt, r.Effect)
	require.NotNil(t, r.Pending)

	a, ok := r.Pending.Resolve("hello", true)
	require.True(t, ok)
	txt := a.(Text)
	assert.Equal(t, "hello", txt.Content)
	assert.Equal(t, pt(30, 40), txt.Anchor)
	assert.InDelta(t, 3*DefaultTextScale, txt.FontSize, 1e-9)

	// Resolving twice does nothing.
	_, ok = r.Pending.Resolve("again", true)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Sequence().Len())
}

func TestTextEmptyOrDismissed(t *testing.T) {
	s := NewSession(WithTool(ToolText))
	p := s.RequestText(pt(1, 1))
	_, ok := p.Resolve("", true)
	assert.False(t, ok)

	p = s.RequestText(pt(1, 1))
	_, ok = p.Resolve("text", false)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Sequence().Len())
}

func TestWhitespaceTextIsKept(t *testing.T) {
	s := NewSession(WithTool(ToolText))
	a, ok := s.RequestText(pt(1, 1)).Resolve("   ", true)
	require.True(t, ok)
	assert.Equal(t, "   ", a.(Text).Content)
	assert.NoError(t, a.Validate())
	assert.Equal(t, 1, s.Sequence().Len())
}

func TestTextRequestSuperseded(t *testing.T) {
	s := NewSession(WithTool(ToolText))
	old := s.RequestText(pt(1, 1))
	s.RequestText(pt(2, 2))
	_, ok := old.Resolve("stale", true)
	assert.False(t, ok)
}

func TestFixedTextSize(t *testing.T) {
	s := NewSession(WithTextSizing(TextSizing{Fixed: 16}))
	a, ok := s.AddTextAnnotation(pt(0, 0), "x")
	require.True(t, ok)
	assert.InDelta(t, 16.0, a.(Text).FontSize, 1e-9)
}

func TestSwitchingToolCancelsGesture(t *testing.T) {
	s := NewSession()
	s.Apply(Command{Kind: CmdPointerDown, Point: pt(0, 0)})
	s.Apply(Command{Kind: CmdPointerMove, Point: pt(5, 5)})
	r := s.Apply(Command{Kind: CmdSelectTool, Tool: ToolCircle})
	assert.Equal(t, EffectRedraw, r.Effect)
	assert.False(t, s.Drawing())
	assert.Equal(t, ToolCircle, s.Tool())
}

func TestPointerLeaveCommits(t *testing.T) {
	s := NewSession()
	s.Apply(Command{Kind: CmdPointerDown, Point: pt(0, 0)})
	r := s.Apply(Command{Kind: CmdPointerMove, Point: pt(5, 5)})
	assert.Equal(t, EffectSegment, r.Effect)
	assert.Equal(t, pt(0, 0), r.From)
	assert.Equal(t, pt(5, 5), r.To)
	r = s.Apply(Command{Kind: CmdPointerLeave})
	assert.Equal(t, EffectRedraw, r.Effect)
	assert.Equal(t, 1, s.Sequence().Len())
}

func TestSetStyleValidates(t *testing.T) {
	s := NewSession()
	assert.ErrorIs(t, s.SetStyle(Style{Color: DefaultStyle().Color, Width: 0}), ErrInvalidAnnotation)
	st, err := NewStyle("#3b82f6", 5)
	require.NoError(t, err)
	require.NoError(t, s.SetStyle(st))
	assert.Equal(t, st, s.Style())
}

func TestSequenceReturnsCopies(t *testing.T) {
	s := NewSession()
	s.BeginStroke(ToolPen, pt(0, 0))
	s.ExtendStroke(ToolPen, pt(1, 1))
	s.CommitStroke(ToolPen, pt(1, 1))

	got := s.Sequence().At(0).(Pen)
	got.Points[0] = pt(100, 100)
	assert.Equal(t, pt(0, 0), s.Sequence().At(0).(Pen).Points[0])
}
