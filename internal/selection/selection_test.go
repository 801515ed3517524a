package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenshot-pro/pkg/geometry"
)

type fakeOverlay struct {
	shown   bool
	updates int
	last    geometry.Rect
	label   string
}

func (o *fakeOverlay) Show() { o.shown = true }
func (o *fakeOverlay) Hide() { o.shown = false }
func (o *fakeOverlay) Update(r geometry.Rect, label string) {
	o.updates++
	o.last, o.label = r, label
}

type fakePrompt struct {
	shown bool
	area  geometry.Rect
}

func (p *fakePrompt) Show(area geometry.Rect) { p.shown, p.area = true, area }
func (p *fakePrompt) Hide()                   { p.shown = false }

type harness struct {
	m       *Machine
	overlay *fakeOverlay
	prompt  *fakePrompt
	handed  []geometry.Rect
}

func newHarness(policy Policy) *harness {
	h := &harness{overlay: &fakeOverlay{}, prompt: &fakePrompt{}}
	h.m = New(
		WithOverlay(h.overlay),
		WithPrompt(h.prompt),
		WithPolicy(policy),
		WithHandoff(func(_ context.Context, area geometry.Rect) error {
			h.handed = append(h.handed, area)
			return nil
		}),
	)
	return h
}

func autoSave(v bool) Policy {
	return func(context.Context) (bool, error) { return v, nil }
}

func vp(x, y float64) geometry.ViewportPoint { return geometry.ViewportPoint{X: x, Y: y} }

func (h *harness) drag(from, to geometry.ViewportPoint) {
	ctx := context.Background()
	h.m.Apply(ctx, Command{Kind: CmdStart})
	h.m.Apply(ctx, Command{Kind: CmdPointerDown, Point: from})
	h.m.Apply(ctx, Command{Kind: CmdPointerMove, Point: to})
	h.m.Apply(ctx, Command{Kind: CmdPointerUp, Point: to})
}

func TestSmallSelectionIsNeverConfirmed(t *testing.T) {
	h := newHarness(autoSave(true))
	h.drag(vp(100, 100), vp(105, 105))

	assert.Equal(t, Idle, h.m.State())
	assert.False(t, h.m.Active())
	assert.False(t, h.overlay.shown)
	assert.False(t, h.prompt.shown)
	assert.Empty(t, h.handed)
}

func TestSelectionExactlyAtThresholdIsDropped(t *testing.T) {
	h := newHarness(autoSave(true))
	h.drag(vp(0, 0), vp(10, 50))
	assert.Equal(t, Idle, h.m.State())
	assert.Empty(t, h.handed)
}

func TestAutoSaveHandsOffImmediately(t *testing.T) {
	h := newHarness(autoSave(true))
	h.drag(vp(10, 10), vp(110, 60))

	assert.Equal(t, Confirmed, h.m.State())
	assert.False(t, h.overlay.shown)
	assert.False(t, h.prompt.shown)
	require.Len(t, h.handed, 1)
	assert.Equal(t, geometry.NewRect(10, 10, 100, 50), h.handed[0])
}

func TestDragDirectionDoesNotMatter(t *testing.T) {
	h := newHarness(autoSave(true))
	h.drag(vp(110, 60), vp(10, 10))
	require.Len(t, h.handed, 1)
	assert.Equal(t, geometry.NewRect(10, 10, 100, 50), h.handed[0])
}

func TestConfirmationPromptAccept(t *testing.T) {
	h := newHarness(autoSave(false))
	h.drag(vp(10, 10), vp(110, 60))

	require.Equal(t, AwaitingConfirmation, h.m.State())
	assert.True(t, h.prompt.shown)
	assert.Equal(t, geometry.NewRect(10, 10, 100, 50), h.prompt.area)
	assert.False(t, h.overlay.shown)
	assert.Empty(t, h.handed)

	state := h.m.Apply(context.Background(), Command{Kind: CmdAccept})
	assert.Equal(t, Confirmed, state)
	assert.False(t, h.prompt.shown)
	require.Len(t, h.handed, 1)
}

func TestConfirmationPromptReject(t *testing.T) {
	h := newHarness(autoSave(false))
	h.drag(vp(10, 10), vp(110, 60))

	state := h.m.Apply(context.Background(), Command{Kind: CmdReject})
	assert.Equal(t, Idle, state)
	assert.False(t, h.prompt.shown)
	assert.Empty(t, h.handed)
}

func TestPolicyErrorFallsBackToPrompt(t *testing.T) {
	h := newHarness(func(context.Context) (bool, error) {
		return false, errors.New("storage unavailable")
	})
	h.drag(vp(0, 0), vp(50, 50))

	assert.Equal(t, AwaitingConfirmation, h.m.State())
	assert.True(t, h.prompt.shown)
	assert.Empty(t, h.handed)
}

func TestStartIsIdempotent(t *testing.T) {
	h := newHarness(autoSave(true))
	require.True(t, h.m.Start())
	h.m.PointerDown(vp(5, 5))

	assert.False(t, h.m.Start())
	assert.Equal(t, Selecting, h.m.State())
}

func TestEscapeCancelsAndTearsDown(t *testing.T) {
	h := newHarness(autoSave(true))
	ctx := context.Background()
	h.m.Apply(ctx, Command{Kind: CmdStart})
	h.m.Apply(ctx, Command{Kind: CmdPointerDown, Point: vp(0, 0)})
	h.m.Apply(ctx, Command{Kind: CmdPointerMove, Point: vp(80, 80)})
	require.True(t, h.overlay.shown)

	state := h.m.Apply(ctx, Command{Kind: CmdKey, Key: "Escape"})
	assert.Equal(t, Cancelled, state)
	assert.False(t, h.m.Active())
	assert.False(t, h.overlay.shown)

	// Pointer events after cancel do nothing.
	h.m.Apply(ctx, Command{Kind: CmdPointerUp, Point: vp(80, 80)})
	assert.Equal(t, Cancelled, h.m.State())
	assert.Empty(t, h.handed)
}

func TestCancelHidesPendingPrompt(t *testing.T) {
	h := newHarness(autoSave(false))
	h.drag(vp(0, 0), vp(50, 50))
	require.True(t, h.prompt.shown)

	h.m.Cancel()
	assert.Equal(t, Cancelled, h.m.State())
	assert.False(t, h.prompt.shown)
}

func TestOtherKeysIgnored(t *testing.T) {
	h := newHarness(autoSave(true))
	h.m.Start()
	h.m.Key("Enter")
	assert.True(t, h.m.Active())
	assert.Equal(t, Idle, h.m.State())
}

func TestLiveLabelTracksLatestPoint(t *testing.T) {
	h := newHarness(autoSave(true))
	h.m.Start()
	h.m.PointerDown(vp(10, 10))
	for i := 1; i <= 50; i++ {
		h.m.PointerMove(vp(10+float64(i), 10+float64(i)/2))
	}
	assert.Equal(t, geometry.NewRect(10, 10, 50, 25), h.overlay.last)
	assert.Equal(t, "50px × 25px", h.overlay.label)
}

func TestRestartAfterConfirm(t *testing.T) {
	h := newHarness(autoSave(true))
	h.drag(vp(0, 0), vp(50, 50))
	require.Equal(t, Confirmed, h.m.State())

	assert.True(t, h.m.Start())
	assert.Equal(t, Idle, h.m.State())
	assert.True(t, h.overlay.shown)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "120px × 45px", Label(geometry.NewRect(0, 0, 120, 45)))
	assert.Equal(t, "12.5px × 3px", Label(geometry.NewRect(0, 0, 12.5, 3)))
}
