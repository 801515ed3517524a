// Package selection implements the drag-to-select state machine used for
// area screenshots.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"screenshot-pro/pkg/geometry"
)

// MinSelectionSize is the exclusive lower bound, in viewport pixels, on both
// sides of a selection that may be captured.
const MinSelectionSize = 10.0

// State of the selection machine.
type State int

const (
	Idle State = iota
	Selecting
	AwaitingConfirmation
	Confirmed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case AwaitingConfirmation:
		return "awaiting-confirmation"
	case Confirmed:
		return "confirmed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Overlay is the on-page selection UI: dimmed backdrop, live box and the
// dimension readout.
type Overlay interface {
	Show()
	Update(rect geometry.Rect, label string)
	Hide()
}

// Prompt asks the user to accept or reject a finished selection. The answer
// comes back through Machine.Accept or Machine.Reject.
type Prompt interface {
	Show(area geometry.Rect)
	Hide()
}

// Policy reports whether finished selections are captured without asking.
type Policy func(ctx context.Context) (autoSave bool, err error)

// Handoff passes a confirmed area on to the capture pipeline.
type Handoff func(ctx context.Context, area geometry.Rect) error

// Machine tracks one page's selection. It is driven from a single goroutine,
// the one that owns the page's event queue.
type Machine struct {
	state  State
	active bool

	start   geometry.ViewportPoint
	current geometry.ViewportPoint
	area    geometry.Rect

	overlay Overlay
	prompt  Prompt
	policy  Policy
	handoff Handoff
	logger  *slog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithOverlay sets the selection UI.
func WithOverlay(o Overlay) Option { return func(m *Machine) { m.overlay = o } }

// WithPrompt sets the confirmation UI.
func WithPrompt(p Prompt) Option { return func(m *Machine) { m.prompt = p } }

// WithPolicy sets the auto-save lookup.
func WithPolicy(p Policy) Option { return func(m *Machine) { m.policy = p } }

// WithHandoff sets what happens to confirmed areas.
func WithHandoff(h Handoff) Option { return func(m *Machine) { m.handoff = h } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates an inactive machine in the Idle state.
func New(opts ...Option) *Machine {
	m := &Machine{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Active reports whether the selection overlay is installed.
func (m *Machine) Active() bool { return m.active }

// Area returns the last confirmed or pending area.
func (m *Machine) Area() geometry.Rect { return m.area }

// Start installs the overlay and waits for a drag. Calling it while a
// selection is already active does nothing and returns false.
func (m *Machine) Start() bool {
	if m.active {
		return false
	}
	if m.state == AwaitingConfirmation {
		m.hidePrompt()
	}
	m.active = true
	m.state = Idle
	if m.overlay != nil {
		m.overlay.Show()
	}
	return true
}

// PointerDown anchors a new selection at p.
func (m *Machine) PointerDown(p geometry.ViewportPoint) {
	if !m.active {
		return
	}
	m.state = Selecting
	m.start, m.current = p, p
	m.update()
}

// PointerMove stretches the live rectangle to p. Only the start and the
// latest point are kept, however often it is called.
func (m *Machine) PointerMove(p geometry.ViewportPoint) {
	if !m.active || m.state != Selecting {
		return
	}
	m.current = p
	m.update()
}

// PointerUp finishes the drag at p. The overlay is removed before anything
// else happens so it never shows up in the capture. Selections not larger
// than MinSelectionSize on both sides are dropped silently.
func (m *Machine) PointerUp(ctx context.Context, p geometry.ViewportPoint) {
	if !m.active || m.state != Selecting {
		return
	}
	m.current = p
	rect := geometry.NormalizeSelection(m.start, m.current)
	m.teardown()

	if !(rect.Width > MinSelectionSize && rect.Height > MinSelectionSize) {
		m.state = Idle
		return
	}
	m.area = rect

	autoSave := false
	if m.policy != nil {
		v, err := m.policy(ctx)
		if err != nil {
			m.logger.Warn("auto-save setting unavailable, asking instead", "error", err)
		} else {
			autoSave = v
		}
	}

	if autoSave {
		m.confirm(ctx)
		return
	}
	m.state = AwaitingConfirmation
	if m.prompt != nil {
		m.prompt.Show(rect)
	}
}

// Accept confirms a pending selection and hands it off.
func (m *Machine) Accept(ctx context.Context) {
	if m.state != AwaitingConfirmation {
		return
	}
	m.hidePrompt()
	m.confirm(ctx)
}

// Reject drops a pending selection.
func (m *Machine) Reject() {
	if m.state != AwaitingConfirmation {
		return
	}
	m.hidePrompt()
	m.state = Idle
}

// Cancel abandons whatever is in progress. It is allowed in every state and
// removes all selection UI before returning.
func (m *Machine) Cancel() {
	if m.active {
		m.teardown()
	}
	if m.state == AwaitingConfirmation {
		m.hidePrompt()
	}
	m.state = Cancelled
}

// Key handles a key press while the overlay is up. Escape cancels.
func (m *Machine) Key(name string) {
	if m.active && name == "Escape" {
		m.Cancel()
	}
}

func (m *Machine) confirm(ctx context.Context) {
	m.state = Confirmed
	if m.handoff == nil {
		return
	}
	if err := m.handoff(ctx, m.area); err != nil {
		m.logger.Error("hand off selection", "area", m.area, "error", err)
	}
}

func (m *Machine) update() {
	if m.overlay == nil {
		return
	}
	rect := geometry.NormalizeSelection(m.start, m.current)
	m.overlay.Update(rect, Label(rect))
}

func (m *Machine) teardown() {
	m.active = false
	if m.overlay != nil {
		m.overlay.Hide()
	}
}

func (m *Machine) hidePrompt() {
	if m.prompt != nil {
		m.prompt.Hide()
	}
}

// Label is the dimension readout shown while dragging, e.g. "120px × 45px".
func Label(r geometry.Rect) string {
	return fmt.Sprintf("%spx × %spx", num(r.Width), num(r.Height))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
