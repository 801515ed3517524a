package selection

import (
	"context"

	"screenshot-pro/pkg/geometry"
)

// CommandKind identifies an input to the machine.
type CommandKind int

const (
	CmdStart CommandKind = iota
	CmdPointerDown
	CmdPointerMove
	CmdPointerUp
	CmdKey
	CmdCancel
	CmdAccept
	CmdReject
)

// Command is one UI event translated for the machine.
type Command struct {
	Kind  CommandKind
	Point geometry.ViewportPoint
	Key   string
}

// Apply dispatches cmd and returns the resulting state.
func (m *Machine) Apply(ctx context.Context, cmd Command) State {
	switch cmd.Kind {
	case CmdStart:
		m.Start()
	case CmdPointerDown:
		m.PointerDown(cmd.Point)
	case CmdPointerMove:
		m.PointerMove(cmd.Point)
	case CmdPointerUp:
		m.PointerUp(ctx, cmd.Point)
	case CmdKey:
		m.Key(cmd.Key)
	case CmdCancel:
		m.Cancel()
	case CmdAccept:
		m.Accept(ctx)
	case CmdReject:
		m.Reject()
	}
	return m.state
}
