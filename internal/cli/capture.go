package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"screenshot-pro/internal/app"
	"screenshot-pro/internal/capture"
	"screenshot-pro/internal/messaging"
	"screenshot-pro/internal/selection"
	"screenshot-pro/internal/store"
	"screenshot-pro/pkg/geometry"
)

// actionFlush is answered by the page once everything queued before it has
// been handled.
const actionFlush messaging.Action = "flush"

func newCaptureCommand(env *Env) *cobra.Command {
	var (
		tab       tabFlags
		imagePath string
		area      string
		dpr       float64
		yes       bool
	)
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture the visible tab, or an area of it, from an image file",
		Example: "  screenshot-pro capture --image page.png --url https://example.com\n" +
			"  screenshot-pro capture --image page.png --area 10,10,100,50 --dpr 2",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if imagePath == "" {
				return errors.New("--image is required")
			}
			opts := captureOptions{image: imagePath, tab: tab.tab(), dpr: dpr, yes: yes, in: cmd.InOrStdin()}
			if !cmd.Flags().Changed("dpr") {
				opts.dpr = env.Config.Capture.DevicePixelRatio
			}
			if area != "" {
				r, err := parseArea(area)
				if err != nil {
					return err
				}
				opts.area = &r
			}
			return env.capture(cmd.Context(), opts)
		},
	}
	tab.register(cmd)
	cmd.Flags().StringVar(&imagePath, "image", "", "image file standing in for the visible tab")
	cmd.Flags().StringVar(&area, "area", "", "selected area in CSS pixels: x,y,width,height")
	cmd.Flags().Float64Var(&dpr, "dpr", 1, "device pixel ratio of the page")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "save the selection without asking")
	return cmd
}

type captureOptions struct {
	image string
	tab   capture.Tab
	area  *geometry.Rect
	dpr   float64
	yes   bool
	in    io.Reader
}

// parseArea reads "x,y,width,height".
func parseArea(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, fmt.Errorf("area %q: want x,y,width,height", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("area %q: %w", s, err)
		}
		v[i] = f
	}
	return geometry.NewRect(v[0], v[1], v[2], v[3]), nil
}

func (e *Env) capture(ctx context.Context, opts captureOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := e.newBus()
	bg := app.NewBackground(e.newHost(opts.image, opts.tab, nil), bus, e.Store, app.WithLogger(e.Logger))
	bgEndpoint, err := bg.Register(bus)
	if err != nil {
		return err
	}
	go bgEndpoint.Run(ctx)

	pg := newPage(e, bus, opts)
	pageEndpoint, err := bus.Register(messaging.PageTarget(opts.tab.ID), pg)
	if err != nil {
		return err
	}
	go pageEndpoint.Run(ctx)

	var result selectionResult
	if opts.area == nil {
		if _, err := bg.CaptureTab(ctx, opts.tab); err != nil {
			return err
		}
		result.state = selection.Confirmed
	} else {
		if err := bg.OnCommand(ctx, app.CommandCaptureArea, opts.tab); err != nil {
			return err
		}
		result = <-pg.done
	}

	// Notices posted by the pipeline are queued behind the selection.
	if _, err := bus.Send(ctx, messaging.PageTarget(opts.tab.ID), messaging.Request{
		Message: messaging.Message{Action: actionFlush},
	}); err != nil {
		return err
	}

	switch {
	case result.err != nil:
		return result.err
	case result.state == selection.Idle && result.small:
		_, err = fmt.Fprintf(e.Out, "selection too small (must exceed %gpx on both sides)\n", selection.MinSelectionSize)
		return err
	case result.state != selection.Confirmed:
		_, err = fmt.Fprintln(e.Out, "selection discarded")
		return err
	}

	saved, ok, err := store.NewScreenshots(e.Store).Latest(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("capture did not store a screenshot")
	}
	_, err = fmt.Fprintf(e.Out, "saved %d (%s)\n", saved.ID, saved.Type)
	return err
}

type selectionResult struct {
	state selection.State
	small bool
	err   error
}

// page plays the content script of one tab: it runs the selection when the
// background asks for it and prints the notices it is sent.
type page struct {
	env  *Env
	bus  *messaging.Bus
	opts captureOptions
	done chan selectionResult
}

func newPage(env *Env, bus *messaging.Bus, opts captureOptions) *page {
	return &page{env: env, bus: bus, opts: opts, done: make(chan selectionResult, 1)}
}

func (p *page) HandleMessage(ctx context.Context, req messaging.Request) error {
	switch req.Message.Action {
	case messaging.ActionStartAreaCapture:
		p.done <- p.selectArea(ctx)
	case messaging.ActionShowNotification:
		fmt.Fprintln(p.env.Out, req.Message.Message)
	case actionFlush:
	default:
		return fmt.Errorf("%w: %s", messaging.ErrUnknownAction, req.Message.Action)
	}
	return nil
}

func (p *page) origin() messaging.Origin {
	t := p.opts.tab
	return messaging.Origin{
		Context:  messaging.PageTarget(t.ID),
		TabID:    t.ID,
		WindowID: t.WindowID,
		URL:      t.URL,
		Title:    t.Title,
	}
}

// selectArea replays the requested area as a drag through the selection
// machine and hands a confirmed area to the background.
func (p *page) selectArea(ctx context.Context) selectionResult {
	var handoffErr error
	prompt := &linePrompt{}
	m := selection.New(
		selection.WithOverlay(logOverlay{p.env.Logger}),
		selection.WithPrompt(prompt),
		selection.WithLogger(p.env.Logger),
		selection.WithPolicy(func(ctx context.Context) (bool, error) {
			if p.opts.yes {
				return true, nil
			}
			s, err := store.NewSettingsRepo(p.env.Store).Load(ctx)
			return s.AutoSaveSelection, err
		}),
		selection.WithHandoff(func(ctx context.Context, area geometry.Rect) error {
			resp, err := p.bus.Send(ctx, messaging.Background, messaging.Request{
				From: p.origin(),
				Message: messaging.Message{
					Action:           messaging.ActionCaptureArea,
					Area:             &area,
					DevicePixelRatio: p.opts.dpr,
				},
			})
			if err == nil {
				err = resp.Err()
			}
			handoffErr = err
			return err
		}),
	)

	a := *p.opts.area
	m.Start()
	m.PointerDown(geometry.ViewportPoint{X: a.X, Y: a.Y})
	end := geometry.ViewportPoint{X: a.X + a.Width, Y: a.Y + a.Height}
	m.PointerMove(end)
	m.PointerUp(ctx, end)

	if m.State() == selection.AwaitingConfirmation {
		if ok, err := confirm(p.env.Out, p.opts.in, prompt.area); err != nil {
			m.Cancel()
			return selectionResult{state: m.State(), err: err}
		} else if ok {
			m.Accept(ctx)
		} else {
			m.Reject()
			return selectionResult{state: selection.Cancelled}
		}
	}
	return selectionResult{
		state: m.State(),
		small: m.State() == selection.Idle,
		err:   handoffErr,
	}
}

type logOverlay struct{ logger *slog.Logger }

func (o logOverlay) Show() { o.logger.Debug("selection overlay shown") }
func (o logOverlay) Hide() { o.logger.Debug("selection overlay hidden") }
func (o logOverlay) Update(r geometry.Rect, label string) {
	o.logger.Debug("selection", "rect", r, "label", label)
}

type linePrompt struct {
	area geometry.Rect
}

func (p *linePrompt) Show(area geometry.Rect) { p.area = area }
func (p *linePrompt) Hide()                   {}

// confirm asks on out and reads a y/n answer from in. End of input is "no".
func confirm(out io.Writer, in io.Reader, area geometry.Rect) (bool, error) {
	fmt.Fprintf(out, "Save selection %s? [y/N] ", selection.Label(area))
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
