// Package editor binds an annotation session to a screenshot: pointer input
// goes through the session, the renderer keeps the overlay current, and Save
// burns the overlay into the image.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"screenshot-pro/internal/annotation"
	"screenshot-pro/internal/raster"
	"screenshot-pro/internal/render"
	"screenshot-pro/internal/store"
	"screenshot-pro/pkg/colorutil"
	"screenshot-pro/pkg/geometry"
)

// User-facing notices.
const (
	MsgSaved      = "Annotations saved"
	MsgSaveFailed = "Failed to save annotations"
)

// ErrClosed is returned by operations on a closed editor.
var ErrClosed = errors.New("editor closed")

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// KeyResult is what a key press asks the view to do.
type KeyResult int

const (
	KeyNone KeyResult = iota
	KeyUndo
	KeyClose
)

// Editor is one open annotation window.
type Editor struct {
	record  store.Screenshot
	base    image.Image
	size    geometry.Size
	element geometry.Rect

	session *annotation.Session
	engine  *render.Engine
	surface *render.Surface

	saver    Saver
	notifier Notifier
	logger   *slog.Logger

	ownEngine bool
	dirty     bool
	closed    bool
}

// Option configures an Editor.
type Option func(*Editor)

// WithSaver sets where Save writes to.
func WithSaver(s Saver) Option { return func(e *Editor) { e.saver = s } }

// WithNotifier sets who is told about save results.
func WithNotifier(n Notifier) Option { return func(e *Editor) { e.notifier = n } }

// WithEngine shares a render engine. The editor does not close it.
func WithEngine(eng *render.Engine) Option { return func(e *Editor) { e.engine = eng } }

// WithSession replaces the default annotation session.
func WithSession(s *annotation.Session) Option { return func(e *Editor) { e.session = s } }

// WithLogger sets the editor logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// SessionFromSettings builds a session using the user's annotation colour.
// Text follows the stroke width unless the user changed the text size.
func SessionFromSettings(s store.Settings) *annotation.Session {
	style := annotation.DefaultStyle()
	if c, err := colorutil.Parse(s.AnnotationColor); err == nil {
		style.Color = c
	}
	sizing := annotation.TextSizing{Scale: annotation.DefaultTextScale}
	if s.CustomTextSize() {
		sizing.Fixed = s.AnnotationTextSize
	}
	return annotation.NewSession(annotation.WithStyle(style), annotation.WithTextSizing(sizing))
}

// New opens an editor over record whose decoded image is base.
func New(record store.Screenshot, base image.Image, opts ...Option) *Editor {
	b := base.Bounds()
	e := &Editor{
		record: record,
		base:   base,
		size:   geometry.NewSize(float64(b.Dx()), float64(b.Dy())),
		logger: slog.Default(),
	}
	e.element = geometry.NewRect(0, 0, e.size.Width, e.size.Height)
	for _, opt := range opts {
		opt(e)
	}
	if e.session == nil {
		e.session = annotation.NewSession()
	}
	if e.engine == nil {
		e.engine = render.NewEngine(render.WithLogger(e.logger))
		e.ownEngine = true
	}
	e.surface = render.SurfaceFor(base)
	return e
}

// Open loads screenshot id from shots and opens an editor on it. The session
// follows the stored settings unless WithSession is given.
func Open(ctx context.Context, kv store.KV, id int64, opts ...Option) (*Editor, error) {
	shots := store.NewScreenshots(kv)
	rec, err := shots.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load screenshot: %w", err)
	}
	img, _, err := raster.DecodeDataURL(rec.DataURL)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot %d: %w", id, err)
	}
	settings, err := store.NewSettingsRepo(kv).Load(ctx)
	if err != nil {
		return nil, err
	}
	defaults := []Option{
		WithSession(SessionFromSettings(settings)),
		WithSaver(StoreSaver{Shots: shots}),
	}
	return New(rec, img, append(defaults, opts...)...), nil
}

// Record returns the screenshot being edited.
func (e *Editor) Record() store.Screenshot { return e.record }

// Title is the window title for the editor.
func (e *Editor) Title() string { return "Annotate - " + e.record.Title }

// Base returns the unannotated image.
func (e *Editor) Base() image.Image { return e.base }

// Size returns the intrinsic image size.
func (e *Editor) Size() geometry.Size { return e.size }

// Surface returns the live overlay.
func (e *Editor) Surface() *render.Surface { return e.surface }

// Overlay returns a copy of the overlay as it is now. The live surface keeps
// changing under later input; the copy does not.
func (e *Editor) Overlay() *image.RGBA { return e.surface.Snapshot() }

// Session returns the annotation session.
func (e *Editor) Session() *annotation.Session { return e.session }

// SetViewport records where the image is displayed, in viewport pixels.
// Pointer positions are mapped through it into image pixels.
func (e *Editor) SetViewport(element geometry.Rect) { e.element = element }

// ToImage maps a viewport position onto the image.
func (e *Editor) ToImage(p geometry.ViewportPoint) geometry.ImagePoint {
	return geometry.ToImagePoint(p, e.element, e.size)
}

// Pointer feeds a pointer event given in viewport coordinates.
func (e *Editor) Pointer(kind annotation.CommandKind, p geometry.ViewportPoint) annotation.Result {
	return e.Apply(annotation.Command{Kind: kind, Point: e.ToImage(p)})
}

// SelectTool switches the drawing tool.
func (e *Editor) SelectTool(t annotation.Tool) annotation.Result {
	return e.Apply(annotation.Command{Kind: annotation.CmdSelectTool, Tool: t})
}

// SetStyle changes the colour and width used for new annotations.
func (e *Editor) SetStyle(colorValue string, width float64) error {
	st, err := annotation.NewStyle(colorValue, width)
	if err != nil {
		return err
	}
	return e.session.SetStyle(st)
}

// Apply runs cmd through the session and updates the overlay to match.
func (e *Editor) Apply(cmd annotation.Command) annotation.Result {
	if e.closed {
		return annotation.Result{}
	}
	res := e.session.Apply(cmd)
	switch res.Effect {
	case annotation.EffectSegment:
		e.engine.RenderIncrementalSegment(e.surface, res.From, res.To, e.session.Style())
	case annotation.EffectPreview:
		e.redraw()
	case annotation.EffectRedraw:
		e.redraw()
		if res.Annotation != nil || cmd.Kind == annotation.CmdClear {
			e.dirty = true
		}
	}
	return res
}

// ResolveText answers a text prompt opened by a text-tool click.
func (e *Editor) ResolveText(pt *annotation.PendingText, text string, ok bool) (annotation.Annotation, bool) {
	if pt == nil || e.closed {
		return nil, false
	}
	a, added := pt.Resolve(text, ok)
	if added {
		e.dirty = true
		e.redraw()
	}
	return a, added
}

// Undo removes the newest annotation.
func (e *Editor) Undo() annotation.Result {
	return e.Apply(annotation.Command{Kind: annotation.CmdUndo})
}

// Clear removes every annotation.
func (e *Editor) Clear() annotation.Result {
	return e.Apply(annotation.Command{Kind: annotation.CmdClear})
}

// Key interprets a key press. Escape asks to close; Ctrl+Z or Cmd+Z undoes.
func (e *Editor) Key(key string, ctrlOrMeta bool) KeyResult {
	switch {
	case key == "Escape":
		return KeyClose
	case ctrlOrMeta && strings.EqualFold(key, "z"):
		e.Undo()
		return KeyUndo
	default:
		return KeyNone
	}
}

// NeedsCloseConfirmation reports whether closing would drop annotations that
// were not saved.
func (e *Editor) NeedsCloseConfirmation() bool {
	return e.dirty && e.session.Sequence().Len() > 0
}

// Dirty reports whether annotations changed since opening or the last save.
func (e *Editor) Dirty() bool { return e.dirty }

func (e *Editor) redraw() {
	var preview *annotation.Preview
	if p, ok := e.session.Preview(); ok {
		preview = &p
	}
	e.engine.RenderFrame(e.surface, e.session.Sequence(), preview)
}

// Flatten returns the screenshot with every committed annotation burnt in.
// The in-progress gesture is not included.
func (e *Editor) Flatten() (*image.RGBA, error) {
	overlay := render.SurfaceFor(e.base)
	e.engine.RenderFull(overlay, e.session.Sequence())
	return raster.Flatten(e.base, overlay.Image())
}

// Save flattens and stores the result as the screenshot's new image. The
// store sees one write or none: on failure the record is untouched and the
// annotations stay in the editor for another try.
func (e *Editor) Save(ctx context.Context) error {
	if e.closed {
		return ErrClosed
	}
	if e.saver == nil {
		return errors.New("editor has no saver")
	}
	img, err := e.Flatten()
	if err != nil {
		return e.saveFailed(ctx, fmt.Errorf("flatten: %w", err))
	}
	dataURL, err := raster.EncodeDataURL(img)
	if err != nil {
		return e.saveFailed(ctx, fmt.Errorf("encode: %w", err))
	}
	if err := e.saver.SaveAnnotated(ctx, e.record.ID, dataURL); err != nil {
		return e.saveFailed(ctx, err)
	}
	e.record.DataURL = dataURL
	e.dirty = false
	e.logger.Info("annotations saved", "id", e.record.ID, "annotations", e.session.Sequence().Len())
	e.notify(ctx, MsgSaved)
	return nil
}

func (e *Editor) saveFailed(ctx context.Context, err error) error {
	e.logger.Error("save annotations", "id", e.record.ID, "error", err)
	e.notify(ctx, MsgSaveFailed)
	return err
}

func (e *Editor) notify(ctx context.Context, msg string) {
	if e.notifier != nil {
		e.notifier.Notify(ctx, msg)
	}
}

// Close ends the session. Later input is ignored.
func (e *Editor) Close() {
	if e.closed {
		return
	}
	e.session.CancelGesture()
	if e.ownEngine {
		e.engine.Close()
	}
	e.closed = true
}
