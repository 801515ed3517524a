package annotator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"screenshot-pro/internal/annotation"
	"screenshot-pro/internal/editor"
	"screenshot-pro/internal/store"
	"screenshot-pro/pkg/colorutil"
	"screenshot-pro/ui/prefs"
)

// AppID identifies the fyne application for its own preference storage.
const AppID = "com.screenshot-pro.annotator"

// Annotation window size; the image is scaled down to fit inside it.
const (
	windowWidth  = 1200
	windowHeight = 800
	toastTimeout = 3 * time.Second
)

var toolOrder = []annotation.Tool{
	annotation.ToolPen,
	annotation.ToolRectangle,
	annotation.ToolCircle,
	annotation.ToolArrow,
	annotation.ToolText,
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	prefsPath string
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPrefsPath overrides where the tool bar choices are remembered.
func WithPrefsPath(path string) Option {
	return func(o *options) { o.prefsPath = path }
}

// Run opens the annotation window for screenshot id and blocks until it is
// closed or ctx is cancelled.
func Run(ctx context.Context, kv store.KV, id int64, opts ...Option) error {
	o := options{logger: slog.Default(), prefsPath: prefs.DefaultPath()}
	for _, opt := range opts {
		opt(&o)
	}

	a := app.NewWithID(AppID)
	a.Settings().SetTheme(&Theme{})
	w := a.NewWindow("Annotate")

	t := newToast()
	ed, err := editor.Open(ctx, kv, id, editor.WithLogger(o.logger), editor.WithNotifier(t))
	if err != nil {
		return err
	}
	defer ed.Close()

	v := newView(ctx, ed, w, t, prefs.Load(o.prefsPath), o.logger)
	w.SetTitle(ed.Title())
	w.SetContent(v.content())
	w.Resize(fyne.NewSize(windowWidth, windowHeight))
	w.CenterOnScreen()
	w.SetCloseIntercept(v.requestClose)
	v.bindKeys()

	stop := context.AfterFunc(ctx, a.Quit)
	defer stop()

	o.logger.Info("annotation window open", "id", id, "size", ed.Size())
	w.ShowAndRun()
	v.savePrefs()
	return nil
}

// view is the window contents and its handlers. Everything runs on the
// fyne event goroutine except toast expiry.
type view struct {
	ctx    context.Context
	ed     *editor.Editor
	win    fyne.Window
	toast  *toast
	prefs  *prefs.Prefs
	logger *slog.Logger

	area   *drawArea
	tools  *widget.RadioGroup
	colors *widget.Select
	width  *widget.Slider
	undo   *widget.Button
	clear  *widget.Button
}

func newView(ctx context.Context, ed *editor.Editor, w fyne.Window, t *toast, p *prefs.Prefs, logger *slog.Logger) *view {
	v := &view{ctx: ctx, ed: ed, win: w, toast: t, prefs: p, logger: logger}

	v.area = newDrawArea(ed, fyne.NewSize(windowWidth, windowHeight-80))
	v.area.onText = v.promptText
	v.area.onChange = v.refreshButtons

	names := make([]string, len(toolOrder))
	for i, tool := range toolOrder {
		names[i] = tool.String()
	}
	v.tools = widget.NewRadioGroup(names, v.selectTool)
	v.tools.Horizontal = true
	v.tools.Required = true

	palette := colorutil.Palette()
	hexes := make([]string, len(palette))
	for i, c := range palette {
		hexes[i] = colorutil.Hex(c)
	}
	v.colors = widget.NewSelect(hexes, func(string) { v.applyStyle() })

	v.width = widget.NewSlider(prefs.MinWidth, prefs.MaxWidth)
	v.width.Step = 1
	v.width.OnChangeEnded = func(float64) { v.applyStyle() }

	v.undo = widget.NewButtonWithIcon("Undo", theme.ContentUndoIcon(), func() {
		v.ed.Undo()
		v.area.redraw()
	})
	v.clear = widget.NewButtonWithIcon("Clear", theme.DeleteIcon(), v.confirmClear)

	v.restore()
	return v
}

// restore applies the remembered tool bar state, falling back to the colour
// the stored settings gave the session.
func (v *view) restore() {
	colorValue, width := v.prefs.Style()
	if colorValue == "" {
		colorValue = colorutil.Hex(v.ed.Session().Style().Color)
	}
	v.width.SetValue(width)
	v.colors.SetSelected(colorValue)
	if err := v.ed.SetStyle(colorValue, width); err != nil {
		v.logger.Warn("restore style", "color", colorValue, "width", width, "error", err)
	}
	v.tools.SetSelected(v.prefs.ToolValue().String())
	v.refreshButtons()
}

func (v *view) content() fyne.CanvasObject {
	bar := container.NewHBox(
		v.tools,
		widget.NewSeparator(),
		v.colors,
		container.NewGridWrap(fyne.NewSize(120, v.width.MinSize().Height), v.width),
		widget.NewSeparator(),
		v.undo,
		v.clear,
		widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), v.save),
		widget.NewButtonWithIcon("Close", theme.CancelIcon(), v.requestClose),
	)
	return container.NewBorder(bar, v.toast.label, nil, nil, container.NewCenter(v.area))
}

func (v *view) selectTool(name string) {
	tool, err := annotation.ParseTool(name)
	if err != nil {
		return
	}
	v.ed.SelectTool(tool)
	v.prefs.SetTool(tool)
	v.area.redraw()
}

func (v *view) applyStyle() {
	colorValue := v.colors.Selected
	if colorValue == "" {
		return
	}
	if err := v.ed.SetStyle(colorValue, v.width.Value); err != nil {
		v.logger.Warn("set style", "error", err)
		return
	}
	v.prefs.SetStyle(colorValue, v.width.Value)
}

func (v *view) refreshButtons() {
	if v.ed.Session().Sequence().Len() == 0 {
		v.undo.Disable()
		v.clear.Disable()
		return
	}
	v.undo.Enable()
	v.clear.Enable()
}

func (v *view) confirmClear() {
	dialog.ShowConfirm("Clear annotations", "Remove every annotation?", func(ok bool) {
		if !ok {
			return
		}
		v.ed.Clear()
		v.area.redraw()
	}, v.win)
}

// promptText asks for the text-tool string. Dismissing the dialog adds
// nothing.
func (v *view) promptText(pt *annotation.PendingText) {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("Text")
	items := []*widget.FormItem{widget.NewFormItem("Text", entry)}
	dialog.ShowForm("Add text", "Add", "Cancel", items, func(ok bool) {
		if _, added := v.ed.ResolveText(pt, entry.Text, ok); added {
			v.area.redraw()
		}
	}, v.win)
	v.win.Canvas().Focus(entry)
}

func (v *view) save() {
	if err := v.ed.Save(v.ctx); err != nil {
		// Already logged and announced by the editor; annotations are kept.
		return
	}
	v.refreshButtons()
}

// requestClose closes the window, asking first when unsaved annotations
// would be lost.
func (v *view) requestClose() {
	if !v.ed.NeedsCloseConfirmation() {
		v.win.Close()
		return
	}
	dialog.ShowConfirm("Discard annotations?", "You have unsaved annotations. Close without saving?", func(ok bool) {
		if ok {
			v.win.Close()
		}
	}, v.win)
}

func (v *view) bindKeys() {
	c := v.win.Canvas()
	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape && v.ed.Key("Escape", false) == editor.KeyClose {
			v.requestClose()
		}
	})
	for _, mod := range []fyne.KeyModifier{fyne.KeyModifierControl, fyne.KeyModifierSuper} {
		c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: mod}, func(fyne.Shortcut) {
			if v.ed.Key("z", true) == editor.KeyUndo {
				v.area.redraw()
			}
		})
	}
}

func (v *view) savePrefs() {
	if err := v.prefs.Save(); err != nil {
		v.logger.Warn("save annotator preferences", "error", err)
	}
}

// toast shows editor notices in the status line for a few seconds.
type toast struct {
	label *widget.Label

	mu    sync.Mutex
	timer *time.Timer
}

func newToast() *toast {
	l := widget.NewLabel("")
	l.Alignment = fyne.TextAlignCenter
	l.Hide()
	return &toast{label: l}
}

// Notify implements editor.Notifier.
func (t *toast) Notify(_ context.Context, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.label.SetText(message)
	t.label.Show()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(toastTimeout, t.label.Hide)
}
