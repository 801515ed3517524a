// Package annotator is the desktop annotation window: the screenshot with its
// live overlay, a tool bar, and the save and close flow.
package annotator

import (
	"image"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"screenshot-pro/internal/annotation"
	"screenshot-pro/internal/editor"
	"screenshot-pro/pkg/geometry"
)

// drawArea shows the screenshot with the editor's overlay and feeds pointer
// events to the editor. Positions are relative to the widget, which plays
// the role of the viewport.
type drawArea struct {
	widget.BaseWidget

	ed      *editor.Editor
	base    *fynecanvas.Image
	overlay *fynecanvas.Image
	min     fyne.Size

	pressed bool
	last    fyne.Position

	// onText is called when the text tool needs a string.
	onText func(*annotation.PendingText)
	// onChange is called after anything that may change the dirty state.
	onChange func()
}

func newDrawArea(ed *editor.Editor, maxSize fyne.Size) *drawArea {
	d := &drawArea{ed: ed, min: fitSize(ed.Size(), maxSize)}
	// Only the overlay layer is replaced when annotations change.
	d.base = d.layer(ed.Base())
	d.overlay = d.layer(ed.Overlay())
	d.ExtendBaseWidget(d)
	return d
}

func (d *drawArea) layer(img image.Image) *fynecanvas.Image {
	l := fynecanvas.NewImageFromImage(img)
	l.FillMode = fynecanvas.ImageFillStretch
	l.ScaleMode = fynecanvas.ImageScaleSmooth
	l.SetMinSize(d.min)
	return l
}

// fitSize scales the image size down, keeping the aspect ratio, until it
// fits in maxSize.
func fitSize(img geometry.Size, maxSize fyne.Size) fyne.Size {
	w, h := float32(img.Width), float32(img.Height)
	if w <= 0 || h <= 0 {
		return maxSize
	}
	scale := min(float32(1), maxSize.Width/w, maxSize.Height/h)
	return fyne.NewSize(w*scale, h*scale)
}

// refreshOverlay swaps in the current overlay pixels.
func (d *drawArea) refreshOverlay() {
	d.overlay.Image = d.ed.Overlay()
	d.overlay.Refresh()
}

func (d *drawArea) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(d.base, d.overlay))
}

func (d *drawArea) MinSize() fyne.Size { return d.min }

func (d *drawArea) Resize(size fyne.Size) {
	d.BaseWidget.Resize(size)
	d.ed.SetViewport(geometry.NewRect(0, 0, float64(size.Width), float64(size.Height)))
}

func point(p fyne.Position) geometry.ViewportPoint {
	return geometry.ViewportPoint{X: float64(p.X), Y: float64(p.Y)}
}

func (d *drawArea) apply(kind annotation.CommandKind, p fyne.Position) {
	res := d.ed.Pointer(kind, point(p))
	switch res.Effect {
	case annotation.EffectNone:
		return
	case annotation.EffectTextPrompt:
		if d.onText != nil && res.Pending != nil {
			d.onText(res.Pending)
		}
		return
	}
	d.refreshOverlay()
	if d.onChange != nil {
		d.onChange()
	}
}

// MouseDown implements desktop.Mouseable.
func (d *drawArea) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	d.pressed = true
	d.last = ev.Position
	d.apply(annotation.CmdPointerDown, ev.Position)
}

// MouseUp implements desktop.Mouseable.
func (d *drawArea) MouseUp(ev *desktop.MouseEvent) {
	if !d.pressed {
		return
	}
	d.pressed = false
	d.apply(annotation.CmdPointerUp, ev.Position)
}

// Dragged implements fyne.Draggable.
func (d *drawArea) Dragged(ev *fyne.DragEvent) {
	if !d.pressed {
		return
	}
	d.last = ev.Position
	d.apply(annotation.CmdPointerMove, ev.Position)
}

// DragEnd implements fyne.Draggable. Some drivers end a drag without a
// MouseUp; the gesture is finished at the last known position.
func (d *drawArea) DragEnd() {
	if !d.pressed {
		return
	}
	d.pressed = false
	d.apply(annotation.CmdPointerUp, d.last)
}

// MouseIn implements desktop.Hoverable.
func (d *drawArea) MouseIn(*desktop.MouseEvent) {}

// MouseMoved implements desktop.Hoverable.
func (d *drawArea) MouseMoved(*desktop.MouseEvent) {}

// MouseOut implements desktop.Hoverable. Leaving the image finishes the
// gesture in progress.
func (d *drawArea) MouseOut() {
	if !d.pressed {
		return
	}
	d.pressed = false
	d.apply(annotation.CmdPointerLeave, d.last)
}

// redraw repaints after changes made outside pointer handling.
func (d *drawArea) redraw() {
	d.refreshOverlay()
	if d.onChange != nil {
		d.onChange()
	}
}
