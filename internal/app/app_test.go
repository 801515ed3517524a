package app

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenshot-pro/internal/capture"
	"screenshot-pro/internal/messaging"
	"screenshot-pro/internal/store"
	"screenshot-pro/pkg/geometry"
)

type fakeHost struct {
	mu         sync.Mutex
	frame      image.Image
	captureErr error
	active     *capture.Tab
	current    WindowBounds
	created    []WindowSpec
	sidePanels []int
	panelErr   error
}

func (h *fakeHost) ActiveTab(context.Context) (capture.Tab, bool, error) {
	if h.active == nil {
		return capture.Tab{}, false, nil
	}
	return *h.active, true, nil
}

func (h *fakeHost) CaptureVisibleTab(context.Context, int) (image.Image, error) {
	return h.frame, h.captureErr
}

func (h *fakeHost) CurrentWindow(context.Context) (WindowBounds, error) { return h.current, nil }

func (h *fakeHost) CreateWindow(_ context.Context, spec WindowSpec) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created = append(h.created, spec)
	return 42, nil
}

func (h *fakeHost) OpenSidePanel(_ context.Context, tabID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sidePanels = append(h.sidePanels, tabID)
	return h.panelErr
}

func solidFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x40, A: 0xff})
		}
	}
	return img
}

type fixture struct {
	bus     *messaging.Bus
	host    *fakeHost
	kv      *store.Memory
	bg      *Background
	notices chan string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bus:     messaging.NewBus(messaging.WithTimeout(2 * time.Second)),
		host:    &fakeHost{frame: solidFrame(120, 80), current: WindowBounds{Left: 100, Top: 50, Width: 1600, Height: 1000}},
		kv:      store.NewMemory(),
		notices: make(chan string, 8),
	}
	f.bg = NewBackground(f.host, f.bus, f.kv)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ep, err := f.bg.Register(f.bus)
	require.NoError(t, err)
	go ep.Run(ctx)

	page, err := f.bus.Register(messaging.PageTarget(7), messaging.HandlerFunc(func(_ context.Context, req messaging.Request) error {
		if req.Message.Action == messaging.ActionShowNotification {
			f.notices <- req.Message.Message
		}
		return nil
	}))
	require.NoError(t, err)
	go page.Run(ctx)
	return f
}

func (f *fixture) send(t *testing.T, msg messaging.Message) messaging.Response {
	t.Helper()
	resp, err := f.bus.Send(context.Background(), messaging.Background, messaging.Request{
		From:    messaging.Origin{Context: messaging.PageTarget(7), TabID: 7, WindowID: 1, URL: "https://example.com/a", Title: "A"},
		Message: msg,
	})
	require.NoError(t, err)
	return resp
}

func TestCaptureAreaMessage(t *testing.T) {
	f := newFixture(t)
	area := geometry.NewRect(10, 10, 40, 20)

	resp := f.send(t, messaging.Message{Action: messaging.ActionCaptureArea, Area: &area, DevicePixelRatio: 1})
	require.True(t, resp.Success, resp.Error)

	list, err := store.NewScreenshots(f.kv).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, store.KindAreaSelection, list[0].Type)
	assert.Equal(t, "https://example.com/a", list[0].URL)
	assert.Equal(t, capture.MsgAreaCaptured, <-f.notices)
}

func TestCaptureAreaMissingArea(t *testing.T) {
	f := newFixture(t)
	resp := f.send(t, messaging.Message{Action: messaging.ActionCaptureArea})
	assert.False(t, resp.Success)
	assert.Equal(t, "missing area", resp.Error)
}

func TestCaptureTabOpensSidebarWhenEnabled(t *testing.T) {
	f := newFixture(t)
	f.host.active = &capture.Tab{ID: 7, WindowID: 1, URL: "https://example.com", Title: "Ex"}

	resp := f.send(t, messaging.Message{Action: messaging.ActionCaptureTab})
	require.True(t, resp.Success, resp.Error)

	assert.Equal(t, []int{7}, f.host.sidePanels)
	assert.Equal(t, capture.MsgTabCaptured, <-f.notices)

	s := store.DefaultSettings()
	s.AutoOpenSidebar = false
	require.NoError(t, store.NewSettingsRepo(f.kv).Save(context.Background(), s))
	resp = f.send(t, messaging.Message{Action: messaging.ActionCaptureTab})
	require.True(t, resp.Success)
	assert.Equal(t, []int{7}, f.host.sidePanels)
}

func TestCaptureTabSidebarFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.host.panelErr = errors.New("no user gesture")
	_, err := f.bg.CaptureTab(context.Background(), capture.Tab{ID: 7})
	assert.NoError(t, err)
}

func TestCaptureFailureIsFailedResponse(t *testing.T) {
	f := newFixture(t)
	f.host.active = &capture.Tab{ID: 7}
	f.host.captureErr = capture.NewPermissionError("not allowed")

	resp := f.send(t, messaging.Message{Action: messaging.ActionCaptureTab})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "not allowed")
	assert.Equal(t, capture.MsgTabFailed, <-f.notices)
}

func TestSaveScreenshotMessage(t *testing.T) {
	f := newFixture(t)
	data, err := json.Marshal(store.Screenshot{URL: "https://x.test", Title: "X", DataURL: "data:image/png;base64,AAAA", Type: store.KindAreaSelection})
	require.NoError(t, err)

	resp := f.send(t, messaging.Message{Action: messaging.ActionSaveScreenshot, Data: data})
	require.True(t, resp.Success, resp.Error)

	list, err := store.NewScreenshots(f.kv).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotZero(t, list[0].ID)
	assert.NotEmpty(t, list[0].Timestamp)
}

func TestSaveAnnotatedScreenshot(t *testing.T) {
	f := newFixture(t)
	saved, err := store.NewScreenshots(f.kv).Add(context.Background(), store.Screenshot{DataURL: "data:old", Type: store.KindFullTab})
	require.NoError(t, err)

	var annotated []store.Screenshot
	f.bg.Events().On(EventScreenshotAnnotated, func(data any) {
		annotated = append(annotated, data.(store.Screenshot))
	})

	resp := f.send(t, messaging.Message{Action: messaging.ActionSaveAnnotatedScreenshot, ScreenshotID: saved.ID, AnnotatedDataURL: "data:new"})
	require.True(t, resp.Success, resp.Error)

	got, err := store.NewScreenshots(f.kv).Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "data:new", got.DataURL)
	require.Len(t, annotated, 1)

	resp = f.send(t, messaging.Message{Action: messaging.ActionSaveAnnotatedScreenshot, ScreenshotID: 999, AnnotatedDataURL: "data:new"})
	assert.False(t, resp.Success)
	assert.Equal(t, "screenshot not found", resp.Error)
}

func TestOpenAnnotationPopupCentered(t *testing.T) {
	f := newFixture(t)
	resp := f.send(t, messaging.Message{Action: messaging.ActionOpenAnnotationPopup, ScreenshotID: 123})
	require.True(t, resp.Success, resp.Error)

	require.Len(t, f.host.created, 1)
	spec := f.host.created[0]
	assert.Equal(t, AnnotationURL(123), spec.URL)
	assert.True(t, spec.Popup)
	assert.True(t, spec.Focused)
	assert.Equal(t, WindowBounds{Left: 300, Top: 150, Width: 1200, Height: 800}, spec.Bounds)
}

func TestCenteredBoundsRounding(t *testing.T) {
	b := CenteredBounds(WindowBounds{Width: 1201, Height: 801}, 1200, 800)
	assert.Equal(t, 1, b.Left)
	assert.Equal(t, 1, b.Top)

	b = CenteredBounds(WindowBounds{Width: 1199, Height: 799}, 1200, 800)
	assert.Equal(t, 0, b.Left)
	assert.Equal(t, 0, b.Top)

	b = CenteredBounds(WindowBounds{Left: -50, Width: 800, Height: 600}, 1200, 800)
	assert.Equal(t, -250, b.Left)
	assert.Equal(t, -100, b.Top)
}

func TestUnknownActionFails(t *testing.T) {
	f := newFixture(t)
	resp := f.send(t, messaging.Message{Action: "bogus"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown action")
}

func TestContextMenuStoresSelectedText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.bg.OnContextMenuClicked(ctx, MenuAddTextInput, "quoted text", capture.Tab{ID: 7, URL: "https://example.com/a"})
	require.NoError(t, err)
	assert.Equal(t, []int{7}, f.host.sidePanels)

	sel, ok, err := store.TakeSelectedText(ctx, f.kv)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "quoted text", sel.Text)
	assert.Equal(t, "https://example.com/a", sel.TabURL)

	require.NoError(t, f.bg.OnContextMenuClicked(ctx, "other", "x", capture.Tab{ID: 7}))
	assert.Len(t, f.host.sidePanels, 1)
}

func TestCaptureAreaCommandReachesPage(t *testing.T) {
	bus := messaging.NewBus()
	bg := NewBackground(&fakeHost{}, bus, store.NewMemory())
	started := make(chan messaging.Action, 1)
	page, err := bus.Register(messaging.PageTarget(3), messaging.HandlerFunc(func(_ context.Context, req messaging.Request) error {
		started <- req.Message.Action
		return nil
	}))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go page.Run(ctx)

	require.NoError(t, bg.OnCommand(context.Background(), CommandCaptureArea, capture.Tab{ID: 3}))
	assert.Equal(t, messaging.ActionStartAreaCapture, <-started)

	err = bg.OnCommand(context.Background(), CommandCaptureArea, capture.Tab{ID: 99})
	assert.ErrorIs(t, err, messaging.ErrNoReceiver)
}

func TestEventsOrder(t *testing.T) {
	e := NewEvents()
	var got []string
	e.On(EventTextSelected, func(d any) { got = append(got, "a:"+d.(string)) })
	e.On(EventTextSelected, func(d any) { got = append(got, "b:"+d.(string)) })
	e.Emit(EventTextSelected, "x")
	e.Emit(EventScreenshotSaved, nil)
	assert.Equal(t, []string{"a:x", "b:x"}, got)
}

func TestWatchStoreEmitsSettingsChanged(t *testing.T) {
	kv := store.NewMemory()
	bg := NewBackground(&fakeHost{}, messaging.NewBus(), kv)
	changed := 0
	bg.Events().On(EventSettingsChanged, func(any) { changed++ })
	stop := bg.WatchStore(kv)
	defer stop()

	require.NoError(t, store.NewSettingsRepo(kv).Save(context.Background(), store.DefaultSettings()))
	assert.Equal(t, 1, changed)
}
