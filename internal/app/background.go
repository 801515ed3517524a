package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"screenshot-pro/internal/capture"
	"screenshot-pro/internal/messaging"
	"screenshot-pro/internal/store"
)

// Keyboard commands.
const (
	CommandCaptureArea = "capture-area"
	CommandCaptureTab  = "capture-tab"
)

// MenuAddTextInput is the id of the selected-text context menu entry.
const MenuAddTextInput = "addTextInput"

// MenuItem is a context menu entry installed by the service.
type MenuItem struct {
	ID       string
	Title    string
	Contexts []string
}

// Menus returns the context menu entries to install.
func Menus() []MenuItem {
	return []MenuItem{{
		ID:       MenuAddTextInput,
		Title:    "Add selected text to screenshot",
		Contexts: []string{"selection"},
	}}
}

var errMissingArea = errors.New("missing area")

// Messenger delivers messages to other contexts.
type Messenger interface {
	messaging.Sender
	Post(ctx context.Context, target string, req messaging.Request) error
}

// PageNotifier shows notices inside one tab's page.
type PageNotifier struct {
	messenger Messenger
	tabID     int
}

// NewPageNotifier creates a notifier for tabID.
func NewPageNotifier(m Messenger, tabID int) *PageNotifier {
	return &PageNotifier{messenger: m, tabID: tabID}
}

// Notify posts a showNotification message. A page that is gone is ignored.
func (n *PageNotifier) Notify(ctx context.Context, message string) {
	err := n.messenger.Post(ctx, messaging.PageTarget(n.tabID), messaging.Request{
		From:    messaging.Origin{Context: messaging.Background},
		Message: messaging.Message{Action: messaging.ActionShowNotification, Message: message},
	})
	if err != nil {
		slog.Debug("notification not delivered", "tab", n.tabID, "error", err)
	}
}

// Background is the long-lived service context.
type Background struct {
	host      Host
	windows   *WindowManager
	messenger Messenger
	kv        store.KV
	shots     *store.Screenshots
	settings  *store.SettingsRepo
	events    *Events
	logger    *slog.Logger
}

// Option configures a Background.
type Option func(*Background)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Background) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithEvents shares an event registry with the service.
func WithEvents(e *Events) Option {
	return func(b *Background) {
		if e != nil {
			b.events = e
		}
	}
}

// WithScreenshots overrides the screenshot repository.
func WithScreenshots(s *store.Screenshots) Option {
	return func(b *Background) {
		if s != nil {
			b.shots = s
		}
	}
}

// NewBackground creates the service.
func NewBackground(host Host, messenger Messenger, kv store.KV, opts ...Option) *Background {
	b := &Background{
		host:      host,
		windows:   NewWindowManager(host),
		messenger: messenger,
		kv:        kv,
		shots:     store.NewScreenshots(kv),
		settings:  store.NewSettingsRepo(kv),
		events:    NewEvents(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Events returns the service's event registry.
func (b *Background) Events() *Events { return b.events }

// Windows returns the window manager.
func (b *Background) Windows() *WindowManager { return b.windows }

// Handler returns the message handler for the background endpoint.
func (b *Background) Handler() messaging.Handler {
	mux := messaging.NewMux()
	mux.HandleFunc(messaging.ActionCaptureArea, b.handleCaptureArea)
	mux.HandleFunc(messaging.ActionSaveScreenshot, b.handleSaveScreenshot)
	mux.HandleFunc(messaging.ActionCaptureTab, b.handleCaptureTab)
	mux.HandleFunc(messaging.ActionOpenAnnotationPopup, b.handleOpenAnnotationPopup)
	mux.HandleFunc(messaging.ActionSaveAnnotatedScreenshot, b.handleSaveAnnotated)
	return mux
}

// Register attaches the service to bus as messaging.Background.
func (b *Background) Register(bus *messaging.Bus) (*messaging.Endpoint, error) {
	return bus.Register(messaging.Background, b.Handler())
}

// WatchStore forwards store changes as events. The returned func stops it.
func (b *Background) WatchStore(o store.Observable) func() {
	return o.OnChanged(func(changes []store.Change) {
		for _, c := range changes {
			b.events.Emit(EventStorageChanged, c)
			if c.Key == store.KeySettings {
				b.events.Emit(EventSettingsChanged, c.NewValue)
			}
		}
	})
}

func (b *Background) pipeline(tab capture.Tab) *capture.Pipeline {
	src := capture.SourceFunc(func(ctx context.Context) (image.Image, error) {
		return b.host.CaptureVisibleTab(ctx, tab.WindowID)
	})
	return capture.NewPipeline(src, b.shots,
		capture.WithNotifier(NewPageNotifier(b.messenger, tab.ID)),
		capture.WithLogger(b.logger))
}

func tabOf(from messaging.Origin) capture.Tab {
	return capture.Tab{ID: from.TabID, WindowID: from.WindowID, URL: from.URL, Title: from.Title}
}

// CaptureTab captures the visible part of tab and opens the side panel when
// the user asked for that.
func (b *Background) CaptureTab(ctx context.Context, tab capture.Tab) (store.Screenshot, error) {
	saved, err := b.pipeline(tab).CaptureTab(ctx, tab)
	if err != nil {
		return store.Screenshot{}, err
	}
	b.events.Emit(EventScreenshotSaved, saved)

	settings, err := b.settings.Load(ctx)
	if err != nil {
		b.logger.Info("could not auto-open sidebar", "error", err)
		return saved, nil
	}
	if settings.AutoOpenSidebar {
		if err := b.windows.OpenSidePanel(ctx, tab.ID); err != nil {
			b.logger.Info("could not auto-open sidebar", "error", err)
		}
	}
	return saved, nil
}

func (b *Background) handleCaptureArea(ctx context.Context, req messaging.Request) error {
	if req.Message.Area == nil {
		return errMissingArea
	}
	tab := tabOf(req.From)
	saved, err := b.pipeline(tab).CaptureArea(ctx, tab, *req.Message.Area, req.Message.DevicePixelRatio)
	if err != nil {
		return err
	}
	b.events.Emit(EventScreenshotSaved, saved)
	return nil
}

func (b *Background) handleSaveScreenshot(ctx context.Context, req messaging.Request) error {
	var s store.Screenshot
	if err := json.Unmarshal(req.Message.Data, &s); err != nil {
		return fmt.Errorf("decode screenshot: %w", err)
	}
	saved, err := b.shots.Add(ctx, s)
	if err != nil {
		return err
	}
	b.events.Emit(EventScreenshotSaved, saved)
	return nil
}

func (b *Background) handleCaptureTab(ctx context.Context, _ messaging.Request) error {
	tab, ok, err := b.host.ActiveTab(ctx)
	if err != nil {
		return fmt.Errorf("active tab: %w", err)
	}
	if !ok {
		return nil
	}
	_, err = b.CaptureTab(ctx, tab)
	return err
}

func (b *Background) handleOpenAnnotationPopup(ctx context.Context, req messaging.Request) error {
	h, err := b.windows.OpenAnnotationSurface(ctx, req.Message.ScreenshotID)
	if err != nil {
		return err
	}
	b.logger.Info("annotation popup opened", "window", h.WindowID, "screenshot", h.ScreenshotID)
	b.events.Emit(EventAnnotationOpened, h)
	return nil
}

func (b *Background) handleSaveAnnotated(ctx context.Context, req messaging.Request) error {
	updated, err := b.shots.ReplaceImage(ctx, req.Message.ScreenshotID, req.Message.AnnotatedDataURL)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.New("screenshot not found")
		}
		return err
	}
	b.logger.Info("annotated screenshot saved", "id", updated.ID)
	b.events.Emit(EventScreenshotAnnotated, updated)
	return nil
}

// OnCommand runs a keyboard command for tab.
func (b *Background) OnCommand(ctx context.Context, command string, tab capture.Tab) error {
	switch command {
	case CommandCaptureArea:
		err := b.messenger.Post(ctx, messaging.PageTarget(tab.ID), messaging.Request{
			From:    messaging.Origin{Context: messaging.Background},
			Message: messaging.Message{Action: messaging.ActionStartAreaCapture},
		})
		if err != nil {
			b.logger.Error("send area capture message", "tab", tab.ID, "error", err)
			return err
		}
		return nil
	case CommandCaptureTab:
		_, err := b.CaptureTab(ctx, tab)
		return err
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// OnContextMenuClicked handles a context menu click. Selected text is stored
// for the side panel, which is then opened.
func (b *Background) OnContextMenuClicked(ctx context.Context, menuID, selectionText string, tab capture.Tab) error {
	if menuID != MenuAddTextInput {
		return nil
	}
	if err := store.PutSelectedText(ctx, b.kv, selectionText, tab.URL); err != nil {
		return err
	}
	b.events.Emit(EventTextSelected, selectionText)
	if err := b.windows.OpenSidePanel(ctx, tab.ID); err != nil {
		b.logger.Error("open side panel", "tab", tab.ID, "error", err)
	}
	return nil
}
