package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"screenshot-pro/internal/app"
	"screenshot-pro/internal/capture"
	"screenshot-pro/internal/messaging"
	"screenshot-pro/internal/store"
)

type tabFlags struct {
	url   string
	title string
}

func (f *tabFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "page URL recorded with the screenshot")
	cmd.Flags().StringVar(&f.title, "title", "", "page title recorded with the screenshot")
}

func (f tabFlags) tab() capture.Tab {
	return capture.Tab{ID: 1, WindowID: 1, URL: f.url, Title: f.title}
}

// newBus builds the in-process message bus from the configuration.
func (e *Env) newBus() *messaging.Bus {
	return messaging.NewBus(
		messaging.WithTimeout(e.Config.Messaging.Timeout()),
		messaging.WithQueueSize(e.Config.Messaging.QueueSize),
		messaging.WithLogger(e.Logger),
	)
}

// newHost builds a desktop host capturing from imagePath.
func (e *Env) newHost(imagePath string, tab capture.Tab, launch app.Launcher) *app.DesktopHost {
	h := &app.DesktopHost{
		Tab:    tab,
		Screen: app.WindowBounds{Width: 1920, Height: 1080},
		Launch: launch,
		Logger: e.Logger,
	}
	if imagePath != "" {
		h.Source = capture.WithTimeout(capture.FileSource{Path: imagePath}, e.Config.Capture.Timeout())
	}
	return h
}

func newServeCommand(env *Env) *cobra.Command {
	var (
		tab       tabFlags
		imagePath string
		noWindows bool
		reload    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the background service and the websocket bridge",
		Long: "serve runs the background message handlers, exposes them to other\n" +
			"processes over a websocket bridge and follows store changes made by\n" +
			"other processes. Captures read the image given with --image.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return env.serve(ctx, imagePath, tab.tab(), !noWindows, reload)
		},
	}
	tab.register(cmd)
	cmd.Flags().StringVar(&imagePath, "image", "", "image file standing in for the visible tab")
	cmd.Flags().BoolVar(&noWindows, "no-windows", false, "do not launch annotation windows")
	cmd.Flags().BoolVar(&reload, "reload", false, "restart when the executable is rebuilt")
	return cmd
}

func (e *Env) serve(ctx context.Context, imagePath string, tab capture.Tab, windows, reload bool) error {
	logger := e.Logger
	var launch app.Launcher
	if windows {
		storePath := e.Store.Path()
		launch = app.ExecLauncher(func(id int64) []string {
			return []string{"annotate", strconv.FormatInt(id, 10), "--store", storePath}
		}, logger)
	}

	bus := e.newBus()
	bg := app.NewBackground(e.newHost(imagePath, tab, launch), bus, e.Store, app.WithLogger(logger))
	ep, err := bg.Register(bus)
	if err != nil {
		return err
	}
	for _, m := range app.Menus() {
		logger.Debug("context menu installed", "id", m.ID, "title", m.Title)
	}
	bg.Events().On(app.EventScreenshotSaved, func(data any) {
		if s, ok := data.(store.Screenshot); ok {
			logger.Info("screenshot saved", "id", s.ID, "type", s.Type)
		}
	})
	bg.Events().On(app.EventSettingsChanged, func(any) {
		logger.Info("settings changed")
	})
	stopWatch := bg.WatchStore(e.Store)
	defer stopWatch()

	// The watcher needs the directory before the first write creates it.
	if err := os.MkdirAll(filepath.Dir(e.Store.Path()), 0o755); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ep.Run(ctx) })
	g.Go(func() error {
		return store.NewWatcher(e.Store, e.Config.Store.WatchDebounce(), logger).Run(ctx)
	})
	g.Go(func() error {
		return messaging.NewBridge(bus, logger).ListenAndServe(ctx, e.Config.Bridge.Addr, e.Config.Bridge.Path)
	})
	var binary *app.BinaryWatcher
	if reload {
		if binary, err = app.NewBinaryWatcher("", 0, logger); err != nil {
			return err
		}
		g.Go(func() error { return binary.Run(ctx) })
	}
	logger.Info("service started", "store", e.Store.Path(), "bridge", e.Config.Bridge.Addr+e.Config.Bridge.Path)
	err = g.Wait()
	if errors.Is(err, app.ErrBinaryUpdated) {
		logger.Info("restarting", "path", binary.Path())
		return app.Reexec(binary.Path())
	}
	logger.Info("service stopped")
	return err
}
