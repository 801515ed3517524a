// Package cli is the command-line front end: it loads configuration, opens
// the store and dispatches to the capture, annotation and storage
// components.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"screenshot-pro/internal/config"
	"screenshot-pro/internal/ocr"
	"screenshot-pro/internal/store"
	"screenshot-pro/internal/version"
)

// Deps are the parts that need native libraries. main wires the real ones;
// tests leave them nil or pass fakes.
type Deps struct {
	// Annotate opens the annotation window for screenshot id and blocks
	// until it is closed.
	Annotate func(ctx context.Context, env *Env, id int64) error
	// NewRecognizer builds an OCR engine. The returned func releases it.
	NewRecognizer func(cfg config.OCRConfig) (ocr.Recognizer, func() error, error)
}

// Env is what every command runs against.
type Env struct {
	Config config.Config
	Logger *slog.Logger
	Store  *store.File
	Out    io.Writer
}

type globalFlags struct {
	configPath string
	storePath  string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds the command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	var flags globalFlags
	env := &Env{}

	root := &cobra.Command{
		Use:           "screenshot-pro",
		Short:         "Capture, annotate and keep screenshots",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return env.setup(cmd, flags)
		},
	}
	root.SetVersionTemplate(version.String() + "\n")

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "configuration file (.toml or .yaml)")
	pf.StringVar(&flags.storePath, "store", "", "store file (overrides store.path)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", "", "json or text")

	root.AddCommand(
		newServeCommand(env),
		newCaptureCommand(env),
		newListCommand(env),
		newExportCommand(env),
		newDeleteCommand(env),
		newAnnotateCommand(env, deps),
		newNoteCommand(env),
		newOCRCommand(env, deps),
		newSubmitCommand(env),
		newSettingsCommand(env),
		newConfigCommand(env),
		newVersionCommand(),
	)
	return root
}

func (e *Env) setup(cmd *cobra.Command, flags globalFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.storePath != "" {
		cfg.Store.Path = flags.storePath
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	f, err := store.OpenFile(cfg.Store.Path)
	if err != nil {
		return err
	}
	e.Config = cfg
	e.Logger = logger
	e.Store = f
	e.Out = cmd.OutOrStdout()
	logger.Debug("configuration loaded", "source", cfg.Source, "store", cfg.Store.Path)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// The root pre-run opens the store; version needs nothing.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}
