package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported log level %q", level)
	}
}

// NewLogger builds a structured logger writing to out (stderr when nil).
func NewLogger(c LoggingConfig, out io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: lvl, ReplaceAttr: utcTime}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "", "json":
		h = slog.NewJSONHandler(out, opts)
	case "text", "console":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", c.Format)
	}
	return slog.New(h), nil
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
	}
	return a
}
