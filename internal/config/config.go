// Package config holds the process configuration: where the store lives, how
// the bridge listens, logging, and the knobs of capture, OCR and submission.
// User preferences are not here; they live in the store (store.Settings).
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"screenshot-pro/internal/store"
)

// Files looked up in the working directory when no path is given.
var DefaultFileNames = []string{"screenshot-pro.toml", "screenshot-pro.yaml", "screenshot-pro.yml"}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level configuration.
type Config struct {
	Store     StoreConfig     `toml:"store" yaml:"store"`
	Bridge    BridgeConfig    `toml:"bridge" yaml:"bridge"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	Capture   CaptureConfig   `toml:"capture" yaml:"capture"`
	Messaging MessagingConfig `toml:"messaging" yaml:"messaging"`
	OCR       OCRConfig       `toml:"ocr" yaml:"ocr"`
	Submit    SubmitConfig    `toml:"submit" yaml:"submit"`

	// Source is the file the configuration came from, or "<defaults>".
	Source string `toml:"-" yaml:"-"`
}

// StoreConfig locates the JSON store file.
type StoreConfig struct {
	Path            string `toml:"path" yaml:"path"`
	WatchDebounceMS int    `toml:"watch_debounce_ms" yaml:"watch_debounce_ms"`
}

// BridgeConfig is the websocket endpoint other contexts connect to.
type BridgeConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
	Path string `toml:"path" yaml:"path"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// CaptureConfig bounds capture calls.
type CaptureConfig struct {
	TimeoutSeconds   int     `toml:"timeout_seconds" yaml:"timeout_seconds"`
	DevicePixelRatio float64 `toml:"device_pixel_ratio" yaml:"device_pixel_ratio"`
}

// MessagingConfig tunes the in-process bus.
type MessagingConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds" yaml:"timeout_seconds"`
	QueueSize      int `toml:"queue_size" yaml:"queue_size"`
}

// OCRConfig selects Tesseract languages.
type OCRConfig struct {
	Languages []string `toml:"languages" yaml:"languages"`
	Binarize  bool     `toml:"binarize" yaml:"binarize"`
}

// SubmitConfig bounds API submissions.
type SubmitConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Path:            store.DefaultPath(),
			WatchDebounceMS: 100,
		},
		Bridge: BridgeConfig{
			Addr: "127.0.0.1:8765",
			Path: "/ws",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Capture: CaptureConfig{
			TimeoutSeconds:   10,
			DevicePixelRatio: 1,
		},
		Messaging: MessagingConfig{
			TimeoutSeconds: 30,
			QueueSize:      64,
		},
		OCR: OCRConfig{
			Languages: []string{"eng"},
			Binarize:  true,
		},
		Submit: SubmitConfig{
			TimeoutSeconds: 30,
		},
		Source: "<defaults>",
	}
}

// Load reads path over the defaults. With an empty path the default file
// names are tried in the working directory and a missing file is not an
// error.
func Load(path string) (Config, error) {
	cfg := Default()

	path = strings.TrimSpace(path)
	if path == "" {
		for _, name := range DefaultFileNames {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
		if path == "" {
			return cfg, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config file %q not found", path)
		}
		return cfg, fmt.Errorf("open config file %q: %w", path, err)
	}
	defer f.Close()

	if err := Decode(f, filepath.Ext(path), &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Source = path
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode reads TOML or YAML, chosen by file extension, into cfg. Unknown
// keys are rejected.
func Decode(r io.Reader, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".toml":
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

// Encode writes cfg as TOML or YAML.
func Encode(w io.Writer, ext string, cfg Config) error {
	switch strings.ToLower(ext) {
	case ".toml":
		return toml.NewEncoder(w).Encode(cfg)
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Store.Path = strings.TrimSpace(c.Store.Path)
	if c.Bridge.Path != "" && !strings.HasPrefix(c.Bridge.Path, "/") {
		c.Bridge.Path = "/" + c.Bridge.Path
	}
}

// Validate checks that required values are present and in range.
func (c Config) Validate() error {
	var errs []error
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path must not be empty"))
	}
	if c.Store.WatchDebounceMS < 0 {
		errs = append(errs, errors.New("store.watch_debounce_ms must not be negative"))
	}
	if c.Bridge.Addr == "" {
		errs = append(errs, errors.New("bridge.addr must not be empty"))
	}
	if c.Bridge.Path == "" {
		errs = append(errs, errors.New("bridge.path must not be empty"))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "json", "text", "console":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format %q", c.Logging.Format))
	}
	if c.Capture.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("capture.timeout_seconds must be positive"))
	}
	if c.Capture.DevicePixelRatio < 0 {
		errs = append(errs, errors.New("capture.device_pixel_ratio must not be negative"))
	}
	if c.Messaging.TimeoutSeconds <= 0 || c.Messaging.QueueSize <= 0 {
		errs = append(errs, errors.New("messaging timeout and queue size must be positive"))
	}
	if c.Submit.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("submit.timeout_seconds must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// WatchDebounce returns the store watcher debounce as a duration.
func (c StoreConfig) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMS) * time.Millisecond
}

// Timeout returns the capture timeout.
func (c CaptureConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the per-request delivery timeout.
func (c MessagingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the HTTP timeout for submissions.
func (c SubmitConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
