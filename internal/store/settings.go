package store

import (
	"context"
	"errors"
	"fmt"

	"screenshot-pro/pkg/colorutil"
)

// Storage keys shared with the panels.
const (
	KeyScreenshots  = "screenshots"
	KeySettings     = "settings"
	KeySavedTexts   = "savedTexts"
	KeySelectedText = "selectedText"
	KeyTabURL       = "tabUrl"
	KeyLastAction   = "lastAction"
	KeyAPIEndpoint  = "apiEndpoint"
	KeyFilter       = "currentFilter"
)

// MaxScreenshotsLimit bounds the configurable history size.
const MaxScreenshotsLimit = 1000

// ErrInvalidSettings is returned by Settings.Validate.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings are the user preferences stored under KeySettings.
type Settings struct {
	AutoSaveSelection  bool    `json:"autoSaveSelection"`
	EnableAnnotations  bool    `json:"enableAnnotations"`
	AutoOpenSidebar    bool    `json:"autoOpenSidebar"`
	SaveSelectedText   bool    `json:"saveSelectedText"`
	MaxScreenshots     int     `json:"maxScreenshots"`
	FilterByDomain     bool    `json:"filterByDomain"`
	AnnotationColor    string  `json:"annotationColor"`
	AnnotationTextSize float64 `json:"annotationTextSize"`
}

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{
		AutoSaveSelection:  false,
		EnableAnnotations:  true,
		AutoOpenSidebar:    true,
		SaveSelectedText:   true,
		MaxScreenshots:     50,
		FilterByDomain:     false,
		AnnotationColor:    colorutil.DefaultAnnotationColor,
		AnnotationTextSize: 16,
	}
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	if s.MaxScreenshots < 1 || s.MaxScreenshots > MaxScreenshotsLimit {
		return fmt.Errorf("%w: maxScreenshots must be between 1 and %d, got %d", ErrInvalidSettings, MaxScreenshotsLimit, s.MaxScreenshots)
	}
	if _, err := colorutil.Parse(s.AnnotationColor); err != nil {
		return fmt.Errorf("%w: annotationColor: %v", ErrInvalidSettings, err)
	}
	if !(s.AnnotationTextSize > 0) {
		return fmt.Errorf("%w: annotationTextSize must be positive", ErrInvalidSettings)
	}
	return nil
}

// SettingsRepo reads and writes Settings.
type SettingsRepo struct {
	kv KV
}

// NewSettingsRepo wraps kv.
func NewSettingsRepo(kv KV) *SettingsRepo {
	return &SettingsRepo{kv: kv}
}

// Load returns the stored settings merged over the defaults: keys missing
// from the stored object keep their default value, and so do stored values
// that are out of range.
func (r *SettingsRepo) Load(ctx context.Context) (Settings, error) {
	s := DefaultSettings()
	if _, err := getJSON(ctx, r.kv, KeySettings, &s); err != nil {
		return DefaultSettings(), storageErr("load settings", err)
	}
	return s.sanitize(), nil
}

// sanitize resets each invalid field to its default.
func (s Settings) sanitize() Settings {
	def := DefaultSettings()
	if s.MaxScreenshots < 1 || s.MaxScreenshots > MaxScreenshotsLimit {
		s.MaxScreenshots = def.MaxScreenshots
	}
	if _, err := colorutil.Parse(s.AnnotationColor); err != nil {
		s.AnnotationColor = def.AnnotationColor
	}
	if !(s.AnnotationTextSize > 0) {
		s.AnnotationTextSize = def.AnnotationTextSize
	}
	return s
}

// CustomTextSize reports whether the text size differs from the default.
// Otherwise text annotations follow the stroke width.
func (s Settings) CustomTextSize() bool {
	return s.AnnotationTextSize > 0 && s.AnnotationTextSize != DefaultSettings().AnnotationTextSize
}

// Save validates and stores s, then trims the screenshot history to the new
// limit.
func (r *SettingsRepo) Save(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := r.kv.Set(ctx, map[string]any{KeySettings: s}); err != nil {
		return storageErr("save settings", err)
	}
	return NewScreenshots(r.kv).Enforce(ctx, s.MaxScreenshots)
}

// Reset stores the defaults.
func (r *SettingsRepo) Reset(ctx context.Context) error {
	return r.Save(ctx, DefaultSettings())
}

// APIEndpoint returns the stored submission endpoint, or "".
func (r *SettingsRepo) APIEndpoint(ctx context.Context) (string, error) {
	var endpoint string
	if _, err := getJSON(ctx, r.kv, KeyAPIEndpoint, &endpoint); err != nil {
		return "", storageErr("load api endpoint", err)
	}
	return endpoint, nil
}

// SetAPIEndpoint stores the submission endpoint.
func (r *SettingsRepo) SetAPIEndpoint(ctx context.Context, endpoint string) error {
	if err := r.kv.Set(ctx, map[string]any{KeyAPIEndpoint: endpoint}); err != nil {
		return storageErr("save api endpoint", err)
	}
	return nil
}

// storageErr tags err with ErrStorageFailure unless the backend already did.
func storageErr(op string, err error) error {
	if errors.Is(err, ErrStorageFailure) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}
