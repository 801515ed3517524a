// Package prefs remembers the annotation window's tool bar between runs.
package prefs

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"screenshot-pro/internal/annotation"
	"screenshot-pro/pkg/colorutil"
)

const prefsFile = "annotator.json"

// Stroke widths offered by the width slider.
const (
	MinWidth = 1
	MaxWidth = 20
)

// Prefs is the last tool, colour and stroke width picked in the annotator.
// The colour is empty until the user picks one, so the stored settings win.
type Prefs struct {
	mu   sync.RWMutex
	path string

	Tool  string  `json:"tool"`
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width"`
}

// DefaultPath is ~/.config/screenshot-pro/annotator.json.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "screenshot-pro", prefsFile)
}

// Load reads the preferences at path. A missing or unreadable file gives the
// defaults; stored values that no longer validate are reset individually.
func Load(path string) *Prefs {
	p := &Prefs{
		path:  path,
		Tool:  annotation.ToolPen.String(),
		Width: annotation.DefaultStyle().Width,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	var stored Prefs
	if err := json.Unmarshal(data, &stored); err != nil {
		return p
	}
	if _, err := annotation.ParseTool(stored.Tool); err == nil {
		p.Tool = stored.Tool
	}
	if _, err := colorutil.Parse(stored.Color); err == nil {
		p.Color = stored.Color
	}
	if stored.Width >= MinWidth && stored.Width <= MaxWidth {
		p.Width = stored.Width
	}
	return p
}

// Save writes the preferences, creating the directory if needed.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// ToolValue returns the remembered tool.
func (p *Prefs) ToolValue() annotation.Tool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, err := annotation.ParseTool(p.Tool)
	if err != nil {
		return annotation.ToolPen
	}
	return t
}

// SetTool records t.
func (p *Prefs) SetTool(t annotation.Tool) {
	p.mu.Lock()
	p.Tool = t.String()
	p.mu.Unlock()
}

// SetStyle records the colour and width.
func (p *Prefs) SetStyle(colorValue string, width float64) {
	p.mu.Lock()
	p.Color = colorValue
	p.Width = width
	p.mu.Unlock()
}

// Style returns the remembered colour and width. The colour is "" when none
// was picked.
func (p *Prefs) Style() (string, float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Color, p.Width
}

// Remove deletes the stored file. Removing a missing file is not an error.
func (p *Prefs) Remove() error {
	err := os.Remove(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
