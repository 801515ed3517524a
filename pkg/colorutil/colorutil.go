// Package colorutil provides shared color utilities for annotation styles.
package colorutil

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Annotation palette offered by the editor toolbar.
var (
	Red    = color.RGBA{R: 0xef, G: 0x44, B: 0x44, A: 255}
	Orange = color.RGBA{R: 0xf9, G: 0x73, B: 0x16, A: 255}
	Yellow = color.RGBA{R: 0xea, G: 0xb3, B: 0x08, A: 255}
	Green  = color.RGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 255}
	Blue   = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 255}
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// DefaultAnnotationColor is the stroke color used before the user picks one.
const DefaultAnnotationColor = "#ef4444"

// Palette returns the toolbar colors in display order.
func Palette() []color.RGBA {
	return []color.RGBA{Red, Orange, Yellow, Green, Blue, Black, White}
}

// Parse validates a CSS-style color value. It accepts #rgb and #rrggbb hex
// strings and SVG color names ("red", "steelblue"). The result is opaque.
func Parse(s string) (color.RGBA, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	if value == "" {
		return color.RGBA{}, fmt.Errorf("empty color")
	}

	if strings.HasPrefix(value, "#") {
		c, err := colorful.Hex(value)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		r, g, b := c.RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 255}, nil
	}

	if named, ok := colornames.Map[value]; ok {
		return named, nil
	}
	return color.RGBA{}, fmt.Errorf("unknown color %q", s)
}

// MustParse is like Parse but panics on invalid input. Intended for constants.
func MustParse(s string) color.RGBA {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats a color as #rrggbb, ignoring alpha.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// WithAlpha returns c with its alpha replaced, as a non-premultiplied color.
func WithAlpha(c color.RGBA, alpha uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha}
}
