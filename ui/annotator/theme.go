package annotator

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"screenshot-pro/pkg/colorutil"
)

// Theme tints the default fyne theme with the annotation colour.
type Theme struct{}

var _ fyne.Theme = (*Theme)(nil)

func (t *Theme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return colorutil.MustParse(colorutil.DefaultAnnotationColor)
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0xef, G: 0x44, B: 0x44, A: 0x40}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *Theme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *Theme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *Theme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNamePadding {
		return 3 // compact toolbar
	}
	return theme.DefaultTheme().Size(name)
}
