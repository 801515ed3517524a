// Package raster provides image loading, layer compositing, flattening and
// the PNG / data URL codecs used for stored screenshots.
package raster

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Layer is one image in a composite stack.
type Layer struct {
	Name    string
	Image   image.Image
	Visible bool
	Opacity float64 // 0..1

	// Offset places the layer's top-left corner inside the composite.
	Offset image.Point
}

// NewLayer creates a visible, opaque layer at the origin.
func NewLayer(name string, img image.Image) *Layer {
	return &Layer{Name: name, Image: img, Visible: true, Opacity: 1}
}

// decodable lists the MIME types with a registered decoder.
var decodable = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/tiff": true,
	"image/webp": true,
}

// Load decodes an image file. The type is sniffed from the content, not the
// extension; the decoder's format name ("png", "jpeg", ...) is returned.
func Load(path string) (image.Image, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	kind, err := filetype.Match(data)
	if err != nil || !decodable[kind.MIME.Value] {
		return nil, "", fmt.Errorf("%w: %s", ErrNotImage, path)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", path, err)
	}
	return img, format, nil
}
