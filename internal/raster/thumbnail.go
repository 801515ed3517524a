package raster

import (
	"image"

	"github.com/anthonynsimon/bild/transform"
)

// DefaultThumbnailSize is the longest edge of list thumbnails.
const DefaultThumbnailSize = 200

// Thumbnail scales img so its longest edge is at most maxDim, keeping the
// aspect ratio. Images already small enough are returned unscaled.
func Thumbnail(img image.Image, maxDim int) *image.RGBA {
	if maxDim <= 0 {
		maxDim = DefaultThumbnailSize
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return ToRGBA(img)
	}

	if w >= h {
		h = max(1, h*maxDim/w)
		w = maxDim
	} else {
		w = max(1, w*maxDim/h)
		h = maxDim
	}
	return transform.Resize(img, w, h, transform.Linear)
}
