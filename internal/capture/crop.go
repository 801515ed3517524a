package capture

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"screenshot-pro/internal/raster"
	"screenshot-pro/pkg/geometry"
)

// MinDataURLLength is the shortest encoded crop accepted as a real image.
// Anything shorter is a blank PNG.
const MinDataURLLength = 100

// CropToArea copies the viewport area out of a full-frame raster. The output
// is area.Width*dpr by area.Height*dpr pixels, sampled from the same rectangle
// scaled by dpr, so the copy is 1:1. Parts of the area outside the raster
// come out transparent. A degenerate or fully transparent result is
// ErrEmptyCapture.
func CropToArea(src image.Image, area geometry.Rect, dpr float64) (*image.RGBA, error) {
	px := geometry.ScaleForDevicePixelRatio(area.Normalize(), dpr).PixelRect()
	w, h := px.Dx(), px.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrEmptyCapture, w, h)
	}
	sr := px.Add(src.Bounds().Min)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, sr, xdraw.Src, nil)

	if transparent(dst) {
		return nil, fmt.Errorf("%w: no visible pixels", ErrEmptyCapture)
	}
	return dst, nil
}

// EncodeCrop encodes a cropped raster as a data URL and rejects results too
// short to hold an image.
func EncodeCrop(img image.Image) (string, error) {
	dataURL, err := raster.EncodeDataURL(img)
	if err != nil {
		return "", err
	}
	if len(dataURL) < MinDataURLLength {
		return "", fmt.Errorf("%w: encoded image is only %d bytes", ErrEmptyCapture, len(dataURL))
	}
	return dataURL, nil
}

func transparent(img *image.RGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			return false
		}
	}
	return true
}
