// Package tesseract recognizes screenshot text with Tesseract after an OpenCV
// clean-up pass.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// Minimum height in pixels a region is upscaled to before recognition.
const minHeight = 40

var errEmptyImage = errors.New("empty image")

// Engine wraps one Tesseract client. Calls are serialized.
type Engine struct {
	mu       sync.Mutex
	client   *gosseract.Client
	binarize bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithBinarize turns Otsu thresholding on or off. It helps with low-contrast
// text and hurts on photos.
func WithBinarize(on bool) Option { return func(e *Engine) { e.binarize = on } }

// NewEngine creates an engine for the given Tesseract languages, e.g. "eng".
func NewEngine(languages []string, opts ...Option) (*Engine, error) {
	client := gosseract.NewClient()
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("set page segmentation: %w", err)
	}
	e := &Engine{client: client, binarize: true}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the Tesseract client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// Recognize returns the text found in img.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (string, error) {
	return e.RecognizeRegion(ctx, img, img.Bounds())
}

// RecognizeRegion returns the text found inside r, clipped to img.
func (e *Engine) RecognizeRegion(ctx context.Context, img image.Image, r image.Rectangle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return "", fmt.Errorf("convert image: %w", err)
	}
	defer src.Close()
	if src.Empty() {
		return "", errEmptyImage
	}

	r = r.Sub(img.Bounds().Min).Intersect(image.Rect(0, 0, src.Cols(), src.Rows()))
	if r.Empty() {
		return "", fmt.Errorf("region %v outside image", r)
	}
	region := src.Region(r)
	defer region.Close()

	processed := e.preprocess(region)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	defer buf.Close()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return "", errors.New("engine closed")
	}
	if err := e.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// preprocess converts to gray, upscales short regions and optionally
// binarizes so that the result is dark text on a light background.
func (e *Engine) preprocess(region gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	gocv.CvtColor(region, &gray, gocv.ColorBGRToGray)

	if h := gray.Rows(); h > 0 && h < minHeight {
		scale := float64(minHeight) / float64(h)
		scaled := gocv.NewMat()
		gocv.Resize(gray, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
		gray.Close()
		gray = scaled
	}
	if !e.binarize {
		return gray
	}

	binary := gocv.NewMat()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	gray.Close()

	// Light text on a dark theme: flip it.
	if white := gocv.CountNonZero(binary); float64(white) < 0.5*float64(binary.Rows()*binary.Cols()) {
		gocv.BitwiseNot(binary, &binary)
	}
	return binary
}
