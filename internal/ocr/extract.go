// Package ocr turns the text visible in a stored screenshot into a text note.
// Recognition itself is behind Recognizer; the Tesseract implementation lives
// in the tesseract subpackage.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"screenshot-pro/internal/raster"
	"screenshot-pro/internal/store"
)

// ErrNoText is returned when recognition finds nothing worth keeping.
var ErrNoText = errors.New("no text recognized")

// Recognizer extracts text from an image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, img image.Image) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

// Cleanup collapses runs of spaces inside each line and drops blank lines.
// Line structure is kept since screenshots usually hold paragraphs.
func Cleanup(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Extractor reads screenshots from the store and saves their text as notes.
type Extractor struct {
	rec    Recognizer
	kv     store.KV
	logger *slog.Logger
}

// NewExtractor creates an extractor. A nil logger means slog.Default().
func NewExtractor(rec Recognizer, kv store.KV, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{rec: rec, kv: kv, logger: logger}
}

// Text recognizes the text of screenshot id without saving it.
func (x *Extractor) Text(ctx context.Context, id int64) (store.Screenshot, string, error) {
	shot, err := store.NewScreenshots(x.kv).Get(ctx, id)
	if err != nil {
		return store.Screenshot{}, "", err
	}
	img, _, err := raster.DecodeDataURL(shot.DataURL)
	if err != nil {
		return shot, "", fmt.Errorf("decode screenshot %d: %w", id, err)
	}
	raw, err := x.rec.Recognize(ctx, img)
	if err != nil {
		return shot, "", fmt.Errorf("recognize screenshot %d: %w", id, err)
	}
	text := Cleanup(raw)
	if text == "" {
		return shot, "", ErrNoText
	}
	return shot, text, nil
}

// ToNote recognizes screenshot id and stores the text as a note carrying the
// screenshot's page.
func (x *Extractor) ToNote(ctx context.Context, id int64) (store.TextNote, error) {
	shot, text, err := x.Text(ctx, id)
	if err != nil {
		return store.TextNote{}, err
	}
	note, err := store.NewNotes(x.kv).Add(ctx, text, shot.URL, shot.Title)
	if err != nil {
		return store.TextNote{}, err
	}
	x.logger.Info("extracted text", "screenshot", id, "note", note.ID, "chars", len(text))
	return note, nil
}
