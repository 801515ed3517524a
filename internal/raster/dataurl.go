package raster

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/h2non/filetype"
)

// PNGDataURLPrefix starts every data URL produced by EncodeDataURL.
const PNGDataURLPrefix = "data:image/png;base64,"

var (
	// ErrInvalidDataURL is returned for strings that are not base64 data URLs.
	ErrInvalidDataURL = errors.New("invalid data URL")
	// ErrNotImage is returned when data is not an image type that can be decoded.
	ErrNotImage = errors.New("not a supported image")
)

// EncodePNG encodes img with the default compression level. The encoder is
// deterministic, so equal pixels give byte-identical output.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeDataURL encodes img as a base64 PNG data URL.
func EncodeDataURL(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return PNGDataURLPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// DataURLBytes extracts the payload of a base64 data URL and reports the MIME
// type sniffed from the bytes. The declared media type is not trusted.
func DataURLBytes(dataURL string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(dataURL), "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURL)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, "", ErrNotImage
	}
	if !filetype.IsImage(data) {
		return nil, "", fmt.Errorf("%w: got %s", ErrNotImage, kind.MIME.Value)
	}
	return data, kind.MIME.Value, nil
}

// DecodeDataURL decodes a base64 image data URL into pixels.
func DecodeDataURL(dataURL string) (image.Image, string, error) {
	data, mime, err := DataURLBytes(dataURL)
	if err != nil {
		return nil, "", err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", mime, err)
	}
	return img, mime, nil
}
