// Package bitmap converts between encoded image data and the RGBA bitmaps the blur operates on
package bitmap

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	// Register the decoders for the formats we accept
	_ "image/gif"
	_ "image/jpeg"

	"github.com/anthonynsimon/bild/clone"
)

// MaxPixels is the largest image, in pixels, that will be decoded
const MaxPixels = 50_000_000

// Errors
var (
	ErrEmpty    = errors.New("empty image data")
	ErrTooLarge = errors.New("image is too large")
)

// Decode decodes a jpeg, png or gif image into an RGBA bitmap, returning the detected format
func Decode(data []byte) (*image.RGBA, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmpty
	}

	// Check the dimensions before allocating the full image
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("error decoding image config: %w", err)
	}

	if config.Width*config.Height > MaxPixels {
		return nil, "", ErrTooLarge
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("error decoding %s image: %w", format, err)
	}

	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, format, nil
	}

	return clone.AsRGBA(img), format, nil
}

// Encode encodes a bitmap as png
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("error encoding png: %w", err)
	}

	return buf.Bytes(), nil
}
