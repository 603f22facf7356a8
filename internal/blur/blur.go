// Package blur implements the box blur used by the blur worker.
//
// The blur averages every channel of every pixel over a square window centered on the pixel.
// Windows are truncated at the image edges rather than padded or wrapped, so an edge pixel is
// the average of fewer neighbours. Averages are rounded half up, which makes the output a pure
// function of the input pixels and the level.
package blur

import (
	"errors"
	"image"

	"github.com/anthonynsimon/bild/clone"
)

// Blur level bounds
const (
	MinLevel     = 1
	MaxLevel     = 10
	DefaultLevel = 1
)

// Errors
var (
	ErrInvalidLevel = errors.New("invalid blur level")
)

// ValidateLevel returns ErrInvalidLevel if the level is outside of [MinLevel, MaxLevel]
func ValidateLevel(level int) error {
	if level < MinLevel || level > MaxLevel {
		return ErrInvalidLevel
	}

	return nil
}

// Radius returns the window radius for a blur level
func Radius(level int) int {
	return level
}

// Box blurs src and returns a new image with the same dimensions.
// It runs a horizontal and a vertical pass over undivided integer sums, and divides once per pixel,
// which gives the same result as Naive in O(width*height) time regardless of the level.
// The level must have been validated with ValidateLevel.
func Box(src image.Image, level int) *image.RGBA {
	in := asRGBA(src)
	bounds := in.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(bounds)
	if width == 0 || height == 0 {
		return out
	}

	radius := Radius(level)

	// Horizontal pass: sums[y][x][c] is the sum of channel c over the row window around x
	sums := make([]uint32, width*height*4)
	for y := 0; y < height; y++ {
		row := in.Pix[y*in.Stride : y*in.Stride+width*4]
		dst := sums[y*width*4 : (y+1)*width*4]
		var acc [4]uint32

		// Prime the window with columns [0, radius]
		for x := 0; x <= radius && x < width; x++ {
			for c := 0; c < 4; c++ {
				acc[c] += uint32(row[x*4+c])
			}
		}

		for x := 0; x < width; x++ {
			copy(dst[x*4:x*4+4], acc[:])

			if leaving := x - radius; leaving >= 0 {
				for c := 0; c < 4; c++ {
					acc[c] -= uint32(row[leaving*4+c])
				}
			}
			if entering := x + radius + 1; entering < width {
				for c := 0; c < 4; c++ {
					acc[c] += uint32(row[entering*4+c])
				}
			}
		}
	}

	// Vertical pass over the row sums, dividing by the truncated window area
	acc := make([]uint32, width*4)
	for y := 0; y <= radius && y < height; y++ {
		for i, v := range sums[y*width*4 : (y+1)*width*4] {
			acc[i] += v
		}
	}

	for y := 0; y < height; y++ {
		rows := uint32(span(y, radius, height))
		dst := out.Pix[y*out.Stride : y*out.Stride+width*4]

		for x := 0; x < width; x++ {
			n := rows * uint32(span(x, radius, width))
			for c := 0; c < 4; c++ {
				dst[x*4+c] = uint8((acc[x*4+c] + n/2) / n)
			}
		}

		if leaving := y - radius; leaving >= 0 {
			for i, v := range sums[leaving*width*4 : (leaving+1)*width*4] {
				acc[i] -= v
			}
		}
		if entering := y + radius + 1; entering < height {
			for i, v := range sums[entering*width*4 : (entering+1)*width*4] {
				acc[i] += v
			}
		}
	}

	return out
}

// Naive blurs src by averaging the full window of every pixel.
// It is the reference implementation for Box and is only suitable for small images.
func Naive(src image.Image, level int) *image.RGBA {
	in := asRGBA(src)
	bounds := in.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(bounds)
	radius := Radius(level)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum [4]uint32
			var n uint32

			for wy := max(0, y-radius); wy <= min(height-1, y+radius); wy++ {
				for wx := max(0, x-radius); wx <= min(width-1, x+radius); wx++ {
					i := wy*in.Stride + wx*4
					for c := 0; c < 4; c++ {
						sum[c] += uint32(in.Pix[i+c])
					}
					n++
				}
			}

			i := y*out.Stride + x*4
			for c := 0; c < 4; c++ {
				out.Pix[i+c] = uint8((sum[c] + n/2) / n)
			}
		}
	}

	return out
}

// span returns how many positions of [0, size) lie within radius of i
func span(i, radius, size int) int {
	return min(size-1, i+radius) - max(0, i-radius) + 1
}

// asRGBA returns src as an *image.RGBA, converting it if needed. The source is never modified.
func asRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}

	return clone.AsRGBA(src)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
