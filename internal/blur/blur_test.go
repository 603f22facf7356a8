package blur_test

import (
	"image"
	"image/color"
	"math/rand"
	"reflect"
	"testing"

	"github.com/DMarby/bluromatic/internal/blur"
)

func randomImage(random *rand.Rand, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	random.Read(img.Pix)
	return img
}

func TestBox(t *testing.T) {
	random := rand.New(rand.NewSource(1))

	t.Run("matches the naive implementation", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			width, height := random.Intn(24)+1, random.Intn(24)+1
			level := random.Intn(blur.MaxLevel) + 1
			img := randomImage(random, width, height)

			if !reflect.DeepEqual(blur.Box(img, level).Pix, blur.Naive(img, level).Pix) {
				t.Fatalf("box and naive differ for %dx%d at level %d", width, height, level)
			}
		}
	})

	t.Run("keeps the dimensions", func(t *testing.T) {
		for _, size := range []image.Point{{1, 1}, {1, 40}, {40, 1}, {3, 7}, {100, 100}} {
			for level := blur.MinLevel; level <= blur.MaxLevel; level++ {
				bounds := blur.Box(randomImage(random, size.X, size.Y), level).Bounds()
				if bounds.Dx() != size.X || bounds.Dy() != size.Y {
					t.Errorf("%v at level %d: wrong size %v", size, level, bounds.Size())
				}
			}
		}
	})

	t.Run("does not modify the source", func(t *testing.T) {
		img := randomImage(random, 16, 16)
		original := append([]uint8(nil), img.Pix...)

		blur.Box(img, 3)

		if !reflect.DeepEqual(img.Pix, original) {
			t.Error("source image was modified")
		}
	})

	t.Run("leaves a uniform image unchanged", func(t *testing.T) {
		red := color.RGBA{R: 255, A: 255}
		img := image.NewRGBA(image.Rect(0, 0, 100, 100))
		for y := 0; y < 100; y++ {
			for x := 0; x < 100; x++ {
				img.SetRGBA(x, y, red)
			}
		}

		out := blur.Box(img, 1)
		for y := 0; y < 100; y++ {
			for x := 0; x < 100; x++ {
				if c := out.RGBAAt(x, y); c != red {
					t.Fatalf("pixel %d,%d changed to %v", x, y, c)
				}
			}
		}
	})

	t.Run("stays within the range of the neighbourhood at level 1", func(t *testing.T) {
		img := randomImage(random, 20, 20)
		out := blur.Box(img, 1)

		for y := 0; y < 20; y++ {
			for x := 0; x < 20; x++ {
				for c := 0; c < 4; c++ {
					lo, hi := uint8(255), uint8(0)
					for wy := y - 1; wy <= y+1; wy++ {
						for wx := x - 1; wx <= x+1; wx++ {
							if wx < 0 || wy < 0 || wx >= 20 || wy >= 20 {
								continue
							}
							v := img.Pix[img.PixOffset(wx, wy)+c]
							if v < lo {
								lo = v
							}
							if v > hi {
								hi = v
							}
						}
					}

					if v := out.Pix[out.PixOffset(x, y)+c]; v < lo || v > hi {
						t.Fatalf("pixel %d,%d channel %d is %d, outside of [%d, %d]", x, y, c, v, lo, hi)
					}
				}
			}
		}
	})

	t.Run("rounds half up", func(t *testing.T) {
		// A 2x1 image averages both pixels at level 1: (1+2)/2 = 1.5 -> 2
		img := image.NewRGBA(image.Rect(0, 0, 2, 1))
		img.SetRGBA(0, 0, color.RGBA{R: 1, G: 0, B: 10, A: 255})
		img.SetRGBA(1, 0, color.RGBA{R: 2, G: 1, B: 11, A: 255})

		out := blur.Box(img, 1)
		expected := color.RGBA{R: 2, G: 1, B: 11, A: 255}
		for x := 0; x < 2; x++ {
			if c := out.RGBAAt(x, 0); c != expected {
				t.Errorf("pixel %d: got %v, expected %v", x, c, expected)
			}
		}
	})

	t.Run("handles images with a non-zero origin", func(t *testing.T) {
		img := randomImage(random, 30, 30)
		sub := img.SubImage(image.Rect(5, 5, 20, 25)).(*image.RGBA)

		out := blur.Box(sub, 2)
		if out.Bounds() != sub.Bounds() {
			t.Fatalf("wrong bounds %v", out.Bounds())
		}

		if !reflect.DeepEqual(out.Pix, blur.Naive(sub, 2).Pix) {
			t.Error("box and naive differ for a sub image")
		}
	})

	t.Run("converts other image types", func(t *testing.T) {
		gray := image.NewGray(image.Rect(0, 0, 8, 8))
		for i := range gray.Pix {
			gray.Pix[i] = 128
		}

		out := blur.Box(gray, 2)
		if c := out.RGBAAt(4, 4); c != (color.RGBA{128, 128, 128, 255}) {
			t.Errorf("wrong pixel %v", c)
		}
	})
}

func TestValidateLevel(t *testing.T) {
	tests := []struct {
		Level int
		Valid bool
	}{
		{-1, false},
		{0, false},
		{blur.MinLevel, true},
		{5, true},
		{blur.MaxLevel, true},
		{blur.MaxLevel + 1, false},
	}

	for _, test := range tests {
		err := blur.ValidateLevel(test.Level)
		if (err == nil) != test.Valid {
			t.Errorf("level %d: unexpected result %v", test.Level, err)
		}
	}
}

func BenchmarkBox(b *testing.B) {
	img := randomImage(rand.New(rand.NewSource(1)), 1000, 1000)

	b.Run("level 1", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			blur.Box(img, 1)
		}
	})

	b.Run("level 10", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			blur.Box(img, 10)
		}
	})
}
