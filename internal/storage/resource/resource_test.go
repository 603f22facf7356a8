package resource_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/DMarby/bluromatic/internal/bitmap"
	"github.com/DMarby/bluromatic/internal/storage"
	"github.com/DMarby/bluromatic/internal/storage/resource"
)

func TestResource(t *testing.T) {
	provider := resource.New()

	t.Run("serves the sample image", func(t *testing.T) {
		ref, _ := url.Parse(resource.Sample)
		key, ok := provider.Key(ref)
		if !ok {
			t.Fatal("sample reference not recognized")
		}

		data, err := provider.Get(context.Background(), key)
		if err != nil {
			t.Fatal(err)
		}

		img, _, err := bitmap.Decode(data)
		if err != nil {
			t.Fatal(err)
		}

		if img.Bounds().Dx() != 128 || img.Bounds().Dy() != 128 {
			t.Errorf("wrong size %v", img.Bounds())
		}
	})

	t.Run("returns ErrNotFound for unknown images", func(t *testing.T) {
		_, err := provider.Get(context.Background(), "unknown.png")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("wrong error %v", err)
		}
	})

	t.Run("ignores other schemes", func(t *testing.T) {
		ref, _ := url.Parse("file:///cupcake.png")
		if _, ok := provider.Key(ref); ok {
			t.Error("unexpected key")
		}
	})
}
