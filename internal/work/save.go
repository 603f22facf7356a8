package work

import (
	"context"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/DMarby/bluromatic/internal/bitmap"
	"github.com/DMarby/bluromatic/internal/content"
	"github.com/DMarby/bluromatic/internal/storage"
	"github.com/DMarby/bluromatic/internal/tracing"
	"github.com/google/uuid"
)

// DefaultTitle is the title saved images are named after
const DefaultTitle = "Blurred Image"

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// SaveWorker copies an image into the permanent gallery bucket
type SaveWorker struct {
	Base

	Resolver *content.Resolver
	Gallery  storage.Bucket
	// Dir is the directory in the gallery bucket images are saved to
	Dir string
	// Title names the saved images, DefaultTitle if empty
	Title string
	// Now returns the current time, time.Now if nil
	Now func() time.Time
}

// Name returns the name of the worker
func (w *SaveWorker) Name() string {
	return "save"
}

// DoWork saves the image at the imageUri input, and outputs the imageUri of the saved image
func (w *SaveWorker) DoWork(ctx context.Context, input Data) Result {
	return w.run(ctx, w.Name(), "Saving image", "Error saving image", func(ctx context.Context) (Data, error) {
		ref, err := imageURI(input)
		if err != nil {
			return nil, err
		}

		ctx, span := w.Tracer.Start(ctx, "work.SaveWorker")
		defer span.End()

		// Decode the image so that only valid images end up in the gallery
		img, err := open(ctx, w.Resolver, ref)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}

		encoded, err := bitmap.Encode(img)
		if err != nil {
			return nil, withCause(ErrIO, err)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key := path.Join(w.Dir, w.filename())
		if err := write(ctx, w.Tracer, w.Gallery, key, encoded); err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}

		return Data{KeyImageURI: w.Gallery.URI(key)}, nil
	})
}

// filename returns a name like blurred-image-20060102-150405-1a2b3c4d.png
func (w *SaveWorker) filename() string {
	title := w.Title
	if title == "" {
		title = DefaultTitle
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	slug := strings.Trim(nonAlphanumeric.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		slug = "image"
	}

	return slug + "-" + now().Format("20060102-150405") + "-" + uuid.NewString()[:8] + ".png"
}
