package work

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path"
	"strconv"
	"time"

	"github.com/DMarby/bluromatic/internal/bitmap"
	"github.com/DMarby/bluromatic/internal/blur"
	"github.com/DMarby/bluromatic/internal/content"
	"github.com/DMarby/bluromatic/internal/storage"
	"github.com/DMarby/bluromatic/internal/tracing"
	"github.com/google/uuid"
)

// Temporary output naming
const (
	OutputDir    = "blur_filter_outputs"
	OutputPrefix = "blur-filter-output-"
	OutputExt    = ".png"
)

// BlurWorker blurs an image and writes the result to the temporary output bucket
type BlurWorker struct {
	Base

	Resolver *content.Resolver
	Output   storage.Bucket

	// Source fixes the image to blur, ignoring the input data and blurring at the default level
	Source string
}

// Name returns the name of the worker
func (w *BlurWorker) Name() string {
	return "blur"
}

// DoWork blurs the image at the imageUri input by blurLevel (default 1), and outputs the imageUri of the result
func (w *BlurWorker) DoWork(ctx context.Context, input Data) Result {
	return w.run(ctx, w.Name(), "Blurring image", "Error applying blur", func(ctx context.Context) (Data, error) {
		ref, level, err := w.input(input)
		if err != nil {
			return nil, err
		}

		ctx, span := w.Tracer.Start(ctx, "work.BlurWorker")
		defer span.End()
		span.SetAttributes(tracing.ImageAttributes(ref, level)...)

		output, err := w.blur(ctx, ref, level)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}

		return output, nil
	})
}

func (w *BlurWorker) input(input Data) (string, int, error) {
	if w.Source != "" {
		return w.Source, blur.DefaultLevel, nil
	}

	ref, err := imageURI(input)
	if err != nil {
		return "", 0, err
	}

	level, err := input.Int(KeyBlurLevel, blur.DefaultLevel)
	if err != nil {
		return "", 0, withCause(ErrInvalidInput, err)
	}

	if err := blur.ValidateLevel(level); err != nil {
		return "", 0, withCause(ErrInvalidInput, fmt.Errorf("%w: %d", err, level))
	}

	return ref, level, nil
}

func (w *BlurWorker) blur(ctx context.Context, ref string, level int) (Data, error) {
	img, err := open(ctx, w.Resolver, ref)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, span := w.Tracer.Start(ctx, "blur.Box")
	start := time.Now()
	blurred := blur.Box(img, level)
	blurDuration.WithLabelValues(strconv.Itoa(level)).Observe(time.Since(start).Seconds())
	span.End()

	encoded, err := bitmap.Encode(blurred)
	if err != nil {
		return nil, withCause(ErrIO, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := path.Join(OutputDir, OutputPrefix+uuid.NewString()+OutputExt)
	if err := write(ctx, w.Tracer, w.Output, key, encoded); err != nil {
		return nil, err
	}

	return Data{KeyImageURI: w.Output.URI(key)}, nil
}

// open resolves and decodes an image reference
func open(ctx context.Context, resolver *content.Resolver, ref string) (*image.RGBA, error) {
	data, err := resolver.Open(ctx, ref)
	if err != nil {
		if errors.Is(err, content.ErrInvalidReference) || errors.Is(err, content.ErrUnresolvable) {
			return nil, withCause(ErrInvalidInput, err)
		}

		return nil, withCause(ErrDecode, err)
	}

	img, _, err := bitmap.Decode(data)
	if err != nil {
		return nil, withCause(ErrDecode, err)
	}

	return img, nil
}

// write stores the data at key, removing it again if the context is canceled while writing
func write(ctx context.Context, tracer *tracing.Tracer, bucket storage.Bucket, key string, data []byte) error {
	ctx, span := tracer.Start(ctx, "storage.Put")
	defer span.End()

	if err := bucket.Put(ctx, key, data); err != nil {
		tracing.RecordError(span, err)
		return withCause(ErrIO, err)
	}

	if err := ctx.Err(); err != nil {
		deleteCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Best effort, the cleanup worker removes anything left behind
		bucket.Delete(deleteCtx, key)
		return err
	}

	return nil
}
