package work

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/DMarby/bluromatic/internal/storage"
)

// CleanupWorker deletes temporary blur outputs
type CleanupWorker struct {
	Base

	Output storage.Bucket
}

// Name returns the name of the worker
func (w *CleanupWorker) Name() string {
	return "cleanup"
}

// DoWork deletes the temporary blur outputs listed in the outputUris input, or every temporary blur output
// when the input has no such list, and outputs how many were deleted
func (w *CleanupWorker) DoWork(ctx context.Context, input Data) Result {
	return w.run(ctx, w.Name(), "Cleaning up old temporary files", "Error cleaning up", func(ctx context.Context) (Data, error) {
		ctx, span := w.Tracer.Start(ctx, "work.CleanupWorker")
		defer span.End()

		var keys []string
		if refs, ok := input.Strings(KeyOutputURIs); ok {
			keys = w.keys(refs)
		} else {
			var err error
			keys, err = w.Output.List(ctx, OutputDir)
			if err != nil {
				return nil, withCause(ErrIO, err)
			}
		}

		log := w.Log.Worker(w.Name())
		deleted := 0
		for _, key := range keys {
			if !isOutput(key) {
				continue
			}

			if err := ctx.Err(); err != nil {
				return nil, err
			}

			if err := w.Output.Delete(ctx, key); err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					log.Warnw("error deleting temporary file", "key", key, "error", err)
				}
				continue
			}

			log.Debugw("deleted temporary file", "key", key)
			deleted++
		}

		return Data{KeyDeleted: deleted}, nil
	})
}

// keys returns the output bucket keys of the references, skipping references to anywhere else
func (w *CleanupWorker) keys(refs []string) []string {
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		u, err := url.Parse(ref)
		if err != nil {
			continue
		}

		if key, ok := w.Output.Key(u); ok {
			keys = append(keys, key)
		}
	}

	return keys
}

// isOutput returns whether a key names a temporary blur output
func isOutput(key string) bool {
	name := path.Base(key)
	return path.Dir(key) == OutputDir && strings.HasPrefix(name, OutputPrefix) && strings.HasSuffix(name, OutputExt)
}
