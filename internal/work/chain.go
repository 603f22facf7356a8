package work

import (
	"context"
	"time"
)

const finallyTimeout = time.Minute

// Chain runs units of work in order, each one receiving the output of the previous one merged over the chain input.
// It stops at the first failure. Finally, if set, always runs last, even after a failure or cancellation,
// and receives the image references every step produced in outputUris.
type Chain struct {
	Steps   []Worker
	Finally Worker
}

// NewChain returns the standard blur chain: blur, then save, then clean up the temporary outputs of the chain
func NewChain(blur *BlurWorker, save *SaveWorker, cleanup *CleanupWorker) *Chain {
	return &Chain{
		Steps:   []Worker{blur, save},
		Finally: cleanup,
	}
}

// Name returns the name of the worker
func (c *Chain) Name() string {
	return "chain"
}

// DoWork runs the chain and returns the result of the last step, or a failure
func (c *Chain) DoWork(ctx context.Context, input Data) Result {
	result, produced := c.steps(ctx, input)

	if c.Finally != nil {
		finallyCtx, cancel := context.WithTimeout(detach(ctx), finallyTimeout)
		defer cancel()

		c.Finally.DoWork(finallyCtx, input.Merge(result.OutputData()).Merge(Data{KeyOutputURIs: produced}))
	}

	return result
}

func (c *Chain) steps(ctx context.Context, input Data) (Result, []string) {
	result := Success(input)
	data := input
	produced := []string{}

	for _, step := range c.Steps {
		if ctx.Err() != nil {
			return Failure(), produced
		}

		result = step.DoWork(ctx, data)
		if !result.Succeeded() {
			return Failure(), produced
		}

		output := result.OutputData()
		if ref, ok := output.String(KeyImageURI); ok {
			produced = append(produced, ref)
		}

		data = data.Merge(output)
	}

	return result, produced
}

// detached is a context that keeps the values of its parent, such as the trace, but not its cancellation
type detached struct {
	context.Context
}

func (detached) Deadline() (time.Time, bool) { return time.Time{}, false }
func (detached) Done() <-chan struct{}       { return nil }
func (detached) Err() error                  { return nil }

func detach(ctx context.Context) context.Context {
	return detached{ctx}
}
