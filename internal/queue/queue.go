package queue

import (
	"context"
	"errors"
	"sync"
)

// Errors
var (
	ErrShutdown = errors.New("queue has been shutdown")
)

// HandlerFunc processes a single job
type HandlerFunc func(ctx context.Context, data interface{}) (interface{}, error)

// Queue is a worker queue with a fixed amount of workers
type Queue struct {
	workers int
	handler HandlerFunc
	queue   chan job
	ctx     context.Context
}

type job struct {
	ctx    context.Context
	data   interface{}
	result chan jobResult
}

type jobResult struct {
	result interface{}
	err    error
}

// New creates a new Queue with the specified amount of workers.
// The queue shuts down when ctx is canceled.
func New(ctx context.Context, workers int, handler HandlerFunc) *Queue {
	if workers < 1 {
		workers = 1
	}

	return &Queue{
		workers: workers,
		handler: handler,
		queue:   make(chan job),
		ctx:     ctx,
	}
}

// Workers returns the amount of workers processing jobs
func (q *Queue) Workers() int {
	return q.workers
}

// Run starts the workers and blocks until the queue is shut down and every worker has exited
func (q *Queue) Run() {
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.worker()
		}()
	}

	wg.Wait()
}

func (q *Queue) worker() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case j := <-q.queue:
			// The caller may have given up while the job was waiting
			if err := j.ctx.Err(); err != nil {
				j.result <- jobResult{err: err}
				continue
			}

			result, err := q.handler(j.ctx, j.data)
			j.result <- jobResult{
				result: result,
				err:    err,
			}
		}
	}
}

// Process adds a job to the queue, waits for it to process, and returns the result.
// Canceling ctx stops waiting for a worker, but once a worker has picked up the job the handler is
// responsible for observing ctx, and Process returns whatever the handler returns.
func (q *Queue) Process(ctx context.Context, data interface{}) (interface{}, error) {
	if q.ctx.Err() != nil {
		return nil, ErrShutdown
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resultChan := make(chan jobResult, 1)

	select {
	case q.queue <- job{ctx: ctx, data: data, result: resultChan}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.ctx.Done():
		return nil, ErrShutdown
	}

	// A worker has the job, so its result is the outcome even if ctx is canceled meanwhile
	result := <-resultChan
	if result.err != nil {
		return nil, result.err
	}

	return result.result, nil
}
