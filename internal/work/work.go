// Package work implements the units of work that make up a blur chain: blur, save and cleanup.
//
// A unit of work takes an input Data map and returns a Result, which is either a success carrying
// output data or a failure. Every error, and every panic, inside a unit is caught at the unit
// boundary, logged with its cause, and reported as a plain failure. Units run on the worker queue
// they are given, or inline when they have none.
package work

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/DMarby/bluromatic/internal/logger"
	"github.com/DMarby/bluromatic/internal/notify"
	"github.com/DMarby/bluromatic/internal/queue"
	"github.com/DMarby/bluromatic/internal/tracing"
)

// Data map keys
const (
	KeyImageURI  = "imageUri"
	KeyBlurLevel = "blurLevel"
	KeyDeleted   = "deleted"
	// KeyOutputURIs lists the image references a chain produced, for the cleanup that follows it
	KeyOutputURIs = "outputUris"
)

// Data is the input or output data of a unit of work
type Data map[string]interface{}

// String returns the string stored at key
func (d Data) String(key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok
}

// Strings returns the list of strings stored at key.
// Lists decoded from json are accepted as long as every element is a string.
func (d Data) Strings(key string) ([]string, bool) {
	switch v := d[key].(type) {
	case []string:
		return v, true
	case []interface{}:
		list := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			list = append(list, s)
		}
		return list, true
	default:
		return nil, false
	}
}

// Int returns the integer stored at key, or def if the key is absent.
// Numbers decoded from json are accepted as long as they are integral.
func (d Data) Int(key string, def int) (int, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return def, nil
	}

	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, fmt.Errorf("%s is not an integer: %v", key, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s is not an integer: %s", key, n)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("%s is not an integer: %v", key, v)
	}
}

// Merge returns a copy of d with the values of other added on top
func (d Data) Merge(other Data) Data {
	merged := make(Data, len(d)+len(other))
	for k, v := range d {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}

	return merged
}

// Result is the outcome of a unit of work
type Result struct {
	success bool
	output  Data
}

// Success returns a successful result carrying the output data
func Success(output Data) Result {
	if output == nil {
		output = Data{}
	}

	return Result{success: true, output: output}
}

// Failure returns a failed result
func Failure() Result {
	return Result{}
}

// Succeeded returns whether the unit of work succeeded
func (r Result) Succeeded() bool {
	return r.success
}

// OutputData returns the output data of a successful result, and an empty map for a failure
func (r Result) OutputData() Data {
	if !r.success {
		return Data{}
	}

	return r.output
}

func (r Result) String() string {
	if r.success {
		return fmt.Sprintf("Success %v", r.output)
	}

	return "Failure"
}

// Worker is a unit of work
type Worker interface {
	// Name identifies the worker in logs, metrics and the work api
	Name() string
	// DoWork runs the unit of work. It never panics.
	DoWork(ctx context.Context, input Data) Result
}

// Errors causing a unit of work to fail
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrDecode       = errors.New("error decoding image")
	ErrIO           = errors.New("error writing image")
)

// causeError tags an error with the cause it is reported as
type causeError struct {
	cause error
	err   error
}

func (e *causeError) Error() string {
	return fmt.Sprintf("%s: %s", e.cause, e.err)
}

func (e *causeError) Is(target error) bool {
	return target == e.cause
}

func (e *causeError) Unwrap() error {
	return e.err
}

func withCause(cause, err error) error {
	return &causeError{cause: cause, err: err}
}

// cause returns the label describing why a unit of work failed
func cause(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, queue.ErrShutdown):
		return "shutdown"
	default:
		return "unknown"
	}
}

// Base holds what every unit of work needs to run
type Base struct {
	Log      *logger.Logger
	Tracer   *tracing.Tracer
	Queue    *queue.Queue
	Notifier notify.Notifier
	// Delay is waited before the work starts, to make short work observable
	Delay time.Duration
}

// job is the data the worker queue processes
type job func(ctx context.Context) (Data, error)

// Process is the queue.HandlerFunc that runs units of work
func Process(ctx context.Context, data interface{}) (result interface{}, err error) {
	j, ok := data.(job)
	if !ok {
		return nil, fmt.Errorf("invalid data")
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	return j(ctx)
}

// run is the unit boundary: it notifies, runs fn on the queue, and turns the outcome into a Result
func (b *Base) run(ctx context.Context, name, status, failure string, fn job) Result {
	log := b.Log.Worker(name)
	start := time.Now()

	b.notify(ctx, log, name, status)

	output, err := b.execute(ctx, fn)
	workDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		c := cause(err)
		workResults.WithLabelValues(name, "failure", c).Inc()
		traceID, spanID := tracing.TraceInfo(ctx)
		log.Errorw(failure,
			"cause", c,
			"error", err,
			"trace-id", traceID,
			"span-id", spanID,
		)
		return Failure()
	}

	workResults.WithLabelValues(name, "success", "").Inc()
	log.Debugw("work completed",
		"output", output,
		"elapsed", time.Since(start).String(),
	)

	return Success(output)
}

func (b *Base) execute(ctx context.Context, fn job) (Data, error) {
	if b.Delay > 0 {
		timer := time.NewTimer(b.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	queueSize.Inc()
	defer queueSize.Dec()

	// Without a queue the work runs on the caller's goroutine
	var result interface{}
	var err error
	if b.Queue == nil {
		result, err = Process(ctx, fn)
	} else {
		result, err = b.Queue.Process(ctx, fn)
	}

	if err != nil {
		return nil, err
	}

	output, ok := result.(Data)
	if !ok {
		return nil, fmt.Errorf("invalid result %T", result)
	}

	return output, nil
}

// notify sends a status message; it never fails the unit of work
func (b *Base) notify(ctx context.Context, log *logger.Logger, name, message string) {
	if b.Notifier == nil {
		return
	}

	err := b.Notifier.Notify(ctx, notify.Status{
		Worker:  name,
		Message: message,
		Time:    time.Now(),
	})
	if err != nil {
		log.Debugw("error sending status notification", "error", err)
	}
}

// imageURI returns the validated image reference from the input data
func imageURI(input Data) (string, error) {
	ref, ok := input.String(KeyImageURI)
	if !ok || strings.TrimSpace(ref) == "" {
		return "", withCause(ErrInvalidInput, errors.New("invalid input uri"))
	}

	return strings.TrimSpace(ref), nil
}
