package redis

import (
	"context"
	"encoding/json"

	"github.com/DMarby/bluromatic/internal/notify"
	"github.com/DMarby/bluromatic/internal/tracing"
	"github.com/mediocregopher/radix/v4"
)

// Channel is the pubsub channel status messages are published to
const Channel = "bluromatic:status"

// Notifier publishes status messages to a redis pubsub channel
type Notifier struct {
	client radix.Client
	tracer *tracing.Tracer
}

// New returns a new Notifier instance
func New(ctx context.Context, tracer *tracing.Tracer, address string, poolSize int) (*Notifier, error) {
	cfg := radix.PoolConfig{
		Size: poolSize,
	}

	client, err := cfg.New(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	return &Notifier{
		client: client,
		tracer: tracer,
	}, nil
}

// Notify publishes the status message as json
func (n *Notifier) Notify(ctx context.Context, status notify.Status) error {
	ctx, span := n.tracer.Start(ctx, "redis.Publish")
	defer span.End()

	message, err := json.Marshal(status)
	if err != nil {
		return err
	}

	return n.client.Do(ctx, radix.FlatCmd(nil, "PUBLISH", Channel, message))
}

// Shutdown closes the connection pool
func (n *Notifier) Shutdown() {
	n.client.Close()
}
