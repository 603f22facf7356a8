// Package notify delivers status messages about running work to whoever is watching
package notify

import (
	"context"
	"time"

	"github.com/DMarby/bluromatic/internal/logger"
)

// Notifier delivers a status message
type Notifier interface {
	Notify(ctx context.Context, status Status) error
}

// Status is a status message for a unit of work
type Status struct {
	Worker  string    `json:"worker"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Log is a Notifier that writes status messages to the log
type Log struct {
	Log *logger.Logger
}

// Notify logs the status message
func (l *Log) Notify(ctx context.Context, status Status) error {
	l.Log.Infow(status.Message,
		"worker", status.Worker,
	)

	return nil
}

// Discard is a Notifier that drops every status message
type Discard struct{}

// Notify does nothing
func (Discard) Notify(ctx context.Context, status Status) error {
	return nil
}
