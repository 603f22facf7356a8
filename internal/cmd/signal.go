package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// ErrCanceled is returned by WaitForInterrupt when its context is canceled before a signal arrives
var ErrCanceled = errors.New("canceled")

// WaitForInterrupt waits for SIGINT or SIGTERM, or for ctx to be canceled
func WaitForInterrupt(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		return fmt.Errorf("received signal %s", sig)
	case <-ctx.Done():
		return ErrCanceled
	}
}
