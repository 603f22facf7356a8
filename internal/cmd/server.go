package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/DMarby/bluromatic/internal/logger"
)

// Http timeouts
const (
	ReadTimeout    = 5 * time.Second
	HandlerTimeout = 45 * time.Second
	// ShutdownTimeout is how long running work is given to finish when the server stops
	ShutdownTimeout = time.Minute
)

// NewServer returns a http server for handler, with a write timeout that leaves room for the handler timeout
func NewServer(log *logger.Logger, addr string, handler http.Handler, handlerTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: handlerTimeout + ReadTimeout,
		ErrorLog:     logger.NewHTTPErrorLog(log),
	}
}

// Serve runs server until it fails, ctx is canceled or an interrupt is received, and then shuts it down.
// It returns the reason the server stopped.
func Serve(ctx context.Context, log *logger.Logger, server *http.Server) error {
	failed := make(chan error, 1)
	go func() {
		failed <- server.ListenAndServe()
	}()

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupted := make(chan error, 1)
	go func() {
		interrupted <- WaitForInterrupt(waitCtx)
	}()

	var reason error
	select {
	case reason = <-failed:
	case reason = <-interrupted:
	}

	log.Infof("shutting down the http server: %s", reason)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("error shutting down the http server: %s", err)
	}

	return reason
}
