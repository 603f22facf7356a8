// Package workapi is the http adapter a work scheduler uses to run units of work and chains
package workapi

import (
	"net/http"
	"time"

	"github.com/DMarby/bluromatic/internal/handler"
	"github.com/DMarby/bluromatic/internal/health"
	"github.com/DMarby/bluromatic/internal/hmac"
	"github.com/DMarby/bluromatic/internal/logger"
	"github.com/DMarby/bluromatic/internal/tracing"
	"github.com/DMarby/bluromatic/internal/work"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// API is a http api
type API struct {
	Workers        []work.Worker
	Chain          work.Worker
	HealthChecker  *health.Checker
	Log            *logger.Logger
	Tracer         *tracing.Tracer
	HandlerTimeout time.Duration
	HMAC           *hmac.HMAC
	// AllowedOrigins are the CORS origins allowed to call the api, all origins if empty
	AllowedOrigins []string
}

// Utility methods for logging
func (a *API) logError(r *http.Request, message string, err error) {
	a.Log.Errorw(message, handler.LogFields(r, "error", err)...)
}

// Router returns a http router
func (a *API) Router() http.Handler {
	router := mux.NewRouter()

	router.NotFoundHandler = handler.Handler(a.notFoundHandler)

	// Healthcheck
	router.Handle("/health", handler.Health(a.HealthChecker)).Methods("GET")

	// Units of work, by worker name
	for _, worker := range a.Workers {
		router.Handle("/work/"+worker.Name(), handler.Handler(a.workHandler(worker))).Methods("POST").Name("/work/" + worker.Name())
	}

	// The blur chain
	if a.Chain != nil {
		router.Handle("/chain", handler.Handler(a.workHandler(a.Chain))).Methods("POST")
	}

	// Query parameters:
	// ?hmac - HMAC signature of the path and request body

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: a.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", handler.RequestIDHeader},
		ExposedHeaders: []string{handler.RequestIDHeader},
	})

	routeMatcher := &handler.MuxRouteMatcher{Router: router}

	// Set up handlers for adding a request id, handling panics, request logging, setting CORS headers, tracing, metrics, and handler execution timeout
	return handler.AddRequestID(
		handler.Recovery(a.Log,
			handler.Logger(a.Log,
				corsHandler.Handler(
					handler.Tracer(a.Tracer,
						handler.Metrics(
							http.TimeoutHandler(router, a.HandlerTimeout, "Something went wrong. Timed out."),
							routeMatcher,
						),
						routeMatcher,
					),
				),
			),
		),
	)
}

// Handle not found errors
var notFoundError = &handler.Error{
	Message: "page not found",
	Code:    http.StatusNotFound,
}

func (a *API) notFoundHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return notFoundError
}
