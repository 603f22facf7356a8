package handler

import (
	"net/http"
	"runtime/debug"

	"github.com/DMarby/bluromatic/internal/logger"
)

// Recovery is a handler for handling panics
func Recovery(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}

				w.WriteHeader(http.StatusInternalServerError)
				log.Errorw("panic handling request", LogFields(r,
					"panic", err,
					"stacktrace", string(debug.Stack()),
				)...)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
