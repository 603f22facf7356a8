package handler

import (
	"net/http"

	"github.com/DMarby/bluromatic/internal/health"
)

// Health is a handler for health check status
func Health(healthChecker *health.Checker) Handler {
	return Handler(func(w http.ResponseWriter, r *http.Request) *Error {
		status := healthChecker.Status()

		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusInternalServerError
		}

		return WriteJSON(w, code, status)
	})
}
