package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header the request id is read from, and returned in
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// AddRequestID is a handler that assigns every request an id, reusing the one sent by the client if any
func AddRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// GetReqID returns the request id of a request context, or an empty string if it has none
func GetReqID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
