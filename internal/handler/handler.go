package handler

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Error is the message and http status code to return
type Error struct {
	Message string
	Code    int
}

// InternalServerError is a convenience function for returning an internal server error
func InternalServerError() *Error {
	return &Error{
		Message: "Something went wrong",
		Code:    http.StatusInternalServerError,
	}
}

// BadRequest is a convenience function for returning a bad request error
func BadRequest(message string) *Error {
	return &Error{
		Message: message,
		Code:    http.StatusBadRequest,
	}
}

// Unauthorized is a convenience function for returning an unauthorized error
func Unauthorized() *Error {
	return &Error{
		Message: "Invalid signature",
		Code:    http.StatusUnauthorized,
	}
}

const jsonMediaType = "application/json"

// Handler wraps a http handler and deals with responding to errors
type Handler func(w http.ResponseWriter, r *http.Request) *Error

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h(w, r)
	if err == nil {
		return
	}

	w.Header().Set("Cache-Control", "private, no-cache, no-store, must-revalidate")

	if !wantsJSON(r) {
		http.Error(w, err.Message, err.Code)
		return
	}

	var data = struct {
		Error string `json:"error"`
	}{err.Message}

	w.Header().Set("Content-Type", jsonMediaType)
	w.WriteHeader(err.Code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
	}
}

// WriteJSON writes data as a json response with the given status code
func WriteJSON(w http.ResponseWriter, code int, data interface{}) *Error {
	body, err := json.Marshal(data)
	if err != nil {
		return InternalServerError()
	}

	w.Header().Set("Cache-Control", "private, no-cache, no-store, must-revalidate")
	w.Header().Set("Content-Type", jsonMediaType)
	w.WriteHeader(code)
	w.Write(append(body, '\n'))

	return nil
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), jsonMediaType) || strings.HasPrefix(r.Header.Get("Content-Type"), jsonMediaType)
}
