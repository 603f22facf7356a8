package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DMarby/bluromatic/internal/handler"
	"github.com/DMarby/bluromatic/internal/logger"
	"go.uber.org/zap"
)

func TestRecovery(t *testing.T) {
	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	t.Run("responds with an internal server error and keeps the request id", func(t *testing.T) {
		h := handler.AddRequestID(handler.Recovery(log, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("blur failed")
		})))

		req := httptest.NewRequest("POST", "/work/blur", nil)
		req.Header.Set(handler.RequestIDHeader, "chain-1")

		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("wrong status code %#v", w.Code)
		}

		if id := w.Header().Get(handler.RequestIDHeader); id != "chain-1" {
			t.Errorf("wrong request id %s", id)
		}
	})

	t.Run("lets aborted requests through", func(t *testing.T) {
		h := handler.Recovery(log, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		defer func() {
			if err := recover(); err != http.ErrAbortHandler {
				t.Errorf("wrong panic %v", err)
			}
		}()

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/chain", nil))
		t.Error("expected the abort to propagate")
	})
}
