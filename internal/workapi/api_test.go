package workapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DMarby/bluromatic/internal/bitmap"
	"github.com/DMarby/bluromatic/internal/cache/memory"
	"github.com/DMarby/bluromatic/internal/content"
	"github.com/DMarby/bluromatic/internal/health"
	"github.com/DMarby/bluromatic/internal/hmac"
	"github.com/DMarby/bluromatic/internal/logger"
	"github.com/DMarby/bluromatic/internal/notify"
	"github.com/DMarby/bluromatic/internal/storage/file"
	"github.com/DMarby/bluromatic/internal/storage/mock"
	"github.com/DMarby/bluromatic/internal/storage/resource"
	"github.com/DMarby/bluromatic/internal/tracing/test"
	"github.com/DMarby/bluromatic/internal/work"
	"github.com/DMarby/bluromatic/internal/workapi"
	"go.uber.org/zap"
)

func setup(t *testing.T, key []byte) (http.Handler, *file.Provider) {
	t.Helper()

	log := logger.New(zap.FatalLevel)
	tracer := test.Tracer(log)

	bucket, err := file.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	resolver := content.New(tracer, memory.New(), bucket, resource.New(), &mock.Provider{})
	resolver.Volatile(work.OutputDir)
	base := work.Base{Log: log, Tracer: tracer, Notifier: notify.Discard{}}

	blur := &work.BlurWorker{Base: base, Resolver: resolver, Output: bucket}
	save := &work.SaveWorker{Base: base, Resolver: resolver, Gallery: bucket, Dir: "gallery"}
	cleanup := &work.CleanupWorker{Base: base, Output: bucket}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	checker := &health.Checker{Ctx: ctx, Cache: memory.New(), Log: log}
	checker.Run()

	api := &workapi.API{
		Workers:        []work.Worker{blur, save, cleanup},
		Chain:          work.NewChain(blur, save, cleanup),
		HealthChecker:  checker,
		Log:            log,
		Tracer:         tracer,
		HandlerTimeout: time.Minute,
		HMAC:           &hmac.HMAC{Key: key},
	}

	return api.Router(), bucket
}

func TestAPI(t *testing.T) {
	router, bucket := setup(t, nil)

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Set(5, 5, color.Black)
	data, err := bitmap.Encode(img)
	if err != nil {
		t.Fatal(err)
	}
	if err := bucket.Put(context.Background(), "input.png", data); err != nil {
		t.Fatal(err)
	}
	input := bucket.URI("input.png")

	tests := []struct {
		Name           string
		Method         string
		URL            string
		Body           string
		ExpectedStatus int
		ExpectedResult string
		ExpectedOutput string
	}{
		{"blurs an image", "POST", "/work/blur", `{"inputData":{"imageUri":"` + input + `","blurLevel":2}}`, http.StatusOK, workapi.ResultSuccess, work.OutputPrefix},
		{"blurs the sample image", "POST", "/work/blur", `{"inputData":{"imageUri":"resource://cupcake.png"}}`, http.StatusOK, workapi.ResultSuccess, work.OutputPrefix},
		{"saves an image", "POST", "/work/save", `{"inputData":{"imageUri":"` + input + `"}}`, http.StatusOK, workapi.ResultSuccess, "/gallery/blurred-image-"},
		{"runs the chain", "POST", "/chain", `{"inputData":{"imageUri":"` + input + `","blurLevel":3}}`, http.StatusOK, workapi.ResultSuccess, "/gallery/"},
		{"fails without an image", "POST", "/work/blur", `{"inputData":{}}`, http.StatusUnprocessableEntity, workapi.ResultFailure, ""},
		{"fails with an empty body", "POST", "/work/blur", ``, http.StatusUnprocessableEntity, workapi.ResultFailure, ""},
		{"fails on an invalid level", "POST", "/work/blur", `{"inputData":{"imageUri":"` + input + `","blurLevel":1.5}}`, http.StatusUnprocessableEntity, workapi.ResultFailure, ""},
		{"fails on undecodable data", "POST", "/work/blur", `{"inputData":{"imageUri":"mock://foo"}}`, http.StatusUnprocessableEntity, workapi.ResultFailure, ""},
		{"fails the chain on undecodable data", "POST", "/chain", `{"inputData":{"imageUri":"mock://foo"}}`, http.StatusUnprocessableEntity, workapi.ResultFailure, ""},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(test.Method, test.URL, strings.NewReader(test.Body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			if w.Code != test.ExpectedStatus {
				t.Fatalf("wrong response code, %#v: %s", w.Code, w.Body.String())
			}

			if contentType := w.Header().Get("Content-Type"); contentType != "application/json" {
				t.Errorf("wrong content type %s", contentType)
			}

			var res workapi.Response
			if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
				t.Fatal(err)
			}

			if res.Result != test.ExpectedResult {
				t.Errorf("wrong result %s", res.Result)
			}

			if test.ExpectedOutput != "" {
				output, _ := res.OutputData.String(work.KeyImageURI)
				if !strings.Contains(output, test.ExpectedOutput) {
					t.Errorf("wrong output %s", output)
				}
			}
		})
	}

	errorTests := []struct {
		Name           string
		Method         string
		URL            string
		Body           string
		ExpectedStatus int
	}{
		{"404", "POST", "/asdf", `{}`, http.StatusNotFound},
		{"unknown worker", "POST", "/work/sharpen", `{}`, http.StatusNotFound},
		{"invalid json", "POST", "/work/blur", `{`, http.StatusBadRequest},
		{"wrong input data type", "POST", "/work/blur", `{"inputData":[]}`, http.StatusBadRequest},
		{"too large body", "POST", "/work/blur", `{"inputData":{"x":"` + strings.Repeat("x", 2<<20) + `"}}`, http.StatusRequestEntityTooLarge},
		{"health", "GET", "/health", ``, http.StatusOK},
	}

	for _, test := range errorTests {
		t.Run(test.Name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(test.Method, test.URL, strings.NewReader(test.Body)))

			if w.Code != test.ExpectedStatus {
				t.Errorf("wrong response code, %#v: %s", w.Code, w.Body.String())
			}
		})
	}

	t.Run("sets a request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		if w.Header().Get("X-Request-Id") == "" {
			t.Error("missing request id")
		}
	})

	t.Run("sets cors headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://example.com")
		router.ServeHTTP(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("wrong cors header %s", w.Header().Get("Access-Control-Allow-Origin"))
		}
	})
}

func TestHMAC(t *testing.T) {
	key := []byte("foobar")
	router, _ := setup(t, key)
	h := &hmac.HMAC{Key: key}

	body := []byte(`{"inputData":{"imageUri":"resource://cupcake.png"}}`)
	signed, err := h.Sign("/work/blur", body)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		Name           string
		URL            string
		Body           []byte
		ExpectedStatus int
	}{
		{"accepts a signed request", signed, body, http.StatusOK},
		{"rejects an unsigned request", "/work/blur", body, http.StatusUnauthorized},
		{"rejects a tampered body", signed, []byte(`{"inputData":{"imageUri":"mock://foo"}}`), http.StatusUnauthorized},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("POST", test.URL, bytes.NewReader(test.Body)))

			if w.Code != test.ExpectedStatus {
				t.Errorf("wrong response code, %#v: %s", w.Code, w.Body.String())
			}
		})
	}
}
