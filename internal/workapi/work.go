package workapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/DMarby/bluromatic/internal/handler"
	"github.com/DMarby/bluromatic/internal/work"
)

const maxBodySize = 1 << 20

// Request is the body of a work request
type Request struct {
	InputData work.Data `json:"inputData"`
}

// Response is the body of a work response
type Response struct {
	Result     string    `json:"result"`
	OutputData work.Data `json:"outputData,omitempty"`
}

// Results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

func (a *API) workHandler(worker work.Worker) handler.Handler {
	return func(w http.ResponseWriter, r *http.Request) *handler.Error {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				return &handler.Error{Message: "Request body too large", Code: http.StatusRequestEntityTooLarge}
			}

			a.logError(r, "error reading request body", err)
			return handler.BadRequest("Invalid request body")
		}

		if a.HMAC.Enabled() {
			valid, err := a.HMAC.ValidateRequest(r.URL, body)
			if err != nil {
				a.logError(r, "error validating hmac", err)
				return handler.InternalServerError()
			}

			if !valid {
				return handler.Unauthorized()
			}
		}

		input, handlerErr := decode(body)
		if handlerErr != nil {
			return handlerErr
		}

		result := worker.DoWork(r.Context(), input)
		if !result.Succeeded() {
			return handler.WriteJSON(w, http.StatusUnprocessableEntity, Response{Result: ResultFailure})
		}

		return handler.WriteJSON(w, http.StatusOK, Response{
			Result:     ResultSuccess,
			OutputData: result.OutputData(),
		})
	}
}

// decode reads the input data of a request body. An empty body is empty input data.
func decode(body []byte) (work.Data, *handler.Error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return work.Data{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var req Request
	if err := decoder.Decode(&req); err != nil {
		return nil, handler.BadRequest("Invalid request body")
	}

	if req.InputData == nil {
		return work.Data{}, nil
	}

	return req.InputData, nil
}
