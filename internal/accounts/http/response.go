// Package http carries the HTTP surface of the accounts service. Every
// response uses one envelope shape so clients can branch on a single
// boolean:
//
//	success: {"status": true,  "message": "...", "data": {...}}
//	failure: {"status": false, "message": "...", "errors": ["..."]}
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/billfold/accounts/internal/accounts/service"
	"github.com/billfold/accounts/pkg/httpx"
	"github.com/billfold/accounts/pkg/slogx"
)

type successEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type errorEnvelope struct {
	Status  bool     `json:"status"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func writeSuccess(w http.ResponseWriter, code int, message string, data any) {
	httpx.WriteJSON(w, code, successEnvelope{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, code int, message string, errs ...string) {
	httpx.WriteJSON(w, code, errorEnvelope{
		Status:  false,
		Message: message,
		Errors:  errs,
	})
}

// writeServiceError handles the failures every handler can hit: validation
// errors become a 400 with field messages, anything else a logged 500.
// Handlers map their endpoint-specific errors before falling back to this.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "Validation failed.", verr.Fields.Messages()...)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
	}
}

// decodeJSON parses a JSON request body into dst. The body is size-capped;
// these endpoints only ever carry a few short fields.
func decodeJSON(r *http.Request, dst any) error {
	const maxBodySize = 1 << 20

	body := http.MaxBytesReader(nil, r.Body, maxBodySize)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	return json.NewDecoder(body).Decode(dst)
}
