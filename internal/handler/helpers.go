package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

// DefaultAPIKeyHeader is the request header checked for an API key when the
// body does not carry one.
const DefaultAPIKeyHeader = "X-API-Key"

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeData writes a successful envelope around data.
func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, model.Envelope{Success: true, Data: data})
}

// writeError writes a failed envelope carrying message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.Envelope{Success: false, Error: message})
}

// readJSON decodes the request body as JSON into v. An empty body leaves v
// untouched so that handlers report missing fields rather than a parse
// error. The body is closed after decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// statusFor maps a service error to an HTTP status code.
func statusFor(err error) int {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case service.IsCredentialError(err), errors.Is(err, service.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError answers a failed service call. Validation errors carry
// their own message; not-found and server errors use the given messages so
// store details never reach the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg, fallbackMsg string) {
	status := statusFor(err)
	switch status {
	case http.StatusBadRequest:
		var ve *service.ValidationError
		errors.As(err, &ve)
		writeError(w, status, ve.Message)
	case http.StatusNotFound:
		writeError(w, status, notFoundMsg)
	case http.StatusUnauthorized:
		writeError(w, status, credentialMessage(err))
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, fallbackMsg)
	}
}

// credentialMessage returns the client-facing text for an authentication
// failure. Unknown and inactive keys share one message.
func credentialMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrMissingCredential):
		return "API key is required"
	case errors.Is(err, service.ErrInvalidSession):
		return "Authentication required"
	default:
		return "Invalid API key"
	}
}

// credentialFrom returns the first non-blank candidate, falling back to the
// named request header.
func credentialFrom(r *http.Request, header string, candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return r.Header.Get(header)
}
