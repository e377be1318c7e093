package handler

import (
	"net/http"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

// ValidateHandler answers whether a presented API key is usable.
type ValidateHandler struct {
	auth   *service.AuthService
	header string
}

// NewValidateHandler creates a ValidateHandler. header names the request
// header that may carry the key; empty means DefaultAPIKeyHeader.
func NewValidateHandler(auth *service.AuthService, header string) *ValidateHandler {
	return &ValidateHandler{auth: auth, header: header}
}

type validateRequest struct {
	APIKeyCredential string `json:"apiKeyCredential"`
	APIKey           string `json:"apiKey"`
}

// Validate checks the presented key and returns its identity.
// POST /api/protected
func (h *ValidateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	secret := credentialFrom(r, h.header, req.APIKeyCredential, req.APIKey)
	principal, err := h.auth.ValidateAPIKey(r.Context(), secret)
	if err != nil {
		writeServiceError(w, r, err, "Invalid API key", "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, model.Envelope{
		Success: true,
		Message: "API key is valid",
		Data:    principal,
	})
}
