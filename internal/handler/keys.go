package handler

import (
	"net/http"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

const msgKeyNotFound = "API key not found"

// KeyHandler serves the API key management endpoints used by the dashboard.
type KeyHandler struct {
	keys *service.KeyService
}

func NewKeyHandler(keys *service.KeyService) *KeyHandler {
	return &KeyHandler{keys: keys}
}

type createKeyRequest struct {
	Name         string        `json:"name"`
	Type         model.KeyType `json:"type"`
	MonthlyLimit *int64        `json:"monthlyLimit"`
}

type updateKeyRequest struct {
	ID       string  `json:"id"`
	Name     *string `json:"name"`
	IsActive *bool   `json:"isActive"`
}

// List returns every key, newest first.
// GET /api/keys
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, msgKeyNotFound, "Failed to fetch API keys")
		return
	}
	writeData(w, http.StatusOK, keys)
}

// Create issues a new key. The generated secret is returned in full.
// POST /api/keys
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	key, err := h.keys.Create(r.Context(), service.CreateKeyInput{
		Name:         req.Name,
		Type:         req.Type,
		MonthlyLimit: req.MonthlyLimit,
	})
	if err != nil {
		writeServiceError(w, r, err, msgKeyNotFound, "Failed to create API key")
		return
	}
	writeData(w, http.StatusCreated, key)
}

// Update renames a key or toggles its active flag.
// PUT /api/keys
func (h *KeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	key, err := h.keys.Update(r.Context(), service.UpdateKeyInput{
		ID:       req.ID,
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeServiceError(w, r, err, msgKeyNotFound, "Failed to update API key")
		return
	}
	writeData(w, http.StatusOK, key)
}

// Delete removes a key and echoes the deleted record.
// DELETE /api/keys?id=...
func (h *KeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key, err := h.keys.Delete(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		writeServiceError(w, r, err, msgKeyNotFound, "Failed to delete API key")
		return
	}
	writeData(w, http.StatusOK, key)
}
