package handler

import (
	"net/http"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

const msgProfileNotFound = "Profile not found"

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type updateProfileRequest struct {
	FullName  *string `json:"fullName"`
	AvatarURL *string `json:"avatarUrl"`
}

// Get returns the caller's profile.
// GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess := service.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.profiles.Get(r.Context(), sess.Subject)
	if err != nil {
		writeServiceError(w, r, err, msgProfileNotFound, "Failed to fetch profile")
		return
	}
	writeData(w, http.StatusOK, profile)
}

// Ensure creates the caller's profile from the session if it is missing.
// POST /api/profile
func (h *ProfileHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	sess := service.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, created, err := h.profiles.Ensure(r.Context(), model.Identity{
		Subject: sess.Subject,
		Email:   sess.Email,
	})
	if err != nil {
		writeServiceError(w, r, err, msgProfileNotFound, "Failed to create profile")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeData(w, status, profile)
}

// Update edits the caller's display name or avatar.
// PUT /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess := service.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req updateProfileRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.profiles.Update(r.Context(), sess.Subject, service.UpdateProfileInput{
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		writeServiceError(w, r, err, msgProfileNotFound, "Failed to update profile")
		return
	}
	writeData(w, http.StatusOK, profile)
}
