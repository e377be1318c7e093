package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

const (
	stateCookie   = "dandi_oauth_state"
	nextCookie    = "dandi_oauth_next"
	stateTTL      = 10 * time.Minute
	authErrorPath = "/auth/auth-code-error"
)

// IdentityProvider runs the OAuth authorization code flow.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*model.Identity, error)
}

// AuthHandler serves the sign-in flow for the dashboard.
type AuthHandler struct {
	provider     IdentityProvider
	profiles     *service.ProfileService
	sessions     *service.SessionService
	secureCookie bool
}

func NewAuthHandler(provider IdentityProvider, profiles *service.ProfileService, sessions *service.SessionService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		provider:     provider,
		profiles:     profiles,
		sessions:     sessions,
		secureCookie: secureCookie,
	}
}

// Login starts the authorization code flow.
// GET /auth/login?next=/dashboard
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	h.setCookie(w, stateCookie, state, stateTTL)
	h.setCookie(w, nextCookie, safeNext(r.URL.Query().Get("next")), stateTTL)
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the flow: it checks the state, exchanges the code,
// makes sure the user has a profile and sets the session cookie.
// GET /auth/callback?code=...&state=...
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")

	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || state.Value != q.Get("state") || code == "" {
		slog.Warn("oauth callback rejected", "reason", "state or code mismatch")
		h.failAuth(w, r)
		return
	}
	h.clearCookie(w, stateCookie)

	identity, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		slog.Warn("oauth exchange failed", "error", err)
		h.failAuth(w, r)
		return
	}

	profile, created, err := h.profiles.Ensure(r.Context(), *identity)
	if err != nil {
		slog.Error("ensure profile failed", "subject", identity.Subject, "error", err)
		h.failAuth(w, r)
		return
	}
	if created {
		slog.Info("profile created", "id", profile.ID, "email", profile.Email)
	}

	token, err := h.sessions.Issue(profile.ID, profile.Email)
	if err != nil {
		slog.Error("issue session failed", "error", err)
		h.failAuth(w, r)
		return
	}
	h.setCookie(w, service.SessionCookie, token, h.sessions.TTL())

	next := "/"
	if c, err := r.Cookie(nextCookie); err == nil {
		next = safeNext(c.Value)
	}
	h.clearCookie(w, nextCookie)
	http.Redirect(w, r, next, http.StatusFound)
}

// AuthCodeError is where failed sign-ins land.
// GET /auth/auth-code-error
func (h *AuthHandler) AuthCodeError(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusUnauthorized, "Authentication failed")
}

// Logout clears the session cookie. Tokens are stateless, so a copied token
// stays valid until it expires.
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, service.SessionCookie)
	writeJSON(w, http.StatusOK, model.Envelope{Success: true, Message: "Logged out"})
}

func (h *AuthHandler) failAuth(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, authErrorPath, http.StatusFound)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext only allows same-origin relative paths as a post-login target.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
