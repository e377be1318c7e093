package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

// SessionValidator verifies a dashboard session token.
type SessionValidator interface {
	Validate(token string) (*service.Session, error)
}

// LoadSession returns an HTTP middleware that attaches the caller's session
// to the request context when a valid one is presented. Requests without a
// session, or with an invalid one, pass through unchanged.
//
// The token is read from the session cookie first, then from an
// "Authorization: Bearer" header.
func LoadSession(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := sessionToken(r); token != "" {
				if sess, err := sessions.Validate(token); err == nil {
					r = r.WithContext(service.WithSession(r.Context(), sess))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession returns an HTTP middleware that rejects requests without a
// valid session with 401. It must be used after LoadSession.
func RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if service.SessionFromContext(r.Context()) == nil {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(service.SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

type authError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeAuthError mirrors the handler package's error envelope without
// importing it.
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(authError{Error: message})
}
