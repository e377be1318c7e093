package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

// ---------------------------------------------------------------------------
// statusFor tests
// ---------------------------------------------------------------------------

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &service.ValidationError{Field: "name", Message: "Name is required"}, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("create: %w", &service.ValidationError{Message: "x"}), http.StatusBadRequest},
		{"missing credential", service.ErrMissingCredential, http.StatusUnauthorized},
		{"invalid credential", service.ErrInvalidCredential, http.StatusUnauthorized},
		{"inactive credential", service.ErrInactiveCredential, http.StatusUnauthorized},
		{"invalid session", service.ErrInvalidSession, http.StatusUnauthorized},
		{"not found", fmt.Errorf("get api key: %w", service.ErrNotFound), http.StatusNotFound},
		{"store", &service.StoreError{Op: "list", Err: errors.New("disk full")}, http.StatusInternalServerError},
		{"upstream", &service.UpstreamError{Provider: "openai", Err: errors.New("429")}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// writeServiceError tests
// ---------------------------------------------------------------------------

func TestWriteServiceErrorHidesStoreDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/keys", nil)
	writeServiceError(w, r, &service.StoreError{Op: "list", Err: errors.New("no such table: api_keys")},
		"API key not found", "Failed to fetch API keys")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "api_keys") {
		t.Errorf("store detail leaked: %s", body)
	}
	if !strings.Contains(body, `"error":"Failed to fetch API keys"`) {
		t.Errorf("expected fallback message in body: %s", body)
	}
}

func TestCredentialMessage(t *testing.T) {
	if got := credentialMessage(service.ErrMissingCredential); got != "API key is required" {
		t.Errorf("missing: got %q", got)
	}
	// Unknown and inactive keys must be indistinguishable.
	if credentialMessage(service.ErrInvalidCredential) != credentialMessage(service.ErrInactiveCredential) {
		t.Error("invalid and inactive keys produced different messages")
	}
}

// ---------------------------------------------------------------------------
// credentialFrom tests
// ---------------------------------------------------------------------------

func TestCredentialFrom(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/protected", nil)
	r.Header.Set("X-API-Key", "from-header")

	if got := credentialFrom(r, "", "from-body", "alias"); got != "from-body" {
		t.Errorf("got %q, want body credential first", got)
	}
	if got := credentialFrom(r, "", "", "alias"); got != "alias" {
		t.Errorf("got %q, want alias", got)
	}
	if got := credentialFrom(r, "", " ", ""); got != "from-header" {
		t.Errorf("got %q, want header fallback", got)
	}

	r.Header.Set("X-Dandi-Key", "custom")
	if got := credentialFrom(r, "X-Dandi-Key"); got != "custom" {
		t.Errorf("got %q, want configured header", got)
	}
}

// ---------------------------------------------------------------------------
// writeJSON / writeError tests
// ---------------------------------------------------------------------------

func TestWriteError(t *testing.T) {
	t.Run("writes JSON error envelope", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeError(w, http.StatusBadRequest, "Invalid input")

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		body := w.Body.String()
		if !strings.Contains(body, `"success":false`) {
			t.Errorf("expected success false in body: %s", body)
		}
		if !strings.Contains(body, `"error":"Invalid input"`) {
			t.Errorf("expected error in body: %s", body)
		}
	})
}

func TestWriteJSON(t *testing.T) {
	t.Run("writes JSON with correct content type", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeJSON(w, http.StatusOK, map[string]string{"hello": "world"})

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		body := w.Body.String()
		if !strings.Contains(body, `"hello":"world"`) {
			t.Errorf("expected JSON body, got: %s", body)
		}
	})
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"/dashboard", "/dashboard"},
		{"/dashboard?tab=keys", "/dashboard?tab=keys"},
		{"//evil.example.com", "/"},
		{"/\\evil.example.com", "/"},
		{"https://evil.example.com", "/"},
		{"dashboard", "/"},
	}
	for _, tt := range tests {
		if got := safeNext(tt.in); got != tt.want {
			t.Errorf("safeNext(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
