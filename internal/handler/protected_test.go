package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
)

// ---------------------------------------------------------------------------
// POST /api/protected
// ---------------------------------------------------------------------------

func TestValidate_ValidKey(t *testing.T) {
	env := newTestEnv(t)
	key := env.seedKey(t, "ci-bot")

	rr := env.do(t, "POST", "/api/protected", toJSON(t, map[string]string{"apiKeyCredential": key.Secret}))
	assertStatus(t, rr, http.StatusOK)

	var resp envelope[model.KeyPrincipal]
	decodeJSON(t, rr, &resp)
	if !resp.Success || resp.Message != "API key is valid" {
		t.Errorf("unexpected envelope: %+v", resp)
	}
	if resp.Data.ID != key.ID || resp.Data.Name != "ci-bot" {
		t.Errorf("data = %+v", resp.Data)
	}
	if env.touches.count() != 1 {
		t.Errorf("usage events = %d, want 1", env.touches.count())
	}
}

func TestValidate_DoesNotEchoSecret(t *testing.T) {
	env := newTestEnv(t)
	key := env.seedKey(t, "ci-bot")

	rr := env.do(t, "POST", "/api/protected", toJSON(t, map[string]string{"apiKeyCredential": key.Secret}))
	if strings.Contains(rr.Body.String(), key.Secret) {
		t.Errorf("response leaked the secret: %s", rr.Body.String())
	}
}

func TestValidate_CredentialSources(t *testing.T) {
	env := newTestEnv(t)
	key := env.seedKey(t, "ci-bot")

	rr := env.do(t, "POST", "/api/protected", toJSON(t, map[string]string{"apiKey": key.Secret}))
	assertStatus(t, rr, http.StatusOK)

	req := httptest.NewRequest("POST", "/api/protected", nil)
	req.Header.Set("X-API-Key", key.Secret)
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	assertStatus(t, rr, http.StatusOK)
}

func TestValidate_Failures(t *testing.T) {
	env := newTestEnv(t)
	key := env.seedKey(t, "ci-bot")

	rr := env.do(t, "POST", "/api/protected", toJSON(t, map[string]string{}))
	assertFailure(t, rr, http.StatusUnauthorized, "API key is required")

	rr = env.do(t, "POST", "/api/protected", toJSON(t, map[string]string{"apiKeyCredential": "pk_nope_1"}))
	assertFailure(t, rr, http.StatusUnauthorized, "Invalid API key")

	// A deleted key looks exactly like one that never existed.
	rr = env.do(t, "DELETE", "/api/keys?id="+key.ID, nil)
	assertStatus(t, rr, http.StatusOK)
	rr = env.do(t, "POST", "/api/protected", toJSON(t, map[string]string{"apiKeyCredential": key.Secret}))
	assertFailure(t, rr, http.StatusUnauthorized, "Invalid API key")

	if env.touches.count() != 0 {
		t.Errorf("failed validations recorded %d usage events", env.touches.count())
	}
}

func TestValidate_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.Close()

	rr := env.do(t, "POST", "/api/protected", toJSON(t, map[string]string{"apiKeyCredential": "pk_x_1"}))
	assertFailure(t, rr, http.StatusInternalServerError, "Internal server error")
}

// ---------------------------------------------------------------------------
// POST /api/summarize
// ---------------------------------------------------------------------------

func TestSummarize_Success(t *testing.T) {
	env := newTestEnv(t)
	key := env.seedKey(t, "ci-bot")

	rr := env.do(t, "POST", "/api/summarize", toJSON(t, map[string]string{
		"repositoryUrl":    "https://github.com/go-chi/chi",
		"apiKeyCredential": key.Secret,
	}))
	assertStatus(t, rr, http.StatusOK)

	var resp model.RepoSummary
	decodeJSON(t, rr, &resp)
	if resp.Summary != "A router." || len(resp.CoolFacts) != 2 {
		t.Errorf("summary = %+v", resp)
	}
	if env.provider.callCount() != 1 {
		t.Errorf("provider calls = %d, want 1", env.provider.callCount())
	}
	if env.touches.count() != 1 {
		t.Errorf("usage events = %d, want 1", env.touches.count())
	}
}

func TestSummarize_Aliases(t *testing.T) {
	env := newTestEnv(t)
	key := env.seedKey(t, "ci-bot")

	rr := env.do(t, "POST", "/api/summarize", toJSON(t, map[string]string{
		"githubUrl": "https://github.com/go-chi/chi",
		"apiKey":    key.Secret,
	}))
	assertStatus(t, rr, http.StatusOK)
}

func TestSummarize_CheckOrder(t *testing.T) {
	env := newTestEnv(t)
	key := env.seedKey(t, "ci-bot")

	tests := []struct {
		name   string
		body   map[string]string
		status int
		msg    string
	}{
		{"no credential beats bad url", map[string]string{"repositoryUrl": "not a url"}, http.StatusUnauthorized, "API key is required"},
		{"bad credential beats missing url", map[string]string{"apiKeyCredential": "pk_bad_1"}, http.StatusUnauthorized, "Invalid API key"},
		{"missing url", map[string]string{"apiKeyCredential": key.Secret}, http.StatusBadRequest, "GitHub URL is required"},
		{"not a github url", map[string]string{"apiKeyCredential": key.Secret, "repositoryUrl": "https://gitlab.com/a/b"}, http.StatusBadRequest, "Please provide a valid GitHub URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "POST", "/api/summarize", toJSON(t, tt.body))
			assertFailure(t, rr, tt.status, tt.msg)
		})
	}

	if env.provider.callCount() != 0 {
		t.Errorf("provider calls = %d, want 0", env.provider.callCount())
	}
}

func TestSummarize_ProseFallback(t *testing.T) {
	env := newTestEnv(t)
	env.provider.reply = "It is a small HTTP router."
	key := env.seedKey(t, "ci-bot")

	rr := env.do(t, "POST", "/api/summarize", toJSON(t, map[string]string{
		"repositoryUrl":    "https://github.com/go-chi/chi",
		"apiKeyCredential": key.Secret,
	}))
	assertStatus(t, rr, http.StatusOK)

	var resp model.RepoSummary
	decodeJSON(t, rr, &resp)
	if resp.Summary != "It is a small HTTP router." {
		t.Errorf("summary = %q", resp.Summary)
	}
	if len(resp.CoolFacts) != 1 || resp.CoolFacts[0] != "Analysis completed successfully" {
		t.Errorf("cool_facts = %v", resp.CoolFacts)
	}
}

func TestSummarize_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.provider.err = errUpstream
	key := env.seedKey(t, "ci-bot")

	rr := env.do(t, "POST", "/api/summarize", toJSON(t, map[string]string{
		"repositoryUrl":    "https://github.com/go-chi/chi",
		"apiKeyCredential": key.Secret,
	}))
	assertFailure(t, rr, http.StatusInternalServerError, "Failed to summarize GitHub repository")
	if strings.Contains(rr.Body.String(), errUpstream.Error()) {
		t.Errorf("upstream detail leaked: %s", rr.Body.String())
	}
}
