package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Niamh518/Dandi-curser-project/internal/llm"
	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
	"github.com/Niamh518/Dandi-curser-project/internal/store"
)

const testSessionSecret = "test-secret-for-handler-tests"

// fakeProvider stands in for the language model.
type fakeProvider struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Provider: "fake", Content: f.reply}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeIdentity stands in for the OAuth provider.
type fakeIdentity struct {
	identity *model.Identity
	err      error
	codes    []string
}

func (f *fakeIdentity) AuthCodeURL(state string) string {
	return "https://idp.example.com/authorize?state=" + state
}

func (f *fakeIdentity) Exchange(ctx context.Context, code string) (*model.Identity, error) {
	f.codes = append(f.codes, code)
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

// touchLog collects usage events synchronously.
type touchLog struct {
	mu  sync.Mutex
	ids []string
}

func (l *touchLog) Record(keyID string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, keyID)
}

func (l *touchLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store    *store.Store
	keys     *service.KeyService
	profiles *service.ProfileService
	sessions *service.SessionService
	provider *fakeProvider
	idp      *fakeIdentity
	touches  *touchLog
	router   chi.Router
}

// newTestEnv creates a fresh test environment with an in-memory store and
// every handler mounted on a Chi router without session middleware.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewSQLite("") // in-memory SQLite
	if err != nil {
		t.Fatalf("store.NewSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	env := &testEnv{
		store:    st,
		keys:     service.NewKeyService(st, ""),
		profiles: service.NewProfileService(st),
		sessions: service.NewSessionService(testSessionSecret, time.Hour),
		provider: &fakeProvider{reply: `{"summary":"A router.","cool_facts":["small","fast"]}`},
		idp: &fakeIdentity{identity: &model.Identity{
			Subject: "sub-1",
			Email:   "ada@example.com",
			Name:    "Ada",
		}},
		touches: &touchLog{},
	}

	auth := service.NewAuthService(st, env.touches)
	keyHandler := NewKeyHandler(env.keys)
	validateHandler := NewValidateHandler(auth, "")
	summarizeHandler := NewSummarizeHandler(auth, service.NewSummarizer(env.provider, ""), "")
	profileHandler := NewProfileHandler(env.profiles)
	authHandler := NewAuthHandler(env.idp, env.profiles, env.sessions, false)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/keys", keyHandler.List)
		r.Post("/keys", keyHandler.Create)
		r.Put("/keys", keyHandler.Update)
		r.Delete("/keys", keyHandler.Delete)

		r.Post("/protected", validateHandler.Validate)
		r.Post("/summarize", summarizeHandler.Summarize)

		r.Get("/profile", profileHandler.Get)
		r.Post("/profile", profileHandler.Ensure)
		r.Put("/profile", profileHandler.Update)
	})
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Get("/auth-code-error", authHandler.AuthCodeError)
		r.Post("/logout", authHandler.Logout)
	})
	env.router = r
	return env
}

// seedKey creates a key through the service and returns it.
func (e *testEnv) seedKey(t *testing.T, name string) *model.APIKey {
	t.Helper()
	key, err := e.keys.Create(context.Background(), service.CreateKeyInput{Name: name})
	if err != nil {
		t.Fatalf("seedKey: %v", err)
	}
	return key
}

// do executes an HTTP request against the test router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	return e.doAs(t, nil, method, path, body)
}

// doAs is like do but attaches sess to the request context the way the
// session middleware would.
func (e *testEnv) doAs(t *testing.T, sess *service.Session, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess != nil {
		req = req.WithContext(service.WithSession(req.Context(), sess))
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

// envelope decodes a response into the standard envelope with typed data.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func assertFailure(t *testing.T, rr *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	assertStatus(t, rr, status)
	var resp envelope[json.RawMessage]
	decodeJSON(t, rr, &resp)
	if resp.Success {
		t.Error("success = true, want false")
	}
	if resp.Error != msg {
		t.Errorf("error = %q, want %q", resp.Error, msg)
	}
}

var errUpstream = errors.New("upstream unavailable")
