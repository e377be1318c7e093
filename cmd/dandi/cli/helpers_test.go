package cli

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Niamh518/Dandi-curser-project/internal/config"
	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/server"
	"github.com/Niamh518/Dandi-curser-project/internal/store"
	"github.com/Niamh518/Dandi-curser-project/internal/usage"
)

func TestServerConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 9090
	cfg.Auth.APIKeyHeader = "X-Dandi-Key"
	cfg.Auth.RequireSession = true

	got := serverConfig(cfg, true, false)
	if got.Port != 9090 || got.APIKeyHeader != "X-Dandi-Key" {
		t.Errorf("serverConfig = %+v", got)
	}
	if got.EnableUI {
		t.Error("--no-ui should disable the dashboard")
	}
	if !got.RequireSession {
		t.Error("auth.require_session should carry over")
	}
	if got.RateLimit != 0 {
		t.Errorf("RateLimit = %d, want 0 when rate_limit is disabled", got.RateLimit)
	}

	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerMinute = 30
	if got := serverConfig(cfg, false, false); got.RateLimit != 30 {
		t.Errorf("RateLimit = %d, want 30", got.RateLimit)
	}
}

func TestDefaultPortsAgree(t *testing.T) {
	want := config.Default().Server.Port
	if got := server.DefaultConfig().Port; got != want {
		t.Errorf("server.DefaultConfig().Port = %d, want %d", got, want)
	}
	flag := newServeCmd().Flags().Lookup("port")
	if flag == nil || flag.DefValue != strconv.Itoa(want) {
		t.Errorf("--port default = %v, want %d", flag, want)
	}
}

func TestServerConfig_OAuthForcesSession(t *testing.T) {
	cfg := config.Default()
	cfg.OAuth.ClientID = "client"

	if !serverConfig(cfg, false, false).RequireSession {
		t.Error("configured sign-in should require a session on dashboard routes")
	}
}

func TestNewProvider(t *testing.T) {
	cfg := config.Default()

	p, err := newProvider(cfg)
	if err != nil || p != nil {
		t.Fatalf("newProvider without a key = %v, %v; want nil, nil", p, err)
	}

	cfg.LLM.OpenAIAPIKey = "sk-test"
	p, err = newProvider(cfg)
	if err != nil {
		t.Fatalf("newProvider: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("Name = %q, want openai", p.Name())
	}

	cfg.LLM.Provider = "anthropic"
	if p, _ := newProvider(cfg); p != nil {
		t.Error("anthropic without its own key should be disabled")
	}
	cfg.LLM.AnthropicAPIKey = "sk-ant-test"
	if p, _ := newProvider(cfg); p == nil || p.Name() != "anthropic" {
		t.Errorf("provider = %v, want anthropic", p)
	}
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger := newLogger(cfg, &buf, false)
	logger.Info("hidden")
	logger.Warn("shown", "key_id", "k1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"key_id":"k1"`) {
		t.Errorf("unexpected output: %s", out)
	}

	buf.Reset()
	newLogger(cfg, &buf, true).Debug("dev")
	if !strings.Contains(buf.String(), "dev") {
		t.Error("--dev should enable debug logging")
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret("pk_abcdefghi_1700000000000"); got != "pk_abc****" {
		t.Errorf("maskSecret = %q", got)
	}
	if got := maskSecret("abc"); got != "****" {
		t.Errorf("maskSecret(short) = %q", got)
	}
}

func TestResolveDataDir(t *testing.T) {
	old := dataDir
	t.Cleanup(func() { dataDir = old })

	dataDir = "/tmp/dandi-test"
	if got := resolveDataDir(); got != "/tmp/dandi-test" {
		t.Errorf("resolveDataDir = %q", got)
	}
	if !strings.HasSuffix(pidFilePath(), "dandi.pid") {
		t.Errorf("pidFilePath = %q", pidFilePath())
	}
}

func TestNewRecorder_QueueDoesNotBlockRecord(t *testing.T) {
	// A Redis stand-in that accepts connections and never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	st, err := store.NewSQLite("")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer st.Close()

	cfg := config.Default()
	cfg.Queue.RedisAddr = ln.Addr().String()
	cfg.Usage.WriteTimeout = 200 * time.Millisecond

	recorder, closeRecorder := newRecorder(cfg, st, newLogger(cfg, io.Discard, false))
	if _, ok := recorder.(*usage.Dispatcher); !ok {
		t.Fatalf("recorder = %T, want *usage.Dispatcher", recorder)
	}

	start := time.Now()
	recorder.Record("key-1", time.Now())
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Record took %v against a stalled Redis", elapsed)
	}

	closeRecorder()
}

func TestNewRecorder_StoreWritesLastUsed(t *testing.T) {
	st, err := store.NewSQLite("")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	key := &model.APIKey{Name: "cli", Secret: "pk_cli_1", IsActive: true, Type: model.KeyTypeDev}
	if err := st.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	cfg := config.Default()
	recorder, closeRecorder := newRecorder(cfg, st, newLogger(cfg, io.Discard, false))
	if _, ok := recorder.(*usage.Dispatcher); !ok {
		t.Fatalf("recorder = %T, want *usage.Dispatcher", recorder)
	}
	recorder.Record(key.ID, time.Now())
	if err := closeRecorder(); err != nil {
		t.Fatalf("closeRecorder: %v", err)
	}

	got, err := st.GetAPIKey(ctx, key.ID)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if got.LastUsedAt == nil {
		t.Fatal("lastUsedAt not written after drain")
	}
}

func TestPrintKey(t *testing.T) {
	limit := int64(100)
	key := &model.APIKey{
		ID:           "k1",
		Name:         "ci",
		Secret:       maskSecret("pk_abcdefghi_1700000000000"),
		IsActive:     false,
		Type:         model.KeyTypeProd,
		MonthlyLimit: &limit,
		CreatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	var buf bytes.Buffer
	if err := printKey(&buf, key, false); err != nil {
		t.Fatalf("printKey: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"k1", "ci", "prod", "Active:    no", "pk_abc****", "100 / month", "Last used: never"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := printKey(&buf, key, true); err != nil {
		t.Fatalf("printKey json: %v", err)
	}
	if !strings.Contains(buf.String(), `"id": "k1"`) || strings.Contains(buf.String(), "abcdefghi") {
		t.Errorf("unexpected json: %s", buf.String())
	}
}
