package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/Niamh518/Dandi-curser-project/internal/config"
	"github.com/Niamh518/Dandi-curser-project/internal/llm"
	"github.com/Niamh518/Dandi-curser-project/internal/queue"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
	"github.com/Niamh518/Dandi-curser-project/internal/store"
	"github.com/Niamh518/Dandi-curser-project/internal/usage"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// loadConfig builds the typed configuration from the global viper instance.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// resolveDataDir returns the data directory from --data-dir flag, the
// data_dir setting (DANDI_DATA_DIR), or ~/.dandi as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if d := viper.GetString("data_dir"); d != "" {
		return d
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dandi")
}

// openStore opens the configured database. SQLite without a DSN lives in
// the data directory.
func openStore(cfg *config.Config) (*store.Store, error) {
	if cfg.Database.Driver == store.DriverSQLite && cfg.Database.DSN == "" {
		return store.NewSQLite(resolveDataDir())
	}
	return store.Open(cfg.StoreConfig())
}

// newLogger builds the process logger. dev forces debug level.
func newLogger(cfg *config.Config, w io.Writer, dev bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if dev {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newProvider builds the language model client. It returns nil when no
// credentials are configured, which disables summaries.
func newProvider(cfg *config.Config) (llm.Provider, error) {
	lc := llm.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}
	switch cfg.LLM.Provider {
	case "anthropic":
		lc.APIKey = cfg.LLM.AnthropicAPIKey
	default:
		lc.APIKey = cfg.LLM.OpenAIAPIKey
		lc.BaseURL = cfg.LLM.OpenAIBaseURL
	}
	if lc.APIKey == "" {
		return nil, nil
	}
	return llm.New(lc)
}

// newSummarizer wraps newProvider. A nil summarizer means summaries are off.
func newSummarizer(cfg *config.Config) (*service.Summarizer, error) {
	provider, err := newProvider(cfg)
	if err != nil || provider == nil {
		return nil, err
	}
	return service.NewSummarizer(provider, cfg.Summarizer.HostMarker), nil
}

// newRecorder puts a bounded in-process dispatcher in front of the place
// last-used updates go: the Redis queue when one is configured, otherwise
// the store. The returned func drains and releases both.
func newRecorder(cfg *config.Config, st *store.Store, logger *slog.Logger) (usage.Recorder, func() error) {
	opts := usage.Options{
		QueueSize:    cfg.Usage.QueueSize,
		Workers:      cfg.Usage.Workers,
		WriteTimeout: cfg.Usage.WriteTimeout,
	}

	var sink usage.Toucher = st
	release := func() error { return nil }
	if cfg.QueueEnabled() {
		client := queue.NewClient(redisConfig(cfg), logger)
		logger.Info("usage events go to the task queue", "redis", cfg.Queue.RedisAddr)
		sink, release = client, client.Close
	}

	d := usage.NewDispatcher(sink, opts, logger)
	return d, func() error {
		d.Close()
		logger.Info("usage dispatcher drained", "written", d.Written(), "dropped", d.Dropped())
		return release()
	}
}

func redisConfig(cfg *config.Config) queue.RedisConfig {
	return queue.RedisConfig{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
	}
}

// --- PID file management ---

func pidFilePath() string {
	return filepath.Join(resolveDataDir(), "dandi.pid")
}

func writePID(pid int) error {
	dir := resolveDataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0644)
}

func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePID() {
	os.Remove(pidFilePath())
}

func logFilePath() string {
	return filepath.Join(resolveDataDir(), "dandi.log")
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}

// maskSecret shows enough of a secret to recognise it.
func maskSecret(secret string) string {
	if len(secret) <= 6 {
		return "****"
	}
	return secret[:6] + "****"
}
