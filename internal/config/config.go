// Package config holds the typed runtime configuration for the dandi
// server, worker and CLI. Values come from viper, which merges flags,
// DANDI_* environment variables and an optional dandi.yaml file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Niamh518/Dandi-curser-project/internal/store"
)

// EnvPrefix is the prefix for environment overrides (DANDI_SERVER_PORT, ...).
const EnvPrefix = "DANDI"

// Config is the complete runtime configuration.
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	OAuth      OAuthConfig      `yaml:"oauth"`
	Keys       KeysConfig       `yaml:"keys"`
	LLM        LLMConfig        `yaml:"llm"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Usage      UsageConfig      `yaml:"usage"`
	Queue      QueueConfig      `yaml:"queue"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	MaxBodySize     int64         `yaml:"max_body_size"`
}

// DatabaseConfig selects the store backend. An empty DSN with the sqlite
// driver means a dandi.db file under DataDir.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// AuthConfig controls dashboard sessions and API key transport.
type AuthConfig struct {
	SessionSecret  string        `yaml:"session_secret"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	RequireSession bool          `yaml:"require_session"`
	APIKeyHeader   string        `yaml:"api_key_header"`
	CookieSecure   bool          `yaml:"cookie_secure"`
}

// OAuthConfig describes the external identity provider. Sign-in is enabled
// only when ClientID is set.
type OAuthConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	UserInfoURL  string   `yaml:"userinfo_url"`
	Scopes       []string `yaml:"scopes"`
}

// KeysConfig controls secret generation.
type KeysConfig struct {
	Prefix string `yaml:"prefix"`
}

// LLMConfig selects and configures the language model used by the
// summarizer.
//
// An empty Model selects the provider's default.
type LLMConfig struct {
	Provider        string  `yaml:"provider"`
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
	OpenAIAPIKey    string  `yaml:"openai_api_key"`
	OpenAIBaseURL   string  `yaml:"openai_base_url"`
	AnthropicAPIKey string  `yaml:"anthropic_api_key"`
}

// SummarizerConfig controls request screening for the summarizer.
type SummarizerConfig struct {
	HostMarker string `yaml:"host_marker"`
}

// UsageConfig sizes the in-process last-used writer.
type UsageConfig struct {
	QueueSize    int           `yaml:"queue_size"`
	Workers      int           `yaml:"workers"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// QueueConfig points usage recording at a Redis-backed task queue. Leave
// RedisAddr empty to record usage in-process.
type QueueConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Concurrency   int    `yaml:"concurrency"`
}

// RateLimitConfig throttles the key-authenticated endpoints per client IP.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config pre-filled with sensible defaults.
func Default() *Config {
	pool := store.DefaultPoolConfig()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
			MaxBodySize:     1 << 20,
		},
		Database: DatabaseConfig{
			Driver:          store.DriverSQLite,
			MaxOpenConns:    pool.MaxOpenConns,
			MaxIdleConns:    pool.MaxIdleConns,
			ConnMaxLifetime: pool.ConnMaxLifetime,
		},
		Auth: AuthConfig{
			SessionTTL:   24 * time.Hour,
			APIKeyHeader: "X-API-Key",
		},
		OAuth: OAuthConfig{
			AuthURL:     "https://accounts.google.com/o/oauth2/auth",
			TokenURL:    "https://oauth2.googleapis.com/token",
			UserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
			Scopes:      []string{"openid", "email", "profile"},
		},
		Keys: KeysConfig{
			Prefix: "pk",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Temperature: 0.7,
			MaxTokens:   1024,
		},
		Summarizer: SummarizerConfig{
			HostMarker: "github.com",
		},
		Usage: UsageConfig{
			QueueSize:    1024,
			Workers:      2,
			WriteTimeout: 5 * time.Second,
		},
		Queue: QueueConfig{
			Concurrency: 10,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerMinute: 60,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every default with v so that environment variables
// and config files only need to name the keys they override.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("data_dir", d.DataDir)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)

	v.SetDefault("auth.session_secret", d.Auth.SessionSecret)
	v.SetDefault("auth.session_ttl", d.Auth.SessionTTL)
	v.SetDefault("auth.require_session", d.Auth.RequireSession)
	v.SetDefault("auth.api_key_header", d.Auth.APIKeyHeader)
	v.SetDefault("auth.cookie_secure", d.Auth.CookieSecure)

	v.SetDefault("oauth.client_id", d.OAuth.ClientID)
	v.SetDefault("oauth.client_secret", d.OAuth.ClientSecret)
	v.SetDefault("oauth.redirect_url", d.OAuth.RedirectURL)
	v.SetDefault("oauth.auth_url", d.OAuth.AuthURL)
	v.SetDefault("oauth.token_url", d.OAuth.TokenURL)
	v.SetDefault("oauth.userinfo_url", d.OAuth.UserInfoURL)
	v.SetDefault("oauth.scopes", d.OAuth.Scopes)

	v.SetDefault("keys.prefix", d.Keys.Prefix)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.openai_api_key", d.LLM.OpenAIAPIKey)
	v.SetDefault("llm.openai_base_url", d.LLM.OpenAIBaseURL)
	v.SetDefault("llm.anthropic_api_key", d.LLM.AnthropicAPIKey)

	v.SetDefault("summarizer.host_marker", d.Summarizer.HostMarker)

	v.SetDefault("usage.queue_size", d.Usage.QueueSize)
	v.SetDefault("usage.workers", d.Usage.Workers)
	v.SetDefault("usage.write_timeout", d.Usage.WriteTimeout)

	v.SetDefault("queue.redis_addr", d.Queue.RedisAddr)
	v.SetDefault("queue.redis_password", d.Queue.RedisPassword)
	v.SetDefault("queue.redis_db", d.Queue.RedisDB)
	v.SetDefault("queue.concurrency", d.Queue.Concurrency)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.requests_per_minute", d.RateLimit.RequestsPerMinute)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// BindEnv wires the DANDI_ prefix and the dotted-key replacer into v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load builds a typed Config from v. Defaults must already be registered
// with SetDefaults. The result is validated before it is returned.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DataDir: v.GetString("data_dir"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			CORSOrigins:     v.GetStringSlice("server.cors_origins"),
			MaxBodySize:     v.GetInt64("server.max_body_size"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			DSN:             v.GetString("database.dsn"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Auth: AuthConfig{
			SessionSecret:  v.GetString("auth.session_secret"),
			SessionTTL:     v.GetDuration("auth.session_ttl"),
			RequireSession: v.GetBool("auth.require_session"),
			APIKeyHeader:   v.GetString("auth.api_key_header"),
			CookieSecure:   v.GetBool("auth.cookie_secure"),
		},
		OAuth: OAuthConfig{
			ClientID:     v.GetString("oauth.client_id"),
			ClientSecret: v.GetString("oauth.client_secret"),
			RedirectURL:  v.GetString("oauth.redirect_url"),
			AuthURL:      v.GetString("oauth.auth_url"),
			TokenURL:     v.GetString("oauth.token_url"),
			UserInfoURL:  v.GetString("oauth.userinfo_url"),
			Scopes:       v.GetStringSlice("oauth.scopes"),
		},
		Keys: KeysConfig{
			Prefix: v.GetString("keys.prefix"),
		},
		LLM: LLMConfig{
			Provider:        strings.ToLower(v.GetString("llm.provider")),
			Model:           v.GetString("llm.model"),
			Temperature:     v.GetFloat64("llm.temperature"),
			MaxTokens:       v.GetInt("llm.max_tokens"),
			OpenAIAPIKey:    v.GetString("llm.openai_api_key"),
			OpenAIBaseURL:   v.GetString("llm.openai_base_url"),
			AnthropicAPIKey: v.GetString("llm.anthropic_api_key"),
		},
		Summarizer: SummarizerConfig{
			HostMarker: v.GetString("summarizer.host_marker"),
		},
		Usage: UsageConfig{
			QueueSize:    v.GetInt("usage.queue_size"),
			Workers:      v.GetInt("usage.workers"),
			WriteTimeout: v.GetDuration("usage.write_timeout"),
		},
		Queue: QueueConfig{
			RedisAddr:     v.GetString("queue.redis_addr"),
			RedisPassword: v.GetString("queue.redis_password"),
			RedisDB:       v.GetInt("queue.redis_db"),
			Concurrency:   v.GetInt("queue.concurrency"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           v.GetBool("rate_limit.enabled"),
			RequestsPerMinute: v.GetInt("rate_limit.requests_per_minute"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverPostgres, store.DriverMySQL, store.DriverSQLServer, "pgx", "mssql":
	default:
		return fmt.Errorf("database.driver %q is not supported (sqlite, postgres, mysql, sqlserver)", c.Database.Driver)
	}
	if c.Database.Driver != store.DriverSQLite && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider %q is not supported (openai, anthropic)", c.LLM.Provider)
	}
	if strings.TrimSpace(c.Keys.Prefix) == "" {
		return fmt.Errorf("keys.prefix must not be empty")
	}
	if c.Usage.Workers < 1 {
		return fmt.Errorf("usage.workers must be at least 1")
	}
	if c.Usage.QueueSize < 1 {
		return fmt.Errorf("usage.queue_size must be at least 1")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute < 1 {
		return fmt.Errorf("rate_limit.requests_per_minute must be at least 1 when enabled")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not supported (text, json)", c.Log.Format)
	}
	return nil
}

// OAuthEnabled reports whether dashboard sign-in is configured.
func (c *Config) OAuthEnabled() bool {
	return c.OAuth.ClientID != ""
}

// SessionRequired reports whether the key management and profile routes
// must carry a valid dashboard session.
func (c *Config) SessionRequired() bool {
	return c.OAuthEnabled() || c.Auth.RequireSession
}

// QueueEnabled reports whether usage events go through Redis.
func (c *Config) QueueEnabled() bool {
	return c.Queue.RedisAddr != ""
}

// StoreConfig translates the database settings into a store.Config.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Driver: c.Database.Driver,
		DSN:    c.Database.DSN,
		Pool: store.PoolConfig{
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
	}
}
