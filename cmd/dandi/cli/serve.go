package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Niamh518/Dandi-curser-project/internal/config"
	"github.com/Niamh518/Dandi-curser-project/internal/mcp"
	"github.com/Niamh518/Dandi-curser-project/internal/oauth"
	"github.com/Niamh518/Dandi-curser-project/internal/server"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

const banner = `
 ____    _    _   _ ____ ___
|  _ \  / \  | \ | |  _ \_ _|
| | | |/ _ \ |  \| | | | | |
| |_| / ___ \| |\  | |_| | |
|____/_/   \_\_| \_|____/___|
`

func newServeCmd() *cobra.Command {
	var (
		port       int
		host       string
		noUI       bool
		dev        bool
		background bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Dandi API server",
		Long:  "Start the HTTP server that manages API keys, validates them and serves repository summaries.",
		Example: `  dandi serve
  dandi serve --port 3000 --dev
  dandi serve --background      # detach and write a PID file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if background {
				return runBackground()
			}
			return runServe(noUI, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "Disable the dashboard")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging, CORS *)")
	cmd.Flags().BoolVar(&background, "background", false, "Run the server as a background process")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(noUI, dev bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Print(banner)
	fmt.Println()

	logger := newLogger(cfg, os.Stderr, dev)

	// 1. Open the key store.
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	logger.Info("store initialized", "driver", st.Driver())

	// 2. Usage recording: Redis queue or in-process dispatcher.
	recorder, closeRecorder := newRecorder(cfg, st, logger)

	// 3. Services.
	keys := service.NewKeyService(st, cfg.Keys.Prefix)
	auth := service.NewAuthService(st, recorder)
	profiles := service.NewProfileService(st)

	summarizer, err := newSummarizer(cfg)
	if err != nil {
		closeRecorder()
		st.Close()
		return fmt.Errorf("init llm provider: %w", err)
	}
	if summarizer == nil {
		logger.Warn("no llm api key configured - summarizer routes are disabled", "provider", cfg.LLM.Provider)
	}

	sessionSecret := cfg.Auth.SessionSecret
	if sessionSecret == "" {
		sessionSecret = "dandi-dev-secret-change-me"
		if cfg.SessionRequired() {
			logger.Warn("auth.session_secret is not set - using an insecure development secret")
		}
	}
	sessions := service.NewSessionService(sessionSecret, cfg.Auth.SessionTTL)

	deps := server.Deps{
		Store:      st,
		Keys:       keys,
		Auth:       auth,
		Summarizer: summarizer,
		Profiles:   profiles,
		Sessions:   sessions,
		MCP:        mcp.NewMCPServer(keys, auth, summarizer, versionString(), logger).HTTPHandler(),
		OnShutdown: []func() error{closeRecorder, st.Close},
	}
	if cfg.OAuthEnabled() {
		deps.Identity = oauth.New(oauthConfig(cfg))
	}

	// 4. Build and start HTTP server.
	srvCfg := serverConfig(cfg, noUI, dev)
	srv := server.New(srvCfg, deps, logger)

	if err := writePID(os.Getpid()); err != nil {
		logger.Warn("failed to write PID file", "path", pidFilePath(), "error", err)
	}
	defer removePID()

	printStartup(cfg, srvCfg, summarizer != nil)
	return srv.ListenAndServe()
}

func serverConfig(cfg *config.Config, noUI, dev bool) server.Config {
	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Server.Host
	srvCfg.Port = cfg.Server.Port
	srvCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	srvCfg.CORSOrigins = cfg.Server.CORSOrigins
	srvCfg.MaxBodySize = cfg.Server.MaxBodySize
	srvCfg.EnableUI = !noUI
	srvCfg.APIKeyHeader = cfg.Auth.APIKeyHeader
	srvCfg.RequireSession = cfg.SessionRequired()
	srvCfg.SecureCookie = cfg.Auth.CookieSecure
	srvCfg.Version = versionString()
	srvCfg.RateLimit = 0
	if cfg.RateLimit.Enabled {
		srvCfg.RateLimit = cfg.RateLimit.RequestsPerMinute
	}
	if dev {
		srvCfg.CORSOrigins = []string{"*"}
	}
	return srvCfg
}

func oauthConfig(cfg *config.Config) oauth.Config {
	return oauth.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURL,
		AuthURL:      cfg.OAuth.AuthURL,
		TokenURL:     cfg.OAuth.TokenURL,
		UserInfoURL:  cfg.OAuth.UserInfoURL,
		Scopes:       cfg.OAuth.Scopes,
	}
}

func printStartup(cfg *config.Config, srvCfg server.Config, summaries bool) {
	host := srvCfg.Host
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := fmt.Sprintf("http://%s:%d", host, srvCfg.Port)

	fmt.Printf("→ Dandi %s\n", versionString())
	fmt.Printf("→ Listening on %s\n", base)
	if srvCfg.EnableUI {
		fmt.Printf("→ Dashboard:  %s/dashboard\n", base)
	}
	fmt.Printf("→ OpenAPI:    %s/openapi.json\n", base)
	fmt.Printf("→ MCP:        %s/mcp\n", base)
	fmt.Printf("→ Health:     %s/healthz\n", base)
	if summaries {
		fmt.Printf("→ Summaries:  %s (%s)\n", "on", cfg.LLM.Provider)
	} else {
		fmt.Printf("→ Summaries:  off (set DANDI_LLM_OPENAI_API_KEY)\n")
	}
	if cfg.OAuthEnabled() {
		fmt.Printf("→ Sign-in:    %s/auth/login\n", base)
	}
	fmt.Println()
}

// runBackground re-executes the current binary without --background,
// detached from the terminal, with output going to the log file.
func runBackground() error {
	if pid, err := readPID(); err == nil && isProcessRunning(pid) {
		return fmt.Errorf("server is already running (PID %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	args := make([]string, 0, len(os.Args))
	for _, a := range os.Args[1:] {
		if a != "--background" && a != "--background=true" {
			args = append(args, a)
		}
	}

	if err := os.MkdirAll(resolveDataDir(), 0755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setSysProcAttr(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	slog.Debug("spawned background server", "pid", child.Process.Pid)

	fmt.Printf("Dandi server started in the background (PID %d)\n", child.Process.Pid)
	fmt.Printf("  Logs: %s\n", logFilePath())
	fmt.Println("  Stop it with 'dandi stop'.")
	return child.Process.Release()
}
