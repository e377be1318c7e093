package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Niamh518/Dandi-curser-project/internal/mcp"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes API key management,
key validation and repository summaries as tools for AI agents.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for direct integration with desktop MCP clients.

In HTTP mode, the server listens on the specified port using the streamable
HTTP transport. 'dandi serve' also mounts the same server at /mcp.`,
		Example: `  dandi mcp                                # stdio mode
  dandi mcp --transport http --port 3001     # streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// stdout carries the protocol in stdio mode, so logs go to stderr.
	logger := newLogger(cfg, os.Stderr, false)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	recorder, closeRecorder := newRecorder(cfg, st, logger)
	defer closeRecorder()

	summarizer, err := newSummarizer(cfg)
	if err != nil {
		return fmt.Errorf("init llm provider: %w", err)
	}
	if summarizer == nil {
		logger.Info("no llm api key configured - summarize tool disabled")
	}

	mcpSrv := mcp.NewMCPServer(
		service.NewKeyService(st, cfg.Keys.Prefix),
		service.NewAuthService(st, recorder),
		summarizer,
		versionString(),
		logger,
	)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		return mcpSrv.ServeHTTP(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
