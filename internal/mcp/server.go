package mcp

import (
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

// MCPServer wraps the mcp-go server with Dandi tool and resource
// registrations. It exposes API key management, key validation and the
// repository summarizer to AI agents.
type MCPServer struct {
	keys       *service.KeyService
	auth       *service.AuthService
	summarizer *service.Summarizer
	logger     *slog.Logger
	server     *server.MCPServer
}

// NewMCPServer creates an MCPServer with all tools and resources
// registered. summarizer may be nil, in which case the summarize tool is
// not offered.
func NewMCPServer(keys *service.KeyService, auth *service.AuthService, summarizer *service.Summarizer, version string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		keys:       keys,
		auth:       auth,
		summarizer: summarizer,
		logger:     logger,
	}

	mcpServer := server.NewMCPServer(
		"Dandi API Keys",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, for clients that launch
// it as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// HTTPHandler returns a Streamable HTTP handler suitable for mounting on
// an existing router.
func (s *MCPServer) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.server)
}

// ServeHTTP starts a standalone Streamable HTTP listener on addr.
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(false),
	}
}

func destructiveAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
