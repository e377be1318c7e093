package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const keysResourceURI = "dandi://keys"

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			keysResourceURI,
			"API Keys",
			mcp.WithResourceDescription(
				"All API keys with their type, status and last use. Secrets are masked.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleKeysResource,
	)
}

// handleKeysResource returns a JSON list of all keys without their secrets.
func (s *MCPServer) handleKeysResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	keys, err := s.keys.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}

	items := make([]keyView, len(keys))
	for i, k := range keys {
		items[i] = viewOf(k)
	}

	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal api keys: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      keysResourceURI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
