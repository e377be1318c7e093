package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

// registerTools registers all Dandi MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Key management -----

	srv.AddTool(
		mcp.NewTool("dandi_list_api_keys",
			mcp.WithDescription(
				"List all API keys, newest first. Secrets are masked; use the dashboard "+
					"to reveal a full secret.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListKeys,
	)

	srv.AddTool(
		mcp.NewTool("dandi_create_api_key",
			mcp.WithDescription(
				"Create a new active API key. The full secret is returned once in the "+
					"result; store it safely.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Human readable label for the key"),
			),
			mcp.WithString("type",
				mcp.Description("Key type: dev (default) or prod"),
				mcp.Enum("dev", "prod"),
			),
			mcp.WithNumber("monthly_limit",
				mcp.Description("Advisory monthly request limit"),
			),
		),
		s.handleCreateKey,
	)

	srv.AddTool(
		mcp.NewTool("dandi_update_api_key",
			mcp.WithDescription("Rename an API key or switch it on or off."),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("ID of the key to update"),
			),
			mcp.WithString("name",
				mcp.Description("New name for the key"),
			),
			mcp.WithBoolean("is_active",
				mcp.Description("false revokes the key, true restores it"),
			),
		),
		s.handleUpdateKey,
	)

	srv.AddTool(
		mcp.NewTool("dandi_delete_api_key",
			mcp.WithDescription("Permanently delete an API key. Requests using it will fail immediately."),
			mcp.WithToolAnnotation(destructiveAnnotation()),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("ID of the key to delete"),
			),
		),
		s.handleDeleteKey,
	)

	// ----- Validation -----

	srv.AddTool(
		mcp.NewTool("dandi_validate_api_key",
			mcp.WithDescription(
				"Check whether an API key secret is valid and active. Returns the key's "+
					"id and name on success. Counts as a use of the key.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("secret",
				mcp.Required(),
				mcp.Description("The full API key secret"),
			),
		),
		s.handleValidateKey,
	)

	// ----- Summarizer -----

	if s.summarizer != nil {
		srv.AddTool(
			mcp.NewTool("dandi_summarize_repository",
				mcp.WithDescription(
					"Summarize a GitHub repository and list a few interesting facts about it. "+
						"Requires a valid API key.",
				),
				mcp.WithToolAnnotation(readOnlyAnnotation()),
				mcp.WithString("repository_url",
					mcp.Required(),
					mcp.Description("URL of the repository, e.g. https://github.com/owner/name"),
				),
				mcp.WithString("api_key",
					mcp.Required(),
					mcp.Description("API key secret used to authorize the request"),
				),
			),
			s.handleSummarize,
		)
	}
}

func (s *MCPServer) handleListKeys(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	keys, err := s.keys.List(ctx)
	if err != nil {
		s.logger.Error("mcp list keys failed", "error", err)
		return serviceError(err, "Failed to fetch API keys")
	}

	items := make([]keyView, len(keys))
	for i, k := range keys {
		items[i] = viewOf(k)
	}
	return successJSON(items)
}

func (s *MCPServer) handleCreateKey(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	name, err := requireString(request, "name")
	if err != nil {
		return toolError("%v", err)
	}

	key, err := s.keys.Create(ctx, service.CreateKeyInput{
		Name:         name,
		Type:         model.KeyType(request.GetString("type", "")),
		MonthlyLimit: optionalInt64(request, "monthly_limit"),
	})
	if err != nil {
		s.logger.Error("mcp create key failed", "error", err)
		return serviceError(err, "Failed to create API key")
	}

	// The creator gets the secret in full, once.
	return successJSON(key)
}

func (s *MCPServer) handleUpdateKey(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireString(request, "id")
	if err != nil {
		return toolError("%v", err)
	}

	key, err := s.keys.Update(ctx, service.UpdateKeyInput{
		ID:       id,
		Name:     optionalString(request, "name"),
		IsActive: optionalBool(request, "is_active"),
	})
	if err != nil {
		return serviceError(err, "Failed to update API key")
	}
	return successJSON(viewOf(*key))
}

func (s *MCPServer) handleDeleteKey(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireString(request, "id")
	if err != nil {
		return toolError("%v", err)
	}

	key, err := s.keys.Delete(ctx, id)
	if err != nil {
		return serviceError(err, "Failed to delete API key")
	}
	return successJSON(viewOf(*key))
}

func (s *MCPServer) handleValidateKey(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	secret := request.GetString("secret", "")
	principal, err := s.auth.ValidateAPIKey(ctx, secret)
	if err != nil {
		return serviceError(err, "Internal server error")
	}

	return successJSON(map[string]interface{}{
		"valid":   true,
		"message": "API key is valid",
		"key":     principal,
	})
}

func (s *MCPServer) handleSummarize(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	if _, err := s.auth.ValidateAPIKey(ctx, request.GetString("api_key", "")); err != nil {
		return serviceError(err, "Internal server error")
	}

	summary, err := s.summarizer.Summarize(ctx, request.GetString("repository_url", ""))
	if err != nil {
		s.logger.Error("mcp summarize failed", "error", err)
		return serviceError(err, "Failed to summarize GitHub repository")
	}
	return successJSON(summary)
}
