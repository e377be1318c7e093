package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

// --------------------------------------------------------------------------
// Parameter extraction helpers
// --------------------------------------------------------------------------

// requireString extracts a required string argument from the tool request.
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	val, err := request.RequireString(key)
	if err != nil || val == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

// optionalString returns a pointer to a string argument, or nil when the
// argument was not supplied.
func optionalString(request mcp.CallToolRequest, key string) *string {
	raw, ok := request.GetArguments()[key]
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	return &s
}

// optionalBool returns a pointer to a boolean argument, or nil when the
// argument was not supplied.
func optionalBool(request mcp.CallToolRequest, key string) *bool {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	b := request.GetBool(key, false)
	return &b
}

// optionalInt64 returns a pointer to a numeric argument, or nil when the
// argument was not supplied.
func optionalInt64(request mcp.CallToolRequest, key string) *int64 {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	n := int64(request.GetFloat(key, 0))
	return &n
}

// --------------------------------------------------------------------------
// Response builders
// --------------------------------------------------------------------------

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way are
// visible to the LLM so it can self-correct; they do NOT terminate the MCP
// session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// serviceError turns a service failure into a tool error with the same
// wording the HTTP API uses.
func serviceError(err error, fallback string) (*mcp.CallToolResult, error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return toolError("%s", ve.Message)
	case errors.Is(err, service.ErrMissingCredential):
		return toolError("API key is required")
	case service.IsCredentialError(err):
		return toolError("Invalid API key")
	case errors.Is(err, service.ErrNotFound):
		return toolError("API key not found")
	default:
		return toolError("%s", fallback)
	}
}

// keyView is an API key as shown to agents: the secret is masked.
type keyView struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Secret       string        `json:"secret"`
	IsActive     bool          `json:"isActive"`
	Type         model.KeyType `json:"type"`
	MonthlyLimit *int64        `json:"monthlyLimit,omitempty"`
	CreatedAt    string        `json:"createdAt"`
	LastUsedAt   string        `json:"lastUsedAt,omitempty"`
}

func viewOf(k model.APIKey) keyView {
	v := keyView{
		ID:           k.ID,
		Name:         k.Name,
		Secret:       maskSecret(k.Secret),
		IsActive:     k.IsActive,
		Type:         k.Type,
		MonthlyLimit: k.MonthlyLimit,
		CreatedAt:    k.CreatedAt.Format(time.RFC3339),
	}
	if k.LastUsedAt != nil {
		v.LastUsedAt = k.LastUsedAt.Format(time.RFC3339)
	}
	return v
}

// maskSecret keeps only enough of a secret to tell keys apart.
func maskSecret(secret string) string {
	const visible = 6
	if len(secret) <= visible {
		return "****"
	}
	return secret[:visible] + "****"
}
