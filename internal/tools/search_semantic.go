package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/knowledge"
)

// SearchSemanticTool handles the phishri_search_semantic MCP tool.
type SearchSemanticTool struct {
	manager *knowledge.Manager
}

// NewSearchSemanticTool creates a SearchSemanticTool.
func NewSearchSemanticTool(m *knowledge.Manager) *SearchSemanticTool {
	return &SearchSemanticTool{manager: m}
}

// Definition returns the MCP tool definition for phishri_search_semantic.
func (t *SearchSemanticTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_search_semantic",
		mcp.WithDescription(
			"Search by semantic path to find doors in the knowledge hierarchy "+
				"(e.g., TOOLS.DEPLOYMENT.SILENT, SECURITY.HARDENING, WORKFLOWS.GIT).",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Semantic path to resolve (e.g., 'TOOLS.DEPLOYMENT.SILENT', 'SECURITY.HARDENING'). Supports partial paths."),
		),
	)
}

// Handle processes the phishri_search_semantic tool call.
func (t *SearchSemanticTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := requiredString(req, "path")
	if err != nil {
		return nil, err
	}

	matches, err := t.manager.SearchSemantic(path)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No doors found with semantic path containing: %s", path)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Semantic Search: %s\n\n", path)
	for _, m := range matches {
		fmt.Fprintf(&sb, "- %s → %s\n", m.DoorCode, m.SemanticPath)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
