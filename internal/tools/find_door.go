package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/knowledge"
)

// FindDoorTool handles the phishri_find_door MCP tool.
type FindDoorTool struct {
	manager *knowledge.Manager
}

// NewFindDoorTool creates a FindDoorTool.
func NewFindDoorTool(m *knowledge.Manager) *FindDoorTool {
	return &FindDoorTool{manager: m}
}

// Definition returns the MCP tool definition for phishri_find_door.
func (t *FindDoorTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_find_door",
		mcp.WithDescription(
			"Search for doors using natural language query. Uses fuzzy matching against door names, "+
				"aliases, tags, and descriptions. Returns matches ranked by confidence score.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query (e.g., 'enterprise deployment', 'silent install', 'security hardening', 'git workflow')"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 5)"),
			mcp.DefaultNumber(5),
			mcp.Min(1),
		),
	)
}

// Handle processes the phishri_find_door tool call.
func (t *FindDoorTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := requiredString(req, "query")
	if err != nil {
		return nil, err
	}
	limit := intArg(req, "limit", 5)

	matches, total, err := t.manager.Find(query, limit)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No doors found matching: %s", query)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Search Results for: %q\n\n", query)
	for _, m := range matches {
		if m.FullText {
			fmt.Fprintf(&sb, "- **%s** (full-text) - %s\n", m.DoorCode, m.Preview)
			continue
		}
		fmt.Fprintf(&sb, "- **%s** (score: %d) - %s\n", m.DoorCode, m.Score, m.Preview)
	}
	fmt.Fprintf(&sb, "\n_Found %d matches, showing top %d_", total, len(matches))
	return mcp.NewToolResultText(sb.String()), nil
}
