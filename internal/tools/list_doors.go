package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/knowledge"
)

// ListDoorsTool handles the phishri_list_doors MCP tool.
type ListDoorsTool struct {
	manager *knowledge.Manager
}

// NewListDoorsTool creates a ListDoorsTool.
func NewListDoorsTool(m *knowledge.Manager) *ListDoorsTool {
	return &ListDoorsTool{manager: m}
}

// Definition returns the MCP tool definition for phishri_list_doors.
func (t *ListDoorsTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_list_doors",
		mcp.WithDescription(
			"List available doors in the PhiSHRI knowledge base, optionally filtered by category. "+
				"Returns door codes with brief descriptions.",
		),
		mcp.WithString("category",
			mcp.Description("Filter by category: SECURITY, TOOLS, WORKFLOWS, ARCHITECTURE, AGENTS, PROJECTS, ERRORS, LANGUAGES. "+
				"Leave empty for all doors."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of doors to return (default: 50)"),
			mcp.DefaultNumber(50),
			mcp.Min(1),
		),
	)
}

// Handle processes the phishri_list_doors tool call.
func (t *ListDoorsTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := strings.TrimSpace(req.GetString("category", ""))
	limit := intArg(req, "limit", 50)

	items, err := t.manager.List(category, limit)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if category != "" {
		fmt.Fprintf(&sb, "# Doors in category: %s\n\n", category)
	} else {
		sb.WriteString("# All Doors\n\n")
	}
	for _, item := range items {
		fmt.Fprintf(&sb, "- %s\n", item.Line())
	}
	return mcp.NewToolResultText(sb.String()), nil
}
