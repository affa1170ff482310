package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/knowledge"
)

// LoadChainTool handles the phishri_load_chain MCP tool.
type LoadChainTool struct {
	manager *knowledge.Manager
}

// NewLoadChainTool creates a LoadChainTool.
func NewLoadChainTool(m *knowledge.Manager) *LoadChainTool {
	return &LoadChainTool{manager: m}
}

// Definition returns the MCP tool definition for phishri_load_chain.
func (t *LoadChainTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_load_chain",
		mcp.WithDescription(
			"Load multiple doors with automatic prerequisite resolution. Ensures doors are loaded "+
				"in the correct order based on their dependency graph.",
		),
		mcp.WithArray("door_codes",
			mcp.Required(),
			mcp.Description("Array of door codes to load (e.g., ['D05', 'D06', 'W115'])"),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean("include_prerequisites",
			mcp.Description("Automatically include and load prerequisite doors (default: true)"),
			mcp.DefaultBool(true),
		),
	)
}

// Handle processes the phishri_load_chain tool call. The whole call fails
// when any member of the chain is missing.
func (t *LoadChainTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	codes := stringsArg(req, "door_codes")
	if len(codes) == 0 {
		return nil, missingParam("door_codes")
	}

	chain, err := t.manager.LoadChain(codes, boolArg(req, "include_prerequisites", true))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(chain.Text()), nil
}
