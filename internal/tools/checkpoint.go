package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/session"
)

// CheckpointTool handles the phishri_session_checkpoint MCP tool.
type CheckpointTool struct {
	session *session.Session
}

// NewCheckpointTool creates a CheckpointTool.
func NewCheckpointTool(s *session.Session) *CheckpointTool {
	return &CheckpointTool{session: s}
}

// Definition returns the MCP tool definition for phishri_session_checkpoint.
func (t *CheckpointTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_session_checkpoint",
		mcp.WithDescription(
			"Create a named session checkpoint with loaded doors and notes. "+
				"Enables easy resumption of complex multi-session tasks.",
		),
		mcp.WithString("checkpoint_name",
			mcp.Required(),
			mcp.Description("Name for this checkpoint (e.g., 'security-audit-phase1', 'deployment-prep')"),
		),
		mcp.WithArray("doors_loaded",
			mcp.Required(),
			mcp.Description("Array of door codes that were loaded/referenced"),
			mcp.WithStringItems(),
		),
		mcp.WithString("notes",
			mcp.Description("Optional notes about current state or context"),
		),
	)
}

// Handle processes the phishri_session_checkpoint tool call. A checkpoint
// whose name sanitizes to an existing one replaces it.
func (t *CheckpointTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := requiredString(req, "checkpoint_name")
	if err != nil {
		return nil, err
	}

	path, err := t.session.Checkpoint(name, stringsArg(req, "doors_loaded"), req.GetString("notes", ""))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("Checkpoint '%s' created at: %s", name, path)), nil
}
