package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/session"
)

// GetBootstrapTool handles the phishri_get_bootstrap MCP tool.
type GetBootstrapTool struct {
	session *session.Session
}

// NewGetBootstrapTool creates a GetBootstrapTool.
func NewGetBootstrapTool(s *session.Session) *GetBootstrapTool {
	return &GetBootstrapTool{session: s}
}

// Definition returns the MCP tool definition for phishri_get_bootstrap.
func (t *GetBootstrapTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_get_bootstrap",
		mcp.WithDescription(
			"Get current session state from bootstrap file. Returns progress tracking, completed batches, "+
				"loaded doors, and recommended next steps for session continuity.",
		),
	)
}

// Handle processes the phishri_get_bootstrap tool call. A session without
// a bootstrap file is not an error.
func (t *GetBootstrapTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, ok, err := t.session.ReadBootstrap()
	if err != nil {
		return nil, err
	}
	path := t.session.BootstrapPath()
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf(
			"# No Bootstrap File\n\nNo session state found at: %s\n\nThis is a new session for agent '%s' (session: %s)",
			path, t.session.AgentID(), t.session.SessionID(),
		)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Session Bootstrap\n\n**Agent:** %s\n**Session:** %s\n**Path:** %s\n\n---\n\n%s",
		t.session.AgentID(), t.session.SessionID(), path, content,
	)), nil
}

// UpdateBootstrapTool handles the phishri_update_bootstrap MCP tool.
type UpdateBootstrapTool struct {
	session *session.Session
}

// NewUpdateBootstrapTool creates an UpdateBootstrapTool.
func NewUpdateBootstrapTool(s *session.Session) *UpdateBootstrapTool {
	return &UpdateBootstrapTool{session: s}
}

// Definition returns the MCP tool definition for phishri_update_bootstrap.
func (t *UpdateBootstrapTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_update_bootstrap",
		mcp.WithDescription(
			"Update session state in bootstrap file. Use this to track progress, mark completed work, "+
				"and set next steps for session continuity.",
		),
		mcp.WithString("progress",
			mcp.Description("Current progress description (e.g., 'Completed security audit phase 1')"),
		),
		mcp.WithString("batch_completed",
			mcp.Description("Description of completed batch/milestone"),
		),
		mcp.WithArray("next_options",
			mcp.Description("Array of recommended next steps or door codes"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("doors_loaded",
			mcp.Description("Array of door codes loaded in this session"),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the phishri_update_bootstrap tool call. The record is
// replaced as a whole; omitted fields are written empty.
func (t *UpdateBootstrapTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := t.session.UpdateBootstrap(session.BootstrapUpdate{
		Progress:       req.GetString("progress", ""),
		BatchCompleted: req.GetString("batch_completed", ""),
		NextOptions:    stringsArg(req, "next_options"),
		DoorsLoaded:    stringsArg(req, "doors_loaded"),
	})
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("Bootstrap updated successfully at: %s", path)), nil
}
