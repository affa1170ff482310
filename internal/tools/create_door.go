package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/door"
	"github.com/Stryk91/PhiSHRI/internal/knowledge"
	"github.com/Stryk91/PhiSHRI/internal/router"
)

// CreateDoorTool handles the phishri_create_door MCP tool.
type CreateDoorTool struct {
	manager *knowledge.Manager
}

// NewCreateDoorTool creates a CreateDoorTool.
func NewCreateDoorTool(m *knowledge.Manager) *CreateDoorTool {
	return &CreateDoorTool{manager: m}
}

// Definition returns the MCP tool definition for phishri_create_door.
func (t *CreateDoorTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Create a new door with enforced template structure. Validates all fields and prevents " +
				"malformed doors. Automatically updates indexes after creation.",
		),
		mcp.WithString("door_code",
			mcp.Required(),
			mcp.Description("Unique door code (e.g., 'D15NEW_FEATURE', 'S26HARDENING'). Format: PREFIX + NUMBER + DESCRIPTIVE_NAME"),
		),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("Door category"),
			mcp.Enum(door.Categories...),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Brief summary of what this door covers (1-2 sentences)"),
		),
	}
	opts = append(opts, doorFieldOptions()...)
	return mcp.NewTool("phishri_create_door", opts...)
}

// Handle processes the phishri_create_door tool call. An already existing
// code is reported as a tool error; malformed parameters fail the call.
func (t *CreateDoorTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := createParamsFrom(req.GetArguments())
	if p.DoorCode == "" || p.Category == "" || p.Summary == "" {
		return nil, fmt.Errorf("%w: Missing required fields: door_code, category, summary", router.ErrInvalidParams)
	}

	res, err := t.manager.Create(p)
	if errors.Is(err, door.ErrDoorExists) {
		return mcp.NewToolResultError(fmt.Sprintf("Create failed: %v", err)), nil
	}
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"# Door Created\n\n- **Code:** %s\n- **File:** %s\n- **Validated:** true",
		res.DoorCode, res.FilePath,
	)), nil
}
