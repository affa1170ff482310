package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/knowledge"
	"github.com/Stryk91/PhiSHRI/internal/router"
)

// ValidateDoorTool handles the phishri_validate_door MCP tool.
type ValidateDoorTool struct {
	manager *knowledge.Manager
}

// NewValidateDoorTool creates a ValidateDoorTool.
func NewValidateDoorTool(m *knowledge.Manager) *ValidateDoorTool {
	return &ValidateDoorTool{manager: m}
}

// Definition returns the MCP tool definition for phishri_validate_door.
func (t *ValidateDoorTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_validate_door",
		mcp.WithDescription(
			"Validate a door's structure, check prerequisites exist, verify no broken references. "+
				"Use before committing new doors.",
		),
		mcp.WithString("door_code",
			mcp.Description("Door code to validate (validates existing door)"),
		),
		mcp.WithString("file_path",
			mcp.Description("Path to door JSON file to validate (alternative to door_code)"),
		),
	)
}

// Handle processes the phishri_validate_door tool call. An invalid door is
// reported as a tool error carrying the full report.
func (t *ValidateDoorTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code := strings.TrimSpace(req.GetString("door_code", ""))
	path := strings.TrimSpace(req.GetString("file_path", ""))
	if code == "" && path == "" {
		return nil, fmt.Errorf("%w: Must provide door_code or file_path", router.ErrInvalidParams)
	}

	res := t.manager.Validate(code, path)
	report := formatValidation(res)
	if !res.Valid {
		return mcp.NewToolResultError(report), nil
	}
	return mcp.NewToolResultText(report), nil
}

func formatValidation(res knowledge.ValidationResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Validation Result\n\n**Valid:** %s\n", yesNo(res.Valid))
	if res.DoorCode != "" {
		fmt.Fprintf(&sb, "**Door:** %s\n", res.DoorCode)
	}
	if res.FilePath != "" {
		fmt.Fprintf(&sb, "**File:** %s\n", res.FilePath)
	}
	if len(res.Errors) > 0 {
		sb.WriteString("\n## Errors\n")
		for _, e := range res.Errors {
			fmt.Fprintf(&sb, "- %s\n", e)
		}
	}
	if len(res.Warnings) > 0 {
		sb.WriteString("\n## Warnings\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
	}
	if len(res.MissingPrerequisites) > 0 {
		fmt.Fprintf(&sb, "\n**Missing Prerequisites:** %s\n", strings.Join(res.MissingPrerequisites, ", "))
	}
	if len(res.BrokenReferences) > 0 {
		fmt.Fprintf(&sb, "**Broken References:** %s\n", strings.Join(res.BrokenReferences, ", "))
	}
	return sb.String()
}
