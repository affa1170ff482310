package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/door"
	"github.com/Stryk91/PhiSHRI/internal/knowledge"
)

// GetPrerequisitesTool handles the phishri_get_prerequisites MCP tool.
type GetPrerequisitesTool struct {
	manager *knowledge.Manager
}

// NewGetPrerequisitesTool creates a GetPrerequisitesTool.
func NewGetPrerequisitesTool(m *knowledge.Manager) *GetPrerequisitesTool {
	return &GetPrerequisitesTool{manager: m}
}

// Definition returns the MCP tool definition for phishri_get_prerequisites.
func (t *GetPrerequisitesTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_get_prerequisites",
		mcp.WithDescription(
			"Get the prerequisite chain for a door - what doors should be read first. "+
				"Returns ordered list based on dependency graph.",
		),
		mcp.WithString("door_code",
			mcp.Required(),
			mcp.Description("Door code to get prerequisites for"),
		),
	)
}

// Handle processes the phishri_get_prerequisites tool call. Missing
// prerequisites are listed inline with a [MISSING] marker.
func (t *GetPrerequisitesTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := requiredString(req, "door_code")
	if err != nil {
		return nil, err
	}

	order, err := t.manager.GetPrerequisites(code)
	if err != nil {
		return nil, err
	}
	if len(order) <= 1 {
		return mcp.NewToolResultText(fmt.Sprintf("Door %s has no prerequisites.", code)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Prerequisites for %s\n\n", door.NormalizeCode(code))
	sb.WriteString("Read these doors in order:\n\n")
	for i, c := range order {
		marker := ""
		if i == len(order)-1 {
			marker = " ← (target)"
		}
		fmt.Fprintf(&sb, "%d. %s%s\n", i+1, c, marker)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
