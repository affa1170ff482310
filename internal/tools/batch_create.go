package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/knowledge"
	"github.com/Stryk91/PhiSHRI/internal/router"
)

// BatchCreateTool handles the phishri_batch_create MCP tool.
type BatchCreateTool struct {
	manager *knowledge.Manager
}

// NewBatchCreateTool creates a BatchCreateTool.
func NewBatchCreateTool(m *knowledge.Manager) *BatchCreateTool {
	return &BatchCreateTool{manager: m}
}

// Definition returns the MCP tool definition for phishri_batch_create.
func (t *BatchCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_batch_create",
		mcp.WithDescription(
			"Create multiple doors atomically with validation. Rolls back all on any error. "+
				"Updates indexes once after all doors created.",
		),
		mcp.WithArray("doors",
			mcp.Required(),
			mcp.Description("Array of door definitions to create"),
			mcp.Items(doorItemSchema()),
		),
		mcp.WithBoolean("validate",
			mcp.Description("Validate all doors before creating (default: true)"),
			mcp.DefaultBool(true),
		),
		mcp.WithBoolean("update_indexes",
			mcp.Description("Rebuild indexes after creation (default: true)"),
			mcp.DefaultBool(true),
		),
	)
}

// Handle processes the phishri_batch_create tool call. A failed batch is
// reported as a tool error listing every problem found.
func (t *BatchCreateTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["doors"].([]any)
	if !ok {
		return nil, missingParam("doors")
	}
	items := make([]knowledge.CreateParams, 0, len(raw))
	for i, v := range raw {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: doors[%d] is not an object", router.ErrInvalidParams, i)
		}
		items = append(items, createParamsFrom(obj))
	}

	res := t.manager.BatchCreate(items,
		boolArg(req, "validate", true),
		boolArg(req, "update_indexes", true),
	)

	report := formatBatch(res)
	if !res.Success {
		return mcp.NewToolResultError(report), nil
	}
	return mcp.NewToolResultText(report), nil
}

func formatBatch(res knowledge.BatchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Batch Create Result\n\n**Success:** %s\n**Created:** %d\n", yesNo(res.Success), len(res.Created))
	if len(res.Created) > 0 {
		fmt.Fprintf(&sb, "\n## Created Doors\n%s\n", strings.Join(res.Created, ", "))
	}
	if len(res.Errors) > 0 {
		sb.WriteString("\n## Errors\n")
		for _, e := range res.Errors {
			fmt.Fprintf(&sb, "- %s\n", e)
		}
	}
	if res.IndexesUpdated {
		fmt.Fprintf(&sb, "\n**Total Doors After:** %d\n", res.TotalDoors)
	}
	return sb.String()
}
