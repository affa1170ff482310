package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/knowledge"
)

// RebuildIndexesTool handles the phishri_rebuild_indexes MCP tool.
type RebuildIndexesTool struct {
	manager *knowledge.Manager
}

// NewRebuildIndexesTool creates a RebuildIndexesTool.
func NewRebuildIndexesTool(m *knowledge.Manager) *RebuildIndexesTool {
	return &RebuildIndexesTool{manager: m}
}

// Definition returns the MCP tool definition for phishri_rebuild_indexes.
func (t *RebuildIndexesTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_rebuild_indexes",
		mcp.WithDescription(
			"Rebuild HASH_TABLE and SEMANTIC_MAP indexes from door files. "+
				"Use after adding or modifying doors to update the search indexes.",
		),
	)
}

// Handle processes the phishri_rebuild_indexes tool call.
func (t *RebuildIndexesTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.manager.RebuildIndexes()
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("# Index Rebuild Complete\n\n- Doors indexed: %d\n- Hash table: %s", res.DoorsIndexed, res.HashTablePath)
	if res.SearchIndexed {
		text += "\n- Full-text index: refreshed"
	}
	return mcp.NewToolResultText(text), nil
}
