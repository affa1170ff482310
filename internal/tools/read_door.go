package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/Stryk91/PhiSHRI/internal/door"
	"github.com/Stryk91/PhiSHRI/internal/knowledge"
	"github.com/Stryk91/PhiSHRI/internal/router"
)

// Output formats of phishri_read_door.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// ReadDoorTool handles the phishri_read_door MCP tool.
type ReadDoorTool struct {
	manager *knowledge.Manager
}

// NewReadDoorTool creates a ReadDoorTool.
func NewReadDoorTool(m *knowledge.Manager) *ReadDoorTool {
	return &ReadDoorTool{manager: m}
}

// Definition returns the MCP tool definition for phishri_read_door.
func (t *ReadDoorTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_read_door",
		mcp.WithDescription(
			"Read a specific door by code. Returns complete context bundle including summary, "+
				"prerequisites, related doors, and resources.",
		),
		mcp.WithString("door_code",
			mcp.Required(),
			mcp.Description("Door code (e.g., D05, W115, S01, A01, P01, E03). Supports various prefixes: "+
				"S=Security, W=Workflows, R=Architecture, T/D=Tools, A=Agents, P=Projects, E=Errors."),
		),
		mcp.WithString("format",
			mcp.Description("Output format: markdown (rendered context), json or yaml (raw document)"),
			mcp.Enum(FormatMarkdown, FormatJSON, FormatYAML),
			mcp.DefaultString(FormatMarkdown),
		),
	)
}

// Handle processes the phishri_read_door tool call.
func (t *ReadDoorTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := requiredString(req, "door_code")
	if err != nil {
		return nil, err
	}

	d, err := t.manager.Read(code)
	if err != nil {
		return nil, err
	}

	switch format := req.GetString("format", FormatMarkdown); format {
	case FormatMarkdown, "":
		return mcp.NewToolResultText(d.FullText()), nil
	case FormatJSON:
		data, err := door.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("encoding door %s: %w", d.DoorCode, err)
		}
		return mcp.NewToolResultText(string(data)), nil
	case FormatYAML:
		data, err := toYAML(d)
		if err != nil {
			return nil, fmt.Errorf("encoding door %s: %w", d.DoorCode, err)
		}
		return mcp.NewToolResultText(string(data)), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want markdown, json or yaml)", router.ErrInvalidParams, format)
	}
}

// toYAML renders a door as block-style YAML keeping the JSON field names
// and their order. The JSON encoding is decoded as a YAML node tree and
// the flow styles inherited from JSON are cleared.
func toYAML(d *door.Door) ([]byte, error) {
	data, err := door.Marshal(d)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	clearStyle(&node)
	return yaml.Marshal(&node)
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
