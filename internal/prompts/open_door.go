package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/door"
)

// OpenDoorPrompt handles the open_door MCP prompt.
// It asks the AI to load one door and summarize it.
type OpenDoorPrompt struct{}

// NewOpenDoorPrompt creates an OpenDoorPrompt.
func NewOpenDoorPrompt() *OpenDoorPrompt {
	return &OpenDoorPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *OpenDoorPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("open_door",
		mcp.WithPromptDescription("Open a PhiSHRI door to load context for a specific topic"),
		mcp.WithArgument("door_code",
			mcp.ArgumentDescription("The door code to open (e.g., D05, S01, W115)"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the open_door prompt request. The door code defaults
// to D05.
func (p *OpenDoorPrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	code := door.NormalizeCode(argOr(req, "door_code", "D05"))
	return userPrompt(
		fmt.Sprintf("Load context from door %s", code),
		fmt.Sprintf(
			"Please open PhiSHRI door %s and use the context to help me with my current task. "+
				"Run `phishri_read_door` with door_code='%s' (or `phishri_load_chain` if it has prerequisites). "+
				"After loading, summarize the key points and ask how you can help.",
			code, code,
		),
	), nil
}
