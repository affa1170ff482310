package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// FindContextPrompt handles the find_context MCP prompt.
// It turns a task description into a door search.
type FindContextPrompt struct{}

// NewFindContextPrompt creates a FindContextPrompt.
func NewFindContextPrompt() *FindContextPrompt {
	return &FindContextPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *FindContextPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("find_context",
		mcp.WithPromptDescription("Find relevant doors for your current task using natural language"),
		mcp.WithArgument("query",
			mcp.ArgumentDescription("Describe what you're working on or need help with"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the find_context prompt request.
func (p *FindContextPrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	query := argOr(req, "query", "general development")
	return userPrompt(
		"Find relevant context",
		fmt.Sprintf(
			"I need help with: %s\n\n"+
				"Search PhiSHRI for relevant doors (`phishri_find_door`), load the most applicable ones, "+
				"and use that context to assist me. Explain what context you loaded and why.",
			query,
		),
	), nil
}
