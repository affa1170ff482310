package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// OverviewPrompt handles the phishri_overview MCP prompt.
type OverviewPrompt struct{}

// NewOverviewPrompt creates an OverviewPrompt.
func NewOverviewPrompt() *OverviewPrompt {
	return &OverviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *OverviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("phishri_overview",
		mcp.WithPromptDescription("Get an overview of the PhiSHRI knowledge base and available doors"),
	)
}

// Handle processes the phishri_overview prompt request.
func (p *OverviewPrompt) Handle(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return userPrompt(
		"PhiSHRI knowledge base overview",
		"Give me an overview of the PhiSHRI knowledge base:\n"+
			"1. How many doors are available and in what categories? (`phishri_stats`)\n"+
			"2. What are the most useful doors for common development tasks?\n"+
			"3. How do I use door codes to load context?\n"+
			"4. Show some example door codes and what they contain.",
	), nil
}
