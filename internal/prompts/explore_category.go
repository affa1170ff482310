package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/door"
)

// ExploreCategoryPrompt handles the explore_category MCP prompt.
type ExploreCategoryPrompt struct{}

// NewExploreCategoryPrompt creates an ExploreCategoryPrompt.
func NewExploreCategoryPrompt() *ExploreCategoryPrompt {
	return &ExploreCategoryPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ExploreCategoryPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("explore_category",
		mcp.WithPromptDescription("Explore all doors in a specific category"),
		mcp.WithArgument("category",
			mcp.ArgumentDescription("Category: "+strings.Join(door.Categories, ", ")),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the explore_category prompt request. The category
// defaults to TOOLS.
func (p *ExploreCategoryPrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	category := strings.ToUpper(argOr(req, "category", door.CategoryTools))
	return userPrompt(
		fmt.Sprintf("Explore %s category", category),
		fmt.Sprintf(
			"List all PhiSHRI doors in the %s category and give me a brief overview of each. "+
				"Use `phishri_list_doors` with category='%s'. "+
				"Highlight the most commonly useful ones.",
			category, category,
		),
	), nil
}
