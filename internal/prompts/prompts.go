// Package prompts implements the MCP prompt handlers of the door server.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to drive the phishri_* tools. Unlike tools (which the AI
// calls), prompts are initiated by the user. Every argument has a default,
// so a prompt never fails on missing arguments.
package prompts

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// argOr returns the trimmed prompt argument key, or def when it is absent
// or blank.
func argOr(req mcp.GetPromptRequest, key, def string) string {
	if args := req.Params.Arguments; args != nil {
		if v := strings.TrimSpace(args[key]); v != "" {
			return v
		}
	}
	return def
}

// userPrompt wraps a single user message into a prompt result.
func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}
}
