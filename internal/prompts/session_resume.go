package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// SessionResumePrompt handles the session_resume MCP prompt.
type SessionResumePrompt struct{}

// NewSessionResumePrompt creates a SessionResumePrompt.
func NewSessionResumePrompt() *SessionResumePrompt {
	return &SessionResumePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *SessionResumePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("session_resume",
		mcp.WithPromptDescription("Resume a previous session from a checkpoint"),
	)
}

// Handle processes the session_resume prompt request.
func (p *SessionResumePrompt) Handle(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return userPrompt(
		"Resume previous session",
		"Check for any saved PhiSHRI session state or checkpoints with `phishri_get_bootstrap`. "+
			"If found, load the context and summarize where we left off. "+
			"If not, list available checkpoints or start fresh.",
	), nil
}
