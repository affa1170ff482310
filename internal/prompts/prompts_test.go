package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

type prompt interface {
	Definition() mcp.Prompt
	Handle(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
}

func render(t *testing.T, p prompt, args map[string]string) (string, string) {
	t.Helper()
	req := mcp.GetPromptRequest{}
	req.Params.Name = p.Definition().Name
	req.Params.Arguments = args
	res, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("%s: %v", req.Params.Name, err)
	}
	if len(res.Messages) != 1 || res.Messages[0].Role != mcp.RoleUser {
		t.Fatalf("%s: messages = %+v", req.Params.Name, res.Messages)
	}
	tc, ok := res.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("%s: content is %T, want mcp.TextContent", req.Params.Name, res.Messages[0].Content)
	}
	return res.Description, tc.Text
}

func TestDefinitions(t *testing.T) {
	tests := []struct {
		p    prompt
		name string
		arg  string
	}{
		{NewOpenDoorPrompt(), "open_door", "door_code"},
		{NewExploreCategoryPrompt(), "explore_category", "category"},
		{NewFindContextPrompt(), "find_context", "query"},
		{NewSessionResumePrompt(), "session_resume", ""},
		{NewOverviewPrompt(), "phishri_overview", ""},
	}
	for _, tt := range tests {
		def := tt.p.Definition()
		if def.Name != tt.name {
			t.Errorf("Name = %q, want %q", def.Name, tt.name)
		}
		if tt.arg == "" {
			if len(def.Arguments) != 0 {
				t.Errorf("%s: unexpected arguments %+v", tt.name, def.Arguments)
			}
			continue
		}
		if len(def.Arguments) != 1 || def.Arguments[0].Name != tt.arg || !def.Arguments[0].Required {
			t.Errorf("%s: arguments = %+v, want required %q", tt.name, def.Arguments, tt.arg)
		}
	}
}

func TestDefaults(t *testing.T) {
	desc, text := render(t, NewOpenDoorPrompt(), nil)
	if desc != "Load context from door D05" || !strings.Contains(text, "PhiSHRI door D05") {
		t.Errorf("open_door default: %q / %q", desc, text)
	}

	desc, _ = render(t, NewExploreCategoryPrompt(), map[string]string{"category": "  "})
	if desc != "Explore TOOLS category" {
		t.Errorf("explore_category default: %q", desc)
	}

	_, text = render(t, NewFindContextPrompt(), nil)
	if !strings.HasPrefix(text, "I need help with: general development\n\n") {
		t.Errorf("find_context default: %q", text)
	}
}

func TestArguments(t *testing.T) {
	desc, text := render(t, NewOpenDoorPrompt(), map[string]string{"door_code": "s01"})
	if desc != "Load context from door S01" || !strings.Contains(text, "door_code='S01'") {
		t.Errorf("open_door: %q / %q", desc, text)
	}

	desc, text = render(t, NewExploreCategoryPrompt(), map[string]string{"category": "security"})
	if desc != "Explore SECURITY category" || !strings.Contains(text, "in the SECURITY category") {
		t.Errorf("explore_category: %q / %q", desc, text)
	}

	_, text = render(t, NewSessionResumePrompt(), nil)
	if !strings.Contains(text, "phishri_get_bootstrap") {
		t.Errorf("session_resume: %q", text)
	}

	desc, _ = render(t, NewOverviewPrompt(), nil)
	if desc != "PhiSHRI knowledge base overview" {
		t.Errorf("phishri_overview: %q", desc)
	}
}
