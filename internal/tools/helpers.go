// Package tools implements the MCP tool handlers exposed by the server.
//
// Each tool is a struct that receives its dependencies through its
// constructor and exposes:
// - Definition() returning the mcp.Tool schema advertised by tools/list
// - Handle() decoding the loosely-typed arguments into a typed struct and
//   calling into the knowledge manager or the session
//
// Arguments are read defensively: a missing or mistyped optional argument
// takes its documented default, a missing required one fails with
// router.ErrInvalidParams. Failures the caller should read as content
// (validation reports, batch reports) are returned as tool errors; every
// other failure is returned as a Go error and mapped to a protocol error
// by the router.
package tools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/knowledge"
	"github.com/Stryk91/PhiSHRI/internal/router"
)

// intArg extracts a positive integer argument from a tool request,
// returning defaultVal if the key is missing, not a number (JSON numbers
// are float64) or below 1.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok || v < 1 {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// requiredString returns a non-blank string argument or an invalid-params
// error naming it.
func requiredString(req mcp.CallToolRequest, key string) (string, error) {
	v := strings.TrimSpace(req.GetString(key, ""))
	if v == "" {
		return "", missingParam(key)
	}
	return v, nil
}

// stringsArg extracts a list of strings from a tool request. Non-string
// elements are skipped; a missing or mistyped value yields nil.
func stringsArg(req mcp.CallToolRequest, key string) []string {
	return stringsFrom(req.GetArguments(), key)
}

func stringsFrom(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringFrom(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// createParamsFrom decodes one door definition as sent to
// phishri_create_door or as an element of phishri_batch_create.
func createParamsFrom(args map[string]any) knowledge.CreateParams {
	return knowledge.CreateParams{
		DoorCode:       strings.TrimSpace(stringFrom(args, "door_code")),
		Category:       strings.TrimSpace(stringFrom(args, "category")),
		SemanticPath:   stringFrom(args, "semantic_path"),
		Summary:        stringFrom(args, "summary"),
		Aliases:        stringsFrom(args, "aliases"),
		Prerequisites:  stringsFrom(args, "prerequisites"),
		RelatedDoors:   stringsFrom(args, "related_doors"),
		QuickStart:     stringFrom(args, "quick_start"),
		CommonPatterns: stringsFrom(args, "common_patterns"),
		KnownErrors:    stringsFrom(args, "known_errors"),
		Tags:           stringsFrom(args, "tags"),
		AgentAffinity:  stringsFrom(args, "agent_affinity"),
	}
}

func missingParam(key string) error {
	return fmt.Errorf("%w: Missing required parameter: %s", router.ErrInvalidParams, key)
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

// doorFields are the optional door definition properties shared by
// phishri_create_door and the items of phishri_batch_create.
var doorFields = []struct {
	name, description string
	list              bool
}{
	{"semantic_path", "Semantic path in hierarchy (e.g., 'TOOLS.DEPLOYMENT.SILENT')", false},
	{"aliases", "Alternative names/search terms for this door", true},
	{"prerequisites", "Door codes that should be read before this one", true},
	{"related_doors", "Related door codes for further exploration", true},
	{"quick_start", "Quick start instructions", false},
	{"common_patterns", "Common code patterns or examples", true},
	{"known_errors", "Known issues and gotchas", true},
	{"tags", "Searchable tags", true},
	{"agent_affinity", "Agents this door is most relevant to (e.g., ['VSCC', 'DC'])", true},
}

// doorFieldOptions declares doorFields as top-level tool properties.
func doorFieldOptions() []mcp.ToolOption {
	opts := make([]mcp.ToolOption, 0, len(doorFields))
	for _, f := range doorFields {
		if f.list {
			opts = append(opts, mcp.WithArray(f.name, mcp.Description(f.description), mcp.WithStringItems()))
			continue
		}
		opts = append(opts, mcp.WithString(f.name, mcp.Description(f.description)))
	}
	return opts
}

// doorItemSchema is the JSON schema of one phishri_batch_create item.
func doorItemSchema() map[string]any {
	props := map[string]any{
		"door_code": map[string]any{"type": "string"},
		"category":  map[string]any{"type": "string"},
		"summary":   map[string]any{"type": "string"},
	}
	for _, f := range doorFields {
		if f.list {
			props[f.name] = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
			continue
		}
		props[f.name] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"door_code", "category", "summary"},
	}
}
