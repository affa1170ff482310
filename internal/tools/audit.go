package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/knowledge"
)

// maxAuditWarnings caps the warnings listed in an audit report.
const maxAuditWarnings = 20

// AuditTool handles the phishri_audit MCP tool.
type AuditTool struct {
	manager *knowledge.Manager
}

// NewAuditTool creates an AuditTool.
func NewAuditTool(m *knowledge.Manager) *AuditTool {
	return &AuditTool{manager: m}
}

// Definition returns the MCP tool definition for phishri_audit.
func (t *AuditTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_audit",
		mcp.WithDescription(
			"Run system health check. Finds orphan doors, broken references, missing prerequisites, "+
				"duplicate codes, and structural issues.",
		),
		mcp.WithString("scope",
			mcp.Description("Audit scope: 'all' for entire system, category name, or specific door_code"),
			mcp.DefaultString(knowledge.ScopeAll),
		),
		mcp.WithBoolean("fix",
			mcp.Description("Attempt to auto-fix issues (remove broken refs, etc). Default: false (report only)"),
			mcp.DefaultBool(false),
		),
	)
}

// Handle processes the phishri_audit tool call.
func (t *AuditTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scope := strings.TrimSpace(req.GetString("scope", knowledge.ScopeAll))
	res, err := t.manager.Audit(scope, boolArg(req, "fix", false))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(FormatAudit(res)), nil
}

// FormatAudit renders an audit result as a markdown report.
func FormatAudit(res knowledge.AuditResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# PhiSHRI Audit Report\n\n**Healthy:** %s\n**Total Doors:** %d\n", yesNo(res.Healthy), res.TotalDoors)

	writeCategoryCounts(&sb, res.ByCategory)

	if len(res.Errors) > 0 {
		sb.WriteString("\n## Errors\n")
		for _, e := range res.Errors {
			fmt.Fprintf(&sb, "- %s\n", e)
		}
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintf(&sb, "\n## Warnings (%d)\n", len(res.Warnings))
		for i, w := range res.Warnings {
			if i == maxAuditWarnings {
				fmt.Fprintf(&sb, "... and %d more\n", len(res.Warnings)-maxAuditWarnings)
				break
			}
			fmt.Fprintf(&sb, "- %s\n", w)
		}
	}
	if len(res.MissingPrerequisites) > 0 {
		fmt.Fprintf(&sb, "\n## Missing Prerequisites (%d)\n%s\n",
			len(res.MissingPrerequisites), strings.Join(res.MissingPrerequisites, ", "))
	}
	if len(res.BrokenReferences) > 0 {
		fmt.Fprintf(&sb, "\n## Broken References (%d)\n%s\n",
			len(res.BrokenReferences), strings.Join(res.BrokenReferences, ", "))
	}
	if len(res.Fixed) > 0 {
		fmt.Fprintf(&sb, "\n## Fixed (%d)\n%s\n", len(res.Fixed), strings.Join(res.Fixed, ", "))
	}
	return sb.String()
}

func writeCategoryCounts(sb *strings.Builder, counts map[string]int) {
	sb.WriteString("\n## By Category\n")
	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Fprintf(sb, "- %s: %d\n", c, counts[c])
	}
}
