package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/knowledge"
)

// topTags is how many tags a detailed statistics report lists.
const topTags = 15

// StatsTool handles the phishri_stats MCP tool.
type StatsTool struct {
	manager *knowledge.Manager
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(m *knowledge.Manager) *StatsTool {
	return &StatsTool{manager: m}
}

// Definition returns the MCP tool definition for phishri_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("phishri_stats",
		mcp.WithDescription(
			"Get PhiSHRI statistics: door counts by category, coverage gaps, index health, and growth metrics.",
		),
		mcp.WithString("granularity",
			mcp.Description("Detail level: 'summary' (totals), 'category' (per-category), 'detailed' (full breakdown)"),
			mcp.Enum(knowledge.GranularitySummary, knowledge.GranularityCategory, knowledge.GranularityDetailed),
			mcp.DefaultString(knowledge.GranularitySummary),
		),
	)
}

// Handle processes the phishri_stats tool call. Unknown granularities are
// treated as summary.
func (t *StatsTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	granularity := strings.ToLower(strings.TrimSpace(req.GetString("granularity", knowledge.GranularitySummary)))
	st, err := t.manager.Stats(granularity)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(FormatStats(st, granularity)), nil
}

// FormatStats renders corpus statistics as a markdown report.
func FormatStats(st knowledge.Stats, granularity string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# PhiSHRI Statistics\n\n**Total Doors:** %d\n**Index Exists:** %s\n", st.TotalDoors, yesNo(st.IndexExists))

	writeCategoryCounts(&sb, st.ByCategory)

	switch granularity {
	case knowledge.GranularityCategory:
		for _, cat := range sortedCategories(st.Codes) {
			fmt.Fprintf(&sb, "\n### %s\n%s\n", cat, strings.Join(st.Codes[cat], ", "))
		}
	case knowledge.GranularityDetailed:
		fmt.Fprintf(&sb, "\n**Doors with Prerequisites:** %d\n", st.DoorsWithPrerequisites)
		if tags := st.TopTags(topTags); len(tags) > 0 {
			sb.WriteString("\n## Top Tags\n")
			for _, tc := range tags {
				fmt.Fprintf(&sb, "- %s: %d\n", tc.Tag, tc.Count)
			}
		}
	}
	return sb.String()
}

func sortedCategories(codes map[string][]string) []string {
	out := make([]string, 0, len(codes))
	for c := range codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
