package door

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SummaryText renders the door heading, path, summary and aliases.
func (d *Door) SummaryText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s)\n\n", d.DoorCode, d.ShortCode())

	if d.SemanticPath != "" {
		fmt.Fprintf(&b, "**Path:** %s\n\n", d.SemanticPath)
	}
	if d.ContextBundle.Summary != "" {
		fmt.Fprintf(&b, "## Summary\n%s\n\n", d.ContextBundle.Summary)
	}
	if len(d.Aliases) > 0 {
		fmt.Fprintf(&b, "**Aliases:** %s\n\n", strings.Join(d.Aliases, ", "))
	}
	return b.String()
}

// FullText renders every populated section of the door as markdown.
func (d *Door) FullText() string {
	var b strings.Builder
	b.WriteString(d.SummaryText())

	bundle := d.ContextBundle
	writeList(&b, "## Prerequisites", bundle.Prerequisites, "- %s\n")
	writeList(&b, "## Related Doors", bundle.RelatedDoors, "- %s\n")

	if ob := bundle.Onboarding; ob != nil {
		if ob.QuickStart != "" {
			fmt.Fprintf(&b, "## Quick Start\n%s\n\n", ob.QuickStart)
		}
		writeList(&b, "## Common Patterns", ob.CommonPatterns, "- `%s`\n")
		if len(ob.KnownErrors) > 0 {
			b.WriteString("## Known Issues\n")
			for _, ke := range ob.KnownErrors {
				text := ke.Text
				if text == "" {
					text = "Unknown error"
				}
				fmt.Fprintf(&b, "- %s\n", text)
			}
			b.WriteString("\n")
		}
	}

	if res := bundle.Resources; res != nil && (len(res.Docs) > 0 || len(res.Code) > 0) {
		b.WriteString("## Resources\n")
		if len(res.Docs) > 0 {
			b.WriteString("### Documentation\n")
			for _, doc := range res.Docs {
				fmt.Fprintf(&b, "- %s\n", doc)
			}
		}
		if len(res.Code) > 0 {
			b.WriteString("### Code\n")
			for _, c := range res.Code {
				fmt.Fprintf(&b, "- %s\n", c)
			}
		}
		b.WriteString("\n")
	}

	if meta := bundle.Metadata; meta != nil {
		b.WriteString("## Metadata\n")
		fmt.Fprintf(&b, "- **Category:** %s\n", meta.Category)
		if meta.Subcategory != "" {
			fmt.Fprintf(&b, "- **Subcategory:** %s\n", meta.Subcategory)
		}
		if len(meta.Tags) > 0 {
			fmt.Fprintf(&b, "- **Tags:** %s\n", strings.Join(meta.Tags, ", "))
		}
		if len(meta.AgentAffinity) > 0 {
			fmt.Fprintf(&b, "- **Agent Affinity:** %s\n", strings.Join(meta.AgentAffinity, ", "))
		}
		fmt.Fprintf(&b, "- **Confidence:** %.0f%%\n", meta.Confidence*100)
		if meta.LastUpdated != "" {
			fmt.Fprintf(&b, "- **Updated:** %s\n", meta.LastUpdated)
		}
	}

	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string, format string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(heading + "\n")
	for _, item := range items {
		fmt.Fprintf(b, format, item)
	}
	b.WriteString("\n")
}

// Truncate shortens s to max characters, replacing the tail with "..." so
// the result is exactly max characters long. Shorter strings are returned
// unchanged.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
