// Package resources implements the MCP resource handlers of the door
// server.
//
// Resources provide read-only JSON views of the corpus addressed by
// phishri:// URIs:
//
//	phishri://index              every door with its summary line
//	phishri://stats              per-category counts
//	phishri://category/<name>    the doors of one category
//	phishri://door/<CODE>        one raw door document
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/door"
	"github.com/Stryk91/PhiSHRI/internal/knowledge"
)

// URIs and URI prefixes served by the Handler.
const (
	IndexURI       = "phishri://index"
	StatsURI       = "phishri://stats"
	CategoryPrefix = "phishri://category/"
	DoorPrefix     = "phishri://door/"

	mimeJSON = "application/json"
)

// categoryDescriptions describes each category resource.
var categoryDescriptions = map[string]string{
	door.CategorySecurity:     "Security best practices, OWASP, authentication, encryption",
	door.CategoryTools:        "Development tools, deployment, installers, CI/CD",
	door.CategoryWorkflows:    "Git workflows, code review, testing, automation",
	door.CategoryArchitecture: "System design, microservices, APIs, patterns",
	door.CategoryAgents:       "AI agent patterns, coordination, memory management",
	door.CategoryProjects:     "Project-specific context and configurations",
	door.CategoryErrors:       "Common errors, debugging, troubleshooting",
	door.CategoryLanguages:    "Language-specific patterns and best practices",
}

// Handler manages the phishri:// resource endpoints.
type Handler struct {
	manager *knowledge.Manager
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(m *knowledge.Manager) *Handler {
	return &Handler{manager: m}
}

// Entry is one door in a listing resource.
type Entry struct {
	Code      string `json:"code"`
	ShortCode string `json:"short_code"`
	Category  string `json:"category"`
	Summary   string `json:"summary"`
}

// CategoryResources returns one resource definition per category, in
// category order.
func (h *Handler) CategoryResources() []mcp.Resource {
	out := make([]mcp.Resource, 0, len(door.Categories))
	for _, c := range door.Categories {
		out = append(out, mcp.NewResource(
			CategoryPrefix+strings.ToLower(c),
			c+" Doors",
			mcp.WithResourceDescription(categoryDescriptions[c]),
			mcp.WithMIMEType(mimeJSON),
		))
	}
	return out
}

// IndexResource returns the MCP resource definition for the door index.
func (h *Handler) IndexResource() mcp.Resource {
	return mcp.NewResource(IndexURI, "Door Index",
		mcp.WithResourceDescription("Complete index of all PhiSHRI doors"),
		mcp.WithMIMEType(mimeJSON),
	)
}

// StatsResource returns the MCP resource definition for corpus statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(StatsURI, "Statistics",
		mcp.WithResourceDescription("PhiSHRI knowledge base statistics"),
		mcp.WithMIMEType(mimeJSON),
	)
}

// DoorTemplate returns the MCP resource template for single doors.
func (h *Handler) DoorTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(DoorPrefix+"{door_code}", "Door",
		mcp.WithTemplateDescription("A single PhiSHRI door document by code"),
		mcp.WithTemplateMIMEType(mimeJSON),
	)
}

// HandleIndex lists every door.
func (h *Handler) HandleIndex(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries, err := h.entries("")
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, entries)
}

// HandleCategory lists the doors of the category named by the URI suffix.
func (h *Handler) HandleCategory(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	category := strings.ToUpper(strings.TrimPrefix(req.Params.URI, CategoryPrefix))
	entries, err := h.entries(category)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, entries)
}

// HandleStats returns per-category counts.
func (h *Handler) HandleStats(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := h.manager.Stats(knowledge.GranularityCategory)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, struct {
		TotalDoors  int            `json:"total_doors"`
		IndexExists bool           `json:"index_exists"`
		ByCategory  map[string]int `json:"by_category"`
	}{st.TotalDoors, st.IndexExists, st.ByCategory})
}

// HandleDoor returns the raw door named by the URI suffix.
func (h *Handler) HandleDoor(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	d, err := h.manager.Read(strings.TrimPrefix(req.Params.URI, DoorPrefix))
	if err != nil {
		return nil, err
	}
	data, err := door.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshaling door %s: %w", d.DoorCode, err)
	}
	return textResource(req.Params.URI, string(data)), nil
}

func (h *Handler) entries(category string) ([]Entry, error) {
	items, err := h.manager.List(category, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		out = append(out, Entry{Code: it.DoorCode, ShortCode: it.ShortCode, Category: it.Category, Summary: it.Summary})
	}
	return out, nil
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return textResource(uri, string(data)), nil
}

func textResource(uri, text string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     text,
		},
	}
}
