// Package toolrouter maps classified intent categories onto concrete tool
// schemas with proportional budget distribution, and implements the
// request_more_tools meta-tool the bounded tool-loop executor special-cases.
package toolrouter

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/relaymind/conduit/pkg/models"
)

// Tool is the capability every concrete tool handler implements: a schema
// for the LLM and an async executor returning a success flag plus content.
type Tool interface {
	Name() string
	Description() string
	// Schema is a JSON Schema object describing the tool's input.
	Schema() json.RawMessage
	Execute(ctx context.Context, args json.RawMessage) (*models.ToolResult, error)
}

// Registry holds every tool known to the process, keyed by name, plus the
// category -> tool-name mapping used by Select. Categories may be
// registered dynamically at runtime (e.g. "fetch" from an MCP manager).
type Registry struct {
	tools      map[string]Tool
	categories map[string][]string // category -> ordered tool names
	catOrder   []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]Tool),
		categories: make(map[string][]string),
	}
}

// Register adds a tool to the flat name -> Tool map. It does not assign the
// tool to any category; call AddToCategory for that.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// AddToCategory appends toolName to category's ordered tool list, creating
// the category if it doesn't exist yet. Used both for the static
// TOOL_CATEGORIES table and for runtime-registered categories such as
// "fetch" from the MCP/skill manager.
func (r *Registry) AddToCategory(category, toolName string) {
	if _, ok := r.categories[category]; !ok {
		r.catOrder = append(r.catOrder, category)
	}
	r.categories[category] = append(r.categories[category], toolName)
}

// Lookup returns a tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns every registered tool, keyed by name.
func (r *Registry) All() map[string]Tool {
	return r.tools
}

// Categories returns the sorted list of known category names, used by
// build_request_more_tools_schema so the model sees what it can request.
func (r *Registry) Categories() []string {
	names := make([]string, 0, len(r.categories))
	for c := range r.categories {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// ToolNamesFor returns the declared-order tool names for a category.
func (r *Registry) ToolNamesFor(category string) []string {
	return r.categories[category]
}

// Schema renders a ToolDef-shaped description for t, for callers that need
// the wire schema without depending on llmclient directly.
type Schema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Input       json.RawMessage `json:"input_schema"`
}

// SchemaFor builds the wire schema for a registered tool.
func (r *Registry) SchemaFor(name string) (Schema, bool) {
	t, ok := r.tools[name]
	if !ok {
		return Schema{}, false
	}
	return Schema{Name: t.Name(), Description: t.Description(), Input: t.Schema()}, true
}
