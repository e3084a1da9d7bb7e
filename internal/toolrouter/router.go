package toolrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/pkg/models"
)

// MetaToolName is the special tool the executor always prepends and never
// drops during clearing; it enlarges the offered tool set mid-loop.
const MetaToolName = "request_more_tools"

// MetaToolCategoriesArg and MetaToolReasonArg name the meta-tool's fields.
const (
	MetaToolCategoriesArg = "categories"
	MetaToolReasonArg     = "reason"
)

// DefaultMaxTools is the default regular-tool budget per LLM call (spec
// config key max_tools_per_call).
const DefaultMaxTools = 8

// Select deterministically maps categories to concrete tool schemas with
// proportional budget distribution (spec §4.3, invariants 2 and 3):
//
//	N := len(categories)
//	per_cat := max(2, maxTools / N)
//
// Each category contributes up to per_cat tools, in the category's
// declared order, skipping tools already selected by an earlier category.
// The combined list is then truncated to maxTools. When N == 1, per_cat ==
// maxTools, reproducing "append up to maxTools from that category".
func Select(categories []string, registry *Registry, maxTools int) []Schema {
	if maxTools <= 0 {
		maxTools = DefaultMaxTools
	}
	n := len(categories)
	if n == 0 {
		return nil
	}
	perCat := maxTools / n
	if perCat < 2 {
		perCat = 2
	}

	seen := make(map[string]bool)
	var out []Schema
	for _, cat := range categories {
		added := 0
		for _, name := range registry.ToolNamesFor(cat) {
			if added >= perCat {
				break
			}
			if seen[name] {
				continue
			}
			schema, ok := registry.SchemaFor(name)
			if !ok {
				continue
			}
			seen[name] = true
			out = append(out, schema)
			added++
		}
	}
	if len(out) > maxTools {
		out = out[:maxTools]
	}
	return out
}

// MetaToolSchema builds the request_more_tools tool definition. Its
// description lists the currently available category names (sorted) so the
// model knows what it can ask for.
func MetaToolSchema(availableCategories []string) Schema {
	desc := fmt.Sprintf(
		"Request additional tools be loaded into this conversation when the currently offered tools are insufficient. Available categories: %s.",
		strings.Join(availableCategories, ", "),
	)
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			MetaToolCategoriesArg: map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Category tags to load tools from.",
			},
			MetaToolReasonArg: map[string]any{
				"type":        "string",
				"description": "Why the currently loaded tools are insufficient.",
			},
		},
		"required": []string{MetaToolCategoriesArg},
	}
	raw, _ := json.Marshal(schema)
	return Schema{Name: MetaToolName, Description: desc, Input: raw}
}

// MetaToolArgs is the parsed argument payload of a request_more_tools call.
type MetaToolArgs struct {
	Categories []string `json:"categories"`
	Reason     string   `json:"reason"`
}

// ParseMetaToolArgs decodes a meta-tool call's raw JSON arguments.
func ParseMetaToolArgs(raw json.RawMessage) (MetaToolArgs, error) {
	var args MetaToolArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return MetaToolArgs{}, fmt.Errorf("toolrouter: parse request_more_tools args: %w", err)
	}
	return args, nil
}

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s]+`)

// FetchCategory is the dynamic category forced by the URL fast-path.
const FetchCategory = "fetch"

// Classifier asks the LLM which categories apply to a user message, with the
// URL fast-path and sticky-category fallback from spec §4.1 phase C / §4.3.
type Classifier struct {
	llm llmclient.Client
}

// NewClassifier builds a Classifier.
func NewClassifier(llm llmclient.Client) *Classifier {
	return &Classifier{llm: llm}
}

// RecentMessage is the minimal shape the classifier prompt needs from
// conversation history.
type RecentMessage struct {
	Role    string
	Content string
}

// Classify returns the category list for text. The caller must pass the
// registry's known categories (for the classifier prompt) and the
// conversation's sticky categories (for the none-but-sticky fallback).
func (c *Classifier) Classify(ctx context.Context, text string, recent []RecentMessage, knownCategories, sticky []string) ([]string, error) {
	if urlPattern.MatchString(text) {
		return unionCategory(sticky, FetchCategory), nil
	}

	if c.llm == nil {
		if len(sticky) > 0 {
			return sticky, nil
		}
		return nil, nil
	}

	prompt := buildClassifierPrompt(text, recent, knownCategories, sticky)
	resp, err := c.llm.Chat(ctx, llmclient.ChatRequest{
		Messages: []llmclient.Message{{Role: models.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("toolrouter: classify intent: %w", err)
	}

	cats := parseCategoryList(resp.Text)
	if len(cats) == 0 && len(sticky) > 0 {
		return sticky, nil
	}
	return cats, nil
}

func buildClassifierPrompt(text string, recent []RecentMessage, known, sticky []string) string {
	var b strings.Builder
	b.WriteString("You are a tool-category classifier. Available categories: ")
	b.WriteString(strings.Join(known, ", "))
	b.WriteString(".\n")
	if len(sticky) > 0 {
		b.WriteString("Categories used in the previous turn (sticky): ")
		b.WriteString(strings.Join(sticky, ", "))
		b.WriteString(".\n")
	}
	if len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		start := 0
		if len(recent) > 6 {
			start = len(recent) - 6
		}
		for _, m := range recent[start:] {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}
	b.WriteString("User message: ")
	b.WriteString(text)
	b.WriteString("\nRespond with a comma-separated list of applicable categories, or the single word \"none\".")
	return b.String()
}

func parseCategoryList(raw string) []string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "none" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "none" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func unionCategory(existing []string, cat string) []string {
	for _, c := range existing {
		if c == cat {
			return existing
		}
	}
	return append(append([]string{}, existing...), cat)
}
