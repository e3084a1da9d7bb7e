// Package notestools implements the "notes" tool category (spec §4.3):
// durable free-form notes tied to a handle, embedded for semantic
// retrieval the same way memories are (spec §3 Note / Project Note).
package notestools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/internal/obslog"
	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/internal/toolrouter"
	"github.com/relaymind/conduit/pkg/models"
)

func handleFrom(ctx context.Context) string {
	handle, _ := ctx.Value(obslog.HandleKey).(string)
	return handle
}

// SearchNotesTool returns the handle's notes closest in embedding space to
// a query string.
type SearchNotesTool struct {
	repo repository.MemoryRepository
	llm  llmclient.Client
	topK int
}

func NewSearchNotesTool(repo repository.MemoryRepository, llm llmclient.Client, topK int) *SearchNotesTool {
	if topK <= 0 {
		topK = 5
	}
	return &SearchNotesTool{repo: repo, llm: llm, topK: topK}
}

func (t *SearchNotesTool) Name() string        { return "search_notes" }
func (t *SearchNotesTool) Description() string { return "Search the user's notes semantically." }
func (t *SearchNotesTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`)
}

func (t *SearchNotesTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	handle := handleFrom(ctx)
	if handle == "" {
		return &models.ToolResult{Content: "no conversation handle in context", IsError: true}, nil
	}
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.Query == "" {
		return &models.ToolResult{Content: "query is required", IsError: true}, nil
	}
	vec, err := t.llm.Embed(ctx, args.Query)
	if err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("embedding failed: %v", err), IsError: true}, nil
	}
	scored, err := t.repo.SearchNotes(ctx, handle, vec, t.topK)
	if err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("search failed: %v", err), IsError: true}, nil
	}
	if len(scored) == 0 {
		return &models.ToolResult{Content: "no matching notes"}, nil
	}
	var b strings.Builder
	for _, n := range scored {
		fmt.Fprintf(&b, "(distance %.4f) %s\n", n.Distance, n.Content)
	}
	return &models.ToolResult{Content: b.String()}, nil
}

// CreateNoteTool saves a new note, embedding it for later semantic search.
type CreateNoteTool struct {
	repo repository.MemoryRepository
	llm  llmclient.Client
}

func NewCreateNoteTool(repo repository.MemoryRepository, llm llmclient.Client) *CreateNoteTool {
	return &CreateNoteTool{repo: repo, llm: llm}
}

func (t *CreateNoteTool) Name() string        { return "create_note" }
func (t *CreateNoteTool) Description() string { return "Save a new durable note for the user." }
func (t *CreateNoteTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"content":{"type":"string"},"project_id":{"type":"string"}},"required":["content"]}`)
}

func (t *CreateNoteTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	handle := handleFrom(ctx)
	if handle == "" {
		return &models.ToolResult{Content: "no conversation handle in context", IsError: true}, nil
	}
	var args struct {
		Content   string `json:"content"`
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.Content == "" {
		return &models.ToolResult{Content: "content is required", IsError: true}, nil
	}
	vec, err := t.llm.Embed(ctx, args.Content)
	if err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("embedding failed: %v", err), IsError: true}, nil
	}
	note := &models.Note{Handle: handle, ProjectID: args.ProjectID, Content: args.Content}
	if err := t.repo.SaveNote(ctx, note, vec); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("save failed: %v", err), IsError: true}, nil
	}
	return &models.ToolResult{Content: fmt.Sprintf("saved note %s", note.ID)}, nil
}

// ListNotesTool lists every note owned by the calling handle.
type ListNotesTool struct {
	repo repository.MemoryRepository
}

func NewListNotesTool(repo repository.MemoryRepository) *ListNotesTool {
	return &ListNotesTool{repo: repo}
}

func (t *ListNotesTool) Name() string            { return "list_notes" }
func (t *ListNotesTool) Description() string     { return "List all of the user's saved notes." }
func (t *ListNotesTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object","properties":{}}`) }

func (t *ListNotesTool) Execute(ctx context.Context, _ json.RawMessage) (*models.ToolResult, error) {
	handle := handleFrom(ctx)
	if handle == "" {
		return &models.ToolResult{Content: "no conversation handle in context", IsError: true}, nil
	}
	notes, err := t.repo.ListNotes(ctx, handle)
	if err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("list failed: %v", err), IsError: true}, nil
	}
	if len(notes) == 0 {
		return &models.ToolResult{Content: "no notes"}, nil
	}
	var b strings.Builder
	for _, n := range notes {
		fmt.Fprintf(&b, "[%s] %s\n", n.CreatedAt.Format("2006-01-02"), n.Content)
	}
	return &models.ToolResult{Content: b.String()}, nil
}

var (
	_ toolrouter.Tool = (*SearchNotesTool)(nil)
	_ toolrouter.Tool = (*CreateNoteTool)(nil)
	_ toolrouter.Tool = (*ListNotesTool)(nil)
)
