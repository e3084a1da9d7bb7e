// Package convtools implements the "conversation" tool category (spec §4.3
// TOOL_CATEGORIES, worker table in §4.7 — the reader worker's primary
// category): read access to a handle's own conversation history, rolling
// summary, and durable memories, exposed as ordinary toolrouter.Tool values
// so a session worker (or the main dispatcher loop, once expanded via
// request_more_tools) can pull them the same way it pulls any other tool.
package convtools

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

// GetRecentMessagesTool returns the N most recent messages of the calling
// handle's conversation.
type GetRecentMessagesTool struct {
	repo repository.ConversationRepository
}

func NewGetRecentMessagesTool(repo repository.ConversationRepository) *GetRecentMessagesTool {
	return &GetRecentMessagesTool{repo: repo}
}

func (t *GetRecentMessagesTool) Name() string { return "get_recent_messages" }
func (t *GetRecentMessagesTool) Description() string {
	return "Get the most recent messages in the current conversation."
}
func (t *GetRecentMessagesTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"limit":{"type":"integer"}}}`)
}

func (t *GetRecentMessagesTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	handle := handleFrom(ctx)
	if handle == "" {
		return &models.ToolResult{Content: "no conversation handle in context", IsError: true}, nil
	}
	var args struct {
		Limit int `json:"limit"`
	}
	_ = json.Unmarshal(raw, &args)
	if args.Limit <= 0 {
		args.Limit = 10
	}

	conv, err := t.repo.GetOrCreateConversation(ctx, handle)
	if err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("lookup failed: %v", err), IsError: true}, nil
	}
	msgs, err := t.repo.RecentMessages(ctx, conv.ID, args.Limit)
	if err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("lookup failed: %v", err), IsError: true}, nil
	}

	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s] %s\n", m.Role, m.Content)
	}
	if b.Len() == 0 {
		return &models.ToolResult{Content: "no messages yet"}, nil
	}
	return &models.ToolResult{Content: b.String()}, nil
}

// GetConversationSummaryTool returns the rolling summary of older messages.
type GetConversationSummaryTool struct {
	repo repository.ConversationRepository
}

func NewGetConversationSummaryTool(repo repository.ConversationRepository) *GetConversationSummaryTool {
	return &GetConversationSummaryTool{repo: repo}
}

func (t *GetConversationSummaryTool) Name() string { return "get_conversation_summary" }
func (t *GetConversationSummaryTool) Description() string {
	return "Get the rolling summary of the conversation's older history."
}
func (t *GetConversationSummaryTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (t *GetConversationSummaryTool) Execute(ctx context.Context, _ json.RawMessage) (*models.ToolResult, error) {
	handle := handleFrom(ctx)
	if handle == "" {
		return &models.ToolResult{Content: "no conversation handle in context", IsError: true}, nil
	}
	conv, err := t.repo.GetOrCreateConversation(ctx, handle)
	if err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("lookup failed: %v", err), IsError: true}, nil
	}
	summary, err := t.repo.LatestSummary(ctx, conv.ID)
	if err != nil {
		if err == repository.ErrNotFound {
			return &models.ToolResult{Content: "no summary yet"}, nil
		}
		return &models.ToolResult{Content: fmt.Sprintf("lookup failed: %v", err), IsError: true}, nil
	}
	return &models.ToolResult{Content: summary.Content}, nil
}

// SearchMemoriesTool returns the handle's durable memories closest in
// embedding space to a query string.
type SearchMemoriesTool struct {
	repo repository.MemoryRepository
	llm  llmclient.Client
	topK int
}

func NewSearchMemoriesTool(repo repository.MemoryRepository, llm llmclient.Client, topK int) *SearchMemoriesTool {
	if topK <= 0 {
		topK = 5
	}
	return &SearchMemoriesTool{repo: repo, llm: llm, topK: topK}
}

func (t *SearchMemoriesTool) Name() string { return "search_memories" }
func (t *SearchMemoriesTool) Description() string {
	return "Search the user's durable memories semantically for content relevant to a query."
}
func (t *SearchMemoriesTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`)
}

func (t *SearchMemoriesTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
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
	scored, err := t.repo.SearchMemories(ctx, handle, vec, t.topK)
	if err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("search failed: %v", err), IsError: true}, nil
	}
	if len(scored) == 0 {
		return &models.ToolResult{Content: "no matching memories"}, nil
	}
	var b strings.Builder
	for _, m := range scored {
		fmt.Fprintf(&b, "(distance %.4f) %s\n", m.Distance, m.Content)
	}
	return &models.ToolResult{Content: b.String()}, nil
}

var (
	_ toolrouter.Tool = (*GetRecentMessagesTool)(nil)
	_ toolrouter.Tool = (*GetConversationSummaryTool)(nil)
	_ toolrouter.Tool = (*SearchMemoriesTool)(nil)
)
