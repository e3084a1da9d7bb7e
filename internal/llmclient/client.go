// Package llmclient provides the LLM provider abstraction used by the
// context builder, tool loop, and guardrails: a single-shot (non-streaming)
// chat interface with optional tool definitions, plus an embeddings call for
// vector memory.
package llmclient

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/relaymind/conduit/pkg/models"
)

// Message is one turn in a chat completion request.
type Message struct {
	Role        models.Role
	Content     string
	ToolCallID  string // set when Role == RoleTool
	ToolCalls   []models.ToolCall
}

// ToolDef is a single tool definition offered to the model.
type ToolDef struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// ChatRequest is a single-shot completion request.
type ChatRequest struct {
	Model     string
	System    string
	Messages  []Message
	Tools     []ToolDef
	MaxTokens int
}

// ChatResponse is the model's reply: either text, or one or more tool calls.
type ChatResponse struct {
	Text         string
	ToolCalls    []models.ToolCall
	InputTokens  int
	OutputTokens int
}

// Client is the provider-agnostic interface every LLM backend implements.
type Client interface {
	// Chat sends req and blocks for the complete response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Embed returns a vector embedding for text.
	Embed(ctx context.Context, text string) ([]float64, error)
	// Name identifies the provider for logging and metrics ("anthropic", "openai").
	Name() string
}

var thinkTagPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripReasoningTags removes <think>...</think> blocks a model may emit
// before its visible reply, so downstream guardrails and delivery never see
// raw reasoning traces.
func StripReasoningTags(text string) string {
	stripped := thinkTagPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(stripped)
}
