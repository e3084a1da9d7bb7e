// Package models defines the shared data model for conduit: conversations,
// memories, traces, agent sessions, and the other entities described by the
// runtime's data model.
package models

import "time"

// Role identifies the author of a message within a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Conversation is the ordered, append-only sequence of messages for a single
// user handle. At most one conversation is active per handle.
type Conversation struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single turn in a Conversation.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Role           Role           `json:"role"`
	Content        string         `json:"content"`
	ToolCallID     string         `json:"tool_call_id,omitempty"`
	ToolCalls      []ToolCall     `json:"tool_calls,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ConversationSummary is a rolling summary covering messages older than the
// verbatim history window.
type ConversationSummary struct {
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	UpToMessageID  string    `json:"up_to_message_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// StickyCategories records the last tool-category set used in a
// conversation, retained for at most one subsequent turn.
type StickyCategories struct {
	ConversationID string    `json:"conversation_id"`
	Categories     []string  `json:"categories"`
	UpdatedAt      time.Time `json:"updated_at"`
}
