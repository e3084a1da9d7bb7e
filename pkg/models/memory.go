package models

import "time"

// MemoryCategory classifies a stored Memory. CategorySelfCorrection is
// private and never surfaced in the external memory file.
type MemoryCategory string

const (
	CategoryFact            MemoryCategory = "fact"
	CategoryPreference      MemoryCategory = "preference"
	CategorySelfCorrection  MemoryCategory = "self_correction"
	CategoryProjectContext  MemoryCategory = "project_context"
)

// Memory is a single durable fact or preference learned about a user.
type Memory struct {
	ID        string         `json:"id"`
	Handle    string         `json:"handle"`
	Content   string         `json:"content"`
	Category  MemoryCategory `json:"category"`
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`
}

// ScoredMemory pairs a Memory's content with its distance to a query
// embedding, as returned by similarity search.
type ScoredMemory struct {
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
}

// Note is free-form text tied to a user or project, embedded for semantic
// retrieval.
type Note struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	ProjectID string    `json:"project_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
