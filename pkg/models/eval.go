package models

// EntryType classifies an EvalDatasetEntry for downstream curation.
type EntryType string

const (
	EntryGolden     EntryType = "golden"
	EntryFailure    EntryType = "failure"
	EntryCorrection EntryType = "correction"
)

// EvalDatasetEntry is one curated interaction captured for offline
// evaluation or fine-tuning.
type EvalDatasetEntry struct {
	ID             int64          `json:"id"`
	TraceID        string         `json:"trace_id"`
	EntryType      EntryType      `json:"entry_type"`
	Input          string         `json:"input"`
	Output         string         `json:"output"`
	ExpectedOutput string         `json:"expected_output,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// PromptApprover identifies who authored/approved a PromptVersion.
type PromptApprover string

const (
	ApprovedByHuman PromptApprover = "human"
	ApprovedByAgent PromptApprover = "agent"
)

// PromptVersion is one revision of a named prompt template. At most one
// version per prompt_name may be active at a time.
type PromptVersion struct {
	PromptName string         `json:"prompt_name"`
	Version    int            `json:"version"`
	Content    string         `json:"content"`
	IsActive   bool           `json:"is_active"`
	CreatedBy  PromptApprover `json:"created_by"`
	ApprovedAt *int64         `json:"approved_at,omitempty"`
}
