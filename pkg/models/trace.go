package models

import "time"

// TraceStatus describes the terminal or in-flight state of a Trace or Span.
type TraceStatus string

const (
	StatusStarted   TraceStatus = "started"
	StatusCompleted TraceStatus = "completed"
	StatusFailed    TraceStatus = "failed"
)

// MessageType classifies the kind of interaction a Trace represents.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeAudio MessageType = "audio"
	MessageTypeImage MessageType = "image"
	MessageTypeAgent MessageType = "agent"
)

// Trace is the root of an interaction timeline: one inbound message (or one
// background agent session) from first byte to delivered reply.
type Trace struct {
	ID                string         `json:"id"`
	Handle            string         `json:"handle"`
	Input             string         `json:"input"`
	Output            string         `json:"output"`
	ExternalMessageID string         `json:"external_message_id,omitempty"`
	MessageType       MessageType    `json:"message_type"`
	Status            TraceStatus    `json:"status"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	StartedAt         time.Time      `json:"started_at"`
	EndedAt           *time.Time     `json:"ended_at,omitempty"`
}

// SpanKind classifies what a Span represents within a trace.
type SpanKind string

const (
	SpanKindSpan       SpanKind = "span"
	SpanKindGeneration SpanKind = "generation"
	SpanKindTool       SpanKind = "tool"
	SpanKindGuardrail  SpanKind = "guardrail"
	SpanKindAgent      SpanKind = "agent"
	SpanKindSystem     SpanKind = "system"
	SpanKindUser       SpanKind = "user"
)

// Span is a child node of a Trace (or of another Span), forming an acyclic
// tree of operations that each end before their parent trace ends.
type Span struct {
	ID         string         `json:"id"`
	TraceID    string         `json:"trace_id"`
	ParentID   string         `json:"parent_id,omitempty"`
	Name       string         `json:"name"`
	Kind       SpanKind       `json:"kind"`
	Input      string         `json:"input,omitempty"`
	Output     string         `json:"output,omitempty"`
	Status     TraceStatus    `json:"status"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	EndedAt    *time.Time     `json:"ended_at,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
}

// Vendor-neutral generation metadata keys, mirroring OpenTelemetry's
// gen_ai.* semantic conventions.
const (
	MetaGenInputTokens  = "gen_ai.usage.input_tokens"
	MetaGenOutputTokens = "gen_ai.usage.output_tokens"
	MetaGenModel        = "gen_ai.request.model"
)

// ScoreSource identifies who or what produced a Score.
type ScoreSource string

const (
	ScoreSourceSystem    ScoreSource = "system"
	ScoreSourceUser      ScoreSource = "user"
	ScoreSourceLLMJudge  ScoreSource = "llm_judge"
	ScoreSourceHuman     ScoreSource = "human"
)

// Score is a quality annotation attached to a Trace, and optionally to one
// of its Spans.
type Score struct {
	ID        string      `json:"id"`
	TraceID   string      `json:"trace_id"`
	SpanID    string      `json:"span_id,omitempty"`
	Name      string      `json:"name"`
	Value     float64     `json:"value"`
	Source    ScoreSource `json:"source"`
	Comment   string      `json:"comment,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
