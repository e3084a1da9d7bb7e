// Package repository declares the persistence contract every store-backed
// package in conduit depends on: conversations, memories, agent sessions,
// traces, shell audit, cron jobs, and the eval dataset. Concrete backends
// live under internal/store; callers depend only on this interface.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/relaymind/conduit/pkg/models"
)

// ErrNotFound is returned when a lookup by id or handle finds nothing.
var ErrNotFound = errors.New("repository: not found")

// Repository is the full persistence surface the dispatcher, agent runtime,
// guardrails, tracing, and cron subsystems are built against.
type Repository interface {
	ConversationRepository
	MemoryRepository
	AgentSessionRepository
	TraceRepository
	ShellAuditRepository
	CronRepository
	EvalRepository

	// Close releases any underlying resources (connection pools, file
	// handles). Safe to call once during shutdown.
	Close() error
}

// ConversationRepository persists conversations, their messages, rolling
// summaries, and the one-turn sticky tool-category state.
type ConversationRepository interface {
	GetOrCreateConversation(ctx context.Context, handle string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, msg *models.Message) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	MessageCount(ctx context.Context, conversationID string) (int, error)

	SaveSummary(ctx context.Context, summary *models.ConversationSummary) error
	LatestSummary(ctx context.Context, conversationID string) (*models.ConversationSummary, error)

	SetStickyCategories(ctx context.Context, s *models.StickyCategories) error
	GetStickyCategories(ctx context.Context, conversationID string) (*models.StickyCategories, error)

	// SeenExternalID records an inbound provider message id for dedup and
	// reports whether it was already seen (true = duplicate, skip).
	SeenExternalID(ctx context.Context, externalID string) (bool, error)
}

// MemoryRepository persists durable per-handle facts/preferences and their
// embeddings for similarity search.
type MemoryRepository interface {
	SaveMemory(ctx context.Context, mem *models.Memory, embedding []float64) error
	DeactivateMemory(ctx context.Context, id string) error
	ActiveMemories(ctx context.Context, handle string) ([]models.Memory, error)

	// SearchMemories returns the handle's active memories ordered by L2
	// distance to queryEmbedding, nearest first.
	SearchMemories(ctx context.Context, handle string, queryEmbedding []float64, topK int) ([]models.ScoredMemory, error)

	SaveNote(ctx context.Context, note *models.Note, embedding []float64) error

	// SearchNotes returns the handle's notes ordered by L2 distance to
	// queryEmbedding, nearest first.
	SearchNotes(ctx context.Context, handle string, queryEmbedding []float64, topK int) ([]models.ScoredMemory, error)

	// ListNotes returns every note owned by handle, most recent first.
	ListNotes(ctx context.Context, handle string) ([]models.Note, error)

	// PruneExpiredSelfCorrections deactivates self_correction memories older
	// than maxAge, returning the count deactivated.
	PruneExpiredSelfCorrections(ctx context.Context, maxAge time.Duration) (int, error)
}

// AgentSessionRepository persists background agent session state, including
// the typed task plan, so sessions survive process restarts.
type AgentSessionRepository interface {
	SaveSession(ctx context.Context, session *models.AgentSession) error
	GetSession(ctx context.Context, id string) (*models.AgentSession, error)
	// ActiveSessionForHandle returns the single non-terminal session for a
	// handle, or ErrNotFound if none exists.
	ActiveSessionForHandle(ctx context.Context, handle string) (*models.AgentSession, error)
	ListActiveSessions(ctx context.Context) ([]models.AgentSession, error)
}

// TraceRepository persists traces, spans, and scores for the native
// observability sink.
type TraceRepository interface {
	SaveTrace(ctx context.Context, trace *models.Trace) error
	SaveSpan(ctx context.Context, span *models.Span) error
	SaveScore(ctx context.Context, score *models.Score) error

	// GetTrace looks up one trace by id.
	GetTrace(ctx context.Context, id string) (*models.Trace, error)
	// RecentTraces returns a handle's most recent traces, newest first.
	RecentTraces(ctx context.Context, handle string, limit int) ([]models.Trace, error)
	// SpansForTrace returns every span recorded under traceID, insertion order.
	SpansForTrace(ctx context.Context, traceID string) ([]models.Span, error)
}

// ShellAuditRepository persists the hash-chained command audit trail and
// background process registry.
type ShellAuditRepository interface {
	AppendAuditEntry(ctx context.Context, entry *models.CommandAuditEntry) error
	LastAuditHash(ctx context.Context) (string, error)

	SaveProcess(ctx context.Context, proc *models.ShellProcessRecord) error
	GetProcess(ctx context.Context, processID string) (*models.ShellProcessRecord, error)
	ListProcesses(ctx context.Context, sessionHandle string) ([]models.ShellProcessRecord, error)
	DeleteProcess(ctx context.Context, processID string) error
}

// CronJob is a user-defined scheduled objective handed back to the agent
// runtime on trigger.
type CronJob struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	Schedule  string    `json:"schedule"` // cron expression
	Objective string    `json:"objective"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
}

// CronRepository persists user-defined cron jobs.
type CronRepository interface {
	SaveCronJob(ctx context.Context, job *CronJob) error
	DeleteCronJob(ctx context.Context, id string) error
	ListCronJobs(ctx context.Context) ([]CronJob, error)
	MarkCronJobRun(ctx context.Context, id string, ranAt time.Time) error
}

// EvalRepository persists curated eval dataset entries and prompt versions.
type EvalRepository interface {
	SaveEvalEntry(ctx context.Context, entry *models.EvalDatasetEntry) error
	ListEvalEntries(ctx context.Context, entryType models.EntryType) ([]models.EvalDatasetEntry, error)

	SavePromptVersion(ctx context.Context, pv *models.PromptVersion) error
	ActivePromptVersion(ctx context.Context, promptName string) (*models.PromptVersion, error)
	ActivatePromptVersion(ctx context.Context, promptName string, version int) error
}
