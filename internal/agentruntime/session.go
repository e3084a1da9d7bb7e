// Package agentruntime executes long-running background objectives: session
// lifecycle, planner-orchestrator decomposition with typed workers, a
// reactive fallback loop with loop detection, human-escalation via hitl, and
// append-only JSONL persistence (spec §4.7).
package agentruntime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"

	"github.com/google/uuid"
)

// DefaultMaxIterations bounds a reactive-mode session when the caller
// doesn't specify one.
const DefaultMaxIterations = 15

// ErrSessionAlreadyActive is returned by CreateSession when handle already
// has a non-terminal session.
var ErrSessionAlreadyActive = fmt.Errorf("agentruntime: handle already has an active session")

// Manager tracks the single non-terminal AgentSession per handle, persists
// session state, and exposes cooperative cancellation.
type Manager struct {
	mu       sync.Mutex
	repo     repository.AgentSessionRepository
	cancels  map[string]context.CancelFunc // session id -> cancel
}

// NewManager builds a Manager over repo.
func NewManager(repo repository.AgentSessionRepository) *Manager {
	return &Manager{repo: repo, cancels: make(map[string]context.CancelFunc)}
}

// CreateSession starts a new AgentSession for handle, rejecting a second
// concurrent session. It returns the session and a context that the runner
// should use for its entire lifetime; CancelSession cancels it.
func (m *Manager) CreateSession(ctx context.Context, handle, objective string, maxIterations int) (*models.AgentSession, context.Context, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	if existing, err := m.repo.ActiveSessionForHandle(ctx, handle); err == nil && existing != nil && !existing.Status.IsTerminal() {
		return nil, nil, ErrSessionAlreadyActive
	}

	session := &models.AgentSession{
		ID:            uuid.NewString(),
		Handle:        handle,
		Objective:     objective,
		Status:        models.SessionRunning,
		MaxIterations: maxIterations,
		StartedAt:     time.Now(),
	}
	if err := m.repo.SaveSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("agentruntime: save new session: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancels[session.ID] = cancel
	m.mu.Unlock()

	return session, runCtx, nil
}

// CancelSession transitions handle's active session to cancelled and
// triggers its run context's cancellation. Returns repository.ErrNotFound
// if there is no active session.
func (m *Manager) CancelSession(ctx context.Context, handle string) error {
	session, err := m.repo.ActiveSessionForHandle(ctx, handle)
	if err != nil {
		return err
	}
	if session.Status.IsTerminal() {
		return repository.ErrNotFound
	}

	now := time.Now()
	session.Status = models.SessionCancelled
	session.EndedAt = &now
	if err := m.repo.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("agentruntime: save cancelled session: %w", err)
	}

	m.mu.Lock()
	cancel, ok := m.cancels[session.ID]
	delete(m.cancels, session.ID)
	m.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// Finish marks session terminal with status and persists it, releasing its
// cancel func.
func (m *Manager) Finish(ctx context.Context, session *models.AgentSession, status models.SessionStatus) error {
	now := time.Now()
	session.Status = status
	session.EndedAt = &now

	m.mu.Lock()
	delete(m.cancels, session.ID)
	m.mu.Unlock()

	return m.repo.SaveSession(ctx, session)
}

// Save persists the session's current (non-terminal) state, used after
// every round so a restart can recover in-flight progress.
func (m *Manager) Save(ctx context.Context, session *models.AgentSession) error {
	return m.repo.SaveSession(ctx, session)
}
