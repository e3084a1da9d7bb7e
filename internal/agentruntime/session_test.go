package agentruntime

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

func TestCreateSession_RejectsSecondConcurrentSession(t *testing.T) {
	repo := repository.NewInMemory()
	m := NewManager(repo)

	_, _, err := m.CreateSession(context.Background(), "h1", "first objective", 0)
	require.NoError(t, err)

	_, _, err = m.CreateSession(context.Background(), "h1", "second objective", 0)
	assert.ErrorIs(t, err, ErrSessionAlreadyActive)
}

func TestCreateSession_DefaultsMaxIterations(t *testing.T) {
	repo := repository.NewInMemory()
	m := NewManager(repo)
	session, _, err := m.CreateSession(context.Background(), "h1", "obj", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxIterations, session.MaxIterations)
}

func TestCancelSession_TransitionsStatusAndCancelsContext(t *testing.T) {
	repo := repository.NewInMemory()
	m := NewManager(repo)
	session, runCtx, err := m.CreateSession(context.Background(), "h1", "obj", 0)
	require.NoError(t, err)

	require.NoError(t, m.CancelSession(context.Background(), "h1"))

	select {
	case <-runCtx.Done():
	default:
		t.Fatal("expected run context to be cancelled")
	}

	stored, err := repo.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, stored.Status)
	assert.NotNil(t, stored.EndedAt)
}

func TestCancelSession_NoActiveSessionReturnsNotFound(t *testing.T) {
	repo := repository.NewInMemory()
	m := NewManager(repo)
	err := m.CancelSession(context.Background(), "nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateSession_AllowsNewSessionAfterPriorTerminates(t *testing.T) {
	repo := repository.NewInMemory()
	m := NewManager(repo)
	session, _, err := m.CreateSession(context.Background(), "h1", "obj", 0)
	require.NoError(t, err)
	require.NoError(t, m.Finish(context.Background(), session, models.SessionCompleted))

	_, _, err = m.CreateSession(context.Background(), "h1", "obj2", 0)
	assert.NoError(t, err)
}

func TestCreateSession_PersistedSessionMatchesReturnedSession(t *testing.T) {
	repo := repository.NewInMemory()
	m := NewManager(repo)
	session, _, err := m.CreateSession(context.Background(), "h1", "round-trip objective", 4)
	require.NoError(t, err)

	stored, err := repo.GetSession(context.Background(), session.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(session, stored, cmpopts.EquateApproxTime(0)); diff != "" {
		t.Fatalf("persisted session diverged from the one returned by CreateSession (-want +got):\n%s", diff)
	}
}
