package sqlstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

func TestSaveSession_GetSessionRoundTripsPlan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := &models.AgentSession{
		Handle:        "alice",
		Objective:     "triage inbox",
		Status:        models.SessionRunning,
		MaxIterations: 10,
		Plan: &models.AgentPlan{
			Objective: "triage inbox",
			Tasks: []models.TaskStep{
				{ID: 1, Description: "list unread", WorkerType: models.WorkerReader, Status: models.TaskPending},
			},
		},
	}
	require.NoError(t, store.SaveSession(ctx, sess))

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Plan)
	assert.Equal(t, "triage inbox", got.Plan.Objective)
	require.Len(t, got.Plan.Tasks, 1)
	assert.Equal(t, "list unread", got.Plan.Tasks[0].Description)
}

func TestActiveSessionForHandle_ExcludesTerminalSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	done := &models.AgentSession{Handle: "bob", Objective: "done task", Status: models.SessionCompleted}
	require.NoError(t, store.SaveSession(ctx, done))

	_, err := store.ActiveSessionForHandle(ctx, "bob")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	running := &models.AgentSession{Handle: "bob", Objective: "active task", Status: models.SessionRunning}
	require.NoError(t, store.SaveSession(ctx, running))

	got, err := store.ActiveSessionForHandle(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, running.ID, got.ID)
}

func TestListActiveSessions_ReturnsOnlyNonTerminal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, &models.AgentSession{Handle: "carol", Objective: "a", Status: models.SessionRunning}))
	require.NoError(t, store.SaveSession(ctx, &models.AgentSession{Handle: "dave", Objective: "b", Status: models.SessionFailed}))

	active, err := store.ListActiveSessions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "carol", active[0].Handle)
}
