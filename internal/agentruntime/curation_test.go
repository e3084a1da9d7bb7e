package agentruntime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/guardrails"
	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

func TestCurateInteraction_AllPassIsGolden(t *testing.T) {
	repo := repository.NewInMemory()
	results := []guardrails.Result{{Check: "not_empty", Pass: true}}
	require.NoError(t, CurateInteraction(context.Background(), repo, "t1", "hi", "hello", results, false, false))

	entries, err := repo.ListEvalEntries(context.Background(), models.EntryGolden)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestCurateInteraction_RemediatedIsCorrection(t *testing.T) {
	repo := repository.NewInMemory()
	results := []guardrails.Result{{Check: "language_match", Pass: false}}
	require.NoError(t, CurateInteraction(context.Background(), repo, "t1", "hi", "hello", results, true, false))

	entries, err := repo.ListEvalEntries(context.Background(), models.EntryCorrection)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Tags, "language_match_failed")
}

func TestCurateInteraction_ToolErrorIsFailureWhenNotRemediated(t *testing.T) {
	repo := repository.NewInMemory()
	require.NoError(t, CurateInteraction(context.Background(), repo, "t1", "hi", "hello", nil, false, true))

	entries, err := repo.ListEvalEntries(context.Background(), models.EntryFailure)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
