package sqlstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

func TestSaveEvalEntry_AssignsSequentialIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := &models.EvalDatasetEntry{TraceID: "t1", EntryType: models.EntryGolden, Input: "in1", Output: "out1"}
	b := &models.EvalDatasetEntry{TraceID: "t2", EntryType: models.EntryGolden, Input: "in2", Output: "out2"}
	require.NoError(t, store.SaveEvalEntry(ctx, a))
	require.NoError(t, store.SaveEvalEntry(ctx, b))

	assert.Equal(t, a.ID+1, b.ID)

	entries, err := store.ListEvalEntries(ctx, models.EntryGolden)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestListEvalEntries_FiltersByType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEvalEntry(ctx, &models.EvalDatasetEntry{TraceID: "t1", EntryType: models.EntryGolden, Input: "in"}))
	require.NoError(t, store.SaveEvalEntry(ctx, &models.EvalDatasetEntry{TraceID: "t2", EntryType: models.EntryCorrection, Input: "in"}))

	corrections, err := store.ListEvalEntries(ctx, models.EntryCorrection)
	require.NoError(t, err)
	require.Len(t, corrections, 1)
	assert.Equal(t, "t2", corrections[0].TraceID)
}

func TestActivatePromptVersion_DeactivatesPreviousActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v1 := &models.PromptVersion{PromptName: "system_prompt", Version: 1, Content: "v1", IsActive: true, CreatedBy: models.ApprovedByHuman}
	v2 := &models.PromptVersion{PromptName: "system_prompt", Version: 2, Content: "v2", CreatedBy: models.ApprovedByHuman}
	require.NoError(t, store.SavePromptVersion(ctx, v1))
	require.NoError(t, store.SavePromptVersion(ctx, v2))

	active, err := store.ActivePromptVersion(ctx, "system_prompt")
	require.NoError(t, err)
	assert.Equal(t, 1, active.Version)

	require.NoError(t, store.ActivatePromptVersion(ctx, "system_prompt", 2))

	active, err = store.ActivePromptVersion(ctx, "system_prompt")
	require.NoError(t, err)
	assert.Equal(t, 2, active.Version)
}

func TestActivatePromptVersion_UnknownVersionReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.ActivatePromptVersion(context.Background(), "missing_prompt", 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
