package sqlstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/pkg/models"
)

func TestActiveMemories_ExcludesDeactivated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	keep := &models.Memory{Handle: "alice", Content: "likes tea", Category: models.CategoryFact, Active: true}
	drop := &models.Memory{Handle: "alice", Content: "old fact", Category: models.CategoryFact, Active: true}
	require.NoError(t, store.SaveMemory(ctx, keep, nil))
	require.NoError(t, store.SaveMemory(ctx, drop, nil))

	require.NoError(t, store.DeactivateMemory(ctx, drop.ID))

	active, err := store.ActiveMemories(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "likes tea", active[0].Content)
}

func TestSearchMemories_OrdersByL2DistanceAscending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	near := &models.Memory{Handle: "bob", Content: "near", Category: models.CategoryFact, Active: true}
	far := &models.Memory{Handle: "bob", Content: "far", Category: models.CategoryFact, Active: true}
	require.NoError(t, store.SaveMemory(ctx, near, []float64{1, 0}))
	require.NoError(t, store.SaveMemory(ctx, far, []float64{10, 10}))

	results, err := store.SearchMemories(ctx, "bob", []float64{1, 1}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].Content)
	assert.Equal(t, "far", results[1].Content)
}

func TestSearchMemories_TopKLimitsResults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveMemory(ctx, &models.Memory{
			Handle: "carol", Content: "m", Category: models.CategoryFact, Active: true,
		}, []float64{float64(i), 0}))
	}

	results, err := store.SearchMemories(ctx, "carol", []float64{0, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchNotes_FiltersByHandle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveNote(ctx, &models.Note{Handle: "dave", Content: "dave's note"}, []float64{1, 1}))
	require.NoError(t, store.SaveNote(ctx, &models.Note{Handle: "erin", Content: "erin's note"}, []float64{1, 1}))

	results, err := store.SearchNotes(ctx, "dave", []float64{1, 1}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "dave's note", results[0].Content)
}
