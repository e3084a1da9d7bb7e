package contextbuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

func TestRelevantNotes_ReturnsNearestFirst(t *testing.T) {
	repo := repository.NewInMemory()
	ctx := context.Background()
	require.NoError(t, repo.SaveNote(ctx, &models.Note{Handle: "h1", Content: "far"}, []float64{10, 10}))
	require.NoError(t, repo.SaveNote(ctx, &models.Note{Handle: "h1", Content: "near"}, []float64{0.1, 0.1}))

	notes, err := RelevantNotes(ctx, repo, "h1", []float64{0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "near", notes[0].Content)
}

func TestRenderNotes_OneBulletPerNote(t *testing.T) {
	notes := []models.ScoredMemory{{Content: "first"}, {Content: "second"}}
	out := RenderNotes(notes)
	assert.Contains(t, out, "- first")
	assert.Contains(t, out, "- second")
}
