package contextbuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

func seedMemories(t *testing.T, repo *repository.InMemory, handle string, contents []string, embeddings [][]float64) {
	t.Helper()
	for i, c := range contents {
		mem := &models.Memory{ID: c, Handle: handle, Content: c, Category: models.CategoryFact, Active: true}
		require.NoError(t, repo.SaveMemory(context.Background(), mem, embeddings[i]))
	}
}

func TestRelevantMemories_KeepsOnlyWithinThreshold(t *testing.T) {
	repo := repository.NewInMemory()
	seedMemories(t, repo, "h1",
		[]string{"close fact", "far fact"},
		[][]float64{{1, 0}, {100, 100}})

	scored, err := RelevantMemories(context.Background(), repo, "h1", []float64{1, 0}, 5, 1.0)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, "close fact", scored[0].Content)
}

func TestRelevantMemories_FallsBackToTopKWhenNoneQualify(t *testing.T) {
	repo := repository.NewInMemory()
	seedMemories(t, repo, "h1",
		[]string{"fact a", "fact b", "fact c", "fact d"},
		[][]float64{{50, 0}, {60, 0}, {70, 0}, {80, 0}})

	scored, err := RelevantMemories(context.Background(), repo, "h1", []float64{0, 0}, 10, 1.0)
	require.NoError(t, err)
	assert.Len(t, scored, fallbackTopK)
}

func TestRenderMemories(t *testing.T) {
	out := RenderMemories([]models.ScoredMemory{{Content: "a"}, {Content: "b"}})
	assert.Equal(t, "- a\n- b", out)
}
