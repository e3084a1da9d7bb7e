package contextbuilder

import (
	"context"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

// RelevantNotes runs similarity search over a handle's notes. Unlike
// RelevantMemories it has no threshold/fallback behavior — spec §4.1 phase
// B names notes as "semantically-relevant", with the threshold behavior
// only specified for memories.
func RelevantNotes(ctx context.Context, repo repository.MemoryRepository, handle string, queryEmbedding []float64, topK int) ([]models.ScoredMemory, error) {
	return repo.SearchNotes(ctx, handle, queryEmbedding, topK)
}

// RenderNotes joins note contents into the body of the <relevant_notes>
// section, reusing RenderMemories' one-fact-per-line shape since both are
// ScoredMemory slices.
func RenderNotes(notes []models.ScoredMemory) string {
	return RenderMemories(notes)
}
