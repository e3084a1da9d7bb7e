package contextbuilder

import (
	"context"
	"strings"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

// DefaultSimilarityThreshold is the L2 distance cutoff used when the caller
// doesn't configure one (spec §4.9 / open question: configurable, default
// 1.0 per SPEC_FULL.md's decision).
const DefaultSimilarityThreshold = 1.0

// fallbackTopK is how many of the nearest memories to keep when none clear
// the similarity threshold.
const fallbackTopK = 3

// RelevantMemories runs similarity search and keeps every memory within
// threshold of queryEmbedding; if none qualify, it falls back to the
// nearest fallbackTopK regardless of distance, so a handle with only
// loosely related memories still gets some context.
func RelevantMemories(ctx context.Context, repo repository.MemoryRepository, handle string, queryEmbedding []float64, topK int, threshold float64) ([]models.ScoredMemory, error) {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	scored, err := repo.SearchMemories(ctx, handle, queryEmbedding, topK)
	if err != nil {
		return nil, err
	}

	var kept []models.ScoredMemory
	for _, m := range scored {
		if m.Distance < threshold {
			kept = append(kept, m)
		}
	}
	if len(kept) > 0 {
		return kept, nil
	}

	if len(scored) > fallbackTopK {
		return scored[:fallbackTopK], nil
	}
	return scored, nil
}

// RenderMemories joins memory contents into the body of the
// <user_memories> section, one fact per line.
func RenderMemories(memories []models.ScoredMemory) string {
	lines := make([]string, 0, len(memories))
	for _, m := range memories {
		lines = append(lines, "- "+m.Content)
	}
	return strings.Join(lines, "\n")
}
