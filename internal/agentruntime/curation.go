package agentruntime

import (
	"context"

	"github.com/relaymind/conduit/internal/guardrails"
	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

// CurateInteraction classifies one delivered dispatcher turn for the eval
// dataset (spec §6 `EvalDatasetEntry`, supplementing the distilled spec's
// dataset-curation mention in §4.1 step 11). It runs as a best-effort
// background task after the reply has already been sent; a failure here
// never affects the user-facing turn.
//
// Heuristic: guardrail pass with no tool errors is a golden candidate;
// a guardrail remediation having fired marks it a correction; anything
// else that still failed guardrails after remediation is a failure.
func CurateInteraction(ctx context.Context, repo repository.EvalRepository, traceID, input, output string, guardrailResults []guardrails.Result, remediated, toolError bool) error {
	entryType := models.EntryGolden
	switch {
	case remediated:
		entryType = models.EntryCorrection
	case toolError || anyFailed(guardrailResults):
		entryType = models.EntryFailure
	}

	entry := &models.EvalDatasetEntry{
		TraceID:   traceID,
		EntryType: entryType,
		Input:     input,
		Output:    output,
		Tags:      tagsFor(guardrailResults),
	}
	return repo.SaveEvalEntry(ctx, entry)
}

func anyFailed(results []guardrails.Result) bool {
	for _, r := range results {
		if !r.Pass {
			return true
		}
	}
	return false
}

func tagsFor(results []guardrails.Result) []string {
	var tags []string
	for _, r := range results {
		if !r.Pass {
			tags = append(tags, string(r.Check)+"_failed")
		}
	}
	return tags
}
