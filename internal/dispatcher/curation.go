package dispatcher

import (
	"context"

	"github.com/relaymind/conduit/internal/agentruntime"
	"github.com/relaymind/conduit/internal/guardrails"
)

// scheduleCuration launches best-effort eval-dataset curation (spec §4.1
// step 11, supplemented worker described in SPEC_FULL.md §4) as a tracked
// background task, so a slow or failing write to the eval repository never
// delays message delivery and is still drained on shutdown.
func (d *Dispatcher) scheduleCuration(traceID, input, output string, results []guardrails.Result, remediated bool) {
	d.tasks.track(context.Background(), func(ctx context.Context) {
		toolError := false
		if err := agentruntime.CurateInteraction(ctx, d.repo, traceID, input, output, results, remediated, toolError); err != nil {
			d.log.Warn(ctx, "dispatcher: eval curation failed", "error", err, "trace_id", traceID)
		}
	})
}
