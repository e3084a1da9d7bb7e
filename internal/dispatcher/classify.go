package dispatcher

import (
	"context"

	"github.com/relaymind/conduit/internal/toolrouter"
	"github.com/relaymind/conduit/pkg/models"
)

// classify adapts stored Messages into the classifier's minimal shape and
// asks it for this turn's tool categories (spec §4.1 phase C /
// §4.3 classify_intent). Failures fail open to the sticky set (or none),
// since a missing category list only costs the model some tools, never
// correctness.
func (d *Dispatcher) classify(ctx context.Context, text string, history []models.Message, sticky []string) []string {
	recent := make([]toolrouter.RecentMessage, 0, len(history))
	for _, m := range history {
		recent = append(recent, toolrouter.RecentMessage{Role: string(m.Role), Content: m.Content})
	}

	cats, err := d.classifier.Classify(ctx, text, recent, d.registry.Categories(), sticky)
	if err != nil {
		d.log.Warn(ctx, "dispatcher: classification failed, falling back to sticky", "error", err)
		return sticky
	}
	return cats
}
