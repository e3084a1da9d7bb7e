package contextbuilder

import (
	"context"
	"fmt"

	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/internal/obslog"
)

// DefaultTokenLimit is the soft budget log_context_budget warns/errors
// against when the caller doesn't configure one explicitly.
const DefaultTokenLimit = 32000

// EstimateTokens is the crude 4-chars-per-token heuristic the rest of the
// runtime uses for budget accounting; never zero so an empty string still
// counts as one token of overhead.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

// EstimateMessages sums EstimateTokens over every message's content.
func EstimateMessages(messages []llmclient.Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content)
	}
	return total
}

// LogContextBudget estimates the token cost of messages and emits INFO, WARN,
// or ERROR as the estimate crosses 0%, 80%, or 100% of limit. It returns the
// estimate so callers can attach it to their context/trace.
func LogContextBudget(ctx context.Context, log *obslog.Logger, messages []llmclient.Message, limit int) int {
	if limit <= 0 {
		limit = DefaultTokenLimit
	}
	estimate := EstimateMessages(messages)
	ratio := float64(estimate) / float64(limit)

	switch {
	case ratio >= 1.0:
		log.Error(ctx, "context budget exceeded", "estimated_tokens", estimate, "limit", limit)
	case ratio >= 0.8:
		log.Warn(ctx, "context budget nearing limit", "estimated_tokens", estimate, "limit", limit, "ratio", fmt.Sprintf("%.2f", ratio))
	default:
		log.Info(ctx, "context budget", "estimated_tokens", estimate, "limit", limit)
	}
	return estimate
}
