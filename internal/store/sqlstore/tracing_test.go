package sqlstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/pkg/models"
)

func TestSaveTrace_SaveSpan_SaveScore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	trace := &models.Trace{
		Handle:      "alice",
		Input:       "hi",
		MessageType: models.MessageTypeText,
		Status:      models.StatusStarted,
	}
	require.NoError(t, store.SaveTrace(ctx, trace))

	trace.Output = "hello"
	trace.Status = models.StatusCompleted
	require.NoError(t, store.SaveTrace(ctx, trace))

	span := &models.Span{
		TraceID: trace.ID,
		Name:    "generate_reply",
		Kind:    models.SpanKindGeneration,
		Status:  models.StatusCompleted,
	}
	require.NoError(t, store.SaveSpan(ctx, span))

	score := &models.Score{
		TraceID: trace.ID,
		SpanID:  span.ID,
		Name:    "guardrail_pass",
		Value:   1,
		Source:  models.ScoreSourceSystem,
	}
	require.NoError(t, store.SaveScore(ctx, score))
}
