package guardrails

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/pkg/models"
)

func TestRemediate_NotEmptyRetriesThenApologizes(t *testing.T) {
	p, traceID := newTestPipeline(t, Config{Enabled: true})
	calls := 0
	regen := func(ctx context.Context, hint string) (string, error) {
		calls++
		return "", nil
	}
	failed := []Result{{Check: CheckNotEmpty, Pass: false}}
	reply := p.Remediate(context.Background(), traceID, "", failed, "", "hi", regen)
	assert.Equal(t, 1, calls)
	assert.Equal(t, cannedApology, reply)
}

func TestRemediate_NotEmptyRetrySucceeds(t *testing.T) {
	p, traceID := newTestPipeline(t, Config{Enabled: true})
	regen := func(ctx context.Context, hint string) (string, error) {
		return "here's a real reply", nil
	}
	failed := []Result{{Check: CheckNotEmpty, Pass: false}}
	reply := p.Remediate(context.Background(), traceID, "", failed, "", "hi", regen)
	assert.Equal(t, "here's a real reply", reply)
}

func TestRemediate_LanguageMatchRetriesWithBilingualHint(t *testing.T) {
	p, traceID := newTestPipeline(t, Config{Enabled: true})
	var capturedHint string
	regen := func(ctx context.Context, hint string) (string, error) {
		capturedHint = hint
		return "Hoy es martes y hace buen clima.", nil
	}
	failed := []Result{{Check: CheckLanguageMatch, Pass: false, Note: "es"}}
	reply := p.Remediate(context.Background(), traceID, "", failed, "Today is Tuesday.", "Hola, ¿qué día es hoy?", regen)
	assert.Equal(t, "Hoy es martes y hace buen clima.", reply)
	assert.Contains(t, capturedHint, "es")
}

func TestRemediate_LanguageMatchNoRegenPassesThrough(t *testing.T) {
	p, traceID := newTestPipeline(t, Config{Enabled: true})
	failed := []Result{{Check: CheckLanguageMatch, Pass: false, Note: "es"}}
	reply := p.Remediate(context.Background(), traceID, "", failed, "Today is Tuesday.", "Hola", nil)
	assert.Equal(t, "Today is Tuesday.", reply)
}

func TestRemediate_UnhandledCheckPassesThrough(t *testing.T) {
	p, traceID := newTestPipeline(t, Config{Enabled: true})
	failed := []Result{{Check: CheckHallucination, Pass: false}}
	reply := p.Remediate(context.Background(), traceID, "", failed, "original reply", "hi", nil)
	assert.Equal(t, "original reply", reply)
}

type stubLLM struct {
	response     string
	lastMessages []llmclient.Message
}

func (s *stubLLM) Chat(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
	s.lastMessages = req.Messages
	return &llmclient.ChatResponse{Text: s.response}, nil
}

func (s *stubLLM) Embed(ctx context.Context, text string) ([]float64, error) { return nil, nil }

func (s *stubLLM) Name() string { return "stub" }

func TestDefaultRegenerator_AppendsHintAndStripsReasoning(t *testing.T) {
	llm := &stubLLM{response: "<think>internal</think>final answer"}
	regen := DefaultRegenerator(llm, []llmclient.Message{{Role: models.RoleUser, Content: "hi"}})
	out, err := regen(context.Background(), "extra hint")
	require.NoError(t, err)
	assert.Equal(t, "final answer", out)
	require.Len(t, llm.lastMessages, 2)
	assert.Equal(t, "extra hint", llm.lastMessages[1].Content)
}

func TestDefaultRegenerator_NoHintKeepsOriginalMessages(t *testing.T) {
	llm := &stubLLM{response: "plain reply"}
	original := []llmclient.Message{{Role: models.RoleUser, Content: "hi"}}
	regen := DefaultRegenerator(llm, original)
	out, err := regen(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "plain reply", out)
	assert.Len(t, llm.lastMessages, 1)
}
