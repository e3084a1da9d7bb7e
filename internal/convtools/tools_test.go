package convtools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/internal/obslog"
	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

type fakeLLM struct{}

func (f fakeLLM) Chat(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
	return &llmclient.ChatResponse{Text: "ok"}, nil
}
func (f fakeLLM) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{0.1, 0.2, 0.3}, nil
}
func (f fakeLLM) Name() string { return "fake" }

func ctxWithHandle(handle string) context.Context {
	return context.WithValue(context.Background(), obslog.HandleKey, handle)
}

func TestGetRecentMessagesTool_ReturnsConversationHistory(t *testing.T) {
	repo := repository.NewInMemory()
	conv, err := repo.GetOrCreateConversation(context.Background(), "+15551234567")
	require.NoError(t, err)
	require.NoError(t, repo.AppendMessage(context.Background(), &models.Message{ConversationID: conv.ID, Role: "user", Content: "hello"}))
	require.NoError(t, repo.AppendMessage(context.Background(), &models.Message{ConversationID: conv.ID, Role: "assistant", Content: "hi there"}))

	tool := NewGetRecentMessagesTool(repo)
	result, err := tool.Execute(ctxWithHandle("+15551234567"), json.RawMessage(`{"limit":5}`))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Contains(t, result.Content, "hello")
	require.Contains(t, result.Content, "hi there")
}

func TestGetRecentMessagesTool_NoHandleInContext(t *testing.T) {
	tool := NewGetRecentMessagesTool(repository.NewInMemory())
	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestGetConversationSummaryTool_NoSummaryYet(t *testing.T) {
	repo := repository.NewInMemory()
	_, err := repo.GetOrCreateConversation(context.Background(), "+15551234567")
	require.NoError(t, err)

	tool := NewGetConversationSummaryTool(repo)
	result, err := tool.Execute(ctxWithHandle("+15551234567"), json.RawMessage(`{}`))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Contains(t, result.Content, "no summary")
}

func TestSearchMemoriesTool_EmbedsQueryAndSearches(t *testing.T) {
	repo := repository.NewInMemory()
	require.NoError(t, repo.SaveMemory(context.Background(), &models.Memory{Handle: "+15551234567", Content: "likes tea", Category: models.CategoryFact, Active: true}, []float64{0.1, 0.2, 0.3}))

	tool := NewSearchMemoriesTool(repo, fakeLLM{}, 3)
	result, err := tool.Execute(ctxWithHandle("+15551234567"), json.RawMessage(`{"query":"beverages"}`))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Contains(t, result.Content, "likes tea")
}
