package contextbuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

func appendMessages(t *testing.T, repo *repository.InMemory, convID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, repo.AppendMessage(context.Background(), &models.Message{
			ID: convID + string(rune('a'+i)), ConversationID: convID, Role: models.RoleUser, Content: "hi",
		}))
	}
}

func TestGetWindowedHistory_ReturnsAllWhenUnderWindow(t *testing.T) {
	repo := repository.NewInMemory()
	conv, err := repo.GetOrCreateConversation(context.Background(), "h1")
	require.NoError(t, err)
	appendMessages(t, repo, conv.ID, 3)

	messages, summary, err := GetWindowedHistory(context.Background(), repo, "h1", 5)
	require.NoError(t, err)
	assert.Len(t, messages, 3)
	assert.Nil(t, summary)
}

func TestGetWindowedHistory_ReturnsSummaryWhenOverWindow(t *testing.T) {
	repo := repository.NewInMemory()
	conv, err := repo.GetOrCreateConversation(context.Background(), "h1")
	require.NoError(t, err)
	appendMessages(t, repo, conv.ID, 10)
	require.NoError(t, repo.SaveSummary(context.Background(), &models.ConversationSummary{
		ConversationID: conv.ID, Content: "earlier summary",
	}))

	messages, summary, err := GetWindowedHistory(context.Background(), repo, "h1", 4)
	require.NoError(t, err)
	assert.Len(t, messages, 4)
	require.NotNil(t, summary)
	assert.Equal(t, "earlier summary", summary.Content)
}
