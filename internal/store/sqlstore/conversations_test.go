package sqlstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

func TestGetOrCreateConversation_IsIdempotentPerHandle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.GetOrCreateConversation(ctx, "alice")
	require.NoError(t, err)

	second, err := store.GetOrCreateConversation(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestAppendMessage_RecentMessagesReturnsChronologicalOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.GetOrCreateConversation(ctx, "bob")
	require.NoError(t, err)

	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, store.AppendMessage(ctx, &models.Message{
			ConversationID: conv.ID,
			Role:           models.RoleUser,
			Content:        content,
		}))
	}

	msgs, err := store.RecentMessages(ctx, conv.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Content)
	assert.Equal(t, "third", msgs[1].Content)

	count, err := store.MessageCount(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSaveSummary_UpsertsOnConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.GetOrCreateConversation(ctx, "carol")
	require.NoError(t, err)

	require.NoError(t, store.SaveSummary(ctx, &models.ConversationSummary{ConversationID: conv.ID, Content: "v1", UpToMessageID: "m1"}))
	require.NoError(t, store.SaveSummary(ctx, &models.ConversationSummary{ConversationID: conv.ID, Content: "v2", UpToMessageID: "m2"}))

	got, err := store.LatestSummary(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Content)
}

func TestStickyCategories_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.GetOrCreateConversation(ctx, "dave")
	require.NoError(t, err)

	require.NoError(t, store.SetStickyCategories(ctx, &models.StickyCategories{
		ConversationID: conv.ID,
		Categories:     []string{"fetch", "calendar"},
	}))

	got, err := store.GetStickyCategories(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"fetch", "calendar"}, got.Categories)
}

func TestGetStickyCategories_NotFoundWhenNeverSet(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetStickyCategories(context.Background(), "missing-conversation")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSeenExternalID_DetectsDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seen, err := store.SeenExternalID(ctx, "ext-1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = store.SeenExternalID(ctx, "ext-1")
	require.NoError(t, err)
	assert.True(t, seen)
}
