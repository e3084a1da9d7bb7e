package contextbuilder

import (
	"context"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

// GetWindowedHistory returns the verbatim tail of a handle's conversation
// plus, when the conversation is longer than verbatimCount, the latest
// stored rolling summary covering everything older. It never triggers
// synchronous summarization; a conversation with no stored summary yet
// simply returns a nil summary alongside the full verbatim window.
func GetWindowedHistory(ctx context.Context, repo repository.ConversationRepository, handle string, verbatimCount int) ([]models.Message, *models.ConversationSummary, error) {
	conv, err := repo.GetOrCreateConversation(ctx, handle)
	if err != nil {
		return nil, nil, err
	}

	count, err := repo.MessageCount(ctx, conv.ID)
	if err != nil {
		return nil, nil, err
	}

	if count <= verbatimCount {
		messages, err := repo.RecentMessages(ctx, conv.ID, count)
		if err != nil {
			return nil, nil, err
		}
		return messages, nil, nil
	}

	messages, err := repo.RecentMessages(ctx, conv.ID, verbatimCount)
	if err != nil {
		return nil, nil, err
	}
	summary, err := repo.LatestSummary(ctx, conv.ID)
	if err != nil && err != repository.ErrNotFound {
		return nil, nil, err
	}
	return messages, summary, nil
}
