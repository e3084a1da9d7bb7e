package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/relaymind/conduit/pkg/models"
)

func (s *Store) GetOrCreateConversation(ctx context.Context, handle string) (*models.Conversation, error) {
	row := s.queryRow(ctx, `SELECT id, handle, created_at FROM conversations WHERE handle = ?`, handle)
	var c models.Conversation
	var createdAt string
	err := row.Scan(&c.ID, &c.Handle, &createdAt)
	if err == nil {
		c.CreatedAt = parseTime(createdAt)
		return &c, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmtErr("get conversation", err)
	}

	c = models.Conversation{ID: newID(), Handle: handle, CreatedAt: time.Now()}
	if _, err := s.exec(ctx, `INSERT INTO conversations (id, handle, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Handle, formatTime(c.CreatedAt)); err != nil {
		return nil, fmtErr("create conversation", err)
	}
	return &c, nil
}

func (s *Store) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = newID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, tool_call_id, tool_calls, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, string(msg.Role), msg.Content, msg.ToolCallID,
		toJSON(msg.ToolCalls), toJSON(msg.Metadata), formatTime(msg.CreatedAt))
	if err != nil {
		return fmtErr("append message", err)
	}
	return nil
}

func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	rows, err := s.query(ctx, `
		SELECT id, conversation_id, role, content, tool_call_id, tool_calls, metadata, created_at
		FROM messages WHERE conversation_id = ? ORDER BY created_at DESC LIMIT ?`,
		conversationID, limit)
	if err != nil {
		return nil, fmtErr("recent messages", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		var role, toolCalls, metadata, createdAt string
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.ToolCallID, &toolCalls, &metadata, &createdAt); err != nil {
			return nil, fmtErr("scan message", err)
		}
		m.Role = models.Role(role)
		m.ToolCalls = fromJSON[[]models.ToolCall](toolCalls)
		m.Metadata = fromJSON[map[string]any](metadata)
		m.CreatedAt = parseTime(createdAt)
		out = append(out, m)
	}
	// Reverse to oldest-first, matching InMemory's chronological contract.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func (s *Store) MessageCount(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&n)
	if err != nil {
		return 0, fmtErr("message count", err)
	}
	return n, nil
}

func (s *Store) SaveSummary(ctx context.Context, summary *models.ConversationSummary) error {
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO conversation_summaries (conversation_id, content, up_to_message_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (conversation_id) DO UPDATE SET content = excluded.content,
			up_to_message_id = excluded.up_to_message_id, created_at = excluded.created_at`,
		summary.ConversationID, summary.Content, summary.UpToMessageID, formatTime(summary.CreatedAt))
	if err != nil {
		return fmtErr("save summary", err)
	}
	return nil
}

func (s *Store) LatestSummary(ctx context.Context, conversationID string) (*models.ConversationSummary, error) {
	row := s.queryRow(ctx, `SELECT conversation_id, content, up_to_message_id, created_at FROM conversation_summaries WHERE conversation_id = ?`, conversationID)
	var sm models.ConversationSummary
	var createdAt string
	if err := row.Scan(&sm.ConversationID, &sm.Content, &sm.UpToMessageID, &createdAt); err != nil {
		return nil, wrapNotFound(err)
	}
	sm.CreatedAt = parseTime(createdAt)
	return &sm, nil
}

func (s *Store) SetStickyCategories(ctx context.Context, sc *models.StickyCategories) error {
	if sc.UpdatedAt.IsZero() {
		sc.UpdatedAt = time.Now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO sticky_categories (conversation_id, categories, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (conversation_id) DO UPDATE SET categories = excluded.categories, updated_at = excluded.updated_at`,
		sc.ConversationID, toJSON(sc.Categories), formatTime(sc.UpdatedAt))
	if err != nil {
		return fmtErr("set sticky categories", err)
	}
	return nil
}

func (s *Store) GetStickyCategories(ctx context.Context, conversationID string) (*models.StickyCategories, error) {
	row := s.queryRow(ctx, `SELECT conversation_id, categories, updated_at FROM sticky_categories WHERE conversation_id = ?`, conversationID)
	var sc models.StickyCategories
	var categories, updatedAt string
	if err := row.Scan(&sc.ConversationID, &categories, &updatedAt); err != nil {
		return nil, wrapNotFound(err)
	}
	sc.Categories = fromJSON[[]string](categories)
	sc.UpdatedAt = parseTime(updatedAt)
	return &sc, nil
}

func (s *Store) SeenExternalID(ctx context.Context, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	_, err := s.exec(ctx, `INSERT INTO seen_external_ids (external_id, seen_at) VALUES (?, ?)`, externalID, formatTime(time.Now()))
	if err == nil {
		return false, nil
	}
	if isUniqueViolation(err) {
		return true, nil
	}
	return false, fmtErr("seen external id", err)
}
