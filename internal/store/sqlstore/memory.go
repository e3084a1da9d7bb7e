package sqlstore

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/relaymind/conduit/pkg/models"
)

func (s *Store) SaveMemory(ctx context.Context, mem *models.Memory, embedding []float64) error {
	if mem.ID == "" {
		mem.ID = newID()
	}
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO memories (id, handle, content, category, active, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		mem.ID, mem.Handle, mem.Content, string(mem.Category), boolToInt(mem.Active),
		encodeEmbedding(embedding), formatTime(mem.CreatedAt))
	if err != nil {
		return fmtErr("save memory", err)
	}
	return nil
}

func (s *Store) DeactivateMemory(ctx context.Context, id string) error {
	_, err := s.exec(ctx, `UPDATE memories SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmtErr("deactivate memory", err)
	}
	return nil
}

func (s *Store) ActiveMemories(ctx context.Context, handle string) ([]models.Memory, error) {
	rows, err := s.query(ctx, `SELECT id, handle, content, category, active, created_at FROM memories WHERE handle = ? AND active = 1`, handle)
	if err != nil {
		return nil, fmtErr("active memories", err)
	}
	defer rows.Close()

	var out []models.Memory
	for rows.Next() {
		var m models.Memory
		var category string
		var active int
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Handle, &m.Content, &category, &active, &createdAt); err != nil {
			return nil, fmtErr("scan memory", err)
		}
		m.Category = models.MemoryCategory(category)
		m.Active = active != 0
		m.CreatedAt = parseTime(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) SearchMemories(ctx context.Context, handle string, queryEmbedding []float64, topK int) ([]models.ScoredMemory, error) {
	rows, err := s.query(ctx, `SELECT content, embedding FROM memories WHERE handle = ? AND active = 1`, handle)
	if err != nil {
		return nil, fmtErr("search memories", err)
	}
	defer rows.Close()

	var scored []models.ScoredMemory
	for rows.Next() {
		var content, embedding string
		if err := rows.Scan(&content, &embedding); err != nil {
			return nil, fmtErr("scan scored memory", err)
		}
		scored = append(scored, models.ScoredMemory{
			Content:  content,
			Distance: l2Distance(queryEmbedding, decodeEmbedding(embedding)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *Store) PruneExpiredSelfCorrections(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := formatTime(time.Now().Add(-maxAge))
	res, err := s.exec(ctx, `
		UPDATE memories SET active = 0
		WHERE category = ? AND active = 1 AND created_at < ?`,
		string(models.CategorySelfCorrection), cutoff)
	if err != nil {
		return 0, fmtErr("prune expired self corrections", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmtErr("prune expired self corrections rows affected", err)
	}
	return int(n), nil
}

func (s *Store) SaveNote(ctx context.Context, note *models.Note, embedding []float64) error {
	if note.ID == "" {
		note.ID = newID()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO notes (id, handle, project_id, content, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		note.ID, note.Handle, note.ProjectID, note.Content, encodeEmbedding(embedding), formatTime(note.CreatedAt))
	if err != nil {
		return fmtErr("save note", err)
	}
	return nil
}

func (s *Store) SearchNotes(ctx context.Context, handle string, queryEmbedding []float64, topK int) ([]models.ScoredMemory, error) {
	rows, err := s.query(ctx, `SELECT content, embedding FROM notes WHERE handle = ?`, handle)
	if err != nil {
		return nil, fmtErr("search notes", err)
	}
	defer rows.Close()

	var scored []models.ScoredMemory
	for rows.Next() {
		var content, embedding string
		if err := rows.Scan(&content, &embedding); err != nil {
			return nil, fmtErr("scan scored note", err)
		}
		scored = append(scored, models.ScoredMemory{
			Content:  content,
			Distance: l2Distance(queryEmbedding, decodeEmbedding(embedding)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *Store) ListNotes(ctx context.Context, handle string) ([]models.Note, error) {
	rows, err := s.query(ctx, `SELECT id, handle, project_id, content, created_at FROM notes WHERE handle = ? ORDER BY created_at DESC`, handle)
	if err != nil {
		return nil, fmtErr("list notes", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		var projectID sql.NullString
		var createdAt string
		if err := rows.Scan(&n.ID, &n.Handle, &projectID, &n.Content, &createdAt); err != nil {
			return nil, fmtErr("scan note", err)
		}
		n.ProjectID = projectID.String
		n.CreatedAt = parseTime(createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
