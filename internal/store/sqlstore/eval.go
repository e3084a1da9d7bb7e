package sqlstore

import (
	"context"
	"database/sql"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

// SaveEvalEntry assigns the next sequential id inside a transaction, since
// eval_entries.id is a plain INTEGER column rather than a dialect-specific
// AUTOINCREMENT/SERIAL (kept out so sqlite and postgres share one schema).
func (s *Store) SaveEvalEntry(ctx context.Context, entry *models.EvalDatasetEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmtErr("save eval entry begin", err)
	}
	defer tx.Rollback()

	var maxID sql.NullInt64
	if err := tx.QueryRowContext(ctx, s.rewrite(`SELECT MAX(id) FROM eval_entries`)).Scan(&maxID); err != nil {
		return fmtErr("save eval entry max id", err)
	}
	entry.ID = maxID.Int64 + 1

	_, err = tx.ExecContext(ctx, s.rewrite(`
		INSERT INTO eval_entries (id, trace_id, entry_type, input, output, expected_output, tags, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		entry.ID, entry.TraceID, string(entry.EntryType), entry.Input, entry.Output,
		entry.ExpectedOutput, toJSON(entry.Tags), toJSON(entry.Metadata))
	if err != nil {
		return fmtErr("save eval entry insert", err)
	}

	if err := tx.Commit(); err != nil {
		return fmtErr("save eval entry commit", err)
	}
	return nil
}

func (s *Store) ListEvalEntries(ctx context.Context, entryType models.EntryType) ([]models.EvalDatasetEntry, error) {
	rows, err := s.query(ctx, `
		SELECT id, trace_id, entry_type, input, output, expected_output, tags, metadata
		FROM eval_entries WHERE entry_type = ? ORDER BY id`, string(entryType))
	if err != nil {
		return nil, fmtErr("list eval entries", err)
	}
	defer rows.Close()

	var out []models.EvalDatasetEntry
	for rows.Next() {
		var e models.EvalDatasetEntry
		var entryType, tags, metadata string
		if err := rows.Scan(&e.ID, &e.TraceID, &entryType, &e.Input, &e.Output, &e.ExpectedOutput, &tags, &metadata); err != nil {
			return nil, fmtErr("scan eval entry", err)
		}
		e.EntryType = models.EntryType(entryType)
		e.Tags = fromJSON[[]string](tags)
		e.Metadata = fromJSON[map[string]any](metadata)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) SavePromptVersion(ctx context.Context, pv *models.PromptVersion) error {
	_, err := s.exec(ctx, `
		INSERT INTO prompt_versions (prompt_name, version, content, is_active, created_by, approved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (prompt_name, version) DO UPDATE SET
			content = excluded.content, is_active = excluded.is_active, approved_at = excluded.approved_at`,
		pv.PromptName, pv.Version, pv.Content, boolToInt(pv.IsActive), string(pv.CreatedBy), int64PtrToNull(pv.ApprovedAt))
	if err != nil {
		return fmtErr("save prompt version", err)
	}
	return nil
}

func (s *Store) ActivePromptVersion(ctx context.Context, promptName string) (*models.PromptVersion, error) {
	row := s.queryRow(ctx, `
		SELECT prompt_name, version, content, is_active, created_by, approved_at
		FROM prompt_versions WHERE prompt_name = ? AND is_active = 1`, promptName)
	var pv models.PromptVersion
	var isActive int
	var createdBy string
	var approvedAt sql.NullInt64
	err := row.Scan(&pv.PromptName, &pv.Version, &pv.Content, &isActive, &createdBy, &approvedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	pv.IsActive = isActive != 0
	pv.CreatedBy = models.PromptApprover(createdBy)
	pv.ApprovedAt = nullToInt64Ptr(approvedAt)
	return &pv, nil
}

// ActivatePromptVersion deactivates every other version of promptName and
// activates the given version in a single transaction, so at most one
// version is ever active for a prompt name, even under interleaved calls.
func (s *Store) ActivatePromptVersion(ctx context.Context, promptName string, version int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmtErr("activate prompt version begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rewrite(`UPDATE prompt_versions SET is_active = 0 WHERE prompt_name = ?`), promptName); err != nil {
		return fmtErr("activate prompt version deactivate", err)
	}
	res, err := tx.ExecContext(ctx, s.rewrite(`UPDATE prompt_versions SET is_active = 1 WHERE prompt_name = ? AND version = ?`), promptName, version)
	if err != nil {
		return fmtErr("activate prompt version activate", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmtErr("activate prompt version", repository.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmtErr("activate prompt version commit", err)
	}
	return nil
}

func int64PtrToNull(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullToInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
