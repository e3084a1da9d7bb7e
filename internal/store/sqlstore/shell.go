package sqlstore

import (
	"context"
	"database/sql"

	"github.com/relaymind/conduit/pkg/models"
)

func (s *Store) AppendAuditEntry(ctx context.Context, entry *models.CommandAuditEntry) error {
	_, err := s.exec(ctx, `
		INSERT INTO audit_entries (entry_hash, previous_hash, session_id, handle, command, arguments,
			decision, exit_code, duration_ms, stdout_preview, stderr_preview, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EntryHash, entry.PreviousHash, entry.SessionID, entry.Handle, entry.Command,
		toJSON(entry.Arguments), string(entry.Decision), exitCodeToNull(entry.ExitCode), entry.DurationMS,
		entry.StdoutPreview, entry.StderrPreview, entry.Error, formatTime(entry.StartedAt), formatTime(entry.CompletedAt))
	if err != nil {
		return fmtErr("append audit entry", err)
	}
	return nil
}

func (s *Store) LastAuditHash(ctx context.Context) (string, error) {
	var hash sql.NullString
	err := s.queryRow(ctx, `SELECT entry_hash FROM audit_entries ORDER BY completed_at DESC LIMIT 1`).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmtErr("last audit hash", err)
	}
	return hash.String, nil
}

func (s *Store) SaveProcess(ctx context.Context, proc *models.ShellProcessRecord) error {
	_, err := s.exec(ctx, `
		INSERT INTO shell_processes (process_id, session_handle, command, started_at, stdout, stderr, stdout_offset, stderr_offset, exit_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (process_id) DO UPDATE SET
			stdout = excluded.stdout, stderr = excluded.stderr, stdout_offset = excluded.stdout_offset,
			stderr_offset = excluded.stderr_offset, exit_code = excluded.exit_code`,
		proc.ProcessID, proc.SessionHandle, proc.Command, formatTime(proc.StartedAt),
		proc.Stdout, proc.Stderr, proc.StdoutOffset, proc.StderrOffset, exitCodeToNull(proc.ExitCode))
	if err != nil {
		return fmtErr("save process", err)
	}
	return nil
}

func (s *Store) GetProcess(ctx context.Context, processID string) (*models.ShellProcessRecord, error) {
	row := s.queryRow(ctx, `
		SELECT process_id, session_handle, command, started_at, stdout, stderr, stdout_offset, stderr_offset, exit_code
		FROM shell_processes WHERE process_id = ?`, processID)
	return scanProcess(row)
}

func (s *Store) ListProcesses(ctx context.Context, sessionHandle string) ([]models.ShellProcessRecord, error) {
	rows, err := s.query(ctx, `
		SELECT process_id, session_handle, command, started_at, stdout, stderr, stdout_offset, stderr_offset, exit_code
		FROM shell_processes WHERE session_handle = ?`, sessionHandle)
	if err != nil {
		return nil, fmtErr("list processes", err)
	}
	defer rows.Close()

	var out []models.ShellProcessRecord
	for rows.Next() {
		var p models.ShellProcessRecord
		var startedAt string
		var exitCode sql.NullInt64
		if err := rows.Scan(&p.ProcessID, &p.SessionHandle, &p.Command, &startedAt, &p.Stdout, &p.Stderr,
			&p.StdoutOffset, &p.StderrOffset, &exitCode); err != nil {
			return nil, fmtErr("scan process", err)
		}
		p.StartedAt = parseTime(startedAt)
		p.ExitCode = nullIntToExitCode(exitCode)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeleteProcess(ctx context.Context, processID string) error {
	_, err := s.exec(ctx, `DELETE FROM shell_processes WHERE process_id = ?`, processID)
	if err != nil {
		return fmtErr("delete process", err)
	}
	return nil
}

func scanProcess(row *sql.Row) (*models.ShellProcessRecord, error) {
	var p models.ShellProcessRecord
	var startedAt string
	var exitCode sql.NullInt64
	err := row.Scan(&p.ProcessID, &p.SessionHandle, &p.Command, &startedAt, &p.Stdout, &p.Stderr,
		&p.StdoutOffset, &p.StderrOffset, &exitCode)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	p.StartedAt = parseTime(startedAt)
	p.ExitCode = nullIntToExitCode(exitCode)
	return &p, nil
}

func exitCodeToNull(code *int) sql.NullInt64 {
	if code == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*code), Valid: true}
}

func nullIntToExitCode(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
