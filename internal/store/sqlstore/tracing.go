package sqlstore

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/relaymind/conduit/pkg/models"
)

func (s *Store) SaveTrace(ctx context.Context, trace *models.Trace) error {
	if trace.ID == "" {
		trace.ID = newID()
	}
	if trace.StartedAt.IsZero() {
		trace.StartedAt = time.Now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO traces (id, handle, input, output, external_message_id, message_type, status, metadata, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			input = excluded.input, output = excluded.output, status = excluded.status,
			metadata = excluded.metadata, ended_at = excluded.ended_at`,
		trace.ID, trace.Handle, trace.Input, trace.Output, trace.ExternalMessageID,
		string(trace.MessageType), string(trace.Status), toJSON(trace.Metadata),
		formatTime(trace.StartedAt), timePtrToNull(trace.EndedAt))
	if err != nil {
		return fmtErr("save trace", err)
	}
	return nil
}

func (s *Store) SaveSpan(ctx context.Context, span *models.Span) error {
	if span.ID == "" {
		span.ID = newID()
	}
	if span.StartedAt.IsZero() {
		span.StartedAt = time.Now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO spans (id, trace_id, parent_id, name, kind, input, output, status, metadata, started_at, ended_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			output = excluded.output, status = excluded.status, metadata = excluded.metadata,
			ended_at = excluded.ended_at, duration_ms = excluded.duration_ms`,
		span.ID, span.TraceID, span.ParentID, span.Name, string(span.Kind), span.Input,
		span.Output, span.Status, toJSON(span.Metadata), formatTime(span.StartedAt),
		timePtrToNull(span.EndedAt), span.DurationMS)
	if err != nil {
		return fmtErr("save span", err)
	}
	return nil
}

func (s *Store) SaveScore(ctx context.Context, score *models.Score) error {
	if score.ID == "" {
		score.ID = newID()
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO scores (id, trace_id, span_id, name, value, source, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		score.ID, score.TraceID, score.SpanID, score.Name, score.Value,
		string(score.Source), score.Comment, formatTime(score.CreatedAt))
	if err != nil {
		return fmtErr("save score", err)
	}
	return nil
}

func (s *Store) GetTrace(ctx context.Context, id string) (*models.Trace, error) {
	row := s.queryRow(ctx, `
		SELECT id, handle, input, output, external_message_id, message_type, status, metadata, started_at, ended_at
		FROM traces WHERE id = ?`, id)

	var t models.Trace
	var externalMessageID, metadata string
	var messageType, status string
	var startedAt string
	var endedAt sql.NullString
	if err := row.Scan(&t.ID, &t.Handle, &t.Input, &t.Output, &externalMessageID, &messageType, &status, &metadata, &startedAt, &endedAt); err != nil {
		return nil, fmtErr("get trace", wrapNotFound(err))
	}
	t.ExternalMessageID = externalMessageID
	t.MessageType = models.MessageType(messageType)
	t.Status = models.TraceStatus(status)
	t.Metadata = fromJSON[map[string]any](metadata)
	t.StartedAt = parseTime(startedAt)
	t.EndedAt = nullTimePtr(endedAt)
	return &t, nil
}

func (s *Store) RecentTraces(ctx context.Context, handle string, limit int) ([]models.Trace, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.query(ctx, `
		SELECT id, handle, input, output, external_message_id, message_type, status, metadata, started_at, ended_at
		FROM traces WHERE handle = ? ORDER BY started_at DESC LIMIT ?`, handle, limit)
	if err != nil {
		return nil, fmtErr("recent traces", err)
	}
	defer rows.Close()

	var out []models.Trace
	for rows.Next() {
		var t models.Trace
		var externalMessageID, metadata, messageType, status, startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&t.ID, &t.Handle, &t.Input, &t.Output, &externalMessageID, &messageType, &status, &metadata, &startedAt, &endedAt); err != nil {
			return nil, fmtErr("scan trace", err)
		}
		t.ExternalMessageID = externalMessageID
		t.MessageType = models.MessageType(messageType)
		t.Status = models.TraceStatus(status)
		t.Metadata = fromJSON[map[string]any](metadata)
		t.StartedAt = parseTime(startedAt)
		t.EndedAt = nullTimePtr(endedAt)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (s *Store) SpansForTrace(ctx context.Context, traceID string) ([]models.Span, error) {
	rows, err := s.query(ctx, `
		SELECT id, trace_id, parent_id, name, kind, input, output, status, metadata, started_at, ended_at, duration_ms
		FROM spans WHERE trace_id = ? ORDER BY started_at ASC`, traceID)
	if err != nil {
		return nil, fmtErr("spans for trace", err)
	}
	defer rows.Close()

	var out []models.Span
	for rows.Next() {
		var sp models.Span
		var parentID sql.NullString
		var kind, status, metadata, startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&sp.ID, &sp.TraceID, &parentID, &sp.Name, &kind, &sp.Input, &sp.Output, &status, &metadata, &startedAt, &endedAt, &sp.DurationMS); err != nil {
			return nil, fmtErr("scan span", err)
		}
		sp.ParentID = parentID.String
		sp.Kind = models.SpanKind(kind)
		sp.Status = models.TraceStatus(status)
		sp.Metadata = fromJSON[map[string]any](metadata)
		sp.StartedAt = parseTime(startedAt)
		sp.EndedAt = nullTimePtr(endedAt)
		out = append(out, sp)
	}
	return out, rows.Err()
}
