package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/relaymind/conduit/pkg/models"
	"github.com/relaymind/conduit/internal/repository"
)

func (s *Store) SaveSession(ctx context.Context, session *models.AgentSession) error {
	if session.ID == "" {
		session.ID = newID()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO agent_sessions (id, handle, objective, status, iteration, max_iterations, task_plan, scratchpad, plan, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			objective = excluded.objective, status = excluded.status, iteration = excluded.iteration,
			max_iterations = excluded.max_iterations, task_plan = excluded.task_plan,
			scratchpad = excluded.scratchpad, plan = excluded.plan, ended_at = excluded.ended_at`,
		session.ID, session.Handle, session.Objective, string(session.Status), session.Iteration,
		session.MaxIterations, session.TaskPlan, session.Scratchpad, toJSON(session.Plan),
		formatTime(session.StartedAt), timePtrToNull(session.EndedAt))
	if err != nil {
		return fmtErr("save session", err)
	}
	return nil
}

func (s *Store) scanSession(row *sql.Row) (*models.AgentSession, error) {
	var sess models.AgentSession
	var status, plan, startedAt string
	var endedAt sql.NullString
	err := row.Scan(&sess.ID, &sess.Handle, &sess.Objective, &status, &sess.Iteration,
		&sess.MaxIterations, &sess.TaskPlan, &sess.Scratchpad, &plan, &startedAt, &endedAt)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	sess.Status = models.SessionStatus(status)
	if plan != "" {
		p := fromJSON[models.AgentPlan](plan)
		sess.Plan = &p
	}
	sess.StartedAt = parseTime(startedAt)
	sess.EndedAt = nullTimePtr(endedAt)
	return &sess, nil
}

const sessionColumns = `id, handle, objective, status, iteration, max_iterations, task_plan, scratchpad, plan, started_at, ended_at`

func (s *Store) GetSession(ctx context.Context, id string) (*models.AgentSession, error) {
	row := s.queryRow(ctx, `SELECT `+sessionColumns+` FROM agent_sessions WHERE id = ?`, id)
	return s.scanSession(row)
}

func (s *Store) ActiveSessionForHandle(ctx context.Context, handle string) (*models.AgentSession, error) {
	row := s.queryRow(ctx, `
		SELECT `+sessionColumns+` FROM agent_sessions
		WHERE handle = ? AND status NOT IN ('completed', 'failed', 'cancelled')
		ORDER BY started_at DESC LIMIT 1`, handle)
	sess, err := s.scanSession(row)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, repository.ErrNotFound
		}
		return nil, fmtErr("active session for handle", err)
	}
	return sess, nil
}

func (s *Store) ListActiveSessions(ctx context.Context) ([]models.AgentSession, error) {
	rows, err := s.query(ctx, `
		SELECT `+sessionColumns+` FROM agent_sessions
		WHERE status NOT IN ('completed', 'failed', 'cancelled')`)
	if err != nil {
		return nil, fmtErr("list active sessions", err)
	}
	defer rows.Close()

	var out []models.AgentSession
	for rows.Next() {
		var sess models.AgentSession
		var status, plan, startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&sess.ID, &sess.Handle, &sess.Objective, &status, &sess.Iteration,
			&sess.MaxIterations, &sess.TaskPlan, &sess.Scratchpad, &plan, &startedAt, &endedAt); err != nil {
			return nil, fmtErr("scan active session", err)
		}
		sess.Status = models.SessionStatus(status)
		if plan != "" {
			p := fromJSON[models.AgentPlan](plan)
			sess.Plan = &p
		}
		sess.StartedAt = parseTime(startedAt)
		sess.EndedAt = nullTimePtr(endedAt)
		out = append(out, sess)
	}
	return out, rows.Err()
}
