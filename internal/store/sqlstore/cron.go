package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/relaymind/conduit/internal/repository"
)

func (s *Store) SaveCronJob(ctx context.Context, job *repository.CronJob) error {
	if job.ID == "" {
		job.ID = newID()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO cron_jobs (id, handle, schedule, objective, enabled, created_at, last_run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			schedule = excluded.schedule, objective = excluded.objective,
			enabled = excluded.enabled, last_run_at = excluded.last_run_at`,
		job.ID, job.Handle, job.Schedule, job.Objective, boolToInt(job.Enabled),
		formatTime(job.CreatedAt), timePtrToNull(job.LastRunAt))
	if err != nil {
		return fmtErr("save cron job", err)
	}
	return nil
}

func (s *Store) DeleteCronJob(ctx context.Context, id string) error {
	_, err := s.exec(ctx, `DELETE FROM cron_jobs WHERE id = ?`, id)
	if err != nil {
		return fmtErr("delete cron job", err)
	}
	return nil
}

func (s *Store) ListCronJobs(ctx context.Context) ([]repository.CronJob, error) {
	rows, err := s.query(ctx, `SELECT id, handle, schedule, objective, enabled, created_at, last_run_at FROM cron_jobs`)
	if err != nil {
		return nil, fmtErr("list cron jobs", err)
	}
	defer rows.Close()

	var out []repository.CronJob
	for rows.Next() {
		var j repository.CronJob
		var enabled int
		var createdAt string
		var lastRunAt sql.NullString
		if err := rows.Scan(&j.ID, &j.Handle, &j.Schedule, &j.Objective, &enabled, &createdAt, &lastRunAt); err != nil {
			return nil, fmtErr("scan cron job", err)
		}
		j.Enabled = enabled != 0
		j.CreatedAt = parseTime(createdAt)
		j.LastRunAt = nullTimePtr(lastRunAt)
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) MarkCronJobRun(ctx context.Context, id string, ranAt time.Time) error {
	_, err := s.exec(ctx, `UPDATE cron_jobs SET last_run_at = ? WHERE id = ?`, formatTime(ranAt), id)
	if err != nil {
		return fmtErr("mark cron job run", err)
	}
	return nil
}
