package cronjobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/relaymind/conduit/internal/repository"
)

// Service is the CRUD surface spec §6 names for user-defined cron jobs. It
// validates schedules at the boundary so the repository never stores one
// the scheduler can't parse later.
type Service struct {
	repo repository.CronRepository
}

// NewService builds a Service over repo.
func NewService(repo repository.CronRepository) *Service {
	return &Service{repo: repo}
}

// CreateJob validates schedule, assigns an id, and persists a new enabled
// job bound to handle.
func (s *Service) CreateJob(ctx context.Context, handle, schedule, objective string) (*repository.CronJob, error) {
	schedule = strings.TrimSpace(schedule)
	objective = strings.TrimSpace(objective)
	if handle == "" {
		return nil, fmt.Errorf("handle is required")
	}
	if objective == "" {
		return nil, fmt.Errorf("objective is required")
	}
	if err := ValidateExpression(schedule); err != nil {
		return nil, err
	}

	job := &repository.CronJob{
		ID:        uuid.NewString(),
		Handle:    handle,
		Schedule:  schedule,
		Objective: objective,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
	if err := s.repo.SaveCronJob(ctx, job); err != nil {
		return nil, fmt.Errorf("save cron job: %w", err)
	}
	return job, nil
}

// DeleteJob removes job id.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	return s.repo.DeleteCronJob(ctx, id)
}

// Disable flips a job's Enabled flag off without deleting it, so history
// (LastRunAt) survives a pause.
func (s *Service) Disable(ctx context.Context, id string) error {
	jobs, err := s.repo.ListCronJobs(ctx)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if j.ID == id {
			j.Enabled = false
			return s.repo.SaveCronJob(ctx, &j)
		}
	}
	return repository.ErrNotFound
}

// ListJobs returns every job regardless of handle, for admin/CLI listing.
func (s *Service) ListJobs(ctx context.Context) ([]repository.CronJob, error) {
	return s.repo.ListCronJobs(ctx)
}

// ListJobsForHandle filters ListJobs to one conversation handle.
func (s *Service) ListJobsForHandle(ctx context.Context, handle string) ([]repository.CronJob, error) {
	all, err := s.repo.ListCronJobs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]repository.CronJob, 0, len(all))
	for _, j := range all {
		if j.Handle == handle {
			out = append(out, j)
		}
	}
	return out, nil
}

// ActiveJobs implements the spec's "get_active_cron_jobs for startup
// restoration" operation: every enabled job, for the scheduler to re-arm
// after a process restart.
func (s *Service) ActiveJobs(ctx context.Context) ([]repository.CronJob, error) {
	all, err := s.repo.ListCronJobs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]repository.CronJob, 0, len(all))
	for _, j := range all {
		if j.Enabled {
			out = append(out, j)
		}
	}
	return out, nil
}
