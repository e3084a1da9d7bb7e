package cronjobs

import (
	"context"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/relaymind/conduit/internal/obslog"
	"github.com/relaymind/conduit/internal/repository"
)

// TriggerFunc hands a due job's objective off to the agent runtime. It runs
// in its own goroutine and its error, if any, is only logged — a single
// failed cron firing must not stop the scheduler.
type TriggerFunc func(ctx context.Context, job repository.CronJob) error

// SchedulerConfig configures the poll loop, mirroring the shape of the
// teacher's task scheduler config (spec §6 restoration + firing).
type SchedulerConfig struct {
	// PollInterval is how often due jobs are checked. Defaults to 30s,
	// coarser than the teacher's 10s since cron granularity here is at
	// best per-minute.
	PollInterval time.Duration
	// MaxConcurrency bounds simultaneously firing jobs. Defaults to 5.
	MaxConcurrency int
	Logger         *obslog.Logger
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 5
	}
	if c.Logger == nil {
		c.Logger = obslog.New(obslog.Config{})
	}
	return c
}

// Scheduler polls enabled cron jobs and fires TriggerFunc once per due
// minute, tracking firings via Repository.MarkCronJobRun so a restart
// doesn't replay the same minute twice.
type Scheduler struct {
	svc     *Service
	trigger TriggerFunc
	config  SchedulerConfig
	log     *obslog.Logger

	sem    chan struct{}
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
}

// NewScheduler builds a Scheduler over svc, firing trigger for each due job.
func NewScheduler(svc *Service, trigger TriggerFunc, config SchedulerConfig) *Scheduler {
	config = config.withDefaults()
	return &Scheduler{
		svc:     svc,
		trigger: trigger,
		config:  config,
		log:     config.Logger.WithFields("component", "cronjobs"),
		sem:     make(chan struct{}, config.MaxConcurrency),
	}
}

// Start begins the poll loop. Restoration of currently-active jobs happens
// implicitly: the first poll reads them straight from the repository, so
// nothing needs to be replayed explicitly after a process restart.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.log.Info(ctx, "cron scheduler starting", "poll_interval", s.config.PollInterval)

	s.wg.Add(1)
	go s.pollLoop(ctx)
}

// Stop cancels the poll loop and waits for in-flight firings to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.pollDue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollDue(ctx)
		}
	}
}

func (s *Scheduler) pollDue(ctx context.Context) {
	jobs, err := s.svc.ActiveJobs(ctx)
	if err != nil {
		s.log.Error(ctx, "cron: failed to list active jobs", "error", err)
		return
	}

	now := time.Now()
	for _, job := range jobs {
		if job.LastRunAt != nil && sameMinute(*job.LastRunAt, now) {
			continue
		}
		due, err := gronx.IsDue(job.Schedule, now)
		if err != nil {
			s.log.Warn(ctx, "cron: invalid schedule skipped", "job_id", job.ID, "schedule", job.Schedule, "error", err)
			continue
		}
		if !due {
			continue
		}
		s.fire(ctx, job, now)
	}
}

func sameMinute(a, b time.Time) bool {
	return a.Truncate(time.Minute).Equal(b.Truncate(time.Minute))
}

func (s *Scheduler) fire(ctx context.Context, job repository.CronJob, firedAt time.Time) {
	select {
	case s.sem <- struct{}{}:
	default:
		s.log.Warn(ctx, "cron: at max concurrency, skipping firing this tick", "job_id", job.ID)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.sem }()

		if err := s.svc.repo.MarkCronJobRun(ctx, job.ID, firedAt); err != nil {
			s.log.Error(ctx, "cron: failed to record firing", "job_id", job.ID, "error", err)
		}
		if err := s.trigger(ctx, job); err != nil {
			s.log.Error(ctx, "cron: trigger failed", "job_id", job.ID, "error", err)
		}
	}()
}
