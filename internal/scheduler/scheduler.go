// Package scheduler fires configured triage jobs on their cron expressions
// and on manual trigger, both through the same per-job function.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/triagebot/internal/taxonomy"
)

// ErrNoJobs is logged when the taxonomy defines no scheduled jobs.
var ErrNoJobs = errors.New("no scheduled jobs configured")

// RunFunc executes one tick of a job.
type RunFunc func(ctx context.Context, job taxonomy.JobSpec) error

// Entry describes a registered job and its next fire time.
type Entry struct {
	Job  taxonomy.JobSpec `json:"job"`
	Next time.Time        `json:"next"`
}

// Scheduler owns the cron runner for all configured jobs.
type Scheduler struct {
	cron   *cron.Cron
	loc    *time.Location
	logger log.Logger
	// base is the context cron-fired ticks run under.
	base context.Context

	mu      sync.Mutex
	run     RunFunc
	jobs    []taxonomy.JobSpec
	entries []cron.EntryID

	triggered sync.WaitGroup
}

// New creates a Scheduler evaluating expressions in timezone. Ticks fired by
// cron run under ctx.
func New(ctx context.Context, timezone string, logger log.Logger) (*Scheduler, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	if logger == nil {
		logger = log.Nop()
	}

	cl := cronLogger{ctx: ctx, logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{
		cron:   c,
		loc:    loc,
		logger: logger,
		base:   ctx,
	}, nil
}

// Register adds a cron entry for each job. With no jobs it logs an operator
// error and registers nothing.
func (s *Scheduler) Register(jobs []taxonomy.JobSpec, run RunFunc) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(jobs) == 0 {
		s.logger.Error(s.base, ErrNoJobs, "nothing to schedule, add scheduled_jobs to the taxonomy file and restart")
		return 0, nil
	}

	s.run = run
	for _, job := range jobs {
		id, err := s.cron.AddJob(job.Expression, cron.FuncJob(func() {
			s.execute(s.base, job, "cron")
		}))
		if err != nil {
			return len(s.jobs), fmt.Errorf("schedule job %q: %w", job.Name, err)
		}
		s.jobs = append(s.jobs, job)
		s.entries = append(s.entries, id)
		s.logger.Info(s.base, "job scheduled",
			"job", job.Name,
			"expression", job.Expression,
			"lookback_hours", job.LookbackHours,
			"timezone", s.loc.String(),
		)
	}
	return len(s.jobs), nil
}

// Trigger runs every registered job once, immediately, and returns how many
// were started. Ticks outlive ctx's cancellation but keep its values.
func (s *Scheduler) Trigger(ctx context.Context) int {
	s.mu.Lock()
	jobs := append([]taxonomy.JobSpec(nil), s.jobs...)
	s.mu.Unlock()

	s.logger.Info(ctx, "manually triggering scheduled jobs", "jobs", len(jobs))
	ctx = context.WithoutCancel(ctx)
	for _, job := range jobs {
		s.triggered.Add(1)
		go func() {
			defer s.triggered.Done()
			s.execute(ctx, job, "manual")
		}()
	}
	return len(jobs)
}

func (s *Scheduler) execute(ctx context.Context, job taxonomy.JobSpec, source string) {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run == nil {
		return
	}
	if err := run(ctx, job); err != nil {
		s.logger.Error(ctx, err, "job tick failed", "job", job.Name, "source", source)
	}
}

// Entries lists registered jobs with their next fire time. Next is zero
// until the scheduler is started.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.jobs))
	for i, job := range s.jobs {
		out = append(out, Entry{Job: job, Next: s.cron.Entry(s.entries[i]).Next})
	}
	return out
}

// Start begins firing jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron runner and waits for running ticks, cron-fired and
// manual, until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()
	allDone := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.triggered.Wait()
		close(allDone)
	}()
	select {
	case <-allDone:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

// cronLogger bridges cron's logger onto the service logger.
type cronLogger struct {
	ctx    context.Context
	logger log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(l.ctx, "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(l.ctx, err, "cron: "+msg, keysAndValues...)
}
