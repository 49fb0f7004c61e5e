package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 6 * time.Hour

// ErrJobRunning is returned by RunJobNow while the same job is already running.
var ErrJobRunning = errors.New("job already running")

// Job represents a scheduled job
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	ctx        context.Context
	cron       *cron.Cron
	jobs       map[string]*registeredJob
	jobTimeout time.Duration
	isRunning  bool
	log        zerolog.Logger
}

// registeredJob serializes every run of one job, scheduled or manual.
type registeredJob struct {
	job     Job
	running sync.Mutex
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// NewScheduler creates a new scheduler. Every run derives its context from ctx, so
// cancelling ctx stops jobs in flight. Runs of the same job never overlap.
func NewScheduler(ctx context.Context, log zerolog.Logger) *Scheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cronLogger{log: log}
	return &Scheduler{
		ctx: ctx,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		jobs:       make(map[string]*registeredJob),
		jobTimeout: DefaultJobTimeout,
		log:        log,
	}
}

// AddJob adds a job to the scheduler with a cron specification
func (s *Scheduler) AddJob(spec string, job Job) error {
	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &registeredJob{job: job}
	_, err := s.cron.AddFunc(spec, func() {
		err := s.run(entry)
		switch {
		case errors.Is(err, ErrJobRunning):
			s.log.Info().Str("job", name).Msg("Previous run still in progress, skipping")
		case err != nil:
			s.log.Error().Err(err).Str("job", name).Msg("Scheduled job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add job %s: %v", name, err)
	}

	s.jobs[name] = entry
	return nil
}

func (s *Scheduler) run(entry *registeredJob) error {
	if !entry.running.TryLock() {
		return ErrJobRunning
	}
	defer entry.running.Unlock()

	name := entry.job.Name()
	s.log.Info().Str("job", name).Msg("Starting job")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	defer cancel()

	if err := entry.job.Run(ctx); err != nil {
		return err
	}

	s.log.Info().Str("job", name).Dur("duration", time.Since(startTime)).Msg("Completed job")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	if s.isRunning {
		return
	}
	s.cron.Start()
	s.isRunning = true
	s.log.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	if !s.isRunning {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false
	s.log.Info().Msg("Scheduler stopped")
}

// RunJobNow runs a job immediately outside of schedule. It returns ErrJobRunning
// instead of starting a second run of a job that is still in progress
func (s *Scheduler) RunJobNow(name string) error {
	entry, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not registered", name)
	}

	s.log.Info().Str("job", name).Msg("Manually running job")
	return s.run(entry)
}

// NextRun reports the earliest upcoming run, or the zero time before Start.
func (s *Scheduler) NextRun() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if e.Next.IsZero() {
			continue
		}
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}
