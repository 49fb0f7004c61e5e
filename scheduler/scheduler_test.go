package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// Mock job for testing
type MockJob struct {
	name     string
	runCount int32
	err      error
	deadline bool
}

func (j *MockJob) Name() string {
	return j.name
}

func (j *MockJob) Run(ctx context.Context) error {
	atomic.AddInt32(&j.runCount, 1)
	_, j.deadline = ctx.Deadline()
	return j.err
}

func (j *MockJob) runs() int32 {
	return atomic.LoadInt32(&j.runCount)
}

func TestScheduler(t *testing.T) {
	s := NewScheduler(context.Background(), zerolog.Nop())
	mockJob := &MockJob{name: "test_job"}

	// Test adding a job
	err := s.AddJob("* * * * * *", mockJob) // Run every second
	if err != nil {
		t.Fatalf("Failed to add job: %v", err)
	}

	// Start the scheduler
	s.Start()

	if s.NextRun().IsZero() {
		t.Error("Expected a next run once started")
	}

	// Wait for the job to run at least once
	time.Sleep(2 * time.Second)
	s.Stop()

	// Verify the job ran
	if mockJob.runs() == 0 {
		t.Error("Job did not run")
	}

	// Test running a job now
	initialRunCount := mockJob.runs()
	err = s.RunJobNow("test_job")
	if err != nil {
		t.Fatalf("Failed to run job now: %v", err)
	}

	if mockJob.runs() != initialRunCount+1 {
		t.Errorf("RunJobNow did not increment run count")
	}
	if !mockJob.deadline {
		t.Error("Expected jobs to run under a deadline")
	}

	// Test running a non-existent job
	err = s.RunJobNow("non_existent_job")
	if err == nil {
		t.Error("Running non-existent job should have failed")
	}
}

func TestAddJobRejectsDuplicatesAndBadSpecs(t *testing.T) {
	s := NewScheduler(context.Background(), zerolog.Nop())
	job := &MockJob{name: "pipeline"}

	if err := s.AddJob("0 0 6 * * *", job); err != nil {
		t.Fatalf("Failed to add job: %v", err)
	}
	if err := s.AddJob("0 0 18 * * *", job); err == nil {
		t.Error("Expected duplicate job name to be rejected")
	}
	if err := s.AddJob("not a spec", &MockJob{name: "other"}); err == nil {
		t.Error("Expected invalid cron spec to be rejected")
	}
}

func TestRunJobNowReturnsJobError(t *testing.T) {
	s := NewScheduler(context.Background(), zerolog.Nop())
	jobErr := errors.New("boom")
	if err := s.AddJob("0 0 6 * * *", &MockJob{name: "failing", err: jobErr}); err != nil {
		t.Fatal(err)
	}

	if err := s.RunJobNow("failing"); !errors.Is(err, jobErr) {
		t.Errorf("Expected job error, got %v", err)
	}
}

func TestNextRunBeforeStart(t *testing.T) {
	s := NewScheduler(context.Background(), zerolog.Nop())
	if err := s.AddJob("0 0 6 * * *", &MockJob{name: "idle"}); err != nil {
		t.Fatal(err)
	}
	if !s.NextRun().IsZero() {
		t.Error("Expected zero next run before Start")
	}
}

// blockingJob runs until release is closed or its context ends, tracking how many
// runs are in flight at once.
type blockingJob struct {
	started       chan struct{}
	release       chan struct{}
	active        int32
	maxConcurrent int32
	runCount      int32
}

func newBlockingJob() *blockingJob {
	return &blockingJob{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (j *blockingJob) Name() string {
	return "pipeline"
}

func (j *blockingJob) Run(ctx context.Context) error {
	atomic.AddInt32(&j.runCount, 1)
	n := atomic.AddInt32(&j.active, 1)
	defer atomic.AddInt32(&j.active, -1)
	for {
		peak := atomic.LoadInt32(&j.maxConcurrent)
		if n <= peak || atomic.CompareAndSwapInt32(&j.maxConcurrent, peak, n) {
			break
		}
	}
	j.started <- struct{}{}

	select {
	case <-j.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestManualRunDoesNotOverlapScheduledRuns(t *testing.T) {
	s := NewScheduler(context.Background(), zerolog.Nop())
	job := newBlockingJob()
	if err := s.AddJob("* * * * * *", job); err != nil {
		t.Fatal(err)
	}

	manual := make(chan error, 1)
	go func() { manual <- s.RunJobNow(job.Name()) }()
	<-job.started

	s.Start()
	// Let at least one cron tick fire while the manual run holds the job.
	time.Sleep(1500 * time.Millisecond)

	if err := s.RunJobNow(job.Name()); !errors.Is(err, ErrJobRunning) {
		t.Errorf("Expected ErrJobRunning for a second manual run, got %v", err)
	}
	if got := atomic.LoadInt32(&job.runCount); got != 1 {
		t.Errorf("Expected cron ticks to be skipped during the manual run, got %d runs", got)
	}

	close(job.release)
	if err := <-manual; err != nil {
		t.Errorf("Manual run returned error: %v", err)
	}
	s.Stop()

	if got := atomic.LoadInt32(&job.maxConcurrent); got != 1 {
		t.Errorf("Expected at most one run in flight, saw %d", got)
	}
}

func TestCancellingSchedulerContextStopsRunningJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewScheduler(ctx, zerolog.Nop())
	job := newBlockingJob()
	if err := s.AddJob("0 0 6 * * *", job); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.RunJobNow(job.Name()) }()
	<-job.started

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Job kept running after the scheduler context was cancelled")
	}
}
