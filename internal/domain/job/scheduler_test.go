package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func newTestScheduler(t *testing.T) (*Scheduler, *Service, *memRepo, *fakeRunner) {
	t.Helper()
	repo := newMemRepo()
	runner := &fakeRunner{}
	service := NewService(repo, runner, slog.Default())
	scheduler := NewScheduler(service, repo, 10*time.Millisecond, slog.Default())
	return scheduler, service, repo, runner
}

func stopScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_StartSeedsDefaultJobs(t *testing.T) {
	scheduler, _, repo, _ := newTestScheduler(t)

	require.NoError(t, scheduler.Start(context.Background()))
	defer stopScheduler(t, scheduler)

	assert.True(t, scheduler.IsRunning())
	jobs, err := repo.ListJobs(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, jobs, 5)
}

func TestScheduler_StartTwiceFails(t *testing.T) {
	scheduler, _, _, _ := newTestScheduler(t)

	require.NoError(t, scheduler.Start(context.Background()))
	defer stopScheduler(t, scheduler)

	assert.Error(t, scheduler.Start(context.Background()))
}

func TestScheduler_RunsDueJobs(t *testing.T) {
	scheduler, _, repo, runner := newTestScheduler(t)
	past := time.Now().UTC().Add(-time.Minute)
	j := seedJob(t, repo, func(j *ScheduledJob) {
		j.NextRun = &past
	})

	require.NoError(t, scheduler.Start(context.Background()))
	defer stopScheduler(t, scheduler)

	// Wait for the cycle to trigger the job and the execution to finish.
	deadline := time.After(3 * time.Second)
	for {
		executions, err := repo.ListExecutions(context.Background(), j.ID, 10)
		require.NoError(t, err)
		if len(executions) > 0 && executions[0].Status == StatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatal("due job never executed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.NotEmpty(t, runner.kinds)
}

func TestScheduler_SkipsJobWithRunningExecution(t *testing.T) {
	scheduler, _, repo, runner := newTestScheduler(t)
	past := time.Now().UTC().Add(-time.Minute)
	j := seedJob(t, repo, func(j *ScheduledJob) {
		j.NextRun = &past
	})
	stuck := &Execution{ExecutionID: "exec_1_0", JobID: j.ID, Status: StatusRunning}
	require.NoError(t, repo.CreateExecution(context.Background(), stuck))

	require.NoError(t, scheduler.Start(context.Background()))

	time.Sleep(60 * time.Millisecond)
	stopScheduler(t, scheduler)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Empty(t, runner.kinds, "job with a running execution must not be re-triggered")
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	scheduler, _, _, _ := newTestScheduler(t)

	require.NoError(t, scheduler.Start(context.Background()))
	stopScheduler(t, scheduler)

	assert.False(t, scheduler.IsRunning())
	assert.NoError(t, scheduler.Stop(context.Background()))
}
