package job

import (
	"context"
	"errors"
	"fmt"
	sysync "sync"
	"time"

	"golang.org/x/exp/slog"
)

// Scheduler periodically polls for due jobs and hands them to the Service.
// A malfunctioning cycle is logged and the loop keeps running; only Stop
// ends it.
type Scheduler struct {
	service  *Service
	repo     Repository
	interval time.Duration
	log      *slog.Logger

	mu      sysync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewScheduler(service *Service, repo Repository, interval time.Duration, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		service:  service,
		repo:     repo,
		interval: interval,
		log:      log,
	}
}

// Start seeds the default jobs and launches the polling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}

	if created, err := s.service.InitializeDefaultJobs(ctx); err != nil {
		s.log.Error("seed default jobs", "error", err)
	} else if len(created) > 0 {
		s.log.Info("seeded default jobs", "jobs", created)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(loopCtx)
	s.log.Info("scheduler started", "interval", s.interval)
	return nil
}

// Stop ends the polling loop and waits for in-flight executions to drain.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	done := s.done
	s.running = false
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler loop: %w", ctx.Err())
	}

	if err := s.service.Drain(ctx); err != nil {
		return fmt.Errorf("drain executions: %w", err)
	}
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.runDueJobs(ctx); err != nil {
				s.log.Error("scheduler cycle", "error", err)
			}
		}
	}
}

// runDueJobs executes every enabled job whose next_run has passed. Jobs
// with an execution still running are skipped, not queued.
func (s *Scheduler) runDueJobs(ctx context.Context) error {
	due, err := s.repo.DueJobs(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("query due jobs: %w", err)
	}

	for _, j := range due {
		running, err := s.repo.HasRunningExecution(ctx, j.ID)
		if err != nil {
			s.log.Error("check running execution", "job", j.ID, "error", err)
			continue
		}
		if running {
			s.log.Warn("job still running, skipping", "job", j.Name)
			continue
		}

		executionID, err := s.service.Execute(ctx, j.ID, false, nil)
		if err != nil {
			s.log.Error("execute due job", "job", j.Name, "error", err)
			continue
		}
		s.log.Info("scheduled job triggered", "job", j.Name, "execution", executionID)
	}
	return nil
}
