package sync

import (
	"errors"
	sysync "sync"
	"time"
)

// Status of the process-wide manual-sync register.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusTesting Status = "testing"
	StatusError   Status = "error"
)

// ErrSyncInProgress is returned when a manual sync is requested while one is
// already running. Requests are rejected, never queued.
var ErrSyncInProgress = errors.New("sync operation already in progress")

// Stats are the rolling counters kept by the register.
type Stats struct {
	TotalSyncs            int     `json:"total_syncs"`
	SuccessfulSyncs       int     `json:"successful_syncs"`
	FailedSyncs           int     `json:"failed_syncs"`
	LastError             string  `json:"last_error,omitempty"`
	TotalRecordsProcessed int     `json:"total_records_processed"`
	LastSyncDuration      float64 `json:"last_sync_duration,omitempty"`
}

// Snapshot is a point-in-time copy of the register for status endpoints.
type Snapshot struct {
	Status           Status     `json:"status"`
	LastSync         *time.Time `json:"last_sync,omitempty"`
	CurrentOperation string     `json:"current_operation,omitempty"`
	Stats            Stats      `json:"stats"`
	Uptime           string     `json:"uptime"`
}

// State is the process-wide register for manual syncs. It is the single
// piece of intentional global state: created once at startup, mutated by
// every manual sync, never persisted, lost on restart. Scheduled job
// executions track their own status in job_executions rows instead.
type State struct {
	mu sysync.Mutex

	status           Status
	startedAt        time.Time
	lastSync         *time.Time
	currentOperation string
	stats            Stats
}

func NewState() *State {
	return &State{
		status:    StatusIdle,
		startedAt: time.Now(),
	}
}

// Begin claims the register for one manual sync. It is the mutual-exclusion
// primitive: at most one caller holds the register until Complete or Fail.
func (s *State) Begin(operation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusRunning || s.status == StatusTesting {
		return ErrSyncInProgress
	}

	s.status = StatusRunning
	s.currentOperation = operation
	s.stats.TotalSyncs++
	return nil
}

// BeginTest claims the register for a test sync.
func (s *State) BeginTest() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusRunning || s.status == StatusTesting {
		return ErrSyncInProgress
	}

	s.status = StatusTesting
	s.currentOperation = "Test sync"
	return nil
}

// Complete releases the register after a successful run.
func (s *State) Complete(recordsProcessed int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.status = StatusIdle
	s.currentOperation = ""
	s.lastSync = &now
	s.stats.SuccessfulSyncs++
	s.stats.TotalRecordsProcessed += recordsProcessed
	s.stats.LastSyncDuration = duration.Seconds()
}

// Fail releases the register after a failed run, recording the error.
func (s *State) Fail(err error, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusIdle
	s.currentOperation = ""
	s.stats.FailedSyncs++
	if err != nil {
		s.stats.LastError = err.Error()
	}
	s.stats.LastSyncDuration = duration.Seconds()
}

// EndTest releases the register after a test sync, keeping the error if any.
func (s *State) EndTest(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusIdle
	s.currentOperation = ""
	if err != nil {
		s.stats.LastError = err.Error()
	}
}

// Snapshot returns a copy for read-only consumers.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Status:           s.status,
		LastSync:         s.lastSync,
		CurrentOperation: s.currentOperation,
		Stats:            s.stats,
		Uptime:           time.Since(s.startedAt).String(),
	}
}
