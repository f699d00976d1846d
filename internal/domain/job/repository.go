package job

import (
	"context"
	"time"
)

// Summary aggregates job and execution counts for the reporting endpoint.
type Summary struct {
	TotalJobs           int64      `json:"total_jobs"`
	EnabledJobs         int64      `json:"enabled_jobs"`
	TotalExecutions     int64      `json:"total_executions"`
	RunningExecutions   int64      `json:"running_executions"`
	CompletedExecutions int64      `json:"completed_executions"`
	FailedExecutions    int64      `json:"failed_executions"`
	LastExecutionAt     *time.Time `json:"last_execution_at,omitempty"`
	AverageDurationSecs *float64   `json:"average_duration_seconds,omitempty"`
}

// DeletionLog is an audit row written whenever table data is purged.
type DeletionLog struct {
	ID           int64      `json:"id"`
	TableName    string     `json:"table_name"`
	RecordsCount int64      `json:"records_count"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	DeletedBy    string     `json:"deleted_by"`
	DeletedAt    time.Time  `json:"deleted_at"`
}

// Repository persists jobs, executions and deletion audit rows.
type Repository interface {
	CreateJob(ctx context.Context, j *ScheduledJob) error
	UpdateJob(ctx context.Context, j *ScheduledJob) error
	DeleteJob(ctx context.Context, id int64) (bool, error)
	GetJob(ctx context.Context, id int64) (*ScheduledJob, error)
	FindJobByType(ctx context.Context, t Type) (*ScheduledJob, error)
	ListJobs(ctx context.Context, enabledOnly bool) ([]*ScheduledJob, error)

	// DueJobs returns enabled jobs whose next_run is at or before now.
	DueJobs(ctx context.Context, now time.Time) ([]*ScheduledJob, error)

	CreateExecution(ctx context.Context, e *Execution) error
	UpdateExecution(ctx context.Context, e *Execution) error
	GetExecution(ctx context.Context, id int64) (*Execution, error)
	GetExecutionByIdentifier(ctx context.Context, executionID string) (*Execution, error)

	// ListExecutions returns the most recent executions, newest first.
	// A zero jobID means all jobs.
	ListExecutions(ctx context.Context, jobID int64, limit int) ([]*Execution, error)
	HasRunningExecution(ctx context.Context, jobID int64) (bool, error)

	Summary(ctx context.Context) (*Summary, error)

	// PurgeTable deletes rows from one of the crash tables, optionally
	// bounded by a date window, and returns the number of rows removed.
	PurgeTable(ctx context.Context, table string, start, end *time.Time) (int64, error)
	LogDeletion(ctx context.Context, entry *DeletionLog) error
}
