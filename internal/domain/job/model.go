package job

import (
	"time"

	"crashpipe/internal/domain/crash"

	"github.com/robfig/cron/v3"
)

// Status of one execution. Pending and the terminal states never move
// backward: pending -> running -> completed | failed, with cancelled
// reserved for external cancellation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Type tags what a job syncs.
type Type string

const (
	TypeFullRefresh           Type = "full_refresh"
	TypeLast30DaysCrashes     Type = "last_30_days_crashes"
	TypeLast30DaysPeople      Type = "last_30_days_people"
	TypeLast30DaysVehicles    Type = "last_30_days_vehicles"
	TypeLast6MonthsFatalities Type = "last_6_months_fatalities"
	TypeCustom                Type = "custom"
)

// Recurrence patterns.
type Recurrence string

const (
	RecurrenceOnce       Recurrence = "once"
	RecurrenceDaily      Recurrence = "daily"
	RecurrenceWeekly     Recurrence = "weekly"
	RecurrenceMonthly    Recurrence = "monthly"
	RecurrenceCustomCron Recurrence = "custom_cron"
)

// Config is the free-form job configuration blob (endpoints, date windows,
// force flag). Stored as JSON.
type Config map[string]any

// ScheduledJob is a persistent job configuration.
type ScheduledJob struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        Type   `json:"job_type"`

	Enabled bool   `json:"enabled"`
	Config  Config `json:"config,omitempty"`

	Recurrence     Recurrence `json:"recurrence_type"`
	CronExpression string     `json:"cron_expression,omitempty"`
	NextRun        *time.Time `json:"next_run,omitempty"`
	LastRun        *time.Time `json:"last_run,omitempty"`

	TimeoutMinutes    int `json:"timeout_minutes"`
	MaxRetries        int `json:"max_retries"`
	RetryDelayMinutes int `json:"retry_delay_minutes"`

	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Execution is one run attempt of a ScheduledJob. Rows are immutable once
// the status is terminal.
type Execution struct {
	ID          int64  `json:"-"`
	ExecutionID string `json:"execution_id"`
	JobID       int64  `json:"job_id"`
	JobName     string `json:"job_name,omitempty"`

	Status          Status     `json:"status"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`

	RecordsProcessed int `json:"records_processed"`
	RecordsInserted  int `json:"records_inserted"`
	RecordsUpdated   int `json:"records_updated"`
	RecordsSkipped   int `json:"records_skipped"`

	ErrorMessage *string        `json:"error_message,omitempty"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`
	RetryCount   int            `json:"retry_count"`

	Context   Context   `json:"execution_context"`
	CreatedAt time.Time `json:"created_at"`
}

// LogEntry is one timestamped line in the execution context log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Trigger records how an execution was requested.
type Trigger struct {
	Type        string     `json:"type"`
	Force       bool       `json:"force"`
	Manual      bool       `json:"manual"`
	RequestedAt time.Time  `json:"requested_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
}

// JobRef names the owning job inside the context blob.
type JobRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SyncParams are the concrete parameters resolved from a job's type and
// config before the orchestrator runs.
type SyncParams struct {
	Endpoints []crash.Kind `json:"endpoints"`
	StartDate string       `json:"start_date,omitempty"`
	EndDate   string       `json:"end_date,omitempty"`
	Force     bool         `json:"force"`
}

// SyncInfo wraps the resolved parameters inside the context blob.
type SyncInfo struct {
	Parameters SyncParams `json:"parameters"`
}

// Totals are the roll-up counters stored in the context result.
type Totals struct {
	Processed int `json:"processed"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
}

// ResultInfo is the terminal section of the context blob: totals on success,
// an error string on failure.
type ResultInfo struct {
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	Totals          *Totals    `json:"totals,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// Context is the structured blob attached to an execution: trigger metadata,
// resolved parameters, an append-only log, and the final result.
type Context struct {
	Trigger Trigger     `json:"trigger"`
	Config  Config      `json:"config,omitempty"`
	Job     JobRef      `json:"job"`
	Logs    []LogEntry  `json:"logs"`
	Sync    *SyncInfo   `json:"sync,omitempty"`
	Result  *ResultInfo `json:"result,omitempty"`
}

// AppendLog adds one leveled entry to the context log.
func (c *Context) AppendLog(level, message string) {
	c.Logs = append(c.Logs, LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
	})
}

// NextRun computes the next fire time for a recurrence. Once never refires.
// Daily, weekly and monthly advance from the last run (or now, when the job
// has never run). Custom cron uses a standard five-field cron expression; an
// invalid expression falls back to one day out.
func NextRun(recurrence Recurrence, cronExpression string, lastRun *time.Time) *time.Time {
	now := time.Now()

	if recurrence == RecurrenceOnce {
		return nil
	}

	base := now
	if lastRun != nil {
		base = *lastRun
	}

	var next time.Time
	switch recurrence {
	case RecurrenceDaily:
		next = base.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		next = base.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		// 30-day approximation of a month.
		next = base.AddDate(0, 0, 30)
	case RecurrenceCustomCron:
		schedule, err := cron.ParseStandard(cronExpression)
		if err != nil {
			next = base.AddDate(0, 0, 1)
		} else {
			next = schedule.Next(base)
		}
	default:
		next = now.Add(time.Hour)
	}

	return &next
}

// DefaultJobs returns the five built-in job templates seeded at startup.
func DefaultJobs() []ScheduledJob {
	return []ScheduledJob{
		{
			Name:        "Full Data Refresh",
			Description: "Complete refresh of all data from Chicago Open Data Portal",
			Type:        TypeFullRefresh,
			Enabled:     false,
			Recurrence:  RecurrenceOnce,
			Config: Config{
				"endpoints": []any{"crashes", "people", "vehicles", "fatalities"},
				"force":     true,
			},
			TimeoutMinutes:    300,
			MaxRetries:        1,
			RetryDelayMinutes: 5,
		},
		{
			Name:        "Last 30 Days - Crash Data",
			Description: "Refresh crash data from the last 30 days",
			Type:        TypeLast30DaysCrashes,
			Enabled:     true,
			Recurrence:  RecurrenceDaily,
			Config: Config{
				"endpoints":       []any{"crashes"},
				"date_range_days": 30,
				"force":           true,
			},
			TimeoutMinutes:    60,
			MaxRetries:        3,
			RetryDelayMinutes: 5,
		},
		{
			Name:        "Last 30 Days - People Data",
			Description: "Refresh people data from the last 30 days",
			Type:        TypeLast30DaysPeople,
			Enabled:     true,
			Recurrence:  RecurrenceDaily,
			Config: Config{
				"endpoints":       []any{"people"},
				"date_range_days": 30,
				"force":           true,
			},
			TimeoutMinutes:    60,
			MaxRetries:        3,
			RetryDelayMinutes: 5,
		},
		{
			Name:        "Last 30 Days - Vehicle Data",
			Description: "Refresh vehicle data from the last 30 days",
			Type:        TypeLast30DaysVehicles,
			Enabled:     true,
			Recurrence:  RecurrenceDaily,
			Config: Config{
				"endpoints":       []any{"vehicles"},
				"date_range_days": 30,
				"force":           true,
			},
			TimeoutMinutes:    60,
			MaxRetries:        3,
			RetryDelayMinutes: 5,
		},
		{
			Name:        "Last 6 Months - Vision Zero Fatalities",
			Description: "Refresh Vision Zero fatality data from the last 6 months",
			Type:        TypeLast6MonthsFatalities,
			Enabled:     true,
			Recurrence:  RecurrenceWeekly,
			Config: Config{
				"endpoints":       []any{"fatalities"},
				"date_range_days": 180,
				"force":           true,
			},
			TimeoutMinutes:    30,
			MaxRetries:        3,
			RetryDelayMinutes: 5,
		},
	}
}
