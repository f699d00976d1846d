package jobs

import (
	"crashpipe/internal/domain/job"
)

type listJobsInput struct {
	EnabledOnly bool `query:"enabled_only" doc:"Return enabled jobs only"`
}

type listJobsOutput struct {
	Body JobsResponse
}

type JobsResponse struct {
	Jobs []*job.ScheduledJob `json:"jobs"`
}

type CreateJobRequest struct {
	Name              string         `json:"name" minLength:"1" maxLength:"200"`
	Description       string         `json:"description,omitempty"`
	JobType           string         `json:"job_type" enum:"full_refresh,last_30_days_crashes,last_30_days_people,last_30_days_vehicles,last_6_months_fatalities,custom"`
	Enabled           bool           `json:"enabled"`
	Config            map[string]any `json:"config,omitempty"`
	RecurrenceType    string         `json:"recurrence_type" enum:"once,daily,weekly,monthly,custom_cron"`
	CronExpression    string         `json:"cron_expression,omitempty" doc:"Five-field cron expression, used with custom_cron"`
	TimeoutMinutes    int            `json:"timeout_minutes,omitempty" minimum:"0" default:"60"`
	MaxRetries        int            `json:"max_retries,omitempty" minimum:"0" default:"3"`
	RetryDelayMinutes int            `json:"retry_delay_minutes,omitempty" minimum:"0" default:"5"`
	CreatedBy         string         `json:"created_by,omitempty"`
}

type createJobInput struct {
	Body CreateJobRequest
}

type jobOutput struct {
	Body job.ScheduledJob
}

type getJobInput struct {
	ID int64 `path:"id"`
}

// UpdateJobRequest carries a partial update; nil fields are left unchanged.
type UpdateJobRequest struct {
	Name              *string        `json:"name,omitempty"`
	Description       *string        `json:"description,omitempty"`
	Enabled           *bool          `json:"enabled,omitempty"`
	Config            map[string]any `json:"config,omitempty"`
	RecurrenceType    *string        `json:"recurrence_type,omitempty" enum:"once,daily,weekly,monthly,custom_cron"`
	CronExpression    *string        `json:"cron_expression,omitempty"`
	TimeoutMinutes    *int           `json:"timeout_minutes,omitempty"`
	MaxRetries        *int           `json:"max_retries,omitempty"`
	RetryDelayMinutes *int           `json:"retry_delay_minutes,omitempty"`
}

type updateJobInput struct {
	ID   int64 `path:"id"`
	Body UpdateJobRequest
}

type deleteJobInput struct {
	ID int64 `path:"id"`
}

type statusOutput struct {
	Body StatusResponse
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ExecuteRequest struct {
	Force  bool           `json:"force,omitempty" doc:"Run even when another execution is active"`
	Config map[string]any `json:"config,omitempty" doc:"One-off config override for this run"`
}

type executeInput struct {
	ID   int64 `path:"id"`
	Body ExecuteRequest
}

type executeOutput struct {
	Body ExecuteResponse
}

type ExecuteResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status" example:"queued"`
}

type recentExecutionsInput struct {
	Limit int `query:"limit" minimum:"1" maximum:"500" default:"50"`
}

type jobExecutionsInput struct {
	ID    int64 `path:"id"`
	Limit int   `query:"limit" minimum:"1" maximum:"500" default:"50"`
}

type executionsOutput struct {
	Body ExecutionsResponse
}

type ExecutionsResponse struct {
	Executions []*job.Execution `json:"executions"`
}

type getExecutionInput struct {
	ExecutionID string `path:"executionID"`
}

type executionOutput struct {
	Body job.Execution
}

type summaryInput struct{}

type summaryOutput struct {
	Body job.Summary
}

type deleteDataInput struct {
	Table     string `path:"table" doc:"One of crashes, crash_people, crash_vehicles, vision_zero_fatalities"`
	StartDate string `query:"start_date" doc:"Optional inclusive window start, YYYY-MM-DD"`
	EndDate   string `query:"end_date" doc:"Optional inclusive window end, YYYY-MM-DD"`
	DeletedBy string `query:"deleted_by" doc:"Audit tag recorded in the deletion log"`
}

type deleteDataOutput struct {
	Body job.DeletionResult
}
