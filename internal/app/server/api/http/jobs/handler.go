package jobs

import (
	"context"
	"errors"
	"time"

	"crashpipe/internal/domain/job"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Servicer is the job service surface the handlers need.
type Servicer interface {
	CreateJob(ctx context.Context, j *job.ScheduledJob) error
	UpdateJob(ctx context.Context, id int64, apply func(*job.ScheduledJob)) (*job.ScheduledJob, error)
	DeleteJob(ctx context.Context, id int64) error
	GetJob(ctx context.Context, id int64) (*job.ScheduledJob, error)
	ListJobs(ctx context.Context, enabledOnly bool) ([]*job.ScheduledJob, error)
	Execute(ctx context.Context, jobID int64, force bool, override job.Config) (string, error)
	ListExecutions(ctx context.Context, jobID int64, limit int) ([]*job.Execution, error)
	GetExecution(ctx context.Context, executionID string) (*job.Execution, error)
	Summary(ctx context.Context) (*job.Summary, error)
	DeleteTableData(ctx context.Context, table string, start, end *time.Time, deletedBy string) (*job.DeletionResult, error)
}

type Handler struct {
	service    Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listJobsOp(), h.listJobs)
	huma.Register(api, h.createJobOp(), h.createJob)
	huma.Register(api, h.summaryOp(), h.summary)
	huma.Register(api, h.recentExecutionsOp(), h.recentExecutions)
	huma.Register(api, h.getExecutionOp(), h.getExecution)
	huma.Register(api, h.getJobOp(), h.getJob)
	huma.Register(api, h.updateJobOp(), h.updateJob)
	huma.Register(api, h.deleteJobOp(), h.deleteJob)
	huma.Register(api, h.executeJobOp(), h.executeJob)
	huma.Register(api, h.jobExecutionsOp(), h.jobExecutions)
	huma.Register(api, h.deleteDataOp(), h.deleteData)
}

func (h *Handler) listJobs(ctx context.Context, input *listJobsInput) (*listJobsOutput, error) {
	list, err := h.service.ListJobs(ctx, input.EnabledOnly)
	if err != nil {
		h.log.Error("failed to list jobs", "error", err)
		return nil, huma.Error500InternalServerError("failed to list jobs")
	}
	return &listJobsOutput{Body: JobsResponse{Jobs: list}}, nil
}

func (h *Handler) createJob(ctx context.Context, input *createJobInput) (*jobOutput, error) {
	req := input.Body
	j := &job.ScheduledJob{
		Name:              req.Name,
		Description:       req.Description,
		Type:              job.Type(req.JobType),
		Enabled:           req.Enabled,
		Config:            req.Config,
		Recurrence:        job.Recurrence(req.RecurrenceType),
		CronExpression:    req.CronExpression,
		TimeoutMinutes:    req.TimeoutMinutes,
		MaxRetries:        req.MaxRetries,
		RetryDelayMinutes: req.RetryDelayMinutes,
		CreatedBy:         req.CreatedBy,
	}
	if err := h.service.CreateJob(ctx, j); err != nil {
		h.log.Error("failed to create job", "name", req.Name, "error", err)
		return nil, huma.Error500InternalServerError("failed to create job")
	}
	return &jobOutput{Body: *j}, nil
}

func (h *Handler) getJob(ctx context.Context, input *getJobInput) (*jobOutput, error) {
	j, err := h.service.GetJob(ctx, input.ID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		return nil, huma.Error500InternalServerError("failed to get job")
	}
	return &jobOutput{Body: *j}, nil
}

func (h *Handler) updateJob(ctx context.Context, input *updateJobInput) (*jobOutput, error) {
	req := input.Body
	j, err := h.service.UpdateJob(ctx, input.ID, func(j *job.ScheduledJob) {
		if req.Name != nil {
			j.Name = *req.Name
		}
		if req.Description != nil {
			j.Description = *req.Description
		}
		if req.Enabled != nil {
			j.Enabled = *req.Enabled
		}
		if req.Config != nil {
			j.Config = req.Config
		}
		if req.RecurrenceType != nil {
			j.Recurrence = job.Recurrence(*req.RecurrenceType)
		}
		if req.CronExpression != nil {
			j.CronExpression = *req.CronExpression
		}
		if req.TimeoutMinutes != nil {
			j.TimeoutMinutes = *req.TimeoutMinutes
		}
		if req.MaxRetries != nil {
			j.MaxRetries = *req.MaxRetries
		}
		if req.RetryDelayMinutes != nil {
			j.RetryDelayMinutes = *req.RetryDelayMinutes
		}
	})
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		h.log.Error("failed to update job", "job", input.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to update job")
	}
	return &jobOutput{Body: *j}, nil
}

func (h *Handler) deleteJob(ctx context.Context, input *deleteJobInput) (*statusOutput, error) {
	if err := h.service.DeleteJob(ctx, input.ID); err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		return nil, huma.Error500InternalServerError("failed to delete job")
	}
	return &statusOutput{Body: StatusResponse{Status: "ok", Message: "job deleted"}}, nil
}

func (h *Handler) executeJob(ctx context.Context, input *executeInput) (*executeOutput, error) {
	executionID, err := h.service.Execute(ctx, input.ID, input.Body.Force, input.Body.Config)
	if err != nil {
		switch {
		case errors.Is(err, job.ErrJobNotFound):
			return nil, huma.Error404NotFound("job not found")
		case errors.Is(err, job.ErrJobAlreadyRunning):
			return nil, huma.Error409Conflict("job already has a running execution")
		}
		h.log.Error("failed to execute job", "job", input.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to execute job")
	}
	return &executeOutput{Body: ExecuteResponse{ExecutionID: executionID, Status: "queued"}}, nil
}

func (h *Handler) recentExecutions(ctx context.Context, input *recentExecutionsInput) (*executionsOutput, error) {
	list, err := h.service.ListExecutions(ctx, 0, input.Limit)
	if err != nil {
		h.log.Error("failed to list executions", "error", err)
		return nil, huma.Error500InternalServerError("failed to list executions")
	}
	return &executionsOutput{Body: ExecutionsResponse{Executions: list}}, nil
}

func (h *Handler) jobExecutions(ctx context.Context, input *jobExecutionsInput) (*executionsOutput, error) {
	list, err := h.service.ListExecutions(ctx, input.ID, input.Limit)
	if err != nil {
		h.log.Error("failed to list executions", "job", input.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to list executions")
	}
	return &executionsOutput{Body: ExecutionsResponse{Executions: list}}, nil
}

func (h *Handler) getExecution(ctx context.Context, input *getExecutionInput) (*executionOutput, error) {
	e, err := h.service.GetExecution(ctx, input.ExecutionID)
	if err != nil {
		if errors.Is(err, job.ErrExecutionNotFound) {
			return nil, huma.Error404NotFound("execution not found")
		}
		return nil, huma.Error500InternalServerError("failed to get execution")
	}
	return &executionOutput{Body: *e}, nil
}

func (h *Handler) summary(ctx context.Context, _ *summaryInput) (*summaryOutput, error) {
	s, err := h.service.Summary(ctx)
	if err != nil {
		h.log.Error("failed to build job summary", "error", err)
		return nil, huma.Error500InternalServerError("failed to build job summary")
	}
	return &summaryOutput{Body: *s}, nil
}

func (h *Handler) deleteData(ctx context.Context, input *deleteDataInput) (*deleteDataOutput, error) {
	start, err := parseDate(input.StartDate)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid start_date")
	}
	end, err := parseDate(input.EndDate)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid end_date")
	}

	result, err := h.service.DeleteTableData(ctx, input.Table, start, end, input.DeletedBy)
	if err != nil {
		if errors.Is(err, job.ErrUnknownTable) {
			return nil, huma.Error422UnprocessableEntity("unknown table: " + input.Table)
		}
		h.log.Error("failed to delete table data", "table", input.Table, "error", err)
		return nil, huma.Error500InternalServerError("failed to delete table data")
	}
	return &deleteDataOutput{Body: *result}, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
