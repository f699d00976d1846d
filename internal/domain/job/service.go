package job

import (
	"context"
	"errors"
	"fmt"
	sysync "sync"
	"time"

	"crashpipe/internal/domain/crash"
	syncsvc "crashpipe/internal/domain/sync"

	"golang.org/x/exp/slog"
)

// Runner runs a sync for a set of endpoints. Implemented by the sync
// service; stubbed in tests.
type Runner interface {
	Sync(ctx context.Context, kinds []crash.Kind, opts syncsvc.Options) (*syncsvc.Result, error)
}

// Service executes scheduled jobs: it creates execution rows, runs the sync
// in a tracked background task, enforces the per-job timeout and retry
// budget, and advances the schedule on success.
type Service struct {
	repo   Repository
	runner Runner
	log    *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sysync.WaitGroup
}

func NewService(repo Repository, runner Runner, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		repo:    repo,
		runner:  runner,
		log:     log,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// InitializeDefaultJobs seeds the built-in job templates, keyed by job type.
// Existing jobs are left untouched, so the call is safe on every startup.
// Returns the names of jobs actually created.
func (s *Service) InitializeDefaultJobs(ctx context.Context) ([]string, error) {
	var created []string
	for _, template := range DefaultJobs() {
		existing, err := s.repo.FindJobByType(ctx, template.Type)
		if err != nil {
			return created, fmt.Errorf("find job by type %s: %w", template.Type, err)
		}
		if existing != nil {
			continue
		}

		j := template
		j.CreatedBy = "system"
		if j.Enabled && j.Recurrence != RecurrenceOnce {
			j.NextRun = NextRun(j.Recurrence, j.CronExpression, nil)
		}
		if err := s.repo.CreateJob(ctx, &j); err != nil {
			return created, fmt.Errorf("create default job %q: %w", j.Name, err)
		}
		created = append(created, j.Name)
		s.log.Info("created default job", "name", j.Name, "type", j.Type)
	}
	return created, nil
}

// CreateJob stores a new job and computes its first next_run.
func (s *Service) CreateJob(ctx context.Context, j *ScheduledJob) error {
	if j.Enabled && j.Recurrence != RecurrenceOnce {
		j.NextRun = NextRun(j.Recurrence, j.CronExpression, nil)
	}
	return s.repo.CreateJob(ctx, j)
}

// UpdateJob applies a mutation to an existing job and recomputes next_run
// from the possibly changed schedule.
func (s *Service) UpdateJob(ctx context.Context, id int64, apply func(*ScheduledJob)) (*ScheduledJob, error) {
	j, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	apply(j)

	if j.Enabled && j.Recurrence != RecurrenceOnce {
		j.NextRun = NextRun(j.Recurrence, j.CronExpression, j.LastRun)
	} else {
		j.NextRun = nil
	}

	if err := s.repo.UpdateJob(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

func (s *Service) DeleteJob(ctx context.Context, id int64) error {
	deleted, err := s.repo.DeleteJob(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrJobNotFound
	}
	return nil
}

func (s *Service) GetJob(ctx context.Context, id int64) (*ScheduledJob, error) {
	j, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, ErrJobNotFound
	}
	return j, nil
}

func (s *Service) ListJobs(ctx context.Context, enabledOnly bool) ([]*ScheduledJob, error) {
	return s.repo.ListJobs(ctx, enabledOnly)
}

func (s *Service) ListExecutions(ctx context.Context, jobID int64, limit int) ([]*Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListExecutions(ctx, jobID, limit)
}

func (s *Service) GetExecution(ctx context.Context, executionID string) (*Execution, error) {
	e, err := s.repo.GetExecutionByIdentifier(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrExecutionNotFound
	}
	return e, nil
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	return s.repo.Summary(ctx)
}

// Execute queues one run of a job. The execution row is created
// synchronously so the returned identifier is immediately queryable;
// the sync itself runs in a tracked background task. A running execution
// blocks a second one unless force is set.
func (s *Service) Execute(ctx context.Context, jobID int64, force bool, override Config) (string, error) {
	j, err := s.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}

	running, err := s.repo.HasRunningExecution(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("check running executions: %w", err)
	}
	if running && !force {
		return "", ErrJobAlreadyRunning
	}

	cfg := j.Config
	if override != nil {
		cfg = override
	}

	triggerType := "scheduled"
	if force || override != nil {
		triggerType = "manual"
	}

	e := &Execution{
		ExecutionID: fmt.Sprintf("exec_%d_%d", jobID, time.Now().Unix()),
		JobID:       jobID,
		JobName:     j.Name,
		Status:      StatusPending,
		Context: Context{
			Trigger: Trigger{
				Type:        triggerType,
				Force:       force,
				Manual:      triggerType == "manual",
				RequestedAt: time.Now().UTC(),
			},
			Config: cfg,
			Job:    JobRef{ID: j.ID, Name: j.Name},
			Logs:   []LogEntry{},
		},
	}
	e.Context.AppendLog("info", fmt.Sprintf("Execution queued for job %q", j.Name))

	if err := s.repo.CreateExecution(ctx, e); err != nil {
		return "", fmt.Errorf("create execution: %w", err)
	}

	s.spawn(func(taskCtx context.Context) {
		s.runExecution(taskCtx, e.ID, cfg)
	})

	return e.ExecutionID, nil
}

// Drain waits for all in-flight executions to finish. If the context
// expires first the remaining tasks are cancelled.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *Service) spawn(fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.baseCtx)
	}()
}

func (s *Service) runExecution(ctx context.Context, execID int64, cfg Config) {
	e, err := s.repo.GetExecution(ctx, execID)
	if err != nil || e == nil {
		s.log.Error("load execution", "execution", execID, "error", err)
		return
	}
	j, err := s.repo.GetJob(ctx, e.JobID)
	if err != nil || j == nil {
		s.log.Error("load job for execution", "job", e.JobID, "error", err)
		return
	}

	started := time.Now().UTC()
	e.Status = StatusRunning
	e.StartedAt = &started
	e.Context.Trigger.StartedAt = &started
	e.Context.AppendLog("info", "Execution started")
	s.persistExecution(ctx, e)

	params := BuildSyncParams(j.Type, cfg)
	e.Context.Sync = &SyncInfo{Parameters: params}
	e.Context.AppendLog("info", fmt.Sprintf("Syncing endpoints: %v", params.Endpoints))
	s.persistExecution(ctx, e)

	s.log.Info("executing job",
		"job", j.Name,
		"execution", e.ExecutionID,
		"endpoints", params.Endpoints,
	)

	for {
		result, err := s.runSync(ctx, j, params)
		if err == nil {
			s.completeExecution(ctx, e, j, result, started)
			return
		}

		if e.RetryCount >= j.MaxRetries {
			s.failExecution(ctx, e, err, started)
			return
		}

		e.RetryCount++
		delay := time.Duration(j.RetryDelayMinutes) * time.Minute
		e.Context.AppendLog("warning",
			fmt.Sprintf("Attempt %d failed: %v, retrying in %s", e.RetryCount, err, delay))
		s.persistExecution(ctx, e)
		s.log.Warn("job attempt failed",
			"job", j.Name,
			"execution", e.ExecutionID,
			"attempt", e.RetryCount,
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			s.failExecution(ctx, e, ctx.Err(), started)
			return
		}
	}
}

func (s *Service) runSync(ctx context.Context, j *ScheduledJob, params SyncParams) (*syncsvc.Result, error) {
	runCtx := ctx
	if j.TimeoutMinutes > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(j.TimeoutMinutes)*time.Minute)
		defer cancel()
	}

	result, err := s.runner.Sync(runCtx, params.Endpoints, syncsvc.Options{
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
	})
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("job timed out after %d minutes: %w", j.TimeoutMinutes, err)
	}
	return result, err
}

func (s *Service) completeExecution(ctx context.Context, e *Execution, j *ScheduledJob, result *syncsvc.Result, started time.Time) {
	completed := time.Now().UTC()
	duration := int(completed.Sub(started).Seconds())

	e.Status = StatusCompleted
	e.CompletedAt = &completed
	e.DurationSeconds = &duration
	e.RecordsProcessed = int(result.TotalRecords())
	e.RecordsInserted = int(result.TotalInserted())
	e.RecordsUpdated = int(result.TotalUpdated())
	e.RecordsSkipped = int(result.TotalSkipped())

	for kind, er := range result.Endpoints {
		e.Context.AppendLog("info", fmt.Sprintf(
			"%s: %d fetched, %d inserted, %d updated, %d skipped",
			kind, er.RecordsFetched, er.RecordsInserted, er.RecordsUpdated, er.RecordsSkipped))
	}
	e.Context.Result = &ResultInfo{
		CompletedAt:     &completed,
		DurationSeconds: duration,
		Totals: &Totals{
			Processed: e.RecordsProcessed,
			Inserted:  e.RecordsInserted,
			Updated:   e.RecordsUpdated,
			Skipped:   e.RecordsSkipped,
		},
	}
	e.Context.AppendLog("info", "Execution completed successfully")
	s.persistExecution(ctx, e)

	j.LastRun = &completed
	if j.Enabled && j.Recurrence != RecurrenceOnce {
		j.NextRun = NextRun(j.Recurrence, j.CronExpression, j.LastRun)
	}
	if err := s.repo.UpdateJob(ctx, j); err != nil {
		s.log.Error("advance job schedule", "job", j.ID, "error", err)
	}

	s.log.Info("job completed",
		"job", j.Name,
		"execution", e.ExecutionID,
		"duration_seconds", duration,
		"records", e.RecordsProcessed,
	)
}

// failExecution marks the run failed. next_run is deliberately left alone
// so the scheduler picks the job up again on its next cycle.
func (s *Service) failExecution(ctx context.Context, e *Execution, runErr error, started time.Time) {
	completed := time.Now().UTC()
	duration := int(completed.Sub(started).Seconds())
	msg := runErr.Error()

	e.Status = StatusFailed
	e.CompletedAt = &completed
	e.DurationSeconds = &duration
	e.ErrorMessage = &msg
	e.ErrorDetails = map[string]any{"exception": fmt.Sprintf("%T", runErr)}
	e.Context.Result = &ResultInfo{
		CompletedAt:     &completed,
		DurationSeconds: duration,
		Error:           msg,
	}
	e.Context.AppendLog("error", fmt.Sprintf("Execution failed: %v", runErr))
	s.persistExecution(ctx, e)

	s.log.Error("job failed",
		"execution", e.ExecutionID,
		"duration_seconds", duration,
		"error", runErr,
	)
}

func (s *Service) persistExecution(ctx context.Context, e *Execution) {
	if err := s.repo.UpdateExecution(ctx, e); err != nil {
		s.log.Error("update execution", "execution", e.ExecutionID, "error", err)
	}
}

// BuildSyncParams resolves a job type and config into concrete sync
// parameters. Unknown types fall back to a 7-day crash window.
func BuildSyncParams(t Type, cfg Config) SyncParams {
	today := time.Now().UTC().Format("2006-01-02")
	daysAgo := func(n int) string {
		return time.Now().UTC().AddDate(0, 0, -n).Format("2006-01-02")
	}

	switch t {
	case TypeFullRefresh:
		return SyncParams{
			Endpoints: endpointsFromConfig(cfg, crash.AllKinds()),
			Force:     true,
		}
	case TypeLast30DaysCrashes:
		return SyncParams{
			Endpoints: []crash.Kind{crash.KindCrashes},
			StartDate: daysAgo(30),
			EndDate:   today,
			Force:     true,
		}
	case TypeLast30DaysPeople:
		return SyncParams{
			Endpoints: []crash.Kind{crash.KindPeople},
			StartDate: daysAgo(30),
			EndDate:   today,
			Force:     true,
		}
	case TypeLast30DaysVehicles:
		return SyncParams{
			Endpoints: []crash.Kind{crash.KindVehicles},
			StartDate: daysAgo(30),
			EndDate:   today,
			Force:     true,
		}
	case TypeLast6MonthsFatalities:
		return SyncParams{
			Endpoints: []crash.Kind{crash.KindFatalities},
			StartDate: daysAgo(180),
			EndDate:   today,
			Force:     true,
		}
	case TypeCustom:
		params := SyncParams{
			Endpoints: endpointsFromConfig(cfg, []crash.Kind{crash.KindCrashes}),
			EndDate:   today,
			Force:     boolFromConfig(cfg, "force"),
		}
		if start, ok := cfg["start_date"].(string); ok && start != "" {
			params.StartDate = start
		} else if days := intFromConfig(cfg, "date_range_days"); days > 0 {
			params.StartDate = daysAgo(days)
		} else {
			params.StartDate = daysAgo(7)
		}
		if end, ok := cfg["end_date"].(string); ok && end != "" {
			params.EndDate = end
		}
		return params
	default:
		return SyncParams{
			Endpoints: []crash.Kind{crash.KindCrashes},
			StartDate: daysAgo(7),
			EndDate:   today,
			Force:     false,
		}
	}
}

func endpointsFromConfig(cfg Config, fallback []crash.Kind) []crash.Kind {
	raw, ok := cfg["endpoints"].([]any)
	if !ok || len(raw) == 0 {
		return fallback
	}
	var kinds []crash.Kind
	for _, v := range raw {
		name, ok := v.(string)
		if !ok {
			continue
		}
		if kind, ok := crash.ParseKind(name); ok {
			kinds = append(kinds, kind)
		}
	}
	if len(kinds) == 0 {
		return fallback
	}
	return kinds
}

func boolFromConfig(cfg Config, key string) bool {
	v, _ := cfg[key].(bool)
	return v
}

func intFromConfig(cfg Config, key string) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// DeletionResult reports the outcome of a table purge.
type DeletionResult struct {
	Table        string `json:"table"`
	RecordsCount int64  `json:"records_deleted"`
}

// DeleteTableData purges one crash table, optionally bounded by a date
// window, and records an audit row.
func (s *Service) DeleteTableData(ctx context.Context, table string, start, end *time.Time, deletedBy string) (*DeletionResult, error) {
	count, err := s.repo.PurgeTable(ctx, table, start, end)
	if err != nil {
		return nil, err
	}

	if deletedBy == "" {
		deletedBy = "api"
	}
	entry := &DeletionLog{
		TableName:    table,
		RecordsCount: count,
		StartDate:    start,
		EndDate:      end,
		DeletedBy:    deletedBy,
		DeletedAt:    time.Now().UTC(),
	}
	if err := s.repo.LogDeletion(ctx, entry); err != nil {
		s.log.Error("write deletion log", "table", table, "error", err)
	}

	s.log.Info("table data deleted", "table", table, "records", count, "by", deletedBy)
	return &DeletionResult{Table: table, RecordsCount: count}, nil
}
