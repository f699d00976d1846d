package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crashpipe/internal/domain/job"
	"crashpipe/internal/infrastructure/storage/tables"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

const jobColumns = `id, name, description, job_type, enabled,
	COALESCE(config, '{}'::jsonb), recurrence_type, cron_expression,
	next_run, last_run, timeout_minutes, max_retries, retry_delay_minutes,
	created_by, created_at, updated_at`

const executionColumns = `e.id, e.execution_id, e.job_id, j.name,
	e.status, e.started_at, e.completed_at, e.duration_seconds,
	e.records_processed, e.records_inserted, e.records_updated, e.records_skipped,
	e.error_message, COALESCE(e.error_details, '{}'::jsonb), e.retry_count,
	COALESCE(e.execution_context, '{}'::jsonb), e.created_at`

type JobRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewJobRepository(pool *pgxpool.Pool, log *slog.Logger) *JobRepository {
	return &JobRepository{
		pool: pool,
		log:  log.With("component", "job_repository"),
	}
}

func (r *JobRepository) CreateJob(ctx context.Context, j *job.ScheduledJob) error {
	const query = `
		INSERT INTO scheduled_jobs (name, description, job_type, enabled, config,
		                            recurrence_type, cron_expression, next_run, last_run,
		                            timeout_minutes, max_retries, retry_delay_minutes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	cfg, err := json.Marshal(j.Config)
	if err != nil {
		return fmt.Errorf("marshal job config: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		j.Name, j.Description, j.Type, j.Enabled, cfg,
		j.Recurrence, j.CronExpression, j.NextRun, j.LastRun,
		j.TimeoutMinutes, j.MaxRetries, j.RetryDelayMinutes, j.CreatedBy,
	).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		r.log.Error("failed to create job", "name", j.Name, "error", err)
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *JobRepository) UpdateJob(ctx context.Context, j *job.ScheduledJob) error {
	const query = `
		UPDATE scheduled_jobs
		SET name = $1, description = $2, job_type = $3, enabled = $4, config = $5,
		    recurrence_type = $6, cron_expression = $7, next_run = $8, last_run = $9,
		    timeout_minutes = $10, max_retries = $11, retry_delay_minutes = $12,
		    updated_at = now()
		WHERE id = $13`

	cfg, err := json.Marshal(j.Config)
	if err != nil {
		return fmt.Errorf("marshal job config: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query,
		j.Name, j.Description, j.Type, j.Enabled, cfg,
		j.Recurrence, j.CronExpression, j.NextRun, j.LastRun,
		j.TimeoutMinutes, j.MaxRetries, j.RetryDelayMinutes, j.ID,
	)
	if err != nil {
		r.log.Error("failed to update job", "job", j.ID, "error", err)
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return job.ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) DeleteJob(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM scheduled_jobs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *JobRepository) GetJob(ctx context.Context, id int64) (*job.ScheduledJob, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM scheduled_jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (r *JobRepository) FindJobByType(ctx context.Context, t job.Type) (*job.ScheduledJob, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM scheduled_jobs WHERE job_type = $1 ORDER BY id LIMIT 1`, t)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (r *JobRepository) ListJobs(ctx context.Context, enabledOnly bool) ([]*job.ScheduledJob, error) {
	query := `SELECT ` + jobColumns + ` FROM scheduled_jobs`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *JobRepository) DueJobs(ctx context.Context, now time.Time) ([]*job.ScheduledJob, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM scheduled_jobs
		 WHERE enabled AND next_run IS NOT NULL AND next_run <= $1
		 ORDER BY next_run`, now)
	if err != nil {
		return nil, fmt.Errorf("due jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *JobRepository) CreateExecution(ctx context.Context, e *job.Execution) error {
	const query = `
		INSERT INTO job_executions (execution_id, job_id, status, retry_count, execution_context)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	execCtx, err := json.Marshal(e.Context)
	if err != nil {
		return fmt.Errorf("marshal execution context: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		e.ExecutionID, e.JobID, e.Status, e.RetryCount, execCtx,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		r.log.Error("failed to create execution", "execution", e.ExecutionID, "error", err)
		return fmt.Errorf("create execution: %w", err)
	}
	return nil
}

func (r *JobRepository) UpdateExecution(ctx context.Context, e *job.Execution) error {
	const query = `
		UPDATE job_executions
		SET status = $1, started_at = $2, completed_at = $3, duration_seconds = $4,
		    records_processed = $5, records_inserted = $6, records_updated = $7,
		    records_skipped = $8, error_message = $9, error_details = $10,
		    retry_count = $11, execution_context = $12
		WHERE id = $13`

	details, err := json.Marshal(e.ErrorDetails)
	if err != nil {
		return fmt.Errorf("marshal error details: %w", err)
	}
	execCtx, err := json.Marshal(e.Context)
	if err != nil {
		return fmt.Errorf("marshal execution context: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query,
		e.Status, e.StartedAt, e.CompletedAt, e.DurationSeconds,
		e.RecordsProcessed, e.RecordsInserted, e.RecordsUpdated,
		e.RecordsSkipped, e.ErrorMessage, details,
		e.RetryCount, execCtx, e.ID,
	)
	if err != nil {
		r.log.Error("failed to update execution", "execution", e.ExecutionID, "error", err)
		return fmt.Errorf("update execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return job.ErrExecutionNotFound
	}
	return nil
}

func (r *JobRepository) GetExecution(ctx context.Context, id int64) (*job.Execution, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+executionColumns+`
		 FROM job_executions e JOIN scheduled_jobs j ON j.id = e.job_id
		 WHERE e.id = $1`, id)
	e, err := scanExecution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *JobRepository) GetExecutionByIdentifier(ctx context.Context, executionID string) (*job.Execution, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+executionColumns+`
		 FROM job_executions e JOIN scheduled_jobs j ON j.id = e.job_id
		 WHERE e.execution_id = $1`, executionID)
	e, err := scanExecution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *JobRepository) ListExecutions(ctx context.Context, jobID int64, limit int) ([]*job.Execution, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+executionColumns+`
		 FROM job_executions e JOIN scheduled_jobs j ON j.id = e.job_id
		 WHERE ($1 = 0 OR e.job_id = $1)
		 ORDER BY e.created_at DESC
		 LIMIT $2`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []*job.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, e)
	}
	return executions, rows.Err()
}

func (r *JobRepository) HasRunningExecution(ctx context.Context, jobID int64) (bool, error) {
	var running bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM job_executions
			WHERE job_id = $1 AND status IN ('pending', 'running'))`,
		jobID).Scan(&running)
	if err != nil {
		return false, fmt.Errorf("check running execution: %w", err)
	}
	return running, nil
}

func (r *JobRepository) Summary(ctx context.Context) (*job.Summary, error) {
	var s job.Summary
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM scheduled_jobs),
			(SELECT COUNT(*) FROM scheduled_jobs WHERE enabled),
			COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('pending', 'running')),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			MAX(created_at),
			AVG(duration_seconds) FILTER (WHERE status = 'completed')
		FROM job_executions`).Scan(
		&s.TotalJobs, &s.EnabledJobs,
		&s.TotalExecutions, &s.RunningExecutions,
		&s.CompletedExecutions, &s.FailedExecutions,
		&s.LastExecutionAt, &s.AverageDurationSecs,
	)
	if err != nil {
		return nil, fmt.Errorf("job summary: %w", err)
	}
	return &s, nil
}

func (r *JobRepository) PurgeTable(ctx context.Context, table string, start, end *time.Time) (int64, error) {
	if !validPurgeTable(table) {
		return 0, job.ErrUnknownTable
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE ($1::timestamptz IS NULL OR crash_date >= $1)
		AND ($2::timestamptz IS NULL OR crash_date <= $2)`, table)
	tag, err := r.pool.Exec(ctx, query, start, end)
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func (r *JobRepository) LogDeletion(ctx context.Context, entry *job.DeletionLog) error {
	const query = `
		INSERT INTO data_deletion_logs (table_name, records_count, start_date, end_date, deleted_by, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		entry.TableName, entry.RecordsCount, entry.StartDate, entry.EndDate,
		entry.DeletedBy, entry.DeletedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("log deletion: %w", err)
	}
	return nil
}

func validPurgeTable(table string) bool {
	for _, t := range tables.CrashTables() {
		if t == table {
			return true
		}
	}
	return false
}

func scanJob(row pgx.Row) (*job.ScheduledJob, error) {
	var (
		j   job.ScheduledJob
		cfg []byte
	)
	err := row.Scan(
		&j.ID, &j.Name, &j.Description, &j.Type, &j.Enabled,
		&cfg, &j.Recurrence, &j.CronExpression,
		&j.NextRun, &j.LastRun, &j.TimeoutMinutes, &j.MaxRetries,
		&j.RetryDelayMinutes, &j.CreatedBy, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfg, &j.Config); err != nil {
		return nil, fmt.Errorf("unmarshal job config: %w", err)
	}
	return &j, nil
}

func scanJobs(rows pgx.Rows) ([]*job.ScheduledJob, error) {
	var jobs []*job.ScheduledJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanExecution(row pgx.Row) (*job.Execution, error) {
	var (
		e       job.Execution
		details []byte
		execCtx []byte
	)
	err := row.Scan(
		&e.ID, &e.ExecutionID, &e.JobID, &e.JobName,
		&e.Status, &e.StartedAt, &e.CompletedAt, &e.DurationSeconds,
		&e.RecordsProcessed, &e.RecordsInserted, &e.RecordsUpdated, &e.RecordsSkipped,
		&e.ErrorMessage, &details, &e.RetryCount,
		&execCtx, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(details, &e.ErrorDetails); err != nil {
		return nil, fmt.Errorf("unmarshal error details: %w", err)
	}
	if err := json.Unmarshal(execCtx, &e.Context); err != nil {
		return nil, fmt.Errorf("unmarshal execution context: %w", err)
	}
	return &e, nil
}
