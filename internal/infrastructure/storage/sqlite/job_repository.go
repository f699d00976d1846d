package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crashpipe/internal/domain/job"

	"github.com/goccy/go-json"
)

const jobCols = `id, name, description, job_type, enabled, config,
	recurrence_type, cron_expression, next_run, last_run,
	timeout_minutes, max_retries, retry_delay_minutes,
	created_by, created_at, updated_at`

const execCols = `e.id, e.execution_id, e.job_id, j.name,
	e.status, e.started_at, e.completed_at, e.duration_seconds,
	e.records_processed, e.records_inserted, e.records_updated, e.records_skipped,
	e.error_message, e.error_details, e.retry_count, e.execution_context, e.created_at`

func (s *Storage) CreateJob(ctx context.Context, j *job.ScheduledJob) error {
	cfg, err := json.Marshal(j.Config)
	if err != nil {
		return fmt.Errorf("marshal job config: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_jobs (name, description, job_type, enabled, config,
		                            recurrence_type, cron_expression, next_run, last_run,
		                            timeout_minutes, max_retries, retry_delay_minutes,
		                            created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.Name, j.Description, j.Type, j.Enabled, string(cfg),
		j.Recurrence, j.CronExpression, j.NextRun, j.LastRun,
		j.TimeoutMinutes, j.MaxRetries, j.RetryDelayMinutes,
		j.CreatedBy, now, now,
	)
	if err != nil {
		s.log.Error("failed to create job", "name", j.Name, "error", err)
		return fmt.Errorf("create job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("job insert id: %w", err)
	}
	j.ID = id
	j.CreatedAt = now
	j.UpdatedAt = now
	return nil
}

func (s *Storage) UpdateJob(ctx context.Context, j *job.ScheduledJob) error {
	cfg, err := json.Marshal(j.Config)
	if err != nil {
		return fmt.Errorf("marshal job config: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_jobs
		SET name = ?, description = ?, job_type = ?, enabled = ?, config = ?,
		    recurrence_type = ?, cron_expression = ?, next_run = ?, last_run = ?,
		    timeout_minutes = ?, max_retries = ?, retry_delay_minutes = ?, updated_at = ?
		WHERE id = ?`,
		j.Name, j.Description, j.Type, j.Enabled, string(cfg),
		j.Recurrence, j.CronExpression, j.NextRun, j.LastRun,
		j.TimeoutMinutes, j.MaxRetries, j.RetryDelayMinutes, now, j.ID,
	)
	if err != nil {
		s.log.Error("failed to update job", "job", j.ID, "error", err)
		return fmt.Errorf("update job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return job.ErrJobNotFound
	}
	j.UpdatedAt = now
	return nil
}

func (s *Storage) DeleteJob(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Storage) GetJob(ctx context.Context, id int64) (*job.ScheduledJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobCols+` FROM scheduled_jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (s *Storage) FindJobByType(ctx context.Context, t job.Type) (*job.ScheduledJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobCols+` FROM scheduled_jobs WHERE job_type = ? ORDER BY id LIMIT 1`, t)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (s *Storage) ListJobs(ctx context.Context, enabledOnly bool) ([]*job.ScheduledJob, error) {
	query := `SELECT ` + jobCols + ` FROM scheduled_jobs`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (s *Storage) DueJobs(ctx context.Context, now time.Time) ([]*job.ScheduledJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobCols+` FROM scheduled_jobs
		 WHERE enabled AND next_run IS NOT NULL AND next_run <= ?
		 ORDER BY next_run`, now)
	if err != nil {
		return nil, fmt.Errorf("due jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (s *Storage) CreateExecution(ctx context.Context, e *job.Execution) error {
	execCtx, err := json.Marshal(e.Context)
	if err != nil {
		return fmt.Errorf("marshal execution context: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO job_executions (execution_id, job_id, status, retry_count, execution_context, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ExecutionID, e.JobID, e.Status, e.RetryCount, string(execCtx), now,
	)
	if err != nil {
		s.log.Error("failed to create execution", "execution", e.ExecutionID, "error", err)
		return fmt.Errorf("create execution: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("execution insert id: %w", err)
	}
	e.ID = id
	e.CreatedAt = now
	return nil
}

func (s *Storage) UpdateExecution(ctx context.Context, e *job.Execution) error {
	details, err := json.Marshal(e.ErrorDetails)
	if err != nil {
		return fmt.Errorf("marshal error details: %w", err)
	}
	execCtx, err := json.Marshal(e.Context)
	if err != nil {
		return fmt.Errorf("marshal execution context: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE job_executions
		SET status = ?, started_at = ?, completed_at = ?, duration_seconds = ?,
		    records_processed = ?, records_inserted = ?, records_updated = ?,
		    records_skipped = ?, error_message = ?, error_details = ?,
		    retry_count = ?, execution_context = ?
		WHERE id = ?`,
		e.Status, e.StartedAt, e.CompletedAt, e.DurationSeconds,
		e.RecordsProcessed, e.RecordsInserted, e.RecordsUpdated,
		e.RecordsSkipped, e.ErrorMessage, string(details),
		e.RetryCount, string(execCtx), e.ID,
	)
	if err != nil {
		s.log.Error("failed to update execution", "execution", e.ExecutionID, "error", err)
		return fmt.Errorf("update execution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return job.ErrExecutionNotFound
	}
	return nil
}

func (s *Storage) GetExecution(ctx context.Context, id int64) (*job.Execution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+execCols+`
		 FROM job_executions e JOIN scheduled_jobs j ON j.id = e.job_id
		 WHERE e.id = ?`, id)
	e, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (s *Storage) GetExecutionByIdentifier(ctx context.Context, executionID string) (*job.Execution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+execCols+`
		 FROM job_executions e JOIN scheduled_jobs j ON j.id = e.job_id
		 WHERE e.execution_id = ?`, executionID)
	e, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (s *Storage) ListExecutions(ctx context.Context, jobID int64, limit int) ([]*job.Execution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+execCols+`
		 FROM job_executions e JOIN scheduled_jobs j ON j.id = e.job_id
		 WHERE (? = 0 OR e.job_id = ?)
		 ORDER BY e.created_at DESC
		 LIMIT ?`, jobID, jobID, limit)
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

func (s *Storage) HasRunningExecution(ctx context.Context, jobID int64) (bool, error) {
	var running bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM job_executions
			WHERE job_id = ? AND status IN ('pending', 'running'))`,
		jobID).Scan(&running)
	if err != nil {
		return false, fmt.Errorf("check running execution: %w", err)
	}
	return running, nil
}

func (s *Storage) Summary(ctx context.Context) (*job.Summary, error) {
	var sum job.Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM scheduled_jobs),
			(SELECT COUNT(*) FROM scheduled_jobs WHERE enabled),
			COUNT(*),
			COUNT(CASE WHEN status IN ('pending', 'running') THEN 1 END),
			COUNT(CASE WHEN status = 'completed' THEN 1 END),
			COUNT(CASE WHEN status = 'failed' THEN 1 END)
		FROM job_executions`).Scan(
		&sum.TotalJobs, &sum.EnabledJobs,
		&sum.TotalExecutions, &sum.RunningExecutions,
		&sum.CompletedExecutions, &sum.FailedExecutions,
	)
	if err != nil {
		return nil, fmt.Errorf("job summary: %w", err)
	}

	var last sql.NullTime
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at FROM job_executions ORDER BY created_at DESC LIMIT 1`).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("last execution: %w", err)
	}
	if last.Valid {
		sum.LastExecutionAt = &last.Time
	}

	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT AVG(duration_seconds) FROM job_executions WHERE status = 'completed'`).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("average duration: %w", err)
	}
	if avg.Valid {
		sum.AverageDurationSecs = &avg.Float64
	}
	return &sum, nil
}

func (s *Storage) PurgeTable(ctx context.Context, table string, start, end *time.Time) (int64, error) {
	if !validPurgeTable(table) {
		return 0, job.ErrUnknownTable
	}

	query := "DELETE FROM " + table + " WHERE 1=1"
	var args []any
	if start != nil {
		query += " AND crash_date >= ?"
		args = append(args, *start)
	}
	if end != nil {
		query += " AND crash_date <= ?"
		args = append(args, *end)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", table, err)
	}
	return res.RowsAffected()
}

func (s *Storage) LogDeletion(ctx context.Context, entry *job.DeletionLog) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO data_deletion_logs (table_name, records_count, start_date, end_date, deleted_by, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.TableName, entry.RecordsCount, entry.StartDate, entry.EndDate,
		entry.DeletedBy, entry.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("log deletion: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*job.ScheduledJob, error) {
	var (
		j       job.ScheduledJob
		cfg     string
		nextRun sql.NullTime
		lastRun sql.NullTime
	)
	err := row.Scan(
		&j.ID, &j.Name, &j.Description, &j.Type, &j.Enabled, &cfg,
		&j.Recurrence, &j.CronExpression, &nextRun, &lastRun,
		&j.TimeoutMinutes, &j.MaxRetries, &j.RetryDelayMinutes,
		&j.CreatedBy, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if nextRun.Valid {
		j.NextRun = &nextRun.Time
	}
	if lastRun.Valid {
		j.LastRun = &lastRun.Time
	}
	if err := json.Unmarshal([]byte(cfg), &j.Config); err != nil {
		return nil, fmt.Errorf("unmarshal job config: %w", err)
	}
	return &j, nil
}

func scanJobs(rows *sql.Rows) ([]*job.ScheduledJob, error) {
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

func scanExecution(row rowScanner) (*job.Execution, error) {
	var (
		e         job.Execution
		startedAt sql.NullTime
		completed sql.NullTime
		duration  sql.NullInt64
		errMsg    sql.NullString
		details   string
		execCtx   string
	)
	err := row.Scan(
		&e.ID, &e.ExecutionID, &e.JobID, &e.JobName,
		&e.Status, &startedAt, &completed, &duration,
		&e.RecordsProcessed, &e.RecordsInserted, &e.RecordsUpdated, &e.RecordsSkipped,
		&errMsg, &details, &e.RetryCount, &execCtx, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		e.StartedAt = &startedAt.Time
	}
	if completed.Valid {
		e.CompletedAt = &completed.Time
	}
	if duration.Valid {
		d := int(duration.Int64)
		e.DurationSeconds = &d
	}
	if errMsg.Valid {
		e.ErrorMessage = &errMsg.String
	}
	if err := json.Unmarshal([]byte(details), &e.ErrorDetails); err != nil {
		return nil, fmt.Errorf("unmarshal error details: %w", err)
	}
	if err := json.Unmarshal([]byte(execCtx), &e.Context); err != nil {
		return nil, fmt.Errorf("unmarshal execution context: %w", err)
	}
	return &e, nil
}

func validPurgeTable(table string) bool {
	switch table {
	case "crashes", "crash_people", "crash_vehicles", "vision_zero_fatalities":
		return true
	}
	return false
}
