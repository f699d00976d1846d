package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"crashpipe/internal/domain/job"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreateJob(ctx context.Context, j *job.ScheduledJob) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

func (m *MockService) UpdateJob(ctx context.Context, id int64, apply func(*job.ScheduledJob)) (*job.ScheduledJob, error) {
	args := m.Called(ctx, id, apply)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.ScheduledJob), args.Error(1)
}

func (m *MockService) DeleteJob(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockService) GetJob(ctx context.Context, id int64) (*job.ScheduledJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.ScheduledJob), args.Error(1)
}

func (m *MockService) ListJobs(ctx context.Context, enabledOnly bool) ([]*job.ScheduledJob, error) {
	args := m.Called(ctx, enabledOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*job.ScheduledJob), args.Error(1)
}

func (m *MockService) Execute(ctx context.Context, jobID int64, force bool, override job.Config) (string, error) {
	args := m.Called(ctx, jobID, force, override)
	return args.String(0), args.Error(1)
}

func (m *MockService) ListExecutions(ctx context.Context, jobID int64, limit int) ([]*job.Execution, error) {
	args := m.Called(ctx, jobID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*job.Execution), args.Error(1)
}

func (m *MockService) GetExecution(ctx context.Context, executionID string) (*job.Execution, error) {
	args := m.Called(ctx, executionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Execution), args.Error(1)
}

func (m *MockService) Summary(ctx context.Context) (*job.Summary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Summary), args.Error(1)
}

func (m *MockService) DeleteTableData(ctx context.Context, table string, start, end *time.Time, deletedBy string) (*job.DeletionResult, error) {
	args := m.Called(ctx, table, start, end, deletedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.DeletionResult), args.Error(1)
}

func newTestHandler(svc *MockService) *Handler {
	return NewHandler(svc, slog.Default(), huma.Middlewares{})
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	require.Error(t, err)
	var statusErr huma.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, want, statusErr.GetStatus())
}

func TestHandler_createJob(t *testing.T) {
	// Arrange
	svc := new(MockService)
	svc.On("CreateJob", mock.Anything, mock.MatchedBy(func(j *job.ScheduledJob) bool {
		return j.Name == "Weekly refresh" &&
			j.Type == job.TypeCustom &&
			j.Recurrence == job.RecurrenceWeekly &&
			j.TimeoutMinutes == 45
	})).Return(nil)
	handler := newTestHandler(svc)

	input := &createJobInput{}
	input.Body = CreateJobRequest{
		Name:           "Weekly refresh",
		JobType:        "custom",
		Enabled:        true,
		RecurrenceType: "weekly",
		TimeoutMinutes: 45,
		Config:         map[string]any{"endpoints": []any{"crashes"}},
	}

	// Act
	output, err := handler.createJob(context.Background(), input)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Weekly refresh", output.Body.Name)
	svc.AssertExpectations(t)
}

func TestHandler_getJob(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockService)
		svc.On("GetJob", mock.Anything, int64(7)).
			Return(&job.ScheduledJob{ID: 7, Name: "Nightly"}, nil)
		handler := newTestHandler(svc)

		output, err := handler.getJob(context.Background(), &getJobInput{ID: 7})

		require.NoError(t, err)
		assert.Equal(t, int64(7), output.Body.ID)
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		svc := new(MockService)
		svc.On("GetJob", mock.Anything, int64(7)).Return(nil, job.ErrJobNotFound)
		handler := newTestHandler(svc)

		_, err := handler.getJob(context.Background(), &getJobInput{ID: 7})

		assertStatus(t, err, 404)
	})
}

func TestHandler_updateJob(t *testing.T) {
	t.Run("applies only the provided fields", func(t *testing.T) {
		current := &job.ScheduledJob{
			ID:             3,
			Name:           "Nightly",
			Enabled:        true,
			Recurrence:     job.RecurrenceDaily,
			TimeoutMinutes: 60,
		}
		svc := new(MockService)
		svc.On("UpdateJob", mock.Anything, int64(3), mock.Anything).
			Run(func(args mock.Arguments) {
				apply := args.Get(2).(func(*job.ScheduledJob))
				apply(current)
			}).
			Return(current, nil)
		handler := newTestHandler(svc)

		enabled := false
		timeout := 90
		input := &updateJobInput{ID: 3}
		input.Body = UpdateJobRequest{Enabled: &enabled, TimeoutMinutes: &timeout}

		output, err := handler.updateJob(context.Background(), input)

		require.NoError(t, err)
		assert.False(t, output.Body.Enabled)
		assert.Equal(t, 90, output.Body.TimeoutMinutes)
		// Untouched fields keep their values.
		assert.Equal(t, "Nightly", output.Body.Name)
		assert.Equal(t, job.RecurrenceDaily, output.Body.Recurrence)
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		svc := new(MockService)
		svc.On("UpdateJob", mock.Anything, int64(3), mock.Anything).Return(nil, job.ErrJobNotFound)
		handler := newTestHandler(svc)

		_, err := handler.updateJob(context.Background(), &updateJobInput{ID: 3})

		assertStatus(t, err, 404)
	})
}

func TestHandler_deleteJob(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := new(MockService)
		svc.On("DeleteJob", mock.Anything, int64(5)).Return(nil)
		handler := newTestHandler(svc)

		output, err := handler.deleteJob(context.Background(), &deleteJobInput{ID: 5})

		require.NoError(t, err)
		assert.Equal(t, "ok", output.Body.Status)
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		svc := new(MockService)
		svc.On("DeleteJob", mock.Anything, int64(5)).Return(job.ErrJobNotFound)
		handler := newTestHandler(svc)

		_, err := handler.deleteJob(context.Background(), &deleteJobInput{ID: 5})

		assertStatus(t, err, 404)
	})
}

func TestHandler_executeJob(t *testing.T) {
	t.Run("queues an execution", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Execute", mock.Anything, int64(2), true, job.Config(nil)).
			Return("exec_2_1700000000", nil)
		handler := newTestHandler(svc)

		input := &executeInput{ID: 2}
		input.Body.Force = true

		output, err := handler.executeJob(context.Background(), input)

		require.NoError(t, err)
		assert.Equal(t, "exec_2_1700000000", output.Body.ExecutionID)
		assert.Equal(t, "queued", output.Body.Status)
	})

	t.Run("already running maps to 409", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Execute", mock.Anything, int64(2), false, job.Config(nil)).
			Return("", job.ErrJobAlreadyRunning)
		handler := newTestHandler(svc)

		_, err := handler.executeJob(context.Background(), &executeInput{ID: 2})

		assertStatus(t, err, 409)
	})

	t.Run("unknown job maps to 404", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Execute", mock.Anything, int64(2), false, job.Config(nil)).
			Return("", job.ErrJobNotFound)
		handler := newTestHandler(svc)

		_, err := handler.executeJob(context.Background(), &executeInput{ID: 2})

		assertStatus(t, err, 404)
	})
}

func TestHandler_getExecution(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockService)
		svc.On("GetExecution", mock.Anything, "exec_1_1").
			Return(&job.Execution{ExecutionID: "exec_1_1", Status: job.StatusCompleted}, nil)
		handler := newTestHandler(svc)

		output, err := handler.getExecution(context.Background(), &getExecutionInput{ExecutionID: "exec_1_1"})

		require.NoError(t, err)
		assert.Equal(t, job.StatusCompleted, output.Body.Status)
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		svc := new(MockService)
		svc.On("GetExecution", mock.Anything, "exec_1_1").Return(nil, job.ErrExecutionNotFound)
		handler := newTestHandler(svc)

		_, err := handler.getExecution(context.Background(), &getExecutionInput{ExecutionID: "exec_1_1"})

		assertStatus(t, err, 404)
	})
}

func TestHandler_listJobs(t *testing.T) {
	svc := new(MockService)
	svc.On("ListJobs", mock.Anything, true).
		Return([]*job.ScheduledJob{{ID: 1}, {ID: 2}}, nil)
	handler := newTestHandler(svc)

	output, err := handler.listJobs(context.Background(), &listJobsInput{EnabledOnly: true})

	require.NoError(t, err)
	assert.Len(t, output.Body.Jobs, 2)
}

func TestHandler_recentExecutions(t *testing.T) {
	svc := new(MockService)
	svc.On("ListExecutions", mock.Anything, int64(0), 20).
		Return([]*job.Execution{{ExecutionID: "exec_1_1"}}, nil)
	handler := newTestHandler(svc)

	output, err := handler.recentExecutions(context.Background(), &recentExecutionsInput{Limit: 20})

	require.NoError(t, err)
	assert.Len(t, output.Body.Executions, 1)
}

func TestHandler_summary(t *testing.T) {
	svc := new(MockService)
	svc.On("Summary", mock.Anything).Return(&job.Summary{TotalJobs: 5, EnabledJobs: 4}, nil)
	handler := newTestHandler(svc)

	output, err := handler.summary(context.Background(), &summaryInput{})

	require.NoError(t, err)
	assert.Equal(t, int64(5), output.Body.TotalJobs)
}

func TestHandler_deleteData(t *testing.T) {
	t.Run("purges with a parsed window", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		svc := new(MockService)
		svc.On("DeleteTableData", mock.Anything, "crashes", &start, (*time.Time)(nil), "ops").
			Return(&job.DeletionResult{Table: "crashes", RecordsCount: 12}, nil)
		handler := newTestHandler(svc)

		input := &deleteDataInput{Table: "crashes", StartDate: "2024-01-01", DeletedBy: "ops"}

		output, err := handler.deleteData(context.Background(), input)

		require.NoError(t, err)
		assert.Equal(t, int64(12), output.Body.RecordsCount)
		svc.AssertExpectations(t)
	})

	t.Run("bad date maps to 422", func(t *testing.T) {
		handler := newTestHandler(new(MockService))

		_, err := handler.deleteData(context.Background(), &deleteDataInput{Table: "crashes", StartDate: "01/02/2024"})

		assertStatus(t, err, 422)
	})

	t.Run("unknown table maps to 422", func(t *testing.T) {
		svc := new(MockService)
		svc.On("DeleteTableData", mock.Anything, "scheduled_jobs", (*time.Time)(nil), (*time.Time)(nil), "").
			Return(nil, job.ErrUnknownTable)
		handler := newTestHandler(svc)

		_, err := handler.deleteData(context.Background(), &deleteDataInput{Table: "scheduled_jobs"})

		assertStatus(t, err, 422)
	})
}

func TestHandler_listJobs_ServiceError(t *testing.T) {
	svc := new(MockService)
	svc.On("ListJobs", mock.Anything, false).Return(nil, errors.New("db down"))
	handler := newTestHandler(svc)

	_, err := handler.listJobs(context.Background(), &listJobsInput{})

	assertStatus(t, err, 500)
}
