package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"crashpipe/internal/domain/crash"
	syncsvc "crashpipe/internal/domain/sync"
	"crashpipe/internal/soda"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) Sync(ctx context.Context, kinds []crash.Kind, opts syncsvc.Options) (*syncsvc.Result, error) {
	args := m.Called(ctx, kinds, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncsvc.Result), args.Error(1)
}

type MockSampler struct {
	mock.Mock
}

func (m *MockSampler) FetchRecords(ctx context.Context, kind crash.Kind, opts soda.FetchOptions) ([]crash.RawRecord, error) {
	args := m.Called(ctx, kind, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]crash.RawRecord), args.Error(1)
}

type MockCounter struct {
	mock.Mock
}

func (m *MockCounter) Counts(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func newTestHandler(syncer *MockSyncer, sampler *MockSampler, counter *MockCounter) (*Handler, *syncsvc.State) {
	state := syncsvc.NewState()
	tasks := syncsvc.NewTracker()
	return NewHandler(syncer, sampler, counter, state, tasks, slog.Default(), huma.Middlewares{}), state
}

func waitForIdle(t *testing.T, state *syncsvc.State) syncsvc.Snapshot {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		snap := state.Snapshot()
		if snap.Status == syncsvc.StatusIdle {
			return snap
		}
		select {
		case <-deadline:
			t.Fatalf("state never settled, status %s", snap.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHandler_trigger(t *testing.T) {
	t.Run("starts background sync for all endpoints", func(t *testing.T) {
		// Arrange
		syncer := new(MockSyncer)
		result := &syncsvc.Result{Endpoints: map[crash.Kind]*syncsvc.EndpointResult{
			crash.KindCrashes: {RecordsFetched: 10},
		}}
		syncer.On("Sync", mock.Anything, crash.AllKinds(), mock.Anything).Return(result, nil)
		handler, state := newTestHandler(syncer, new(MockSampler), new(MockCounter))

		// Act
		output, err := handler.trigger(context.Background(), &triggerInput{})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "started", output.Body.Status)
		assert.NotEmpty(t, output.Body.SyncID)
		assert.Equal(t, []string{"crashes", "people", "vehicles", "fatalities"}, output.Body.Endpoints)

		snap := waitForIdle(t, state)
		assert.Equal(t, 1, snap.Stats.SuccessfulSyncs)
		assert.Equal(t, 10, snap.Stats.TotalRecordsProcessed)
		syncer.AssertExpectations(t)
	})

	t.Run("passes the date window through", func(t *testing.T) {
		syncer := new(MockSyncer)
		syncer.On("Sync", mock.Anything, []crash.Kind{crash.KindCrashes},
			syncsvc.Options{StartDate: "2024-01-01", EndDate: "2024-01-31"}).
			Return(&syncsvc.Result{Endpoints: map[crash.Kind]*syncsvc.EndpointResult{}}, nil)
		handler, state := newTestHandler(syncer, new(MockSampler), new(MockCounter))

		input := &triggerInput{}
		input.Body.Endpoints = []string{"crashes"}
		input.Body.StartDate = "2024-01-01"
		input.Body.EndDate = "2024-01-31"

		_, err := handler.trigger(context.Background(), input)

		require.NoError(t, err)
		waitForIdle(t, state)
		syncer.AssertExpectations(t)
	})

	t.Run("rejects unknown endpoints", func(t *testing.T) {
		handler, _ := newTestHandler(new(MockSyncer), new(MockSampler), new(MockCounter))

		input := &triggerInput{}
		input.Body.Endpoints = []string{"bogus"}

		_, err := handler.trigger(context.Background(), input)

		require.Error(t, err)
		var statusErr huma.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 422, statusErr.GetStatus())
	})

	t.Run("rejects concurrent syncs", func(t *testing.T) {
		handler, state := newTestHandler(new(MockSyncer), new(MockSampler), new(MockCounter))
		require.NoError(t, state.Begin("manual_sync"))

		_, err := handler.trigger(context.Background(), &triggerInput{})

		require.Error(t, err)
		var statusErr huma.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 409, statusErr.GetStatus())
	})

	t.Run("shutdown drain awaits the background sync", func(t *testing.T) {
		release := make(chan struct{})
		syncer := new(MockSyncer)
		result := &syncsvc.Result{Endpoints: map[crash.Kind]*syncsvc.EndpointResult{
			crash.KindCrashes: {RecordsFetched: 4},
		}}
		syncer.On("Sync", mock.Anything, mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { <-release }).
			Return(result, nil)
		handler, state := newTestHandler(syncer, new(MockSampler), new(MockCounter))

		_, err := handler.trigger(context.Background(), &triggerInput{})
		require.NoError(t, err)

		drained := make(chan error, 1)
		go func() { drained <- handler.tasks.Drain(context.Background()) }()

		select {
		case <-drained:
			t.Fatal("drain returned while the sync was still running")
		case <-time.After(50 * time.Millisecond):
		}

		close(release)
		select {
		case err := <-drained:
			require.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("drain never returned")
		}

		// Drain returning means the register has already settled.
		assert.Equal(t, 1, state.Snapshot().Stats.SuccessfulSyncs)
	})

	t.Run("failed sync settles the register with the error", func(t *testing.T) {
		syncer := new(MockSyncer)
		syncer.On("Sync", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("portal unreachable"))
		handler, state := newTestHandler(syncer, new(MockSampler), new(MockCounter))

		_, err := handler.trigger(context.Background(), &triggerInput{})
		require.NoError(t, err)

		snap := waitForIdle(t, state)
		assert.Equal(t, 1, snap.Stats.FailedSyncs)
		assert.Equal(t, "portal unreachable", snap.Stats.LastError)
	})
}

func TestHandler_status(t *testing.T) {
	handler, state := newTestHandler(new(MockSyncer), new(MockSampler), new(MockCounter))
	require.NoError(t, state.Begin("manual_sync"))

	output, err := handler.status(context.Background(), &statusInput{})

	require.NoError(t, err)
	assert.Equal(t, syncsvc.StatusRunning, output.Body.Status)
	assert.Equal(t, "manual_sync", output.Body.CurrentOperation)
}

func TestHandler_test(t *testing.T) {
	t.Run("returns a sample record", func(t *testing.T) {
		sampler := new(MockSampler)
		sampler.On("FetchRecords", mock.Anything, crash.KindCrashes, soda.FetchOptions{Limit: 5}).
			Return([]crash.RawRecord{{"crash_record_id": "abc"}}, nil)
		handler, state := newTestHandler(new(MockSyncer), sampler, new(MockCounter))

		output, err := handler.test(context.Background(), &testInput{Endpoint: "crashes", Limit: 5})

		require.NoError(t, err)
		assert.Equal(t, "ok", output.Body.Status)
		assert.Equal(t, 1, output.Body.SampleCount)
		assert.Equal(t, "abc", output.Body.SampleRecord["crash_record_id"])
		assert.Equal(t, syncsvc.StatusIdle, state.Snapshot().Status)
		sampler.AssertExpectations(t)
	})

	t.Run("fetch failure is reported in the body", func(t *testing.T) {
		sampler := new(MockSampler)
		sampler.On("FetchRecords", mock.Anything, crash.KindPeople, mock.Anything).
			Return(nil, errors.New("timeout"))
		handler, state := newTestHandler(new(MockSyncer), sampler, new(MockCounter))

		output, err := handler.test(context.Background(), &testInput{Endpoint: "people", Limit: 5})

		require.NoError(t, err)
		assert.Equal(t, "error", output.Body.Status)
		assert.Equal(t, "timeout", output.Body.Error)
		assert.Equal(t, syncsvc.StatusIdle, state.Snapshot().Status)
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		handler, _ := newTestHandler(new(MockSyncer), new(MockSampler), new(MockCounter))

		_, err := handler.test(context.Background(), &testInput{Endpoint: "bogus", Limit: 5})

		require.Error(t, err)
		var statusErr huma.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 422, statusErr.GetStatus())
	})

	t.Run("busy register blocks the probe", func(t *testing.T) {
		handler, state := newTestHandler(new(MockSyncer), new(MockSampler), new(MockCounter))
		require.NoError(t, state.Begin("manual_sync"))

		_, err := handler.test(context.Background(), &testInput{Endpoint: "crashes", Limit: 5})

		require.Error(t, err)
		var statusErr huma.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 409, statusErr.GetStatus())
	})
}

func TestHandler_counts(t *testing.T) {
	counter := new(MockCounter)
	counter.On("Counts", mock.Anything).Return(map[string]int64{
		"crashes":      100,
		"crash_people": 250,
	}, nil)
	handler, _ := newTestHandler(new(MockSyncer), new(MockSampler), counter)

	output, err := handler.counts(context.Background(), &countsInput{})

	require.NoError(t, err)
	assert.Equal(t, int64(350), output.Body.Total)
	assert.Equal(t, int64(100), output.Body.Counts["crashes"])
}

func TestHandler_endpoints(t *testing.T) {
	handler, _ := newTestHandler(new(MockSyncer), new(MockSampler), new(MockCounter))

	output, err := handler.endpoints(context.Background(), &endpointsInput{})

	require.NoError(t, err)
	require.Len(t, output.Body.Endpoints, 4)
	assert.Equal(t, EndpointInfo{Name: "crashes", Table: "crashes", DateField: "crash_date"}, output.Body.Endpoints[0])
	assert.Equal(t, EndpointInfo{Name: "fatalities", Table: "vision_zero_fatalities", DateField: "crash_date"}, output.Body.Endpoints[3])
}
