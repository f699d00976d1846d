package sync

import (
	"context"
	"errors"
	"time"

	"crashpipe/internal/domain/crash"
	"crashpipe/internal/domain/sync"
	"crashpipe/internal/soda"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Syncer runs a full sync pass. Implemented by the sync service.
type Syncer interface {
	Sync(ctx context.Context, kinds []crash.Kind, opts sync.Options) (*sync.Result, error)
}

// Sampler fetches a handful of raw records for connectivity tests.
type Sampler interface {
	FetchRecords(ctx context.Context, kind crash.Kind, opts soda.FetchOptions) ([]crash.RawRecord, error)
}

// Counter reports current table row counts.
type Counter interface {
	Counts(ctx context.Context) (map[string]int64, error)
}

type Handler struct {
	service    Syncer
	sampler    Sampler
	counter    Counter
	state      *sync.State
	tasks      *sync.Tracker
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service Syncer, sampler Sampler, counter Counter, state *sync.State, tasks *sync.Tracker, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		sampler:    sampler,
		counter:    counter,
		state:      state,
		tasks:      tasks,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.triggerOp(), h.trigger)
	huma.Register(api, h.statusOp(), h.status)
	huma.Register(api, h.testOp(), h.test)
	huma.Register(api, h.countsOp(), h.counts)
	huma.Register(api, h.endpointsOp(), h.endpoints)
}

func (h *Handler) trigger(_ context.Context, input *triggerInput) (*triggerOutput, error) {
	kinds, err := parseKinds(input.Body.Endpoints)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	if err := h.state.Begin("manual_sync"); err != nil {
		return nil, huma.Error409Conflict("sync already in progress")
	}

	syncID := uuid.New().String()
	opts := sync.Options{
		StartDate: input.Body.StartDate,
		EndDate:   input.Body.EndDate,
	}

	h.tasks.Go(func(taskCtx context.Context) {
		h.runSync(taskCtx, syncID, kinds, opts)
	})

	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return &triggerOutput{
		Body: TriggerResponse{
			SyncID:    syncID,
			Status:    "started",
			Endpoints: names,
			Message:   "sync started in background",
		},
	}, nil
}

// runSync drives the background sync and settles the state register.
func (h *Handler) runSync(ctx context.Context, syncID string, kinds []crash.Kind, opts sync.Options) {
	start := time.Now()
	log := h.log.With("sync_id", syncID)
	log.Info("manual sync started", "endpoints", kinds)

	result, err := h.service.Sync(ctx, kinds, opts)
	if err != nil {
		h.state.Fail(err, time.Since(start))
		log.Error("manual sync failed", "error", err)
		return
	}

	h.state.Complete(int(result.TotalRecords()), time.Since(start))
	log.Info("manual sync completed",
		"records", result.TotalRecords(),
		"duration", time.Since(start),
	)
}

func (h *Handler) status(_ context.Context, _ *statusInput) (*statusOutput, error) {
	return &statusOutput{Body: h.state.Snapshot()}, nil
}

func (h *Handler) test(ctx context.Context, input *testInput) (*testOutput, error) {
	kind, ok := crash.ParseKind(input.Endpoint)
	if !ok {
		return nil, huma.Error422UnprocessableEntity("unknown endpoint: " + input.Endpoint)
	}

	if err := h.state.BeginTest(); err != nil {
		return nil, huma.Error409Conflict("sync already in progress")
	}

	records, err := h.sampler.FetchRecords(ctx, kind, soda.FetchOptions{Limit: input.Limit})
	h.state.EndTest(err)
	if err != nil {
		return &testOutput{
			Body: TestResponse{
				Status:   "error",
				Endpoint: input.Endpoint,
				Error:    err.Error(),
			},
		}, nil
	}

	resp := TestResponse{
		Status:      "ok",
		Endpoint:    input.Endpoint,
		SampleCount: len(records),
	}
	if len(records) > 0 {
		resp.SampleRecord = records[0]
	}
	return &testOutput{Body: resp}, nil
}

func (h *Handler) counts(ctx context.Context, _ *countsInput) (*countsOutput, error) {
	counts, err := h.counter.Counts(ctx)
	if err != nil {
		h.log.Error("failed to read table counts", "error", err)
		return nil, huma.Error500InternalServerError("failed to read table counts")
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return &countsOutput{Body: CountsResponse{Counts: counts, Total: total}}, nil
}

func (h *Handler) endpoints(_ context.Context, _ *endpointsInput) (*endpointsOutput, error) {
	var infos []EndpointInfo
	for _, k := range crash.AllKinds() {
		infos = append(infos, EndpointInfo{
			Name:      string(k),
			Table:     k.Table(),
			DateField: k.DateField(),
		})
	}
	return &endpointsOutput{Body: EndpointsResponse{Endpoints: infos}}, nil
}

func parseKinds(names []string) ([]crash.Kind, error) {
	if len(names) == 0 {
		return crash.AllKinds(), nil
	}
	var kinds []crash.Kind
	for _, name := range names {
		kind, ok := crash.ParseKind(name)
		if !ok {
			return nil, errors.New("unknown endpoint: " + name)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
