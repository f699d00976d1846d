//GET    /api/v1/health                        # Health, storage driver, scheduler state
//POST   /api/v1/sync/trigger                  # Manual background sync
//GET    /api/v1/sync/status                   # Process-wide sync state
//POST   /api/v1/sync/test/{endpoint}          # Connectivity probe
//GET    /api/v1/sync/counts                   # Table row counts
//GET    /api/v1/sync/endpoints                # Syncable endpoints
//GET    /api/v1/jobs                          # List jobs
//POST   /api/v1/jobs                          # Create job
//GET    /api/v1/jobs/{id}                     # Get job
//PUT    /api/v1/jobs/{id}                     # Update job
//DELETE /api/v1/jobs/{id}                     # Delete job
//POST   /api/v1/jobs/{id}/execute             # Run job now
//GET    /api/v1/jobs/{id}/executions          # Executions of one job
//GET    /api/v1/jobs/executions/recent        # Recent executions
//GET    /api/v1/jobs/executions/{executionID} # One execution with context
//GET    /api/v1/jobs/summary                  # Aggregated counters
//DELETE /api/v1/data/{table}                  # Purge table data

package api

import (
	healthAPI "crashpipe/internal/app/server/api/http/health"
	jobsAPI "crashpipe/internal/app/server/api/http/jobs"
	"crashpipe/internal/app/server/api/http/middleware/logger"
	syncAPI "crashpipe/internal/app/server/api/http/sync"
	"crashpipe/internal/domain/job"
	"crashpipe/internal/domain/sync"
	"crashpipe/internal/infrastructure/storage"
	"crashpipe/internal/soda"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

// Dependencies are the wired services the API exposes.
type Dependencies struct {
	Store       storage.Store
	Client      *soda.Client
	SyncService *sync.Service
	SyncState   *sync.State
	SyncTracker *sync.Tracker
	JobService  *job.Service
	Scheduler   *job.Scheduler
}

type Handlers struct {
	Health *healthAPI.Handler
	Sync   *syncAPI.Handler
	Jobs   *jobsAPI.Handler
}

// New builds a *chi.Mux with every operation registered through huma.
func New(deps Dependencies, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Crashpipe API", "1.0.0")
	API := humachi.New(mux, config)

	h := handlers(deps, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)
	h.Jobs.SetupRoutes(API)

	return mux
}

func handlers(deps Dependencies, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := huma.Middlewares{loggerMW.Middleware()}

	return &Handlers{
		Health: healthAPI.NewHandler(deps.Store.Driver(), deps.Scheduler, log, middlewares),
		Sync: syncAPI.NewHandler(
			deps.SyncService, deps.Client, deps.Store, deps.SyncState, deps.SyncTracker, log, middlewares),
		Jobs: jobsAPI.NewHandler(deps.JobService, log, middlewares),
	}
}
