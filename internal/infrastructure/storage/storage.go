package storage

import (
	"context"

	"crashpipe/internal/config"
	"crashpipe/internal/domain/crash"
	"crashpipe/internal/domain/job"
	"crashpipe/internal/infrastructure/storage/postgres"
	"crashpipe/internal/infrastructure/storage/sqlite"

	"golang.org/x/exp/slog"
)

// Store is the full persistence surface: crash table upserts plus the job
// scheduler tables.
type Store interface {
	crash.Upserter
	job.Repository

	// Driver names the active backend, "postgres" or "sqlite".
	Driver() string
	Close() error
}

// Open connects to PostGIS when a database URI is configured and reachable.
// Otherwise it degrades to a local sqlite store without spatial columns, so
// the pipeline keeps working on a laptop with no database around.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (Store, error) {
	if cfg.DB.DatabaseURI != "" {
		st, err := postgres.New(ctx, cfg, log)
		if err == nil {
			log.Info("storage ready", "driver", st.Driver())
			return st, nil
		}
		log.Warn("postgres unavailable, falling back to local store", "error", err)
	}

	st, err := sqlite.New(cfg.DB.FallbackPath, log)
	if err != nil {
		return nil, err
	}
	log.Info("storage ready", "driver", st.Driver(), "path", cfg.DB.FallbackPath)
	return st, nil
}
