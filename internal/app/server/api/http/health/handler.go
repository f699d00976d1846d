package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// SchedulerStatus reports whether the polling loop is alive.
type SchedulerStatus interface {
	IsRunning() bool
}

type Handler struct {
	driver     string
	scheduler  SchedulerStatus
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(driver string, scheduler SchedulerStatus, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		driver:     driver,
		scheduler:  scheduler,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(_ context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	return &Output{
		Body: Response{
			Status:    "OK",
			Database:  h.driver,
			Scheduler: h.scheduler.IsRunning(),
		},
	}, nil
}
