package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crashpipe/internal/app/server/api"
	"crashpipe/internal/config"
	"crashpipe/internal/domain/job"
	"crashpipe/internal/domain/sync"
	"crashpipe/internal/infrastructure/storage"
	"crashpipe/internal/soda"
	"crashpipe/internal/utils/logger"
)

func main() {
	conf := config.NewConfig()
	log := logger.New(conf.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, conf, log)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	client := soda.NewClient(conf, log)
	syncService := sync.NewService(client, store, conf.SODA.BatchSize, log)
	syncState := sync.NewState()
	syncTracker := sync.NewTracker()

	jobService := job.NewService(store, syncService, log)
	scheduler := job.NewScheduler(jobService, store, conf.Scheduler.CheckInterval, log)
	if err := scheduler.Start(ctx); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	mux := api.New(api.Dependencies{
		Store:       store,
		Client:      client,
		SyncService: syncService,
		SyncState:   syncState,
		SyncTracker: syncTracker,
		JobService:  jobService,
		Scheduler:   scheduler,
	}, log)

	server := &http.Server{
		Addr:    conf.Server.RunAddress,
		Handler: mux,
	}

	go func() {
		log.Info("server listening", "address", conf.Server.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}
	if err := syncTracker.Drain(shutdownCtx); err != nil {
		log.Error("manual sync drain", "error", err)
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.Error("scheduler shutdown", "error", err)
	}
	log.Info("stopped")
}
