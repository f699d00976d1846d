package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"crashpipe/internal/config"
	"crashpipe/internal/domain/crash"
	"crashpipe/internal/domain/sync"
	"crashpipe/internal/infrastructure/storage"
	"crashpipe/internal/soda"

	"github.com/spf13/cobra"
)

var initialLoadCmd = &cobra.Command{
	Use:   "initial-load",
	Short: "Full historical backfill",
	Long: `Loads every record from the configured start date (2017-01-01 by
default) up to today. Safe to re-run: records are upserted by natural key.`,
	RunE: runInitialLoad,
}

func runInitialLoad(cmd *cobra.Command, _ []string) error {
	start := startDate
	if start == "" {
		start = config.DefaultStartDate
	}
	end := endDate
	if end == "" {
		end = time.Now().UTC().Format("2006-01-02")
	}
	return runSync(cmd.Context(), start, end)
}

func runSync(parent context.Context, start, end string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kinds, err := resolveKinds()
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	client := soda.NewClient(cfg, log)
	service := sync.NewService(client, store, cfg.SODA.BatchSize, log)

	log.Info("sync starting", "endpoints", kinds, "start", start, "end", end)
	began := time.Now()

	result, err := service.Sync(ctx, kinds, sync.Options{
		StartDate: start,
		EndDate:   end,
		BatchCallback: func(er sync.EndpointResult) {
			log.Info("batch done",
				"endpoint", er.Name,
				"batches", er.BatchesProcessed,
				"fetched", er.RecordsFetched,
			)
		},
	})
	if err != nil {
		return err
	}

	log.Info("sync finished",
		"records", result.TotalRecords(),
		"inserted", result.TotalInserted(),
		"updated", result.TotalUpdated(),
		"skipped", result.TotalSkipped(),
		"duration", time.Since(began).Round(time.Second),
	)
	return nil
}

func resolveKinds() ([]crash.Kind, error) {
	if len(endpoints) == 0 {
		return crash.AllKinds(), nil
	}
	var kinds []crash.Kind
	for _, name := range endpoints {
		kind, ok := crash.ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown endpoint: %s", name)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func init() {
	rootCmd.AddCommand(initialLoadCmd)
}
