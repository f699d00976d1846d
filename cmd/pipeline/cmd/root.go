package cmd

import (
	"fmt"
	"os"

	"crashpipe/internal/config"
	"crashpipe/internal/utils/logger"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var (
	cfg *config.Config
	log *slog.Logger

	endpoints []string
	batchSize int
	startDate string
	endDate   string
)

var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Crashpipe - Chicago traffic crash data loader",
	Long: `Crashpipe pulls the Traffic Crashes datasets from the Chicago Open
Data Portal and loads them into the local database.

Use "initial-load" for a full historical backfill and "delta" for a
trailing-window refresh.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	cfg = config.NewConfig()
	log = logger.New(cfg.Env)

	if batchSize > 0 {
		cfg.SODA.BatchSize = batchSize
	}
	return nil
}

func init() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().StringSliceVar(&endpoints, "endpoints", nil,
		"endpoints to sync (crashes, people, vehicles, fatalities); defaults to all")
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0,
		"records per batch, overrides SODA_BATCH_SIZE")
	rootCmd.PersistentFlags().StringVar(&startDate, "start-date", "",
		"inclusive window start, YYYY-MM-DD")
	rootCmd.PersistentFlags().StringVar(&endDate, "end-date", "",
		"inclusive window end, YYYY-MM-DD (defaults to today)")
}
