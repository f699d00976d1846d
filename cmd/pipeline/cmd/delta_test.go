package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		start     string
		end       string
		days      int
		wantStart string
		wantEnd   string
	}{
		{
			name:      "trailing window fills both dates",
			days:      7,
			wantStart: "2026-03-03",
			wantEnd:   "2026-03-10",
		},
		{
			name:      "explicit start overrides the window",
			start:     "2024-01-01",
			days:      7,
			wantStart: "2024-01-01",
			wantEnd:   "2026-03-10",
		},
		{
			name:      "explicit dates win over everything",
			start:     "2024-01-01",
			end:       "2024-02-01",
			days:      30,
			wantStart: "2024-01-01",
			wantEnd:   "2024-02-01",
		},
		{
			name:      "wider window",
			days:      30,
			wantStart: "2026-02-08",
			wantEnd:   "2026-03-10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := deltaWindow(tt.start, tt.end, tt.days, now)

			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestSharedFlags(t *testing.T) {
	// Both subcommands share the window and batching flags through the
	// root command.
	for _, name := range []string{"endpoints", "batch-size", "start-date", "end-date"} {
		t.Run(name, func(t *testing.T) {
			require.NotNil(t, rootCmd.PersistentFlags().Lookup(name))
			assert.NotNil(t, deltaCmd.InheritedFlags().Lookup(name))
			assert.NotNil(t, initialLoadCmd.InheritedFlags().Lookup(name))
		})
	}
}
