package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_DrainWaitsForTasks(t *testing.T) {
	tracker := NewTracker()
	release := make(chan struct{})
	done := make(chan struct{})

	tracker.Go(func(context.Context) {
		<-release
		close(done)
	})

	drained := make(chan error, 1)
	go func() { drained <- tracker.Drain(context.Background()) }()

	select {
	case <-drained:
		t.Fatal("drain returned before the task finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-drained:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("drain never returned")
	}
	<-done
}

func TestTracker_DrainCancelsOnExpiredContext(t *testing.T) {
	tracker := NewTracker()
	cancelled := make(chan struct{})

	tracker.Go(func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := tracker.Drain(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	select {
	case <-cancelled:
	case <-time.After(3 * time.Second):
		t.Fatal("task context was never cancelled")
	}
}

func TestTracker_DrainWithNoTasks(t *testing.T) {
	tracker := NewTracker()

	assert.NoError(t, tracker.Drain(context.Background()))
}
