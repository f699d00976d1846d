package sync

import (
	"context"
	sysync "sync"
)

// Tracker owns background sync tasks so shutdown can await them. Manual
// syncs triggered over HTTP run through it instead of bare goroutines;
// scheduled jobs have their own tracking in the job service.
type Tracker struct {
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sysync.WaitGroup
}

func NewTracker() *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Go runs fn in a tracked goroutine bound to the tracker's lifetime.
func (t *Tracker) Go(fn func(context.Context)) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn(t.baseCtx)
	}()
}

// Drain waits for all in-flight tasks to finish. If the context expires
// first the remaining tasks are cancelled.
func (t *Tracker) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.cancel()
		return ctx.Err()
	}
}
