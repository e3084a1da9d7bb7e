package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// taskTracker implements spec §4.1's graceful-shutdown semantics:
// "dispatcher stops accepting new work, awaits tracked tasks up to a
// bounded timeout". Background curation, auto-corrections, and trace
// writes are all launched through it.
type taskTracker struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	draining bool
}

func newTaskTracker() *taskTracker {
	return &taskTracker{}
}

// track runs fn in its own goroutine unless the tracker is already
// draining, in which case it's dropped — cancellation of the
// graceful-shutdown barrier cancels pending but unstarted work.
func (t *taskTracker) track(ctx context.Context, fn func(context.Context)) {
	t.mu.Lock()
	if t.draining {
		t.mu.Unlock()
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		fn(ctx)
	}()
}

func (t *taskTracker) shutdown() {
	t.mu.Lock()
	t.draining = true
	t.mu.Unlock()
}

// wait blocks until every in-flight tracked task returns, or timeout
// elapses first.
func (t *taskTracker) wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("dispatcher: timed out waiting for %s for in-flight tasks to drain", timeout)
	}
}
