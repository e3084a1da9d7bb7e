package dispatcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskTracker_WaitReturnsOnceAllTasksComplete(t *testing.T) {
	tr := newTaskTracker()
	var ran int32
	for i := 0; i < 5; i++ {
		tr.track(context.Background(), func(ctx context.Context) {
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&ran, 1)
		})
	}
	require.NoError(t, tr.wait(time.Second))
	assert.Equal(t, int32(5), atomic.LoadInt32(&ran))
}

func TestTaskTracker_WaitTimesOut(t *testing.T) {
	tr := newTaskTracker()
	tr.track(context.Background(), func(ctx context.Context) {
		time.Sleep(200 * time.Millisecond)
	})
	err := tr.wait(10 * time.Millisecond)
	assert.Error(t, err)
}

func TestTaskTracker_ShutdownDropsNewTasks(t *testing.T) {
	tr := newTaskTracker()
	tr.shutdown()

	var ran int32
	tr.track(context.Background(), func(ctx context.Context) {
		atomic.AddInt32(&ran, 1)
	})
	require.NoError(t, tr.wait(100*time.Millisecond))
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran), "tasks submitted after shutdown must not run")
}
