package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/repository"
)

func TestSaveCronJob_ListCronJobs_MarkCronJobRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := &repository.CronJob{Handle: "alice", Schedule: "0 9 * * *", Objective: "daily digest", Enabled: true}
	require.NoError(t, store.SaveCronJob(ctx, job))

	jobs, err := store.ListCronJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Nil(t, jobs[0].LastRunAt)

	ranAt := time.Now()
	require.NoError(t, store.MarkCronJobRun(ctx, job.ID, ranAt))

	jobs, err = store.ListCronJobs(ctx)
	require.NoError(t, err)
	require.NotNil(t, jobs[0].LastRunAt)

	require.NoError(t, store.DeleteCronJob(ctx, job.ID))
	jobs, err = store.ListCronJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}
