package cronjobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/repository"
)

func TestCreateJob_RejectsInvalidSchedule(t *testing.T) {
	svc := NewService(repository.NewInMemory())
	_, err := svc.CreateJob(context.Background(), "h1", "garbage", "check the backlog")
	assert.Error(t, err)
}

func TestCreateJob_RejectsEmptyObjective(t *testing.T) {
	svc := NewService(repository.NewInMemory())
	_, err := svc.CreateJob(context.Background(), "h1", "0 9 * * *", "  ")
	assert.Error(t, err)
}

func TestCreateJob_PersistsEnabledJob(t *testing.T) {
	svc := NewService(repository.NewInMemory())
	job, err := svc.CreateJob(context.Background(), "h1", "0 9 * * *", "check the backlog")
	require.NoError(t, err)
	assert.True(t, job.Enabled)
	assert.NotEmpty(t, job.ID)

	all, err := svc.ListJobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestActiveJobs_ExcludesDisabled(t *testing.T) {
	svc := NewService(repository.NewInMemory())
	job, err := svc.CreateJob(context.Background(), "h1", "0 9 * * *", "check the backlog")
	require.NoError(t, err)

	active, err := svc.ActiveJobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, svc.Disable(context.Background(), job.ID))
	active, err = svc.ActiveJobs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestListJobsForHandle_FiltersByHandle(t *testing.T) {
	svc := NewService(repository.NewInMemory())
	_, err := svc.CreateJob(context.Background(), "h1", "0 9 * * *", "a")
	require.NoError(t, err)
	_, err = svc.CreateJob(context.Background(), "h2", "0 10 * * *", "b")
	require.NoError(t, err)

	jobs, err := svc.ListJobsForHandle(context.Background(), "h1")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "h1", jobs[0].Handle)
}

func TestDisable_MissingJobReturnsNotFound(t *testing.T) {
	svc := NewService(repository.NewInMemory())
	err := svc.Disable(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteJob_RemovesFromList(t *testing.T) {
	svc := NewService(repository.NewInMemory())
	job, err := svc.CreateJob(context.Background(), "h1", "0 9 * * *", "a")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteJob(context.Background(), job.ID))
	all, err := svc.ListJobs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
