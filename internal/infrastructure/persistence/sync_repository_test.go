package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shopopti/backend/internal/domain/shared"
	syncdomain "github.com/shopopti/backend/internal/domain/sync"
)

// setupSyncTestDB creates an in-memory SQLite database for testing
func setupSyncTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE stock_sync_jobs (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			completed_at DATETIME,
			status TEXT NOT NULL,
			result TEXT DEFAULT '{}',
			error_message TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE stock_sync_logs (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			job_id TEXT NOT NULL,
			previous_stock INTEGER,
			new_stock INTEGER,
			previous_price TEXT,
			new_price TEXT,
			changes TEXT DEFAULT '[]',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error
	require.NoError(t, err)

	return db
}

func TestGormSyncJobRepository_JobLifecycle(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncJobRepository(db)
	ctx := context.Background()

	job := syncdomain.NewJobRecord(uuid.New())
	require.NoError(t, repo.CreateJob(ctx, job))

	prev, next := 12, 0
	require.NoError(t, job.Complete(syncdomain.Result{
		PreviousStock: &prev,
		NewStock:      &next,
		Changes:       []string{"stock: 12 → 0"},
	}))
	require.NoError(t, repo.FinalizeJob(ctx, job))

	jobs, err := repo.FindJobsByProduct(ctx, job.ProductID, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, syncdomain.JobStatusCompleted, jobs[0].Status)
	require.NotNil(t, jobs[0].CompletedAt)
	require.NotNil(t, jobs[0].Result.PreviousStock)
	assert.Equal(t, 12, *jobs[0].Result.PreviousStock)
	assert.Equal(t, []string{"stock: 12 → 0"}, jobs[0].Result.Changes)
}

func TestGormSyncJobRepository_FinalizeRequiresTerminal(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncJobRepository(db)
	ctx := context.Background()

	job := syncdomain.NewJobRecord(uuid.New())
	require.NoError(t, repo.CreateJob(ctx, job))

	err := repo.FinalizeJob(ctx, job)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestGormSyncJobRepository_FinalizeIsWriteOnce(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncJobRepository(db)
	ctx := context.Background()

	job := syncdomain.NewJobRecord(uuid.New())
	require.NoError(t, repo.CreateJob(ctx, job))
	require.NoError(t, job.Fail("source unreachable: connection refused"))
	require.NoError(t, repo.FinalizeJob(ctx, job))

	// the stored row is already terminal, a second finalize must not land
	err := repo.FinalizeJob(ctx, job)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	jobs, err := repo.FindJobsByProduct(ctx, job.ProductID, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, syncdomain.JobStatusFailed, jobs[0].Status)
	assert.Equal(t, "source unreachable: connection refused", jobs[0].ErrorMessage)
}

func TestGormSyncJobRepository_FindRecentJobs(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncJobRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var last *syncdomain.JobRecord
	for i := 0; i < 5; i++ {
		job := syncdomain.NewJobRecord(uuid.New())
		job.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.CreateJob(ctx, job))
		last = job
	}

	jobs, err := repo.FindRecentJobs(ctx, 3)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, last.ID, jobs[0].ID)
}

func TestGormSyncJobRepository_AppendLog(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncJobRepository(db)
	ctx := context.Background()

	job := syncdomain.NewJobRecord(uuid.New())
	require.NoError(t, repo.CreateJob(ctx, job))

	prev, next := 5, 3
	entry := &syncdomain.LogEntry{
		ProductID:     job.ProductID,
		JobID:         job.ID,
		PreviousStock: &prev,
		NewStock:      &next,
		PreviousPrice: "49.99",
		NewPrice:      "39.99",
		Changes:       []string{"stock: 5 → 3", "price: 49.99 → 39.99"},
	}
	require.NoError(t, repo.AppendLog(ctx, entry))
	assert.NotEqual(t, uuid.Nil, entry.ID)
}
