package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/shopopti/backend/internal/domain/shared"
	syncdomain "github.com/shopopti/backend/internal/domain/sync"
)

// newMockSyncJobRepository creates a GormSyncJobRepository backed by a mocked
// SQL connection, for asserting on the exact statements the repository issues.
func newMockSyncJobRepository(t *testing.T) (*GormSyncJobRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormSyncJobRepository(gormDB), mock, mockDB
}

func TestGormSyncJobRepository_CreateJob_DBError(t *testing.T) {
	repo, mock, mockDB := newMockSyncJobRepository(t)
	defer mockDB.Close()

	mock.ExpectExec(`INSERT INTO "stock_sync_jobs"`).
		WillReturnError(errors.New("connection reset"))

	job := syncdomain.NewJobRecord(uuid.New())
	err := repo.CreateJob(context.Background(), job)

	assert.ErrorIs(t, err, shared.ErrPersistenceFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSyncJobRepository_FinalizeJob_GuardsOnPendingStatus(t *testing.T) {
	repo, mock, mockDB := newMockSyncJobRepository(t)
	defer mockDB.Close()

	job := syncdomain.NewJobRecord(uuid.New())
	require.NoError(t, job.Fail("source unreachable"))

	mock.ExpectExec(`UPDATE "stock_sync_jobs" SET .* WHERE id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.FinalizeJob(context.Background(), job)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSyncJobRepository_FinalizeJob_AlreadyTerminalRow(t *testing.T) {
	repo, mock, mockDB := newMockSyncJobRepository(t)
	defer mockDB.Close()

	job := syncdomain.NewJobRecord(uuid.New())
	require.NoError(t, job.Complete(syncdomain.Result{}))

	// No row is still pending, so the guarded update touches nothing.
	mock.ExpectExec(`UPDATE "stock_sync_jobs" SET .* WHERE id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.FinalizeJob(context.Background(), job)

	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSyncJobRepository_AppendLog_DBError(t *testing.T) {
	repo, mock, mockDB := newMockSyncJobRepository(t)
	defer mockDB.Close()

	mock.ExpectExec(`INSERT INTO "stock_sync_logs"`).
		WillReturnError(errors.New("disk full"))

	entry := &syncdomain.LogEntry{
		ProductID: uuid.New(),
		JobID:     uuid.New(),
		Changes:   []string{"stock: 12 → 0"},
	}
	err := repo.AppendLog(context.Background(), entry)

	assert.ErrorIs(t, err, shared.ErrPersistenceFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
