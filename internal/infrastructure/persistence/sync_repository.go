package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopopti/backend/internal/domain/shared"
	syncdomain "github.com/shopopti/backend/internal/domain/sync"
	"github.com/shopopti/backend/internal/infrastructure/persistence/models"
)

// GormSyncJobRepository implements sync.JobRepository using GORM. Jobs and
// logs are append-only: finalization is the only update, and it may happen
// exactly once per record.
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// CreateJob writes a newly opened pending attempt
func (r *GormSyncJobRepository) CreateJob(ctx context.Context, job *syncdomain.JobRecord) error {
	var model models.StockSyncJobModel
	model.FromDomain(job)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistenceFailed, err)
	}
	return nil
}

// FinalizeJob writes the terminal state of an attempt. The guard on the
// stored status makes finalization idempotent-safe: a record already terminal
// in the database is never overwritten.
func (r *GormSyncJobRepository) FinalizeJob(ctx context.Context, job *syncdomain.JobRecord) error {
	if !job.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s is not terminal", shared.ErrInvalidState, job.ID)
	}

	var model models.StockSyncJobModel
	model.FromDomain(job)

	result := r.db.WithContext(ctx).
		Model(&models.StockSyncJobModel{}).
		Where("id = ? AND status = ?", job.ID, string(syncdomain.JobStatusPending)).
		Updates(map[string]any{
			"status":        model.Status,
			"completed_at":  model.CompletedAt,
			"result":        model.Result,
			"error_message": model.ErrorMessage,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistenceFailed, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrInvalidState
	}
	return nil
}

// AppendLog writes one drift journal entry
func (r *GormSyncJobRepository) AppendLog(ctx context.Context, entry *syncdomain.LogEntry) error {
	var model models.StockSyncLogModel
	model.FromDomain(entry)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistenceFailed, err)
	}
	return nil
}

// FindJobsByProduct returns a product's attempts, newest first
func (r *GormSyncJobRepository) FindJobsByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]*syncdomain.JobRecord, error) {
	var rows []models.StockSyncJobModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toJobRecords(rows), nil
}

// FindRecentJobs returns the most recent attempts across all products
func (r *GormSyncJobRepository) FindRecentJobs(ctx context.Context, limit int) ([]*syncdomain.JobRecord, error) {
	var rows []models.StockSyncJobModel
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toJobRecords(rows), nil
}

func toJobRecords(rows []models.StockSyncJobModel) []*syncdomain.JobRecord {
	records := make([]*syncdomain.JobRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].ToDomain())
	}
	return records
}

var _ syncdomain.JobRepository = (*GormSyncJobRepository)(nil)
