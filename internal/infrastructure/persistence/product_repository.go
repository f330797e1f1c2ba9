package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopopti/backend/internal/domain/catalog"
	"github.com/shopopti/backend/internal/domain/shared"
	"github.com/shopopti/backend/internal/infrastructure/persistence/models"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// Create persists a product together with its provenance in one transaction.
func (r *GormProductRepository) Create(ctx context.Context, product *catalog.ImportedProduct) error {
	var model models.ImportedProductModel
	model.FromDomain(product)

	var source models.ProductSourceModel
	source.FromProvenance(product.ID, product.Provenance)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		return tx.Create(&source).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistenceFailed, err)
	}
	return nil
}

// FindByID finds a product with its provenance by id
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ImportedProduct, error) {
	var model models.ImportedProductModel
	if err := r.db.WithContext(ctx).
		Preload("Source").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds products by id; missing ids are simply absent from the result
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.ImportedProduct, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.ImportedProductModel
	if err := r.db.WithContext(ctx).
		Preload("Source").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]*catalog.ImportedProduct, 0, len(rows))
	for i := range rows {
		products = append(products, rows[i].ToDomain())
	}
	return products, nil
}

// FindStale returns products due for reconciliation: those with a
// re-visitable source whose last sync is unset or older than the cutoff.
// Ordered oldest-sync-first so starved products catch up.
func (r *GormProductRepository) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*catalog.ImportedProduct, error) {
	var rows []models.ImportedProductModel
	err := r.db.WithContext(ctx).
		Preload("Source").
		Joins("JOIN product_sources ON product_sources.product_id = imported_products.id").
		Where("product_sources.source_url <> ''").
		Where("imported_products.status <> ?", string(catalog.ProductStatusArchived)).
		Where("imported_products.last_sync_at IS NULL OR imported_products.last_sync_at < ?", cutoff).
		Order("imported_products.last_sync_at ASC NULLS FIRST").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	products := make([]*catalog.ImportedProduct, 0, len(rows))
	for i := range rows {
		products = append(products, rows[i].ToDomain())
	}
	return products, nil
}

// UpdateStock persists the reconciliation-owned fields only. Title, images
// and the other imported content columns are never part of this update.
func (r *GormProductRepository) UpdateStock(ctx context.Context, product *catalog.ImportedProduct) error {
	result := r.db.WithContext(ctx).
		Model(&models.ImportedProductModel{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"stock_status":   string(product.StockStatus),
			"stock_quantity": product.StockQuantity,
			"status":         string(product.Status),
			"price":          product.Price,
			"last_sync_at":   product.LastSyncAt,
			"updated_at":     product.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistenceFailed, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
