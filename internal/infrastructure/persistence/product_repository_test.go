package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shopopti/backend/internal/domain/catalog"
	"github.com/shopopti/backend/internal/domain/extraction"
	"github.com/shopopti/backend/internal/domain/shared"
	"github.com/shopopti/backend/internal/infrastructure/persistence/models"
)

// setupCatalogTestDB creates an in-memory SQLite database for testing
func setupCatalogTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE imported_products (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			brand TEXT,
			sku TEXT NOT NULL,
			price NUMERIC NOT NULL,
			original_price NUMERIC,
			currency TEXT NOT NULL DEFAULT 'EUR',
			images TEXT DEFAULT '[]',
			videos TEXT DEFAULT '[]',
			variants TEXT DEFAULT '[]',
			reviews TEXT DEFAULT '[]',
			specifications TEXT DEFAULT '{}',
			shipping TEXT DEFAULT '{}',
			stock_status TEXT NOT NULL DEFAULT 'unknown',
			stock_quantity INTEGER,
			status TEXT NOT NULL,
			needs_review INTEGER NOT NULL DEFAULT 0,
			validation_score INTEGER NOT NULL DEFAULT 0,
			last_sync_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE product_sources (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL UNIQUE,
			source_platform TEXT NOT NULL,
			source_url TEXT NOT NULL,
			external_id TEXT,
			imported_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error
	require.NoError(t, err)

	return db
}

func storedProduct(url string) *catalog.ImportedProduct {
	qty := 12
	return &catalog.ImportedProduct{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      uuid.New(),
		Title:       "Wireless Earbuds Pro",
		Description: "Noise cancelling wireless earbuds with charging case.",
		Brand:       "SoundCore",
		SKU:         "SO-1A2B3C4D",
		Price:       decimal.NewFromFloat(49.99),
		Currency:    "EUR",
		Images:      []string{"https://cdn.example.com/earbuds-front.jpg"},
		Specifications: map[string]string{
			"Battery": "24h with case",
		},
		StockStatus:     extraction.StockStatusInStock,
		StockQuantity:   &qty,
		Status:          catalog.ProductStatusActive,
		ValidationScore: 95,
		Provenance: catalog.Provenance{
			SourcePlatform: extraction.PlatformAmazon,
			SourceURL:      url,
			ExternalID:     "B0EXAMPLE1",
			ImportedAt:     time.Now().UTC(),
		},
	}
}

func TestGormProductRepository_CreateAndFindByID(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	product := storedProduct("https://www.amazon.fr/dp/B0EXAMPLE1")
	require.NoError(t, repo.Create(ctx, product))

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.Title, found.Title)
	assert.True(t, product.Price.Equal(found.Price))
	assert.Equal(t, []string{"https://cdn.example.com/earbuds-front.jpg"}, found.Images)
	assert.Equal(t, "24h with case", found.Specifications["Battery"])
	require.NotNil(t, found.StockQuantity)
	assert.Equal(t, 12, *found.StockQuantity)

	// provenance rides along with the product
	assert.Equal(t, extraction.PlatformAmazon, found.Provenance.SourcePlatform)
	assert.Equal(t, "https://www.amazon.fr/dp/B0EXAMPLE1", found.Provenance.SourceURL)
	assert.Equal(t, "B0EXAMPLE1", found.Provenance.ExternalID)
}

func TestGormProductRepository_FindByIDNotFound(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormProductRepository_CreateIsAtomic(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	product := storedProduct("https://www.amazon.fr/dp/B0EXAMPLE1")

	// Occupy the provenance slot for this product id so the source insert
	// inside the transaction violates the unique constraint.
	conflict := models.ProductSourceModel{
		BaseModel:      models.BaseModel{ID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()},
		ProductID:      product.ID,
		SourcePlatform: "ebay",
		SourceURL:      "https://www.ebay.com/itm/123",
		ImportedAt:     time.Now(),
	}
	require.NoError(t, db.Create(&conflict).Error)

	err := repo.Create(ctx, product)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrPersistenceFailed)

	// the product row must have been rolled back with the failed source
	var count int64
	require.NoError(t, db.Model(&models.ImportedProductModel{}).Where("id = ?", product.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGormProductRepository_FindByIDs(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	first := storedProduct("https://www.amazon.fr/dp/B0FIRST001")
	second := storedProduct("https://www.amazon.fr/dp/B0SECOND02")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	found, err := repo.FindByIDs(ctx, []uuid.UUID{first.ID, second.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestGormProductRepository_FindStale(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	now := time.Now()

	neverSynced := storedProduct("https://www.amazon.fr/dp/B0NEVER001")
	require.NoError(t, repo.Create(ctx, neverSynced))

	old := storedProduct("https://www.amazon.fr/dp/B0OLDSYNC1")
	oldSync := now.Add(-24 * time.Hour)
	old.LastSyncAt = &oldSync
	require.NoError(t, repo.Create(ctx, old))

	fresh := storedProduct("https://www.amazon.fr/dp/B0FRESH001")
	freshSync := now.Add(-5 * time.Minute)
	fresh.LastSyncAt = &freshSync
	require.NoError(t, repo.Create(ctx, fresh))

	archived := storedProduct("https://www.amazon.fr/dp/B0ARCHIVE1")
	archived.Status = catalog.ProductStatusArchived
	require.NoError(t, repo.Create(ctx, archived))

	noURL := storedProduct("")
	require.NoError(t, repo.Create(ctx, noURL))

	stale, err := repo.FindStale(ctx, now.Add(-6*time.Hour), 50)
	require.NoError(t, err)
	require.Len(t, stale, 2)

	// never-synced products come first, then oldest sync
	assert.Equal(t, neverSynced.ID, stale[0].ID)
	assert.Equal(t, old.ID, stale[1].ID)

	limited, err := repo.FindStale(ctx, now.Add(-6*time.Hour), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormProductRepository_UpdateStock(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	product := storedProduct("https://www.amazon.fr/dp/B0EXAMPLE1")
	require.NoError(t, repo.Create(ctx, product))

	product.ApplyStockObservation(false, nil, decimal.Zero)
	product.Title = "mutated in memory only"
	require.NoError(t, repo.UpdateStock(ctx, product))

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.ProductStatusOutOfStock, found.Status)
	assert.Equal(t, extraction.StockStatusOutOfStock, found.StockStatus)
	require.NotNil(t, found.StockQuantity)
	assert.Zero(t, *found.StockQuantity)
	require.NotNil(t, found.LastSyncAt)

	// content columns are outside the reconciliation update
	assert.Equal(t, "Wireless Earbuds Pro", found.Title)
}

func TestGormProductRepository_UpdateStockNotFound(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)

	ghost := storedProduct("https://www.amazon.fr/dp/B0GHOST001")
	err := repo.UpdateStock(context.Background(), ghost)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
