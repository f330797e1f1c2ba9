package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopopti/backend/internal/domain/extraction"
	"github.com/shopopti/backend/internal/domain/shared"
)

func activeProduct() *ImportedProduct {
	qty := 12
	return &ImportedProduct{
		BaseEntity:    shared.NewBaseEntity(),
		Title:         "Casque Bluetooth X200",
		Price:         decimal.NewFromFloat(89.99),
		Currency:      "EUR",
		Status:        ProductStatusActive,
		StockStatus:   extraction.StockStatusInStock,
		StockQuantity: &qty,
		Provenance: Provenance{
			SourcePlatform: extraction.PlatformAmazon,
			SourceURL:      "https://www.amazon.fr/dp/B000000000",
		},
	}
}

func TestApplyStockObservationOutOfStock(t *testing.T) {
	product := activeProduct()

	changes := product.ApplyStockObservation(false, nil, decimal.Zero)

	assert.Equal(t, ProductStatusOutOfStock, product.Status)
	assert.Equal(t, extraction.StockStatusOutOfStock, product.StockStatus)
	require.NotNil(t, product.StockQuantity)
	assert.Equal(t, 0, *product.StockQuantity)
	assert.Contains(t, changes, "status: active → out_of_stock")
	assert.Contains(t, changes, "stock: 12 → 0")
	assert.NotNil(t, product.LastSyncAt)
}

func TestApplyStockObservationBackInStock(t *testing.T) {
	product := activeProduct()
	product.Status = ProductStatusOutOfStock
	product.StockStatus = extraction.StockStatusOutOfStock

	changes := product.ApplyStockObservation(true, nil, decimal.Zero)

	assert.Equal(t, ProductStatusActive, product.Status)
	assert.Equal(t, extraction.StockStatusInStock, product.StockStatus)
	assert.Contains(t, changes, "stock: back in stock")
}

func TestApplyStockObservationQuantityDrift(t *testing.T) {
	product := activeProduct()
	three := 3

	changes := product.ApplyStockObservation(true, &three, decimal.Zero)

	require.NotNil(t, product.StockQuantity)
	assert.Equal(t, 3, *product.StockQuantity)
	assert.Equal(t, []string{"stock: 12 → 3"}, changes)
}

func TestApplyStockObservationPriceDrift(t *testing.T) {
	product := activeProduct()

	changes := product.ApplyStockObservation(true, nil, decimal.NewFromFloat(79.99))

	assert.Equal(t, "79.99", product.Price.StringFixed(2))
	assert.Equal(t, []string{"price: 89.99 → 79.99"}, changes)
}

func TestApplyStockObservationNoDrift(t *testing.T) {
	product := activeProduct()
	qty := 12

	changes := product.ApplyStockObservation(true, &qty, decimal.NewFromFloat(89.99))

	assert.Empty(t, changes)
	// LastSyncAt advances even when nothing drifted.
	assert.NotNil(t, product.LastSyncAt)
}

func TestApplyStockObservationNeverTouchesContent(t *testing.T) {
	product := activeProduct()
	product.Images = []string{"https://a/1.jpg"}
	product.Variants = []extraction.Variant{{ID: "v1"}}

	product.ApplyStockObservation(false, nil, decimal.NewFromFloat(10))

	assert.Equal(t, "Casque Bluetooth X200", product.Title)
	assert.Equal(t, []string{"https://a/1.jpg"}, product.Images)
	assert.Len(t, product.Variants, 1)
}

func TestProvenanceRevisitable(t *testing.T) {
	assert.True(t, Provenance{SourceURL: "https://x.fr/p"}.Revisitable())
	assert.False(t, Provenance{}.Revisitable())
}

func TestProductStatusIsValid(t *testing.T) {
	assert.True(t, ProductStatusDraft.IsValid())
	assert.True(t, ProductStatusOutOfStock.IsValid())
	assert.False(t, ProductStatus("banana").IsValid())
}
