package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopopti/backend/internal/domain/extraction"
	"github.com/shopopti/backend/internal/domain/shared"
)

// Bounds applied when an extraction becomes a durable product. List fields are
// capped to bound storage against pathological inputs.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
	MaxImages            = 20
	MaxVariants          = 100
	MaxReviews           = 50
)

// MaxPrice is the sanity ceiling for imported prices.
var MaxPrice = decimal.NewFromInt(1_000_000)

// ProductStatus is the lifecycle status of an imported product.
type ProductStatus string

const (
	ProductStatusDraft      ProductStatus = "draft"
	ProductStatusActive     ProductStatus = "active"
	ProductStatusArchived   ProductStatus = "archived"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
)

// IsValid returns true if the status is one of the known values
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusArchived, ProductStatusOutOfStock:
		return true
	default:
		return false
	}
}

// Provenance links a stored product back to the external page it came from.
type Provenance struct {
	SourcePlatform extraction.Platform `json:"source_platform"`
	SourceURL      string              `json:"source_url"`
	ExternalID     string              `json:"external_id,omitempty"`
	ImportedAt     time.Time           `json:"imported_at"`
}

// Revisitable reports whether the provenance carries a URL the reconciliation
// job can re-fetch.
func (p Provenance) Revisitable() bool {
	return p.SourceURL != ""
}

// ImportedProduct is the durable entity created by the import commit service.
// Mutated only by user edits (out of scope here) and by the stock
// reconciliation job, which may touch stock, status and price-drift fields but
// never title, images or variants.
type ImportedProduct struct {
	shared.BaseEntity
	UserID uuid.UUID `json:"user_id"`

	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Brand         string          `json:"brand"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Currency      string          `json:"currency"`

	Images         []string               `json:"images"`
	Videos         []extraction.Video     `json:"videos"`
	Variants       []extraction.Variant   `json:"variants"`
	Reviews        []extraction.Review    `json:"reviews"`
	Specifications map[string]string      `json:"specifications"`
	Shipping       extraction.Shipping    `json:"shipping"`
	StockStatus    extraction.StockStatus `json:"stock_status"`
	StockQuantity  *int                   `json:"stock_quantity,omitempty"`

	Status          ProductStatus `json:"status"`
	NeedsReview     bool          `json:"needs_review"`
	ValidationScore int           `json:"validation_score"`

	Provenance Provenance `json:"provenance"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

// ApplyStockObservation applies the minimal reconciliation update for an
// observed availability change. Returns the human-readable change
// descriptions, empty when nothing drifted.
func (p *ImportedProduct) ApplyStockObservation(inStock bool, quantity *int, observedPrice decimal.Decimal) []string {
	var changes []string

	if quantity != nil && (p.StockQuantity == nil || *p.StockQuantity != *quantity) {
		prev := "unknown"
		if p.StockQuantity != nil {
			prev = fmt.Sprintf("%d", *p.StockQuantity)
		}
		changes = append(changes, fmt.Sprintf("stock: %s → %d", prev, *quantity))
		p.StockQuantity = quantity
	}

	if !inStock {
		if p.Status != ProductStatusOutOfStock {
			changes = append(changes, fmt.Sprintf("status: %s → %s", p.Status, ProductStatusOutOfStock))
			p.Status = ProductStatusOutOfStock
		}
		if p.StockStatus != extraction.StockStatusOutOfStock {
			p.StockStatus = extraction.StockStatusOutOfStock
			if p.StockQuantity == nil || *p.StockQuantity != 0 {
				zero := 0
				prev := "unknown"
				if p.StockQuantity != nil {
					prev = fmt.Sprintf("%d", *p.StockQuantity)
				}
				changes = append(changes, fmt.Sprintf("stock: %s → 0", prev))
				p.StockQuantity = &zero
			}
		}
	} else {
		if p.StockStatus == extraction.StockStatusOutOfStock {
			changes = append(changes, "stock: back in stock")
		}
		p.StockStatus = extraction.StockStatusInStock
		if p.Status == ProductStatusOutOfStock {
			p.Status = ProductStatusActive
		}
	}

	if observedPrice.IsPositive() && !observedPrice.Equal(p.Price) {
		changes = append(changes, fmt.Sprintf("price: %s → %s", p.Price.StringFixed(2), observedPrice.StringFixed(2)))
		p.Price = observedPrice
	}

	if len(changes) > 0 {
		p.Touch()
	}
	now := time.Now()
	p.LastSyncAt = &now
	return changes
}
