package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProductRepository is the persistence port for imported products.
type ProductRepository interface {
	// Create persists a product together with its provenance as one atomic
	// unit: either both rows are written or neither is.
	Create(ctx context.Context, product *ImportedProduct) error

	FindByID(ctx context.Context, id uuid.UUID) (*ImportedProduct, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*ImportedProduct, error)

	// FindStale returns up to limit products whose provenance carries a
	// re-visitable source URL and whose last sync is unset or older than the
	// given cutoff.
	FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*ImportedProduct, error)

	// UpdateStock persists the reconciliation-owned fields of a product
	// (stock quantity, stock status, product status, price, last sync time)
	// as one atomic update.
	UpdateStock(ctx context.Context, product *ImportedProduct) error
}
