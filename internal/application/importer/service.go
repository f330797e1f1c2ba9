package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopopti/backend/internal/domain/catalog"
	"github.com/shopopti/backend/internal/domain/extraction"
	"github.com/shopopti/backend/internal/domain/shared"
	"github.com/shopopti/backend/internal/domain/validation"
)

// Service turns raw extractions into durable catalog products. Admission is
// delegated to the validation engine; this service owns normalization and the
// atomic commit of product plus provenance.
type Service struct {
	engine   *validation.Engine
	products catalog.ProductRepository
	logger   *zap.Logger
}

// NewService creates an import commit service.
func NewService(engine *validation.Engine, products catalog.ProductRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: engine, products: products, logger: logger}
}

// Request is one import commit attempt.
type Request struct {
	UserID uuid.UUID
	Raw    *extraction.RawExtraction
	// IsDraft stores the record as a draft regardless of the admission
	// decision.
	IsDraft bool
	// KeepBlocked stores a blocked record as a review draft instead of
	// rejecting it outright.
	KeepBlocked bool
}

// Result reports the outcome of one import commit.
type Result struct {
	Product    *catalog.ImportedProduct `json:"product,omitempty"`
	Validation validation.Result        `json:"validation"`
	Stored     bool                     `json:"stored"`
}

// Import validates, normalizes and commits one extraction. Blocked records
// return ErrImportBlocked with the validation result attached, unless the
// request opts into keeping them as review drafts.
func (s *Service) Import(ctx context.Context, req Request) (*Result, error) {
	if req.Raw == nil {
		return nil, fmt.Errorf("import: %w: nil extraction", shared.ErrInvalidInput)
	}
	if req.UserID == uuid.Nil {
		return nil, fmt.Errorf("import: %w: missing user id", shared.ErrInvalidInput)
	}

	raw := req.Raw
	raw.Normalize()

	result := s.engine.Evaluate(raw)
	out := &Result{Validation: result}

	if result.Decision.Action == validation.ActionBlock && !req.KeepBlocked {
		s.logger.Info("import blocked",
			zap.String("url", raw.SourceURL),
			zap.String("reason", result.Decision.Reason))
		return out, fmt.Errorf("import: %w: %s", shared.ErrImportBlocked, result.Decision.Reason)
	}

	product := s.buildProduct(req, raw, result)
	if err := s.products.Create(ctx, product); err != nil {
		return out, fmt.Errorf("import: commit product: %w", err)
	}

	out.Product = product
	out.Stored = true
	s.logger.Info("product imported",
		zap.String("product_id", product.ID.String()),
		zap.String("platform", raw.SourcePlatform.String()),
		zap.String("status", string(product.Status)),
		zap.Int("score", result.Score))
	return out, nil
}

// buildProduct applies every normalization rule in one place so that what is
// persisted never exceeds the documented bounds.
func (s *Service) buildProduct(req Request, raw *extraction.RawExtraction, result validation.Result) *catalog.ImportedProduct {
	status := statusFor(result.Decision.Action, req.IsDraft)
	product := &catalog.ImportedProduct{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     req.UserID,

		Title:         truncate(raw.Title, catalog.MaxTitleLength),
		Description:   truncate(raw.Description, catalog.MaxDescriptionLength),
		Brand:         raw.Brand,
		SKU:           raw.SKU,
		Price:         raw.Price,
		OriginalPrice: raw.OriginalPrice,
		Currency:      raw.Currency,

		Images:         capStrings(raw.Images, catalog.MaxImages),
		Videos:         raw.Videos,
		Variants:       capVariants(raw.Variants, catalog.MaxVariants),
		Reviews:        capReviews(raw.Reviews, catalog.MaxReviews),
		Specifications: raw.Specifications,
		Shipping:       raw.Shipping,
		StockStatus:    raw.Stock.Status,
		StockQuantity:  raw.Stock.Quantity,

		Status:          status,
		NeedsReview:     result.Score < 100 || status == catalog.ProductStatusDraft,
		ValidationScore: result.Score,

		Provenance: catalog.Provenance{
			SourcePlatform: raw.SourcePlatform,
			SourceURL:      raw.SourceURL,
			ExternalID:     raw.ExternalID,
			ImportedAt:     time.Now().UTC(),
		},
	}

	if product.SKU == "" {
		product.SKU = syntheticSKU()
	}
	if product.Price.GreaterThan(catalog.MaxPrice) {
		product.Price = catalog.MaxPrice
	}
	if product.OriginalPrice.GreaterThan(catalog.MaxPrice) {
		product.OriginalPrice = catalog.MaxPrice
	}
	return product
}

func statusFor(action validation.Action, isDraft bool) catalog.ProductStatus {
	if action == validation.ActionImport && !isDraft {
		return catalog.ProductStatusActive
	}
	// Draft and kept-blocked records both land in the review queue.
	return catalog.ProductStatusDraft
}

// syntheticSKU generates a placeholder SKU for pages that expose none.
func syntheticSKU() string {
	short := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return "SO-" + short
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func capStrings(s []string, max int) []string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func capVariants(v []extraction.Variant, max int) []extraction.Variant {
	if len(v) <= max {
		return v
	}
	return v[:max]
}

func capReviews(r []extraction.Review, max int) []extraction.Review {
	if len(r) <= max {
		return r
	}
	return r[:max]
}
