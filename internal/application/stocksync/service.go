package stocksync

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime/debug"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopopti/backend/internal/domain/catalog"
	"github.com/shopopti/backend/internal/domain/extraction"
	syncdomain "github.com/shopopti/backend/internal/domain/sync"
	"github.com/shopopti/backend/internal/infrastructure/dom"
)

// Config holds the reconciliation tuning knobs.
type Config struct {
	// Concurrency is the number of candidates probed in parallel.
	Concurrency int
	// PerProductTimeout bounds one candidate's fetch plus classification.
	PerProductTimeout time.Duration
	// StaleAfter is the age past which a product is due for reconciliation.
	StaleAfter time.Duration
	// BatchSize caps how many stale products one run picks up.
	BatchSize int
}

// DefaultConfig returns the default reconciliation policy.
func DefaultConfig() Config {
	return Config{
		Concurrency:       5,
		PerProductTimeout: 20 * time.Second,
		StaleAfter:        6 * time.Hour,
		BatchSize:         50,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Concurrency <= 0 {
		return errors.New("stocksync: concurrency must be positive")
	}
	if c.PerProductTimeout <= 0 {
		return errors.New("stocksync: per-product timeout must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.New("stocksync: batch size must be positive")
	}
	return nil
}

// Service reconciles stored products against their live source pages. Every
// attempt leaves a terminal job record; one candidate's failure never aborts
// the rest of the batch.
type Service struct {
	products catalog.ProductRepository
	jobs     syncdomain.JobRepository
	source   dom.PageSource
	registry *extraction.Registry
	config   Config
	logger   *zap.Logger
}

// NewService creates a stock reconciliation service.
func NewService(
	products catalog.ProductRepository,
	jobs syncdomain.JobRepository,
	source dom.PageSource,
	registry *extraction.Registry,
	config Config,
	logger *zap.Logger,
) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		products: products,
		jobs:     jobs,
		source:   source,
		registry: registry,
		config:   config,
		logger:   logger,
	}, nil
}

// SyncBatch selects the stale products due for reconciliation and syncs them.
func (s *Service) SyncBatch(ctx context.Context) (*syncdomain.Summary, error) {
	cutoff := time.Now().Add(-s.config.StaleAfter)
	candidates, err := s.products.FindStale(ctx, cutoff, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("stocksync: select candidates: %w", err)
	}
	return s.SyncProducts(ctx, candidates), nil
}

// SyncByIDs reconciles just the named products, regardless of staleness.
// Unknown ids are skipped, not failed.
func (s *Service) SyncByIDs(ctx context.Context, ids []uuid.UUID) (*syncdomain.Summary, error) {
	candidates, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("stocksync: select candidates: %w", err)
	}
	return s.SyncProducts(ctx, candidates), nil
}

// SyncProducts reconciles the given products with bounded fan-out. The
// returned summary aggregates every attempt; it never carries an error for
// the batch as a whole.
func (s *Service) SyncProducts(ctx context.Context, products []*catalog.ImportedProduct) *syncdomain.Summary {
	start := time.Now()
	summary := &syncdomain.Summary{}
	if len(products) == 0 {
		return summary
	}

	var (
		mu         stdsync.Mutex
		wg         stdsync.WaitGroup
		candidates = make(chan *catalog.ImportedProduct)
	)

	workers := s.config.Concurrency
	if workers > len(products) {
		workers = len(products)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for product := range candidates {
				outcome := s.syncOne(ctx, product)
				mu.Lock()
				summary.Synced += outcome.synced
				summary.Failed += outcome.failed
				summary.OutOfStock += outcome.outOfStock
				summary.PriceChanged += outcome.priceChanged
				if outcome.err != "" {
					summary.Errors = append(summary.Errors, outcome.err)
				}
				mu.Unlock()
			}
		}()
	}

	for _, product := range products {
		candidates <- product
	}
	close(candidates)
	wg.Wait()

	s.logger.Info("stock sync batch finished",
		zap.Int("candidates", len(products)),
		zap.Int("synced", summary.Synced),
		zap.Int("failed", summary.Failed),
		zap.Int("out_of_stock", summary.OutOfStock),
		zap.Int("price_changed", summary.PriceChanged),
		zap.Duration("duration", time.Since(start)))
	return summary
}

// outcome is one candidate's contribution to the batch summary.
type outcome struct {
	synced       int
	failed       int
	outOfStock   int
	priceChanged int
	err          string
}

// syncOne probes one product's source page and reconciles the stored record.
// Always leaves the job record in a terminal state, including on panic.
func (s *Service) syncOne(ctx context.Context, product *catalog.ImportedProduct) (out outcome) {
	job := syncdomain.NewJobRecord(product.ID)
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		s.logger.Error("open sync job", zap.String("product_id", product.ID.String()), zap.Error(err))
		return outcome{failed: 1, err: fmt.Sprintf("%s: open job: %v", product.ID, err)}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync attempt panicked",
				zap.String("product_id", product.ID.String()),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			s.fail(ctx, job, fmt.Sprintf("panic: %v", r))
			out = outcome{failed: 1, err: fmt.Sprintf("%s: panic: %v", product.ID, r)}
		}
	}()

	if !product.Provenance.Revisitable() {
		s.fail(ctx, job, "no source url to revisit")
		return outcome{failed: 1, err: fmt.Sprintf("%s: no source url", product.ID)}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, s.config.PerProductTimeout)
	defer cancel()

	observation, err := s.observe(attemptCtx, product)
	if err != nil {
		s.fail(ctx, job, err.Error())
		return outcome{failed: 1, err: fmt.Sprintf("%s: %v", product.ID, err)}
	}

	prevStock := product.StockQuantity
	prevPrice := product.Price

	changes := product.ApplyStockObservation(observation.inStock, observation.quantity, observation.price)
	if err := s.products.UpdateStock(ctx, product); err != nil {
		s.fail(ctx, job, fmt.Sprintf("persist stock update: %v", err))
		return outcome{failed: 1, err: fmt.Sprintf("%s: persist: %v", product.ID, err)}
	}

	result := syncdomain.Result{
		PreviousStock: prevStock,
		NewStock:      product.StockQuantity,
		PreviousPrice: prevPrice.StringFixed(2),
		NewPrice:      product.Price.StringFixed(2),
		Changes:       changes,
	}
	if err := job.Complete(result); err == nil {
		if err := s.jobs.FinalizeJob(ctx, job); err != nil {
			s.logger.Error("finalize sync job", zap.String("job_id", job.ID.String()), zap.Error(err))
		}
	}

	if len(changes) > 0 {
		entry := &syncdomain.LogEntry{
			ProductID:     product.ID,
			JobID:         job.ID,
			PreviousStock: prevStock,
			NewStock:      product.StockQuantity,
			PreviousPrice: result.PreviousPrice,
			NewPrice:      result.NewPrice,
			Changes:       changes,
		}
		if err := s.jobs.AppendLog(ctx, entry); err != nil {
			s.logger.Error("append sync log", zap.String("product_id", product.ID.String()), zap.Error(err))
		}
	}

	out = outcome{synced: 1}
	if !observation.inStock {
		out.outOfStock = 1
	}
	if !product.Price.Equal(prevPrice) {
		out.priceChanged = 1
	}
	return out
}

// observation is what one live-page probe concluded.
type observation struct {
	inStock  bool
	quantity *int
	price    decimal.Decimal
}

// observe fetches the live page and classifies it. A 404/410 is a definitive
// out-of-stock signal; any other fetch failure means the source is
// unreachable and the attempt fails.
func (s *Service) observe(ctx context.Context, product *catalog.ImportedProduct) (*observation, error) {
	page, err := s.source.FetchPage(ctx, product.Provenance.SourceURL)
	if err != nil {
		var statusErr *dom.StatusError
		if errors.As(err, &statusErr) && statusErr.NotFound() {
			return &observation{inStock: false}, nil
		}
		return nil, fmt.Errorf("source unreachable: %v", err)
	}

	parsed, err := url.Parse(page.URL)
	if err != nil {
		return nil, fmt.Errorf("source url unparsable: %v", err)
	}
	adapter, err := s.registry.Detect(parsed.Host)
	if err != nil {
		return nil, fmt.Errorf("resolve adapter: %v", err)
	}

	stock, err := adapter.ExtractStock(page)
	if err != nil {
		// Reachable page with no availability signal stays in stock.
		stock = extraction.Stock{InStock: true, Status: extraction.StockStatusUnknown}
	}

	obs := &observation{
		inStock:  stock.InStock || stock.Status == extraction.StockStatusUnknown,
		quantity: stock.Quantity,
	}
	if pricing, err := adapter.ExtractPricing(page); err == nil {
		obs.price = pricing.Price
	}
	return obs, nil
}

func (s *Service) fail(ctx context.Context, job *syncdomain.JobRecord, reason string) {
	if err := job.Fail(reason); err != nil {
		return
	}
	if err := s.jobs.FinalizeJob(ctx, job); err != nil {
		s.logger.Error("finalize failed sync job", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}
