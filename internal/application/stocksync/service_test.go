package stocksync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopopti/backend/internal/domain/catalog"
	"github.com/shopopti/backend/internal/domain/extraction"
	"github.com/shopopti/backend/internal/domain/shared"
	syncdomain "github.com/shopopti/backend/internal/domain/sync"
	"github.com/shopopti/backend/internal/infrastructure/dom"
)

// fakeSource scripts per-URL fetch outcomes: a page, a status error, or a
// hang until the per-candidate timeout fires.
type fakeSource struct {
	pages    map[string]string
	statuses map[string]int
	hanging  map[string]bool
}

func (f *fakeSource) FetchPage(ctx context.Context, pageURL string) (*extraction.Page, error) {
	if f.hanging[pageURL] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if code, ok := f.statuses[pageURL]; ok {
		return nil, &dom.StatusError{StatusCode: code, URL: pageURL}
	}
	html, ok := f.pages[pageURL]
	if !ok {
		return nil, errors.New("connection refused")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &extraction.Page{URL: pageURL, Doc: doc}, nil
}

// pageAdapter classifies stock from availability language in the body and
// parses the first .price node, close to what the real adapters do.
type pageAdapter struct{}

func (pageAdapter) Platform() extraction.Platform    { return extraction.PlatformGeneric }
func (pageAdapter) Matches(host string) bool         { return false }
func (pageAdapter) ExternalID(pageURL string) string { return "" }

func (pageAdapter) ExtractBasicInfo(page *extraction.Page) (extraction.BasicInfo, error) {
	return extraction.BasicInfo{}, errors.New("not extracted")
}

func (pageAdapter) ExtractPricing(page *extraction.Page) (extraction.Pricing, error) {
	text := strings.TrimSpace(page.Doc.Find(".price").First().Text())
	if text == "" {
		return extraction.Pricing{}, errors.New("no price")
	}
	price, err := decimal.NewFromString(strings.Replace(strings.TrimSuffix(text, " €"), ",", ".", 1))
	if err != nil {
		return extraction.Pricing{}, err
	}
	return extraction.Pricing{Price: price, Currency: "EUR"}, nil
}

func (pageAdapter) ExtractImages(page *extraction.Page) ([]string, error)          { return nil, nil }
func (pageAdapter) ExtractVideos(page *extraction.Page) ([]extraction.Video, error) { return nil, nil }
func (pageAdapter) ExtractVariants(page *extraction.Page) ([]extraction.Variant, error) {
	return nil, nil
}
func (pageAdapter) ExtractReviews(page *extraction.Page, limit int) ([]extraction.Review, error) {
	return nil, nil
}
func (pageAdapter) ExtractSpecifications(page *extraction.Page) (map[string]string, error) {
	return nil, nil
}

func (pageAdapter) ExtractStock(page *extraction.Page) (extraction.Stock, error) {
	body := strings.ToLower(page.Doc.Find("body").Text())
	if strings.Contains(body, "rupture") || strings.Contains(body, "sold out") {
		return extraction.Stock{InStock: false, Status: extraction.StockStatusOutOfStock}, nil
	}
	return extraction.Stock{InStock: true, Status: extraction.StockStatusInStock}, nil
}

func (pageAdapter) ExtractShipping(page *extraction.Page) (extraction.Shipping, error) {
	return extraction.Shipping{}, nil
}

// memJobRepo is an in-memory append-only job store.
type memJobRepo struct {
	mu      stdsync.Mutex
	jobs    map[uuid.UUID]*syncdomain.JobRecord
	entries []*syncdomain.LogEntry
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[uuid.UUID]*syncdomain.JobRecord)}
}

func (m *memJobRepo) CreateJob(ctx context.Context, job *syncdomain.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *memJobRepo) FinalizeJob(ctx context.Context, job *syncdomain.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return shared.ErrNotFound
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *memJobRepo) AppendLog(ctx context.Context, entry *syncdomain.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memJobRepo) FindJobsByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]*syncdomain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*syncdomain.JobRecord
	for _, job := range m.jobs {
		if job.ProductID == productID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (m *memJobRepo) FindRecentJobs(ctx context.Context, limit int) ([]*syncdomain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*syncdomain.JobRecord, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job)
	}
	return out, nil
}

func (m *memJobRepo) terminalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, job := range m.jobs {
		if job.Status.IsTerminal() {
			n++
		}
	}
	return n
}

// memProductRepo stores products keyed by id.
type memProductRepo struct {
	mu       stdsync.Mutex
	products map[uuid.UUID]*catalog.ImportedProduct
	updates  int
}

func newMemProductRepo(products ...*catalog.ImportedProduct) *memProductRepo {
	repo := &memProductRepo{products: make(map[uuid.UUID]*catalog.ImportedProduct)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (m *memProductRepo) Create(ctx context.Context, product *catalog.ImportedProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = product
	return nil
}

func (m *memProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ImportedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return product, nil
}

func (m *memProductRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.ImportedProduct, error) {
	var out []*catalog.ImportedProduct
	for _, id := range ids {
		if p, err := m.FindByID(ctx, id); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProductRepo) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*catalog.ImportedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*catalog.ImportedProduct
	for _, p := range m.products {
		if len(out) >= limit {
			break
		}
		if p.Provenance.Revisitable() && (p.LastSyncAt == nil || p.LastSyncAt.Before(cutoff)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProductRepo) UpdateStock(ctx context.Context, product *catalog.ImportedProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return shared.ErrNotFound
	}
	m.products[product.ID] = product
	m.updates++
	return nil
}

func syncProduct(n int, price float64) *catalog.ImportedProduct {
	qty := 12
	return &catalog.ImportedProduct{
		BaseEntity:    shared.NewBaseEntity(),
		Title:         fmt.Sprintf("Produit %d", n),
		Price:         decimal.NewFromFloat(price),
		Currency:      "EUR",
		Status:        catalog.ProductStatusActive,
		StockStatus:   extraction.StockStatusInStock,
		StockQuantity: &qty,
		Provenance: catalog.Provenance{
			SourcePlatform: extraction.PlatformGeneric,
			SourceURL:      fmt.Sprintf("https://boutique.fr/p/%d", n),
		},
	}
}

func newSyncService(t *testing.T, products *memProductRepo, jobs *memJobRepo, source dom.PageSource, cfg Config) *Service {
	t.Helper()
	registry := extraction.NewRegistry()
	require.NoError(t, registry.Register(pageAdapter{}))
	svc, err := NewService(products, jobs, source, registry, cfg, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func testConfig() Config {
	return Config{
		Concurrency:       3,
		PerProductTimeout: 50 * time.Millisecond,
		StaleAfter:        time.Hour,
		BatchSize:         50,
	}
}

func TestSyncProductsOneSlowCandidateDoesNotAbortBatch(t *testing.T) {
	products := make([]*catalog.ImportedProduct, 5)
	source := &fakeSource{
		pages:   map[string]string{},
		hanging: map[string]bool{},
	}
	for i := range products {
		products[i] = syncProduct(i, 10)
		source.pages[products[i].Provenance.SourceURL] = `<html><body>En stock <span class="price">10.00 €</span></body></html>`
	}
	// Candidate 3 hangs past its per-candidate timeout.
	source.hanging[products[2].Provenance.SourceURL] = true

	jobs := newMemJobRepo()
	repo := newMemProductRepo(products...)
	svc := newSyncService(t, repo, jobs, source, testConfig())

	summary := svc.SyncProducts(context.Background(), products)

	assert.Equal(t, 4, summary.Synced)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "unreachable")
	// Every attempt left a terminal record, including the timed-out one.
	assert.Equal(t, 5, jobs.terminalCount())
}

func TestSyncProductsGoneProductGoesOutOfStock(t *testing.T) {
	product := syncProduct(1, 49.99)
	source := &fakeSource{
		statuses: map[string]int{product.Provenance.SourceURL: http.StatusNotFound},
	}
	jobs := newMemJobRepo()
	svc := newSyncService(t, newMemProductRepo(product), jobs, source, testConfig())

	summary := svc.SyncProducts(context.Background(), []*catalog.ImportedProduct{product})

	assert.Equal(t, 1, summary.Synced)
	assert.Equal(t, 1, summary.OutOfStock)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, catalog.ProductStatusOutOfStock, product.Status)
	require.NotNil(t, product.StockQuantity)
	assert.Equal(t, 0, *product.StockQuantity)

	// The drift was journaled.
	require.Len(t, jobs.entries, 1)
	assert.Contains(t, jobs.entries[0].Changes, "stock: 12 → 0")
}

func TestSyncProductsNegativeLanguageGoesOutOfStock(t *testing.T) {
	product := syncProduct(1, 49.99)
	source := &fakeSource{
		pages: map[string]string{
			product.Provenance.SourceURL: "<html><body>Rupture de stock</body></html>",
		},
	}
	jobs := newMemJobRepo()
	svc := newSyncService(t, newMemProductRepo(product), jobs, source, testConfig())

	summary := svc.SyncProducts(context.Background(), []*catalog.ImportedProduct{product})

	assert.Equal(t, 1, summary.OutOfStock)
	assert.Equal(t, catalog.ProductStatusOutOfStock, product.Status)
}

func TestSyncProductsPriceDriftCounted(t *testing.T) {
	product := syncProduct(1, 49.99)
	source := &fakeSource{
		pages: map[string]string{
			product.Provenance.SourceURL: `<html><body>En stock <span class="price">39.99 €</span></body></html>`,
		},
	}
	jobs := newMemJobRepo()
	svc := newSyncService(t, newMemProductRepo(product), jobs, source, testConfig())

	summary := svc.SyncProducts(context.Background(), []*catalog.ImportedProduct{product})

	assert.Equal(t, 1, summary.Synced)
	assert.Equal(t, 1, summary.PriceChanged)
	assert.Equal(t, "39.99", product.Price.StringFixed(2))
	require.Len(t, jobs.entries, 1)
	assert.Contains(t, jobs.entries[0].Changes, "price: 49.99 → 39.99")
}

func TestSyncProductsNoDriftWritesNoLog(t *testing.T) {
	product := syncProduct(1, 10)
	source := &fakeSource{
		pages: map[string]string{
			product.Provenance.SourceURL: `<html><body>En stock <span class="price">10.00 €</span></body></html>`,
		},
	}
	jobs := newMemJobRepo()
	svc := newSyncService(t, newMemProductRepo(product), jobs, source, testConfig())

	summary := svc.SyncProducts(context.Background(), []*catalog.ImportedProduct{product})

	assert.Equal(t, 1, summary.Synced)
	assert.Empty(t, jobs.entries)
	assert.Equal(t, 1, jobs.terminalCount())
	assert.NotNil(t, product.LastSyncAt)
}

func TestSyncProductsSkipsUnrevisitable(t *testing.T) {
	product := syncProduct(1, 10)
	product.Provenance.SourceURL = ""
	jobs := newMemJobRepo()
	svc := newSyncService(t, newMemProductRepo(product), jobs, &fakeSource{}, testConfig())

	summary := svc.SyncProducts(context.Background(), []*catalog.ImportedProduct{product})

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, jobs.terminalCount())
}

func TestSyncBatchSelectsOnlyStale(t *testing.T) {
	fresh := syncProduct(1, 10)
	now := time.Now()
	fresh.LastSyncAt = &now
	stale := syncProduct(2, 10)

	source := &fakeSource{
		pages: map[string]string{
			stale.Provenance.SourceURL: `<html><body>En stock</body></html>`,
		},
	}
	jobs := newMemJobRepo()
	svc := newSyncService(t, newMemProductRepo(fresh, stale), jobs, source, testConfig())

	summary, err := svc.SyncBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Synced)
	assert.Equal(t, 1, jobs.terminalCount())
}

func TestSyncByIDsTargetsOnlyNamedProducts(t *testing.T) {
	first := syncProduct(1, 10)
	second := syncProduct(2, 10)
	// second was synced a moment ago; a targeted run must still revisit it.
	now := time.Now()
	second.LastSyncAt = &now

	source := &fakeSource{pages: map[string]string{
		first.Provenance.SourceURL:  `<html><body>En stock <span class="price">10.00 €</span></body></html>`,
		second.Provenance.SourceURL: `<html><body>En stock <span class="price">10.00 €</span></body></html>`,
	}}

	jobs := newMemJobRepo()
	svc := newSyncService(t, newMemProductRepo(first, second), jobs, source, testConfig())

	summary, err := svc.SyncByIDs(context.Background(), []uuid.UUID{second.ID, uuid.New()})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Synced)
	assert.Equal(t, 0, summary.Failed)

	records, err := jobs.FindJobsByProduct(context.Background(), second.ID, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
