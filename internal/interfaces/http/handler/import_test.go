package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	extractionapp "github.com/shopopti/backend/internal/application/extraction"
	importerapp "github.com/shopopti/backend/internal/application/importer"
	"github.com/shopopti/backend/internal/domain/catalog"
	"github.com/shopopti/backend/internal/domain/extraction"
	"github.com/shopopti/backend/internal/domain/shared"
	"github.com/shopopti/backend/internal/domain/validation"
	_ "github.com/shopopti/backend/internal/infrastructure/platforms"
	"github.com/shopopti/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const productPage = `<html><head>
<script type="application/ld+json">
{
  "@type": "Product",
  "name": "Casque Bluetooth X200",
  "description": "Casque sans fil avec réduction de bruit active et autonomie de trente heures.",
  "sku": "X200-BLK",
  "brand": {"@type": "Brand", "name": "SoundMax"},
  "image": ["https://cdn.example.com/x200-front.jpg", "https://cdn.example.com/x200-side.jpg"],
  "offers": {"@type": "Offer", "price": "89.99", "priceCurrency": "EUR", "availability": "https://schema.org/InStock"}
}
</script>
</head><body></body></html>`

type staticPageSource struct {
	html string
}

func (s *staticPageSource) FetchPage(_ context.Context, pageURL string) (*extraction.Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.html))
	if err != nil {
		return nil, err
	}
	return &extraction.Page{URL: pageURL, Doc: doc}, nil
}

type memProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*catalog.ImportedProduct
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: map[uuid.UUID]*catalog.ImportedProduct{}}
}

func (r *memProductRepo) Create(_ context.Context, product *catalog.ImportedProduct) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = product
	return nil
}

func (r *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.ImportedProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if product, ok := r.products[id]; ok {
		return product, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*catalog.ImportedProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*catalog.ImportedProduct
	for _, id := range ids {
		if product, ok := r.products[id]; ok {
			out = append(out, product)
		}
	}
	return out, nil
}

func (r *memProductRepo) FindStale(_ context.Context, _ time.Time, _ int) ([]*catalog.ImportedProduct, error) {
	return nil, nil
}

func (r *memProductRepo) UpdateStock(_ context.Context, _ *catalog.ImportedProduct) error {
	return nil
}

func newImportRouter(t *testing.T, html string, repo *memProductRepo) *gin.Engine {
	t.Helper()

	extractor := extractionapp.NewService(extraction.DefaultRegistry(), &staticPageSource{html: html}, zap.NewNop())
	engine := validation.NewEngine(validation.DefaultThresholds())
	importer := importerapp.NewService(engine, repo, zap.NewNop())

	h := NewImportHandler(extractor, importer, repo)

	router := gin.New()
	userID := uuid.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.JWTUserIDKey, userID.String())
	})
	h.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestImportHandler_CommitStoresProduct(t *testing.T) {
	repo := newMemProductRepo()
	router := newImportRouter(t, productPage, repo)

	body, _ := json.Marshal(map[string]any{"url": "https://www.some-boutique.fr/products/x200"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/imports", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Stored  bool `json:"stored"`
			Product struct {
				ID     uuid.UUID `json:"id"`
				Title  string    `json:"title"`
				Status string    `json:"status"`
			} `json:"product"`
			Validation struct {
				Score    int `json:"score"`
				Decision struct {
					Action string `json:"action"`
				} `json:"decision"`
			} `json:"validation"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Data.Stored)
	assert.Equal(t, "Casque Bluetooth X200", resp.Data.Product.Title)
	assert.Equal(t, "active", resp.Data.Product.Status)
	assert.Equal(t, "import", resp.Data.Validation.Decision.Action)

	stored, err := repo.FindByID(context.Background(), resp.Data.Product.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://www.some-boutique.fr/products/x200", stored.Provenance.SourceURL)
}

func TestImportHandler_CommitAcceptsExtractionPayload(t *testing.T) {
	// a caller-supplied extraction is committed without touching the page source
	repo := newMemProductRepo()
	router := newImportRouter(t, "<html></html>", repo)

	body, _ := json.Marshal(map[string]any{
		"product": map[string]any{
			"source_platform": "generic",
			"source_url":      "https://www.some-boutique.fr/products/x200",
			"title":           "Casque Bluetooth X200",
			"description":     "Casque sans fil avec réduction de bruit active et autonomie de trente heures.",
			"price":           "89.99",
			"currency":        "EUR",
			"brand":           "SoundMax",
			"sku":             "X200-BLK",
			"images": []string{
				"https://cdn.example.com/x200-front.jpg",
				"https://cdn.example.com/x200-side.jpg",
			},
		},
		"is_draft": true,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/imports", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Product struct {
				ID     uuid.UUID `json:"id"`
				Status string    `json:"status"`
			} `json:"product"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "draft", resp.Data.Product.Status)

	stored, err := repo.FindByID(context.Background(), resp.Data.Product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Casque Bluetooth X200", stored.Title)
	assert.True(t, stored.NeedsReview)
}

func TestImportHandler_CommitBlockedPage(t *testing.T) {
	// a page with no title and no price is blocked by admission control
	repo := newMemProductRepo()
	router := newImportRouter(t, "<html><body><p>rien ici</p></body></html>", repo)

	body, _ := json.Marshal(map[string]any{"url": "https://www.some-boutique.fr/products/vide"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/imports", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "ERR_IMPORT_BLOCKED", resp.Error.Code)
	assert.Empty(t, repo.products)
}

func TestImportHandler_CommitRejectsBadBody(t *testing.T) {
	router := newImportRouter(t, productPage, newMemProductRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/imports", strings.NewReader(`{"url": "not-a-url"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportHandler_GetProduct(t *testing.T) {
	repo := newMemProductRepo()
	product := &catalog.ImportedProduct{
		BaseEntity: shared.NewBaseEntity(),
		Title:      "Stored product",
		Status:     catalog.ProductStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), product))

	router := newImportRouter(t, productPage, repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/products/"+product.ID.String(), nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/v1/products/"+uuid.NewString(), nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/v1/products/not-a-uuid", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
