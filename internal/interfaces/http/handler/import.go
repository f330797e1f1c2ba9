package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	extractionapp "github.com/shopopti/backend/internal/application/extraction"
	importerapp "github.com/shopopti/backend/internal/application/importer"
	"github.com/shopopti/backend/internal/domain/catalog"
	"github.com/shopopti/backend/internal/domain/extraction"
	"github.com/shopopti/backend/internal/infrastructure/dom"
	"github.com/shopopti/backend/internal/interfaces/http/dto"
)

// ImportHandler exposes the import pipeline: extract a product page and
// commit it through admission control.
type ImportHandler struct {
	BaseHandler
	extractor *extractionapp.Service
	importer  *importerapp.Service
	products  catalog.ProductRepository
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(extractor *extractionapp.Service, importer *importerapp.Service, products catalog.ProductRepository) *ImportHandler {
	return &ImportHandler{
		extractor: extractor,
		importer:  importer,
		products:  products,
	}
}

// Commit extracts the requested page and commits it as a catalog product
func (h *ImportHandler) Commit(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.ImportCommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	raw, err := h.resolveExtraction(c, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	result, err := h.importer.Import(c.Request.Context(), importerapp.Request{
		UserID:      userID,
		Raw:         raw,
		IsDraft:     req.IsDraft,
		KeepBlocked: req.KeepBlocked,
	})
	if err != nil {
		// a blocked import still carries its admission verdict
		if result != nil {
			h.Error(c, dto.GetHTTPStatus(dto.ErrCodeImportBlocked), dto.ErrCodeImportBlocked, result.Validation.Decision.Reason)
			return
		}
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, dto.ImportCommitResponse{
		Product:    result.Product,
		Validation: result.Validation,
		Stored:     result.Stored,
	})
}

// resolveExtraction produces the extraction to commit: the caller's own
// payload when supplied, otherwise an extraction of the caller's HTML or of
// the live page.
func (h *ImportHandler) resolveExtraction(c *gin.Context, req dto.ImportCommitRequest) (*extraction.RawExtraction, error) {
	if req.Product != nil {
		return req.Product, nil
	}
	if req.HTML != "" {
		page, err := dom.ParsePage(req.URL, req.HTML)
		if err != nil {
			return nil, err
		}
		return h.extractor.Extract(c.Request.Context(), page)
	}
	return h.extractor.ExtractFromURL(c.Request.Context(), req.URL)
}

// GetProduct returns one imported product with its provenance
func (h *ImportHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	product, err := h.products.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, product)
}

// RegisterRoutes registers import routes
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	imports := rg.Group("/imports")
	{
		imports.POST("", h.Commit)
	}
	products := rg.Group("/products")
	{
		products.GET("/:id", h.GetProduct)
	}
}
