package handler

import (
	"github.com/gin-gonic/gin"

	extractionapp "github.com/shopopti/backend/internal/application/extraction"
	"github.com/shopopti/backend/internal/domain/extraction"
	"github.com/shopopti/backend/internal/domain/validation"
	"github.com/shopopti/backend/internal/infrastructure/dom"
	"github.com/shopopti/backend/internal/interfaces/http/dto"
)

// ExtractionHandler exposes extraction previews: run the extractors and the
// admission check against a product page without committing anything.
type ExtractionHandler struct {
	BaseHandler
	extractor *extractionapp.Service
	engine    *validation.Engine
}

// NewExtractionHandler creates a new ExtractionHandler
func NewExtractionHandler(extractor *extractionapp.Service, engine *validation.Engine) *ExtractionHandler {
	return &ExtractionHandler{
		extractor: extractor,
		engine:    engine,
	}
}

// Preview extracts a product page and returns the settled record with its
// admission verdict
func (h *ExtractionHandler) Preview(c *gin.Context) {
	var req dto.ExtractPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var (
		raw *extraction.RawExtraction
		err error
	)
	if req.HTML != "" {
		var page *extraction.Page
		page, err = dom.ParsePage(req.URL, req.HTML)
		if err == nil {
			raw, err = h.extractor.Extract(c.Request.Context(), page)
		}
	} else {
		raw, err = h.extractor.ExtractFromURL(c.Request.Context(), req.URL)
	}
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dto.ExtractPreviewResponse{
		Extraction: raw,
		Validation: h.engine.Evaluate(raw),
	})
}

// RegisterRoutes registers extraction routes
func (h *ExtractionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	preview := rg.Group("/extraction")
	{
		preview.POST("/preview", h.Preview)
	}
}
