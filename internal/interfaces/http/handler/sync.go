package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	syncdomain "github.com/shopopti/backend/internal/domain/sync"
	"github.com/shopopti/backend/internal/infrastructure/scheduler"
	"github.com/shopopti/backend/internal/interfaces/http/dto"
)

const defaultJobListLimit = 20

// TargetedSyncer reconciles a named set of products immediately, bypassing
// staleness selection.
type TargetedSyncer interface {
	SyncByIDs(ctx context.Context, ids []uuid.UUID) (*syncdomain.Summary, error)
}

// SyncHandler exposes manual reconciliation runs and the sync audit trail.
type SyncHandler struct {
	BaseHandler
	scheduler *scheduler.StockSyncScheduler
	syncer    TargetedSyncer
	jobs      syncdomain.JobRepository
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(sched *scheduler.StockSyncScheduler, syncer TargetedSyncer, jobs syncdomain.JobRepository) *SyncHandler {
	return &SyncHandler{
		scheduler: sched,
		syncer:    syncer,
		jobs:      jobs,
	}
}

// Run triggers one reconciliation batch immediately. A body naming product
// ids targets just those products; an empty body sweeps the stale batch.
func (h *SyncHandler) Run(c *gin.Context) {
	var req dto.SyncRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	if len(req.ProductIDs) > 0 {
		summary, err := h.syncer.SyncByIDs(c.Request.Context(), req.ProductIDs)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		h.Success(c, dto.SyncRunResponse{Summary: summary})
		return
	}

	summary, err := h.scheduler.TriggerNow(c.Request.Context())
	if err != nil {
		h.Error(c, 409, dto.ErrCodeConflict, err.Error())
		return
	}

	h.Success(c, dto.SyncRunResponse{Summary: summary})
}

// ListRecentJobs returns the most recent reconciliation attempts
func (h *SyncHandler) ListRecentJobs(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))

	jobs, err := h.jobs.FindRecentJobs(c.Request.Context(), limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dto.NewSyncJobResponses(jobs))
}

// ListProductJobs returns one product's reconciliation attempts
func (h *SyncHandler) ListProductJobs(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}

	limit := parseLimit(c.Query("limit"))

	jobs, err := h.jobs.FindJobsByProduct(c.Request.Context(), productID, limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dto.NewSyncJobResponses(jobs))
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 100 {
		return defaultJobListLimit
	}
	return limit
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/run", h.Run)
		sync.GET("/jobs", h.ListRecentJobs)
	}
	rg.GET("/products/:id/sync-jobs", h.ListProductJobs)
}
