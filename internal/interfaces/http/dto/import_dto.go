package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopopti/backend/internal/domain/catalog"
	"github.com/shopopti/backend/internal/domain/extraction"
	syncdomain "github.com/shopopti/backend/internal/domain/sync"
	"github.com/shopopti/backend/internal/domain/validation"
)

// ExtractPreviewRequest asks for an extraction without committing anything.
// When HTML is present it is parsed as the page markup for URL; otherwise the
// server fetches the URL itself.
type ExtractPreviewRequest struct {
	URL  string `json:"url" binding:"required,url"`
	HTML string `json:"html"`
}

// ExtractPreviewResponse carries the settled extraction and its admission
// verdict, so the client can show what an import would do
type ExtractPreviewResponse struct {
	Extraction *extraction.RawExtraction `json:"extraction"`
	Validation validation.Result         `json:"validation"`
}

// ImportCommitRequest commits one extraction. The caller either supplies a
// settled extraction payload directly, or a URL (optionally with captured
// HTML) for the server to extract first.
type ImportCommitRequest struct {
	Product *extraction.RawExtraction `json:"product" binding:"required_without=URL"`
	URL     string                    `json:"url" binding:"required_without=Product,omitempty,url"`
	HTML    string                    `json:"html"`
	// IsDraft stores the record as a draft regardless of the admission decision
	IsDraft bool `json:"is_draft"`
	// KeepBlocked stores a blocked record as a review draft instead of rejecting it
	KeepBlocked bool `json:"keep_blocked"`
}

// ImportCommitResponse reports the outcome of one import commit
type ImportCommitResponse struct {
	Product    *catalog.ImportedProduct `json:"product,omitempty"`
	Validation validation.Result        `json:"validation"`
	Stored     bool                     `json:"stored"`
}

// SyncJobResponse is one reconciliation attempt record
type SyncJobResponse struct {
	ID           uuid.UUID            `json:"id"`
	ProductID    uuid.UUID            `json:"product_id"`
	Status       syncdomain.JobStatus `json:"status"`
	StartedAt    time.Time            `json:"started_at"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
	Result       syncdomain.Result    `json:"result"`
	ErrorMessage string               `json:"error_message,omitempty"`
}

// NewSyncJobResponse converts a domain job record
func NewSyncJobResponse(job *syncdomain.JobRecord) SyncJobResponse {
	return SyncJobResponse{
		ID:           job.ID,
		ProductID:    job.ProductID,
		Status:       job.Status,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		Result:       job.Result,
		ErrorMessage: job.ErrorMessage,
	}
}

// NewSyncJobResponses converts a slice of domain job records
func NewSyncJobResponses(jobs []*syncdomain.JobRecord) []SyncJobResponse {
	out := make([]SyncJobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, NewSyncJobResponse(job))
	}
	return out
}

// SyncRunRequest triggers a reconciliation run. With product ids it targets
// just those products; without, it sweeps the stale batch.
type SyncRunRequest struct {
	ProductIDs []uuid.UUID `json:"product_ids"`
}

// SyncRunResponse is the outcome of one reconciliation batch run
type SyncRunResponse struct {
	Summary *syncdomain.Summary `json:"summary"`
}
