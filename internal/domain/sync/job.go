package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopopti/backend/internal/domain/shared"
)

// JobStatus is the state of one reconciliation attempt. The machine is
// pending → {completed | failed}; terminal states are written once and never
// mutated afterwards. Retry is a new attempt, never a resurrected record.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal returns true for completed and failed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Result captures the before/after observation of one successful attempt.
type Result struct {
	PreviousStock *int     `json:"previous_stock,omitempty"`
	NewStock      *int     `json:"new_stock,omitempty"`
	PreviousPrice string   `json:"previous_price,omitempty"`
	NewPrice      string   `json:"new_price,omitempty"`
	Changes       []string `json:"changes,omitempty"`
}

// JobRecord is one row of the append-only reconciliation audit trail, one per
// attempt against one product.
type JobRecord struct {
	shared.BaseEntity
	ProductID    uuid.UUID  `json:"product_id"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Status       JobStatus  `json:"status"`
	Result       Result     `json:"result"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// NewJobRecord opens a pending attempt for one product.
func NewJobRecord(productID uuid.UUID) *JobRecord {
	return &JobRecord{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		StartedAt:  time.Now(),
		Status:     JobStatusPending,
	}
}

// Complete moves the record to its terminal completed state.
func (j *JobRecord) Complete(result Result) error {
	if j.Status.IsTerminal() {
		return shared.ErrInvalidState
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.Result = result
	return nil
}

// Fail moves the record to its terminal failed state.
func (j *JobRecord) Fail(reason string) error {
	if j.Status.IsTerminal() {
		return shared.ErrInvalidState
	}
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.ErrorMessage = reason
	return nil
}

// LogEntry is one row of the append-only sync audit log, written only for
// successful attempts that observed a drift.
type LogEntry struct {
	shared.BaseEntity
	ProductID     uuid.UUID `json:"product_id"`
	JobID         uuid.UUID `json:"job_id"`
	PreviousStock *int      `json:"previous_stock,omitempty"`
	NewStock      *int      `json:"new_stock,omitempty"`
	PreviousPrice string    `json:"previous_price,omitempty"`
	NewPrice      string    `json:"new_price,omitempty"`
	Changes       []string  `json:"changes"`
}

// Summary aggregates one reconciliation run for the trigger response.
type Summary struct {
	Synced       int      `json:"synced"`
	Failed       int      `json:"failed"`
	OutOfStock   int      `json:"out_of_stock"`
	PriceChanged int      `json:"price_changed"`
	Errors       []string `json:"errors,omitempty"`
}
