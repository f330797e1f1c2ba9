package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/shopopti/backend/internal/domain/shared"
	syncdomain "github.com/shopopti/backend/internal/domain/sync"
)

// StockSyncJobModel is one row of the append-only reconciliation audit trail.
type StockSyncJobModel struct {
	BaseModel
	ProductID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	StartedAt    time.Time  `gorm:"type:timestamptz;not null"`
	CompletedAt  *time.Time `gorm:"type:timestamptz"`
	Status       string     `gorm:"type:varchar(20);not null;index"`
	Result       string     `gorm:"type:jsonb;default:'{}'"`
	ErrorMessage string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (StockSyncJobModel) TableName() string {
	return "stock_sync_jobs"
}

// StockSyncLogModel is one drift journal entry, written only for attempts
// that observed a change.
type StockSyncLogModel struct {
	BaseModel
	ProductID     uuid.UUID `gorm:"type:uuid;not null;index"`
	JobID         uuid.UUID `gorm:"type:uuid;not null;index"`
	PreviousStock *int
	NewStock      *int
	PreviousPrice string `gorm:"type:varchar(20)"`
	NewPrice      string `gorm:"type:varchar(20)"`
	Changes       string `gorm:"type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (StockSyncLogModel) TableName() string {
	return "stock_sync_logs"
}

// ToDomain converts the persistence model to a domain JobRecord.
func (m *StockSyncJobModel) ToDomain() *syncdomain.JobRecord {
	record := &syncdomain.JobRecord{
		BaseEntity:   m.BaseModel.ToDomain(),
		ProductID:    m.ProductID,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
		Status:       syncdomain.JobStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
	}
	_ = json.Unmarshal([]byte(orDefault(m.Result, "{}")), &record.Result)
	return record
}

// FromDomain populates the persistence model from a domain JobRecord.
func (m *StockSyncJobModel) FromDomain(j *syncdomain.JobRecord) {
	m.FromDomainBaseEntity(j.BaseEntity)
	m.ProductID = j.ProductID
	m.StartedAt = j.StartedAt
	m.CompletedAt = j.CompletedAt
	m.Status = string(j.Status)
	m.Result = mustJSON(j.Result, "{}")
	m.ErrorMessage = j.ErrorMessage
}

// ToDomain converts the persistence model to a domain LogEntry.
func (m *StockSyncLogModel) ToDomain() *syncdomain.LogEntry {
	entry := &syncdomain.LogEntry{
		BaseEntity:    m.BaseModel.ToDomain(),
		ProductID:     m.ProductID,
		JobID:         m.JobID,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		PreviousPrice: m.PreviousPrice,
		NewPrice:      m.NewPrice,
	}
	_ = json.Unmarshal([]byte(orDefault(m.Changes, "[]")), &entry.Changes)
	return entry
}

// FromDomain populates the persistence model from a domain LogEntry.
func (m *StockSyncLogModel) FromDomain(e *syncdomain.LogEntry) {
	if e.ID == uuid.Nil {
		e.BaseEntity = shared.NewBaseEntity()
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	m.ProductID = e.ProductID
	m.JobID = e.JobID
	m.PreviousStock = e.PreviousStock
	m.NewStock = e.NewStock
	m.PreviousPrice = e.PreviousPrice
	m.NewPrice = e.NewPrice
	m.Changes = mustJSON(e.Changes, "[]")
}
