package sync

import (
	"context"

	"github.com/google/uuid"
)

// JobRepository is the persistence port for the append-only sync audit trail.
type JobRepository interface {
	// CreateJob writes a newly opened pending attempt.
	CreateJob(ctx context.Context, job *JobRecord) error
	// FinalizeJob writes the terminal state of an attempt exactly once.
	FinalizeJob(ctx context.Context, job *JobRecord) error
	// AppendLog writes one audit log entry.
	AppendLog(ctx context.Context, entry *LogEntry) error

	FindJobsByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]*JobRecord, error)
	FindRecentJobs(ctx context.Context, limit int) ([]*JobRecord, error)
}
