package domain

import (
	"time"

	"github.com/google/uuid"
)

// OperationStatus tracks the lifecycle of one batch upload.
type OperationStatus string

const (
	OperationStatusReceived   OperationStatus = "RECEIVED"
	OperationStatusProcessing OperationStatus = "PROCESSING"
	OperationStatusCompleted  OperationStatus = "COMPLETED"
	OperationStatusFailed     OperationStatus = "FAILED"
)

// OperationRecord is the audit-trail entity for one batch upload. It is
// created RECEIVED and updated exactly twice: once to PROCESSING and once to a
// terminal status with the final counts.
type OperationRecord struct {
	ID            uuid.UUID       `json:"id"`
	Endpoint      string          `json:"endpoint"`
	Status        OperationStatus `json:"status"`
	CorrelationID string          `json:"correlation_id"`
	RowsInserted  int             `json:"rows_inserted"`
	RowsUpdated   int             `json:"rows_updated"`
	RowsRejected  int             `json:"rows_rejected"`
	DurationMs    int64           `json:"duration_ms"`
	ErrorSummary  string          `json:"error_summary,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
