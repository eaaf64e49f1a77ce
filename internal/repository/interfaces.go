package repository

import (
	"context"
	"errors"

	"github.com/coverline/polimport/internal/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// PolicyRepository defines the interface for policy persistence.
//
// Upsert is keyed on the policy number and has full-replace semantics: on
// conflict every mutable field is overwritten with the incoming values. The
// returned bool is true when an existing row was updated rather than inserted.
type PolicyRepository interface {
	Upsert(ctx context.Context, record domain.PolicyRecord) (domain.PolicyRecord, bool, error)
	GetByPolicyNumber(ctx context.Context, policyNumber string) (domain.PolicyRecord, error)
	List(ctx context.Context, limit int, offset int) ([]domain.PolicyRecord, int, error)
	Count(ctx context.Context) (int64, error)
}

// OperationUpdate carries a partial update of an operation record; nil fields
// are left untouched.
type OperationUpdate struct {
	Status       *domain.OperationStatus
	RowsInserted *int
	RowsUpdated  *int
	RowsRejected *int
	DurationMs   *int64
	ErrorSummary *string
}

// OperationRepository stores the audit trail of batch uploads.
type OperationRepository interface {
	Create(ctx context.Context, endpoint string, correlationID string) (domain.OperationRecord, error)
	Update(ctx context.Context, id uuid.UUID, fields OperationUpdate) (domain.OperationRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.OperationRecord, error)
	List(ctx context.Context, limit int, offset int) ([]domain.OperationRecord, error)
}
