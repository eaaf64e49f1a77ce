package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coverline/polimport/internal/domain"

	"github.com/google/uuid"
)

// sqliteOperationRepository implements OperationRepository over the
// named-query executor.
type sqliteOperationRepository struct {
	queries *Queries
}

// NewSQLiteOperationRepository creates an operation repository backed by SQLite.
func NewSQLiteOperationRepository(queries *Queries) OperationRepository {
	return &sqliteOperationRepository{queries: queries}
}

type sqliteOperationRow struct {
	ID            string `db:"id"`
	Endpoint      string `db:"endpoint"`
	Status        string `db:"status"`
	CorrelationID string `db:"correlation_id"`
	RowsInserted  int    `db:"rows_inserted"`
	RowsUpdated   int    `db:"rows_updated"`
	RowsRejected  int    `db:"rows_rejected"`
	DurationMs    int64  `db:"duration_ms"`
	ErrorSummary  string `db:"error_summary"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
}

// Create records a new operation in status RECEIVED.
func (r *sqliteOperationRepository) Create(ctx context.Context, endpoint string, correlationID string) (domain.OperationRecord, error) {
	id := uuid.New()
	now := time.Now().UTC().Format(time.RFC3339)

	if _, err := r.queries.Exec("insert-operation",
		id.String(), endpoint, string(domain.OperationStatusReceived), correlationID, now, now,
	); err != nil {
		return domain.OperationRecord{}, fmt.Errorf("failed to create operation: %w", err)
	}

	return r.GetByID(ctx, id)
}

// Update applies a partial update; nil fields keep their stored values.
func (r *sqliteOperationRepository) Update(ctx context.Context, id uuid.UUID, fields OperationUpdate) (domain.OperationRecord, error) {
	var status *string
	if fields.Status != nil {
		value := string(*fields.Status)
		status = &value
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := r.queries.Exec("update-operation",
		status,
		fields.RowsInserted,
		fields.RowsUpdated,
		fields.RowsRejected,
		fields.DurationMs,
		fields.ErrorSummary,
		now,
		id.String(),
	); err != nil {
		return domain.OperationRecord{}, fmt.Errorf("failed to update operation: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves one operation record.
func (r *sqliteOperationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.OperationRecord, error) {
	var row sqliteOperationRow
	if err := r.queries.Get("get-operation", &row, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OperationRecord{}, ErrNotFound
		}
		return domain.OperationRecord{}, fmt.Errorf("failed to get operation: %w", err)
	}
	return row.toDomain()
}

// List retrieves operations, most recent first.
func (r *sqliteOperationRepository) List(ctx context.Context, limit int, offset int) ([]domain.OperationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []sqliteOperationRow
	if err := r.queries.Select("list-operations", &rows, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}

	operations := make([]domain.OperationRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		operations = append(operations, record)
	}

	return operations, nil
}

func (row sqliteOperationRow) toDomain() (domain.OperationRecord, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return domain.OperationRecord{}, fmt.Errorf("failed to parse operation id %q: %w", row.ID, err)
	}
	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return domain.OperationRecord{}, fmt.Errorf("failed to parse created_at %q: %w", row.CreatedAt, err)
	}
	updatedAt, err := time.Parse(time.RFC3339, row.UpdatedAt)
	if err != nil {
		return domain.OperationRecord{}, fmt.Errorf("failed to parse updated_at %q: %w", row.UpdatedAt, err)
	}

	return domain.OperationRecord{
		ID:            id,
		Endpoint:      row.Endpoint,
		Status:        domain.OperationStatus(row.Status),
		CorrelationID: row.CorrelationID,
		RowsInserted:  row.RowsInserted,
		RowsUpdated:   row.RowsUpdated,
		RowsRejected:  row.RowsRejected,
		DurationMs:    row.DurationMs,
		ErrorSummary:  row.ErrorSummary,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}, nil
}
