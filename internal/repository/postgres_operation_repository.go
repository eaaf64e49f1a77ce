package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/coverline/polimport/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresOperationRepository implements OperationRepository on pgxpool.
type postgresOperationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresOperationRepository creates an operation repository backed by PostgreSQL.
func NewPostgresOperationRepository(pool *pgxpool.Pool) OperationRepository {
	return &postgresOperationRepository{pool: pool}
}

const operationColumns = `id, endpoint, status, correlation_id, rows_inserted, rows_updated,
	rows_rejected, duration_ms, error_summary, created_at, updated_at`

// Create records a new operation in status RECEIVED.
func (r *postgresOperationRepository) Create(ctx context.Context, endpoint string, correlationID string) (domain.OperationRecord, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO operations (id, endpoint, status, correlation_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+operationColumns,
		uuid.New(), endpoint, string(domain.OperationStatusReceived), correlationID,
	)

	record, err := scanOperation(row)
	if err != nil {
		return domain.OperationRecord{}, fmt.Errorf("failed to create operation: %w", err)
	}
	return record, nil
}

// Update applies a partial update; nil fields keep their stored values.
func (r *postgresOperationRepository) Update(ctx context.Context, id uuid.UUID, fields OperationUpdate) (domain.OperationRecord, error) {
	var status *string
	if fields.Status != nil {
		value := string(*fields.Status)
		status = &value
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE operations SET
			status = COALESCE($2, status),
			rows_inserted = COALESCE($3, rows_inserted),
			rows_updated = COALESCE($4, rows_updated),
			rows_rejected = COALESCE($5, rows_rejected),
			duration_ms = COALESCE($6, duration_ms),
			error_summary = COALESCE($7, error_summary),
			updated_at = now()
		WHERE id = $1
		RETURNING `+operationColumns,
		id,
		status,
		fields.RowsInserted,
		fields.RowsUpdated,
		fields.RowsRejected,
		fields.DurationMs,
		fields.ErrorSummary,
	)

	record, err := scanOperation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OperationRecord{}, ErrNotFound
		}
		return domain.OperationRecord{}, fmt.Errorf("failed to update operation: %w", err)
	}
	return record, nil
}

// GetByID retrieves one operation record.
func (r *postgresOperationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.OperationRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE id = $1`, id)

	record, err := scanOperation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OperationRecord{}, ErrNotFound
		}
		return domain.OperationRecord{}, fmt.Errorf("failed to get operation: %w", err)
	}
	return record, nil
}

// List retrieves operations, most recent first.
func (r *postgresOperationRepository) List(ctx context.Context, limit int, offset int) ([]domain.OperationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	operations := []domain.OperationRecord{}
	for rows.Next() {
		record, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		operations = append(operations, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}

	return operations, nil
}

func scanOperation(row pgx.Row) (domain.OperationRecord, error) {
	var (
		record domain.OperationRecord
		status string
	)
	if err := row.Scan(
		&record.ID,
		&record.Endpoint,
		&status,
		&record.CorrelationID,
		&record.RowsInserted,
		&record.RowsUpdated,
		&record.RowsRejected,
		&record.DurationMs,
		&record.ErrorSummary,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return domain.OperationRecord{}, err
	}
	record.Status = domain.OperationStatus(status)
	return record, nil
}
