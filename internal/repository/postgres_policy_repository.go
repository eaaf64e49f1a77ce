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

// postgresPolicyRepository implements PolicyRepository on pgxpool.
type postgresPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPolicyRepository creates a policy repository backed by PostgreSQL.
func NewPostgresPolicyRepository(pool *pgxpool.Pool) PolicyRepository {
	return &postgresPolicyRepository{pool: pool}
}

const policyColumns = `id, policy_number, customer, policy_type, start_date, end_date,
	premium_usd, insured_value_usd, status, created_at, updated_at`

// Upsert inserts the record or, on a policy_number conflict, overwrites every
// mutable field with the incoming values. The xmax system column is zero only
// for freshly inserted tuples, which distinguishes insert from update in one
// round trip.
func (r *postgresPolicyRepository) Upsert(ctx context.Context, record domain.PolicyRecord) (domain.PolicyRecord, bool, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO policies (id, policy_number, customer, policy_type, start_date, end_date,
			premium_usd, insured_value_usd, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (policy_number) DO UPDATE SET
			customer = EXCLUDED.customer,
			policy_type = EXCLUDED.policy_type,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			premium_usd = EXCLUDED.premium_usd,
			insured_value_usd = EXCLUDED.insured_value_usd,
			status = EXCLUDED.status,
			updated_at = now()
		RETURNING `+policyColumns+`, (xmax = 0) AS inserted`,
		uuid.New(),
		record.PolicyNumber,
		record.Customer,
		string(record.PolicyType),
		record.StartDate,
		record.EndDate,
		record.PremiumUSD,
		record.InsuredValueUSD,
		string(record.Status),
	)

	var (
		persisted  domain.PolicyRecord
		policyType string
		status     string
		inserted   bool
	)
	if err := row.Scan(
		&persisted.ID,
		&persisted.PolicyNumber,
		&persisted.Customer,
		&policyType,
		&persisted.StartDate,
		&persisted.EndDate,
		&persisted.PremiumUSD,
		&persisted.InsuredValueUSD,
		&status,
		&persisted.CreatedAt,
		&persisted.UpdatedAt,
		&inserted,
	); err != nil {
		return domain.PolicyRecord{}, false, fmt.Errorf("failed to upsert policy: %w", err)
	}

	persisted.PolicyType = domain.PolicyType(policyType)
	persisted.Status = domain.PolicyStatus(status)
	return persisted, !inserted, nil
}

// GetByPolicyNumber retrieves a policy by its natural key.
func (r *postgresPolicyRepository) GetByPolicyNumber(ctx context.Context, policyNumber string) (domain.PolicyRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE policy_number = $1`,
		policyNumber,
	)

	record, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PolicyRecord{}, ErrNotFound
		}
		return domain.PolicyRecord{}, fmt.Errorf("failed to get policy: %w", err)
	}
	return record, nil
}

// List retrieves policies ordered by policy number, with the total count.
func (r *postgresPolicyRepository) List(ctx context.Context, limit int, offset int) ([]domain.PolicyRecord, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+policyColumns+`, COUNT(*) OVER() AS total_count
		FROM policies
		ORDER BY policy_number
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	policies := []domain.PolicyRecord{}
	totalCount := 0
	for rows.Next() {
		var (
			record     domain.PolicyRecord
			policyType string
			status     string
		)
		if err := rows.Scan(
			&record.ID,
			&record.PolicyNumber,
			&record.Customer,
			&policyType,
			&record.StartDate,
			&record.EndDate,
			&record.PremiumUSD,
			&record.InsuredValueUSD,
			&status,
			&record.CreatedAt,
			&record.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan policy: %w", err)
		}
		record.PolicyType = domain.PolicyType(policyType)
		record.Status = domain.PolicyStatus(status)
		policies = append(policies, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate policies: %w", err)
	}

	return policies, totalCount, nil
}

// Count returns the number of stored policies.
func (r *postgresPolicyRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM policies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count policies: %w", err)
	}
	return count, nil
}

func scanPolicy(row pgx.Row) (domain.PolicyRecord, error) {
	var (
		record     domain.PolicyRecord
		policyType string
		status     string
	)
	if err := row.Scan(
		&record.ID,
		&record.PolicyNumber,
		&record.Customer,
		&policyType,
		&record.StartDate,
		&record.EndDate,
		&record.PremiumUSD,
		&record.InsuredValueUSD,
		&status,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return domain.PolicyRecord{}, err
	}
	record.PolicyType = domain.PolicyType(policyType)
	record.Status = domain.PolicyStatus(status)
	return record, nil
}
