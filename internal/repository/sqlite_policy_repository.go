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

// sqlitePolicyRepository implements PolicyRepository over the named-query
// executor. SQLite stores dates and timestamps as TEXT, so rows go through an
// intermediate struct and explicit conversion.
type sqlitePolicyRepository struct {
	queries *Queries
}

// NewSQLitePolicyRepository creates a policy repository backed by SQLite.
func NewSQLitePolicyRepository(queries *Queries) PolicyRepository {
	return &sqlitePolicyRepository{queries: queries}
}

type sqlitePolicyRow struct {
	ID              string  `db:"id"`
	PolicyNumber    string  `db:"policy_number"`
	Customer        string  `db:"customer"`
	PolicyType      string  `db:"policy_type"`
	StartDate       string  `db:"start_date"`
	EndDate         string  `db:"end_date"`
	PremiumUSD      float64 `db:"premium_usd"`
	InsuredValueUSD float64 `db:"insured_value_usd"`
	Status          string  `db:"status"`
	CreatedAt       string  `db:"created_at"`
	UpdatedAt       string  `db:"updated_at"`
}

const sqliteDateLayout = "2006-01-02"

// Upsert probes for an existing policy number, then inserts or full-replaces.
// Batches are processed sequentially, so the probe-then-write pair is not
// racing against other rows of the same upload.
func (r *sqlitePolicyRepository) Upsert(ctx context.Context, record domain.PolicyRecord) (domain.PolicyRecord, bool, error) {
	var existing int
	if err := r.queries.Get("policy-exists", &existing, record.PolicyNumber); err != nil {
		return domain.PolicyRecord{}, false, fmt.Errorf("failed to probe policy: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	if existing > 0 {
		if _, err := r.queries.Exec("update-policy-by-number",
			record.Customer,
			string(record.PolicyType),
			record.StartDate.Format(sqliteDateLayout),
			record.EndDate.Format(sqliteDateLayout),
			record.PremiumUSD,
			record.InsuredValueUSD,
			string(record.Status),
			now,
			record.PolicyNumber,
		); err != nil {
			return domain.PolicyRecord{}, false, fmt.Errorf("failed to update policy: %w", err)
		}
	} else {
		if _, err := r.queries.Exec("insert-policy",
			uuid.NewString(),
			record.PolicyNumber,
			record.Customer,
			string(record.PolicyType),
			record.StartDate.Format(sqliteDateLayout),
			record.EndDate.Format(sqliteDateLayout),
			record.PremiumUSD,
			record.InsuredValueUSD,
			string(record.Status),
			now,
			now,
		); err != nil {
			return domain.PolicyRecord{}, false, fmt.Errorf("failed to insert policy: %w", err)
		}
	}

	persisted, err := r.GetByPolicyNumber(ctx, record.PolicyNumber)
	if err != nil {
		return domain.PolicyRecord{}, false, err
	}
	return persisted, existing > 0, nil
}

// GetByPolicyNumber retrieves a policy by its natural key.
func (r *sqlitePolicyRepository) GetByPolicyNumber(ctx context.Context, policyNumber string) (domain.PolicyRecord, error) {
	var row sqlitePolicyRow
	if err := r.queries.Get("get-policy-by-number", &row, policyNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PolicyRecord{}, ErrNotFound
		}
		return domain.PolicyRecord{}, fmt.Errorf("failed to get policy: %w", err)
	}
	return row.toDomain()
}

// List retrieves policies ordered by policy number, with the total count.
func (r *sqlitePolicyRepository) List(ctx context.Context, limit int, offset int) ([]domain.PolicyRecord, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []sqlitePolicyRow
	if err := r.queries.Select("list-policies", &rows, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list policies: %w", err)
	}

	var total int
	if err := r.queries.Get("count-policies", &total); err != nil {
		return nil, 0, fmt.Errorf("failed to count policies: %w", err)
	}

	policies := make([]domain.PolicyRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toDomain()
		if err != nil {
			return nil, 0, err
		}
		policies = append(policies, record)
	}

	return policies, total, nil
}

// Count returns the number of stored policies.
func (r *sqlitePolicyRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.queries.Get("count-policies", &count); err != nil {
		return 0, fmt.Errorf("failed to count policies: %w", err)
	}
	return count, nil
}

func (row sqlitePolicyRow) toDomain() (domain.PolicyRecord, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return domain.PolicyRecord{}, fmt.Errorf("failed to parse policy id %q: %w", row.ID, err)
	}
	startDate, err := time.Parse(sqliteDateLayout, row.StartDate)
	if err != nil {
		return domain.PolicyRecord{}, fmt.Errorf("failed to parse start_date %q: %w", row.StartDate, err)
	}
	endDate, err := time.Parse(sqliteDateLayout, row.EndDate)
	if err != nil {
		return domain.PolicyRecord{}, fmt.Errorf("failed to parse end_date %q: %w", row.EndDate, err)
	}
	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return domain.PolicyRecord{}, fmt.Errorf("failed to parse created_at %q: %w", row.CreatedAt, err)
	}
	updatedAt, err := time.Parse(time.RFC3339, row.UpdatedAt)
	if err != nil {
		return domain.PolicyRecord{}, fmt.Errorf("failed to parse updated_at %q: %w", row.UpdatedAt, err)
	}

	return domain.PolicyRecord{
		ID:              id,
		PolicyNumber:    row.PolicyNumber,
		Customer:        row.Customer,
		PolicyType:      domain.PolicyType(row.PolicyType),
		StartDate:       startDate,
		EndDate:         endDate,
		PremiumUSD:      row.PremiumUSD,
		InsuredValueUSD: row.InsuredValueUSD,
		Status:          domain.PolicyStatus(row.Status),
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}
