package ingestion

import (
	"fmt"
	"strconv"
	"time"

	"github.com/coverline/polimport/internal/domain"
)

const dateLayout = "2006-01-02"

// ValidateTechnical checks the structural correctness of a single row: required
// fields, parseable dates, enum membership, and non-negative numbers. It is a
// pure function and collects every failure instead of stopping at the first.
func ValidateTechnical(row RawRow) []domain.ValidationError {
	var errs []domain.ValidationError

	add := func(field, code, message string) {
		errs = append(errs, domain.ValidationError{
			RowNumber: row.Number,
			Field:     field,
			Code:      code,
			Message:   message,
		})
	}

	for _, field := range []string{"policy_number", "customer"} {
		if row.Get(field) == "" {
			add(field, domain.CodeRequiredField, fmt.Sprintf("%s is required", field))
		}
	}

	startDate, startErr := time.Parse(dateLayout, row.Get("start_date"))
	if startErr != nil {
		add("start_date", domain.CodeInvalidDateFormat, fmt.Sprintf("expected %s date", dateLayout))
	}
	endDate, endErr := time.Parse(dateLayout, row.Get("end_date"))
	if endErr != nil {
		add("end_date", domain.CodeInvalidDateFormat, fmt.Sprintf("expected %s date", dateLayout))
	}
	// The range is only checkable once both dates parsed. Equal dates are
	// invalid: a policy term must be non-empty.
	if startErr == nil && endErr == nil && !startDate.Before(endDate) {
		add("start_date", domain.CodeInvalidDateRange, "start_date must be strictly before end_date")
	}

	if _, ok := domain.ParsePolicyStatus(row.Get("status")); !ok {
		add("status", domain.CodeInvalidStatus, "status must be one of active, expired, cancelled")
	}

	if _, ok := domain.ParsePolicyType(row.Get("policy_type")); !ok {
		add("policy_type", domain.CodeInvalidPolicyType, "policy_type must be one of Property, Auto, Life, Health")
	}

	for _, field := range []string{"premium_usd", "insured_value_usd"} {
		value, err := strconv.ParseFloat(row.Get(field), 64)
		if err != nil || value < 0 {
			add(field, domain.CodeInvalidNumber, fmt.Sprintf("%s must be a non-negative number", field))
		}
	}

	return errs
}
