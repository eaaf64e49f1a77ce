package ingestion

import (
	"strconv"
	"time"

	"github.com/coverline/polimport/internal/domain"
)

// Normalize converts a technically-valid raw row into a typed policy record.
// It is only called after ValidateTechnical returned no errors, so every parse
// here is assumed to succeed.
func Normalize(row RawRow) domain.PolicyRecord {
	startDate, _ := time.Parse(dateLayout, row.Get("start_date"))
	endDate, _ := time.Parse(dateLayout, row.Get("end_date"))
	premium, _ := strconv.ParseFloat(row.Get("premium_usd"), 64)
	insuredValue, _ := strconv.ParseFloat(row.Get("insured_value_usd"), 64)
	policyType, _ := domain.ParsePolicyType(row.Get("policy_type"))
	status, _ := domain.ParsePolicyStatus(row.Get("status"))

	return domain.PolicyRecord{
		PolicyNumber:    row.Get("policy_number"),
		Customer:        row.Get("customer"),
		PolicyType:      policyType,
		StartDate:       startDate,
		EndDate:         endDate,
		PremiumUSD:      premium,
		InsuredValueUSD: insuredValue,
		Status:          status,
	}
}
