package domain

import (
	"time"

	"github.com/google/uuid"
)

// PolicyType classifies what a policy insures.
type PolicyType string

const (
	PolicyTypeProperty PolicyType = "Property"
	PolicyTypeAuto     PolicyType = "Auto"
	PolicyTypeLife     PolicyType = "Life"
	PolicyTypeHealth   PolicyType = "Health"
)

// PolicyTypes lists every valid policy type, in display order.
func PolicyTypes() []PolicyType {
	return []PolicyType{PolicyTypeProperty, PolicyTypeAuto, PolicyTypeLife, PolicyTypeHealth}
}

// ParsePolicyType matches a raw value against the known policy types.
// Matching is exact case; "property" is not a valid type.
func ParsePolicyType(raw string) (PolicyType, bool) {
	switch PolicyType(raw) {
	case PolicyTypeProperty, PolicyTypeAuto, PolicyTypeLife, PolicyTypeHealth:
		return PolicyType(raw), true
	}
	return "", false
}

// PolicyStatus tracks the lifecycle state of a policy.
type PolicyStatus string

const (
	PolicyStatusActive    PolicyStatus = "active"
	PolicyStatusExpired   PolicyStatus = "expired"
	PolicyStatusCancelled PolicyStatus = "cancelled"
)

// ParsePolicyStatus matches a raw value against the known statuses (exact case).
func ParsePolicyStatus(raw string) (PolicyStatus, bool) {
	switch PolicyStatus(raw) {
	case PolicyStatusActive, PolicyStatusExpired, PolicyStatusCancelled:
		return PolicyStatus(raw), true
	}
	return "", false
}

// PolicyRecord is the validated, typed form of one insurance policy.
// PolicyNumber is the natural unique key; ID and CreatedAt are assigned by the
// persistence layer on first insert.
type PolicyRecord struct {
	ID              uuid.UUID    `json:"id"`
	PolicyNumber    string       `json:"policy_number"`
	Customer        string       `json:"customer"`
	PolicyType      PolicyType   `json:"policy_type"`
	StartDate       time.Time    `json:"start_date"`
	EndDate         time.Time    `json:"end_date"`
	PremiumUSD      float64      `json:"premium_usd"`
	InsuredValueUSD float64      `json:"insured_value_usd"`
	Status          PolicyStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
