package ingestion

import (
	"fmt"

	"github.com/coverline/polimport/internal/domain"
)

// Rule is one independent business constraint. A rule selects the records it
// constrains via AppliesTo and judges them via Validate; Code, Field and
// Message are fixed per rule and describe the violation it reports.
//
// Rules must not depend on each other: the engine runs all of them and the
// registration order never changes the outcome.
type Rule interface {
	Code() string
	Field() string
	Message() string
	AppliesTo(record domain.PolicyRecord) bool
	Validate(record domain.PolicyRecord) bool
}

// Engine evaluates a fixed set of rules against normalized records. The rule
// list is built once at construction; adding a rule is a registration change
// only, the engine itself never needs touching.
type Engine struct {
	rules []Rule
}

// NewEngine builds an engine over an explicit rule list.
func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// Validate runs every rule and collects all violations. A record can violate
// several independent rules at once; all of them are reported.
func (e *Engine) Validate(record domain.PolicyRecord, rowNumber int) []domain.ValidationError {
	var errs []domain.ValidationError
	for _, rule := range e.rules {
		if violation := execute(rule, record, rowNumber); violation != nil {
			errs = append(errs, *violation)
		}
	}
	return errs
}

// execute applies one rule to one record: nil when the rule does not apply or
// the record complies, otherwise the rule's fixed violation.
func execute(rule Rule, record domain.PolicyRecord, rowNumber int) *domain.ValidationError {
	if !rule.AppliesTo(record) {
		return nil
	}
	if rule.Validate(record) {
		return nil
	}
	return &domain.ValidationError{
		RowNumber: rowNumber,
		Field:     rule.Field(),
		Code:      rule.Code(),
		Message:   rule.Message(),
	}
}

// DefaultRules returns the stock rule set: minimum insured values per policy
// type. Life and Health carry no minimum.
func DefaultRules() []Rule {
	return []Rule{
		&MinimumInsuredValueRule{
			PolicyType: domain.PolicyTypeProperty,
			Minimum:    5000,
			ErrorCode:  domain.CodePropertyValueTooLow,
		},
		&MinimumInsuredValueRule{
			PolicyType: domain.PolicyTypeAuto,
			Minimum:    10000,
			ErrorCode:  domain.CodeAutoValueTooLow,
		},
	}
}

// MinimumInsuredValueRule rejects policies of one type whose insured value is
// below a fixed floor.
type MinimumInsuredValueRule struct {
	PolicyType domain.PolicyType
	Minimum    float64
	ErrorCode  string
}

func (r *MinimumInsuredValueRule) Code() string  { return r.ErrorCode }
func (r *MinimumInsuredValueRule) Field() string { return "insured_value_usd" }

func (r *MinimumInsuredValueRule) Message() string {
	return fmt.Sprintf("%s policies require an insured value of at least %.0f", r.PolicyType, r.Minimum)
}

func (r *MinimumInsuredValueRule) AppliesTo(record domain.PolicyRecord) bool {
	return record.PolicyType == r.PolicyType
}

func (r *MinimumInsuredValueRule) Validate(record domain.PolicyRecord) bool {
	return record.InsuredValueUSD >= r.Minimum
}
