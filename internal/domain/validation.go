package domain

// Validation error codes shared by the technical validator and the business
// rule engine. A row carries errors from exactly one of the two layers.
const (
	CodeRequiredField     = "REQUIRED_FIELD"
	CodeInvalidDateFormat = "INVALID_DATE_FORMAT"
	CodeInvalidDateRange  = "INVALID_DATE_RANGE"
	CodeInvalidStatus     = "INVALID_STATUS"
	CodeInvalidPolicyType = "INVALID_POLICY_TYPE"
	CodeInvalidNumber     = "INVALID_NUMBER"

	CodePropertyValueTooLow = "PROPERTY_VALUE_TOO_LOW"
	CodeAutoValueTooLow     = "AUTO_VALUE_TOO_LOW"
)

// ValidationError attributes one rejected value to the data row it came from.
// RowNumber is 1-based over data rows, header and blank lines excluded.
type ValidationError struct {
	RowNumber int    `json:"row_number"`
	Field     string `json:"field"`
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
}
