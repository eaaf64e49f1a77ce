package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/coverline/polimport/internal/domain"
	"github.com/coverline/polimport/internal/repository"

	"github.com/google/uuid"
)

func newTestService(policies *stubPolicyRepo, operations *stubOperationRepo) *Service {
	return NewService(policies, operations, nil, nil)
}

func ingestCSV(t *testing.T, service *Service, data string) Result {
	t.Helper()
	result, err := service.Ingest(context.Background(), Request{
		FileName:      "policies.csv",
		CorrelationID: "corr-test",
		Data:          strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}
	return result
}

func TestIngestSingleValidPropertyRow(t *testing.T) {
	policies := &stubPolicyRepo{}
	operations := &stubOperationRepo{}
	service := newTestService(policies, operations)

	data := csvHeader + "\nPN-001,Acme Corp,Property,2024-01-01,2025-01-01,1200.50,active,5000\n"
	result := ingestCSV(t, service, data)

	if result.InsertedCount != 1 || result.UpdatedCount != 0 || result.RejectedCount != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected success outcome, got %s", result.Outcome)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %+v", result.Errors)
	}
	if result.CorrelationID != "corr-test" {
		t.Fatalf("expected correlation id to round-trip, got %q", result.CorrelationID)
	}

	stored, err := policies.GetByPolicyNumber(context.Background(), "PN-001")
	if err != nil {
		t.Fatalf("stored policy not found: %v", err)
	}
	if stored.PolicyType != domain.PolicyTypeProperty || stored.InsuredValueUSD != 5000 {
		t.Fatalf("unexpected stored record: %+v", stored)
	}

	operations.assertStatusSequence(t,
		domain.OperationStatusReceived,
		domain.OperationStatusProcessing,
		domain.OperationStatusCompleted,
	)
	if operations.current.RowsInserted != 1 || operations.current.RowsRejected != 0 {
		t.Fatalf("operation counts not finalized: %+v", operations.current)
	}
}

func TestIngestPropertyBelowMinimumIsRejected(t *testing.T) {
	policies := &stubPolicyRepo{}
	operations := &stubOperationRepo{}
	service := newTestService(policies, operations)

	data := csvHeader + "\nPN-001,Acme Corp,Property,2024-01-01,2025-01-01,1200.50,active,4999\n"
	result := ingestCSV(t, service, data)

	if result.RejectedCount != 1 || result.InsertedCount != 0 || result.UpdatedCount != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Outcome != OutcomeRejected {
		t.Fatalf("expected rejected outcome, got %s", result.Outcome)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %+v", result.Errors)
	}
	err := result.Errors[0]
	if err.Field != "insured_value_usd" || err.Code != domain.CodePropertyValueTooLow || err.RowNumber != 1 {
		t.Fatalf("unexpected error: %+v", err)
	}
	if len(policies.order) != 0 {
		t.Fatalf("rejected row must not be persisted")
	}
}

func TestIngestDuplicatePolicyNumberLastRowWins(t *testing.T) {
	policies := &stubPolicyRepo{}
	operations := &stubOperationRepo{}
	service := newTestService(policies, operations)

	data := csvHeader + "\n" +
		"PN-001,Acme Corp,Life,2024-01-01,2025-01-01,100,active,0\n" +
		"PN-001,Acme Corp,Life,2024-01-01,2025-01-01,250,active,0\n"
	result := ingestCSV(t, service, data)

	if result.InsertedCount != 1 || result.UpdatedCount != 1 || result.RejectedCount != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.UpdatedPolicyNumbers) != 1 || result.UpdatedPolicyNumbers[0] != "PN-001" {
		t.Fatalf("expected PN-001 in updated policy numbers, got %+v", result.UpdatedPolicyNumbers)
	}

	stored, _ := policies.GetByPolicyNumber(context.Background(), "PN-001")
	if stored.PremiumUSD != 250 {
		t.Fatalf("expected last row to win, stored premium %v", stored.PremiumUSD)
	}
}

func TestIngestEqualDatesRejected(t *testing.T) {
	policies := &stubPolicyRepo{}
	operations := &stubOperationRepo{}
	service := newTestService(policies, operations)

	data := csvHeader + "\nPN-001,Acme Corp,Life,2024-01-01,2024-01-01,100,active,0\n"
	result := ingestCSV(t, service, data)

	if result.RejectedCount != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].Code != domain.CodeInvalidDateRange {
		t.Fatalf("expected INVALID_DATE_RANGE, got %+v", result.Errors)
	}
}

func TestIngestHeaderOnlyIsVacuousSuccess(t *testing.T) {
	policies := &stubPolicyRepo{}
	operations := &stubOperationRepo{}
	service := newTestService(policies, operations)

	result := ingestCSV(t, service, csvHeader+"\n")

	if result.InsertedCount != 0 || result.UpdatedCount != 0 || result.RejectedCount != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected vacuous success, got %s", result.Outcome)
	}
	operations.assertStatusSequence(t,
		domain.OperationStatusReceived,
		domain.OperationStatusProcessing,
		domain.OperationStatusCompleted,
	)
}

func TestIngestSameFileTwiceIsIdempotent(t *testing.T) {
	policies := &stubPolicyRepo{}
	operations := &stubOperationRepo{}
	service := newTestService(policies, operations)

	data := csvHeader + "\n" +
		"PN-001,Acme Corp,Property,2024-01-01,2025-01-01,100,active,6000\n" +
		"PN-002,Globex,Auto,2024-01-01,2025-01-01,100,active,15000\n"

	first := ingestCSV(t, service, data)
	if first.InsertedCount != 2 || first.UpdatedCount != 0 {
		t.Fatalf("unexpected first upload counts: %+v", first)
	}

	second := ingestCSV(t, service, data)
	if second.InsertedCount != 0 || second.UpdatedCount != 2 || second.RejectedCount != 0 {
		t.Fatalf("unexpected second upload counts: %+v", second)
	}
	if len(second.UpdatedPolicyNumbers) != 2 {
		t.Fatalf("expected both policy numbers reported as updated, got %+v", second.UpdatedPolicyNumbers)
	}
	if len(policies.order) != 2 {
		t.Fatalf("expected 2 stored policies, got %d", len(policies.order))
	}
}

func TestIngestMixedBatchIsPartial(t *testing.T) {
	policies := &stubPolicyRepo{}
	operations := &stubOperationRepo{}
	service := newTestService(policies, operations)

	data := csvHeader + "\n" +
		"PN-001,Acme Corp,Property,2024-01-01,2025-01-01,100,active,6000\n" +
		"PN-002,Globex,Property,2024-01-01,2025-01-01,100,active,100\n"
	result := ingestCSV(t, service, data)

	if result.Outcome != OutcomePartial {
		t.Fatalf("expected partial outcome, got %s", result.Outcome)
	}
	if result.InsertedCount+result.UpdatedCount+result.RejectedCount != 2 {
		t.Fatalf("counts do not sum to total: %+v", result)
	}
}

func TestIngestTechnicalAndBusinessErrorsAreMutuallyExclusive(t *testing.T) {
	policies := &stubPolicyRepo{}
	operations := &stubOperationRepo{}
	service := newTestService(policies, operations)

	// Bad date AND an insured value that would violate the property minimum:
	// only technical errors may surface, the row never reaches the rule engine.
	data := csvHeader + "\nPN-001,Acme Corp,Property,not-a-date,2025-01-01,100,active,100\n"
	result := ingestCSV(t, service, data)

	if len(result.Errors) == 0 {
		t.Fatalf("expected errors")
	}
	for _, err := range result.Errors {
		if err.Code == domain.CodePropertyValueTooLow {
			t.Fatalf("business error reported for technically invalid row: %+v", result.Errors)
		}
	}
}

func TestIngestBlankLinesKeepRowNumbersStable(t *testing.T) {
	policies := &stubPolicyRepo{}
	operations := &stubOperationRepo{}
	service := newTestService(policies, operations)

	data := csvHeader + "\n" +
		"PN-001,Acme Corp,Life,2024-01-01,2025-01-01,100,active,0\n" +
		"\n" +
		"PN-002,,Life,2024-01-01,2025-01-01,100,active,0\n"
	result := ingestCSV(t, service, data)

	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %+v", result.Errors)
	}
	if result.Errors[0].RowNumber != 2 {
		t.Fatalf("expected error on row 2, got %d", result.Errors[0].RowNumber)
	}
}

func TestIngestParseFailureFailsBatch(t *testing.T) {
	policies := &stubPolicyRepo{}
	operations := &stubOperationRepo{}
	service := newTestService(policies, operations)

	data := csvHeader + "\nPN-001,\"broken,Property,2024-01-01,2025-01-01,100,active,6000\nPN-002,x,y\n"
	_, err := service.Ingest(context.Background(), Request{
		FileName: "policies.csv",
		Data:     strings.NewReader(data),
	})

	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected BatchError, got %v", err)
	}
	if batchErr.OperationID == uuid.Nil || batchErr.CorrelationID == "" {
		t.Fatalf("batch error must carry tracing identifiers: %+v", batchErr)
	}
	operations.assertStatusSequence(t,
		domain.OperationStatusReceived,
		domain.OperationStatusProcessing,
		domain.OperationStatusFailed,
	)
	if len(policies.order) != 0 {
		t.Fatalf("no rows may persist on parse failure")
	}
}

func TestIngestPersistenceFailureFailsBatch(t *testing.T) {
	policies := &stubPolicyRepo{failOn: "PN-002"}
	operations := &stubOperationRepo{}
	service := newTestService(policies, operations)

	data := csvHeader + "\n" +
		"PN-001,Acme Corp,Life,2024-01-01,2025-01-01,100,active,0\n" +
		"PN-002,Globex,Life,2024-01-01,2025-01-01,100,active,0\n"
	_, err := service.Ingest(context.Background(), Request{
		FileName: "policies.csv",
		Data:     strings.NewReader(data),
	})

	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected BatchError, got %v", err)
	}
	operations.assertStatusSequence(t,
		domain.OperationStatusReceived,
		domain.OperationStatusProcessing,
		domain.OperationStatusFailed,
	)
	// The first row stays durable even though the batch failed.
	if _, err := policies.GetByPolicyNumber(context.Background(), "PN-001"); err != nil {
		t.Fatalf("first row should remain persisted: %v", err)
	}
}

func TestIngestErrorSummaryIsBounded(t *testing.T) {
	policies := &stubPolicyRepo{}
	operations := &stubOperationRepo{}
	service := newTestService(policies, operations)

	var sb strings.Builder
	sb.WriteString(csvHeader + "\n")
	for i := 0; i < 60; i++ {
		// Every row missing the customer field.
		sb.WriteString(fmt.Sprintf("PN-%03d,,Life,2024-01-01,2025-01-01,100,active,0\n", i))
	}
	result := ingestCSV(t, service, sb.String())

	// The response error list is complete, the audit summary is capped.
	if len(result.Errors) != 60 {
		t.Fatalf("expected 60 errors in response, got %d", len(result.Errors))
	}
	if strings.Count(operations.current.ErrorSummary, "REQUIRED_FIELD") != 50 {
		t.Fatalf("expected audit summary capped at 50 entries, got %d",
			strings.Count(operations.current.ErrorSummary, "REQUIRED_FIELD"))
	}
}

func TestIngestMintsCorrelationIDWhenAbsent(t *testing.T) {
	policies := &stubPolicyRepo{}
	operations := &stubOperationRepo{}
	service := newTestService(policies, operations)

	result, err := service.Ingest(context.Background(), Request{
		FileName: "policies.csv",
		Data:     strings.NewReader(csvHeader + "\n"),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}
	if result.CorrelationID == "" {
		t.Fatalf("expected a minted correlation id")
	}
	if _, err := uuid.Parse(result.CorrelationID); err != nil {
		t.Fatalf("minted correlation id is not a uuid: %q", result.CorrelationID)
	}
}

// stubPolicyRepo keeps policies in memory, keyed by policy number.
type stubPolicyRepo struct {
	records map[string]domain.PolicyRecord
	order   []string
	failOn  string
}

func (s *stubPolicyRepo) Upsert(ctx context.Context, record domain.PolicyRecord) (domain.PolicyRecord, bool, error) {
	if s.failOn != "" && record.PolicyNumber == s.failOn {
		return domain.PolicyRecord{}, false, errors.New("simulated persistence failure")
	}
	if s.records == nil {
		s.records = make(map[string]domain.PolicyRecord)
	}

	existing, wasUpdate := s.records[record.PolicyNumber]
	if wasUpdate {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	} else {
		record.ID = uuid.New()
		s.order = append(s.order, record.PolicyNumber)
	}
	s.records[record.PolicyNumber] = record
	return record, wasUpdate, nil
}

func (s *stubPolicyRepo) GetByPolicyNumber(ctx context.Context, policyNumber string) (domain.PolicyRecord, error) {
	record, ok := s.records[policyNumber]
	if !ok {
		return domain.PolicyRecord{}, repository.ErrNotFound
	}
	return record, nil
}

func (s *stubPolicyRepo) List(ctx context.Context, limit int, offset int) ([]domain.PolicyRecord, int, error) {
	records := make([]domain.PolicyRecord, 0, len(s.order))
	for _, policyNumber := range s.order {
		records = append(records, s.records[policyNumber])
	}
	return records, len(records), nil
}

func (s *stubPolicyRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(s.records)), nil
}

// stubOperationRepo records the operation lifecycle for assertions.
type stubOperationRepo struct {
	current  domain.OperationRecord
	statuses []domain.OperationStatus
}

func (s *stubOperationRepo) Create(ctx context.Context, endpoint string, correlationID string) (domain.OperationRecord, error) {
	s.current = domain.OperationRecord{
		ID:            uuid.New(),
		Endpoint:      endpoint,
		Status:        domain.OperationStatusReceived,
		CorrelationID: correlationID,
	}
	s.statuses = append(s.statuses, domain.OperationStatusReceived)
	return s.current, nil
}

func (s *stubOperationRepo) Update(ctx context.Context, id uuid.UUID, fields repository.OperationUpdate) (domain.OperationRecord, error) {
	if fields.Status != nil {
		s.current.Status = *fields.Status
		s.statuses = append(s.statuses, *fields.Status)
	}
	if fields.RowsInserted != nil {
		s.current.RowsInserted = *fields.RowsInserted
	}
	if fields.RowsUpdated != nil {
		s.current.RowsUpdated = *fields.RowsUpdated
	}
	if fields.RowsRejected != nil {
		s.current.RowsRejected = *fields.RowsRejected
	}
	if fields.DurationMs != nil {
		s.current.DurationMs = *fields.DurationMs
	}
	if fields.ErrorSummary != nil {
		s.current.ErrorSummary = *fields.ErrorSummary
	}
	return s.current, nil
}

func (s *stubOperationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.OperationRecord, error) {
	return s.current, nil
}

func (s *stubOperationRepo) List(ctx context.Context, limit int, offset int) ([]domain.OperationRecord, error) {
	return []domain.OperationRecord{s.current}, nil
}

func (s *stubOperationRepo) assertStatusSequence(t *testing.T, want ...domain.OperationStatus) {
	t.Helper()
	if len(s.statuses) != len(want) {
		t.Fatalf("expected status sequence %v, got %v", want, s.statuses)
	}
	for i := range want {
		if s.statuses[i] != want[i] {
			t.Fatalf("expected status sequence %v, got %v", want, s.statuses)
		}
	}
}

var _ repository.PolicyRepository = (*stubPolicyRepo)(nil)
var _ repository.OperationRepository = (*stubOperationRepo)(nil)
