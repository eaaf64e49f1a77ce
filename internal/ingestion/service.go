package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/coverline/polimport/internal/domain"
	"github.com/coverline/polimport/internal/repository"

	"github.com/google/uuid"
)

// UploadEndpoint is the endpoint name recorded on every upload operation.
const UploadEndpoint = "/api/policies/upload"

// errorSummaryLimit bounds the audit-record error summary. The response error
// list is never truncated; only the persisted summary is.
const errorSummaryLimit = 50

// Service drives the per-row upload pipeline: parse, technical validation,
// normalization, business validation, upsert. Rows are processed strictly in
// input order, one at a time, so duplicate policy numbers within a batch
// resolve last-row-wins and error attribution is stable.
type Service struct {
	policies   repository.PolicyRepository
	operations repository.OperationRepository
	engine     *Engine
	logger     *slog.Logger
}

// NewService wires the orchestrator. A nil engine gets the default rule set;
// a nil logger falls back to slog.Default.
func NewService(
	policies repository.PolicyRepository,
	operations repository.OperationRepository,
	engine *Engine,
	logger *slog.Logger,
) *Service {
	if engine == nil {
		engine = NewEngine(DefaultRules()...)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		policies:   policies,
		operations: operations,
		engine:     engine,
		logger:     logger,
	}
}

// Request describes one batch upload.
type Request struct {
	FileName      string
	CorrelationID string
	Data          io.Reader
}

// Outcome is the three-way batch classification. Callers can rely on
// distinguishing all three cases, not just success/failure.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomePartial  Outcome = "partial"
	OutcomeRejected Outcome = "rejected"
)

// ClassifyOutcome derives the batch outcome from the three counters. An empty
// batch is a vacuous success.
func ClassifyOutcome(inserted, updated, rejected int) Outcome {
	total := inserted + updated + rejected
	switch {
	case rejected == 0:
		return OutcomeSuccess
	case rejected == total && total > 0:
		return OutcomeRejected
	default:
		return OutcomePartial
	}
}

// Result is the batch response payload. UpdatedPolicyNumbers names the natural
// keys of every row that overwrote existing data.
type Result struct {
	OperationID          uuid.UUID                `json:"operation_id"`
	CorrelationID        string                   `json:"correlation_id"`
	Outcome              Outcome                  `json:"outcome"`
	InsertedCount        int                      `json:"inserted_count"`
	UpdatedCount         int                      `json:"updated_count"`
	RejectedCount        int                      `json:"rejected_count"`
	Errors               []domain.ValidationError `json:"errors"`
	UpdatedPolicyNumbers []string                 `json:"updated_policy_numbers"`
}

// BatchError is a batch-fatal failure, carrying the operation and correlation
// identifiers so callers can trace the failed upload.
type BatchError struct {
	OperationID   uuid.UUID
	CorrelationID string
	Err           error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch upload failed (operation %s, correlation %s): %v", e.OperationID, e.CorrelationID, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Ingest processes one uploaded batch. Row-level validation failures are
// recovered locally and reported in the result; parse failures and persistence
// failures abort the whole batch and transition the operation to FAILED.
func (s *Service) Ingest(ctx context.Context, req Request) (Result, error) {
	result := Result{
		Errors:               []domain.ValidationError{},
		UpdatedPolicyNumbers: []string{},
	}

	if req.Data == nil {
		return result, errors.New("data reader is required")
	}

	correlationID := strings.TrimSpace(req.CorrelationID)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	op, err := s.operations.Create(ctx, UploadEndpoint, correlationID)
	if err != nil {
		return result, fmt.Errorf("failed to create operation record: %w", err)
	}
	started := time.Now()
	result.OperationID = op.ID
	result.CorrelationID = correlationID

	if _, err := s.operations.Update(ctx, op.ID, repository.OperationUpdate{
		Status: statusPtr(domain.OperationStatusProcessing),
	}); err != nil {
		return result, fmt.Errorf("failed to transition operation to processing: %w", err)
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return result, s.fail(ctx, op.ID, correlationID, started, fmt.Errorf("failed to read upload: %w", err))
	}
	if len(payload) == 0 {
		return result, s.fail(ctx, op.ID, correlationID, started, errors.New("file is empty"))
	}

	rows, err := parseUpload(req.FileName, payload)
	if err != nil {
		return result, s.fail(ctx, op.ID, correlationID, started, err)
	}

	for _, row := range rows {
		if techErrs := ValidateTechnical(row); len(techErrs) > 0 {
			result.Errors = append(result.Errors, techErrs...)
			continue
		}

		record := Normalize(row)

		if ruleErrs := s.engine.Validate(record, row.Number); len(ruleErrs) > 0 {
			result.Errors = append(result.Errors, ruleErrs...)
			continue
		}

		persisted, wasUpdate, err := s.policies.Upsert(ctx, record)
		if err != nil {
			// A single failed upsert fails the whole batch; already-committed
			// rows stay durable but their counts are not reported.
			return result, s.fail(ctx, op.ID, correlationID, started,
				fmt.Errorf("failed to upsert policy %s: %w", record.PolicyNumber, err))
		}
		if wasUpdate {
			result.UpdatedCount++
			result.UpdatedPolicyNumbers = append(result.UpdatedPolicyNumbers, persisted.PolicyNumber)
		} else {
			result.InsertedCount++
		}
	}

	result.RejectedCount = len(rows) - result.InsertedCount - result.UpdatedCount
	result.Outcome = ClassifyOutcome(result.InsertedCount, result.UpdatedCount, result.RejectedCount)

	durationMs := time.Since(started).Milliseconds()
	summary := summarizeErrors(result.Errors)
	if _, err := s.operations.Update(ctx, op.ID, repository.OperationUpdate{
		Status:       statusPtr(domain.OperationStatusCompleted),
		RowsInserted: &result.InsertedCount,
		RowsUpdated:  &result.UpdatedCount,
		RowsRejected: &result.RejectedCount,
		DurationMs:   &durationMs,
		ErrorSummary: &summary,
	}); err != nil {
		// The rows are already durable; a lost audit update does not void the batch.
		s.logger.Warn("failed to finalize operation record",
			"operation_id", op.ID, "correlation_id", correlationID, "error", err)
	}

	s.logger.Info("batch upload processed",
		"operation_id", op.ID,
		"correlation_id", correlationID,
		"outcome", result.Outcome,
		"inserted", result.InsertedCount,
		"updated", result.UpdatedCount,
		"rejected", result.RejectedCount,
		"duration_ms", durationMs,
	)

	return result, nil
}

// fail transitions the operation to FAILED and wraps the cause with tracing
// identifiers.
func (s *Service) fail(ctx context.Context, opID uuid.UUID, correlationID string, started time.Time, cause error) error {
	durationMs := time.Since(started).Milliseconds()
	message := cause.Error()
	if _, err := s.operations.Update(ctx, opID, repository.OperationUpdate{
		Status:       statusPtr(domain.OperationStatusFailed),
		DurationMs:   &durationMs,
		ErrorSummary: &message,
	}); err != nil {
		s.logger.Error("failed to mark operation as failed",
			"operation_id", opID, "correlation_id", correlationID, "error", err)
	}
	return &BatchError{OperationID: opID, CorrelationID: correlationID, Err: cause}
}

// summarizeErrors serializes up to the first errorSummaryLimit errors for the
// audit record.
func summarizeErrors(errs []domain.ValidationError) string {
	if len(errs) == 0 {
		return ""
	}
	trimmed := errs
	if len(trimmed) > errorSummaryLimit {
		trimmed = trimmed[:errorSummaryLimit]
	}
	data, err := json.Marshal(trimmed)
	if err != nil {
		return fmt.Sprintf("%d validation errors", len(errs))
	}
	return string(data)
}

func statusPtr(status domain.OperationStatus) *domain.OperationStatus {
	return &status
}
