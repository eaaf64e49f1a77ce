package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coverline/polimport/internal/middleware"
)

// Handler exposes the batch upload as an HTTP endpoint.
type Handler struct {
	service  *Service
	maxBytes int64
}

// NewHTTPHandler wraps the service with a POST endpoint. maxBytes caps the
// request body; uploads beyond it are rejected before parsing.
func NewHTTPHandler(service *Service, maxBytes int64) http.Handler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Handler{service: service, maxBytes: maxBytes}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	req := Request{
		FileName:      header.Filename,
		CorrelationID: middleware.CorrelationIDFromContext(r.Context()),
		Data:          file,
	}

	result, err := h.service.Ingest(r.Context(), req)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeIngestError maps service failures onto status codes: unsupported or
// malformed uploads are client errors, batch-fatal failures are server errors
// carrying the tracing identifiers.
func writeIngestError(w http.ResponseWriter, err error) {
	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		if errors.Is(batchErr.Err, ErrUnsupportedFormat) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"operation_id":   batchErr.OperationID,
				"correlation_id": batchErr.CorrelationID,
				"error":          batchErr.Err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"operation_id":   batchErr.OperationID,
			"correlation_id": batchErr.CorrelationID,
			"error":          batchErr.Err.Error(),
		})
		return
	}

	http.Error(w, err.Error(), http.StatusBadRequest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
