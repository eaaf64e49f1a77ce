package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/coverline/polimport/internal/repository"

	"github.com/google/uuid"
)

// handlers serves the read side of the API: stored policies and the upload
// audit trail.
type handlers struct {
	policies   repository.PolicyRepository
	operations repository.OperationRepository
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listPolicies(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	policies, total, err := h.policies.List(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"policies":    policies,
		"total_count": total,
		"limit":       limit,
		"offset":      offset,
	})
}

func (h *handlers) getPolicy(w http.ResponseWriter, r *http.Request) {
	policyNumber := r.PathValue("policyNumber")

	record, err := h.policies.GetByPolicyNumber(r.Context(), policyNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "policy not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *handlers) listOperations(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	operations, err := h.operations.List(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"operations": operations,
		"limit":      limit,
		"offset":     offset,
	})
}

func (h *handlers) getOperation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid operation id", http.StatusBadRequest)
		return
	}

	record, err := h.operations.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "operation not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func pagination(r *http.Request) (limit int, offset int) {
	limit = 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
