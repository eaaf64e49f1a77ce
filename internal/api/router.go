package api

import (
	"log/slog"
	"net/http"

	"github.com/coverline/polimport/internal/middleware"
	"github.com/coverline/polimport/internal/repository"

	"github.com/rs/cors"
)

// NewRouter assembles the HTTP surface: the batch upload endpoint plus the
// read side, wrapped in correlation, logging, and CORS middleware.
func NewRouter(
	logger *slog.Logger,
	policies repository.PolicyRepository,
	operations repository.OperationRepository,
	upload http.Handler,
	allowedOrigins []string,
) http.Handler {
	h := &handlers{policies: policies, operations: operations}

	mux := http.NewServeMux()
	mux.Handle("POST /api/policies/upload", upload)
	mux.HandleFunc("GET /api/policies", h.listPolicies)
	mux.HandleFunc("GET /api/policies/{policyNumber}", h.getPolicy)
	mux.HandleFunc("GET /api/operations", h.listOperations)
	mux.HandleFunc("GET /api/operations/{id}", h.getOperation)
	mux.HandleFunc("GET /healthz", h.health)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	return middleware.CorrelationID(
		middleware.RequestLogger(logger)(
			corsHandler.Handler(mux),
		),
	)
}
