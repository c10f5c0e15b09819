package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"archivist/internal/repositories"
)

// HealthHandler reports service and dependency health
type HealthHandler struct {
	documentRepo repositories.DocumentRepository
	vectorRepo   repositories.VectorRepository
	logger       *log.Logger
}

// NewHealthHandler creates a new health handler. Either repository may be
// nil when the corresponding backend is not configured.
func NewHealthHandler(documentRepo repositories.DocumentRepository, vectorRepo repositories.VectorRepository, logger *log.Logger) *HealthHandler {
	return &HealthHandler{
		documentRepo: documentRepo,
		vectorRepo:   vectorRepo,
		logger:       logger,
	}
}

// Health reports liveness of the service and its storage backends
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"service": "ok"}
	healthy := true

	if h.documentRepo != nil {
		if err := h.documentRepo.Ping(r.Context()); err != nil {
			status["document_store"] = "unavailable: " + err.Error()
			healthy = false
		} else {
			status["document_store"] = "ok"
		}
	} else {
		status["document_store"] = "not configured"
	}

	if h.vectorRepo != nil {
		if err := h.vectorRepo.Ping(r.Context()); err != nil {
			status["vector_index"] = "unavailable: " + err.Error()
			healthy = false
		} else {
			status["vector_index"] = "ok"
		}
	} else {
		status["vector_index"] = "not configured"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.logger.Printf("Failed to encode health response: %v", err)
	}
}
