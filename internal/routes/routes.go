package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"archivist/internal/handlers"
)

// Handlers collects all route handlers for registration
type Handlers struct {
	Health   *handlers.HealthHandler
	Chat     *handlers.ChatHandler
	Document *handlers.DocumentHandler
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(router *mux.Router, h *Handlers) {
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	if h.Chat != nil {
		api.HandleFunc("/chat", h.Chat.Chat).Methods(http.MethodPost)
		api.HandleFunc("/chat/stream", h.Chat.ChatStream).Methods(http.MethodPost)
	}

	if h.Document != nil {
		api.HandleFunc("/collections", h.Document.CreateCollection).Methods(http.MethodPost)
		api.HandleFunc("/collections/{collectionId}/documents", h.Document.UploadDocument).Methods(http.MethodPost)
		api.HandleFunc("/collections/{collectionId}/documents", h.Document.ListDocuments).Methods(http.MethodGet)
		api.HandleFunc("/documents/{documentId}", h.Document.GetDocument).Methods(http.MethodGet)
		api.HandleFunc("/documents/{documentId}", h.Document.DeleteDocument).Methods(http.MethodDelete)
		api.HandleFunc("/documents/{documentId}/reprocess", h.Document.ReprocessDocument).Methods(http.MethodPost)
	}
}
