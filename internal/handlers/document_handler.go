package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"archivist/internal/repositories"
	"archivist/internal/services"
)

// ErrorResponse is the standard error payload for all handlers
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// DocumentHandler handles HTTP requests for collections and documents
type DocumentHandler struct {
	processor    *services.DocumentProcessor
	documentRepo repositories.DocumentRepository
	logger       *log.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(processor *services.DocumentProcessor, documentRepo repositories.DocumentRepository, logger *log.Logger) *DocumentHandler {
	return &DocumentHandler{
		processor:    processor,
		documentRepo: documentRepo,
		logger:       logger,
	}
}

type createCollectionRequest struct {
	Title string `json:"title"`
}

// CreateCollection registers a new collection with its own vector namespace
func (h *DocumentHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		h.sendError(w, http.StatusBadRequest, "title is required")
		return
	}

	coll := &repositories.Collection{
		ID:              uuid.New().String(),
		Title:           req.Title,
		VectorNamespace: "ns-" + uuid.New().String(),
		CreatedAt:       time.Now().UTC(),
	}

	if err := h.documentRepo.SaveCollection(r.Context(), coll); err != nil {
		h.logger.Printf("Failed to save collection: %v", err)
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.sendJSON(w, http.StatusCreated, coll)
}

type uploadDocumentRequest struct {
	Title      string `json:"title"`
	SourceType string `json:"source_type"`
	SourceURL  string `json:"source_url,omitempty"`
	Content    string `json:"content,omitempty"`
}

// UploadDocument registers a document in a collection and runs ingestion
// synchronously, returning the processing outcome
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	collectionID := mux.Vars(r)["collectionId"]

	coll, err := h.documentRepo.GetCollection(r.Context(), collectionID)
	if err != nil {
		h.sendError(w, http.StatusNotFound, err.Error())
		return
	}

	var req uploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		h.sendError(w, http.StatusBadRequest, "title is required")
		return
	}

	sourceType := repositories.SourceType(req.SourceType)
	switch sourceType {
	case repositories.SourceTypeMarkdown, repositories.SourceTypeURL, repositories.SourceTypePDF:
	default:
		h.sendError(w, http.StatusBadRequest, "source_type must be markdown, url or pdf")
		return
	}

	now := time.Now().UTC()
	doc := &repositories.Document{
		ID:           uuid.New().String(),
		CollectionID: collectionID,
		Title:        req.Title,
		SourceType:   sourceType,
		SourceURL:    req.SourceURL,
		Content:      req.Content,
		Status:       repositories.DocumentStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.documentRepo.Register(r.Context(), doc); err != nil {
		h.logger.Printf("Failed to register document: %v", err)
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := h.processor.ProcessDocument(r.Context(), doc, coll.VectorNamespace)
	status := http.StatusCreated
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}

	h.sendJSON(w, status, map[string]interface{}{
		"document": doc,
		"result":   result,
	})
}

// GetDocument returns one document record
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["documentId"]

	doc, err := h.documentRepo.Get(r.Context(), documentID)
	if err != nil {
		h.sendError(w, http.StatusNotFound, err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, doc)
}

// ListDocuments returns all documents in a collection
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	collectionID := mux.Vars(r)["collectionId"]

	docs, err := h.documentRepo.ListByCollection(r.Context(), collectionID)
	if err != nil {
		h.logger.Printf("Failed to list documents: %v", err)
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// DeleteDocument removes a document's vectors and record
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["documentId"]

	doc, err := h.documentRepo.Get(r.Context(), documentID)
	if err != nil {
		h.sendError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := h.processor.DeleteDocumentVectors(r.Context(), doc.ID, doc.ChunkCount); err != nil {
		h.logger.Printf("Failed to delete vectors for %s: %v", doc.ID, err)
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.documentRepo.Delete(r.Context(), doc.ID); err != nil {
		h.logger.Printf("Failed to delete document %s: %v", doc.ID, err)
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]string{"deleted": doc.ID})
}

// ReprocessDocument clears a document's vectors and runs ingestion again,
// used to retry a failed ingestion from scratch
func (h *DocumentHandler) ReprocessDocument(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["documentId"]

	doc, err := h.documentRepo.Get(r.Context(), documentID)
	if err != nil {
		h.sendError(w, http.StatusNotFound, err.Error())
		return
	}

	coll, err := h.documentRepo.GetCollection(r.Context(), doc.CollectionID)
	if err != nil {
		h.sendError(w, http.StatusNotFound, err.Error())
		return
	}

	result := h.processor.ReprocessDocument(r.Context(), doc, coll.VectorNamespace)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}

	h.sendJSON(w, status, map[string]interface{}{
		"document": doc,
		"result":   result,
	})
}

func (h *DocumentHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *DocumentHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}
