package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"archivist/internal/models"
	"archivist/internal/services"
)

// ChatHandler handles HTTP requests for question answering
type ChatHandler struct {
	chatService *services.ChatService
	logger      *log.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService, logger *log.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// Chat answers a question against one collection
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	h.logger.Printf("Chat request from %s", r.RemoteAddr)

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Printf("Failed to decode request: %v", err)
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Question == "" || req.CollectionID == "" {
		h.sendError(w, http.StatusBadRequest, "collection_id and question are required")
		return
	}

	resp, err := h.chatService.AnswerQuestion(r.Context(), req)
	if err != nil {
		h.logger.Printf("Chat failed: %v", err)
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, resp)
}

// ChatStream answers a question as a server-sent event stream. Text deltas
// arrive as "delta" events; the final event carries citations and metadata.
func (h *ChatHandler) ChatStream(w http.ResponseWriter, r *http.Request) {
	h.logger.Printf("Chat stream request from %s", r.RemoteAddr)

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Question == "" || req.CollectionID == "" {
		h.sendError(w, http.StatusBadRequest, "collection_id and question are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.sendError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	stream, err := h.chatService.StreamAnswer(r.Context(), req)
	if err != nil {
		h.logger.Printf("Chat stream failed: %v", err)
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for fragment := range stream.Fragments {
		h.writeEvent(w, "delta", map[string]string{"text": fragment})
		flusher.Flush()
	}

	result := <-stream.Done
	if result.Err != nil {
		h.logger.Printf("Chat stream ended with error: %v", result.Err)
		h.writeEvent(w, "error", map[string]string{"message": result.Err.Error()})
		flusher.Flush()
		return
	}

	h.writeEvent(w, "done", models.QueryResponse{
		Answer:         result.Result.Answer,
		Citations:      result.Result.Citations,
		Source:         stream.Source,
		ConversationID: stream.ConversationID,
	})
	flusher.Flush()
}

func (h *ChatHandler) writeEvent(w http.ResponseWriter, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal SSE payload: %v", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}

func (h *ChatHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *ChatHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}
