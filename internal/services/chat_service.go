package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"archivist/internal/models"
	"archivist/internal/repositories"
)

// noResultsAnswer is returned when neither the archive nor web search
// produced anything usable
const noResultsAnswer = "I couldn't find relevant information in this collection to answer your question. Try rephrasing it, or add more documents to the collection."

// ChatService answers questions against one collection, falling back to
// web search when the archive has nothing relevant
type ChatService struct {
	retrieval    *RetrievalService
	generation   *GenerationService
	webSearch    WebSearcher
	documentRepo repositories.DocumentRepository
	logger       *log.Logger
}

// NewChatService creates a new chat service. The web searcher may be nil;
// the fallback is then skipped.
func NewChatService(
	retrieval *RetrievalService,
	generation *GenerationService,
	webSearch WebSearcher,
	documentRepo repositories.DocumentRepository,
	logger *log.Logger,
) *ChatService {
	return &ChatService{
		retrieval:    retrieval,
		generation:   generation,
		webSearch:    webSearch,
		documentRepo: documentRepo,
		logger:       logger,
	}
}

// AnswerQuestion retrieves context for the question and generates a cited
// answer
func (s *ChatService) AnswerQuestion(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error) {
	chunks, titles, source, err := s.gatherContext(ctx, req)
	if err != nil {
		return nil, err
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	if len(chunks) == 0 {
		return &models.QueryResponse{
			Answer:         noResultsAnswer,
			Citations:      []models.Citation{},
			Source:         models.SourceArchive,
			ConversationID: conversationID,
		}, nil
	}

	result, err := s.generation.GenerateAnswer(ctx, req.Question, chunks, titles, source)
	if err != nil {
		return nil, err
	}

	return &models.QueryResponse{
		Answer:         result.Answer,
		Citations:      result.Citations,
		Source:         source,
		ConversationID: conversationID,
	}, nil
}

// StreamedQuery is a streaming answer in progress
type StreamedQuery struct {
	Fragments      <-chan string
	Done           <-chan StreamResult
	Source         models.AnswerSource
	ConversationID string
}

// StreamAnswer is the streaming variant of AnswerQuestion. Context
// gathering happens up front; fragments then arrive on the returned
// channel and the final citations on Done.
func (s *ChatService) StreamAnswer(ctx context.Context, req models.QueryRequest) (*StreamedQuery, error) {
	chunks, titles, source, err := s.gatherContext(ctx, req)
	if err != nil {
		return nil, err
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	if len(chunks) == 0 {
		fragments := make(chan string, 1)
		done := make(chan StreamResult, 1)
		fragments <- noResultsAnswer
		close(fragments)
		done <- StreamResult{Result: &models.GenerationResult{
			Answer:    noResultsAnswer,
			Citations: []models.Citation{},
		}}
		close(done)
		return &StreamedQuery{
			Fragments:      fragments,
			Done:           done,
			Source:         models.SourceArchive,
			ConversationID: conversationID,
		}, nil
	}

	fragments, done := s.generation.StreamAnswer(ctx, req.Question, chunks, titles, source)
	return &StreamedQuery{
		Fragments:      fragments,
		Done:           done,
		Source:         source,
		ConversationID: conversationID,
	}, nil
}

// gatherContext runs retrieval and decides between archive chunks and the
// web-search fallback
func (s *ChatService) gatherContext(ctx context.Context, req models.QueryRequest) ([]models.RetrievedChunk, map[string]string, models.AnswerSource, error) {
	if req.Question == "" {
		return nil, nil, "", fmt.Errorf("question must not be empty")
	}
	if req.CollectionID == "" {
		return nil, nil, "", fmt.Errorf("collection id must not be empty")
	}

	collection, err := s.documentRepo.GetCollection(ctx, req.CollectionID)
	if err != nil {
		return nil, nil, "", err
	}

	titles := make(map[string]string)
	docs, err := s.documentRepo.ListByCollection(ctx, req.CollectionID)
	if err != nil {
		s.logger.Printf("Failed to list documents for collection %s: %v", req.CollectionID, err)
	} else {
		for _, d := range docs {
			titles[d.ID] = d.Title
		}
	}

	retrieved, err := s.retrieval.RetrieveChunks(ctx, req.Question, collection.VectorNamespace, RetrievalOptions{
		DocumentIDs: req.DocumentIDs,
	})
	if err != nil {
		return nil, nil, "", err
	}

	if retrieved.HasRelevantResults {
		return retrieved.Chunks, titles, models.SourceArchive, nil
	}

	// Nothing relevant in the archive; try the web before giving up.
	// A search failure is not fatal here, it just means no fallback.
	if s.webSearch != nil {
		results, err := s.webSearch.Search(ctx, req.Question, 5)
		if err != nil {
			s.logger.Printf("Web search fallback failed: %v", err)
		} else if len(results) > 0 {
			return WebResultsToChunks(results), map[string]string{}, models.SourceWeb, nil
		}
	}

	return nil, titles, models.SourceArchive, nil
}
