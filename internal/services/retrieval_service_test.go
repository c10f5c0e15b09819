package services

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"archivist/internal/models"
	"archivist/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testLogger() *log.Logger {
	return log.New(os.Stdout, "[TEST] ", log.LstdFlags)
}

func setupTestRetrievalService(t *testing.T) (*RetrievalService, *MockEmbedder, *MockVectorRepository) {
	mockEmbedder := new(MockEmbedder)
	mockVectorRepo := new(MockVectorRepository)

	service := NewRetrievalService(mockEmbedder, mockVectorRepo, DefaultRetrievalConfig(), testLogger())
	return service, mockEmbedder, mockVectorRepo
}

func queryEmbedding() *EmbeddingResult {
	return &EmbeddingResult{Vector: make([]float32, 384), TokenCount: 5}
}

func matchFor(id, docID string, score float32) *repositories.VectorMatch {
	return &repositories.VectorMatch{
		ID:      id,
		Score:   score,
		Content: "content of " + id,
		Metadata: map[string]interface{}{
			"document_id": docID,
			"title":       "Title of " + docID,
			"chunk_index": float64(0),
		},
	}
}

func TestRetrieveChunks_RelevantResults(t *testing.T) {
	service, mockEmbedder, mockVectorRepo := setupTestRetrievalService(t)
	ctx := context.Background()

	mockEmbedder.On("EmbedQuery", ctx, "what is chunking?").Return(queryEmbedding(), nil)
	mockVectorRepo.On("Query", ctx, mock.AnythingOfType("[]float32"), repositories.QueryOptions{
		TopK:      15,
		Namespace: "ns-1",
	}).Return([]*repositories.VectorMatch{
		matchFor("doc1_chunk_0", "doc1", 0.9),
		matchFor("doc2_chunk_3", "doc2", 0.6),
	}, nil)

	result, err := service.RetrieveChunks(ctx, "what is chunking?", "ns-1", RetrievalOptions{})

	assert.NoError(t, err)
	assert.True(t, result.HasRelevantResults)
	assert.Len(t, result.Chunks, 2)
	assert.Equal(t, "doc1", result.Chunks[0].DocumentID)
	assert.Equal(t, "Title of doc1", result.Chunks[0].Metadata.Title)

	mockEmbedder.AssertExpectations(t)
	mockVectorRepo.AssertExpectations(t)
}

func TestRetrieveChunks_ThresholdGating(t *testing.T) {
	service, mockEmbedder, mockVectorRepo := setupTestRetrievalService(t)
	ctx := context.Background()

	mockEmbedder.On("EmbedQuery", ctx, mock.Anything).Return(queryEmbedding(), nil)
	mockVectorRepo.On("Query", ctx, mock.Anything, mock.Anything).Return([]*repositories.VectorMatch{
		matchFor("doc1_chunk_0", "doc1", 0.5),
		matchFor("doc1_chunk_1", "doc1", 0.4),
		matchFor("doc2_chunk_0", "doc2", 0.2), // below threshold*0.5
	}, nil)

	result, err := service.RetrieveChunks(ctx, "question", "ns-1", RetrievalOptions{Threshold: 0.7})

	assert.NoError(t, err)
	// Top score 0.5 misses the 0.7 threshold, but near-miss chunks above
	// the 0.35 floor are still returned as supporting context
	assert.False(t, result.HasRelevantResults)
	assert.Len(t, result.Chunks, 2)
	for _, c := range result.Chunks {
		assert.GreaterOrEqual(t, c.Score, float32(0.35))
	}
}

func TestRetrieveChunks_RelevantWhenTopMeetsThreshold(t *testing.T) {
	service, mockEmbedder, mockVectorRepo := setupTestRetrievalService(t)
	ctx := context.Background()

	mockEmbedder.On("EmbedQuery", ctx, mock.Anything).Return(queryEmbedding(), nil)
	mockVectorRepo.On("Query", ctx, mock.Anything, mock.Anything).Return([]*repositories.VectorMatch{
		matchFor("doc1_chunk_0", "doc1", 0.9),
	}, nil)

	result, err := service.RetrieveChunks(ctx, "question", "ns-1", RetrievalOptions{Threshold: 0.7})

	assert.NoError(t, err)
	assert.True(t, result.HasRelevantResults)
}

func TestRetrieveChunks_DocumentFilterOverFetches(t *testing.T) {
	service, mockEmbedder, mockVectorRepo := setupTestRetrievalService(t)
	ctx := context.Background()

	mockEmbedder.On("EmbedQuery", ctx, mock.Anything).Return(queryEmbedding(), nil)
	// topK*3 is requested from the index when a document filter is set
	mockVectorRepo.On("Query", ctx, mock.Anything, repositories.QueryOptions{
		TopK:      45,
		Namespace: "ns-1",
	}).Return([]*repositories.VectorMatch{
		matchFor("doc1_chunk_0", "doc1", 0.9),
		matchFor("doc2_chunk_0", "doc2", 0.8),
		matchFor("doc1_chunk_1", "doc1", 0.7),
	}, nil)

	result, err := service.RetrieveChunks(ctx, "question", "ns-1", RetrievalOptions{
		DocumentIDs: []string{"doc1"},
	})

	assert.NoError(t, err)
	assert.Len(t, result.Chunks, 2)
	for _, c := range result.Chunks {
		assert.Equal(t, "doc1", c.DocumentID)
	}
	mockVectorRepo.AssertExpectations(t)
}

func TestRetrieveChunks_NoVectorIndex(t *testing.T) {
	service := NewRetrievalService(new(MockEmbedder), nil, DefaultRetrievalConfig(), testLogger())

	result, err := service.RetrieveChunks(context.Background(), "question", "ns-1", RetrievalOptions{})

	assert.NoError(t, err)
	assert.False(t, result.HasRelevantResults)
	assert.Empty(t, result.Chunks)
}

func TestRetrieveChunks_EmptyQuery(t *testing.T) {
	service, _, _ := setupTestRetrievalService(t)

	result, err := service.RetrieveChunks(context.Background(), "", "ns-1", RetrievalOptions{})

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestRetrieveChunks_EmbeddingFailurePropagates(t *testing.T) {
	service, mockEmbedder, _ := setupTestRetrievalService(t)
	ctx := context.Background()

	mockEmbedder.On("EmbedQuery", ctx, mock.Anything).Return(nil, errors.New("embedding service down"))

	result, err := service.RetrieveChunks(ctx, "question", "ns-1", RetrievalOptions{})

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "embedding service down")
}

func TestRetrieveChunks_IndexFailurePropagates(t *testing.T) {
	service, mockEmbedder, mockVectorRepo := setupTestRetrievalService(t)
	ctx := context.Background()

	mockEmbedder.On("EmbedQuery", ctx, mock.Anything).Return(queryEmbedding(), nil)
	mockVectorRepo.On("Query", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("index unreachable"))

	result, err := service.RetrieveChunks(ctx, "question", "ns-1", RetrievalOptions{})

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestWebResultsToChunks(t *testing.T) {
	chunks := WebResultsToChunks([]models.WebResult{
		{Title: "Result One", Content: "body one", URL: "https://example.com/1"},
		{Title: "Result Two", Content: "body two", URL: "https://example.com/2"},
	})

	assert.Len(t, chunks, 2)
	assert.Equal(t, "web-0", chunks[0].ID)
	assert.Equal(t, "web-1", chunks[1].ID)
	assert.Equal(t, float32(1.0), chunks[0].Score)
	assert.Contains(t, chunks[0].Content, "Result One")
	assert.Contains(t, chunks[0].Content, "body one")
	assert.Contains(t, chunks[0].Content, "https://example.com/1")
}
