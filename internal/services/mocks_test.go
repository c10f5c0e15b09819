package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"archivist/internal/models"
	"archivist/internal/repositories"
)

// ============================================================================
// Mock Embedder
// ============================================================================

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) (*EmbeddingResult, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EmbeddingResult), args.Error(1)
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]EmbeddingResult, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]EmbeddingResult), args.Error(1)
}

// ============================================================================
// Mock VectorRepository
// ============================================================================

type MockVectorRepository struct {
	mock.Mock
}

func (m *MockVectorRepository) EnsureCollection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVectorRepository) Upsert(ctx context.Context, records []*repositories.VectorRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockVectorRepository) Query(ctx context.Context, vector []float32, opts repositories.QueryOptions) ([]*repositories.VectorMatch, error) {
	args := m.Called(ctx, vector, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repositories.VectorMatch), args.Error(1)
}

func (m *MockVectorRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockVectorRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVectorRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ============================================================================
// Mock DocumentRepository
// ============================================================================

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Register(ctx context.Context, doc *repositories.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) Get(ctx context.Context, documentID string) (*repositories.Document, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.Document), args.Error(1)
}

func (m *MockDocumentRepository) GetBatch(ctx context.Context, documentIDs []string) ([]*repositories.Document, error) {
	args := m.Called(ctx, documentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repositories.Document), args.Error(1)
}

func (m *MockDocumentRepository) Update(ctx context.Context, doc *repositories.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) SetStatus(ctx context.Context, documentID string, status repositories.DocumentStatus) error {
	args := m.Called(ctx, documentID, status)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockDocumentRepository) Exists(ctx context.Context, documentID string) (bool, error) {
	args := m.Called(ctx, documentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) ListByCollection(ctx context.Context, collectionID string) ([]*repositories.Document, error) {
	args := m.Called(ctx, collectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repositories.Document), args.Error(1)
}

func (m *MockDocumentRepository) SaveCollection(ctx context.Context, coll *repositories.Collection) error {
	args := m.Called(ctx, coll)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetCollection(ctx context.Context, collectionID string) (*repositories.Collection, error) {
	args := m.Called(ctx, collectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.Collection), args.Error(1)
}

func (m *MockDocumentRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDocumentRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ============================================================================
// Mock TextGenerator
// ============================================================================

type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Complete(ctx context.Context, systemPrompt, userMessage string, opts GenerateOptions) (string, error) {
	args := m.Called(ctx, systemPrompt, userMessage, opts)
	return args.String(0), args.Error(1)
}

func (m *MockTextGenerator) Stream(ctx context.Context, systemPrompt, userMessage string, opts GenerateOptions) (<-chan string, <-chan error) {
	args := m.Called(ctx, systemPrompt, userMessage, opts)

	fragments := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(fragments)
		defer close(errs)
		for _, f := range args.Get(0).([]string) {
			fragments <- f
		}
		if err := args.Error(1); err != nil {
			errs <- err
		}
	}()
	return fragments, errs
}

// ============================================================================
// Mock WebSearcher
// ============================================================================

type MockWebSearcher struct {
	mock.Mock
}

func (m *MockWebSearcher) Search(ctx context.Context, query string, maxResults int) ([]models.WebResult, error) {
	args := m.Called(ctx, query, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WebResult), args.Error(1)
}

// ============================================================================
// Mock SourceAnalyzer
// ============================================================================

type MockSourceAnalyzer struct {
	mock.Mock
}

func (m *MockSourceAnalyzer) Analyze(ctx context.Context, title, content string) (*SourceAnalysis, error) {
	args := m.Called(ctx, title, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SourceAnalysis), args.Error(1)
}

// ============================================================================
// Mock ContentExtractor
// ============================================================================

type MockContentExtractor struct {
	mock.Mock
}

func (m *MockContentExtractor) ExtractFromURL(ctx context.Context, url string) (*ExtractedContent, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ExtractedContent), args.Error(1)
}

func (m *MockContentExtractor) ExtractFromPDF(ctx context.Context, data []byte) (*ExtractedContent, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ExtractedContent), args.Error(1)
}
