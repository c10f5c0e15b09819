package services

import (
	"context"
	"fmt"
	"log"

	"archivist/internal/models"
	"archivist/internal/repositories"
)

// RetrievalOptions tunes one retrieval pass. Zero values fall back to the
// configured defaults.
type RetrievalOptions struct {
	TopK        int
	Threshold   float32
	DocumentIDs []string
}

// RetrievalConfig holds the default retrieval parameters
type RetrievalConfig struct {
	DefaultTopK      int
	DefaultThreshold float32
}

// DefaultRetrievalConfig returns the permissive defaults
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		DefaultTopK:      15,
		DefaultThreshold: 0.3,
	}
}

// RetrievalService embeds a question and finds the most relevant chunks in
// a collection's namespace
type RetrievalService struct {
	embedder   Embedder
	vectorRepo repositories.VectorRepository
	config     RetrievalConfig
	logger     *log.Logger
}

// NewRetrievalService creates a new retrieval service. The vector repository
// may be nil; retrieval then degrades to empty results so callers can fall
// back to web search.
func NewRetrievalService(embedder Embedder, vectorRepo repositories.VectorRepository, config RetrievalConfig, logger *log.Logger) *RetrievalService {
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = 15
	}
	if config.DefaultThreshold <= 0 {
		config.DefaultThreshold = 0.3
	}

	return &RetrievalService{
		embedder:   embedder,
		vectorRepo: vectorRepo,
		config:     config,
		logger:     logger,
	}
}

// RetrieveChunks embeds the query, queries the vector index under the given
// namespace, and gates the matches against the relevance threshold.
//
// HasRelevantResults is true only when the best match meets the threshold.
// The returned chunk list drops anything below half the threshold, so a
// near-miss top result still carries supporting context.
func (s *RetrievalService) RetrieveChunks(ctx context.Context, query, namespace string, opts RetrievalOptions) (*models.RetrievalResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	if s.vectorRepo == nil {
		s.logger.Printf("No vector index configured, returning empty retrieval result")
		return &models.RetrievalResult{Chunks: []models.RetrievedChunk{}, HasRelevantResults: false}, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.config.DefaultTopK
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = s.config.DefaultThreshold
	}

	embedded, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Over-fetch when a document filter is set; the filter is applied
	// in-process after the index query, not pushed into the index
	fetchK := topK
	if len(opts.DocumentIDs) > 0 {
		fetchK = topK * 3
	}

	matches, err := s.vectorRepo.Query(ctx, embedded.Vector, repositories.QueryOptions{
		TopK:      fetchK,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	var allowed map[string]bool
	if len(opts.DocumentIDs) > 0 {
		allowed = make(map[string]bool, len(opts.DocumentIDs))
		for _, id := range opts.DocumentIDs {
			allowed[id] = true
		}
	}

	floor := threshold * 0.5
	chunks := make([]models.RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		chunk := matchToChunk(m)
		if allowed != nil && !allowed[chunk.DocumentID] {
			continue
		}
		if chunk.Score < floor {
			continue
		}
		chunks = append(chunks, chunk)
		if len(chunks) >= topK {
			break
		}
	}

	hasRelevant := len(chunks) > 0 && chunks[0].Score >= threshold
	s.logger.Printf("Retrieved %d chunks for namespace %s (relevant=%v, topScore=%.3f threshold=%.2f)",
		len(chunks), namespace, hasRelevant, topScore(chunks), threshold)

	return &models.RetrievalResult{Chunks: chunks, HasRelevantResults: hasRelevant}, nil
}

// WebResultsToChunks converts web search results into retrieval-shaped
// chunks so the rest of the pipeline can treat both sources uniformly.
// Web chunks carry a maximal score so threshold logic never drops them.
func WebResultsToChunks(results []models.WebResult) []models.RetrievedChunk {
	chunks := make([]models.RetrievedChunk, 0, len(results))
	for i, r := range results {
		content := r.Content
		if r.Title != "" {
			content = r.Title + "\n" + content
		}
		if r.URL != "" {
			content = content + "\nSource: " + r.URL
		}
		chunks = append(chunks, models.RetrievedChunk{
			ID:         fmt.Sprintf("web-%d", i),
			DocumentID: fmt.Sprintf("web-%d", i),
			Content:    content,
			Score:      1.0,
			Metadata: models.RetrievedChunkMetadata{
				Title: r.Title,
			},
		})
	}
	return chunks
}

func matchToChunk(m *repositories.VectorMatch) models.RetrievedChunk {
	chunk := models.RetrievedChunk{
		ID:      m.ID,
		Content: m.Content,
		Score:   m.Score,
	}
	if m.Metadata == nil {
		return chunk
	}

	if v, ok := m.Metadata["document_id"].(string); ok {
		chunk.DocumentID = v
	}
	if v, ok := m.Metadata["title"].(string); ok {
		chunk.Metadata.Title = v
	}
	if v, ok := m.Metadata["section"].(string); ok {
		chunk.Metadata.Section = v
	}
	if v, ok := metadataInt(m.Metadata["page"]); ok {
		chunk.Metadata.Page = &v
	}
	if v, ok := metadataInt(m.Metadata["start_char"]); ok {
		chunk.Metadata.StartChar = &v
	}
	if v, ok := metadataInt(m.Metadata["end_char"]); ok {
		chunk.Metadata.EndChar = &v
	}
	return chunk
}

// metadataInt handles the numeric types JSON decoding can hand back
func metadataInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	}
	return 0, false
}

func topScore(chunks []models.RetrievedChunk) float32 {
	if len(chunks) == 0 {
		return 0
	}
	return chunks[0].Score
}
