package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"archivist/internal/chunker"
)

// EmbeddingResult is one embedded text: a fixed-dimension vector plus an
// approximate token count
type EmbeddingResult struct {
	Vector     []float32 `json:"vector"`
	TokenCount int       `json:"token_count"`
}

// Embedder converts text to fixed-dimension vectors. Batch calls are
// order-preserving: result[i] corresponds to input[i].
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) (*EmbeddingResult, error)
	EmbedBatch(ctx context.Context, texts []string) ([]EmbeddingResult, error)
}

// EmbeddingConfig configures the OpenAI-compatible embeddings client
type EmbeddingConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int // max texts per upstream request (default: 100)
	Timeout   time.Duration
}

// EmbeddingService calls an OpenAI-compatible /embeddings endpoint
type EmbeddingService struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	httpClient *http.Client
}

// NewEmbeddingService creates a new embeddings client
func NewEmbeddingService(cfg EmbeddingConfig) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &EmbeddingService{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// embeddingsRequest is the OpenAI-compatible request body
type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// embeddingsResponse is the OpenAI-compatible response body
type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedQuery embeds a single text
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) (*EmbeddingResult, error) {
	results, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

// EmbedBatch embeds all texts, transparently splitting into sub-batches at
// the configured batch size and preserving input order
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([]EmbeddingResult, error) {
	if len(texts) == 0 {
		return []EmbeddingResult{}, nil
	}

	results := make([]EmbeddingResult, 0, len(texts))
	for i := 0; i < len(texts); i += s.batchSize {
		end := i + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.embed(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d failed: %w", i, end, err)
		}
		results = append(results, batch...)
	}

	return results, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([]EmbeddingResult, error) {
	jsonBody, err := json.Marshal(embeddingsRequest{Input: texts, Model: s.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/embeddings", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send embeddings request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingsResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(embResp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embResp.Data), len(texts))
	}

	// The API reports an index per embedding; order by it rather than
	// trusting response order
	sort.Slice(embResp.Data, func(i, j int) bool {
		return embResp.Data[i].Index < embResp.Data[j].Index
	})

	results := make([]EmbeddingResult, len(texts))
	for i, d := range embResp.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		results[i] = EmbeddingResult{
			Vector:     d.Embedding,
			TokenCount: chunker.EstimateTokens(texts[i]),
		}
	}

	return results, nil
}
