package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"archivist/internal/models"
)

// WebSearcher runs a web search for a query and returns result snippets
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.WebResult, error)
}

// WebSearchConfig configures the Tavily-compatible search client
type WebSearchConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// WebSearchService calls a Tavily-compatible search API
type WebSearchService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *log.Logger
}

// NewWebSearchService creates a new web search client. An empty API key is
// allowed; callers should treat the searcher as unavailable in that case.
func NewWebSearchService(cfg WebSearchConfig, logger *log.Logger) *WebSearchService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}

	return &WebSearchService{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Available reports whether the service is configured with an API key
func (s *WebSearchService) Available() bool {
	return s.apiKey != ""
}

type tavilySearchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilySearchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		URL     string `json:"url"`
	} `json:"results"`
}

// Search runs a web search and returns up to maxResults results
func (s *WebSearchService) Search(ctx context.Context, query string, maxResults int) ([]models.WebResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("web search is not configured")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	jsonBody, err := json.Marshal(tavilySearchRequest{
		APIKey:     s.apiKey,
		Query:      query,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/search", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(body))
	}

	var searchResp tavilySearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	results := make([]models.WebResult, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		if r.Content == "" {
			continue
		}
		results = append(results, models.WebResult{
			Title:   r.Title,
			Content: r.Content,
			URL:     r.URL,
		})
	}

	s.logger.Printf("Web search for %q returned %d results", query, len(results))
	return results, nil
}
