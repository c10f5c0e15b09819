package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"archivist/internal/models"
)

// GenerateOptions tunes one generation call
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// TextGenerator calls an external chat-completion model. Stream yields
// incremental text fragments; the error channel delivers at most one error
// and both channels close when the stream ends.
type TextGenerator interface {
	Complete(ctx context.Context, systemPrompt, userMessage string, opts GenerateOptions) (string, error)
	Stream(ctx context.Context, systemPrompt, userMessage string, opts GenerateOptions) (<-chan string, <-chan error)
}

// ChatCompletionConfig configures the OpenAI-compatible chat client
type ChatCompletionConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ChatCompletionService calls an OpenAI-compatible /chat/completions
// endpoint
type ChatCompletionService struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewChatCompletionService creates a new chat-completion client
func NewChatCompletionService(cfg ChatCompletionConfig) *ChatCompletionService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second // LLMs can be slow
	}

	return &ChatCompletionService{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// chatCompletionRequest is the OpenAI-compatible request body
type chatCompletionRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Stream      bool                 `json:"stream"`
}

// chatCompletionResponse is the OpenAI-compatible response body
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// chatCompletionChunk is one SSE event of a streaming response
type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Complete sends a single non-streaming chat completion request
func (s *ChatCompletionService) Complete(ctx context.Context, systemPrompt, userMessage string, opts GenerateOptions) (string, error) {
	resp, err := s.send(ctx, systemPrompt, userMessage, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned by generation API")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Stream sends a streaming chat completion request and forwards text
// fragments as they arrive. Cancelling ctx stops the stream promptly.
func (s *ChatCompletionService) Stream(ctx context.Context, systemPrompt, userMessage string, opts GenerateOptions) (<-chan string, <-chan error) {
	fragments := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(fragments)
		defer close(errs)

		resp, err := s.send(ctx, systemPrompt, userMessage, opts, true)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				return
			}

			var chunk chatCompletionChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue // skip malformed keepalive events
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}

			select {
			case fragments <- chunk.Choices[0].Delta.Content:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- fmt.Errorf("generation stream interrupted: %w", err)
		}
	}()

	return fragments, errs
}

func (s *ChatCompletionService) send(ctx context.Context, systemPrompt, userMessage string, opts GenerateOptions, stream bool) (*http.Response, error) {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}

	jsonBody, err := json.Marshal(chatCompletionRequest{
		Model: s.model,
		Messages: []models.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send generation request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("generation API returned status %d: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}
