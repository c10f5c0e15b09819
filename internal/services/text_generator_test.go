package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatCompletion_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req chatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, 2048, req.MaxTokens)
		assert.Equal(t, 0.7, req.Temperature)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "generated answer [1]"}},
			},
		})
	}))
	defer server.Close()

	service := NewChatCompletionService(ChatCompletionConfig{BaseURL: server.URL})

	answer, err := service.Complete(context.Background(), "system prompt", "user question", GenerateOptions{})

	assert.NoError(t, err)
	assert.Equal(t, "generated answer [1]", answer)
}

func TestChatCompletion_NonSuccessStatusIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "model overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	service := NewChatCompletionService(ChatCompletionConfig{BaseURL: server.URL})

	_, err := service.Complete(context.Background(), "sys", "question", GenerateOptions{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestChatCompletion_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	service := NewChatCompletionService(ChatCompletionConfig{BaseURL: server.URL})

	_, err := service.Complete(context.Background(), "sys", "question", GenerateOptions{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no completion")
}

func TestChatCompletion_Stream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		pieces := []string{"Hello", " from", " the", " stream"}
		for _, p := range pieces {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"%s\"}}]}\n\n", p)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	service := NewChatCompletionService(ChatCompletionConfig{BaseURL: server.URL})

	fragments, errs := service.Stream(context.Background(), "sys", "question", GenerateOptions{})

	var full string
	for f := range fragments {
		full += f
	}

	assert.NoError(t, <-errs)
	assert.Equal(t, "Hello from the stream", full)
}

func TestChatCompletion_StreamSkipsMalformedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, ": keepalive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	service := NewChatCompletionService(ChatCompletionConfig{BaseURL: server.URL})

	fragments, errs := service.Stream(context.Background(), "sys", "question", GenerateOptions{})

	var full string
	for f := range fragments {
		full += f
	}

	assert.NoError(t, <-errs)
	assert.Equal(t, "ok", full)
}

func TestChatCompletion_StreamUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	service := NewChatCompletionService(ChatCompletionConfig{BaseURL: server.URL})

	fragments, errs := service.Stream(context.Background(), "sys", "question", GenerateOptions{})

	for range fragments {
	}
	err := <-errs

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
