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

func embeddingTestServer(t *testing.T, maxBatch int) (*httptest.Server, *int) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		var req embeddingsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if maxBatch > 0 {
			assert.LessOrEqual(t, len(req.Input), maxBatch)
		}

		resp := map[string]interface{}{"data": []map[string]interface{}{}}
		data := make([]map[string]interface{}, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]interface{}{
				"index":     i,
				"embedding": []float32{float32(i), 0.5, 0.25},
			}
		}
		resp["data"] = data
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	return server, &calls
}

func TestEmbedQuery(t *testing.T) {
	server, _ := embeddingTestServer(t, 0)
	defer server.Close()

	service := NewEmbeddingService(EmbeddingConfig{BaseURL: server.URL, APIKey: "test-key"})

	result, err := service.EmbedQuery(context.Background(), "hello world")

	assert.NoError(t, err)
	assert.Len(t, result.Vector, 3)
	assert.Equal(t, 3, result.TokenCount) // ceil(11/4)
}

func TestEmbedBatch_SplitsIntoSubBatches(t *testing.T) {
	server, calls := embeddingTestServer(t, 10)
	defer server.Close()

	service := NewEmbeddingService(EmbeddingConfig{BaseURL: server.URL, BatchSize: 10})

	texts := make([]string, 25)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}

	results, err := service.EmbedBatch(context.Background(), texts)

	assert.NoError(t, err)
	assert.Len(t, results, 25)
	assert.Equal(t, 3, *calls)
}

func TestEmbedBatch_Empty(t *testing.T) {
	service := NewEmbeddingService(EmbeddingConfig{BaseURL: "http://unused"})

	results, err := service.EmbedBatch(context.Background(), nil)

	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestEmbedBatch_OrderPreservedAcrossShuffledResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingsRequest
		json.NewDecoder(r.Body).Decode(&req)

		// Return embeddings in reverse order; index must restore it
		data := make([]map[string]interface{}, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]interface{}{
				"index":     i,
				"embedding": []float32{float32(i + 1)},
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}))
	defer server.Close()

	service := NewEmbeddingService(EmbeddingConfig{BaseURL: server.URL})

	results, err := service.EmbedBatch(context.Background(), []string{"a", "b", "c"})

	assert.NoError(t, err)
	assert.Equal(t, float32(1), results[0].Vector[0])
	assert.Equal(t, float32(2), results[1].Vector[0])
	assert.Equal(t, float32(3), results[2].Vector[0])
}

func TestEmbedBatch_UpstreamErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	service := NewEmbeddingService(EmbeddingConfig{BaseURL: server.URL})

	results, err := service.EmbedBatch(context.Background(), []string{"a"})

	assert.Error(t, err)
	assert.Nil(t, results)
	assert.Contains(t, err.Error(), "429")
}

func TestEmbedBatch_CountMismatchRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 0, "embedding": []float32{1}},
			},
		})
	}))
	defer server.Close()

	service := NewEmbeddingService(EmbeddingConfig{BaseURL: server.URL})

	_, err := service.EmbedBatch(context.Background(), []string{"a", "b"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestEmbedBatch_SendsAuthorizationHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 0, "embedding": []float32{1}},
			},
		})
	}))
	defer server.Close()

	service := NewEmbeddingService(EmbeddingConfig{BaseURL: server.URL, APIKey: "secret-key"})
	_, err := service.EmbedBatch(context.Background(), []string{"a"})

	assert.NoError(t, err)
	assert.Equal(t, "Bearer secret-key", gotAuth)
}
