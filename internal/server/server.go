package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"archivist/internal/config"
	"archivist/internal/db"
	"archivist/internal/handlers"
	"archivist/internal/repositories"
	"archivist/internal/routes"
	"archivist/internal/services"
)

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewServer wires configuration, storage, services and routes into an HTTP
// server. Missing storage backends disable the endpoints that need them
// instead of failing startup; /health reports what is actually available.
func NewServer() *http.Server {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags)
	cfg := config.Load(logger)

	docRepo, vectorRepo := initializeRepositories(cfg, logger)

	embedder := services.NewEmbeddingService(services.EmbeddingConfig{
		BaseURL:   cfg.Embeddings.BaseURL,
		APIKey:    cfg.Embeddings.APIKey,
		Model:     cfg.Embeddings.Model,
		BatchSize: cfg.Embeddings.BatchSize,
	})

	var generator services.TextGenerator
	if cfg.Generation.APIKey != "" || cfg.Generation.BaseURL != "https://api.openai.com/v1" {
		generator = services.NewChatCompletionService(services.ChatCompletionConfig{
			BaseURL: cfg.Generation.BaseURL,
			APIKey:  cfg.Generation.APIKey,
			Model:   cfg.Generation.Model,
		})
		logger.Println("Text generation configured")
	} else {
		logger.Println("GENERATION_API_KEY not set, chat endpoints will reject requests")
	}

	var webSearch services.WebSearcher
	if cfg.WebSearch.APIKey != "" {
		webSearch = services.NewWebSearchService(services.WebSearchConfig{
			BaseURL: cfg.WebSearch.BaseURL,
			APIKey:  cfg.WebSearch.APIKey,
		}, logger)
		logger.Println("Web search fallback configured")
	} else {
		logger.Println("WEB_SEARCH_API_KEY not set, web search fallback disabled")
	}

	var chatHandler *handlers.ChatHandler
	var docHandler *handlers.DocumentHandler

	if docRepo != nil && vectorRepo != nil {
		retrieval := services.NewRetrievalService(embedder, vectorRepo, services.RetrievalConfig{
			DefaultTopK:      cfg.Retrieval.TopK,
			DefaultThreshold: cfg.Retrieval.Threshold,
		}, logger)
		generation := services.NewGenerationService(generator, logger)
		chatService := services.NewChatService(retrieval, generation, webSearch, docRepo, logger)

		analyzer := services.NewLLMSourceAnalyzer(generator, logger)
		extractor := services.NewHTMLContentExtractor(logger)
		processor := services.NewDocumentProcessor(embedder, vectorRepo, docRepo, analyzer, extractor, logger)

		chatHandler = handlers.NewChatHandler(chatService, logger)
		docHandler = handlers.NewDocumentHandler(processor, docRepo, logger)
		logger.Println("Archive services initialized")
	} else {
		logger.Println("Storage backends unavailable, only /health is registered")
	}

	h := &routes.Handlers{
		Health:   handlers.NewHealthHandler(docRepo, vectorRepo, logger),
		Chat:     chatHandler,
		Document: docHandler,
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, h)

	return &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: corsMiddleware(router),
	}
}

// initializeRepositories connects to Redis and ChromaDB, returning nil
// repositories when either backend is unreachable
func initializeRepositories(cfg *config.Config, logger *log.Logger) (repositories.DocumentRepository, repositories.VectorRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Printf("Connecting to Redis: %s:%d (DB: %d)", cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.DB)
	redisClient := db.NewRedisClient(cfg.Redis)
	if err := redisClient.Ping(ctx); err != nil {
		logger.Printf("Redis connection failed: %v", err)
		logger.Println("Hint: docker run -d -p 6379:6379 redis:7-alpine")
		return nil, nil
	}
	logger.Println("Redis connected")

	logger.Printf("Connecting to ChromaDB: %s:%d", cfg.Chroma.Host, cfg.Chroma.Port)
	chromaClient := db.NewChromaDBClient(cfg.Chroma)
	if err := chromaClient.Heartbeat(ctx); err != nil {
		logger.Printf("ChromaDB connection failed: %v", err)
		logger.Println("Hint: docker run -d -p 8000:8000 chromadb/chroma")
		return nil, nil
	}
	logger.Println("ChromaDB connected")

	docRepo := repositories.NewRedisDocumentRepository(redisClient.GetClient())
	vectorRepo := repositories.NewChromaVectorRepository(chromaClient, "archive")

	if err := vectorRepo.EnsureCollection(ctx); err != nil {
		logger.Printf("Failed to ensure vector collection: %v", err)
		return nil, nil
	}

	return docRepo, vectorRepo
}
