// Package config loads all service configuration from the environment into
// one explicit struct handed to components at construction time. Nothing
// else in the codebase reads environment variables directly.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"archivist/internal/db"
)

// Config is the full runtime configuration
type Config struct {
	Server     ServerConfig
	Redis      db.RedisConfig
	Chroma     db.ChromaDBConfig
	Embeddings EmbeddingsConfig
	Generation GenerationConfig
	WebSearch  WebSearchConfig
	Retrieval  RetrievalConfig
}

type ServerConfig struct {
	Port string
}

type EmbeddingsConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int
}

type GenerationConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type WebSearchConfig struct {
	BaseURL string
	APIKey  string
}

type RetrievalConfig struct {
	Threshold float32
	TopK      int
}

// Load reads configuration from the environment, applying a .env file first
// when one exists
func Load(logger *log.Logger) *Config {
	if err := godotenv.Load(); err == nil {
		logger.Println("Loaded configuration from .env file")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: envOr("PORT", "8080"),
		},
		Redis:  loadRedisConfig(),
		Chroma: loadChromaConfig(),
		Embeddings: EmbeddingsConfig{
			BaseURL:   envOr("EMBEDDINGS_BASE_URL", "https://api.openai.com/v1"),
			APIKey:    os.Getenv("EMBEDDINGS_API_KEY"),
			Model:     envOr("EMBEDDINGS_MODEL", "text-embedding-3-small"),
			BatchSize: envInt("EMBEDDINGS_BATCH_SIZE", 100),
		},
		Generation: GenerationConfig{
			BaseURL: envOr("GENERATION_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  os.Getenv("GENERATION_API_KEY"),
			Model:   envOr("GENERATION_MODEL", "gpt-4o-mini"),
		},
		WebSearch: WebSearchConfig{
			BaseURL: envOr("WEB_SEARCH_BASE_URL", "https://api.tavily.com"),
			APIKey:  os.Getenv("WEB_SEARCH_API_KEY"),
		},
		Retrieval: RetrievalConfig{
			Threshold: envFloat("RETRIEVAL_THRESHOLD", 0.3),
			TopK:      envInt("RETRIEVAL_TOP_K", 15),
		},
	}

	return cfg
}

func loadRedisConfig() db.RedisConfig {
	cfg := db.DefaultRedisConfig()

	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	cfg.Port = envInt("REDIS_PORT", cfg.Port)
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
	cfg.DB = envInt("REDIS_DB", cfg.DB)
	cfg.PoolSize = envInt("REDIS_POOL_SIZE", cfg.PoolSize)

	return cfg
}

func loadChromaConfig() db.ChromaDBConfig {
	cfg := db.ChromaDBConfig{
		Host:     envOr("CHROMA_HOST", "localhost"),
		Port:     envInt("CHROMA_PORT", 8000),
		Tenant:   envOr("CHROMA_TENANT", "default_tenant"),
		Database: envOr("CHROMA_DATABASE", "default_database"),
		Timeout:  30 * time.Second,
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
