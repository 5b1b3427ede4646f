// Package config loads configuration from environment variables and .env files.
package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when no Gemini API key is configured.
// The embedding and reranking providers cannot be reached without it.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is required")

// Config holds all configuration for the recommendation service
type Config struct {
	// Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Gemini
	GeminiAPIKey       string        `env:"GEMINI_API_KEY"`
	EmbeddingModel     string        `env:"EMBEDDING_MODEL" envDefault:"text-embedding-004"`
	EmbeddingDimension int           `env:"EMBEDDING_DIMENSION" envDefault:"768"`
	LLMModel           string        `env:"LLM_MODEL" envDefault:"gemini-1.5-flash"`
	LLMTimeout         time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`

	// Index files
	VectorFile   string `env:"VECTOR_INDEX_FILE" envDefault:"data/catalog.vec"`
	MetadataFile string `env:"METADATA_FILE" envDefault:"data/catalog_meta.json"`
	CatalogFile  string `env:"CATALOG_FILE" envDefault:"data/catalog_cleaned.csv"`

	// Vector backend: "flat" (local file index) or "qdrant"
	VectorBackend    string `env:"VECTOR_BACKEND" envDefault:"flat"`
	QdrantAddr       string `env:"QDRANT_ADDR" envDefault:"localhost:6334"`
	QdrantCollection string `env:"QDRANT_COLLECTION" envDefault:"assessments"`

	// Request handling
	RateLimitPerMinute int      `env:"RATE_LIMIT" envDefault:"60"`
	MaxQueryLength     int      `env:"MAX_QUERY_LENGTH" envDefault:"5000"`
	DefaultTopK        int      `env:"DEFAULT_TOP_K" envDefault:"10"`
	AllowedOrigins     []string `env:"ALLOWED_ORIGINS" envDefault:"*"`

	// Result cache, 0 disables
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"15m"`
	CacheEntries int           `env:"CACHE_ENTRIES" envDefault:"1000"`
}

// Load loads configuration from .env file (if present) and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration that the service cannot run without.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
