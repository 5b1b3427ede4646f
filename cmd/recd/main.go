package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talentlens/recommend/internal/cache"
	"github.com/talentlens/recommend/internal/catalog"
	"github.com/talentlens/recommend/internal/config"
	"github.com/talentlens/recommend/internal/embedder"
	"github.com/talentlens/recommend/internal/llm"
	"github.com/talentlens/recommend/internal/recommender"
	"github.com/talentlens/recommend/internal/reranker"
	"github.com/talentlens/recommend/internal/server"
	"github.com/talentlens/recommend/internal/vectorindex"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	slog.Info("starting recommendation service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"vector_backend", cfg.VectorBackend,
	)

	// Initialize Gemini embedder with zero-vector degradation
	embed := embedder.WithZeroFallback(embedder.NewGeminiEmbedder(embedder.GeminiConfig{
		APIKey:    cfg.GeminiAPIKey,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
	}))
	slog.Info("initialized Gemini embedder", "model", cfg.EmbeddingModel)

	// Initialize Gemini LLM and reranker
	llmClient := llm.NewGeminiClient(cfg.GeminiAPIKey, llm.WithModel(cfg.LLMModel))
	rerank := reranker.NewLLMReranker(llmClient,
		reranker.WithModel(cfg.LLMModel),
		reranker.WithTimeout(cfg.LLMTimeout),
	)
	slog.Info("initialized Gemini reranker", "model", cfg.LLMModel, "timeout", cfg.LLMTimeout)

	// The index loads lazily on first use. A qdrant backend keeps vectors
	// server-side and only the metadata file is read locally.
	var store *vectorindex.LazyStore
	switch cfg.VectorBackend {
	case "qdrant":
		store = vectorindex.NewLazyStore(func() (*vectorindex.Store, error) {
			index, err := vectorindex.NewQdrantIndex(cfg.QdrantAddr, cfg.QdrantCollection)
			if err != nil {
				return nil, err
			}
			records, err := catalog.ReadRecords(cfg.MetadataFile)
			if err != nil {
				return nil, err
			}
			return &vectorindex.Store{
				Index:     index,
				Records:   records,
				Dimension: cfg.EmbeddingDimension,
			}, nil
		})
	default:
		store = vectorindex.NewLazyStore(func() (*vectorindex.Store, error) {
			return vectorindex.LoadStore(cfg.VectorFile, cfg.MetadataFile)
		})
	}

	svcOpts := []recommender.ServiceOption{recommender.WithReranker(rerank)}
	if cfg.CacheTTL > 0 {
		svcOpts = append(svcOpts, recommender.WithCache(cache.NewStore(cfg.CacheEntries, cfg.CacheTTL)))
		slog.Info("result cache enabled", "ttl", cfg.CacheTTL, "entries", cfg.CacheEntries)
	}
	svc := recommender.NewService(store, embed, svcOpts...)

	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:               cfg.HTTPPort,
		Logger:             slog.Default(),
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxQueryLength:     cfg.MaxQueryLength,
		DefaultTopK:        cfg.DefaultTopK,
	}, svc)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ embedder.Embedder  = (*embedder.ZeroFallback)(nil)
	_ llm.LLM            = (*llm.GeminiClient)(nil)
	_ server.Recommender = (*recommender.Service)(nil)
)
