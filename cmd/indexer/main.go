// Command indexer builds the vector index from a cleaned assessment
// catalog CSV. It embeds every record and writes either the local vector
// and metadata files, or upserts into a qdrant collection, depending on
// the configured backend.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/talentlens/recommend/internal/catalog"
	"github.com/talentlens/recommend/internal/config"
	"github.com/talentlens/recommend/internal/embedder"
	"github.com/talentlens/recommend/internal/ingest"
	"github.com/talentlens/recommend/internal/vectorindex"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	records, err := catalog.ReadCatalogCSV(cfg.CatalogFile)
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}
	slog.Info("loaded catalog", "file", cfg.CatalogFile, "records", len(records))

	emb := embedder.NewGeminiEmbedder(embedder.GeminiConfig{
		APIKey:    cfg.GeminiAPIKey,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
	})

	pipeline := ingest.NewPipeline(emb, ingest.PipelineConfig{Logger: slog.Default()})
	vectors, stats, err := pipeline.Run(ctx, records)
	if err != nil {
		return err
	}
	slog.Info("embedded catalog",
		"records", stats.Records,
		"batches", stats.Batches,
		"dimension", stats.Dimension,
		"duration", stats.ProcessingTime,
	)

	if cfg.VectorBackend == "qdrant" {
		return writeQdrant(ctx, cfg, vectors, records)
	}
	return writeFiles(cfg, vectors, records)
}

func writeFiles(cfg *config.Config, vectors [][]float32, records []catalog.Record) error {
	if err := vectorindex.WriteVectors(cfg.VectorFile, cfg.EmbeddingDimension, vectors); err != nil {
		return fmt.Errorf("writing vectors: %w", err)
	}
	if err := catalog.WriteRecords(cfg.MetadataFile, records); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	slog.Info("wrote index files",
		"vector_file", cfg.VectorFile,
		"metadata_file", cfg.MetadataFile,
	)
	return nil
}

func writeQdrant(ctx context.Context, cfg *config.Config, vectors [][]float32, records []catalog.Record) error {
	index, err := vectorindex.NewQdrantIndex(cfg.QdrantAddr, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("connecting to qdrant: %w", err)
	}
	defer index.Close()

	if err := index.EnsureCollection(ctx, cfg.EmbeddingDimension); err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}
	if err := index.Upsert(ctx, vectors); err != nil {
		return fmt.Errorf("upserting vectors: %w", err)
	}

	// Point IDs reference metadata by offset, so the local file must stay
	// in sync with the collection.
	if err := catalog.WriteRecords(cfg.MetadataFile, records); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	slog.Info("indexed into qdrant",
		"collection", cfg.QdrantCollection,
		"points", len(vectors),
		"metadata_file", cfg.MetadataFile,
	)
	return nil
}
