// Package ingest builds the searchable index from a cleaned assessment
// catalog: it renders each record into embedding text, embeds the texts in
// batches, and normalizes the resulting vectors for inner-product search.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talentlens/recommend/internal/catalog"
	"github.com/talentlens/recommend/internal/embedder"
	"github.com/talentlens/recommend/internal/vectorindex"
)

// DefaultBatchSize is how many records are embedded per provider batch.
const DefaultBatchSize = 100

// PipelineConfig holds configuration for the indexing pipeline.
type PipelineConfig struct {
	// BatchSize caps records per embedding batch. Zero means DefaultBatchSize.
	BatchSize int

	Logger *slog.Logger
}

// PipelineStats summarizes one pipeline run.
type PipelineStats struct {
	Records        int
	Batches        int
	Dimension      int
	ProcessingTime time.Duration
}

// Pipeline embeds catalog records into normalized vectors.
type Pipeline struct {
	embedder  embedder.Embedder
	batchSize int
	logger    *slog.Logger
}

// NewPipeline creates an indexing pipeline over the given embedder.
func NewPipeline(emb embedder.Embedder, cfg PipelineConfig) *Pipeline {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		embedder:  emb,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run embeds every record and returns one normalized vector per record, in
// record order. Unlike query-time embedding there is no degraded mode: a
// provider failure aborts the run, since a partial index is worse than none.
func (p *Pipeline) Run(ctx context.Context, records []catalog.Record) ([][]float32, PipelineStats, error) {
	start := time.Now()

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = BuildText(rec)
	}

	vectors := make([][]float32, 0, len(records))
	batches := 0

	for begin := 0; begin < len(texts); begin += p.batchSize {
		end := begin + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := p.embedder.EmbedBatch(ctx, texts[begin:end], embedder.TaskDocument)
		if err != nil {
			return nil, PipelineStats{}, fmt.Errorf("embedding batch %d: %w", batches+1, err)
		}
		vectors = append(vectors, batch...)
		batches++

		p.logger.Info("embedded batch",
			"batch", batches,
			"embedded", len(vectors),
			"total", len(texts))
	}

	for _, v := range vectors {
		vectorindex.Normalize(v)
	}

	stats := PipelineStats{
		Records:        len(records),
		Batches:        batches,
		Dimension:      p.embedder.Dimension(),
		ProcessingTime: time.Since(start),
	}
	return vectors, stats, nil
}

// BuildText renders a record into the text that gets embedded. Name and
// description carry most of the signal; skills, use cases, and type are
// appended as labeled lines so related queries land near the record.
func BuildText(rec catalog.Record) string {
	var parts []string

	if rec.Name != "" {
		parts = append(parts, rec.Name)
	}
	if rec.Description != "" {
		parts = append(parts, rec.Description)
	}
	if rec.Skills != "" {
		parts = append(parts, "Skills: "+rec.Skills)
	}
	if rec.UseCases != "" {
		parts = append(parts, "Use cases: "+rec.UseCases)
	}
	if rec.TestType != "" {
		parts = append(parts, "Type: "+rec.TestType)
	}

	if len(parts) == 0 {
		return "assessment"
	}
	return strings.Join(parts, "\n")
}
