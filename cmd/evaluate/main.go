// Command evaluate scores the recommendation pipeline against a labeled
// query set: a CSV pairing each query with the URLs of its relevant
// assessments. It reports Mean Recall@K and MAP@K across all queries.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/talentlens/recommend/internal/catalog"
	"github.com/talentlens/recommend/internal/config"
	"github.com/talentlens/recommend/internal/embedder"
	"github.com/talentlens/recommend/internal/eval"
	"github.com/talentlens/recommend/internal/llm"
	"github.com/talentlens/recommend/internal/recommender"
	"github.com/talentlens/recommend/internal/reranker"
	"github.com/talentlens/recommend/internal/vectorindex"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("evaluation failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	dataFile := flag.String("data", "data/labeled_queries.csv", "labeled query CSV (query + relevant URLs)")
	k := flag.Int("k", 10, "cutoff for Recall@K and MAP@K")
	useReranking := flag.Bool("rerank", true, "run the LLM reranking stage")
	balanceTypes := flag.Bool("balance", true, "run the type-balancing stage")
	flag.Parse()

	if *k < recommender.MinTopK || *k > recommender.MaxTopK {
		return fmt.Errorf("k must be in [%d, %d]", recommender.MinTopK, recommender.MaxTopK)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	labeled, err := eval.ReadLabeledCSV(*dataFile)
	if err != nil {
		return err
	}
	slog.Info("loaded labeled queries", "file", *dataFile, "queries", len(labeled))

	embed := embedder.WithZeroFallback(embedder.NewGeminiEmbedder(embedder.GeminiConfig{
		APIKey:    cfg.GeminiAPIKey,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
	}))

	llmClient := llm.NewGeminiClient(cfg.GeminiAPIKey, llm.WithModel(cfg.LLMModel))
	rerank := reranker.NewLLMReranker(llmClient,
		reranker.WithModel(cfg.LLMModel),
		reranker.WithTimeout(cfg.LLMTimeout),
	)

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

	svc := recommender.NewService(store, embed, recommender.WithReranker(rerank))

	opts := recommender.Options{UseReranking: *useReranking, BalanceTypes: *balanceTypes}
	report := eval.Evaluate(context.Background(), svc, labeled, *k, opts, slog.Default())

	slog.Info("evaluation complete",
		"queries", report.Queries,
		"failed", report.Failed,
		"k", report.K,
	)

	fmt.Printf("Queries evaluated: %d (%d failed)\n", report.Queries, report.Failed)
	fmt.Printf("Mean Recall@%d:    %.4f\n", report.K, report.MeanRecall)
	fmt.Printf("MAP@%d:            %.4f\n", report.K, report.MAP)

	return nil
}
