package ingest

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/talentlens/recommend/internal/catalog"
	"github.com/talentlens/recommend/internal/embedder"
)

// countingEmbedder returns constant unnormalized vectors and records batch
// sizes.
type countingEmbedder struct {
	batchSizes []int
	failAfter  int // fail on batch N (1-based), 0 never fails
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, task embedder.Task) ([]float32, error) {
	return []float32{3, 4}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string, task embedder.Task) ([][]float32, error) {
	c.batchSizes = append(c.batchSizes, len(texts))
	if c.failAfter > 0 && len(c.batchSizes) == c.failAfter {
		return nil, errors.New("provider unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{3, 4}
	}
	return vectors, nil
}

func (c *countingEmbedder) Dimension() int    { return 2 }
func (c *countingEmbedder) ModelName() string { return "counting" }

func testRecords(n int) []catalog.Record {
	records := make([]catalog.Record, n)
	for i := range records {
		records[i] = catalog.Record{
			URL:  "https://example.com/a",
			Name: "Assessment",
		}
	}
	return records
}

func TestBuildText(t *testing.T) {
	tests := []struct {
		name   string
		record catalog.Record
		want   []string
		absent []string
	}{
		{
			name: "all fields",
			record: catalog.Record{
				Name:        "Java Test",
				Description: "Measures Java proficiency",
				Skills:      "Java, OOP",
				UseCases:    "Hiring backend engineers",
				TestType:    catalog.TypeKnowledge,
			},
			want: []string{"Java Test", "Measures Java proficiency", "Skills: Java, OOP", "Use cases: Hiring backend engineers", "Type: K"},
		},
		{
			name:   "name only",
			record: catalog.Record{Name: "Java Test"},
			want:   []string{"Java Test"},
			absent: []string{"Skills:", "Use cases:", "Type:"},
		},
		{
			name:   "empty record falls back to placeholder",
			record: catalog.Record{},
			want:   []string{"assessment"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := BuildText(tt.record)
			for _, want := range tt.want {
				if !strings.Contains(text, want) {
					t.Errorf("text %q missing %q", text, want)
				}
			}
			for _, absent := range tt.absent {
				if strings.Contains(text, absent) {
					t.Errorf("text %q contains unexpected %q", text, absent)
				}
			}
		})
	}
}

func TestPipeline_Run(t *testing.T) {
	emb := &countingEmbedder{}
	p := NewPipeline(emb, PipelineConfig{BatchSize: 10})

	vectors, stats, err := p.Run(context.Background(), testRecords(25))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(vectors) != 25 {
		t.Fatalf("got %d vectors, want 25", len(vectors))
	}
	if stats.Batches != 3 {
		t.Errorf("batches = %d, want 3", stats.Batches)
	}
	wantSizes := []int{10, 10, 5}
	for i, want := range wantSizes {
		if emb.batchSizes[i] != want {
			t.Errorf("batch %d size = %d, want %d", i, emb.batchSizes[i], want)
		}
	}

	// Vectors come back unit length.
	for i, v := range vectors {
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
			t.Fatalf("vector %d has norm %f, want 1", i, math.Sqrt(norm))
		}
	}
}

func TestPipeline_RunAbortsOnProviderFailure(t *testing.T) {
	emb := &countingEmbedder{failAfter: 2}
	p := NewPipeline(emb, PipelineConfig{BatchSize: 10})

	if _, _, err := p.Run(context.Background(), testRecords(25)); err == nil {
		t.Fatal("expected error when a batch fails")
	}
}
