package eval

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/talentlens/recommend/internal/catalog"
	"github.com/talentlens/recommend/internal/recommender"
)

func urlSet(urls ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		s[u] = struct{}{}
	}
	return s
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecallAtK(t *testing.T) {
	tests := []struct {
		name      string
		predicted []string
		relevant  map[string]struct{}
		k         int
		want      float64
	}{
		{
			name:      "all relevant found",
			predicted: []string{"a", "b"},
			relevant:  urlSet("a", "b"),
			k:         10,
			want:      1,
		},
		{
			name:      "half found",
			predicted: []string{"a", "x"},
			relevant:  urlSet("a", "b"),
			k:         10,
			want:      0.5,
		},
		{
			name:      "hit beyond k ignored",
			predicted: []string{"x", "y", "a"},
			relevant:  urlSet("a"),
			k:         2,
			want:      0,
		},
		{
			name:      "empty relevant set",
			predicted: []string{"a"},
			relevant:  urlSet(),
			k:         10,
			want:      0,
		},
		{
			name:      "duplicate prediction counted once",
			predicted: []string{"a", "a"},
			relevant:  urlSet("a", "b"),
			k:         10,
			want:      0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecallAtK(tt.predicted, tt.relevant, tt.k); !almost(got, tt.want) {
				t.Errorf("RecallAtK = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestAveragePrecisionAtK(t *testing.T) {
	tests := []struct {
		name      string
		predicted []string
		relevant  map[string]struct{}
		k         int
		want      float64
	}{
		{
			name:      "perfect ranking",
			predicted: []string{"a", "b"},
			relevant:  urlSet("a", "b"),
			k:         10,
			want:      1,
		},
		{
			name:      "relevant at ranks 1 and 3",
			predicted: []string{"a", "x", "b"},
			relevant:  urlSet("a", "b"),
			k:         10,
			want:      (1.0 + 2.0/3.0) / 2,
		},
		{
			name:      "nothing relevant",
			predicted: []string{"x", "y"},
			relevant:  urlSet("a"),
			k:         10,
			want:      0,
		},
		{
			name:      "k smaller than relevant set normalizes by k",
			predicted: []string{"a"},
			relevant:  urlSet("a", "b", "c"),
			k:         1,
			want:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AveragePrecisionAtK(tt.predicted, tt.relevant, tt.k); !almost(got, tt.want) {
				t.Errorf("AveragePrecisionAtK = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestParseRelevantURLs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"https://example.com/a,https://example.com/b", []string{"https://example.com/a", "https://example.com/b"}},
		{"https://example.com/a; https://example.com/b", []string{"https://example.com/a", "https://example.com/b"}},
		{"https://example.com/a", []string{"https://example.com/a"}},
		{"https://example.com/a, nan, ", []string{"https://example.com/a"}},
		{"nan", nil},
		{"", nil},
	}

	for _, tt := range tests {
		got := ParseRelevantURLs(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("ParseRelevantURLs(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for _, w := range tt.want {
			if _, ok := got[w]; !ok {
				t.Errorf("ParseRelevantURLs(%q) missing %q", tt.in, w)
			}
		}
	}
}

func TestParseLabeledCSV(t *testing.T) {
	csvData := `Query,Relevant_Assessment_URLs
Java developer,"https://example.com/java,https://example.com/selenium"
Sales manager,https://example.com/sales
,https://example.com/orphan
No gold row,
`

	labeled, err := parseLabeledCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("parseLabeledCSV: %v", err)
	}

	if len(labeled) != 2 {
		t.Fatalf("expected 2 labeled queries, got %d", len(labeled))
	}
	if labeled[0].Query != "Java developer" || len(labeled[0].RelevantURLs) != 2 {
		t.Errorf("unexpected first row: %+v", labeled[0])
	}
	if labeled[1].Query != "Sales manager" || len(labeled[1].RelevantURLs) != 1 {
		t.Errorf("unexpected second row: %+v", labeled[1])
	}
}

func TestParseLabeledCSV_MissingRelevantColumn(t *testing.T) {
	csvData := `Query,Notes
Java developer,something
`
	if _, err := parseLabeledCSV(strings.NewReader(csvData)); err == nil {
		t.Fatal("expected error without a relevant-URLs column")
	}
}

// scriptedRecommender maps queries to fixed prediction lists.
type scriptedRecommender struct {
	predictions map[string][]string
	err         error
}

func (s *scriptedRecommender) Recommend(ctx context.Context, query string, topK int, opts recommender.Options) ([]catalog.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	var results []catalog.Candidate
	for _, url := range s.predictions[query] {
		results = append(results, catalog.Candidate{Record: catalog.Record{URL: url, Name: url}})
	}
	return results, nil
}

func TestEvaluate(t *testing.T) {
	rec := &scriptedRecommender{predictions: map[string][]string{
		"java": {"https://example.com/java", "https://example.com/x"},
		"sql":  {"https://example.com/x", "https://example.com/y"},
	}}
	labeled := []LabeledQuery{
		{Query: "java", RelevantURLs: urlSet("https://example.com/java")},
		{Query: "sql", RelevantURLs: urlSet("https://example.com/sql")},
	}

	report := Evaluate(context.Background(), rec, labeled, 10, recommender.Options{}, nil)

	if report.Queries != 2 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}
	// Query 1 recalls everything, query 2 nothing.
	if !almost(report.MeanRecall, 0.5) {
		t.Errorf("MeanRecall = %f, want 0.5", report.MeanRecall)
	}
	if !almost(report.MAP, 0.5) {
		t.Errorf("MAP = %f, want 0.5", report.MAP)
	}
}

func TestEvaluate_FailedQueriesScoreZero(t *testing.T) {
	rec := &scriptedRecommender{err: errors.New("index not loaded")}
	labeled := []LabeledQuery{
		{Query: "java", RelevantURLs: urlSet("https://example.com/java")},
	}

	report := Evaluate(context.Background(), rec, labeled, 10, recommender.Options{}, nil)

	if report.Failed != 1 {
		t.Errorf("Failed = %d, want 1", report.Failed)
	}
	if !almost(report.MeanRecall, 0) {
		t.Errorf("MeanRecall = %f, want 0", report.MeanRecall)
	}
}
