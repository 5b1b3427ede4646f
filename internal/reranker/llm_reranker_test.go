package reranker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/talentlens/recommend/internal/catalog"
	"github.com/talentlens/recommend/internal/llm"
)

// stubLLM returns a canned response or error, and optionally blocks until
// its context is cancelled.
type stubLLM struct {
	response string
	err      error
	block    bool
	prompt   string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	s.prompt = prompt
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.response, s.err
}

func testCandidates(n int) []catalog.Candidate {
	candidates := make([]catalog.Candidate, n)
	for i := range candidates {
		candidates[i] = catalog.Candidate{
			Record: catalog.Record{
				URL:      fmt.Sprintf("https://example.com/a%d", i),
				Name:     fmt.Sprintf("Assessment %d", i),
				TestType: catalog.TypeKnowledge,
			},
			Similarity: float32(n-i) / float32(n),
		}
	}
	return candidates
}

func TestLLMReranker_AppliesPermutation(t *testing.T) {
	client := &stubLLM{response: "3,1,2"}
	r := NewLLMReranker(client)

	results := r.Rerank(context.Background(), "backend developer", testCandidates(3), 3)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	wantNames := []string{"Assessment 2", "Assessment 0", "Assessment 1"}
	for i, want := range wantNames {
		if results[i].Name != want {
			t.Errorf("result[%d] = %q, want %q", i, results[i].Name, want)
		}
		if results[i].RerankPosition != i+1 {
			t.Errorf("result[%d] position = %d, want %d", i, results[i].RerankPosition, i+1)
		}
		if results[i].RerankScore != 3-i {
			t.Errorf("result[%d] score = %d, want %d", i, results[i].RerankScore, 3-i)
		}
	}
}

func TestLLMReranker_TruncatesCandidatesBeforePrompting(t *testing.T) {
	client := &stubLLM{response: "1,2,3,4"}
	r := NewLLMReranker(client)

	results := r.Rerank(context.Background(), "analyst", testCandidates(20), 2)

	// Only 2*topK candidates are shown to the model.
	if strings.Contains(client.prompt, "Assessment 5:") {
		t.Error("prompt contains candidates beyond twice topK")
	}
	if !strings.Contains(client.prompt, "Assessment 4:") {
		t.Error("prompt missing the last in-window candidate")
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestLLMReranker_TechnicalRolePromptInjection(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"senior software engineer", true},
		{"python developer", true},
		{"coding bootcamp graduate", true},
		{"sales account executive", false},
		{"customer support agent", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			client := &stubLLM{response: "1,2,3"}
			r := NewLLMReranker(client)
			r.Rerank(context.Background(), tt.query, testCandidates(3), 3)

			got := strings.Contains(client.prompt, "TECHNICAL/SOFTWARE role")
			if got != tt.want {
				t.Errorf("technical injection = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLLMReranker_FallbackOnError(t *testing.T) {
	client := &stubLLM{err: errors.New("quota exceeded")}
	r := NewLLMReranker(client)

	candidates := testCandidates(4)
	// Shuffle similarity so the fallback has real sorting to do.
	candidates[0].Similarity = 0.1
	candidates[3].Similarity = 0.9

	results := r.Rerank(context.Background(), "any role", candidates, 3)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Name != "Assessment 3" {
		t.Errorf("fallback top result = %q, want highest-similarity candidate", results[0].Name)
	}
	for i, c := range results {
		if c.Reranked() {
			t.Errorf("result[%d] marked reranked after fallback", i)
		}
	}
}

func TestLLMReranker_FallbackOnMalformedResponse(t *testing.T) {
	client := &stubLLM{response: "I cannot rank these assessments without more context."}
	r := NewLLMReranker(client)

	results := r.Rerank(context.Background(), "designer", testCandidates(4), 3)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Error("fallback results not in similarity order")
		}
	}
}

func TestLLMReranker_FallbackOnTimeout(t *testing.T) {
	client := &stubLLM{block: true}
	r := NewLLMReranker(client, WithTimeout(20*time.Millisecond))

	candidates := testCandidates(3)
	candidates[0].Similarity = 0.2
	candidates[1].Similarity = 0.9
	candidates[2].Similarity = 0.5

	start := time.Now()
	results := r.Rerank(context.Background(), "Java developer", candidates, 3)
	elapsed := time.Since(start)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if elapsed > 2*time.Second {
		t.Errorf("rerank blocked for %s, timeout not honored", elapsed)
	}

	// A timed-out call yields exactly the similarity-descending order.
	wantNames := []string{"Assessment 1", "Assessment 2", "Assessment 0"}
	for i, want := range wantNames {
		if results[i].Name != want {
			t.Errorf("result[%d] = %q, want %q", i, results[i].Name, want)
		}
		if results[i].Reranked() {
			t.Errorf("result[%d] marked reranked after timeout", i)
		}
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 100) // 2 bytes per rune

	for _, max := range []int{99, 100, 101} {
		got := truncate(s, max)
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%d) split a rune: %q", max, got[len(got)-4:])
		}
		if len(got) > max+len("...") {
			t.Errorf("truncate(%d) returned %d bytes", max, len(got))
		}
	}

	if got := truncate("short", 200); got != "short" {
		t.Errorf("short string changed: %q", got)
	}
}

func TestLLMReranker_EmptyInput(t *testing.T) {
	r := NewLLMReranker(&stubLLM{response: "1"})

	if got := r.Rerank(context.Background(), "query", nil, 5); got != nil {
		t.Errorf("got %v for empty candidates, want nil", got)
	}
	if got := r.Rerank(context.Background(), "query", testCandidates(2), 0); got != nil {
		t.Errorf("got %v for topK 0, want nil", got)
	}
}

func TestParseRanking(t *testing.T) {
	tests := []struct {
		name     string
		response string
		n        int
		topK     int
		want     []int
		ok       bool
	}{
		{
			name:     "plain list",
			response: "3,1,2",
			n:        3,
			topK:     3,
			want:     []int{2, 0, 1},
			ok:       true,
		},
		{
			name:     "ranking prefix",
			response: "Ranking: 2, 1, 3",
			n:        3,
			topK:     3,
			want:     []int{1, 0, 2},
			ok:       true,
		},
		{
			name:     "bracketed",
			response: "[4, 2, 1, 3]",
			n:        4,
			topK:     4,
			want:     []int{3, 1, 0, 2},
			ok:       true,
		},
		{
			name:     "surrounding prose",
			response: "Here is my order: 2,3,1 as requested.",
			n:        3,
			topK:     3,
			want:     []int{1, 2, 0},
			ok:       true,
		},
		{
			name:     "duplicates keep first",
			response: "1,2,2,3",
			n:        3,
			topK:     3,
			want:     []int{0, 1, 2},
			ok:       true,
		},
		{
			name:     "out of range dropped",
			response: "1,9,2,3",
			n:        3,
			topK:     3,
			want:     []int{0, 1, 2},
			ok:       true,
		},
		{
			name:     "too few indices",
			response: "1,2",
			n:        5,
			topK:     5,
			want:     []int{0, 1},
			ok:       false,
		},
		{
			name:     "few candidates lower threshold",
			response: "2,1",
			n:        2,
			topK:     10,
			want:     []int{1, 0},
			ok:       true,
		},
		{
			name:     "no numbers",
			response: "I am unable to provide a ranking.",
			n:        3,
			topK:     3,
			want:     nil,
			ok:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRanking(tt.response, tt.n, tt.topK)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestApplyRanking_UnrankedAppended(t *testing.T) {
	candidates := testCandidates(4)
	results := applyRanking(candidates, []int{3, 0}, 4)

	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	if results[0].Name != "Assessment 3" || results[1].Name != "Assessment 0" {
		t.Errorf("ranked prefix wrong: %q, %q", results[0].Name, results[1].Name)
	}
	for _, c := range results[2:] {
		if c.RerankScore != 0 {
			t.Errorf("unranked %q has score %d, want 0", c.Name, c.RerankScore)
		}
		if c.RerankPosition != 3 {
			t.Errorf("unranked %q has position %d, want 3", c.Name, c.RerankPosition)
		}
	}
}

func TestBySimilarity(t *testing.T) {
	candidates := testCandidates(5)
	candidates[4].Similarity = 2.0

	results := BySimilarity(candidates, 2)

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Name != "Assessment 4" {
		t.Errorf("top result = %q, want the highest-similarity candidate", results[0].Name)
	}
	// Input slice order is untouched.
	if candidates[0].Name != "Assessment 0" {
		t.Error("input slice was mutated")
	}
}
