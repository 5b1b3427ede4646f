package reranker

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/talentlens/recommend/internal/catalog"
	"github.com/talentlens/recommend/internal/llm"
)

const (
	// DefaultTimeout bounds the LLM call. Past it the in-flight call is
	// abandoned and similarity order is returned instead.
	DefaultTimeout = 30 * time.Second

	// maxDescriptionChars and maxSkillsChars bound per-candidate prompt size.
	maxDescriptionChars = 200
	maxSkillsChars      = 100
)

// technicalRoleKeywords trigger the explicit technical-over-generic
// ranking rule in the prompt. Embedding similarity alone tends to rank
// sales and entry-level assessments high for these queries.
var technicalRoleKeywords = []string{"software", "engineer", "developer", "programmer", "coding", "technical"}

var (
	rankPrefixRe = regexp.MustCompile(`(?i)^(ranking|order|result|output|assessment|recommendation):?\s*`)
	bracketRe    = regexp.MustCompile(`[\[\]()]`)
	numberRunRe  = regexp.MustCompile(`\d+(?:\s*,\s*\d+)+`)
	numberRe     = regexp.MustCompile(`\b\d+\b`)
)

// LLMReranker asks an LLM for a permutation of the candidate list and
// applies it. The candidate list is truncated to twice topK before
// prompting to bound prompt size.
type LLMReranker struct {
	llmClient llm.LLM
	model     string
	timeout   time.Duration
	logger    *slog.Logger
}

// LLMRerankerOption is a functional option for configuring LLMReranker.
type LLMRerankerOption func(*LLMReranker)

// WithModel sets the model to use for reranking.
func WithModel(model string) LLMRerankerOption {
	return func(r *LLMReranker) {
		r.model = model
	}
}

// WithTimeout sets the LLM call timeout.
func WithTimeout(d time.Duration) LLMRerankerOption {
	return func(r *LLMReranker) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LLMRerankerOption {
	return func(r *LLMReranker) {
		r.logger = logger
	}
}

// NewLLMReranker creates a new LLM-based reranker.
func NewLLMReranker(llmClient llm.LLM, opts ...LLMRerankerOption) *LLMReranker {
	r := &LLMReranker{
		llmClient: llmClient,
		model:     llm.DefaultModel,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Rerank asks the LLM for a relevance ordering of candidates and returns
// up to topK of them in that order, each tagged with its rank position and
// score. On timeout, provider failure, or an unparsable response it
// returns the candidates in similarity-descending order instead.
func (r *LLMReranker) Rerank(ctx context.Context, query string, candidates []catalog.Candidate, topK int) []catalog.Candidate {
	if len(candidates) == 0 || topK <= 0 {
		return nil
	}

	// Bound prompt size: the LLM only ever sees up to 2*topK candidates.
	if len(candidates) > 2*topK {
		candidates = candidates[:2*topK]
	}

	prompt := r.buildPrompt(query, candidates)

	response, err := r.generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("reranking failed, falling back to similarity order", "error", err)
		return similaritySorted(candidates, topK)
	}

	order, ok := parseRanking(response, len(candidates), topK)
	if !ok {
		r.logger.Warn("could not parse ranking response, falling back to similarity order")
		return similaritySorted(candidates, topK)
	}

	r.logger.Debug("reranked candidates", "ranked", len(order), "total", len(candidates))
	return applyRanking(candidates, order, topK)
}

// generate runs the LLM call on its own goroutine under the configured
// timeout. On expiry the call is abandoned: its context is cancelled and
// the goroutine's eventual result is discarded.
func (r *LLMReranker) generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		text, err := r.llmClient.Generate(callCtx, prompt, llm.GenerateOptions{
			Model:       r.model,
			Temperature: 0, // Deterministic ranking
			MaxTokens:   256,
		})
		done <- outcome{text: text, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return "", out.err
		}
		return out.text, nil
	case <-callCtx.Done():
		return "", fmt.Errorf("LLM call timed out after %s: %w", r.timeout, callCtx.Err())
	}
}

// buildPrompt renders the candidates as compact numbered blocks and asks
// for a comma-separated permutation of their numbers.
func (r *LLMReranker) buildPrompt(query string, candidates []catalog.Candidate) string {
	var sb strings.Builder

	sb.WriteString("You are an expert assessment recommendation system. Re-rank assessments by relevance to this job query.\n\n")
	sb.WriteString("JOB QUERY: ")
	sb.WriteString(strconv.Quote(query))
	sb.WriteString("\n")

	if isTechnicalRoleQuery(query) {
		sb.WriteString(`
CRITICAL: This is a TECHNICAL/SOFTWARE role query. You MUST:
- Rank programming/technical assessments (Java, Python, JavaScript, SQL, Selenium, etc.) HIGHEST
- Rank sales, entry-level, or non-technical assessments LOWEST
- Prioritize assessments that test coding, programming, software development skills
`)
	}

	sb.WriteString("\nCANDIDATE ASSESSMENTS (currently ranked by similarity, but re-rank by actual job relevance):\n\n")
	for i, c := range candidates {
		sb.WriteString(fmt.Sprintf("Assessment %d: %s\n", i+1, c.Name))
		if desc := truncate(c.Description, maxDescriptionChars); desc != "" {
			sb.WriteString("   Description: " + desc + "\n")
		}
		if c.TestType != "" {
			sb.WriteString("   Type: " + c.TestType + "\n")
		}
		if skills := truncate(c.Skills, maxSkillsChars); skills != "" {
			sb.WriteString("   Skills: " + skills + "\n")
		}
		sb.WriteString(fmt.Sprintf("   (Similarity: %.3f)\n\n", c.Similarity))
	}

	sb.WriteString(fmt.Sprintf(`YOUR TASK:
Re-rank these %d assessments from MOST RELEVANT to LEAST RELEVANT for the job query.
Match assessments to the actual job requirements; ignore the similarity scores when they disagree with job relevance.

Return ONLY the assessment numbers in your new ranking order, comma-separated.
Example output: 5,7,8,1,2,3,4,6

Return ONLY numbers, no explanations.`, len(candidates)))

	return sb.String()
}

// parseRanking extracts a permutation of 1..n from the model output.
// It strips known prefixes and brackets, takes the first comma-separated
// run of integers, deduplicates keeping first occurrence, and rejects
// indices outside [1, n]. Parsing succeeds only if at least min(topK, n)
// valid indices survive; anything less counts as a malformed response.
func parseRanking(response string, n, topK int) ([]int, bool) {
	cleaned := strings.TrimSpace(response)
	cleaned = rankPrefixRe.ReplaceAllString(cleaned, "")
	cleaned = bracketRe.ReplaceAllString(cleaned, "")

	if run := numberRunRe.FindString(cleaned); run != "" {
		cleaned = run
	}

	var order []int
	seen := make(map[int]struct{})
	for _, match := range numberRe.FindAllString(cleaned, -1) {
		num, err := strconv.Atoi(match)
		if err != nil || num < 1 || num > n {
			continue
		}
		idx := num - 1
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		order = append(order, idx)
	}

	required := topK
	if n < required {
		required = n
	}
	return order, len(order) >= required
}

// applyRanking reorders candidates by the parsed permutation. Ranked
// candidates get a 1-based position and a descending score; any candidate
// the model left out is appended afterwards in original similarity order
// with score 0. The result is authoritative and must not be re-sorted.
func applyRanking(candidates []catalog.Candidate, order []int, topK int) []catalog.Candidate {
	ranked := make([]catalog.Candidate, 0, len(candidates))
	inOrder := make(map[int]struct{}, len(order))

	for pos, idx := range order {
		c := candidates[idx]
		c.RerankPosition = pos + 1
		c.RerankScore = len(order) - pos
		ranked = append(ranked, c)
		inOrder[idx] = struct{}{}
	}

	for i, c := range candidates {
		if _, ok := inOrder[i]; ok {
			continue
		}
		c.RerankPosition = len(order) + 1
		c.RerankScore = 0
		ranked = append(ranked, c)
	}

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// similaritySorted is the fallback ordering: a copy of candidates sorted
// by similarity descending, truncated to topK.
func similaritySorted(candidates []catalog.Candidate, topK int) []catalog.Candidate {
	sorted := make([]catalog.Candidate, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Similarity > sorted[j].Similarity
	})

	if len(sorted) > topK {
		sorted = sorted[:topK]
	}
	return sorted
}

func isTechnicalRoleQuery(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range technicalRoleKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// truncate shortens s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Ensure LLMReranker implements Reranker interface.
var _ Reranker = (*LLMReranker)(nil)
