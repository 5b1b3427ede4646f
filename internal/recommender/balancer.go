package recommender

import (
	"sort"
	"strings"

	"github.com/talentlens/recommend/internal/catalog"
)

// roleKeywords mark queries about a concrete role, where hiring flows
// usually pair knowledge tests with a personality or behavioral test.
var roleKeywords = []string{"engineer", "developer", "programmer", "manager", "lead", "senior", "analyst"}

// Balancer injects behavioral-type assessments into results that came out
// of the plain-similarity path all-technical. It never touches a list the
// reranker ordered.
type Balancer struct {
	// RoleKeywords trigger balancing when present in the query.
	RoleKeywords []string

	// MinPrimaryResults is the technical-result count below which the
	// list is considered too small to sacrifice tail entries.
	MinPrimaryResults int

	// MaxSwap caps how many tail entries may be replaced. The exact
	// constants here are heuristic tuning knobs, not hard rules.
	MaxSwap int
}

// NewBalancer creates a balancer with default thresholds.
func NewBalancer() *Balancer {
	return &Balancer{
		RoleKeywords:      roleKeywords,
		MinPrimaryResults: 8,
		MaxSwap:           2,
	}
}

// Balance returns results with up to MaxSwap low-similarity tail entries
// replaced by the best behavioral candidates from the wider pool, then
// re-sorted by similarity. It returns the input unchanged when:
//   - any result carries a rerank score (LLM order is authoritative),
//   - both technical and behavioral types are already represented,
//   - the query names no role, or
//   - fewer than MinPrimaryResults technical results are present.
func (b *Balancer) Balance(results, pool []catalog.Candidate, query string, topK int) []catalog.Candidate {
	if len(results) == 0 {
		return results
	}

	for _, c := range results {
		if c.Reranked() {
			return results
		}
	}

	technical := 0
	behavioral := 0
	for _, c := range results {
		if c.IsTechnical() {
			technical++
		}
		if c.IsBehavioral() {
			behavioral++
		}
	}
	if behavioral > 0 {
		return results
	}
	if !b.queryNamesRole(query) {
		return results
	}
	if technical < b.MinPrimaryResults {
		return results
	}

	selected := make(map[string]struct{}, len(results))
	for _, c := range results {
		if c.URL != "" {
			selected[c.URL] = struct{}{}
		}
	}

	var replacements []catalog.Candidate
	for _, c := range pool {
		if len(replacements) == b.MaxSwap {
			break
		}
		if !c.IsBehavioral() {
			continue
		}
		if c.URL != "" {
			if _, dup := selected[c.URL]; dup {
				continue
			}
		}
		replacements = append(replacements, c)
	}
	if len(replacements) == 0 {
		return results
	}

	// Drop the same number of lowest-similarity entries from the tail,
	// merge in the replacements, and restore similarity order.
	merged := make([]catalog.Candidate, 0, len(results))
	merged = append(merged, results[:len(results)-len(replacements)]...)
	merged = append(merged, replacements...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}

func (b *Balancer) queryNamesRole(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range b.RoleKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
