// Package eval measures recommendation accuracy offline against a labeled
// query set: each labeled row pairs a query with the URLs of the
// assessments a human judged relevant, and the report aggregates
// Recall@K and MAP@K over all rows.
package eval

import (
	"context"
	"log/slog"
	"strings"

	"github.com/talentlens/recommend/internal/catalog"
	"github.com/talentlens/recommend/internal/recommender"
)

// LabeledQuery is one ground-truth row: a query and the set of URLs
// judged relevant for it.
type LabeledQuery struct {
	Query        string
	RelevantURLs map[string]struct{}
}

// Recommender is the service surface the evaluator needs.
type Recommender interface {
	Recommend(ctx context.Context, query string, topK int, opts recommender.Options) ([]catalog.Candidate, error)
}

// Report aggregates per-query scores over a labeled set. Queries that
// error score 0 rather than aborting the run.
type Report struct {
	K          int
	Queries    int
	Failed     int
	MeanRecall float64
	MAP        float64
	Recalls    []float64
}

// RecallAtK is the fraction of the relevant set found in the top k
// predictions. An empty relevant set scores 0.
func RecallAtK(predicted []string, relevant map[string]struct{}, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	if len(predicted) > k {
		predicted = predicted[:k]
	}

	hits := 0
	seen := make(map[string]struct{}, len(predicted))
	for _, url := range predicted {
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		if _, ok := relevant[url]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

// AveragePrecisionAtK averages precision at each relevant hit position in
// the top k, normalized by min(|relevant|, k).
func AveragePrecisionAtK(predicted []string, relevant map[string]struct{}, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	if len(predicted) > k {
		predicted = predicted[:k]
	}

	hits := 0
	sum := 0.0
	seen := make(map[string]struct{}, len(predicted))
	for i, url := range predicted {
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		if _, ok := relevant[url]; ok {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}

	denom := len(relevant)
	if k < denom {
		denom = k
	}
	return sum / float64(denom)
}

// Evaluate runs every labeled query through rec and aggregates the scores.
func Evaluate(ctx context.Context, rec Recommender, labeled []LabeledQuery, k int, opts recommender.Options, logger *slog.Logger) Report {
	if logger == nil {
		logger = slog.Default()
	}

	report := Report{K: k, Queries: len(labeled)}
	mapSum := 0.0

	for i, lq := range labeled {
		results, err := rec.Recommend(ctx, lq.Query, k, opts)
		if err != nil {
			logger.Warn("query failed, scoring 0", "query_index", i, "error", err)
			report.Failed++
			report.Recalls = append(report.Recalls, 0)
			continue
		}

		predicted := make([]string, 0, len(results))
		for _, c := range results {
			predicted = append(predicted, c.URL)
		}

		recall := RecallAtK(predicted, lq.RelevantURLs, k)
		report.Recalls = append(report.Recalls, recall)
		mapSum += AveragePrecisionAtK(predicted, lq.RelevantURLs, k)

		logger.Debug("evaluated query", "query_index", i, "recall", recall)
	}

	if len(report.Recalls) > 0 {
		sum := 0.0
		for _, r := range report.Recalls {
			sum += r
		}
		report.MeanRecall = sum / float64(len(report.Recalls))
		report.MAP = mapSum / float64(len(report.Recalls))
	}
	return report
}

// ParseRelevantURLs splits a labeled URL cell on the first delimiter
// found, dropping empty and nan entries. Single-URL cells pass through.
func ParseRelevantURLs(cell string) map[string]struct{} {
	cell = strings.TrimSpace(cell)

	var parts []string
	for _, delim := range []string{",", ";", "|", "\n"} {
		if strings.Contains(cell, delim) {
			parts = strings.Split(cell, delim)
			break
		}
	}
	if parts == nil {
		parts = []string{cell}
	}

	urls := make(map[string]struct{})
	for _, p := range parts {
		if u := catalog.CleanField(p); u != "" {
			urls[u] = struct{}{}
		}
	}
	return urls
}
