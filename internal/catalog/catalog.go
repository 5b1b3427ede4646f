// Package catalog defines the assessment data model and its canonical form.
//
// Upstream catalog exports are inconsistent: column headers vary between
// spreadsheet-style names ("Assessment Name", "Test Type") and lowercase
// keys, numeric cells leak "nan" strings, and test types appear both as
// single letters and as full words. Everything that enters the system is
// canonicalized exactly once, here, at load time. Downstream code never
// performs dual-name lookups or nan cleanup.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Test type categories. K covers knowledge/technical assessments, P covers
// personality/behavioral ones, H is a hybrid of both.
const (
	TypeKnowledge   = "K"
	TypePersonality = "P"
	TypeHybrid      = "H"
)

// Record is an immutable catalog entry. URL is the identity key and is
// unique within a catalog. Records are created at index-build time and
// read-only at query time.
type Record struct {
	URL           string `json:"url"`
	Name          string `json:"name"`
	TestType      string `json:"test_type,omitempty"`
	Description   string `json:"description,omitempty"`
	Duration      string `json:"duration,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
	Skills        string `json:"skills,omitempty"`
	Prerequisites string `json:"prerequisites,omitempty"`
	UseCases      string `json:"use_cases,omitempty"`
	Industry      string `json:"industry,omitempty"`
}

// Candidate is a per-query copy of a Record enriched with retrieval scores.
// Candidates are owned by a single recommendation call and never shared.
type Candidate struct {
	Record

	// Similarity is the cosine similarity against the query vector.
	Similarity float32 `json:"similarity"`

	// RerankScore and RerankPosition are set only when LLM reranking
	// succeeded. A positive RerankScore marks the ordering as
	// LLM-authoritative: it must not be re-sorted downstream.
	RerankScore    int `json:"rerank_score,omitempty"`
	RerankPosition int `json:"rerank_position,omitempty"`
}

// Reranked reports whether this candidate carries an LLM-assigned rank.
func (c Candidate) Reranked() bool {
	return c.RerankScore > 0
}

// IsTechnical reports whether the candidate belongs to the technical
// category (knowledge or hybrid).
func (c Candidate) IsTechnical() bool {
	return c.TestType == TypeKnowledge || c.TestType == TypeHybrid
}

// IsBehavioral reports whether the candidate belongs to the behavioral
// category (personality or hybrid).
func (c Candidate) IsBehavioral() bool {
	return c.TestType == TypePersonality || c.TestType == TypeHybrid
}

// CleanField strips whitespace and maps the "nan" artifacts that leak out
// of spreadsheet exports to the empty string.
func CleanField(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") || strings.EqualFold(s, "none") {
		return ""
	}
	return s
}

// CanonicalTestType maps the many upstream spellings of a test type to
// one of the canonical single-letter categories, or "" when unknown.
func CanonicalTestType(raw string) string {
	t := strings.ToUpper(CleanField(raw))
	switch {
	case t == "":
		return ""
	case t == TypeKnowledge, strings.HasPrefix(t, "KNOW"), strings.HasPrefix(t, "TECH"), strings.HasPrefix(t, "COGN"):
		return TypeKnowledge
	case t == TypePersonality, strings.HasPrefix(t, "PERSON"), strings.HasPrefix(t, "BEHAV"):
		return TypePersonality
	case t == TypeHybrid, strings.HasPrefix(t, "HYB"):
		return TypeHybrid
	}
	// Some exports prefix the letter code with qualifiers ("K - Technical").
	switch t[:1] {
	case TypeKnowledge, TypePersonality, TypeHybrid:
		return t[:1]
	}
	return ""
}

// Normalize returns the canonical form of a record: all fields cleaned and
// the test type mapped to its category letter.
func Normalize(r Record) Record {
	return Record{
		URL:           CleanField(r.URL),
		Name:          CleanField(r.Name),
		TestType:      CanonicalTestType(r.TestType),
		Description:   CleanField(r.Description),
		Duration:      CleanField(r.Duration),
		Difficulty:    CleanField(r.Difficulty),
		Skills:        CleanField(r.Skills),
		Prerequisites: CleanField(r.Prerequisites),
		UseCases:      CleanField(r.UseCases),
		Industry:      CleanField(r.Industry),
	}
}

// ReadRecords loads the metadata file: an ordered JSON array of records,
// parallel to the vector file. Records are normalized on the way in.
func ReadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing metadata file %s: %w", path, err)
	}

	for i := range records {
		records[i] = Normalize(records[i])
	}
	return records, nil
}

// WriteRecords persists records as the metadata file, preserving order.
func WriteRecords(path string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing metadata file: %w", err)
	}
	return nil
}
