package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// prepackagedRe matches pre-packaged job solution entries, which are
// bundles of individual tests and excluded from the recommendable catalog.
var prepackagedRe = regexp.MustCompile(`(?i)pre[-\s]*packaged|prepackaged|job[\s-]*solution`)

// columnFor maps a CSV header to a record field name. Headers vary between
// exports, so matching is by substring on the lowercased header.
func columnFor(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	switch {
	case strings.Contains(h, "name") || strings.Contains(h, "assessment"):
		return "name"
	case strings.Contains(h, "desc"):
		return "description"
	case strings.Contains(h, "type"):
		return "test_type"
	case strings.Contains(h, "url") || strings.Contains(h, "link"):
		return "url"
	case strings.Contains(h, "duration"):
		return "duration"
	case strings.Contains(h, "difficulty") || strings.Contains(h, "level"):
		return "difficulty"
	case strings.Contains(h, "skill"):
		return "skills"
	case strings.Contains(h, "prerequisite"):
		return "prerequisites"
	case strings.Contains(h, "use case") || strings.Contains(h, "use_case"):
		return "use_cases"
	case strings.Contains(h, "industry"):
		return "industry"
	}
	return ""
}

// ReadCatalogCSV loads a catalog export, canonicalizes it, and drops rows
// that cannot be recommended: missing name or URL, duplicate URLs, and
// pre-packaged job solutions. Row order is preserved.
func ReadCatalogCSV(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog file: %w", err)
	}
	defer f.Close()

	records, err := parseCatalogCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}
	return records, nil
}

func parseCatalogCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = columnFor(h)
	}

	var records []Record
	seen := make(map[string]struct{})

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		var rec Record
		for i, cell := range row {
			if i >= len(fields) {
				break
			}
			switch fields[i] {
			case "name":
				rec.Name = cell
			case "description":
				rec.Description = cell
			case "test_type":
				rec.TestType = cell
			case "url":
				rec.URL = cell
			case "duration":
				rec.Duration = cell
			case "difficulty":
				rec.Difficulty = cell
			case "skills":
				rec.Skills = cell
			case "prerequisites":
				rec.Prerequisites = cell
			case "use_cases":
				rec.UseCases = cell
			case "industry":
				rec.Industry = cell
			}
		}

		rec = Normalize(rec)

		if rec.Name == "" || rec.URL == "" {
			continue
		}
		if _, dup := seen[rec.URL]; dup {
			continue
		}
		if prepackagedRe.MatchString(rec.Name) || prepackagedRe.MatchString(rec.Description) {
			continue
		}

		seen[rec.URL] = struct{}{}
		records = append(records, rec)
	}

	return records, nil
}
