package eval

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// queryColumn matches the header naming the query text across export
// variants. Falls back to the first column when nothing matches.
func queryColumn(headers []string) int {
	for i, h := range headers {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "query", "text", "job_description", "jd":
			return i
		}
	}
	return 0
}

// relevantColumn matches the header holding the relevant URL list.
func relevantColumn(headers []string) int {
	for i, h := range headers {
		l := strings.ToLower(h)
		if strings.Contains(l, "relevant") || strings.Contains(l, "gold") || strings.Contains(l, "url") {
			return i
		}
	}
	return -1
}

// ReadLabeledCSV loads the labeled query file. Rows with a blank query or
// no parseable relevant URLs are dropped.
func ReadLabeledCSV(path string) ([]LabeledQuery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening labeled data: %w", err)
	}
	defer f.Close()

	labeled, err := parseLabeledCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing labeled data %s: %w", path, err)
	}
	return labeled, nil
}

func parseLabeledCSV(r io.Reader) ([]LabeledQuery, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	queryIdx := queryColumn(header)
	relevantIdx := relevantColumn(header)
	if relevantIdx == -1 {
		return nil, fmt.Errorf("no relevant-URLs column in header %v", header)
	}

	var labeled []LabeledQuery
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if queryIdx >= len(row) || relevantIdx >= len(row) {
			continue
		}

		query := strings.TrimSpace(row[queryIdx])
		relevant := ParseRelevantURLs(row[relevantIdx])
		if query == "" || len(relevant) == 0 {
			continue
		}

		labeled = append(labeled, LabeledQuery{Query: query, RelevantURLs: relevant})
	}

	return labeled, nil
}
