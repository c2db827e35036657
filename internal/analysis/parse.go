// SPDX-License-Identifier: MIT

package analysis

import "strings"

// SearchResult is one executive quote parsed from a topic search response.
type SearchResult struct {
	Company   string `json:"company"`
	Executive string `json:"executive"`
	Quote     string `json:"quote"`
	Source    string `json:"source"`
	Relevance string `json:"relevance,omitempty"`
	Citation  string `json:"citation,omitempty"`
}

// ParseSearchResults splits a line-oriented model response into structured
// results. Sections are separated by "---"; a section needs at least the
// company, executive, quote and source lines to count. Malformed sections
// are skipped rather than failing the whole response.
func ParseSearchResults(raw string) []SearchResult {
	var results []SearchResult

	for _, section := range strings.Split(raw, "---") {
		var lines []string
		for _, line := range strings.Split(section, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				lines = append(lines, trimmed)
			}
		}
		if len(lines) < 4 {
			continue
		}

		r := SearchResult{
			Company:   stripLabel(lines[0], "COMPANY:"),
			Executive: stripLabel(lines[1], "EXECUTIVE:"),
			Quote:     strings.Trim(stripLabel(lines[2], "QUOTE:"), `"`),
			Source:    stripLabel(lines[3], "SOURCE:"),
		}
		if len(lines) > 4 {
			r.Relevance = stripLabel(lines[4], "RELEVANCE:")
		}
		if len(lines) > 5 {
			r.Citation = stripLabel(lines[5], "CITATION:")
		}
		if r.Company == "" || r.Quote == "" {
			continue
		}
		results = append(results, r)
	}
	return results
}

func stripLabel(line, label string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, label))
}
