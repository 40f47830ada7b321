package workbook

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Row labels in the source workbooks are free text, inconsistently cased and
// punctuated across years of manual editing. Every predicate here is
// substring-based and case-insensitive rather than exact, and each sheet's
// heuristic is built from these so it can be unit-tested on its own.

// labelAt reads the label cell at (row, col) as trimmed text.
func labelAt(s Sheet, row, col int) string {
	ex := Extract(s.Cell(row, col), CellRef(row, col))
	if text, ok := ex.Value.(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}

// labelContains reports whether the label contains the substring,
// case-insensitively.
func labelContains(label, substr string) bool {
	return strings.Contains(strings.ToLower(label), strings.ToLower(substr))
}

// isSectionHeader matches a running-section label ("Certifiers", "Cadets")
// tolerating trailing punctuation and minor typos.
func isSectionHeader(label, header string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return false
	}
	header = strings.ToLower(header)
	if strings.Contains(label, header) {
		return true
	}
	return fuzzy.MatchNormalizedFold(header, label)
}

// labelMatcher scans a label against a fixed keyword set in one pass.
type labelMatcher struct {
	machine  *ahocorasick.Matcher
	keywords []string
}

func newLabelMatcher(keywords ...string) *labelMatcher {
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &labelMatcher{
		machine:  ahocorasick.NewStringMatcher(lowered),
		keywords: keywords,
	}
}

// match returns the keywords present in the label.
func (m *labelMatcher) match(label string) []string {
	hits := m.machine.Match([]byte(strings.ToLower(label)))
	matched := make([]string, 0, len(hits))
	for _, idx := range hits {
		matched = append(matched, m.keywords[idx])
	}
	return matched
}

// matchesAny reports whether any keyword is present in the label.
func (m *labelMatcher) matchesAny(label string) bool {
	return len(m.machine.Match([]byte(strings.ToLower(label)))) > 0
}
