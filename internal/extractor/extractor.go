// Package extractor finds candidate point-mutation tokens such as G1043D in free text.
package extractor

import (
	"regexp"
	"sort"
)

// mutationExpr matches one letter, two to five digits and one letter,
// bounded by word boundaries on both sides.
var mutationExpr = regexp.MustCompile(`\b[A-Z][0-9]{2,5}[A-Z]\b`)

// Extractor implements ports.MutationExtractor with the fixed token grammar.
type Extractor struct{}

// New returns a ready extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the distinct tokens found in text, sorted.
// Empty text yields an empty, non-nil slice.
func (Extractor) Extract(text string) []string {
	return Extract(text)
}

// Extract is the package-level form of Extractor.Extract.
func Extract(text string) []string {
	tokens := []string{}
	if text == "" {
		return tokens
	}

	seen := map[string]struct{}{}
	for _, match := range mutationExpr.FindAllString(text, -1) {
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		tokens = append(tokens, match)
	}
	sort.Strings(tokens)
	return tokens
}
