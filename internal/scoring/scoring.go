// Package scoring implements keyword-overlap accuracy for model evaluation.
//
// The metric is a deliberately simple heuristic: extract significant terms
// from the expected completion and measure how many of them appear in the
// model's actual response. Production evaluations should layer domain
// metrics on top.
package scoring

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Accuracy distribution bucket lower bounds.
const (
	BucketExcellent = 0.9
	BucketGood      = 0.7
	BucketFair      = 0.5
)

// minKeywordLength filters tokens: keywords must be at least this many
// characters long. "fox" qualifies, "on" does not.
const minKeywordLength = 3

// stopwords are common English words excluded from keyword extraction.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {}, "all": {}, "can": {},
	"had": {}, "her": {}, "was": {}, "one": {}, "our": {}, "out": {}, "has": {}, "have": {}, "with": {},
	"this": {}, "that": {}, "from": {}, "they": {}, "been": {}, "said": {}, "each": {}, "which": {},
	"their": {}, "will": {}, "other": {}, "about": {}, "many": {}, "then": {}, "them": {}, "these": {},
	"some": {}, "would": {}, "make": {}, "like": {}, "into": {}, "time": {}, "very": {}, "when": {},
	"come": {}, "could": {}, "more": {}, "also": {},
}

// KeywordAccuracy computes the keyword overlap between an expected and an
// actual response: |expected ∩ actual| / |expected| over the extracted
// keyword sets. Returns 0 when either input is empty, and 1 when the
// expected text yields no keywords at all (nothing to miss).
func KeywordAccuracy(expected, actual string) float64 {
	if expected == "" || actual == "" {
		return 0.0
	}

	expectedKeywords := extractKeywords(expected)
	actualKeywords := extractKeywords(actual)

	if len(expectedKeywords) == 0 {
		return 1.0
	}

	matched := 0
	for keyword := range expectedKeywords {
		if _, ok := actualKeywords[keyword]; ok {
			matched++
		}
	}

	return float64(matched) / float64(len(expectedKeywords))
}

// extractKeywords lowercases the text, splits on whitespace, strips
// everything but letters, digits and hyphens, and keeps the tokens of at
// least minKeywordLength characters that are not stopwords.
func extractKeywords(text string) map[string]struct{} {
	words := make(map[string]struct{})

	for _, word := range strings.Fields(strings.ToLower(text)) {
		var cleaned strings.Builder
		for _, r := range word {
			if r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) {
				cleaned.WriteRune(r)
			}
		}

		w := cleaned.String()
		if utf8.RuneCountInString(w) < minKeywordLength {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		words[w] = struct{}{}
	}

	return words
}

// Bucket is one row of the accuracy distribution histogram.
type Bucket struct {
	Label string
	Count int
}

// Distribution groups per-sample accuracies into histogram buckets, ordered
// best to worst: 90-100%, 70-89%, 50-69%, <50%.
func Distribution(accuracies []float64) []Bucket {
	buckets := []Bucket{
		{Label: "90-100%"},
		{Label: "70-89%"},
		{Label: "50-69%"},
		{Label: "<50%"},
	}

	for _, acc := range accuracies {
		switch {
		case acc >= BucketExcellent:
			buckets[0].Count++
		case acc >= BucketGood:
			buckets[1].Count++
		case acc >= BucketFair:
			buckets[2].Count++
		default:
			buckets[3].Count++
		}
	}

	return buckets
}
