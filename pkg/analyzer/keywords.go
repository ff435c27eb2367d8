package analyzer

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords covers the high-frequency English and French function words
// the keyword extractor should never surface.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "and", "for", "are", "but", "not", "you", "all", "can", "her",
		"was", "one", "our", "out", "day", "get", "has", "him", "his", "how",
		"its", "new", "now", "old", "see", "two", "way", "who", "did", "yes",
		"with", "have", "this", "will", "your", "from", "they", "know", "want",
		"been", "good", "much", "some", "time", "very", "when", "come", "here",
		"just", "like", "long", "make", "many", "more", "only", "over", "such",
		"take", "than", "them", "well", "were", "what", "that", "their", "there",
		"these", "thing", "think", "those", "which", "while", "would", "about",
		"after", "also", "into", "other", "because", "between", "through",
		"les", "des", "une", "est", "pas", "pour", "que", "qui", "dans", "sur",
		"avec", "plus", "par", "son", "ses", "aux", "ont", "mais", "comme",
		"tout", "nous", "vous", "leur", "cette", "sont", "fait", "aussi",
	} {
		stopwords[w] = struct{}{}
	}
}

// ExtractKeywords returns the topN most frequent content words, most
// frequent first with ties broken lexicographically so repeated runs over
// the same text yield the same list.
func ExtractKeywords(text string, topN int) []string {
	counts := make(map[string]int)
	for _, raw := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if len(raw) < 3 || len(raw) > 20 {
			continue
		}
		if _, skip := stopwords[raw]; skip {
			continue
		}
		counts[raw]++
	}

	type wordCount struct {
		word  string
		count int
	}
	sorted := make([]wordCount, 0, len(counts))
	for w, c := range counts {
		sorted = append(sorted, wordCount{word: w, count: c})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].word < sorted[j].word
	})

	if topN > len(sorted) {
		topN = len(sorted)
	}
	out := make([]string, 0, topN)
	for _, wc := range sorted[:topN] {
		out = append(out, wc.word)
	}
	return out
}
