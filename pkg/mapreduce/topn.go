package mapreduce

import (
	"fmt"
	"sort"
	"strings"
)

// KeywordCount is one ranked entry of a reduced word table.
type KeywordCount struct {
	Word  string
	Count int
}

var unbalanced = [][2]string{{"(", ")"}, {"[", "]"}, {"{", "}"}}

// isValidKeyword drops tokens that are clearly broken: a trailing ':' or '=', an opening
// bracket without its closer, or an odd number of quotes. Technical terms like x_train stay.
func isValidKeyword(word string) bool {
	if strings.HasSuffix(word, ":") || strings.HasSuffix(word, "=") {
		return false
	}
	for _, pair := range unbalanced {
		if strings.Contains(word, pair[0]) && !strings.Contains(word, pair[1]) {
			return false
		}
	}
	return strings.Count(word, "\"")%2 == 0 && strings.Count(word, "'")%2 == 0
}

// Rank orders the valid words of counts by count, then alphabetically, and keeps at most n.
func Rank(counts map[string]int, n int) []KeywordCount {
	if n <= 0 {
		return []KeywordCount{}
	}

	ranked := make([]KeywordCount, 0, len(counts))
	for w, c := range counts {
		if isValidKeyword(w) {
			ranked = append(ranked, KeywordCount{Word: w, Count: c})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Word < ranked[j].Word
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// TopKeywords returns Rank formatted as "word:count" strings, e.g. "solar:12".
func TopKeywords(counts map[string]int, n int) []string {
	ranked := Rank(counts, n)
	keywords := make([]string, len(ranked))
	for i, kc := range ranked {
		keywords[i] = fmt.Sprintf("%s:%d", kc.Word, kc.Count)
	}
	return keywords
}
