package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dtnitsch/article-analyzer/models"
)

const maxDefinitionLen = 240

type termCandidate struct {
	term     string // lowercase, words joined by a single space
	score    float64
	firstPos int
	bigram   bool
}

// KeyTerms picks up to n terms from the article. Repeated two-word phrases are preferred
// over single words; a single word already covered by a chosen phrase is skipped.
// Each term carries the first sentence that uses it as its definition and the next one
// as its example.
func (a *Analytics) KeyTerms(title, body string, n int) []models.KeyTerm {
	if n <= 0 {
		return []models.KeyTerm{}
	}
	sentences := SplitSentences(body)
	candidates := a.termCandidates(title, sentences)

	chosen := make([]termCandidate, 0, n)
	covered := make(map[string]struct{})
	for _, c := range candidates {
		if len(chosen) == n {
			break
		}
		if _, ok := covered[c.term]; ok {
			continue
		}
		if c.bigram {
			parts := strings.Fields(c.term)
			_, a0 := covered[parts[0]]
			_, a1 := covered[parts[1]]
			if a0 && a1 {
				continue
			}
			for _, p := range parts {
				covered[p] = struct{}{}
			}
		}
		covered[c.term] = struct{}{}
		chosen = append(chosen, c)
	}

	raw := make([]any, 0, len(chosen))
	for _, c := range chosen {
		def, example := termContext(c.term, sentences)
		raw = append(raw, models.KeyTerm{
			Term:       displayForm(c.term, title+"\n"+body),
			Definition: def,
			Example:    example,
		})
	}
	return models.NormalizeKeyTerms(raw)
}

func (a *Analytics) termCandidates(title string, sentences []string) []termCandidate {
	unigrams := make(map[string]*termCandidate)
	bigrams := make(map[string]*termCandidate)
	pos := 0

	add := func(m map[string]*termCandidate, term string, weight float64, bigram bool) {
		c, ok := m[term]
		if !ok {
			c = &termCandidate{term: term, firstPos: pos, bigram: bigram}
			m[term] = c
		}
		c.score += weight
	}

	scan := func(text string, weight float64) {
		words := Tokenize(text)
		for i, w := range words {
			pos++
			if !isTermWord(w) {
				continue
			}
			if utf8.RuneCountInString(w) >= 4 {
				add(unigrams, w, weight, false)
			}
			if i+1 < len(words) && isTermWord(words[i+1]) {
				add(bigrams, w+" "+words[i+1], weight, true)
			}
		}
	}

	scan(title, 2)
	for _, s := range sentences {
		scan(s, 1)
	}

	out := make([]termCandidate, 0, len(unigrams)+len(bigrams))
	for _, c := range unigrams {
		out = append(out, *c)
	}
	for _, c := range bigrams {
		if c.score < 2 {
			continue
		}
		c.score *= 2.5
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].firstPos != out[j].firstPos {
			return out[i].firstPos < out[j].firstPos
		}
		return out[i].term < out[j].term
	})
	return out
}

func isTermWord(w string) bool {
	if IsStopword(w) || isNumber(w) || utf8.RuneCountInString(w) < 3 {
		return false
	}
	return !strings.ContainsRune(w, '\'')
}

// termContext returns the first and second sentences mentioning term.
func termContext(term string, sentences []string) (string, string) {
	var found []string
	for _, s := range sentences {
		if containsTerm(s, term) {
			found = append(found, truncate(s, maxDefinitionLen))
			if len(found) == 2 {
				break
			}
		}
	}
	switch len(found) {
	case 0:
		return "", ""
	case 1:
		return found[0], ""
	default:
		return found[0], found[1]
	}
}

func containsTerm(sentence, term string) bool {
	words := Tokenize(sentence)
	parts := strings.Fields(term)
	for i := 0; i+len(parts) <= len(words); i++ {
		match := true
		for j, p := range parts {
			if words[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// displayForm recovers the original casing of term from text, title-casing it when the
// term only appears in lowercase.
func displayForm(term, text string) string {
	lower := strings.ToLower(text)
	if len(lower) == len(text) {
		if i := strings.Index(lower, term); i >= 0 {
			found := text[i : i+len(term)]
			if found != term {
				return found
			}
		}
	}
	return titleCase(term)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	cut := string(r[:max])
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, ",;: ") + "..."
}

// Summarize builds an extractive summary of up to n sentences, kept in their original
// order. Sentences are scored by the frequency of their words with a small bonus for
// opening sentences.
func (a *Analytics) Summarize(body string, n int) string {
	sentences := SplitSentences(body)
	if len(sentences) == 0 || n <= 0 {
		return ""
	}
	if len(sentences) <= n {
		return strings.Join(sentences, " ")
	}

	freq := a.WordFrequency(body)

	type scored struct {
		idx   int
		score float64
	}
	var ranked []scored
	for i, s := range sentences {
		words := Tokenize(s)
		if len(words) < 5 || len(words) > 60 {
			continue
		}
		total := 0
		for _, w := range words {
			total += freq[w]
		}
		score := float64(total) / math.Sqrt(float64(len(words)))
		if i < 2 {
			score *= 1.2
		}
		ranked = append(ranked, scored{idx: i, score: score})
	}

	if len(ranked) == 0 {
		return strings.Join(sentences[:n], " ")
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].idx < ranked[j].idx
	})

	parts := make([]string, len(ranked))
	for i, r := range ranked {
		parts[i] = sentences[r.idx]
	}
	return strings.Join(parts, " ")
}

// Questions builds up to n discussion questions from the title and key terms.
func Questions(title string, terms []models.KeyTerm, category string, n int) []string {
	if n <= 0 {
		return []string{}
	}

	term := func(i int) string {
		if len(terms) == 0 {
			return ""
		}
		return terms[i%len(terms)].Term
	}

	var candidates []string
	if title != "" {
		candidates = append(candidates, fmt.Sprintf("What are the main points discussed in %q?", title))
	}
	if len(terms) > 0 {
		candidates = append(candidates,
			fmt.Sprintf("What evidence supports the article's claims about %s?", term(0)))
	}
	if len(terms) > 1 {
		candidates = append(candidates, fmt.Sprintf("How does %s relate to %s?", term(0), term(1)))
	}
	if len(terms) > 0 && category != "" {
		candidates = append(candidates,
			fmt.Sprintf("Why does %s matter for the %s field?", term(1), strings.ToLower(category)))
	}
	if len(terms) > 2 {
		candidates = append(candidates, fmt.Sprintf("What challenges could limit the impact of %s?", term(2)))
	}
	if len(terms) > 0 {
		candidates = append(candidates, fmt.Sprintf("How might %s evolve over the next few years?", term(0)))
	}
	if len(terms) > 1 {
		candidates = append(candidates, fmt.Sprintf("What are the practical implications of %s?", term(1)))
	}
	candidates = append(candidates,
		"How does this information relate to current industry trends?",
		"What questions does the article leave unanswered?",
	)

	out := make([]string, 0, n)
	seen := make(map[string]struct{})
	for _, q := range candidates {
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out
}
