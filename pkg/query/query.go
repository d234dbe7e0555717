// Package query filters and sorts stored results the way the results view does.
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dtnitsch/article-analyzer/models"
)

// Sort orders.
const (
	SortRecent   = "recent"
	SortOldest   = "oldest"
	SortTitle    = "title"
	SortReadTime = "readTime"
)

// Condition is a numeric comparison such as word_count>500.
type Condition struct {
	Field string
	Op    string
	Value int
}

// Filter narrows a result list. Zero values match everything.
type Filter struct {
	Search     string // title or summary, case-insensitive substring
	Category   string // case-insensitive substring
	Sentiment  string // case-insensitive exact
	Complexity string // case-insensitive exact
	Keyword    string // key term or top keyword, case-insensitive exact
	Conditions []Condition
	SortBy     string
}

var numericFields = map[string]bool{
	"word_count": true,
	"read_time":  true,
	"questions":  true,
	"key_terms":  true,
}

// fieldAliases maps accepted spellings to canonical field names.
var fieldAliases = map[string]string{
	"q":         "search",
	"words":     "word_count",
	"wordcount": "word_count",
	"readtime":  "read_time",
	"sort":      "sort_by",
	"sortby":    "sort_by",
	"terms":     "key_terms",
}

// ParseFilter parses expressions like "category=tech AND sentiment=positive" or
// "complexity=beginner,word_count>500". Supported forms:
//   - field=value for search, category, sentiment, complexity and sort_by
//   - keyword:<term>
//   - word_count, read_time, questions, key_terms compared with >=, <=, !=, =, >, <
func ParseFilter(expr string) (Filter, error) {
	var f Filter
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return f, nil
	}

	for _, part := range splitParts(expr) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := f.apply(part); err != nil {
			return Filter{}, err
		}
	}
	return f, nil
}

func (f *Filter) apply(part string) error {
	if strings.HasPrefix(strings.ToLower(part), "keyword:") {
		f.Keyword = strings.TrimSpace(part[len("keyword:"):])
		return nil
	}

	for _, op := range []string{">=", "<=", "!=", "=", ">", "<"} {
		idx := strings.Index(part, op)
		if idx < 0 {
			continue
		}
		field := normalizeField(part[:idx])
		value := strings.Trim(strings.TrimSpace(part[idx+len(op):]), "\"'")

		if numericFields[field] {
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid number for %s: %s", field, value)
			}
			f.Conditions = append(f.Conditions, Condition{Field: field, Op: op, Value: n})
			return nil
		}
		if op != "=" {
			return fmt.Errorf("operator %s not supported for %s", op, field)
		}

		switch field {
		case "search":
			f.Search = value
		case "category":
			f.Category = value
		case "sentiment":
			f.Sentiment = value
		case "complexity":
			f.Complexity = value
		case "sort_by":
			s, err := ParseSort(value)
			if err != nil {
				return err
			}
			f.SortBy = s
		default:
			return fmt.Errorf("invalid field: %s", field)
		}
		return nil
	}

	return fmt.Errorf("invalid filter syntax: %s", part)
}

func normalizeField(field string) string {
	field = strings.ToLower(strings.TrimSpace(field))
	if alias, ok := fieldAliases[field]; ok {
		return alias
	}
	return field
}

// splitParts splits on commas and on the AND keyword (case-insensitive).
func splitParts(s string) []string {
	var parts []string
	for _, chunk := range strings.Split(s, ",") {
		parts = append(parts, splitByKeyword(chunk, "AND")...)
	}
	return parts
}

func splitByKeyword(s, keyword string) []string {
	upper := strings.ToUpper(s)
	pattern := " " + keyword + " "

	var parts []string
	remaining := s
	upperRemaining := upper

	for {
		idx := strings.Index(upperRemaining, pattern)
		if idx == -1 {
			parts = append(parts, remaining)
			break
		}

		parts = append(parts, remaining[:idx])
		remaining = remaining[idx+len(pattern):]
		upperRemaining = upperRemaining[idx+len(pattern):]
	}

	return parts
}

// ParseSort validates a sort order. Matching is case-insensitive; "" means recent.
func ParseSort(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "recent":
		return SortRecent, nil
	case "oldest":
		return SortOldest, nil
	case "title":
		return SortTitle, nil
	case "readtime", "read_time":
		return SortReadTime, nil
	}
	return "", fmt.Errorf("invalid sort order: %s", s)
}

// Match reports whether r passes every criterion of f.
func (f Filter) Match(r *models.AnalysisResult) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Title), q) && !strings.Contains(strings.ToLower(r.Summary), q) {
			return false
		}
	}
	if f.Category != "" && !strings.Contains(strings.ToLower(r.Metadata.Category), strings.ToLower(f.Category)) {
		return false
	}
	if f.Sentiment != "" && !strings.EqualFold(r.Metadata.Sentiment, f.Sentiment) {
		return false
	}
	if f.Complexity != "" && !strings.EqualFold(r.Metadata.Complexity, f.Complexity) {
		return false
	}
	if f.Keyword != "" && !hasKeyword(r, f.Keyword) {
		return false
	}
	for _, c := range f.Conditions {
		if !c.holds(fieldValue(r, c.Field)) {
			return false
		}
	}
	return true
}

func hasKeyword(r *models.AnalysisResult, kw string) bool {
	for _, kt := range r.KeyTerms {
		if strings.EqualFold(kt.Term, kw) {
			return true
		}
	}
	for _, w := range r.Metadata.TopKeywords {
		if strings.EqualFold(w, kw) {
			return true
		}
	}
	return false
}

func fieldValue(r *models.AnalysisResult, field string) int {
	switch field {
	case "word_count":
		return r.Metadata.WordCount
	case "read_time":
		return r.Metadata.ReadTimeMinutes
	case "questions":
		return len(r.Questions)
	case "key_terms":
		return len(r.KeyTerms)
	}
	return 0
}

func (c Condition) holds(v int) bool {
	switch c.Op {
	case ">=":
		return v >= c.Value
	case "<=":
		return v <= c.Value
	case "!=":
		return v != c.Value
	case "=":
		return v == c.Value
	case ">":
		return v > c.Value
	case "<":
		return v < c.Value
	}
	return false
}

// Apply returns the results that match f, in f.SortBy order. The input is not modified
// and ties keep their original order.
func Apply(results []models.AnalysisResult, f Filter) []models.AnalysisResult {
	out := make([]models.AnalysisResult, 0, len(results))
	for i := range results {
		if f.Match(&results[i]) {
			out = append(out, results[i])
		}
	}

	var less func(a, b *models.AnalysisResult) bool
	switch f.SortBy {
	case SortOldest:
		less = func(a, b *models.AnalysisResult) bool { return a.Metadata.ProcessedAt.Before(b.Metadata.ProcessedAt) }
	case SortTitle:
		less = func(a, b *models.AnalysisResult) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case SortReadTime:
		less = func(a, b *models.AnalysisResult) bool { return a.Metadata.ReadTimeMinutes < b.Metadata.ReadTimeMinutes }
	default:
		less = func(a, b *models.AnalysisResult) bool { return a.Metadata.ProcessedAt.After(b.Metadata.ProcessedAt) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

// Stats are the counters shown above the results list.
type Stats struct {
	Processed  int `json:"processed"`
	Errors     int `json:"errors"`
	TotalWords int `json:"totalWords"`
	Shown      int `json:"shown"`
}

// Summarize counts the bundle and how many results the filter kept.
func Summarize(b *models.ResultBundle, shown int) Stats {
	s := Stats{Processed: len(b.Results), Errors: len(b.Errors), Shown: shown}
	for _, r := range b.Results {
		s.TotalWords += r.Metadata.WordCount
	}
	return s
}
