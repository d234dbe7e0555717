package models

import (
	"fmt"
	"strings"
	"time"
)

// KeyTerm is a term surfaced by analysis. Definition and Example are optional.
type KeyTerm struct {
	Term       string `json:"term" yaml:"term"`
	Definition string `json:"definition,omitempty" yaml:"definition,omitempty"`
	Example    string `json:"example,omitempty" yaml:"example,omitempty"`
}

// NormalizeKeyTerms accepts the shapes analyzers produce (bare strings, decoded JSON
// objects, KeyTerm values) and returns a single structured form. Empty terms are dropped
// and terms are unique within the result, compared case-insensitively, first one wins.
func NormalizeKeyTerms(raw []any) []KeyTerm {
	terms := make([]KeyTerm, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, item := range raw {
		var kt KeyTerm
		switch v := item.(type) {
		case string:
			kt.Term = v
		case KeyTerm:
			kt = v
		case *KeyTerm:
			if v == nil {
				continue
			}
			kt = *v
		case map[string]any:
			kt.Term = stringField(v, "term", "name", "keyword")
			kt.Definition = stringField(v, "definition", "description", "meaning")
			kt.Example = stringField(v, "example", "usage")
		case map[string]string:
			kt.Term = firstNonEmpty(v["term"], v["name"], v["keyword"])
			kt.Definition = firstNonEmpty(v["definition"], v["description"], v["meaning"])
			kt.Example = firstNonEmpty(v["example"], v["usage"])
		default:
			continue
		}

		kt.Term = strings.TrimSpace(kt.Term)
		kt.Definition = strings.TrimSpace(kt.Definition)
		kt.Example = strings.TrimSpace(kt.Example)
		if kt.Term == "" {
			continue
		}

		key := strings.ToLower(kt.Term)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		terms = append(terms, kt)
	}

	return terms
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ResultMetadata carries the derived signals shown next to a result.
type ResultMetadata struct {
	WordCount        int        `json:"wordCount" yaml:"word_count"`
	ReadTimeMinutes  int        `json:"readTime" yaml:"read_time"`
	Sentiment        string     `json:"sentiment" yaml:"sentiment"`
	Category         string     `json:"category" yaml:"category"`
	Complexity       string     `json:"complexity" yaml:"complexity"`
	Language         string     `json:"language,omitempty" yaml:"language,omitempty"`
	Author           string     `json:"author,omitempty" yaml:"author,omitempty"`
	SiteName         string     `json:"siteName,omitempty" yaml:"site_name,omitempty"`
	PublishedAt      string     `json:"publishDate,omitempty" yaml:"publish_date,omitempty"`
	TopKeywords      []string   `json:"topKeywords,omitempty" yaml:"top_keywords,omitempty"`
	ProcessedAt      time.Time  `json:"processedAt" yaml:"processed_at"`
	LastRewriteLevel string     `json:"lastRewriteLevel,omitempty" yaml:"last_rewrite_level,omitempty"`
	LastRewriteAt    *time.Time `json:"lastRewriteAt,omitempty" yaml:"last_rewrite_at,omitempty"`
}

// ReadTimeLabel renders the read time the way the results view shows it.
func (m ResultMetadata) ReadTimeLabel() string {
	return fmt.Sprintf("%d min read", m.ReadTimeMinutes)
}

// AnalysisResult is the successful terminal state of a UrlTask.
type AnalysisResult struct {
	ID              string         `json:"id" yaml:"id"`
	URL             string         `json:"url" yaml:"url"`
	Title           string         `json:"title" yaml:"title"`
	Summary         string         `json:"summary" yaml:"summary"`
	OriginalSummary string         `json:"originalSummary,omitempty" yaml:"original_summary,omitempty"`
	KeyTerms        []KeyTerm      `json:"keyTerms" yaml:"key_terms"`
	Questions       []string       `json:"questions" yaml:"questions"`
	Metadata        ResultMetadata `json:"metadata" yaml:"metadata"`
	Status          TaskStatus     `json:"status" yaml:"status"`
}

// BaseSummary is the summary that rewrites are derived from.
func (r *AnalysisResult) BaseSummary() string {
	if r.OriginalSummary != "" {
		return r.OriginalSummary
	}
	return r.Summary
}

// Clone returns a deep copy.
func (r AnalysisResult) Clone() AnalysisResult {
	c := r
	c.KeyTerms = append([]KeyTerm(nil), r.KeyTerms...)
	c.Questions = append([]string(nil), r.Questions...)
	c.Metadata.TopKeywords = append([]string(nil), r.Metadata.TopKeywords...)
	if r.Metadata.LastRewriteAt != nil {
		ts := *r.Metadata.LastRewriteAt
		c.Metadata.LastRewriteAt = &ts
	}
	return c
}

// ProcessingError is the failure terminal state of a UrlTask.
type ProcessingError struct {
	ID      string     `json:"id" yaml:"id"`
	URL     string     `json:"url" yaml:"url"`
	Message string     `json:"message" yaml:"message"`
	Code    ErrorCode  `json:"code" yaml:"code"`
	Phase   string     `json:"phase,omitempty" yaml:"phase,omitempty"`
	Status  TaskStatus `json:"status" yaml:"status"`
}

// Title is the short heading for the error's code.
func (e ProcessingError) Title() string {
	return e.Code.Title()
}

// BatchSummary aggregates a finished batch.
type BatchSummary struct {
	TotalURLs         int               `json:"totalUrls" yaml:"total_urls"`
	Successful        int               `json:"successful" yaml:"successful"`
	Failed            int               `json:"failed" yaml:"failed"`
	TotalWords        int               `json:"totalWords" yaml:"total_words"`
	AverageReadTime   float64           `json:"averageReadTime" yaml:"average_read_time"`
	AggregateKeywords []string          `json:"aggregateKeywords,omitempty" yaml:"aggregate_keywords,omitempty"`
	ErrorsByCode      map[ErrorCode]int `json:"errorsByCode,omitempty" yaml:"errors_by_code,omitempty"`
}

// ResultBundle is the persisted aggregate of one batch.
type ResultBundle struct {
	Results     []AnalysisResult  `json:"results" yaml:"results"`
	Errors      []ProcessingError `json:"errors" yaml:"errors"`
	ProcessedAt time.Time         `json:"processedAt" yaml:"processed_at"`
	Summary     *BatchSummary     `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Find returns the result with the given id.
func (b *ResultBundle) Find(id string) (*AnalysisResult, bool) {
	for i := range b.Results {
		if b.Results[i].ID == id {
			return &b.Results[i], true
		}
	}
	return nil, false
}

// Validate checks that every task appears exactly once across results and errors, and
// that each list keeps submission order. Results and errors carry their task's ID.
func (b *ResultBundle) Validate(tasks []UrlTask) error {
	if got := len(b.Results) + len(b.Errors); got != len(tasks) {
		return fmt.Errorf("bundle has %d entries for %d tasks", got, len(tasks))
	}

	ri, ei := 0, 0
	for i, t := range tasks {
		switch {
		case ri < len(b.Results) && b.Results[ri].ID == t.ID:
			if b.Results[ri].URL != t.URL {
				return fmt.Errorf("result %s has url %s, want %s", t.ID, b.Results[ri].URL, t.URL)
			}
			ri++
		case ei < len(b.Errors) && b.Errors[ei].ID == t.ID:
			if b.Errors[ei].URL != t.URL {
				return fmt.Errorf("error %s has url %s, want %s", t.ID, b.Errors[ei].URL, t.URL)
			}
			ei++
		default:
			return fmt.Errorf("task %d (%s) missing or out of order", i, t.URL)
		}
	}
	return nil
}

// Analysis is what an analyzer returns for one article.
type Analysis struct {
	Summary   string
	KeyTerms  []KeyTerm
	Questions []string
	Metadata  ResultMetadata
}

// RawContent is the fetched form of a URL.
type RawContent struct {
	URL         string
	FinalURL    string
	Title       string
	HTML        string
	StatusCode  int
	ContentType string
	FromCache   bool
}

// Article is readable text extracted from raw content.
type Article struct {
	URL         string
	Title       string
	Body        string
	Markdown    string
	Blocks      []ContentBlock
	Byline      string
	SiteName    string
	Excerpt     string
	Language    string
	PublishedAt *time.Time
}

// ContentBlock is a semantic block of readable text.
type ContentBlock struct {
	Type string `json:"type"` // h1, h2, p, li, code
	Text string `json:"text"`
}

// WordCount counts whitespace separated words in the body.
func (a *Article) WordCount() int {
	return len(strings.Fields(a.Body))
}
