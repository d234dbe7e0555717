package analytics

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/dtnitsch/article-analyzer/models"
)

const solarBody = `Solar energy is changing how cities plan their power grids. Battery storage lets households keep solar energy for the evening.

Engineers say battery storage costs dropped sharply over the last decade. Cities that invest in solar energy and battery storage report lower bills and fewer outages.

Critics warn that recycling old panels remains a problem. Still, most planners expect solar energy to keep growing as storage improves.`

func TestWordFrequency(t *testing.T) {
	a := &Analytics{}
	got := a.WordFrequency("The cat and the Cat! A dog, 2024 (dog).")
	want := map[string]int{"cat": 2, "dog": 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("WordFrequency() = %v, want %v", got, want)
	}
}

func TestTopNWords(t *testing.T) {
	a := &Analytics{}
	got := a.TopNWords("beta alpha beta gamma alpha beta", 2)
	want := []string{"beta", "alpha"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopNWords() = %v, want %v", got, want)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"abbreviation", "Dr. Smith arrived. He left.", []string{"Dr. Smith arrived.", "He left."}},
		{"decimal", "It grew 3.5 percent. Good.", []string{"It grew 3.5 percent.", "Good."}},
		{"paragraphs", "No period here\n\nNext paragraph.", []string{"No period here", "Next paragraph."}},
		{"quote", `He said "stop." Then left.`, []string{`He said "stop."`, "Then left."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadTime(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{0, 1},
		{150, 1},
		{200, 1},
		{201, 2},
		{1000, 5},
	}
	for _, tt := range tests {
		if got := ReadTime(tt.words); got != tt.want {
			t.Errorf("ReadTime(%d) = %d, want %d", tt.words, got, tt.want)
		}
	}
}

func TestSentiment(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"A promising breakthrough with great benefits.", SentimentPositive},
		{"The crisis caused losses and harm.", SentimentNegative},
		{"The meeting is on Tuesday.", SentimentNeutral},
		{"A success that also carries risk.", SentimentNeutral},
	}
	for _, tt := range tests {
		if got := Sentiment(tt.text); got != tt.want {
			t.Errorf("Sentiment(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestComplexity(t *testing.T) {
	if got := Complexity("The cat sat. The dog ran. We ate."); got != ComplexityBeginner {
		t.Errorf("short text Complexity() = %q, want %q", got, ComplexityBeginner)
	}
	dense := "Interdisciplinary computational methodologies increasingly characterize contemporary epidemiological investigations, necessitating sophisticated infrastructural investments alongside comprehensive institutional collaborations throughout international organizations and governmental administrations."
	if got := Complexity(dense); got != ComplexityExpert {
		t.Errorf("dense text Complexity() = %q, want %q", got, ComplexityExpert)
	}
}

func TestKeyTerms(t *testing.T) {
	a := &Analytics{}
	terms := a.KeyTerms("Solar Energy and Storage", solarBody, 3)

	if len(terms) == 0 || len(terms) > 3 {
		t.Fatalf("KeyTerms() returned %d terms", len(terms))
	}
	if terms[0].Term != "Solar Energy" {
		t.Errorf("first term = %q, want %q", terms[0].Term, "Solar Energy")
	}
	if !strings.Contains(terms[0].Definition, "Solar energy") {
		t.Errorf("definition = %q, want the first sentence using the term", terms[0].Definition)
	}
	if terms[0].Example == "" || terms[0].Example == terms[0].Definition {
		t.Errorf("example = %q, want a second distinct sentence", terms[0].Example)
	}

	seen := map[string]bool{}
	for _, kt := range terms {
		key := strings.ToLower(kt.Term)
		if seen[key] {
			t.Errorf("duplicate term %q", kt.Term)
		}
		seen[key] = true
		if key == "solar" || key == "energy" {
			t.Errorf("term %q is already covered by a phrase", kt.Term)
		}
	}
}

func TestSummarize(t *testing.T) {
	a := &Analytics{}
	summary := a.Summarize(solarBody, 2)
	sentences := SplitSentences(summary)
	if len(sentences) != 2 {
		t.Fatalf("Summarize() gave %d sentences: %q", len(sentences), summary)
	}

	// order follows the body
	first := strings.Index(solarBody, sentences[0])
	second := strings.Index(solarBody, sentences[1])
	if first < 0 || second < 0 || first > second {
		t.Errorf("summary sentences out of order or not from body: %q", summary)
	}

	if got := a.Summarize("Short one.", 3); got != "Short one." {
		t.Errorf("Summarize() of short text = %q", got)
	}
}

func TestQuestions(t *testing.T) {
	terms := []models.KeyTerm{{Term: "Solar Energy"}, {Term: "Battery Storage"}, {Term: "Recycling"}}
	qs := Questions("Solar Energy and Storage", terms, "Environmental", 5)
	if len(qs) != 5 {
		t.Fatalf("Questions() returned %d, want 5", len(qs))
	}
	seen := map[string]bool{}
	for _, q := range qs {
		if !strings.HasSuffix(q, "?") {
			t.Errorf("question %q does not end with '?'", q)
		}
		if seen[q] {
			t.Errorf("duplicate question %q", q)
		}
		seen[q] = true
	}

	if got := Questions("", nil, "", 5); len(got) != 2 {
		t.Errorf("Questions() with no inputs returned %d, want the 2 generic questions", len(got))
	}
}

func TestLocalAnalyzer(t *testing.T) {
	l := NewLocalAnalyzer(models.AnalyzerConfig{KeyTerms: 4, Questions: 3, SummarySentences: 2})

	analysis, err := l.Analyze(context.Background(), "Solar Energy and Storage", solarBody, "https://energy.example.com/solar")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if analysis.Summary == "" {
		t.Error("Summary is empty")
	}
	if len(analysis.KeyTerms) == 0 || len(analysis.KeyTerms) > 4 {
		t.Errorf("KeyTerms = %d", len(analysis.KeyTerms))
	}
	if len(analysis.Questions) != 3 {
		t.Errorf("Questions = %d, want 3", len(analysis.Questions))
	}
	md := analysis.Metadata
	if md.WordCount != len(strings.Fields(solarBody)) {
		t.Errorf("WordCount = %d", md.WordCount)
	}
	if md.ReadTimeMinutes != 1 {
		t.Errorf("ReadTimeMinutes = %d, want 1", md.ReadTimeMinutes)
	}
	if md.Category != "Environmental" {
		t.Errorf("Category = %q, want Environmental", md.Category)
	}
	if md.Language != "en" {
		t.Errorf("Language = %q, want en", md.Language)
	}
	if md.ProcessedAt.IsZero() {
		t.Error("ProcessedAt not set")
	}

	_, err = l.Analyze(context.Background(), "Empty", "   ", "https://example.com")
	if got := models.CodeOf(err); got != models.CodeAnalysis {
		t.Errorf("empty body code = %q, want %q", got, models.CodeAnalysis)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Analyze(ctx, "t", solarBody, "https://example.com")
	if got := models.CodeOf(err); got != models.CodeNetwork {
		t.Errorf("cancelled code = %q, want %q", got, models.CodeNetwork)
	}
}
