package analytics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dtnitsch/article-analyzer/models"
	articledetector "github.com/dtnitsch/article-analyzer/pkg/detector"
)

const topKeywordCount = 10

// LocalAnalyzer produces an Analysis from article text alone.
type LocalAnalyzer struct {
	analytics *Analytics
	keyTerms  int
	questions int
	sentences int
	now       func() time.Time
}

// NewLocalAnalyzer builds a LocalAnalyzer using the counts from cfg.
func NewLocalAnalyzer(cfg models.AnalyzerConfig) *LocalAnalyzer {
	l := &LocalAnalyzer{
		analytics: &Analytics{},
		keyTerms:  cfg.KeyTerms,
		questions: cfg.Questions,
		sentences: cfg.SummarySentences,
		now:       time.Now,
	}
	if l.keyTerms <= 0 {
		l.keyTerms = 5
	}
	if l.questions <= 0 {
		l.questions = 5
	}
	if l.sentences <= 0 {
		l.sentences = 3
	}
	return l
}

// Analyze derives the summary, key terms, questions and metadata for one article.
func (l *LocalAnalyzer) Analyze(ctx context.Context, title, body, url string) (*models.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewNetworkError(models.PhaseAnalyze, err)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.NewAnalysisError(errors.New("no text to analyze"))
	}

	wordCount := len(strings.Fields(body))
	class := articledetector.Classify(url, &models.Article{Title: title, Body: body})
	terms := l.analytics.KeyTerms(title, body, l.keyTerms)

	summary := l.analytics.Summarize(body, l.sentences)
	if summary == "" {
		return nil, models.NewAnalysisError(errors.New("could not build a summary"))
	}

	return &models.Analysis{
		Summary:   summary,
		KeyTerms:  terms,
		Questions: Questions(title, terms, class.Category, l.questions),
		Metadata: models.ResultMetadata{
			WordCount:       wordCount,
			ReadTimeMinutes: ReadTime(wordCount),
			Sentiment:       Sentiment(body),
			Category:        class.Category,
			Complexity:      Complexity(body),
			Language:        DetectLanguage(body),
			TopKeywords:     l.analytics.TopNWords(title+"\n"+body, topKeywordCount),
			ProcessedAt:     l.now().UTC(),
		},
	}, nil
}
