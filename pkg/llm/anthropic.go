// Package llm implements the analysis collaborator on top of the Anthropic API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/analytics"
	"golang.org/x/time/rate"
)

// ErrMissingAPIKey is returned when the analyzer is built without credentials.
var ErrMissingAPIKey = errors.New("ANTHROPIC_API_KEY is not set")

// Completer sends one prompt and returns the raw text of the reply.
type Completer func(ctx context.Context, system, user string) (string, error)

// AnthropicAnalyzer asks the model for a structured analysis of an article and fills the
// metadata it does not return from local text statistics.
type AnthropicAnalyzer struct {
	complete         Completer
	limiter          *rate.Limiter
	contentMaxTokens int
	keyTerms         int
	questions        int
	logger           *slog.Logger
	now              func() time.Time
}

// Option configures an AnthropicAnalyzer.
type Option func(*AnthropicAnalyzer)

// WithCompleter replaces the Anthropic call, mainly for tests.
func WithCompleter(c Completer) Option {
	return func(a *AnthropicAnalyzer) { a.complete = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *AnthropicAnalyzer) { a.logger = l }
}

// NewAnthropicAnalyzer builds the analyzer from config. cfg.APIKey is required unless a
// Completer is supplied.
func NewAnthropicAnalyzer(cfg models.AnalyzerConfig, opts ...Option) (*AnthropicAnalyzer, error) {
	a := &AnthropicAnalyzer{
		contentMaxTokens: cfg.ContentMaxTokens,
		keyTerms:         cfg.KeyTerms,
		questions:        cfg.Questions,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:              time.Now,
	}
	if cfg.RateLimit > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.complete == nil {
		if cfg.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		a.complete = anthropicCompleter(cfg.APIKey, types.RequestSettings{
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	}
	return a, nil
}

func anthropicCompleter(apiKey string, settings types.RequestSettings) Completer {
	return func(ctx context.Context, system, user string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		response, err := anthropic.PromptWithSettings(system, user, analysisSchema, apiKey, settings)
		if err != nil {
			return "", err
		}
		if len(response.Content) == 0 {
			return "", errors.New("no content in response")
		}
		return response.Content[0].Text, nil
	}
}

// Analyze sends the article to the model. Transport failures and cancellation are
// reported as NET-005, everything else as LLM-004.
func (a *AnthropicAnalyzer) Analyze(ctx context.Context, title, body, url string) (*models.Analysis, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.NewAnalysisError(errors.New("no text to analyze"))
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, models.NewNetworkError(models.PhaseAnalyze, fmt.Errorf("rate limiter: %w", err))
		}
	}

	user := buildUserPrompt(title, url, LimitContentTokens(body, a.contentMaxTokens), a.keyTerms, a.questions)

	start := time.Now()
	text, err := a.complete(ctx, systemPrompt, user)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || isTransportError(err) {
			return nil, models.NewNetworkError(models.PhaseAnalyze, err)
		}
		return nil, models.NewAnalysisError(fmt.Errorf("analysis request failed: %w", err))
	}
	a.logger.Debug("Model replied", "url", url, "duration_ms", time.Since(start).Milliseconds(), "bytes", len(text))

	parsed, err := ParseResponse(text)
	if err != nil {
		return nil, models.NewAnalysisError(err)
	}

	wordCount := len(strings.Fields(body))
	md := models.ResultMetadata{
		WordCount:       wordCount,
		ReadTimeMinutes: analytics.ReadTime(wordCount),
		Sentiment:       orDefault(strings.ToLower(parsed.Sentiment), analytics.Sentiment(body)),
		Category:        orDefault(parsed.Category, "General"),
		Complexity:      orDefault(parsed.Complexity, analytics.Complexity(body)),
		Language:        analytics.DetectLanguage(body),
		TopKeywords:     (&analytics.Analytics{}).TopNWords(title+"\n"+body, 10),
		ProcessedAt:     a.now().UTC(),
	}

	return &models.Analysis{
		Summary:   parsed.Summary,
		KeyTerms:  capTerms(parsed.KeyTerms, a.keyTerms),
		Questions: capQuestions(parsed.Questions, a.questions),
		Metadata:  md,
	}, nil
}

// LimitContentTokens limits content to approximately maxTokens (4 chars per token).
func LimitContentTokens(content string, maxTokens int) string {
	if maxTokens <= 0 {
		return content
	}
	maxChars := maxTokens * 4
	r := []rune(content)
	if len(r) <= maxChars {
		return content
	}
	return string(r[:maxChars]) + "..."
}

func isTransportError(err error) bool {
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "no such host", "connection reset", "i/o timeout", "tls handshake"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func capTerms(terms []models.KeyTerm, n int) []models.KeyTerm {
	if n > 0 && len(terms) > n {
		return terms[:n]
	}
	return terms
}

func capQuestions(qs []string, n int) []string {
	if n > 0 && len(qs) > n {
		return qs[:n]
	}
	return qs
}
