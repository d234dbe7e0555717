// Package augment rewrites summaries and extends question lists of stored results.
package augment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dtnitsch/article-analyzer/models"
)

// QuestionBatchSize is how many questions GenerateMoreQuestions appends.
const QuestionBatchSize = 3

// ErrResultNotFound is returned when the session has no result with the requested ID.
var ErrResultNotFound = errors.New("result not found")

var followUpQuestions = []string{
	"What are the potential unintended consequences of this development?",
	"How might this trend evolve over the next decade?",
	"What role do stakeholders play in shaping these outcomes?",
	"What alternative approaches could be considered?",
	"How does this relate to current industry best practices?",
}

const (
	simpleTemplate = "[SIMPLE] %s explains key concepts in easy-to-understand terms. The main points are presented clearly for general readers who want to grasp the basics without complex technical details."

	detailedTemplate = "[DETAILED] %s\n\nThis comprehensive analysis includes additional context, supporting evidence, and detailed explanations of methodologies. The extended discussion provides deeper insights into implications and practical applications, making it valuable for readers seeking thorough understanding."

	extraTemplate = "[EXTRA DETAILED] %s\n\nThis exhaustive examination includes comprehensive background information, detailed methodological discussions, extensive case studies, and comparative analysis with related concepts. The content explores multiple perspectives, theoretical foundations, and practical implications while addressing potential limitations and future directions. This level of detail is particularly valuable for researchers, practitioners, and advanced students in the field."
)

// RewriteSummary renders the summary of r at level. The output depends only on the
// result's title and original summary, so repeated calls agree.
func RewriteSummary(r *models.AnalysisResult, level models.DetailLevel) (string, error) {
	base := r.BaseSummary()
	switch level {
	case models.DetailSimple:
		return fmt.Sprintf(simpleTemplate, r.Title), nil
	case models.DetailNormal:
		return base, nil
	case models.DetailDetailed:
		return fmt.Sprintf(detailedTemplate, base), nil
	case models.DetailExtra:
		return fmt.Sprintf(extraTemplate, base), nil
	}
	return "", fmt.Errorf("%w: %q", models.ErrInvalidDetailLevel, level)
}

// MoreQuestions returns QuestionBatchSize questions that r does not already have.
// Stock follow-ups come first, then questions about the key terms, then numbered
// follow-ups about the title.
func MoreQuestions(r *models.AnalysisResult) []string {
	seen := make(map[string]struct{}, len(r.Questions))
	for _, q := range r.Questions {
		seen[strings.ToLower(strings.TrimSpace(q))] = struct{}{}
	}

	out := make([]string, 0, QuestionBatchSize)
	add := func(q string) bool {
		key := strings.ToLower(q)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			out = append(out, q)
		}
		return len(out) == QuestionBatchSize
	}

	for _, q := range followUpQuestions {
		if add(q) {
			return out
		}
	}
	for _, kt := range r.KeyTerms {
		if add(fmt.Sprintf("How does %s shape the argument of this article?", kt.Term)) {
			return out
		}
		if add(fmt.Sprintf("What evidence would change how we think about %s?", kt.Term)) {
			return out
		}
	}

	topic := r.Title
	if topic == "" {
		topic = "this article"
	}
	for n := len(r.Questions) + 1; ; n++ {
		if add(fmt.Sprintf("Follow-up %d: what open questions remain about %s?", n, topic)) {
			return out
		}
	}
}

// Store is the part of the session store the service needs.
type Store interface {
	Save(ctx context.Context, session string, b *models.ResultBundle) error
	Load(ctx context.Context, session string) (*models.ResultBundle, error)
}

// Service applies augmentations to results persisted in a Store. Updates to the same
// session are serialized so concurrent calls never overwrite each other.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RewriteSummary replaces the summary of result id with its rendering at level and records
// the level and time in the result metadata.
func (s *Service) RewriteSummary(ctx context.Context, session, id string, level models.DetailLevel) (*models.AnalysisResult, error) {
	return s.update(ctx, session, id, func(r *models.AnalysisResult) error {
		summary, err := RewriteSummary(r, level)
		if err != nil {
			return err
		}
		if r.OriginalSummary == "" {
			r.OriginalSummary = r.Summary
		}
		at := s.now().UTC()
		r.Summary = summary
		r.Metadata.LastRewriteLevel = string(level)
		r.Metadata.LastRewriteAt = &at
		s.logger.Info("Rewrote summary", "session", session, "result_id", id, "level", string(level))
		return nil
	})
}

// GenerateMoreQuestions appends QuestionBatchSize new questions to result id.
func (s *Service) GenerateMoreQuestions(ctx context.Context, session, id string) (*models.AnalysisResult, error) {
	return s.update(ctx, session, id, func(r *models.AnalysisResult) error {
		more := MoreQuestions(r)
		r.Questions = append(append([]string{}, r.Questions...), more...)
		s.logger.Info("Generated questions", "session", session, "result_id", id, "added", len(more), "total", len(r.Questions))
		return nil
	})
}

func (s *Service) sessionLock(session string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[session]
	if !ok {
		l = &sync.Mutex{}
		s.locks[session] = l
	}
	return l
}

// update runs the load, apply and save cycle under the session lock.
func (s *Service) update(ctx context.Context, session, id string, apply func(*models.AnalysisResult) error) (*models.AnalysisResult, error) {
	l := s.sessionLock(session)
	l.Lock()
	defer l.Unlock()

	bundle, err := s.store.Load(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}

	r, ok := bundle.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, id)
	}
	if err := apply(r); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, session, bundle); err != nil {
		return nil, fmt.Errorf("failed to save results: %w", err)
	}
	updated := r.Clone()
	return &updated, nil
}
