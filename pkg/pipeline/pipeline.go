// Package pipeline runs batches of URLs through fetch, extract, analyze and finalize,
// strictly one item at a time, and reports every transition to observers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/analytics"
	"github.com/dtnitsch/article-analyzer/pkg/collector"
	"github.com/dtnitsch/article-analyzer/pkg/manifest"
	"github.com/google/uuid"
)

// ContentFetcher acquires the raw content of a URL.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (*models.RawContent, error)
}

// TextExtractor derives readable text from raw content.
type TextExtractor interface {
	ExtractText(ctx context.Context, raw *models.RawContent) (*models.Article, error)
}

// Analyzer derives the summary, key terms, questions and metadata of an article.
type Analyzer interface {
	Analyze(ctx context.Context, title, body, url string) (*models.Analysis, error)
}

// Observer receives a snapshot after every transition, synchronously and in order.
type Observer interface {
	OnProgress(p models.Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(p models.Progress)

func (f ObserverFunc) OnProgress(p models.Progress) { f(p) }

// Recorder collects batch statistics, typically for metrics.
type Recorder interface {
	BatchStarted(size int)
	PhaseFinished(phase models.Phase, d time.Duration, err error)
	ItemFinished(status models.TaskStatus, code models.ErrorCode)
	BatchFinished(d time.Duration)
}

// Saver persists a finished bundle for a session.
type Saver interface {
	Save(ctx context.Context, session string, b *models.ResultBundle) error
}

// Pipeline is safe to reuse across batches but runs one batch at a time per call.
type Pipeline struct {
	fetcher   ContentFetcher
	extractor TextExtractor
	analyzer  Analyzer

	observers   []Observer
	recorder    Recorder
	saver       Saver
	logger      *slog.Logger
	settleDelay time.Duration
	now         func() time.Time
	newID       func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver adds an observer. Observers are called in the order they were added.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, o) }
}

// WithRecorder sets the statistics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithSaver sets where Process persists bundles.
func WithSaver(s Saver) Option {
	return func(p *Pipeline) { p.saver = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithSettleDelay sets the pause taken at finalize before an item is marked completed.
func WithSettleDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.settleDelay = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator replaces the task ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(p *Pipeline) { p.newID = gen }
}

// New builds a Pipeline from its three collaborators.
func New(f ContentFetcher, e TextExtractor, a Analyzer, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:   f,
		extractor: e,
		analyzer:  a,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}
	return p
}

// batch is the mutable state of one Submit call. It never leaves this package; observers
// only see copies.
type batch struct {
	observers []Observer
	tasks     []models.UrlTask
	step      models.Phase
	current   int
	results   []models.AnalysisResult
	errors    []models.ProcessingError
}

// Submit processes urls in order and returns the bundle. It fails with
// collector.ErrEmptyInput before doing anything when urls is empty. Per item failures end
// up in the bundle's error list and never abort the batch. If ctx is cancelled, items not
// yet started are recorded as NET-005 errors.
func (p *Pipeline) Submit(ctx context.Context, urls []string) (*models.ResultBundle, error) {
	return p.SubmitWith(ctx, urls)
}

// SubmitWith is Submit with extra observers that only see this batch. They are notified
// after the pipeline's own observers.
func (p *Pipeline) SubmitWith(ctx context.Context, urls []string, observers ...Observer) (*models.ResultBundle, error) {
	if len(urls) == 0 {
		return nil, collector.ErrEmptyInput
	}

	started := p.now()
	b := &batch{
		observers: append(append([]Observer(nil), p.observers...), observers...),
		tasks:     make([]models.UrlTask, len(urls)),
	}
	for i, u := range urls {
		b.tasks[i] = models.UrlTask{ID: p.newID(), URL: u, Status: models.TaskQueued}
	}

	p.logger.Info("Starting batch", "url_count", len(urls))
	p.recorder.BatchStarted(len(urls))
	p.notify(b)

	for i := range b.tasks {
		b.current = i
		p.processItem(ctx, b, i)
	}

	bundle := &models.ResultBundle{
		Results:     b.results,
		Errors:      b.errors,
		ProcessedAt: p.now().UTC(),
	}
	if bundle.Results == nil {
		bundle.Results = []models.AnalysisResult{}
	}
	if bundle.Errors == nil {
		bundle.Errors = []models.ProcessingError{}
	}
	if err := bundle.Validate(b.tasks); err != nil {
		return nil, fmt.Errorf("failed to assemble bundle: %w", err)
	}
	summary := manifest.Summarize(bundle)
	bundle.Summary = &summary

	elapsed := p.now().Sub(started)
	p.recorder.BatchFinished(elapsed)
	p.logger.Info("Batch finished",
		"url_count", len(urls),
		"successful", len(bundle.Results),
		"failed", len(bundle.Errors),
		"duration_ms", elapsed.Milliseconds())

	return bundle, nil
}

// Process runs Submit and saves the bundle under session when a Saver is configured.
// A save failure is returned together with the bundle.
func (p *Pipeline) Process(ctx context.Context, session string, urls []string) (*models.ResultBundle, error) {
	return p.ProcessWith(ctx, session, urls)
}

// ProcessWith is Process with extra per batch observers.
func (p *Pipeline) ProcessWith(ctx context.Context, session string, urls []string, observers ...Observer) (*models.ResultBundle, error) {
	bundle, err := p.SubmitWith(ctx, urls, observers...)
	if err != nil {
		return nil, err
	}
	if p.saver == nil {
		return bundle, nil
	}
	// persist even if the caller has gone away
	if err := p.saver.Save(context.WithoutCancel(ctx), session, bundle); err != nil {
		return bundle, fmt.Errorf("failed to save results: %w", err)
	}
	return bundle, nil
}

func (p *Pipeline) processItem(ctx context.Context, b *batch, i int) {
	task := &b.tasks[i]
	log := p.logger.With("task_id", task.ID, "url", task.URL)

	task.Status = models.TaskProcessing
	b.step = models.PhaseFetch
	p.notify(b)

	if err := ctx.Err(); err != nil {
		p.fail(b, i, models.PhaseFetch, models.NewNetworkError(models.PhaseFetch, fmt.Errorf("batch cancelled: %w", err)), log)
		return
	}
	var raw *models.RawContent
	if err := p.runPhase(models.PhaseFetch, func() error {
		var err error
		raw, err = p.fetcher.FetchContent(ctx, task.URL)
		if err == nil && raw == nil {
			err = models.NewFetchError(errors.New("no content returned"))
		}
		return err
	}); err != nil {
		p.fail(b, i, models.PhaseFetch, err, log)
		return
	}

	b.step = models.PhaseExtract
	p.notify(b)
	var article *models.Article
	if err := p.runPhase(models.PhaseExtract, func() error {
		var err error
		article, err = p.extractor.ExtractText(ctx, raw)
		if err == nil && (article == nil || article.Body == "") {
			err = models.NewExtractionError(errors.New("no readable text"))
		}
		return err
	}); err != nil {
		p.fail(b, i, models.PhaseExtract, err, log)
		return
	}
	if article.Title == "" {
		article.Title = raw.Title
	}

	b.step = models.PhaseAnalyze
	p.notify(b)
	var analysis *models.Analysis
	if err := p.runPhase(models.PhaseAnalyze, func() error {
		var err error
		analysis, err = p.analyzer.Analyze(ctx, article.Title, article.Body, task.URL)
		if err == nil && analysis == nil {
			err = models.NewAnalysisError(errors.New("no analysis returned"))
		}
		return err
	}); err != nil {
		p.fail(b, i, models.PhaseAnalyze, err, log)
		return
	}

	b.step = models.PhaseFinalize
	p.notify(b)
	var result models.AnalysisResult
	if err := p.runPhase(models.PhaseFinalize, func() error {
		result = p.assemble(task, raw, article, analysis)
		return p.settle(ctx)
	}); err != nil {
		p.fail(b, i, models.PhaseFinalize, err, log)
		return
	}

	task.Status = models.TaskCompleted
	b.results = append(b.results, result)
	p.recorder.ItemFinished(models.TaskCompleted, "")
	log.Info("Processed URL", "title", result.Title, "word_count", result.Metadata.WordCount)
	p.notify(b)
}

// runPhase calls fn, converting panics into UNK-000 errors and classifying untyped
// errors by phase.
func (p *Pipeline) runPhase(phase models.Phase, fn func() error) (err error) {
	start := p.now()
	defer func() {
		if r := recover(); r != nil {
			err = &models.StageError{Code: models.CodeUnexpected, Phase: phase, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			err = classify(phase, err)
		}
		p.recorder.PhaseFinished(phase, p.now().Sub(start), err)
	}()
	return fn()
}

func classify(phase models.Phase, err error) error {
	var se *models.StageError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return models.NewNetworkError(phase, err)
	}
	switch phase {
	case models.PhaseFetch:
		return models.NewFetchError(err)
	case models.PhaseExtract:
		return models.NewExtractionError(err)
	case models.PhaseAnalyze:
		return models.NewAnalysisError(err)
	default:
		return &models.StageError{Code: models.CodeUnexpected, Phase: phase, Err: err}
	}
}

func (p *Pipeline) fail(b *batch, i int, phase models.Phase, err error, log *slog.Logger) {
	task := &b.tasks[i]
	code := models.CodeOf(err)
	if code == "" {
		code = models.CodeUnexpected
	}

	task.Status = models.TaskError
	b.step = phase
	b.errors = append(b.errors, models.ProcessingError{
		ID:      task.ID,
		URL:     task.URL,
		Message: errorMessage(err),
		Code:    code,
		Phase:   phase.String(),
		Status:  models.TaskError,
	})
	p.recorder.ItemFinished(models.TaskError, code)
	log.Warn("Failed to process URL", "phase", phase.String(), "error_code", string(code), "error", err)
	p.notify(b)
}

func errorMessage(err error) string {
	var se *models.StageError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}

func (p *Pipeline) assemble(task *models.UrlTask, raw *models.RawContent, article *models.Article, analysis *models.Analysis) models.AnalysisResult {
	terms := make([]any, len(analysis.KeyTerms))
	for i, kt := range analysis.KeyTerms {
		terms[i] = kt
	}

	md := analysis.Metadata
	md.TopKeywords = append([]string(nil), md.TopKeywords...)
	if md.WordCount == 0 {
		md.WordCount = article.WordCount()
	}
	if md.ReadTimeMinutes == 0 {
		md.ReadTimeMinutes = analytics.ReadTime(md.WordCount)
	}
	if md.Language == "" {
		md.Language = article.Language
	}
	if md.Author == "" {
		md.Author = article.Byline
	}
	if md.SiteName == "" {
		md.SiteName = article.SiteName
	}
	if md.PublishedAt == "" && article.PublishedAt != nil {
		md.PublishedAt = article.PublishedAt.Format("2006-01-02")
	}
	if md.ProcessedAt.IsZero() {
		md.ProcessedAt = p.now().UTC()
	}

	title := article.Title
	if title == "" {
		title = raw.Title
	}

	return models.AnalysisResult{
		ID:              task.ID,
		URL:             task.URL,
		Title:           title,
		Summary:         analysis.Summary,
		OriginalSummary: analysis.Summary,
		KeyTerms:        models.NormalizeKeyTerms(terms),
		Questions:       append([]string{}, analysis.Questions...),
		Metadata:        md,
		Status:          models.TaskCompleted,
	}
}

func (p *Pipeline) settle(ctx context.Context) error {
	if p.settleDelay <= 0 {
		return nil
	}
	t := time.NewTimer(p.settleDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notify hands every observer its own copy of the task list.
func (p *Pipeline) notify(b *batch) {
	for _, o := range b.observers {
		snapshot := models.Progress{
			Step:    b.step,
			Current: b.current,
			Tasks:   append([]models.UrlTask(nil), b.tasks...),
		}
		p.deliver(o, snapshot)
	}
}

func (p *Pipeline) deliver(o Observer, snapshot models.Progress) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Observer panicked", "error", r)
		}
	}()
	o.OnProgress(snapshot)
}

type nopRecorder struct{}

func (nopRecorder) BatchStarted(int)                                {}
func (nopRecorder) PhaseFinished(models.Phase, time.Duration, error) {}
func (nopRecorder) ItemFinished(models.TaskStatus, models.ErrorCode) {}
func (nopRecorder) BatchFinished(time.Duration)                     {}
