package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/collector"
)

// fakeFetcher fails for URLs listed in fail and panics for URLs listed in panics.
type fakeFetcher struct {
	fail   map[string]error
	panics map[string]bool
	calls  []string
}

func (f *fakeFetcher) FetchContent(ctx context.Context, url string) (*models.RawContent, error) {
	f.calls = append(f.calls, url)
	if f.panics[url] {
		panic("fetcher exploded")
	}
	if err, ok := f.fail[url]; ok {
		return nil, err
	}
	return &models.RawContent{URL: url, Title: "Title of " + url, HTML: "<p>" + url + "</p>"}, nil
}

type fakeExtractor struct {
	fail map[string]error
}

func (e *fakeExtractor) ExtractText(ctx context.Context, raw *models.RawContent) (*models.Article, error) {
	if err, ok := e.fail[raw.URL]; ok {
		return nil, err
	}
	return &models.Article{URL: raw.URL, Body: "body text for " + raw.URL, Byline: "Ada"}, nil
}

type fakeAnalyzer struct {
	fail map[string]error
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, title, body, url string) (*models.Analysis, error) {
	if err, ok := a.fail[url]; ok {
		return nil, err
	}
	return &models.Analysis{
		Summary:   "Summary of " + title,
		KeyTerms:  []models.KeyTerm{{Term: "Alpha"}, {Term: "alpha"}, {Term: "Beta"}},
		Questions: []string{"Why?"},
		Metadata:  models.ResultMetadata{WordCount: 4, Sentiment: "neutral"},
	}, nil
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("task-%d", n)
	}
}

func newTestPipeline(f *fakeFetcher, e *fakeExtractor, a *fakeAnalyzer, opts ...Option) *Pipeline {
	if f == nil {
		f = &fakeFetcher{}
	}
	if e == nil {
		e = &fakeExtractor{}
	}
	if a == nil {
		a = &fakeAnalyzer{}
	}
	opts = append([]Option{WithIDGenerator(sequentialIDs())}, opts...)
	return New(f, e, a, opts...)
}

func TestSubmitEmptyInput(t *testing.T) {
	f := &fakeFetcher{}
	var notified int
	p := newTestPipeline(f, nil, nil, WithObserver(ObserverFunc(func(models.Progress) { notified++ })))

	bundle, err := p.Submit(context.Background(), nil)
	if !errors.Is(err, collector.ErrEmptyInput) {
		t.Fatalf("Submit() error = %v, want ErrEmptyInput", err)
	}
	if bundle != nil {
		t.Error("Submit() returned a bundle for empty input")
	}
	if notified != 0 || len(f.calls) != 0 {
		t.Errorf("pipeline ran for empty input: %d notifications, %d fetches", notified, len(f.calls))
	}
}

func TestSubmitFetchFailureForSecondURL(t *testing.T) {
	urls := []string{"https://one.example", "https://two.example", "https://three.example"}
	f := &fakeFetcher{fail: map[string]error{urls[1]: models.NewFetchError(errors.New("status 403"))}}
	p := newTestPipeline(f, nil, nil)

	bundle, err := p.Submit(context.Background(), urls)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(bundle.Results) != 2 || len(bundle.Errors) != 1 {
		t.Fatalf("got %d results and %d errors, want 2 and 1", len(bundle.Results), len(bundle.Errors))
	}
	if bundle.Results[0].URL != urls[0] || bundle.Results[1].URL != urls[2] {
		t.Errorf("results = %s, %s", bundle.Results[0].URL, bundle.Results[1].URL)
	}
	e := bundle.Errors[0]
	if e.URL != urls[1] || e.Code != models.CodeFetch || e.Status != models.TaskError {
		t.Errorf("error = %+v", e)
	}
	if e.Phase != "fetch" || e.Message != "status 403" {
		t.Errorf("error phase/message = %q/%q", e.Phase, e.Message)
	}
	if bundle.Summary == nil || bundle.Summary.Failed != 1 || bundle.Summary.Successful != 2 {
		t.Errorf("Summary = %+v", bundle.Summary)
	}
	if bundle.ProcessedAt.IsZero() {
		t.Error("ProcessedAt not set")
	}
}

func TestSubmitCountInvariant(t *testing.T) {
	urls := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u2"}
	f := &fakeFetcher{
		fail:   map[string]error{"u2": errors.New("connection closed")},
		panics: map[string]bool{"u6": true},
	}
	e := &fakeExtractor{fail: map[string]error{"u3": errors.New("no article")}}
	a := &fakeAnalyzer{fail: map[string]error{
		"u4": errors.New("model overloaded"),
		"u5": models.NewNetworkError(models.PhaseAnalyze, errors.New("dial tcp: timeout")),
	}}
	p := newTestPipeline(f, e, a)

	bundle, err := p.Submit(context.Background(), urls)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := len(bundle.Results) + len(bundle.Errors); got != len(urls) {
		t.Fatalf("|results|+|errors| = %d, want %d", got, len(urls))
	}

	wantCodes := []struct {
		url  string
		code models.ErrorCode
	}{
		{"u2", models.CodeFetch},
		{"u3", models.CodeExtraction},
		{"u4", models.CodeAnalysis},
		{"u5", models.CodeNetwork},
		{"u6", models.CodeUnexpected},
		{"u2", models.CodeFetch},
	}
	if len(bundle.Errors) != len(wantCodes) {
		t.Fatalf("errors = %+v", bundle.Errors)
	}
	for i, w := range wantCodes {
		if bundle.Errors[i].URL != w.url || bundle.Errors[i].Code != w.code {
			t.Errorf("errors[%d] = %s %s, want %s %s", i, bundle.Errors[i].URL, bundle.Errors[i].Code, w.url, w.code)
		}
	}
	if len(bundle.Results) != 1 || bundle.Results[0].URL != "u1" {
		t.Errorf("results = %+v", bundle.Results)
	}
	// duplicate submissions get distinct tasks
	if bundle.Errors[0].ID == bundle.Errors[5].ID {
		t.Error("duplicate URLs share a task ID")
	}
}

func TestSubmitAssemblesResult(t *testing.T) {
	p := newTestPipeline(nil, nil, nil)
	bundle, err := p.Submit(context.Background(), []string{"https://one.example"})
	if err != nil {
		t.Fatal(err)
	}

	r := bundle.Results[0]
	if r.ID != "task-1" || r.Status != models.TaskCompleted {
		t.Errorf("ID/Status = %s/%s", r.ID, r.Status)
	}
	if r.Title != "Title of https://one.example" {
		t.Errorf("Title = %q, want the fetched title", r.Title)
	}
	if r.OriginalSummary != r.Summary {
		t.Errorf("OriginalSummary = %q, want %q", r.OriginalSummary, r.Summary)
	}
	if len(r.KeyTerms) != 2 {
		t.Errorf("KeyTerms = %+v, want duplicates removed", r.KeyTerms)
	}
	if r.Metadata.Author != "Ada" {
		t.Errorf("Author = %q", r.Metadata.Author)
	}
	if r.Metadata.ReadTimeMinutes != 1 {
		t.Errorf("ReadTimeMinutes = %d", r.Metadata.ReadTimeMinutes)
	}
}

func TestObserverSnapshots(t *testing.T) {
	urls := []string{"a", "b", "c"}
	f := &fakeFetcher{fail: map[string]error{"b": models.NewFetchError(errors.New("gone"))}}

	var snapshots []models.Progress
	observer := ObserverFunc(func(p models.Progress) {
		snapshots = append(snapshots, p)
		// mutating a snapshot must not leak back into the pipeline
		for i := range p.Tasks {
			p.Tasks[i].Status = models.TaskError
			p.Tasks[i].URL = "tampered"
		}
	})

	p := newTestPipeline(f, nil, nil, WithObserver(observer))
	bundle, err := p.Submit(context.Background(), urls)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(bundle.Results) != 2 || bundle.Results[0].URL != "a" || bundle.Results[1].URL != "c" {
		t.Fatalf("observer mutation leaked into results: %+v", bundle.Results)
	}

	// initial snapshot, then per item: successful items see 4 phases + completion,
	// the failing item sees fetch + failure
	if want := 1 + 5 + 2 + 5; len(snapshots) != want {
		t.Fatalf("got %d snapshots, want %d", len(snapshots), want)
	}

	// step indices never go backwards while the same item is being processed
	seen := map[int]map[models.Phase]bool{}
	last := map[int]models.Phase{}
	for _, s := range snapshots[1:] {
		if prev, ok := last[s.Current]; ok && s.Step < prev {
			t.Errorf("item %d step went from %d to %d", s.Current, prev, s.Step)
		}
		last[s.Current] = s.Step
		if seen[s.Current] == nil {
			seen[s.Current] = map[models.Phase]bool{}
		}
		seen[s.Current][s.Step] = true
	}
	for _, item := range []int{0, 2} {
		for _, phase := range models.Phases() {
			if !seen[item][phase] {
				t.Errorf("item %d never reported phase %s", item, phase)
			}
		}
	}

	final := snapshots[len(snapshots)-1]
	counts := final.Counts()
	if counts.Completed != 2 || counts.Error != 1 || !final.Done() {
		t.Errorf("final snapshot counts = %+v", counts)
	}
}

func TestObserverSeesProcessingBeforeTerminal(t *testing.T) {
	var statuses []models.TaskStatus
	observer := ObserverFunc(func(p models.Progress) {
		statuses = append(statuses, p.Tasks[0].Status)
	})
	p := newTestPipeline(nil, nil, nil, WithObserver(observer))
	if _, err := p.Submit(context.Background(), []string{"only"}); err != nil {
		t.Fatal(err)
	}

	want := []models.TaskStatus{
		models.TaskQueued,
		models.TaskProcessing, models.TaskProcessing, models.TaskProcessing, models.TaskProcessing,
		models.TaskCompleted,
	}
	if len(statuses) != len(want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("statuses[%d] = %s, want %s", i, statuses[i], want[i])
		}
	}
}

func TestSubmitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeFetcher{}
	observer := ObserverFunc(func(p models.Progress) {
		if p.Current == 0 && p.Tasks[0].Status == models.TaskCompleted {
			cancel()
		}
	})

	p := newTestPipeline(f, nil, nil, WithObserver(observer))
	bundle, err := p.Submit(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(bundle.Results) != 1 || len(bundle.Errors) != 2 {
		t.Fatalf("got %d results and %d errors, want 1 and 2", len(bundle.Results), len(bundle.Errors))
	}
	for _, e := range bundle.Errors {
		if e.Code != models.CodeNetwork || !strings.Contains(e.Message, "cancelled") {
			t.Errorf("error = %+v", e)
		}
	}
	if len(f.calls) != 1 {
		t.Errorf("fetcher called %d times after cancellation", len(f.calls))
	}
}

func TestCancelledTasksPassThroughProcessing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	statuses := map[string][]models.TaskStatus{}
	observer := ObserverFunc(func(p models.Progress) {
		for _, task := range p.Tasks {
			seq := statuses[task.URL]
			if len(seq) == 0 || seq[len(seq)-1] != task.Status {
				statuses[task.URL] = append(seq, task.Status)
			}
		}
		if p.Current == 0 && p.Tasks[0].Status == models.TaskCompleted {
			cancel()
		}
	})

	p := newTestPipeline(nil, nil, nil, WithObserver(observer))
	if _, err := p.Submit(ctx, []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}

	want := []models.TaskStatus{models.TaskQueued, models.TaskProcessing, models.TaskError}
	for _, url := range []string{"b", "c"} {
		got := statuses[url]
		if len(got) != len(want) {
			t.Errorf("%s statuses = %v, want %v", url, got, want)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s statuses[%d] = %s, want %s", url, i, got[i], want[i])
			}
		}
	}
}

func TestSettleDelay(t *testing.T) {
	p := newTestPipeline(nil, nil, nil, WithSettleDelay(20*time.Millisecond))
	start := time.Now()
	if _, err := p.Submit(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("batch took %v, want at least one settle delay per item", elapsed)
	}
}

type memorySaver struct {
	session string
	bundle  *models.ResultBundle
	err     error
}

func (m *memorySaver) Save(ctx context.Context, session string, b *models.ResultBundle) error {
	m.session, m.bundle = session, b
	return m.err
}

func TestProcessSaves(t *testing.T) {
	saver := &memorySaver{}
	p := newTestPipeline(nil, nil, nil, WithSaver(saver))

	bundle, err := p.Process(context.Background(), "s1", []string{"a"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if saver.session != "s1" || saver.bundle != bundle {
		t.Errorf("saver got session %q bundle %p, want s1 %p", saver.session, saver.bundle, bundle)
	}

	saver.err = errors.New("disk full")
	bundle, err = p.Process(context.Background(), "s1", []string{"a"})
	if err == nil || bundle == nil {
		t.Errorf("Process() = %v, %v; want bundle and save error", bundle, err)
	}
}

type countingRecorder struct {
	started, finished int
	phases            int
	items             map[models.TaskStatus]int
}

func (r *countingRecorder) BatchStarted(int)                              { r.started++ }
func (r *countingRecorder) PhaseFinished(models.Phase, time.Duration, error) { r.phases++ }
func (r *countingRecorder) ItemFinished(s models.TaskStatus, _ models.ErrorCode) {
	r.items[s]++
}
func (r *countingRecorder) BatchFinished(time.Duration) { r.finished++ }

func TestRecorder(t *testing.T) {
	rec := &countingRecorder{items: map[models.TaskStatus]int{}}
	f := &fakeFetcher{fail: map[string]error{"b": errors.New("nope")}}
	p := newTestPipeline(f, nil, nil, WithRecorder(rec))

	if _, err := p.Submit(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if rec.started != 1 || rec.finished != 1 {
		t.Errorf("started/finished = %d/%d", rec.started, rec.finished)
	}
	if rec.phases != 5 {
		t.Errorf("phases = %d, want 5", rec.phases)
	}
	if rec.items[models.TaskCompleted] != 1 || rec.items[models.TaskError] != 1 {
		t.Errorf("items = %v", rec.items)
	}
}

func TestSubmitWithBatchObserver(t *testing.T) {
	var shared, own int
	p := newTestPipeline(nil, nil, nil, WithObserver(ObserverFunc(func(models.Progress) { shared++ })))

	if _, err := p.SubmitWith(context.Background(), []string{"a"}, ObserverFunc(func(models.Progress) { own++ })); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Submit(context.Background(), []string{"b"}); err != nil {
		t.Fatal(err)
	}
	if own != 6 {
		t.Errorf("batch observer saw %d snapshots, want 6", own)
	}
	if shared != 12 {
		t.Errorf("pipeline observer saw %d snapshots, want 12", shared)
	}
}
