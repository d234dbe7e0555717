package results

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/article-analyzer/internal/common"
	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/store"
	"github.com/urfave/cli/v2"
)

func seed(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	st, err := store.Open(models.StoreConfig{Kind: "sqlite", DBPath: dbPath})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	bundle := &models.ResultBundle{
		Results: []models.AnalysisResult{
			{
				ID: "task-1", URL: "https://example.com/wind", Title: "Offshore Wind Farms",
				Summary: "Turbines go up.", OriginalSummary: "Turbines go up.",
				Questions: []string{"Why offshore?"}, Status: models.TaskCompleted,
				Metadata: models.ResultMetadata{Category: "Environment", Sentiment: "positive", WordCount: 800, ReadTimeMinutes: 4, ProcessedAt: base},
			},
			{
				ID: "task-2", URL: "https://example.com/chips", Title: "Chip Shortage Eases",
				Summary: "Supply recovers.", OriginalSummary: "Supply recovers.",
				Status:   models.TaskCompleted,
				Metadata: models.ResultMetadata{Category: "Technology", Sentiment: "neutral", WordCount: 300, ReadTimeMinutes: 2, ProcessedAt: base.Add(time.Minute)},
			},
		},
		Errors: []models.ProcessingError{
			{ID: "task-3", URL: "https://example.com/gone", Code: models.CodeFetch, Message: "status 404", Status: models.TaskError},
		},
		ProcessedAt: base,
	}
	if err := st.Save(context.Background(), "team", bundle); err != nil {
		t.Fatal(err)
	}
	return dbPath
}

func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := &cli.App{
		Name:           "article-analyzer",
		Flags:          common.GlobalFlags(),
		Writer:         &out,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{Name: "results", Flags: ResultsFlags(), Action: ResultsAction},
			{Name: "sessions", Flags: SessionsFlags(), Action: SessionsAction},
			{Name: "rewrite", Flags: RewriteFlags(), Action: RewriteAction},
			{Name: "questions", Flags: QuestionsFlags(), Action: QuestionsAction},
			{Name: "clear", Action: ClearAction},
		},
	}

	missing := filepath.Join(t.TempDir(), "none.yaml")
	argv := append([]string{"article-analyzer", "--quiet", "--config", missing, "--store", "sqlite", "--db-path", dbPath, "--session", "team"}, args...)
	err := app.RunContext(context.Background(), argv)
	return out.String(), err
}

func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestResultsAction(t *testing.T) {
	dbPath := seed(t)

	tests := []struct {
		name    string
		args    []string
		wantIDs []string
	}{
		{name: "all recent first", args: []string{"results"}, wantIDs: []string{"task-2", "task-1"}},
		{name: "oldest", args: []string{"results", "--sort", "oldest"}, wantIDs: []string{"task-1", "task-2"}},
		{name: "filter", args: []string{"results", "--filter", "category=env AND word_count>500"}, wantIDs: []string{"task-1"}},
		{name: "search", args: []string{"results", "--search", "supply"}, wantIDs: []string{"task-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, dbPath, tt.args...)
			if err != nil {
				t.Fatalf("results error = %v", err)
			}

			var got struct {
				Stats   map[string]int           `json:"stats"`
				Results []map[string]interface{} `json:"results"`
				Errors  []models.ProcessingError `json:"errors"`
			}
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("invalid JSON: %v\n%s", err, out)
			}
			if len(got.Results) != len(tt.wantIDs) {
				t.Fatalf("got %d results, want %d", len(got.Results), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got.Results[i]["id"] != id {
					t.Errorf("Results[%d].id = %v, want %s", i, got.Results[i]["id"], id)
				}
			}
			if got.Stats["processed"] != 2 || got.Stats["errors"] != 1 || got.Stats["totalWords"] != 1100 {
				t.Errorf("Stats = %v", got.Stats)
			}
			if len(got.Errors) != 1 || got.Errors[0].Code != models.CodeFetch {
				t.Errorf("Errors = %+v", got.Errors)
			}
		})
	}
}

func TestResultsActionFields(t *testing.T) {
	dbPath := seed(t)
	out, err := run(t, dbPath, "results", "--fields", "id,title", "--format", "yaml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "title: Chip Shortage Eases") || strings.Contains(out, "summary: Supply recovers.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestResultsActionErrors(t *testing.T) {
	dbPath := seed(t)

	if _, err := run(t, dbPath, "results", "--filter", "color=blue"); exitCode(err) != 2 {
		t.Errorf("bad filter exit = %d (%v)", exitCode(err), err)
	}
	if _, err := run(t, dbPath, "--session", "nobody", "results"); exitCode(err) != 2 {
		t.Errorf("missing session exit = %d (%v)", exitCode(err), err)
	}
}

func TestRewriteAction(t *testing.T) {
	dbPath := seed(t)

	out, err := run(t, dbPath, "rewrite", "--id", "task-1", "--level", "detailed")
	if err != nil {
		t.Fatalf("rewrite error = %v", err)
	}
	var r models.AnalysisResult
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(r.Summary, "[DETAILED] Turbines go up.") {
		t.Errorf("Summary = %q", r.Summary)
	}

	// persisted for the next command
	out, err = run(t, dbPath, "results", "--fields", "id,summary", "--sort", "oldest")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "[DETAILED] Turbines go up.") {
		t.Errorf("rewrite not persisted:\n%s", out)
	}

	if _, err := run(t, dbPath, "rewrite", "--id", "task-1", "--level", "verbose"); exitCode(err) != 2 {
		t.Errorf("invalid level exit = %d", exitCode(err))
	}
	if _, err := run(t, dbPath, "rewrite", "--id", "task-9", "--level", "simple"); exitCode(err) != 2 {
		t.Errorf("unknown id exit = %d", exitCode(err))
	}
}

func TestQuestionsAction(t *testing.T) {
	dbPath := seed(t)

	out, err := run(t, dbPath, "questions", "--id", "task-1")
	if err != nil {
		t.Fatalf("questions error = %v", err)
	}
	var r models.AnalysisResult
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatal(err)
	}
	if len(r.Questions) != 4 || r.Questions[0] != "Why offshore?" {
		t.Errorf("Questions = %v", r.Questions)
	}
}

func TestSessionsAndClear(t *testing.T) {
	dbPath := seed(t)

	out, err := run(t, dbPath, "sessions")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "team") || !strings.Contains(out, "Total: 1 sessions") {
		t.Errorf("sessions output:\n%s", out)
	}

	if _, err := run(t, dbPath, "clear"); err != nil {
		t.Fatalf("clear error = %v", err)
	}
	if _, err := run(t, dbPath, "results"); exitCode(err) != 2 {
		t.Errorf("results after clear exit = %d", exitCode(err))
	}
}
