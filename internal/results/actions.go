package results

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dtnitsch/article-analyzer/internal/common"
	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/augment"
	"github.com/dtnitsch/article-analyzer/pkg/metrics"
	"github.com/dtnitsch/article-analyzer/pkg/query"
	"github.com/dtnitsch/article-analyzer/pkg/store"
	"github.com/urfave/cli/v2"
)

// ResultsFlags are the flags of the results command.
func ResultsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "filter",
			Usage: "Filter expression, e.g. 'category=tech AND word_count>500'",
		},
		&cli.StringFlag{
			Name:  "search",
			Usage: "Case-insensitive text in title or summary",
		},
		&cli.StringFlag{
			Name:  "sort",
			Usage: "Sort by recent, oldest, title or readTime",
			Value: query.SortRecent,
		},
		&cli.StringFlag{
			Name:  "fields",
			Usage: "Comma separated result fields to print (default all)",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format: json or yaml",
			Value: "json",
		},
	}
}

// RewriteFlags are the flags of the rewrite command.
func RewriteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "Result ID", Required: true},
		&cli.StringFlag{Name: "level", Usage: "Detail level: simple, normal, detailed or extra", Required: true},
	}
}

// QuestionsFlags are the flags of the questions command.
func QuestionsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "Result ID", Required: true},
	}
}

// SessionsFlags are the flags of the sessions command.
func SessionsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "limit", Usage: "Maximum sessions to list", Value: 20},
	}
}

type resultsOutput struct {
	Session string                   `json:"session" yaml:"session"`
	Stats   query.Stats              `json:"stats" yaml:"stats"`
	Results []map[string]interface{} `json:"results" yaml:"results"`
	Errors  []models.ProcessingError `json:"errors" yaml:"errors"`
}

// ResultsAction prints the stored bundle of a session, filtered and sorted.
func ResultsAction(c *cli.Context) error {
	cfg, st, err := open(c)
	if err != nil {
		return err
	}
	defer st.Close()

	filter, err := query.ParseFilter(c.String("filter"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if s := c.String("search"); s != "" {
		filter.Search = s
	}
	if c.IsSet("sort") || filter.SortBy == "" {
		sortBy, err := query.ParseSort(c.String("sort"))
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		filter.SortBy = sortBy
	}

	bundle, err := st.Load(c.Context, cfg.Store.Session)
	if err != nil {
		return loadError(cfg.Store.Session, err)
	}

	shown := query.Apply(bundle.Results, filter)
	out := resultsOutput{
		Session: cfg.Store.Session,
		Stats:   query.Summarize(bundle, len(shown)),
		Results: make([]map[string]interface{}, 0, len(shown)),
		Errors:  bundle.Errors,
	}
	if out.Errors == nil {
		out.Errors = []models.ProcessingError{}
	}
	for _, r := range shown {
		out.Results = append(out.Results, common.FilterResultFields(r, c.String("fields")))
	}

	return render(c, out)
}

// SessionsAction lists stored sessions. Only the sqlite store can enumerate them.
func SessionsAction(c *cli.Context) error {
	_, st, err := open(c)
	if err != nil {
		return err
	}
	defer st.Close()

	sqlStore, ok := st.(*store.SQLStore)
	if !ok {
		return cli.Exit("listing sessions requires the sqlite store", 2)
	}
	sessions, err := sqlStore.Sessions(c.Context, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	w := c.App.Writer
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found")
		return nil
	}

	fmt.Fprintf(w, "%-20s %-20s %-8s %-8s\n", "Session", "Processed", "Results", "Errors")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, s := range sessions {
		fmt.Fprintf(w, "%-20s %-20s %-8d %-8d\n",
			s.Name,
			s.ProcessedAt.Format("2006-01-02 15:04:05"),
			s.ResultCount,
			s.ErrorCount,
		)
	}
	fmt.Fprintf(w, "\nTotal: %d sessions\n", len(sessions))
	return nil
}

// RewriteAction rewrites one result's summary at the requested detail level.
func RewriteAction(c *cli.Context) error {
	level, err := models.ParseDetailLevel(c.String("level"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	return augmentAction(c, "rewrite", func(svc *augment.Service, session string) (*models.AnalysisResult, error) {
		return svc.RewriteSummary(c.Context, session, c.String("id"), level)
	})
}

// QuestionsAction appends another batch of questions to one result.
func QuestionsAction(c *cli.Context) error {
	return augmentAction(c, "questions", func(svc *augment.Service, session string) (*models.AnalysisResult, error) {
		return svc.GenerateMoreQuestions(c.Context, session, c.String("id"))
	})
}

// ClearAction removes the stored bundle of a session.
func ClearAction(c *cli.Context) error {
	cfg, st, err := open(c)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Clear(c.Context, cfg.Store.Session); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Cleared session %s\n", cfg.Store.Session)
	return nil
}

func augmentAction(c *cli.Context, operation string, run func(*augment.Service, string) (*models.AnalysisResult, error)) error {
	cfg, st, err := open(c)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := augment.NewService(st, augment.WithLogger(common.NewLogger(c)))
	result, err := run(svc, cfg.Store.Session)
	metrics.RecordAugment(operation, err)
	if err != nil {
		if errors.Is(err, augment.ErrResultNotFound) {
			return cli.Exit(fmt.Sprintf("result %q not found in session %s", c.String("id"), cfg.Store.Session), 2)
		}
		return loadError(cfg.Store.Session, err)
	}

	return render(c, result)
}

func open(c *cli.Context) (*models.Config, store.Store, error) {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), 2)
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), 2)
	}
	return cfg, st, nil
}

func loadError(session string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return cli.Exit(fmt.Sprintf("no results stored for session %s (run analyze first)", session), 2)
	}
	return fmt.Errorf("failed to load session %s: %w", session, err)
}

func render(c *cli.Context, v interface{}) error {
	data, err := common.Marshal(v, c.String("format"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	return common.WriteOutput(c.App.Writer, "", data)
}
