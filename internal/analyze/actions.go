package analyze

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dtnitsch/article-analyzer/internal/common"
	"github.com/dtnitsch/article-analyzer/internal/tui"
	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/collector"
	"github.com/dtnitsch/article-analyzer/pkg/manifest"
	"github.com/dtnitsch/article-analyzer/pkg/pipeline"
	"github.com/dtnitsch/article-analyzer/pkg/storage"
	"github.com/dtnitsch/article-analyzer/pkg/store"
	"github.com/urfave/cli/v2"
)

// Flags are the flags of the analyze command.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "urls",
			Usage: "URLs to analyze, one per line or comma separated",
		},
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Read URLs from a file, one per line",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Show live progress in the terminal",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format: json or yaml",
			Value: "json",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the bundle to this file instead of stdout",
		},
		&cli.StringFlag{
			Name:  "manifest",
			Usage: "Also write a summary manifest to this file",
		},
	}
}

// AnalyzeAction collects URLs, runs the batch, saves it to the session store and prints
// the bundle. Exit code 1 means some URLs failed, 2 means all failed or the batch could not
// run.
func AnalyzeAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	raw, err := readInput(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	urls, err := collector.Collect(raw)
	if errors.Is(err, collector.ErrEmptyInput) {
		return cli.Exit("no URLs provided (use --urls, --file or stdin)", 2)
	}

	valid, invalid := collector.Validate(urls)
	if len(invalid) > 0 {
		return cli.Exit(fmt.Sprintf("invalid URLs: %s", strings.Join(invalid, ", ")), 2)
	}
	logger.Info("Analyzing URLs", "count", len(valid), "session", cfg.Store.Session, "analyzer", cfg.Analyzer.Kind)

	st, err := store.Open(cfg.Store)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer st.Close()

	p, err := common.NewPipeline(cfg, logger, pipeline.WithSaver(st))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	var bundle *models.ResultBundle
	if c.Bool("tui") {
		bundle, err = tui.Run(c.Context, p, cfg.Store.Session, valid)
	} else {
		bundle, err = p.ProcessWith(c.Context, cfg.Store.Session, valid, progressLogger(logger))
	}
	if bundle == nil {
		return cli.Exit(fmt.Sprintf("batch failed: %v", err), 2)
	}
	saveErr := err

	if path := c.String("manifest"); path != "" {
		if err := manifest.WriteSummary(bundle, path, &storage.Storage{}); err != nil {
			logger.Error("Failed to write manifest", "path", path, "error", err)
		}
	}

	data, err := common.Marshal(models.NewAnalyzeResponse(bundle), c.String("format"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if err := common.WriteOutput(c.App.Writer, c.String("output"), data); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	if saveErr != nil {
		return cli.Exit(saveErr.Error(), 2)
	}
	return exitStatus(bundle)
}

func exitStatus(b *models.ResultBundle) error {
	switch {
	case len(b.Errors) == 0:
		return nil
	case len(b.Results) == 0:
		return cli.Exit(fmt.Sprintf("all %d URLs failed", len(b.Errors)), 2)
	default:
		return cli.Exit(fmt.Sprintf("%d of %d URLs failed", len(b.Errors), len(b.Errors)+len(b.Results)), 1)
	}
}

// readInput returns the raw submission from --urls, --file or stdin, in that order.
func readInput(c *cli.Context) (string, error) {
	if c.IsSet("urls") {
		return strings.ReplaceAll(c.String("urls"), ",", "\n"), nil
	}
	if path := c.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read URL file: %w", err)
		}
		return string(data), nil
	}

	in := c.App.Reader
	if in == nil {
		in = os.Stdin
	}
	if f, ok := in.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", nil // interactive terminal, nothing piped
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// progressLogger logs every snapshot at debug level.
func progressLogger(logger *slog.Logger) pipeline.Observer {
	return pipeline.ObserverFunc(func(p models.Progress) {
		if len(p.Tasks) == 0 {
			return
		}
		t := p.Tasks[p.Current]
		logger.Debug("Progress",
			"step", p.Step.Label(),
			"item", p.Current+1,
			"total", len(p.Tasks),
			"url", t.URL,
			"status", string(t.Status))
	})
}
