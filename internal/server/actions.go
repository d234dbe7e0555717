package server

import (
	"os/signal"
	"syscall"

	"github.com/dtnitsch/article-analyzer/internal/common"
	"github.com/dtnitsch/article-analyzer/pkg/pipeline"
	"github.com/dtnitsch/article-analyzer/pkg/store"
	"github.com/urfave/cli/v2"
)

// Flags are the flags of the serve command.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Usage:   "Listen address",
			EnvVars: []string{"ARTICLE_ANALYZER_ADDR"},
		},
		&cli.IntFlag{
			Name:  "max-urls",
			Usage: "Maximum URLs accepted per request",
		},
	}
}

// ServeAction runs the HTTP service until SIGINT or SIGTERM.
func ServeAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	if c.IsSet("max-urls") {
		cfg.Server.MaxURLs = c.Int("max-urls")
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer st.Close()

	p, err := common.NewPipeline(cfg, logger, pipeline.WithSaver(st))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Serving", "addr", cfg.Server.Addr, "store", cfg.Store.Kind, "analyzer", cfg.Analyzer.Kind)
	return New(cfg, p, st, logger).Run(ctx)
}
