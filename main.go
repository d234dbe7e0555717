package main

import (
	"fmt"
	"os"

	"github.com/dtnitsch/article-analyzer/internal/analyze"
	"github.com/dtnitsch/article-analyzer/internal/common"
	"github.com/dtnitsch/article-analyzer/internal/results"
	"github.com/dtnitsch/article-analyzer/internal/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "article-analyzer",
		Usage: "Fetch, extract and analyze article URLs",
		Flags: common.GlobalFlags(),
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "Analyze a batch of URLs and store the results in the session",
				ArgsUsage: "[< urls.txt]",
				Flags:     analyze.Flags(),
				Action:    analyze.AnalyzeAction,
			},
			{
				Name:   "results",
				Usage:  "Show the stored results of the session",
				Flags:  results.ResultsFlags(),
				Action: results.ResultsAction,
			},
			{
				Name:   "rewrite",
				Usage:  "Rewrite a result's summary at another detail level",
				Flags:  results.RewriteFlags(),
				Action: results.RewriteAction,
			},
			{
				Name:   "questions",
				Usage:  "Generate more questions for a result",
				Flags:  results.QuestionsFlags(),
				Action: results.QuestionsAction,
			},
			{
				Name:   "sessions",
				Usage:  "List stored sessions (sqlite store)",
				Flags:  results.SessionsFlags(),
				Action: results.SessionsAction,
			},
			{
				Name:   "clear",
				Usage:  "Delete the stored results of the session",
				Action: results.ClearAction,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Flags:  server.Flags(),
				Action: server.ServeAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
