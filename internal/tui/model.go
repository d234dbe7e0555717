// Package tui renders live batch progress in the terminal.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/pipeline"
)

// Model is the progress view state.
type Model struct {
	Progress models.Progress
	Started  bool
	Done     bool
	Bundle   *models.ResultBundle
	Err      error
	Quitting bool

	cancel context.CancelFunc
}

// NewModel shows urls as queued until the first snapshot arrives. cancel is called when
// the user quits before the batch is done.
func NewModel(urls []string, cancel context.CancelFunc) Model {
	tasks := make([]models.UrlTask, len(urls))
	for i, u := range urls {
		tasks[i] = models.UrlTask{URL: u, Status: models.TaskQueued}
	}
	return Model{
		Progress: models.Progress{Tasks: tasks},
		cancel:   cancel,
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return nil
}

// Run processes urls through p while showing progress. Quitting the view cancels the
// batch; items not yet started are then recorded as errors.
func Run(ctx context.Context, p *pipeline.Pipeline, session string, urls []string, opts ...tea.ProgramOption) (*models.ResultBundle, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(NewModel(urls, cancel), opts...)
	observer := pipeline.ObserverFunc(func(pr models.Progress) {
		program.Send(ProgressMsg{Progress: pr})
	})

	type outcome struct {
		bundle *models.ResultBundle
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		bundle, err := p.ProcessWith(ctx, session, urls, observer)
		done <- outcome{bundle, err}
		program.Send(DoneMsg{Bundle: bundle, Err: err})
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("failed to run progress view: %w", err)
	}

	out := <-done
	return out.bundle, out.err
}
