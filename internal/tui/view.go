package tui

import (
	"fmt"
	"strings"

	"github.com/dtnitsch/article-analyzer/models"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Article Analyzer"))
	b.WriteString("\n")
	b.WriteString(m.stepsView())
	b.WriteString("\n\n")

	for i, t := range m.Progress.Tasks {
		b.WriteString(taskLine(i, t))
		b.WriteString("\n")
	}

	c := m.Progress.Counts()
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(fmt.Sprintf("%d completed, %d failed, %d remaining",
		c.Completed, c.Error, c.Queued+c.Processing)))
	b.WriteString("\n")

	switch {
	case m.Done && m.Err != nil:
		b.WriteString(ErrorStyle.Render("Error: " + m.Err.Error()))
	case m.Done:
		b.WriteString(DoneStyle.Render("Done"))
	case m.Quitting:
		b.WriteString(InfoStyle.Render("Cancelling..."))
	default:
		b.WriteString(InfoStyle.Render("Press q to cancel"))
	}
	b.WriteString("\n")

	return BoxStyle.Render(b.String())
}

// stepsView shows the four phases with the current one highlighted.
func (m Model) stepsView() string {
	parts := make([]string, 0, models.PhaseCount)
	for _, phase := range models.Phases() {
		label := phase.Label()
		switch {
		case !m.Started || m.Done:
			if m.Done {
				label = DoneStyle.Render(label)
			} else {
				label = InfoStyle.Render(label)
			}
		case phase < m.Progress.Step:
			label = DoneStyle.Render(label)
		case phase == m.Progress.Step:
			label = ActiveStepStyle.Render("> " + label)
		default:
			label = InfoStyle.Render(label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, InfoStyle.Render("  |  "))
}

func taskLine(i int, t models.UrlTask) string {
	var mark string
	switch t.Status {
	case models.TaskCompleted:
		mark = DoneStyle.Render("[done]")
	case models.TaskError:
		mark = ErrorStyle.Render("[fail]")
	case models.TaskProcessing:
		mark = ActiveStepStyle.Render("[ .. ]")
	default:
		mark = InfoStyle.Render("[wait]")
	}
	return fmt.Sprintf("%s %2d. %s", mark, i+1, t.URL)
}
