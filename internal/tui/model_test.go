package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dtnitsch/article-analyzer/models"
)

func TestNewModelQueuesTasks(t *testing.T) {
	m := NewModel([]string{"https://a.example", "https://b.example"}, nil)
	if len(m.Progress.Tasks) != 2 || m.Progress.Counts().Queued != 2 {
		t.Errorf("Tasks = %+v", m.Progress.Tasks)
	}
	if !strings.Contains(m.View(), "https://b.example") {
		t.Error("View() does not list the URLs")
	}
}

func TestUpdateProgress(t *testing.T) {
	m := NewModel([]string{"a", "b"}, nil)
	snapshot := models.Progress{
		Step:    models.PhaseAnalyze,
		Current: 0,
		Tasks: []models.UrlTask{
			{ID: "1", URL: "a", Status: models.TaskProcessing},
			{ID: "2", URL: "b", Status: models.TaskQueued},
		},
	}

	next, cmd := m.Update(ProgressMsg{Progress: snapshot})
	if cmd != nil {
		t.Error("ProgressMsg should not return a command")
	}
	got := next.(Model)
	if !got.Started || got.Progress.Step != models.PhaseAnalyze {
		t.Errorf("model = %+v", got)
	}
	if view := got.View(); !strings.Contains(view, "> "+models.PhaseAnalyze.Label()) {
		t.Errorf("View() does not highlight the active step:\n%s", view)
	}
}

func TestUpdateDoneQuits(t *testing.T) {
	m := NewModel([]string{"a"}, nil)
	bundle := &models.ResultBundle{}

	next, cmd := m.Update(DoneMsg{Bundle: bundle})
	got := next.(Model)
	if !got.Done || got.Bundle != bundle {
		t.Errorf("model = %+v", got)
	}
	if cmd == nil {
		t.Fatal("DoneMsg should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("DoneMsg command is not tea.Quit")
	}

	next, _ = m.Update(DoneMsg{Err: errors.New("save failed")})
	if view := next.(Model).View(); !strings.Contains(view, "save failed") {
		t.Errorf("View() does not show the error:\n%s", view)
	}
}

func TestQuitCancelsRunningBatch(t *testing.T) {
	cancelled := false
	m := NewModel([]string{"a"}, func() { cancelled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !cancelled {
		t.Error("quitting did not cancel the batch")
	}
	if !next.(Model).Quitting || cmd == nil {
		t.Error("q did not quit")
	}

	cancelled = false
	done := m
	done.Done = true
	done.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cancelled {
		t.Error("quitting after completion cancelled the context")
	}
}
