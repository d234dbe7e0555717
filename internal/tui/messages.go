package tui

import "github.com/dtnitsch/article-analyzer/models"

// ProgressMsg carries a pipeline snapshot.
type ProgressMsg struct {
	Progress models.Progress
}

// DoneMsg is sent once the batch has finished or failed.
type DoneMsg struct {
	Bundle *models.ResultBundle
	Err    error
}
