package models

import (
	"errors"
	"fmt"
)

// ErrorCode tags a per-item failure with its kind.
type ErrorCode string

const (
	CodeFetch      ErrorCode = "FETCH-001"
	CodeExtraction ErrorCode = "EXT-002"
	CodeAnalysis   ErrorCode = "LLM-004"
	CodeNetwork    ErrorCode = "NET-005"
	CodeUnexpected ErrorCode = "UNK-000"
)

// Title is a short heading for the code.
func (c ErrorCode) Title() string {
	switch c {
	case CodeFetch:
		return "Content Fetch Failed"
	case CodeExtraction:
		return "Text Extraction Error"
	case CodeAnalysis:
		return "AI Analysis Failed"
	case CodeNetwork:
		return "Network Error"
	default:
		return "Processing Error"
	}
}

// Description explains the code to an end user.
func (c ErrorCode) Description() string {
	switch c {
	case CodeFetch:
		return "Unable to retrieve article content. The URL may be inaccessible or blocked."
	case CodeExtraction:
		return "Failed to extract readable text from the article. The page structure may be incompatible."
	case CodeAnalysis:
		return "The analysis service encountered an error. Please try again."
	case CodeNetwork:
		return "Network connectivity issue. Please check your connection and try again."
	default:
		return "An unexpected error occurred during processing."
	}
}

// StageError is returned by collaborators to tag a failure with an error code.
type StageError struct {
	Code  ErrorCode
	Phase Phase
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Code.Title())
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewFetchError reports that content could not be acquired.
func NewFetchError(err error) *StageError {
	return &StageError{Code: CodeFetch, Phase: PhaseFetch, Err: err}
}

// NewExtractionError reports that no readable text could be produced.
func NewExtractionError(err error) *StageError {
	return &StageError{Code: CodeExtraction, Phase: PhaseExtract, Err: err}
}

// NewAnalysisError reports an analysis collaborator failure.
func NewAnalysisError(err error) *StageError {
	return &StageError{Code: CodeAnalysis, Phase: PhaseAnalyze, Err: err}
}

// NewNetworkError reports a transport level failure during the given phase.
func NewNetworkError(phase Phase, err error) *StageError {
	return &StageError{Code: CodeNetwork, Phase: phase, Err: err}
}

// CodeOf returns the code carried by err, or "" when err is not a StageError.
func CodeOf(err error) ErrorCode {
	var se *StageError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
