package models

import "time"

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	URLs []string `json:"urls"`
}

// AnalyzeResponse is the body returned for a processed batch.
type AnalyzeResponse struct {
	Results     []AnalysisResult  `json:"results"`
	Errors      []ProcessingError `json:"errors"`
	ProcessedAt time.Time         `json:"processedAt"`
	Summary     *BatchSummary     `json:"summary,omitempty"`
}

// NewAnalyzeResponse converts a bundle into the wire shape.
func NewAnalyzeResponse(b *ResultBundle) AnalyzeResponse {
	resp := AnalyzeResponse{
		Results:     b.Results,
		Errors:      b.Errors,
		ProcessedAt: b.ProcessedAt,
		Summary:     b.Summary,
	}
	if resp.Results == nil {
		resp.Results = []AnalysisResult{}
	}
	if resp.Errors == nil {
		resp.Errors = []ProcessingError{}
	}
	return resp
}

// RewriteRequest is the body of POST /api/results/:id/rewrite.
type RewriteRequest struct {
	Level string `json:"level"`
}

// ErrorInfo provides structured error information.
type ErrorInfo struct {
	Type             string   `json:"error_type"`
	Message          string   `json:"message"`
	Invalid          []string `json:"invalid,omitempty"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
}

// ErrorResponse wraps ErrorInfo for JSON error bodies.
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}
