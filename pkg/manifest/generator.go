package manifest

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/analytics"
	"github.com/dtnitsch/article-analyzer/pkg/mapreduce"
	"github.com/dtnitsch/article-analyzer/pkg/storage"
)

// AggregateKeywordCount is how many batch-level keywords are kept.
const AggregateKeywordCount = 25

// Summarize computes the batch statistics for a bundle.
func Summarize(b *models.ResultBundle) models.BatchSummary {
	s := models.BatchSummary{
		TotalURLs:  len(b.Results) + len(b.Errors),
		Successful: len(b.Results),
		Failed:     len(b.Errors),
	}

	readTime := 0
	for _, r := range b.Results {
		s.TotalWords += r.Metadata.WordCount
		readTime += r.Metadata.ReadTimeMinutes
	}
	if len(b.Results) > 0 {
		avg := float64(readTime) / float64(len(b.Results))
		s.AverageReadTime = math.Round(avg*10) / 10
	}

	s.AggregateKeywords = mapreduce.TopKeywords(aggregateCounts(b.Results), AggregateKeywordCount)

	if len(b.Errors) > 0 {
		s.ErrorsByCode = make(map[models.ErrorCode]int)
		for _, e := range b.Errors {
			s.ErrorsByCode[e.Code]++
		}
	}
	return s
}

// aggregateCounts maps every result's title, summary and key terms to word counts and
// reduces them into one table.
func aggregateCounts(results []models.AnalysisResult) map[string]int {
	a := &analytics.Analytics{}
	docs := make([]string, 0, len(results))
	for _, r := range results {
		var sb strings.Builder
		sb.WriteString(r.Title)
		sb.WriteString("\n")
		sb.WriteString(r.BaseSummary())
		for _, kt := range r.KeyTerms {
			sb.WriteString("\n")
			sb.WriteString(kt.Term)
		}
		docs = append(docs, sb.String())
	}
	return mapreduce.Reduce(mapreduce.MapAll(docs, a))
}

// Build creates the per-URL manifest for a bundle, in submission order of each list:
// results first, then errors.
func Build(b *models.ResultBundle) SummaryManifest {
	summary := Summarize(b)
	m := SummaryManifest{
		GeneratedAt:       b.ProcessedAt.Format(time.RFC3339),
		TotalURLs:         summary.TotalURLs,
		Successful:        summary.Successful,
		Failed:            summary.Failed,
		TotalWords:        summary.TotalWords,
		AverageReadTime:   summary.AverageReadTime,
		AggregateKeywords: summary.AggregateKeywords,
		Results:           make([]URLSummary, 0, summary.TotalURLs),
	}

	for _, r := range b.Results {
		m.Results = append(m.Results, URLSummary{
			ID:          r.ID,
			URL:         r.URL,
			Status:      string(models.TaskCompleted),
			Title:       r.Title,
			WordCount:   r.Metadata.WordCount,
			ReadTime:    r.Metadata.ReadTimeMinutes,
			Category:    r.Metadata.Category,
			TopKeywords: r.Metadata.TopKeywords,
		})
	}
	for _, e := range b.Errors {
		m.Results = append(m.Results, URLSummary{
			ID:           e.ID,
			URL:          e.URL,
			Status:       string(models.TaskError),
			ErrorCode:    string(e.Code),
			ErrorMessage: e.Message,
		})
	}
	return m
}

// WriteSummary writes the manifest for a bundle as JSON to path.
func WriteSummary(b *models.ResultBundle, path string, s *storage.Storage) error {
	manifestData, err := json.MarshalIndent(Build(b), "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling manifest: %w", err)
	}

	if err := s.SaveFile(path, manifestData); err != nil {
		return fmt.Errorf("error saving manifest: %w", err)
	}
	return nil
}
