package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dtnitsch/article-analyzer/models"
)

const systemPrompt = `You are an analyst who reads web articles and produces study material.
Respond with a single JSON object that matches the provided schema. Do not add commentary.
Summaries are factual and neutral. Key terms come from the article itself; each has a short
definition and an example of how the article uses it. Questions encourage discussion of the
article's claims.`

const analysisSchema = `{
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "keyTerms": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "term": {"type": "string"},
          "definition": {"type": "string"},
          "example": {"type": "string"}
        },
        "required": ["term"]
      }
    },
    "questions": {"type": "array", "items": {"type": "string"}},
    "sentiment": {"type": "string", "enum": ["positive", "neutral", "negative"]},
    "category": {"type": "string"},
    "complexity": {"type": "string", "enum": ["Beginner", "Intermediate", "Advanced", "Expert"]}
  },
  "required": ["summary", "keyTerms", "questions"]
}`

func buildUserPrompt(title, url, content string, keyTerms, questions int) string {
	return fmt.Sprintf(`Analyze the following article.

Title: %s
URL: %s

Return a summary of two or three sentences, %d key terms and %d discussion questions.
Choose the category from: Technology, Healthcare, Business, Environmental, Education, Science, General.

Article content:
%s`, title, url, keyTerms, questions, content)
}

// Response is the decoded model reply with key terms already normalized.
type Response struct {
	Summary    string
	KeyTerms   []models.KeyTerm
	Questions  []string
	Sentiment  string
	Category   string
	Complexity string
}

type rawResponse struct {
	Summary    string   `json:"summary"`
	KeyTerms   []any    `json:"keyTerms"`
	KeyTerms2  []any    `json:"key_terms"`
	Questions  []string `json:"questions"`
	Sentiment  string   `json:"sentiment"`
	Category   string   `json:"category"`
	Complexity string   `json:"complexity"`
}

// ParseResponse decodes a model reply. Markdown code fences and text around the JSON
// object are tolerated, and key terms may be bare strings or objects.
func ParseResponse(text string) (*Response, error) {
	payload := extractJSON(text)
	if payload == "" {
		return nil, errors.New("empty analysis response")
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	summary := strings.TrimSpace(raw.Summary)
	if summary == "" {
		return nil, errors.New("analysis response has no summary")
	}

	terms := raw.KeyTerms
	if len(terms) == 0 {
		terms = raw.KeyTerms2
	}

	questions := make([]string, 0, len(raw.Questions))
	for _, q := range raw.Questions {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}

	return &Response{
		Summary:    summary,
		KeyTerms:   models.NormalizeKeyTerms(terms),
		Questions:  questions,
		Sentiment:  strings.TrimSpace(raw.Sentiment),
		Category:   strings.TrimSpace(raw.Category),
		Complexity: strings.TrimSpace(raw.Complexity),
	}, nil
}

// extractJSON strips code fences and returns the outermost JSON object in text.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
