package parser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/article-analyzer/models"
	"github.com/go-shiori/go-readability"
)

// MinWords is the shortest body accepted as readable text.
const MinWords = 20

// Parser turns fetched HTML into a readable Article.
type Parser struct {
	markdown *md.Converter
	minWords int
}

// NewParser returns a Parser that rejects bodies shorter than minWords.
// A non-positive minWords uses MinWords.
func NewParser(minWords int) *Parser {
	if minWords <= 0 {
		minWords = MinWords
	}
	return &Parser{
		markdown: md.NewConverter("", true, nil),
		minWords: minWords,
	}
}

// ExtractText uses go-readability to find the main article content and then walks the
// clean content with goquery to build semantic blocks and a plain text body.
func (p *Parser) ExtractText(ctx context.Context, raw *models.RawContent) (*models.Article, error) {
	if raw == nil || strings.TrimSpace(raw.HTML) == "" {
		return nil, models.NewExtractionError(errors.New("no content to extract"))
	}
	if err := ctx.Err(); err != nil {
		return nil, models.NewNetworkError(models.PhaseExtract, err)
	}

	pageURL := raw.FinalURL
	if pageURL == "" {
		pageURL = raw.URL
	}
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, models.NewExtractionError(fmt.Errorf("invalid page URL: %w", err))
	}

	readabilityParser := readability.NewParser()
	article, err := readabilityParser.Parse(strings.NewReader(raw.HTML), parsedURL)
	if err != nil {
		return nil, models.NewExtractionError(fmt.Errorf("readability failed: %w", err))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, models.NewExtractionError(fmt.Errorf("failed to parse readable HTML: %w", err))
	}

	blocks := extractBlocks(doc)
	body := bodyFromBlocks(blocks)
	if body == "" {
		body = normalizeText(article.TextContent)
	}
	if len(strings.Fields(body)) < p.minWords {
		return nil, models.NewExtractionError(fmt.Errorf("readable text too short (%d words)", len(strings.Fields(body))))
	}

	markdown, err := p.markdown.ConvertString(article.Content)
	if err != nil {
		markdown = ""
	}

	out := &models.Article{
		URL:         raw.URL,
		Title:       pickTitle(normalizeText(article.Title), raw.Title, parsedURL),
		Body:        body,
		Markdown:    strings.TrimSpace(markdown),
		Blocks:      blocks,
		Byline:      normalizeText(article.Byline),
		SiteName:    normalizeText(article.SiteName),
		Excerpt:     normalizeText(article.Excerpt),
		Language:    article.Language,
		PublishedAt: article.PublishedTime,
	}
	return out, nil
}

func extractBlocks(doc *goquery.Document) []models.ContentBlock {
	var blocks []models.ContentBlock
	doc.Find("h1,h2,h3,h4,p,li,pre,blockquote").Each(func(i int, s *goquery.Selection) {
		tag := goquery.NodeName(s)

		// list items and quotes wrapping paragraphs are covered by their children
		if (tag == "li" || tag == "blockquote") && s.Find("p").Length() > 0 {
			return
		}

		var text string
		if tag == "pre" {
			tag = "code"
			text = strings.TrimSpace(s.Text())
		} else {
			text = normalizeText(s.Text())
		}
		if text == "" {
			return
		}
		blocks = append(blocks, models.ContentBlock{Type: tag, Text: text})
	})
	return blocks
}

// bodyFromBlocks joins prose blocks with blank lines. Code is left out of the body.
func bodyFromBlocks(blocks []models.ContentBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Type == "code" {
			continue
		}
		text := b.Text
		if b.Type == "h1" || b.Type == "h2" || b.Type == "h3" || b.Type == "h4" {
			if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "?") && !strings.HasSuffix(text, "!") {
				text += "."
			}
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

func pickTitle(readable, fetched string, u *url.URL) string {
	if readable != "" {
		return readable
	}
	if t := normalizeText(fetched); t != "" {
		return t
	}
	return "Article from " + u.Hostname()
}

// normalizeText cleans up a string by collapsing runs of whitespace and newlines.
func normalizeText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
