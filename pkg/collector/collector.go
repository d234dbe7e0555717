// Package collector turns raw multi-line submissions into candidate URL lists.
package collector

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrEmptyInput is returned when a submission contains no URLs.
var ErrEmptyInput = errors.New("no URLs submitted")

var (
	lineBreaks          = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)
	urlPattern          = regexp.MustCompile(`^https?://[a-zA-Z0-9][-a-zA-Z0-9.]*[a-zA-Z0-9](:[0-9]+)?(/[^\s]*)?([?#][^\s]*)?$`)
)

// Normalize splits raw text on line breaks, trims every line and drops the blank ones.
// Order is preserved and duplicates are kept.
func Normalize(raw string) []string {
	lines := strings.Split(lineBreaks.Replace(raw), "\n")
	urls := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}

// Collect normalizes raw text and fails with ErrEmptyInput when nothing is left.
func Collect(raw string) ([]string, error) {
	urls := Normalize(raw)
	if len(urls) == 0 {
		return nil, ErrEmptyInput
	}
	return urls, nil
}

// CollectList applies the same rules to an already split list.
func CollectList(items []string) ([]string, error) {
	return Collect(strings.Join(items, "\n"))
}

// SanitizeURL performs basic cleanup on URLs to handle common copy-paste issues:
// markdown link syntax, wrapping brackets or quotes, and trailing punctuation.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	// [text](url) -> url
	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	trailingChars := []string{",", ".", ")", "}", "]", "\"", "'", ">", ";"}
	for _, char := range trailingChars {
		cleaned = strings.TrimSuffix(cleaned, char)
	}

	leadingChars := []string{"(", "[", "<", "\"", "'"}
	for _, char := range leadingChars {
		cleaned = strings.TrimPrefix(cleaned, char)
	}

	return strings.TrimSpace(cleaned)
}

// Validate sanitizes every URL and splits the list into valid (sanitized) and invalid
// (as submitted) entries. Order is preserved in both.
func Validate(urls []string) ([]string, []string) {
	valid := make([]string, 0, len(urls))
	var invalid []string

	for _, rawURL := range urls {
		cleaned := SanitizeURL(rawURL)
		if !isValidURL(cleaned) {
			invalid = append(invalid, rawURL)
			continue
		}
		valid = append(valid, cleaned)
	}

	return valid, invalid
}

func isValidURL(s string) bool {
	if s == "" || strings.Contains(s, " ") {
		return false
	}
	if !urlPattern.MatchString(s) {
		return false
	}

	parsed, err := url.Parse(s)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if parsed.Host == "" {
		return false
	}
	// https://example.com{} and similar paste accidents
	return !strings.ContainsAny(parsed.Host, "{}[]<>\"'")
}
