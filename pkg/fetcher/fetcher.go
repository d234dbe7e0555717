package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/caching"
	"golang.org/x/time/rate"
)

// Fetcher acquires raw page content over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	limiter   *rate.Limiter
	cache     *caching.Cache
	logger    *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithCache serves repeated URLs from a file cache.
func WithCache(c *caching.Cache) Option {
	return func(f *Fetcher) { f.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher builds a Fetcher from config. A RateLimit of zero disables throttling.
func NewFetcher(cfg models.FetchConfig, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if cfg.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchContent downloads url and returns its HTML and title. Non-2xx responses and
// unusable bodies fail with FETCH-001, timeouts and cancellation with NET-005.
func (f *Fetcher) FetchContent(ctx context.Context, url string) (*models.RawContent, error) {
	if raw, ok := f.fromCache(url); ok {
		f.logger.Debug("Cache hit", "url", url)
		return raw, nil
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, models.NewNetworkError(models.PhaseFetch, fmt.Errorf("rate limiter: %w", err))
		}
	}

	start := time.Now()
	body, resp, err := f.GetHtmlBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("Fetched", "url", url, "status", resp.StatusCode, "bytes", len(body), "duration_ms", time.Since(start).Milliseconds())

	raw := &models.RawContent{
		URL:         url,
		FinalURL:    resp.Request.URL.String(),
		HTML:        string(body),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, models.NewFetchError(fmt.Errorf("failed to parse HTML: %w", err))
	}
	raw.Title = PageTitle(doc)

	f.toCache(url, raw)
	return raw, nil
}

// GetHtmlBytes performs the GET and returns the body of a successful HTML response.
func (f *Fetcher) GetHtmlBytes(ctx context.Context, url string) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, models.NewFetchError(fmt.Errorf("failed to build request: %w", err))
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, models.NewFetchError(fmt.Errorf("failed to fetch HTML, status code: %d", resp.StatusCode))
	}

	if !isHTML(resp.Header.Get("Content-Type")) {
		return nil, nil, models.NewFetchError(fmt.Errorf("unsupported content type %q", resp.Header.Get("Content-Type")))
	}

	var reader io.Reader = resp.Body
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes)
	}
	bodyBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, classifyTransportError(fmt.Errorf("failed to read response body: %w", err))
	}
	if len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil, nil, models.NewFetchError(errors.New("empty response body"))
	}
	return bodyBytes, resp, nil
}

// PageTitle returns the document title, falling back to og:title.
func PageTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		return strings.TrimSpace(og)
	}
	return ""
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewNetworkError(models.PhaseFetch, err)
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return models.NewNetworkError(models.PhaseFetch, err)
	}
	return models.NewFetchError(fmt.Errorf("failed to make HTTP request: %w", err))
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/plain":
		return true
	}
	return false
}

func (f *Fetcher) fromCache(url string) (*models.RawContent, bool) {
	if f.cache == nil {
		return nil, false
	}
	data, ok := f.cache.Get(url)
	if !ok {
		return nil, false
	}
	var raw models.RawContent
	if err := json.Unmarshal(data, &raw); err != nil {
		f.logger.Warn("Discarding unreadable cache entry", "url", url, "error", err)
		_ = f.cache.Delete(url)
		return nil, false
	}
	raw.FromCache = true
	return &raw, true
}

func (f *Fetcher) toCache(url string, raw *models.RawContent) {
	if f.cache == nil {
		return
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return
	}
	if err := f.cache.Set(url, data); err != nil {
		f.logger.Warn("Failed to cache page", "url", url, "error", err)
	}
}
