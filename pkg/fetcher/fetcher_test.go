package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/caching"
)

func testConfig() models.FetchConfig {
	return models.FetchConfig{
		Timeout:   2 * time.Second,
		UserAgent: "article-analyzer-test",
		MaxBytes:  1 << 20,
	}
}

func TestFetchContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "article-analyzer-test" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title> Solar Power </title></head><body><p>Text</p></body></html>`)
	})
	mux.HandleFunc("/og", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><meta property="og:title" content="From OG"></head><body>x</body></html>`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4")
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tests := []struct {
		name      string
		path      string
		wantTitle string
		wantCode  models.ErrorCode
	}{
		{name: "title tag", path: "/ok", wantTitle: "Solar Power"},
		{name: "og title fallback", path: "/og", wantTitle: "From OG"},
		{name: "not found", path: "/missing", wantCode: models.CodeFetch},
		{name: "unsupported content type", path: "/pdf", wantCode: models.CodeFetch},
		{name: "empty body", path: "/empty", wantCode: models.CodeFetch},
	}

	f := NewFetcher(testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := f.FetchContent(context.Background(), server.URL+tt.path)
			if tt.wantCode != "" {
				if got := models.CodeOf(err); got != tt.wantCode {
					t.Fatalf("FetchContent() code = %q (err %v), want %q", got, err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("FetchContent() error = %v", err)
			}
			if raw.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", raw.Title, tt.wantTitle)
			}
			if raw.StatusCode != http.StatusOK {
				t.Errorf("StatusCode = %d", raw.StatusCode)
			}
		})
	}
}

func TestFetchContentTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	f := NewFetcher(cfg)

	_, err := f.FetchContent(context.Background(), server.URL)
	if got := models.CodeOf(err); got != models.CodeNetwork {
		t.Errorf("FetchContent() code = %q (err %v), want %q", got, err, models.CodeNetwork)
	}
}

func TestFetchContentUsesCache(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Cached</title></head><body>body</body></html>`)
	}))
	defer server.Close()

	cache, err := caching.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	f := NewFetcher(testConfig(), WithCache(cache))

	first, err := f.FetchContent(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := f.FetchContent(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if hits != 1 {
		t.Errorf("server hits = %d, want 1", hits)
	}
	if first.FromCache || !second.FromCache {
		t.Errorf("FromCache = %v, %v; want false, true", first.FromCache, second.FromCache)
	}
	if second.Title != "Cached" {
		t.Errorf("cached Title = %q", second.Title)
	}
}

func TestFetchContentCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	f := NewFetcher(cfg)

	// drain the single burst token
	f.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.FetchContent(ctx, "http://127.0.0.1:1/")
	if got := models.CodeOf(err); got != models.CodeNetwork {
		t.Errorf("FetchContent() code = %q, want %q", got, models.CodeNetwork)
	}
}
