package newswire

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL))
}

func TestSearch_BatchesTickersAndFiltersMissingURLs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s, want /search", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "AAPL OR MSFT" {
			t.Errorf("q = %q, want batched OR query", got)
		}
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q", got)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"title": "AAPL beats", "url": "https://news.dev/a", "content": "...", "score": 0.9,
					"published_date": "2026-08-28T12:00:00Z"},
				{"title": "No URL", "url": "", "content": "...", "score": 0.8},
			},
		})
	})

	articles, err := client.Search(context.Background(), []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("len = %d, want 1 (URL-less result dropped)", len(articles))
	}
	if articles[0].URL != "https://news.dev/a" || articles[0].Score != 0.9 {
		t.Errorf("article = %+v", articles[0])
	}
	if articles[0].PublishedAt.IsZero() {
		t.Error("published_date should be parsed")
	}
}

func TestSearch_DropsArticlesOlderThanMaxAge(t *testing.T) {
	fresh := time.Now().Add(-1 * time.Hour).Format(time.RFC3339)
	stale := time.Now().Add(-100 * time.Hour).Format(time.RFC3339)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"title": "fresh", "url": "https://news.dev/fresh", "published_date": fresh},
				{"title": "stale", "url": "https://news.dev/stale", "published_date": stale},
				{"title": "undated", "url": "https://news.dev/undated"},
			},
		})
	}))
	t.Cleanup(srv.Close)

	client := NewClient("test-key", WithBaseURL(srv.URL), WithMaxAge(72*time.Hour))
	articles, err := client.Search(context.Background(), []string{"AAPL"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("len = %d, want 2 (stale article dropped, undated kept)", len(articles))
	}
	for _, a := range articles {
		if a.URL == "https://news.dev/stale" {
			t.Error("article past the age cutoff should be dropped")
		}
	}
}

func TestSearch_NoTickersNoCall(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	articles, err := client.Search(context.Background(), nil)
	if err != nil || articles != nil {
		t.Errorf("Search(nil) = %v, %v", articles, err)
	}
	if called {
		t.Error("no request should be made without tickers")
	}
}

func TestSearch_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	if _, err := client.Search(context.Background(), []string{"AAPL"}); err == nil {
		t.Error("Search() should surface API errors")
	}
}

func TestExtract_BestEffort(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "extraction unavailable", http.StatusBadGateway)
	})

	article, err := client.Extract(context.Background(), "https://news.dev/a")
	if err != nil {
		t.Errorf("Extract() error = %v, want nil on failure", err)
	}
	if article != nil {
		t.Errorf("article = %+v, want nil on failure", article)
	}
}

func TestExtract_ReturnsFullText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "https://news.dev/a" {
			t.Errorf("url param = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"title": "AAPL beats", "url": "https://news.dev/a", "content": "full body text"},
			},
		})
	})

	article, err := client.Extract(context.Background(), "https://news.dev/a")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if article == nil || article.Content != "full body text" {
		t.Errorf("article = %+v", article)
	}
}
