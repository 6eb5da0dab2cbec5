package xsearch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eforeli/XWebNews/engine/domain"
)

const sampleResponse = `{
  "data": [
    {
      "id": "1001",
      "text": "DeFi yields are back",
      "author_id": "u1",
      "created_at": "2025-03-10T08:30:00Z",
      "public_metrics": {"retweet_count": 5, "reply_count": 4, "like_count": 10, "quote_count": 1}
    },
    {
      "id": "1002",
      "text": "another post",
      "author_id": "u-missing",
      "created_at": "2025-03-10T09:00:00Z",
      "public_metrics": {"retweet_count": 0, "reply_count": 0, "like_count": 2, "quote_count": 0}
    }
  ],
  "includes": {"users": [{"id": "u1", "username": "alice", "verified": true}]},
  "meta": {"result_count": 2}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BearerToken: "token", BaseURL: srv.URL}, slog.Default())
}

func TestSearchRecent(t *testing.T) {
	var gotQuery, gotMax, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tweets/search/recent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("query")
		gotMax = r.URL.Query().Get("max_results")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	})

	items, err := c.SearchRecent(context.Background(), BuildQuery("DeFi"), 10)
	if err != nil {
		t.Fatalf("SearchRecent: %v", err)
	}

	if gotQuery != "DeFi -is:retweet lang:en" {
		t.Fatalf("query = %q", gotQuery)
	}
	if gotMax != "10" {
		t.Fatalf("max_results = %q", gotMax)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("auth header = %q", gotAuth)
	}

	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	first := items[0]
	if first.ExternalID != "1001" || first.AuthorUsername != "alice" || !first.AuthorVerified {
		t.Fatalf("first item = %+v", first)
	}
	if first.Metrics != (domain.Metrics{Likes: 10, Reshares: 5, Replies: 4, Quotes: 1}) {
		t.Fatalf("metrics = %+v", first.Metrics)
	}
	if first.SourceURL != "https://twitter.com/alice/status/1001" {
		t.Fatalf("source url = %s", first.SourceURL)
	}
	// Author missing from the includes block falls back to unknown.
	if items[1].AuthorUsername != "unknown" {
		t.Fatalf("missing author username = %q", items[1].AuthorUsername)
	}
}

func TestSearchRecentEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"meta": {"result_count": 0}}`))
	})

	items, err := c.SearchRecent(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("zero results must not be an error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("items = %d, want 0", len(items))
	}
}

func TestSearchRecentRateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.SearchRecent(context.Background(), "q", 10)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestSearchRecentAuthRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})
		_, err := c.SearchRecent(context.Background(), "q", 10)
		if !errors.Is(err, domain.ErrAuthRejected) {
			t.Fatalf("status %d: err = %v, want ErrAuthRejected", status, err)
		}
	}
}

func TestSearchRecentServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broke", http.StatusInternalServerError)
	})

	_, err := c.SearchRecent(context.Background(), "q", 10)
	if err == nil {
		t.Fatal("want error on 500")
	}
	if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrAuthRejected) {
		t.Fatalf("500 must stay a terminal generic error, got %v", err)
	}
}

func TestSearchRecentClampsLimit(t *testing.T) {
	var gotMax string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMax = r.URL.Query().Get("max_results")
		w.Write([]byte(`{"meta": {"result_count": 0}}`))
	})

	if _, err := c.SearchRecent(context.Background(), "q", 5); err != nil {
		t.Fatal(err)
	}
	if gotMax != "10" {
		t.Fatalf("limit below API minimum should clamp to 10, got %s", gotMax)
	}

	if _, err := c.SearchRecent(context.Background(), "q", 500); err != nil {
		t.Fatal(err)
	}
	if gotMax != "100" {
		t.Fatalf("limit above API maximum should clamp to 100, got %s", gotMax)
	}
}

func TestBuildHybridQuery(t *testing.T) {
	got := BuildHybridQuery([]string{"DeFi", "NFT", "Ethereum"})
	want := "DeFi OR NFT OR Ethereum -is:retweet lang:en"
	if got != want {
		t.Fatalf("BuildHybridQuery = %q, want %q", got, want)
	}
}
