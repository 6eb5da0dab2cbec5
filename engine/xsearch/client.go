// Package xsearch fetches recent posts from the X API v2 recent search
// endpoint and maps transport-level failures onto the harvester's error
// taxonomy.
package xsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/eforeli/XWebNews/engine/domain"
)

const defaultBaseURL = "https://api.twitter.com/2"

// The API accepts 10..100 results per request.
const (
	minResults = 10
	maxResults = 100
)

// Config wires a Client.
type Config struct {
	// BearerToken authenticates against the API.
	BearerToken string
	// BaseURL overrides the API endpoint; tests point it at a local server.
	BaseURL string
	// Timeout bounds each HTTP call. Zero means 30s.
	Timeout time.Duration
}

// Client performs recent-search calls. It holds no call state; pacing and
// retry live with the caller, because the client itself must never mask a
// rate-limit signal.
type Client struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// New creates a Client with an instrumented HTTP transport.
func New(cfg Config, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
}

// BuildQuery builds the single-category query: one keyword plus the fixed
// filters (no reshares, English only).
func BuildQuery(keyword string) string {
	return keyword + " -is:retweet lang:en"
}

// BuildHybridQuery ORs one keyword per category into a single query so one
// call can cover the whole batch.
func BuildHybridQuery(keywords []string) string {
	return strings.Join(keywords, " OR ") + " -is:retweet lang:en"
}

// SearchRecent runs one recent-search call and returns the raw harvested
// items, category unset. Zero items is a valid outcome, not an error.
// HTTP 429 maps to domain.ErrRateLimited and 401/403 to domain.ErrAuthRejected.
func (c *Client) SearchRecent(ctx context.Context, query string, limit int) ([]domain.HarvestItem, error) {
	if limit < minResults {
		limit = minResults
	}
	if limit > maxResults {
		limit = maxResults
	}

	params := url.Values{
		"query":        {query},
		"max_results":  {strconv.Itoa(limit)},
		"tweet.fields": {"created_at,author_id,public_metrics"},
		"user.fields":  {"username,verified"},
		"expansions":   {"author_id"},
	}
	endpoint := c.cfg.BaseURL + "/tweets/search/recent?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("search: http 429: %w", domain.ErrRateLimited)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("search: http %d: %w", resp.StatusCode, domain.ErrAuthRejected)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return c.toItems(sr), nil
}

func (c *Client) toItems(sr searchResponse) []domain.HarvestItem {
	users := make(map[string]searchUser, len(sr.Includes.Users))
	for _, u := range sr.Includes.Users {
		users[u.ID] = u
	}

	items := make([]domain.HarvestItem, 0, len(sr.Data))
	for _, tw := range sr.Data {
		author, ok := users[tw.AuthorID]
		if !ok {
			author = searchUser{Username: "unknown"}
		}

		created, err := time.Parse(time.RFC3339, tw.CreatedAt)
		if err != nil && tw.CreatedAt != "" {
			c.log.Warn("unparseable created_at", "post", tw.ID, "value", tw.CreatedAt)
		}

		items = append(items, domain.HarvestItem{
			ExternalID:     tw.ID,
			Text:           tw.Text,
			CreatedAt:      created.UTC(),
			AuthorID:       tw.AuthorID,
			AuthorUsername: author.Username,
			AuthorVerified: author.Verified,
			Metrics: domain.Metrics{
				Likes:    tw.PublicMetrics.LikeCount,
				Reshares: tw.PublicMetrics.RetweetCount,
				Replies:  tw.PublicMetrics.ReplyCount,
				Quotes:   tw.PublicMetrics.QuoteCount,
			},
			SourceURL: domain.PostURL(author.Username, tw.ID),
		})
	}
	return items
}

// X API v2 response types.

type searchResponse struct {
	Data     []searchTweet `json:"data"`
	Includes struct {
		Users []searchUser `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
}

type searchTweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		RetweetCount int `json:"retweet_count"`
		ReplyCount   int `json:"reply_count"`
		LikeCount    int `json:"like_count"`
		QuoteCount   int `json:"quote_count"`
	} `json:"public_metrics"`
}

type searchUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Verified bool   `json:"verified"`
}
