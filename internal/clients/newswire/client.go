// Package newswire provides a client for the news search API
package newswire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
)

const (
	DefaultBaseURL   = "https://api.newswire.dev/v1"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the NewsClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	maxAge     time.Duration
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxAge drops search results published longer ago than maxAge.
// Zero disables the filter; articles without a parseable timestamp
// are kept.
func WithMaxAge(maxAge time.Duration) ClientOption {
	return func(c *Client) {
		c.maxAge = maxAge
	}
}

// NewClient creates a new newswire client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("newswire API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Newswire API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

// searchResult is the wire shape of one search hit
type searchResult struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Content     string  `json:"content"`
	Source      string  `json:"source"`
	PublishedAt string  `json:"published_date"`
	Score       float64 `json:"score"`
}

func (r *searchResult) toArticle() *models.NewsArticle {
	article := &models.NewsArticle{
		Title:   r.Title,
		URL:     r.URL,
		Content: r.Content,
		Source:  r.Source,
		Score:   r.Score,
	}
	if ts, err := time.Parse(time.RFC3339, r.PublishedAt); err == nil {
		article.PublishedAt = ts
	}
	return article
}

// Search returns candidate articles for the given tickers in one batched
// call. Articles without a URL are dropped since the URL is the dedup key.
func (c *Client) Search(ctx context.Context, tickers []string) ([]*models.NewsArticle, error) {
	if len(tickers) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", strings.Join(tickers, " OR "))
	params.Set("topic", "finance")

	var response struct {
		Results []searchResult `json:"results"`
	}
	if err := c.get(ctx, "/search", params, &response); err != nil {
		return nil, fmt.Errorf("news search failed: %w", err)
	}

	articles := make([]*models.NewsArticle, 0, len(response.Results))
	for i := range response.Results {
		if response.Results[i].URL == "" {
			continue
		}
		article := response.Results[i].toArticle()
		if c.maxAge > 0 && !article.PublishedAt.IsZero() && time.Since(article.PublishedAt) > c.maxAge {
			continue
		}
		articles = append(articles, article)
	}

	c.logger.Debug().Int("tickers", len(tickers)).Int("articles", len(articles)).Msg("News search complete")

	return articles, nil
}

// Extract fetches the full text of an article. Best-effort: extraction
// failures return nil, nil so callers keep the short text they have.
func (c *Client) Extract(ctx context.Context, articleURL string) (*models.NewsArticle, error) {
	params := url.Values{}
	params.Set("url", articleURL)

	var response struct {
		Results []searchResult `json:"results"`
	}
	if err := c.get(ctx, "/extract", params, &response); err != nil {
		c.logger.Debug().Str("url", articleURL).Err(err).Msg("Article extraction failed")
		return nil, nil
	}

	if len(response.Results) == 0 || response.Results[0].Content == "" {
		return nil, nil
	}

	return response.Results[0].toArticle(), nil
}

// Ensure Client implements NewsClient
var _ interfaces.NewsClient = (*Client)(nil)
