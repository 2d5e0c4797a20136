package models

import (
	"strings"
	"time"
)

// NewsArticle is a candidate signal from the news search provider. The URL
// is the dedup key: once an article has been processed for a tenant it is
// never selected again, durable across restarts.
type NewsArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Content     string    `json:"content"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Score       float64   `json:"score,omitempty"` // provider relevance, 0..1
}

// MentionCount returns the number of case-insensitive occurrences of
// ticker in the article's title and content.
func (a *NewsArticle) MentionCount(ticker string) int {
	if ticker == "" {
		return 0
	}
	needle := strings.ToLower(ticker)
	text := strings.ToLower(a.Title + " " + a.Content)
	return strings.Count(text, needle)
}

// TotalMentions sums mention counts across all tickers.
func (a *NewsArticle) TotalMentions(tickers []string) int {
	total := 0
	for _, t := range tickers {
		total += a.MentionCount(t)
	}
	return total
}

// MostMentioned returns the ticker with the highest mention count, or ""
// when no ticker is mentioned at all. Ties resolve to the earlier ticker.
func (a *NewsArticle) MostMentioned(tickers []string) string {
	best, bestCount := "", 0
	for _, t := range tickers {
		if n := a.MentionCount(t); n > bestCount {
			best, bestCount = t, n
		}
	}
	return best
}
