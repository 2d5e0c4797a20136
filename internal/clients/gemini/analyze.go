package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bobmcallan/argus/internal/models"
)

// AnalyzeImpact assesses the impact of an article on a ticker given the
// tenant's current holdings.
func (c *Client) AnalyzeImpact(ctx context.Context, article *models.NewsArticle, ticker string, holdings []models.Holding) (*models.Analysis, error) {
	prompt := buildImpactPrompt(article, ticker, holdings)

	response, err := c.generateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("impact analysis for %s failed: %w", ticker, err)
	}

	analysis, err := parseImpactResponse(response)
	if err != nil {
		return nil, fmt.Errorf("impact analysis for %s returned unusable output: %w", ticker, err)
	}

	analysis.Ticker = ticker
	analysis.ArticleURL = article.URL
	analysis.Clamp()

	c.logger.Debug().
		Str("ticker", ticker).
		Float64("impact", analysis.ImpactScore).
		Float64("confidence", analysis.Confidence).
		Str("action", string(analysis.Action)).
		Msg("Impact analysis complete")

	return analysis, nil
}

// ExplainTrade produces a human-readable narrative for a completed decision.
func (c *Client) ExplainTrade(ctx context.Context, article *models.NewsArticle, analysis *models.Analysis, decision *models.Decision) (string, error) {
	prompt := buildExplainPrompt(article, analysis, decision)

	narrative, err := c.generateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("trade explanation failed: %w", err)
	}

	return strings.TrimSpace(narrative), nil
}

// buildImpactPrompt creates the prompt for impact analysis.
func buildImpactPrompt(article *models.NewsArticle, ticker string, holdings []models.Holding) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are a financial analyst. Assess the impact of the following news on %s.\n\n", ticker))

	if len(holdings) > 0 {
		sb.WriteString("Current portfolio holdings:\n")
		for _, h := range holdings {
			sb.WriteString(fmt.Sprintf("- %s: %.0f shares at avg $%.2f\n", h.Ticker, h.Shares, h.AvgPrice))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Article: %s\n", article.Title))
	sb.WriteString(article.Content)

	sb.WriteString(`

Return ONLY valid JSON:
{
  "impact_score": 1-10,
  "sentiment": "bullish|bearish|neutral",
  "action": "buy|sell|hold",
  "confidence": 0.0-1.0,
  "amount_usd": suggested notional amount in USD (0 for hold),
  "reasoning": "2-3 sentence justification"
}

Rules:
- impact_score reflects how materially this news could move the stock price
- Recommend buy/sell only for material, price-moving news; otherwise hold
- amount_usd must be a sensible position size, not the whole portfolio
- Return ONLY the JSON object, no markdown code fences, no explanation`)

	return sb.String()
}

// buildExplainPrompt creates the prompt for a trade narrative.
func buildExplainPrompt(article *models.NewsArticle, analysis *models.Analysis, decision *models.Decision) string {
	var sb strings.Builder

	sb.WriteString("Write a short plain-English explanation (3-4 sentences) of the following automated trade for the account owner.\n\n")
	sb.WriteString(fmt.Sprintf("Trigger article: %s (%s)\n", article.Title, article.URL))
	sb.WriteString(fmt.Sprintf("Assessment: impact %.0f/10, %s sentiment, confidence %.0f%%\n",
		analysis.ImpactScore, analysis.Sentiment, analysis.Confidence*100))
	sb.WriteString(fmt.Sprintf("Analyst reasoning: %s\n", analysis.Reasoning))
	sb.WriteString(fmt.Sprintf("Executed: %s %.0f shares of %s at $%.2f ($%.2f total)\n",
		decision.Action, decision.Shares, decision.Ticker, decision.Price, decision.AmountUSD))
	sb.WriteString("\nDo not use markdown. Do not give financial advice for future trades.")

	return sb.String()
}

// impactResponse is the expected JSON shape from Gemini.
type impactResponse struct {
	ImpactScore float64 `json:"impact_score"`
	Sentiment   string  `json:"sentiment"`
	Action      string  `json:"action"`
	Confidence  float64 `json:"confidence"`
	AmountUSD   float64 `json:"amount_usd"`
	Reasoning   string  `json:"reasoning"`
}

// parseImpactResponse parses Gemini's JSON response into an Analysis.
func parseImpactResponse(response string) (*models.Analysis, error) {
	// Strip markdown code fences if present
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var data impactResponse
	if err := json.Unmarshal([]byte(response), &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if data.Reasoning == "" {
		return nil, fmt.Errorf("missing reasoning")
	}

	sentiment := models.SentimentNeutral
	switch strings.ToLower(data.Sentiment) {
	case "bullish":
		sentiment = models.SentimentBullish
	case "bearish":
		sentiment = models.SentimentBearish
	}

	action := models.AnalysisActionHold
	switch strings.ToLower(data.Action) {
	case "buy":
		action = models.AnalysisActionBuy
	case "sell":
		action = models.AnalysisActionSell
	}

	return &models.Analysis{
		ImpactScore: data.ImpactScore,
		Sentiment:   sentiment,
		Action:      action,
		Confidence:  data.Confidence,
		AmountUSD:   data.AmountUSD,
		Reasoning:   data.Reasoning,
	}, nil
}
