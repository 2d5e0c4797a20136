package models

import "math"

// Sentiment is the directional read of an analyzed article
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// AnalysisAction is the action suggested by the reasoning service
type AnalysisAction string

const (
	AnalysisActionBuy  AnalysisAction = "buy"
	AnalysisActionSell AnalysisAction = "sell"
	AnalysisActionHold AnalysisAction = "hold"
)

// Analysis is the reasoning service's structured impact assessment of one
// (ticker, article) pair. Derived data: persisted only for audit.
type Analysis struct {
	Ticker      string         `json:"ticker"`
	ArticleURL  string         `json:"article_url"`
	ImpactScore float64        `json:"impact_score"` // 1..10
	Sentiment   Sentiment      `json:"sentiment"`
	Action      AnalysisAction `json:"action"`
	Confidence  float64        `json:"confidence"` // 0..1
	AmountUSD   float64        `json:"amount_usd"`
	Reasoning   string         `json:"reasoning"`
}

// Clamp forces ImpactScore, Confidence, and AmountUSD into their valid
// ranges. Model output is untrusted.
func (a *Analysis) Clamp() {
	a.ImpactScore = math.Min(10, math.Max(1, a.ImpactScore))
	a.Confidence = math.Min(1, math.Max(0, a.Confidence))
	if a.AmountUSD < 0 {
		a.AmountUSD = 0
	}
}

// Decision is the concrete trade derived from an Analysis and a reference
// price: Shares = floor(AmountUSD / Price). Zero shares is permitted and
// fails downstream gates naturally.
type Decision struct {
	Action      TradeAction `json:"action"`
	Ticker      string      `json:"ticker"`
	Shares      float64     `json:"shares"`
	AmountUSD   float64     `json:"amount_usd"`
	Price       float64     `json:"price"`
	PriceSource string      `json:"price_source"` // "quote" or "fallback"
	Reasoning   string      `json:"reasoning"`
}

// NewDecision derives a Decision from an analysis and a reference price.
func NewDecision(a *Analysis, price float64, priceSource string) *Decision {
	action := TradeActionBuy
	if a.Action == AnalysisActionSell {
		action = TradeActionSell
	}
	shares := 0.0
	if price > 0 {
		shares = math.Floor(a.AmountUSD / price)
	}
	return &Decision{
		Action:      action,
		Ticker:      a.Ticker,
		Shares:      shares,
		AmountUSD:   a.AmountUSD,
		Price:       price,
		PriceSource: priceSource,
		Reasoning:   a.Reasoning,
	}
}
