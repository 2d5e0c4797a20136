// Package models defines data structures for Argus
package models

import (
	"strings"
	"time"
)

// RiskTolerance classifies how aggressively a tenant's agent may trade
type RiskTolerance string

const (
	RiskConservative RiskTolerance = "conservative"
	RiskModerate     RiskTolerance = "moderate"
	RiskAggressive   RiskTolerance = "aggressive"
)

// ParseRiskTolerance normalizes a tolerance string, defaulting to moderate.
func ParseRiskTolerance(s string) RiskTolerance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conservative":
		return RiskConservative
	case "aggressive":
		return RiskAggressive
	default:
		return RiskModerate
	}
}

// Holding represents a position in a tenant's portfolio. A holding is
// mutated only by trade execution and removed when shares reach zero.
type Holding struct {
	Ticker   string  `json:"ticker"`
	Shares   float64 `json:"shares"`
	AvgPrice float64 `json:"avg_price"`
}

// MarketValue returns the holding's value at its average cost basis.
func (h Holding) MarketValue() float64 {
	return h.Shares * h.AvgPrice
}

// Portfolio represents one tenant's cash and holdings. CashBalance never
// goes negative; a buy that would violate this is rejected before any
// mutation.
type Portfolio struct {
	Tenant        string        `json:"tenant"`
	CashBalance   float64       `json:"cash_balance"`
	RiskTolerance RiskTolerance `json:"risk_tolerance"`
	Holdings      []Holding     `json:"holdings"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Holding returns the holding for ticker, or nil if not held.
func (p *Portfolio) Holding(ticker string) *Holding {
	for i := range p.Holdings {
		if strings.EqualFold(p.Holdings[i].Ticker, ticker) {
			return &p.Holdings[i]
		}
	}
	return nil
}

// Tickers returns the tickers of all current holdings.
func (p *Portfolio) Tickers() []string {
	tickers := make([]string, len(p.Holdings))
	for i, h := range p.Holdings {
		tickers[i] = h.Ticker
	}
	return tickers
}

// Clone returns a deep copy, safe to mutate without affecting p.
func (p *Portfolio) Clone() *Portfolio {
	clone := *p
	clone.Holdings = make([]Holding, len(p.Holdings))
	copy(clone.Holdings, p.Holdings)
	return &clone
}

// HoldingsValue returns the total value of all holdings at cost basis.
func (p *Portfolio) HoldingsValue() float64 {
	total := 0.0
	for _, h := range p.Holdings {
		total += h.MarketValue()
	}
	return total
}

// TotalValue returns cash plus holdings value.
func (p *Portfolio) TotalValue() float64 {
	return p.CashBalance + p.HoldingsValue()
}

// TradeAction is the direction of an executed or proposed trade
type TradeAction string

const (
	TradeActionBuy  TradeAction = "buy"
	TradeActionSell TradeAction = "sell"
)

// Trade is an immutable record of a settled trade. Trades are appended on
// every successful execution and never mutated or deleted.
type Trade struct {
	ID             string      `json:"id"`
	Tenant         string      `json:"tenant"`
	Ticker         string      `json:"ticker"`
	Action         TradeAction `json:"action"`
	Shares         float64     `json:"shares"`
	Price          float64     `json:"price"`
	AmountUSD      float64     `json:"amount_usd"`
	SettlementTx   string      `json:"settlement_tx,omitempty"`
	SettlementLink string      `json:"settlement_link,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}
