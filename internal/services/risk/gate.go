// Package risk evaluates proposed trades against affordability,
// concentration, and frequency constraints. Evaluation is a pure function
// of its inputs: no I/O, no mutation.
package risk

import (
	"time"

	"github.com/bobmcallan/argus/internal/models"
)

// Default thresholds, overridable via Limits.
const (
	DefaultMaxPositionPct = 0.30 // max fraction of total value in one ticker
	DefaultMaxDailyTrades = 3    // trades allowed per trailing window
	DefaultTradeWindow    = 24 * time.Hour
)

// Limits holds the gate thresholds.
type Limits struct {
	MaxPositionPct float64
	MaxDailyTrades int
	TradeWindow    time.Duration
}

// DefaultLimits returns the standard thresholds.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionPct: DefaultMaxPositionPct,
		MaxDailyTrades: DefaultMaxDailyTrades,
		TradeWindow:    DefaultTradeWindow,
	}
}

// normalize fills zero-valued fields with defaults.
func (l Limits) normalize() Limits {
	if l.MaxPositionPct <= 0 {
		l.MaxPositionPct = DefaultMaxPositionPct
	}
	if l.MaxDailyTrades <= 0 {
		l.MaxDailyTrades = DefaultMaxDailyTrades
	}
	if l.TradeWindow <= 0 {
		l.TradeWindow = DefaultTradeWindow
	}
	return l
}

// Gate evaluates decisions against a set of limits.
type Gate struct {
	limits Limits
}

// NewGate creates a gate with the given limits; zero fields use defaults.
func NewGate(limits Limits) *Gate {
	return &Gate{limits: limits.normalize()}
}

// Evaluate checks a proposed decision against the portfolio and recent
// trade history. Sells need only the frequency check; affordability and
// concentration apply to buys and hold vacuously true for sells.
func (g *Gate) Evaluate(portfolio *models.Portfolio, decision *models.Decision, trailingTrades []*models.Trade, now time.Time) models.RiskCheck {
	check := models.RiskCheck{
		SufficientBalance: true,
		PositionLimit:     true,
		DailyTradeLimit:   g.checkFrequency(trailingTrades, now),
	}

	if decision.Action == models.TradeActionBuy {
		check.SufficientBalance = portfolio.CashBalance >= decision.AmountUSD
		check.PositionLimit = g.checkConcentration(portfolio, decision)
	}

	check.Passed = check.SufficientBalance && check.PositionLimit && check.DailyTradeLimit
	return check
}

// checkConcentration verifies the projected position stays at or under
// the cap. A cash-funded buy leaves total value unchanged, so the
// denominator is the current total; with zero total value the basis is
// cash plus the proposed amount.
func (g *Gate) checkConcentration(portfolio *models.Portfolio, decision *models.Decision) bool {
	existing := 0.0
	if h := portfolio.Holding(decision.Ticker); h != nil {
		existing = h.MarketValue()
	}

	denominator := portfolio.TotalValue()
	if denominator == 0 {
		denominator = portfolio.CashBalance + decision.AmountUSD
	}
	if denominator == 0 {
		return true // zero-notional decision concentrates nothing
	}

	return (existing+decision.AmountUSD)/denominator <= g.limits.MaxPositionPct
}

// checkFrequency enforces strictly fewer than MaxDailyTrades trades
// within the trailing window.
func (g *Gate) checkFrequency(trades []*models.Trade, now time.Time) bool {
	cutoff := now.Add(-g.limits.TradeWindow)
	recent := 0
	for _, t := range trades {
		if t.Timestamp.After(cutoff) {
			recent++
		}
	}
	return recent < g.limits.MaxDailyTrades
}
