package models

import (
	"fmt"
	"strings"
)

// Apply mutates the portfolio with a settled trade: cash is debited or
// credited by the trade amount, buys upsert the holding at weighted-average
// cost, sells reduce shares without touching the average price and remove
// the holding entirely at zero. Returns an error, with the portfolio
// unchanged, when the trade is not applicable.
func (p *Portfolio) Apply(trade *Trade) error {
	if trade.Shares <= 0 {
		return fmt.Errorf("trade shares must be positive, got %.0f", trade.Shares)
	}
	switch trade.Action {
	case TradeActionBuy:
		return p.applyBuy(trade)
	case TradeActionSell:
		return p.applySell(trade)
	default:
		return fmt.Errorf("unknown trade action %q", trade.Action)
	}
}

func (p *Portfolio) applyBuy(trade *Trade) error {
	if trade.AmountUSD > p.CashBalance {
		return fmt.Errorf("insufficient cash: need %.2f, have %.2f", trade.AmountUSD, p.CashBalance)
	}

	p.CashBalance -= trade.AmountUSD

	if h := p.Holding(trade.Ticker); h != nil {
		newShares := h.Shares + trade.Shares
		h.AvgPrice = (h.Shares*h.AvgPrice + trade.AmountUSD) / newShares
		h.Shares = newShares
		return nil
	}

	p.Holdings = append(p.Holdings, Holding{
		Ticker:   trade.Ticker,
		Shares:   trade.Shares,
		AvgPrice: trade.Price,
	})
	return nil
}

func (p *Portfolio) applySell(trade *Trade) error {
	h := p.Holding(trade.Ticker)
	if h == nil {
		return fmt.Errorf("no holding in %s to sell", trade.Ticker)
	}
	if trade.Shares > h.Shares {
		return fmt.Errorf("insufficient shares of %s: need %.0f, have %.0f", trade.Ticker, trade.Shares, h.Shares)
	}

	p.CashBalance += trade.AmountUSD
	h.Shares -= trade.Shares

	if h.Shares == 0 {
		for i := range p.Holdings {
			if strings.EqualFold(p.Holdings[i].Ticker, trade.Ticker) {
				p.Holdings = append(p.Holdings[:i], p.Holdings[i+1:]...)
				break
			}
		}
	}
	return nil
}
