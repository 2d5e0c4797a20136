package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/argus/internal/models"
)

func (s *Store) GetPortfolio(_ context.Context, tenant string) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	err := s.db.Get(tenant, &portfolio)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get portfolio for tenant '%s': %w", tenant, err)
	}
	return &portfolio, nil
}

func (s *Store) HasConfig(ctx context.Context, tenant string) (bool, error) {
	portfolio, err := s.GetPortfolio(ctx, tenant)
	if err != nil {
		return false, err
	}
	return portfolio != nil, nil
}

func (s *Store) InitPortfolio(_ context.Context, tenant string, cash float64, risk models.RiskTolerance, holdings []models.Holding) error {
	if cash < 0 {
		return fmt.Errorf("initial cash balance cannot be negative")
	}

	now := time.Now()
	portfolio := &models.Portfolio{
		Tenant:        tenant,
		CashBalance:   cash,
		RiskTolerance: risk,
		Holdings:      holdings,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Preserve CreatedAt on re-configuration
	var existing models.Portfolio
	if err := s.db.Get(tenant, &existing); err == nil {
		portfolio.CreatedAt = existing.CreatedAt
	}

	if err := s.db.Upsert(tenant, portfolio); err != nil {
		return fmt.Errorf("failed to init portfolio for tenant '%s': %w", tenant, err)
	}
	s.logger.Debug().Str("tenant", tenant).Float64("cash", cash).Msg("Portfolio configured")
	return nil
}

func (s *Store) savePortfolio(portfolio *models.Portfolio) error {
	portfolio.UpdatedAt = time.Now()
	if err := s.db.Upsert(portfolio.Tenant, portfolio); err != nil {
		return fmt.Errorf("failed to save portfolio for tenant '%s': %w", portfolio.Tenant, err)
	}
	return nil
}

func (s *Store) UpdateHolding(ctx context.Context, tenant string, holding models.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	portfolio, err := s.GetPortfolio(ctx, tenant)
	if err != nil {
		return err
	}
	if portfolio == nil {
		return fmt.Errorf("no portfolio configured for tenant '%s'", tenant)
	}

	upsertHolding(portfolio, holding)
	return s.savePortfolio(portfolio)
}

func (s *Store) RemoveHolding(ctx context.Context, tenant, ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	portfolio, err := s.GetPortfolio(ctx, tenant)
	if err != nil {
		return err
	}
	if portfolio == nil {
		return fmt.Errorf("no portfolio configured for tenant '%s'", tenant)
	}

	removeHolding(portfolio, ticker)
	return s.savePortfolio(portfolio)
}

func (s *Store) UpdateCashBalance(ctx context.Context, tenant string, balance float64) error {
	if balance < 0 {
		return fmt.Errorf("cash balance cannot go negative (tenant '%s': %.2f)", tenant, balance)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	portfolio, err := s.GetPortfolio(ctx, tenant)
	if err != nil {
		return err
	}
	if portfolio == nil {
		return fmt.Errorf("no portfolio configured for tenant '%s'", tenant)
	}

	portfolio.CashBalance = balance
	return s.savePortfolio(portfolio)
}

// ApplyTrade applies a settled trade's mutations as one logical unit:
// the caller passes the already-adjusted portfolio, and the store writes
// it together with the trade append under the store lock.
func (s *Store) ApplyTrade(_ context.Context, tenant string, portfolio *models.Portfolio, trade *models.Trade) error {
	if portfolio.CashBalance < 0 {
		return fmt.Errorf("trade would drive cash balance negative (tenant '%s': %.2f)", tenant, portfolio.CashBalance)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Guard against double-application: the trade ID is the insert key.
	var existing models.Trade
	if err := s.db.Get(trade.ID, &existing); err == nil {
		s.logger.Warn().Str("tenant", tenant).Str("trade_id", trade.ID).Msg("Trade already applied, skipping")
		return nil
	}

	if err := s.savePortfolio(portfolio); err != nil {
		return err
	}

	if err := s.db.Insert(trade.ID, trade); err != nil {
		return fmt.Errorf("failed to append trade for tenant '%s': %w", tenant, err)
	}

	s.logger.Debug().
		Str("tenant", tenant).
		Str("ticker", trade.Ticker).
		Str("action", string(trade.Action)).
		Float64("amount_usd", trade.AmountUSD).
		Msg("Trade applied")

	return nil
}

// upsertHolding replaces or appends the holding for its ticker.
func upsertHolding(portfolio *models.Portfolio, holding models.Holding) {
	for i := range portfolio.Holdings {
		if strings.EqualFold(portfolio.Holdings[i].Ticker, holding.Ticker) {
			portfolio.Holdings[i] = holding
			return
		}
	}
	portfolio.Holdings = append(portfolio.Holdings, holding)
}

// removeHolding drops the holding for ticker, if present.
func removeHolding(portfolio *models.Portfolio, ticker string) {
	for i := range portfolio.Holdings {
		if strings.EqualFold(portfolio.Holdings[i].Ticker, ticker) {
			portfolio.Holdings = append(portfolio.Holdings[:i], portfolio.Holdings[i+1:]...)
			return
		}
	}
}
