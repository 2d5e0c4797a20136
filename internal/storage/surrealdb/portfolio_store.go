package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/argus/internal/models"
)

func (s *Store) GetPortfolio(ctx context.Context, tenant string) (*models.Portfolio, error) {
	portfolio, err := surrealdb.Select[models.Portfolio](ctx, s.db, surrealmodels.NewRecordID("portfolio", tenant))
	if err != nil {
		return nil, fmt.Errorf("failed to select portfolio: %w", err)
	}
	if portfolio == nil || portfolio.Tenant == "" {
		return nil, nil
	}
	return portfolio, nil
}

func (s *Store) HasConfig(ctx context.Context, tenant string) (bool, error) {
	portfolio, err := s.GetPortfolio(ctx, tenant)
	if err != nil {
		return false, err
	}
	return portfolio != nil, nil
}

func (s *Store) InitPortfolio(ctx context.Context, tenant string, cash float64, risk models.RiskTolerance, holdings []models.Holding) error {
	if cash < 0 {
		return fmt.Errorf("initial cash balance cannot be negative")
	}

	existing, err := s.GetPortfolio(ctx, tenant)
	if err != nil {
		return err
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
	if existing != nil {
		portfolio.CreatedAt = existing.CreatedAt
	}

	return s.savePortfolio(ctx, portfolio)
}

func (s *Store) savePortfolio(ctx context.Context, portfolio *models.Portfolio) error {
	portfolio.UpdatedAt = time.Now()

	sql := "UPSERT type::record('portfolio', $id) CONTENT $portfolio"
	vars := map[string]any{"id": portfolio.Tenant, "portfolio": portfolio}

	if _, err := surrealdb.Query[[]models.Portfolio](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save portfolio for tenant '%s': %w", portfolio.Tenant, err)
	}
	return nil
}

func (s *Store) mutatePortfolio(ctx context.Context, tenant string, mutate func(*models.Portfolio) error) error {
	portfolio, err := s.GetPortfolio(ctx, tenant)
	if err != nil {
		return err
	}
	if portfolio == nil {
		return fmt.Errorf("no portfolio configured for tenant '%s'", tenant)
	}
	if err := mutate(portfolio); err != nil {
		return err
	}
	return s.savePortfolio(ctx, portfolio)
}

func (s *Store) UpdateHolding(ctx context.Context, tenant string, holding models.Holding) error {
	return s.mutatePortfolio(ctx, tenant, func(p *models.Portfolio) error {
		if h := p.Holding(holding.Ticker); h != nil {
			*h = holding
		} else {
			p.Holdings = append(p.Holdings, holding)
		}
		return nil
	})
}

func (s *Store) RemoveHolding(ctx context.Context, tenant, ticker string) error {
	return s.mutatePortfolio(ctx, tenant, func(p *models.Portfolio) error {
		for i := range p.Holdings {
			if p.Holdings[i].Ticker == ticker {
				p.Holdings = append(p.Holdings[:i], p.Holdings[i+1:]...)
				break
			}
		}
		return nil
	})
}

func (s *Store) UpdateCashBalance(ctx context.Context, tenant string, balance float64) error {
	if balance < 0 {
		return fmt.Errorf("cash balance cannot go negative (tenant '%s': %.2f)", tenant, balance)
	}
	return s.mutatePortfolio(ctx, tenant, func(p *models.Portfolio) error {
		p.CashBalance = balance
		return nil
	})
}

// ApplyTrade writes the adjusted portfolio and the trade record in one
// SurrealDB transaction, keyed by the trade ID so a replay cannot apply
// the same trade twice.
func (s *Store) ApplyTrade(ctx context.Context, tenant string, portfolio *models.Portfolio, trade *models.Trade) error {
	if portfolio.CashBalance < 0 {
		return fmt.Errorf("trade would drive cash balance negative (tenant '%s': %.2f)", tenant, portfolio.CashBalance)
	}
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	portfolio.UpdatedAt = time.Now()

	sql := `BEGIN TRANSACTION;
UPSERT type::record('portfolio', $tenant) CONTENT $portfolio;
CREATE type::record('trade', $trade_id) CONTENT $trade;
COMMIT TRANSACTION;`
	vars := map[string]any{
		"tenant":    tenant,
		"portfolio": portfolio,
		"trade_id":  trade.ID,
		"trade":     trade,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to apply trade for tenant '%s': %w", tenant, err)
	}

	s.logger.Debug().
		Str("tenant", tenant).
		Str("ticker", trade.Ticker).
		Str("action", string(trade.Action)).
		Float64("amount_usd", trade.AmountUSD).
		Msg("Trade applied")

	return nil
}
