// Package interfaces defines service contracts for Argus
package interfaces

import (
	"context"

	"github.com/bobmcallan/argus/internal/models"
)

// PortfolioStore is the persistence contract for tenant portfolios, trade
// history, logs, events, the article dedup set, and resumable agent state.
// Implementations must be safe for concurrent multi-tenant use and apply
// each trade's mutations as one logical unit per tenant.
//
// All history reads accept a limit and return most-recent-first.
type PortfolioStore interface {
	// Portfolio
	GetPortfolio(ctx context.Context, tenant string) (*models.Portfolio, error)
	HasConfig(ctx context.Context, tenant string) (bool, error)
	InitPortfolio(ctx context.Context, tenant string, cash float64, risk models.RiskTolerance, holdings []models.Holding) error
	UpdateHolding(ctx context.Context, tenant string, holding models.Holding) error
	RemoveHolding(ctx context.Context, tenant, ticker string) error
	UpdateCashBalance(ctx context.Context, tenant string, balance float64) error

	// ApplyTrade atomically applies a settled trade's mutations: cash
	// balance, holding upsert/removal, and the trade append.
	ApplyTrade(ctx context.Context, tenant string, portfolio *models.Portfolio, trade *models.Trade) error

	// Trades
	AppendTrade(ctx context.Context, trade *models.Trade) error
	GetTrades(ctx context.Context, tenant string, limit int) ([]*models.Trade, error)

	// Logs
	AppendLog(ctx context.Context, tenant string, entry models.LogEntry) error
	GetLogs(ctx context.Context, tenant string, limit int) ([]models.LogEntry, error)

	// Events
	AppendEvent(ctx context.Context, event *models.AgentEvent) error
	GetEvents(ctx context.Context, tenant string, limit int) ([]*models.AgentEvent, error)

	// Article dedup, durable across restarts. MarkProcessed must
	// happen-before any analysis work on the article.
	HasProcessedArticle(ctx context.Context, tenant, url string) (bool, error)
	MarkProcessed(ctx context.Context, tenant, url string) error

	// Resumable agent state
	SaveAgentState(ctx context.Context, state *models.AgentState) error
	GetAgentState(ctx context.Context, tenant string) (*models.AgentState, error)

	Close() error
}
