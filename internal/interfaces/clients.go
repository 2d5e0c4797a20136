// Package interfaces defines service contracts for Argus
package interfaces

import (
	"context"

	"github.com/bobmcallan/argus/internal/models"
)

// NewsClient provides batched news search and best-effort article extraction
type NewsClient interface {
	// Search returns candidate articles for the given tickers in one
	// batched call, each with a provider relevance score.
	Search(ctx context.Context, tickers []string) ([]*models.NewsArticle, error)

	// Extract fetches the full text of an article by URL. Best-effort:
	// returns nil without error when the article cannot be extracted.
	Extract(ctx context.Context, url string) (*models.NewsArticle, error)
}

// ReasoningClient provides AI impact analysis and trade explanations
type ReasoningClient interface {
	// AnalyzeImpact assesses the impact of an article on a ticker given
	// the tenant's current holdings.
	AnalyzeImpact(ctx context.Context, article *models.NewsArticle, ticker string, holdings []models.Holding) (*models.Analysis, error)

	// ExplainTrade produces a human-readable narrative for a completed
	// decision.
	ExplainTrade(ctx context.Context, article *models.NewsArticle, analysis *models.Analysis, decision *models.Decision) (string, error)
}

// QuoteClient provides reference pricing
type QuoteClient interface {
	// GetRealTimeQuote returns the latest per-share price for a ticker.
	GetRealTimeQuote(ctx context.Context, ticker string) (float64, error)
}

// Settlement is the result of an irreversible ledger transaction
type Settlement struct {
	TxHash    string `json:"tx_hash"`
	AuditLink string `json:"audit_link"`
}

// LedgerAccount is a tenant's settlement account at the ledger gateway
type LedgerAccount struct {
	WalletID string  `json:"wallet_id"`
	Balance  float64 `json:"balance"`
}

// LedgerClient executes settlements against an external ledger gateway
type LedgerClient interface {
	// CreateAccount provisions (or returns the existing) settlement
	// account for a tenant.
	CreateAccount(ctx context.Context, tenant string) (*LedgerAccount, error)

	// EstablishTrust sets up the trust/allowance relationship required
	// before the account can hold the settlement asset. Idempotent.
	EstablishTrust(ctx context.Context, walletID string) error

	// GetBalance returns the settlement asset balance for a wallet.
	GetBalance(ctx context.Context, walletID string) (float64, error)

	// SubmitTrade executes an irreversible settlement transaction and
	// returns the transaction hash and audit link.
	SubmitTrade(ctx context.Context, walletID string, action models.TradeAction, ticker string, amountUSD, price float64) (*Settlement, error)
}
