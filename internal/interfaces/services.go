// Package interfaces defines service contracts for Argus
package interfaces

import (
	"context"

	"github.com/bobmcallan/argus/internal/models"
)

// AgentStatus is the introspection view of one tenant's agent
type AgentStatus struct {
	Tenant          string                `json:"tenant"`
	State           models.AgentStateName `json:"state"`
	Running         bool                  `json:"is_running"`
	WalletID        string                `json:"wallet_id,omitempty"`
	Logs            []models.LogEntry     `json:"logs"`
	CurrentNews     *models.NewsArticle   `json:"current_news,omitempty"`
	CurrentAnalysis *models.Analysis      `json:"current_analysis,omitempty"`
	CurrentDecision *models.Decision      `json:"current_decision,omitempty"`
}

// AgentService is the control and introspection surface consumed by the
// transport layer. Start and Stop return explicit errors rather than
// silently no-op-ing.
type AgentService interface {
	// Start begins (or resumes) the agent loop for a tenant. Tenant
	// initialization (settlement account, trust, balance check)
	// completes before Start returns; its failure is the caller's.
	Start(ctx context.Context, tenant string) error

	// Stop cooperatively halts the tenant's loop at its next check.
	Stop(ctx context.Context, tenant string) error

	// GetStatus reports the tenant's current state and working set.
	GetStatus(ctx context.Context, tenant string) (*AgentStatus, error)

	// GetPortfolio reads the tenant's portfolio through the store.
	GetPortfolio(ctx context.Context, tenant string) (*models.Portfolio, error)

	// GetTrades reads the tenant's trade history, most recent first.
	GetTrades(ctx context.Context, tenant string, limit int) ([]*models.Trade, error)

	// Subscribe registers an event observer for a tenant. The returned
	// channel receives a snapshot message first, then streamed events;
	// cancel deregisters the observer.
	Subscribe(tenant string) (<-chan *models.AgentEvent, func(), error)

	// Shutdown stops every running agent and releases external
	// connections. Called once at process exit.
	Shutdown(ctx context.Context) error
}
