package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
)

// Ensure Service implements AgentService
var _ interfaces.AgentService = (*Service)(nil)

// Service is the per-tenant agent registry. Agents are created lazily on
// first use; tenant initialization against the ledger gateway runs once,
// on the first successful Start.
type Service struct {
	deps     Dependencies
	settings Settings
	logger   *common.Logger

	mu          sync.Mutex
	agents      map[string]*Agent
	initialized map[string]string // tenant -> wallet ID

	// initMu serializes ledger provisioning so concurrent starts for
	// the same tenant cannot create two settlement accounts.
	initMu sync.Mutex
}

// NewService creates the agent registry.
func NewService(deps Dependencies, settings Settings, logger *common.Logger) *Service {
	return &Service{
		deps:        deps,
		settings:    settings.normalize(),
		logger:      logger,
		agents:      make(map[string]*Agent),
		initialized: make(map[string]string),
	}
}

func normalizeTenant(tenant string) (string, error) {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return "", fmt.Errorf("tenant is required")
	}
	return tenant, nil
}

// agentFor returns the tenant's agent, creating it if needed. Creation
// does not touch the ledger; observers may attach before the first start.
func (s *Service) agentFor(tenant string) *Agent {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[tenant]
	if !ok {
		agent = New(tenant, s.deps, s.settings, s.logger)
		s.agents[tenant] = agent
	}
	return agent
}

// initTenant provisions the settlement account, establishes trust, and
// verifies the balance is readable. Runs once per tenant; subsequent
// starts reuse the wallet.
func (s *Service) initTenant(ctx context.Context, tenant string) (string, error) {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.Lock()
	walletID, done := s.initialized[tenant]
	s.mu.Unlock()
	if done {
		return walletID, nil
	}

	account, err := s.deps.Ledger.CreateAccount(ctx, tenant)
	if err != nil {
		return "", fmt.Errorf("failed to create settlement account for tenant '%s': %w", tenant, err)
	}

	if err := s.deps.Ledger.EstablishTrust(ctx, account.WalletID); err != nil {
		return "", fmt.Errorf("failed to establish trust for tenant '%s': %w", tenant, err)
	}

	balance, err := s.deps.Ledger.GetBalance(ctx, account.WalletID)
	if err != nil {
		return "", fmt.Errorf("failed to read settlement balance for tenant '%s': %w", tenant, err)
	}

	s.logger.Info().
		Str("tenant", tenant).
		Str("wallet_id", account.WalletID).
		Float64("balance", balance).
		Msg("Tenant settlement account initialized")

	s.mu.Lock()
	s.initialized[tenant] = account.WalletID
	s.mu.Unlock()
	return account.WalletID, nil
}

// Start initializes the tenant if needed and launches its agent loop.
func (s *Service) Start(ctx context.Context, tenant string) error {
	tenant, err := normalizeTenant(tenant)
	if err != nil {
		return err
	}

	hasConfig, err := s.deps.Store.HasConfig(ctx, tenant)
	if err != nil {
		return fmt.Errorf("failed to check portfolio config for tenant '%s': %w", tenant, err)
	}
	if !hasConfig {
		return fmt.Errorf("no portfolio configured for tenant '%s'", tenant)
	}

	walletID, err := s.initTenant(ctx, tenant)
	if err != nil {
		return err
	}

	// The loop outlives the request context.
	return s.agentFor(tenant).Start(context.Background(), walletID)
}

// Stop cooperatively halts the tenant's agent loop.
func (s *Service) Stop(ctx context.Context, tenant string) error {
	tenant, err := normalizeTenant(tenant)
	if err != nil {
		return err
	}

	s.mu.Lock()
	agent, ok := s.agents[tenant]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("agent not running for tenant '%s'", tenant)
	}
	return agent.Stop(ctx)
}

// GetStatus reports the tenant's state, working set, and recent logs.
// For tenants with no live agent the persisted state is used, so status
// survives restarts.
func (s *Service) GetStatus(ctx context.Context, tenant string) (*interfaces.AgentStatus, error) {
	tenant, err := normalizeTenant(tenant)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	agent, ok := s.agents[tenant]
	s.mu.Unlock()

	var status *interfaces.AgentStatus
	if ok {
		status = agent.Status()
	} else {
		saved, err := s.deps.Store.GetAgentState(ctx, tenant)
		if err != nil {
			return nil, err
		}
		status = &interfaces.AgentStatus{Tenant: tenant, State: models.StateIdle}
		if saved != nil {
			status.State = saved.State
			status.WalletID = saved.WalletID
			status.CurrentNews = saved.CurrentNews
			status.CurrentAnalysis = saved.CurrentAnalysis
			status.CurrentDecision = saved.CurrentDecision
		}
	}

	logs, err := s.deps.Store.GetLogs(ctx, tenant, 50)
	if err != nil {
		s.logger.Warn().Err(err).Str("tenant", tenant).Msg("Failed to load log history")
	} else {
		status.Logs = logs
	}
	return status, nil
}

// GetPortfolio reads the tenant's portfolio through the store.
func (s *Service) GetPortfolio(ctx context.Context, tenant string) (*models.Portfolio, error) {
	tenant, err := normalizeTenant(tenant)
	if err != nil {
		return nil, err
	}
	return s.deps.Store.GetPortfolio(ctx, tenant)
}

// GetTrades reads the tenant's trade history, most recent first.
func (s *Service) GetTrades(ctx context.Context, tenant string, limit int) ([]*models.Trade, error) {
	tenant, err := normalizeTenant(tenant)
	if err != nil {
		return nil, err
	}
	return s.deps.Store.GetTrades(ctx, tenant, limit)
}

// Subscribe registers an event observer for a tenant. The agent is
// created (stopped) if it does not exist yet, so observers can watch a
// tenant before its first start.
func (s *Service) Subscribe(tenant string) (<-chan *models.AgentEvent, func(), error) {
	tenant, err := normalizeTenant(tenant)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ch, unsubscribe := s.agentFor(tenant).Subscribe(ctx)
	return ch, unsubscribe, nil
}

// Shutdown stops every running agent and disconnects all observers.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	agents := make([]*Agent, 0, len(s.agents))
	for _, agent := range s.agents {
		agents = append(agents, agent)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, agent := range agents {
		if !agent.Running() {
			agent.CloseObservers()
			continue
		}
		wg.Add(1)
		go func(a *Agent) {
			defer wg.Done()
			if err := a.Stop(ctx); err != nil {
				s.logger.Warn().Err(err).Str("tenant", a.tenant).Msg("Failed to stop agent during shutdown")
			}
			a.CloseObservers()
		}(agent)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
