package server

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/argus/internal/app"
	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
)

// stubService is a canned AgentService for handler tests.
type stubService struct {
	startErr  error
	stopErr   error
	status    *interfaces.AgentStatus
	portfolio *models.Portfolio
	trades    []*models.Trade

	started []string
	stopped []string
}

func (s *stubService) Start(ctx context.Context, tenant string) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = append(s.started, tenant)
	return nil
}

func (s *stubService) Stop(ctx context.Context, tenant string) error {
	if s.stopErr != nil {
		return s.stopErr
	}
	s.stopped = append(s.stopped, tenant)
	return nil
}

func (s *stubService) GetStatus(ctx context.Context, tenant string) (*interfaces.AgentStatus, error) {
	if s.status != nil {
		return s.status, nil
	}
	return &interfaces.AgentStatus{Tenant: tenant, State: models.StateIdle}, nil
}

func (s *stubService) GetPortfolio(ctx context.Context, tenant string) (*models.Portfolio, error) {
	return s.portfolio, nil
}

func (s *stubService) GetTrades(ctx context.Context, tenant string, limit int) ([]*models.Trade, error) {
	if limit > 0 && limit < len(s.trades) {
		return s.trades[:limit], nil
	}
	return s.trades, nil
}

func (s *stubService) Subscribe(tenant string) (<-chan *models.AgentEvent, func(), error) {
	ch := make(chan *models.AgentEvent, 1)
	ch <- &models.AgentEvent{Type: models.EventTypeSnapshot, Tenant: tenant, Timestamp: time.Now()}
	return ch, func() { close(ch) }, nil
}

func (s *stubService) Shutdown(ctx context.Context) error { return nil }

// stubStore backs the portfolio-init handler with a map.
type stubStore struct {
	portfolios map[string]*models.Portfolio
	initErr    error
}

func newStubStore() *stubStore {
	return &stubStore{portfolios: make(map[string]*models.Portfolio)}
}

func (s *stubStore) GetPortfolio(ctx context.Context, tenant string) (*models.Portfolio, error) {
	return s.portfolios[tenant], nil
}

func (s *stubStore) HasConfig(ctx context.Context, tenant string) (bool, error) {
	_, ok := s.portfolios[tenant]
	return ok, nil
}

func (s *stubStore) InitPortfolio(ctx context.Context, tenant string, cash float64, risk models.RiskTolerance, holdings []models.Holding) error {
	if s.initErr != nil {
		return s.initErr
	}
	s.portfolios[tenant] = &models.Portfolio{
		Tenant: tenant, CashBalance: cash, RiskTolerance: risk, Holdings: holdings,
	}
	return nil
}

func (s *stubStore) UpdateHolding(ctx context.Context, tenant string, holding models.Holding) error {
	return nil
}
func (s *stubStore) RemoveHolding(ctx context.Context, tenant, ticker string) error { return nil }
func (s *stubStore) UpdateCashBalance(ctx context.Context, tenant string, balance float64) error {
	return nil
}
func (s *stubStore) ApplyTrade(ctx context.Context, tenant string, portfolio *models.Portfolio, trade *models.Trade) error {
	return nil
}
func (s *stubStore) AppendTrade(ctx context.Context, trade *models.Trade) error { return nil }
func (s *stubStore) GetTrades(ctx context.Context, tenant string, limit int) ([]*models.Trade, error) {
	return nil, nil
}
func (s *stubStore) AppendLog(ctx context.Context, tenant string, entry models.LogEntry) error {
	return nil
}
func (s *stubStore) GetLogs(ctx context.Context, tenant string, limit int) ([]models.LogEntry, error) {
	return nil, nil
}
func (s *stubStore) AppendEvent(ctx context.Context, event *models.AgentEvent) error { return nil }
func (s *stubStore) GetEvents(ctx context.Context, tenant string, limit int) ([]*models.AgentEvent, error) {
	return nil, nil
}
func (s *stubStore) HasProcessedArticle(ctx context.Context, tenant, url string) (bool, error) {
	return false, nil
}
func (s *stubStore) MarkProcessed(ctx context.Context, tenant, url string) error { return nil }
func (s *stubStore) SaveAgentState(ctx context.Context, state *models.AgentState) error {
	return nil
}
func (s *stubStore) GetAgentState(ctx context.Context, tenant string) (*models.AgentState, error) {
	return nil, nil
}
func (s *stubStore) Close() error { return nil }

var errBoom = fmt.Errorf("boom")

// newTestServer builds a Server around stubbed dependencies.
func newTestServer(service interfaces.AgentService, store interfaces.PortfolioStore) *Server {
	a := &app.App{
		Config:       common.NewDefaultConfig(),
		Logger:       common.NewSilentLogger(),
		Store:        store,
		AgentService: service,
		StartupTime:  time.Now(),
	}
	return NewServer(a)
}
