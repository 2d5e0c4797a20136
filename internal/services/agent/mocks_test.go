package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
)

// mockStore is an in-memory PortfolioStore for loop tests.
type mockStore struct {
	mu         sync.Mutex
	portfolios map[string]*models.Portfolio
	trades     []*models.Trade
	logs       []models.LogEntry
	events     []*models.AgentEvent
	processed  map[string]bool
	states     map[string]*models.AgentState

	failApplyTrade bool
	applyCalls     int
}

func newMockStore() *mockStore {
	return &mockStore{
		portfolios: make(map[string]*models.Portfolio),
		processed:  make(map[string]bool),
		states:     make(map[string]*models.AgentState),
	}
}

func (m *mockStore) GetPortfolio(ctx context.Context, tenant string) (*models.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.portfolios[tenant]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (m *mockStore) HasConfig(ctx context.Context, tenant string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.portfolios[tenant]
	return ok, nil
}

func (m *mockStore) InitPortfolio(ctx context.Context, tenant string, cash float64, risk models.RiskTolerance, holdings []models.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portfolios[tenant] = &models.Portfolio{
		Tenant:        tenant,
		CashBalance:   cash,
		RiskTolerance: risk,
		Holdings:      holdings,
	}
	return nil
}

func (m *mockStore) UpdateHolding(ctx context.Context, tenant string, holding models.Holding) error {
	return nil
}

func (m *mockStore) RemoveHolding(ctx context.Context, tenant, ticker string) error {
	return nil
}

func (m *mockStore) UpdateCashBalance(ctx context.Context, tenant string, balance float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.portfolios[tenant]; ok {
		p.CashBalance = balance
	}
	return nil
}

func (m *mockStore) ApplyTrade(ctx context.Context, tenant string, portfolio *models.Portfolio, trade *models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyCalls++
	if m.failApplyTrade {
		return fmt.Errorf("simulated store failure")
	}
	m.portfolios[tenant] = portfolio.Clone()
	m.trades = append(m.trades, trade)
	return nil
}

func (m *mockStore) AppendTrade(ctx context.Context, trade *models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, trade)
	return nil
}

func (m *mockStore) GetTrades(ctx context.Context, tenant string, limit int) ([]*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Trade, 0, len(m.trades))
	for i := len(m.trades) - 1; i >= 0; i-- {
		if m.trades[i].Tenant == tenant {
			out = append(out, m.trades[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) AppendLog(ctx context.Context, tenant string, entry models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

func (m *mockStore) GetLogs(ctx context.Context, tenant string, limit int) ([]models.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.LogEntry, len(m.logs))
	copy(out, m.logs)
	return out, nil
}

func (m *mockStore) AppendEvent(ctx context.Context, event *models.AgentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockStore) GetEvents(ctx context.Context, tenant string, limit int) ([]*models.AgentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AgentEvent, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *mockStore) HasProcessedArticle(ctx context.Context, tenant, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[tenant+"|"+url], nil
}

func (m *mockStore) MarkProcessed(ctx context.Context, tenant, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[tenant+"|"+url] = true
	return nil
}

func (m *mockStore) SaveAgentState(ctx context.Context, state *models.AgentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.Tenant] = state
	return nil
}

func (m *mockStore) GetAgentState(ctx context.Context, tenant string) (*models.AgentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[tenant], nil
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) tradeCount(tenant string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.trades {
		if t.Tenant == tenant {
			n++
		}
	}
	return n
}

func (m *mockStore) isProcessed(tenant, url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[tenant+"|"+url]
}

// mockNews serves a fixed article list.
type mockNews struct {
	mu       sync.Mutex
	articles []*models.NewsArticle
	extracts map[string]string
	searches int
	err      error
}

func (m *mockNews) Search(ctx context.Context, tickers []string) ([]*models.NewsArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.NewsArticle, len(m.articles))
	for i, a := range m.articles {
		copied := *a
		out[i] = &copied
	}
	return out, nil
}

func (m *mockNews) Extract(ctx context.Context, url string) (*models.NewsArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if content, ok := m.extracts[url]; ok {
		return &models.NewsArticle{URL: url, Content: content}, nil
	}
	return nil, nil
}

// mockReasoning returns a fixed analysis and narrative.
type mockReasoning struct {
	mu        sync.Mutex
	analysis  *models.Analysis
	narrative string
	analyzeErr error
	explainErr error
	analyzed  []string // tickers analyzed, in order
}

func (m *mockReasoning) AnalyzeImpact(ctx context.Context, article *models.NewsArticle, ticker string, holdings []models.Holding) (*models.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyzed = append(m.analyzed, ticker)
	if m.analyzeErr != nil {
		return nil, m.analyzeErr
	}
	a := *m.analysis
	a.Ticker = ticker
	a.ArticleURL = article.URL
	return &a, nil
}

func (m *mockReasoning) ExplainTrade(ctx context.Context, article *models.NewsArticle, analysis *models.Analysis, decision *models.Decision) (string, error) {
	if m.explainErr != nil {
		return "", m.explainErr
	}
	return m.narrative, nil
}

// mockQuotes returns a fixed price per ticker.
type mockQuotes struct {
	prices map[string]float64
	err    error
}

func (m *mockQuotes) GetRealTimeQuote(ctx context.Context, ticker string) (float64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.prices[ticker], nil
}

// mockLedger records settlement calls.
type mockLedger struct {
	mu          sync.Mutex
	submits     int
	accounts    int
	trusts      int
	balances    int
	submitErr   error
	accountErr  error
}

func (m *mockLedger) CreateAccount(ctx context.Context, tenant string) (*interfaces.LedgerAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts++
	if m.accountErr != nil {
		return nil, m.accountErr
	}
	return &interfaces.LedgerAccount{WalletID: "wallet-" + tenant, Balance: 1000}, nil
}

func (m *mockLedger) EstablishTrust(ctx context.Context, walletID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trusts++
	return nil
}

func (m *mockLedger) GetBalance(ctx context.Context, walletID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances++
	return 1000, nil
}

func (m *mockLedger) SubmitTrade(ctx context.Context, walletID string, action models.TradeAction, ticker string, amountUSD, price float64) (*interfaces.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits++
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &interfaces.Settlement{TxHash: "abc123", AuditLink: "https://ledger.dev/tx/abc123"}, nil
}

func (m *mockLedger) submitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submits
}
