package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/models"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	store, err := NewStore(common.NewSilentLogger(), t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetPortfolio_MissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	p, err := store.GetPortfolio(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetPortfolio() error = %v", err)
	}
	if p != nil {
		t.Errorf("GetPortfolio() = %+v, want nil for unconfigured tenant", p)
	}
}

func TestInitPortfolio_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	holdings := []models.Holding{{Ticker: "AAPL", Shares: 10, AvgPrice: 150}}
	if err := store.InitPortfolio(ctx, "alice", 10000, models.RiskModerate, holdings); err != nil {
		t.Fatalf("InitPortfolio() error = %v", err)
	}

	p, err := store.GetPortfolio(ctx, "alice")
	if err != nil {
		t.Fatalf("GetPortfolio() error = %v", err)
	}
	if p.CashBalance != 10000 || p.RiskTolerance != models.RiskModerate {
		t.Errorf("portfolio = %+v", p)
	}
	if len(p.Holdings) != 1 || p.Holdings[0].Ticker != "AAPL" {
		t.Errorf("holdings = %+v", p.Holdings)
	}

	ok, err := store.HasConfig(ctx, "alice")
	if err != nil || !ok {
		t.Errorf("HasConfig() = %t, %v", ok, err)
	}
}

func TestInitPortfolio_PreservesCreatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.InitPortfolio(ctx, "alice", 1000, models.RiskModerate, nil)
	first, _ := store.GetPortfolio(ctx, "alice")

	time.Sleep(5 * time.Millisecond)
	store.InitPortfolio(ctx, "alice", 2000, models.RiskAggressive, nil)
	second, _ := store.GetPortfolio(ctx, "alice")

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("re-configuration must preserve CreatedAt")
	}
	if second.CashBalance != 2000 {
		t.Errorf("CashBalance = %.2f after reconfigure, want 2000", second.CashBalance)
	}
}

func TestInitPortfolio_RejectsNegativeCash(t *testing.T) {
	store := newTestStore(t)
	if err := store.InitPortfolio(context.Background(), "alice", -1, models.RiskModerate, nil); err == nil {
		t.Error("InitPortfolio() should reject negative cash")
	}
}

func TestApplyTrade_PersistsPortfolioAndTrade(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.InitPortfolio(ctx, "alice", 10000, models.RiskModerate,
		[]models.Holding{{Ticker: "AAPL", Shares: 10, AvgPrice: 150}})

	p, _ := store.GetPortfolio(ctx, "alice")
	trade := &models.Trade{
		ID: "trade-1", Tenant: "alice", Ticker: "AAPL", Action: models.TradeActionBuy,
		Shares: 5, Price: 100, AmountUSD: 500, SettlementTx: "abc123", Timestamp: time.Now(),
	}
	if err := p.Apply(trade); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if err := store.ApplyTrade(ctx, "alice", p, trade); err != nil {
		t.Fatalf("ApplyTrade() error = %v", err)
	}

	saved, _ := store.GetPortfolio(ctx, "alice")
	if saved.CashBalance != 9500 {
		t.Errorf("CashBalance = %.2f, want 9500", saved.CashBalance)
	}

	trades, err := store.GetTrades(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("GetTrades() error = %v", err)
	}
	if len(trades) != 1 || trades[0].SettlementTx != "abc123" {
		t.Errorf("trades = %+v", trades)
	}
}

func TestApplyTrade_SkipsDuplicateTradeID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.InitPortfolio(ctx, "alice", 10000, models.RiskModerate, nil)
	p, _ := store.GetPortfolio(ctx, "alice")

	trade := &models.Trade{ID: "trade-1", Tenant: "alice", Ticker: "AAPL",
		Action: models.TradeActionBuy, Shares: 1, Price: 100, AmountUSD: 100, Timestamp: time.Now()}
	p.Apply(trade)

	if err := store.ApplyTrade(ctx, "alice", p, trade); err != nil {
		t.Fatalf("ApplyTrade() error = %v", err)
	}
	// Replay of the same trade ID must be a no-op, not an error.
	p.CashBalance = 0
	if err := store.ApplyTrade(ctx, "alice", p, trade); err != nil {
		t.Fatalf("replayed ApplyTrade() error = %v", err)
	}

	saved, _ := store.GetPortfolio(ctx, "alice")
	if saved.CashBalance != 9900 {
		t.Errorf("CashBalance = %.2f after replay, want 9900", saved.CashBalance)
	}

	trades, _ := store.GetTrades(ctx, "alice", 10)
	if len(trades) != 1 {
		t.Errorf("trade count = %d after replay, want 1", len(trades))
	}
}

func TestApplyTrade_RejectsNegativeCash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	store.InitPortfolio(ctx, "alice", 100, models.RiskModerate, nil)

	p, _ := store.GetPortfolio(ctx, "alice")
	p.CashBalance = -50
	err := store.ApplyTrade(ctx, "alice", p, &models.Trade{ID: "t1", Tenant: "alice", Timestamp: time.Now()})
	if err == nil {
		t.Error("ApplyTrade() should reject a negative resulting cash balance")
	}
}

func TestGetTrades_MostRecentFirstWithLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		store.AppendTrade(ctx, &models.Trade{
			ID:        fmt.Sprintf("trade-%d", i),
			Tenant:    "alice",
			Ticker:    "AAPL",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	store.AppendTrade(ctx, &models.Trade{ID: "other", Tenant: "bob", Timestamp: time.Now()})

	trades, err := store.GetTrades(ctx, "alice", 3)
	if err != nil {
		t.Fatalf("GetTrades() error = %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("len = %d, want 3", len(trades))
	}
	if trades[0].ID != "trade-4" || trades[2].ID != "trade-2" {
		t.Errorf("order = [%s %s %s], want most recent first", trades[0].ID, trades[1].ID, trades[2].ID)
	}
}

func TestProcessedArticles_DurableDedup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	url := "https://news.dev/article-1"

	processed, err := store.HasProcessedArticle(ctx, "alice", url)
	if err != nil || processed {
		t.Fatalf("HasProcessedArticle() = %t, %v before marking", processed, err)
	}

	if err := store.MarkProcessed(ctx, "alice", url); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}
	// Marking twice is fine.
	if err := store.MarkProcessed(ctx, "alice", url); err != nil {
		t.Fatalf("repeated MarkProcessed() error = %v", err)
	}

	processed, _ = store.HasProcessedArticle(ctx, "alice", url)
	if !processed {
		t.Error("article should be processed after marking")
	}

	// Dedup is per tenant.
	processed, _ = store.HasProcessedArticle(ctx, "bob", url)
	if processed {
		t.Error("another tenant's dedup set must be independent")
	}
}

func TestLogs_RetentionPrunesOldest(t *testing.T) {
	store := newTestStore(t, WithRetention(5, 5))
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		store.AppendLog(ctx, "alice", models.LogEntry{
			Level:     "info",
			Message:   fmt.Sprintf("line %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	logs, err := store.GetLogs(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("GetLogs() error = %v", err)
	}
	if len(logs) != 5 {
		t.Fatalf("retained logs = %d, want 5", len(logs))
	}
	if logs[0].Message != "line 7" {
		t.Errorf("newest log = %q, want line 7", logs[0].Message)
	}
	if logs[len(logs)-1].Message != "line 3" {
		t.Errorf("oldest retained = %q, want line 3", logs[len(logs)-1].Message)
	}
}

func TestEvents_RoundTripWithPayload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	event := &models.AgentEvent{
		Type:      models.EventTypeStateChange,
		Tenant:    "alice",
		Data:      models.StateChangeData{From: models.StateIdle, To: models.StateMonitoring},
		Timestamp: time.Now(),
	}
	if err := store.AppendEvent(ctx, event); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}

	events, err := store.GetEvents(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("GetEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].Type != models.EventTypeStateChange {
		t.Fatalf("events = %+v", events)
	}

	data, ok := events[0].Data.(map[string]interface{})
	if !ok {
		t.Fatalf("payload type = %T, want decoded JSON object", events[0].Data)
	}
	if data["to"] != string(models.StateMonitoring) {
		t.Errorf("payload = %+v", data)
	}
}

func TestAgentState_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.GetAgentState(ctx, "alice")
	if err != nil || missing != nil {
		t.Fatalf("GetAgentState() = %+v, %v before save", missing, err)
	}

	state := &models.AgentState{
		Tenant:   "alice",
		State:    models.StateAnalyzing,
		Running:  true,
		WalletID: "wallet-alice",
		CurrentNews: &models.NewsArticle{
			Title: "AAPL earnings", URL: "https://news.dev/aapl",
		},
	}
	if err := store.SaveAgentState(ctx, state); err != nil {
		t.Fatalf("SaveAgentState() error = %v", err)
	}

	loaded, err := store.GetAgentState(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAgentState() error = %v", err)
	}
	if loaded.State != models.StateAnalyzing || !loaded.Running {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.CurrentNews == nil || loaded.CurrentNews.URL != "https://news.dev/aapl" {
		t.Errorf("CurrentNews = %+v", loaded.CurrentNews)
	}
}

func TestUpdateCashBalance_RejectsNegative(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	store.InitPortfolio(ctx, "alice", 100, models.RiskModerate, nil)

	if err := store.UpdateCashBalance(ctx, "alice", -1); err == nil {
		t.Error("UpdateCashBalance() should reject negative balances")
	}
	if err := store.UpdateCashBalance(ctx, "alice", 250); err != nil {
		t.Fatalf("UpdateCashBalance() error = %v", err)
	}
	p, _ := store.GetPortfolio(ctx, "alice")
	if p.CashBalance != 250 {
		t.Errorf("CashBalance = %.2f, want 250", p.CashBalance)
	}
}

func TestHoldings_UpsertAndRemove(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	store.InitPortfolio(ctx, "alice", 1000, models.RiskModerate, nil)

	if err := store.UpdateHolding(ctx, "alice", models.Holding{Ticker: "AAPL", Shares: 3, AvgPrice: 100}); err != nil {
		t.Fatalf("UpdateHolding() error = %v", err)
	}
	if err := store.UpdateHolding(ctx, "alice", models.Holding{Ticker: "AAPL", Shares: 7, AvgPrice: 110}); err != nil {
		t.Fatalf("UpdateHolding() error = %v", err)
	}

	p, _ := store.GetPortfolio(ctx, "alice")
	if len(p.Holdings) != 1 || p.Holdings[0].Shares != 7 {
		t.Errorf("holdings = %+v, want single upserted AAPL", p.Holdings)
	}

	if err := store.RemoveHolding(ctx, "alice", "aapl"); err != nil {
		t.Fatalf("RemoveHolding() error = %v", err)
	}
	p, _ = store.GetPortfolio(ctx, "alice")
	if len(p.Holdings) != 0 {
		t.Errorf("holdings = %+v after removal, want empty", p.Holdings)
	}
}
