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

// queryList runs a SELECT returning a list of T.
func queryList[T any](ctx context.Context, s *Store, sql string, vars map[string]any) ([]T, error) {
	results, err := surrealdb.Query[[]T](ctx, s.db, sql, vars)
	if err != nil {
		return nil, err
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

func (s *Store) AppendTrade(ctx context.Context, trade *models.Trade) error {
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}

	sql := "CREATE type::record('trade', $id) CONTENT $trade"
	vars := map[string]any{"id": trade.ID, "trade": trade}
	if _, err := surrealdb.Query[[]models.Trade](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to append trade for tenant '%s': %w", trade.Tenant, err)
	}
	return nil
}

func (s *Store) GetTrades(ctx context.Context, tenant string, limit int) ([]*models.Trade, error) {
	sql := "SELECT * FROM trade WHERE tenant = $tenant ORDER BY timestamp DESC LIMIT $limit"
	vars := map[string]any{"tenant": tenant, "limit": historyLimit(limit)}

	trades, err := queryList[models.Trade](ctx, s, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades for tenant '%s': %w", tenant, err)
	}

	result := make([]*models.Trade, len(trades))
	for i := range trades {
		result[i] = &trades[i]
	}
	return result, nil
}

// storedLog is the wire shape of a log entry row.
type storedLog struct {
	Tenant    string    `json:"tenant"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Store) AppendLog(ctx context.Context, tenant string, entry models.LogEntry) error {
	row := storedLog{Tenant: tenant, Level: entry.Level, Message: entry.Message, Timestamp: entry.Timestamp}

	sql := "CREATE type::record('log_entry', $id) CONTENT $entry"
	vars := map[string]any{"id": uuid.NewString(), "entry": row}
	if _, err := surrealdb.Query[[]storedLog](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to append log for tenant '%s': %w", tenant, err)
	}
	return nil
}

func (s *Store) GetLogs(ctx context.Context, tenant string, limit int) ([]models.LogEntry, error) {
	sql := "SELECT * FROM log_entry WHERE tenant = $tenant ORDER BY timestamp DESC LIMIT $limit"
	vars := map[string]any{"tenant": tenant, "limit": historyLimit(limit)}

	rows, err := queryList[storedLog](ctx, s, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs for tenant '%s': %w", tenant, err)
	}

	entries := make([]models.LogEntry, len(rows))
	for i, r := range rows {
		entries[i] = models.LogEntry{Level: r.Level, Message: r.Message, Timestamp: r.Timestamp}
	}
	return entries, nil
}

func (s *Store) AppendEvent(ctx context.Context, event *models.AgentEvent) error {
	sql := "CREATE type::record('agent_event', $id) CONTENT $event"
	vars := map[string]any{"id": uuid.NewString(), "event": event}
	if _, err := surrealdb.Query[[]models.AgentEvent](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to append event for tenant '%s': %w", event.Tenant, err)
	}
	return nil
}

func (s *Store) GetEvents(ctx context.Context, tenant string, limit int) ([]*models.AgentEvent, error) {
	sql := "SELECT * FROM agent_event WHERE tenant = $tenant ORDER BY timestamp DESC LIMIT $limit"
	vars := map[string]any{"tenant": tenant, "limit": historyLimit(limit)}

	events, err := queryList[models.AgentEvent](ctx, s, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for tenant '%s': %w", tenant, err)
	}

	result := make([]*models.AgentEvent, len(events))
	for i := range events {
		result[i] = &events[i]
	}
	return result, nil
}

// processedID derives a stable record ID from the tenant and URL.
func processedID(tenant, url string) string {
	return tenant + "_" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// processedArticle marks an article URL as handled for a tenant.
type processedArticle struct {
	Tenant    string    `json:"tenant"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Store) HasProcessedArticle(ctx context.Context, tenant, url string) (bool, error) {
	record, err := surrealdb.Select[processedArticle](ctx, s.db, surrealmodels.NewRecordID("processed_article", processedID(tenant, url)))
	if err != nil {
		return false, fmt.Errorf("failed to check processed article for tenant '%s': %w", tenant, err)
	}
	return record != nil && record.URL != "", nil
}

func (s *Store) MarkProcessed(ctx context.Context, tenant, url string) error {
	record := processedArticle{Tenant: tenant, URL: url, Timestamp: time.Now()}

	sql := "UPSERT type::record('processed_article', $id) CONTENT $record"
	vars := map[string]any{"id": processedID(tenant, url), "record": record}
	if _, err := surrealdb.Query[[]processedArticle](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to mark article processed for tenant '%s': %w", tenant, err)
	}
	return nil
}

func (s *Store) SaveAgentState(ctx context.Context, state *models.AgentState) error {
	state.UpdatedAt = time.Now()

	sql := "UPSERT type::record('agent_state', $id) CONTENT $state"
	vars := map[string]any{"id": state.Tenant, "state": state}
	if _, err := surrealdb.Query[[]models.AgentState](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save agent state for tenant '%s': %w", state.Tenant, err)
	}
	return nil
}

func (s *Store) GetAgentState(ctx context.Context, tenant string) (*models.AgentState, error) {
	state, err := surrealdb.Select[models.AgentState](ctx, s.db, surrealmodels.NewRecordID("agent_state", tenant))
	if err != nil {
		return nil, fmt.Errorf("failed to get agent state for tenant '%s': %w", tenant, err)
	}
	if state == nil || state.Tenant == "" {
		return nil, nil
	}
	return state, nil
}
