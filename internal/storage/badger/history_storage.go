package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/argus/internal/models"
)

// logRecord keys a tenant's log entries for range queries.
type logRecord struct {
	ID        string `badgerhold:"key"`
	Tenant    string `badgerhold:"index"`
	Level     string
	Message   string
	Timestamp time.Time
}

// eventRecord keys a tenant's event history. Data is stored as JSON
// since event payloads are heterogeneous and gob cannot encode them blind.
type eventRecord struct {
	ID        string `badgerhold:"key"`
	Tenant    string `badgerhold:"index"`
	Type      string
	Data      []byte
	Timestamp time.Time
}

// processedRecord marks an article URL as processed for a tenant.
type processedRecord struct {
	Key       string `badgerhold:"key"` // tenant + "|" + url
	Tenant    string
	URL       string
	Timestamp time.Time
}

func processedKey(tenant, url string) string {
	return tenant + "|" + url
}

func (s *Store) AppendTrade(_ context.Context, trade *models.Trade) error {
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	if err := s.db.Insert(trade.ID, trade); err != nil {
		return fmt.Errorf("failed to append trade for tenant '%s': %w", trade.Tenant, err)
	}
	return nil
}

func (s *Store) GetTrades(_ context.Context, tenant string, limit int) ([]*models.Trade, error) {
	query := badgerhold.Where("Tenant").Eq(tenant).Index("Tenant").SortBy("Timestamp").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var trades []models.Trade
	if err := s.db.Find(&trades, query); err != nil {
		return nil, fmt.Errorf("failed to get trades for tenant '%s': %w", tenant, err)
	}

	result := make([]*models.Trade, len(trades))
	for i := range trades {
		result[i] = &trades[i]
	}
	return result, nil
}

func (s *Store) AppendLog(_ context.Context, tenant string, entry models.LogEntry) error {
	record := logRecord{
		ID:        uuid.NewString(),
		Tenant:    tenant,
		Level:     entry.Level,
		Message:   entry.Message,
		Timestamp: entry.Timestamp,
	}
	if err := s.db.Insert(record.ID, &record); err != nil {
		return fmt.Errorf("failed to append log for tenant '%s': %w", tenant, err)
	}

	s.pruneLogs(tenant)
	return nil
}

func (s *Store) GetLogs(_ context.Context, tenant string, limit int) ([]models.LogEntry, error) {
	query := badgerhold.Where("Tenant").Eq(tenant).Index("Tenant").SortBy("Timestamp").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []logRecord
	if err := s.db.Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to get logs for tenant '%s': %w", tenant, err)
	}

	entries := make([]models.LogEntry, len(records))
	for i, r := range records {
		entries[i] = models.LogEntry{Level: r.Level, Message: r.Message, Timestamp: r.Timestamp}
	}
	return entries, nil
}

func (s *Store) AppendEvent(_ context.Context, event *models.AgentEvent) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event data for tenant '%s': %w", event.Tenant, err)
	}

	record := eventRecord{
		ID:        uuid.NewString(),
		Tenant:    event.Tenant,
		Type:      event.Type,
		Data:      data,
		Timestamp: event.Timestamp,
	}
	if err := s.db.Insert(record.ID, &record); err != nil {
		return fmt.Errorf("failed to append event for tenant '%s': %w", event.Tenant, err)
	}

	s.pruneEvents(event.Tenant)
	return nil
}

func (s *Store) GetEvents(_ context.Context, tenant string, limit int) ([]*models.AgentEvent, error) {
	query := badgerhold.Where("Tenant").Eq(tenant).Index("Tenant").SortBy("Timestamp").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []eventRecord
	if err := s.db.Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to get events for tenant '%s': %w", tenant, err)
	}

	events := make([]*models.AgentEvent, len(records))
	for i, r := range records {
		var data interface{}
		if len(r.Data) > 0 {
			if err := json.Unmarshal(r.Data, &data); err != nil {
				data = string(r.Data)
			}
		}
		events[i] = &models.AgentEvent{
			Type:      r.Type,
			Tenant:    r.Tenant,
			Data:      data,
			Timestamp: r.Timestamp,
		}
	}
	return events, nil
}

func (s *Store) HasProcessedArticle(_ context.Context, tenant, url string) (bool, error) {
	var record processedRecord
	err := s.db.Get(processedKey(tenant, url), &record)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check processed article for tenant '%s': %w", tenant, err)
	}
	return true, nil
}

func (s *Store) MarkProcessed(_ context.Context, tenant, url string) error {
	record := processedRecord{
		Key:       processedKey(tenant, url),
		Tenant:    tenant,
		URL:       url,
		Timestamp: time.Now(),
	}
	if err := s.db.Upsert(record.Key, &record); err != nil {
		return fmt.Errorf("failed to mark article processed for tenant '%s': %w", tenant, err)
	}
	return nil
}

func (s *Store) SaveAgentState(_ context.Context, state *models.AgentState) error {
	state.UpdatedAt = time.Now()
	if err := s.db.Upsert("agent_state|"+state.Tenant, state); err != nil {
		return fmt.Errorf("failed to save agent state for tenant '%s': %w", state.Tenant, err)
	}
	return nil
}

func (s *Store) GetAgentState(_ context.Context, tenant string) (*models.AgentState, error) {
	var state models.AgentState
	err := s.db.Get("agent_state|"+tenant, &state)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get agent state for tenant '%s': %w", tenant, err)
	}
	return &state, nil
}

// pruneLogs trims a tenant's log history to the retention bound.
func (s *Store) pruneLogs(tenant string) {
	count, err := s.db.Count(&logRecord{}, badgerhold.Where("Tenant").Eq(tenant).Index("Tenant"))
	if err != nil || int(count) <= s.retainLogs {
		return
	}

	excess := int(count) - s.retainLogs
	var oldest []logRecord
	if err := s.db.Find(&oldest, badgerhold.Where("Tenant").Eq(tenant).Index("Tenant").SortBy("Timestamp").Limit(excess)); err != nil {
		return
	}
	for _, r := range oldest {
		if err := s.db.Delete(r.ID, &logRecord{}); err != nil {
			s.logger.Debug().Str("tenant", tenant).Err(err).Msg("Log prune delete failed")
		}
	}
}

// pruneEvents trims a tenant's event history to the retention bound.
func (s *Store) pruneEvents(tenant string) {
	count, err := s.db.Count(&eventRecord{}, badgerhold.Where("Tenant").Eq(tenant).Index("Tenant"))
	if err != nil || int(count) <= s.retainEvents {
		return
	}

	excess := int(count) - s.retainEvents
	var oldest []eventRecord
	if err := s.db.Find(&oldest, badgerhold.Where("Tenant").Eq(tenant).Index("Tenant").SortBy("Timestamp").Limit(excess)); err != nil {
		return
	}
	for _, r := range oldest {
		if err := s.db.Delete(r.ID, &eventRecord{}); err != nil {
			s.logger.Debug().Str("tenant", tenant).Err(err).Msg("Event prune delete failed")
		}
	}
}
