// Package surrealdb provides a SurrealDB-backed PortfolioStore for server
// deployments where multiple processes share one store.
package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
)

// Store implements interfaces.PortfolioStore on SurrealDB.
type Store struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// Config holds SurrealDB connection settings.
type Config struct {
	Address   string
	Username  string
	Password  string
	Namespace string
	Database  string
}

// NewStore connects to SurrealDB and prepares the tables.
func NewStore(logger *common.Logger, cfg Config) (*Store, error) {
	ctx := context.Background()

	db, err := surrealdb.New(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": cfg.Username,
		"pass": cfg.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// Define tables up front (SurrealDB v3 errors on querying non-existent tables)
	tables := []string{"portfolio", "trade", "log_entry", "agent_event", "processed_article", "agent_state"}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	logger.Info().
		Str("address", cfg.Address).
		Str("namespace", cfg.Namespace).
		Str("database", cfg.Database).
		Msg("SurrealDB portfolio store initialized")

	return &Store{db: db, logger: logger}, nil
}

// Close closes the SurrealDB connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close(context.Background())
	}
	return nil
}

// Ensure Store implements PortfolioStore
var _ interfaces.PortfolioStore = (*Store)(nil)
