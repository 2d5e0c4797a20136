// Package storage selects the PortfolioStore backend from configuration.
package storage

import (
	"fmt"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/storage/badger"
	"github.com/bobmcallan/argus/internal/storage/surrealdb"
)

// NewPortfolioStore creates the configured store backend: "badger"
// (embedded, default) or "surrealdb" (shared server).
func NewPortfolioStore(logger *common.Logger, config *common.Config) (interfaces.PortfolioStore, error) {
	switch config.Storage.Driver {
	case "", "badger":
		store, err := badger.NewStore(logger, config.Storage.Path,
			badger.WithRetention(config.Agent.LogBuffer, config.Agent.EventBuffer*5),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create badger store: %w", err)
		}
		return store, nil

	case "surrealdb":
		store, err := surrealdb.NewStore(logger, surrealdb.Config{
			Address:   config.Storage.Address,
			Username:  config.Storage.Username,
			Password:  config.Storage.Password,
			Namespace: config.Storage.Namespace,
			Database:  config.Storage.Database,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create surrealdb store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}
}
