// Package badger provides a BadgerHold-backed PortfolioStore for embedded
// single-node deployments.
package badger

import (
	"fmt"
	"os"
	"sync"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
)

// Ensure Store implements PortfolioStore
var _ interfaces.PortfolioStore = (*Store)(nil)

// Store implements interfaces.PortfolioStore on BadgerHold.
//
// mu serializes trade application per store: the agent design already
// guarantees one in-flight mutation per tenant, but the store guards
// against double-application anyway (e.g. a tenant restarted mid-cycle).
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger

	retainLogs   int
	retainEvents int

	mu sync.Mutex
}

// Option configures the store
type Option func(*Store)

// WithRetention bounds the per-tenant log and event history.
func WithRetention(logs, events int) Option {
	return func(s *Store) {
		if logs > 0 {
			s.retainLogs = logs
		}
		if events > 0 {
			s.retainEvents = events
		}
	}
}

// NewStore creates a new BadgerHold store at the given directory path.
func NewStore(logger *common.Logger, path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("BadgerHold store opened")

	s := &Store{
		db:           db,
		logger:       logger,
		retainLogs:   200,
		retainEvents: 500,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Close closes the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
