// Package app wires configuration, storage, clients, and services into
// one initialized application core.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bobmcallan/argus/internal/clients/eodhd"
	"github.com/bobmcallan/argus/internal/clients/gemini"
	"github.com/bobmcallan/argus/internal/clients/ledger"
	"github.com/bobmcallan/argus/internal/clients/newswire"
	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/services/agent"
	"github.com/bobmcallan/argus/internal/services/risk"
	"github.com/bobmcallan/argus/internal/storage"
)

// App holds all initialized services, clients, and storage. It is the
// shared core behind cmd/argus-server.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	Store        interfaces.PortfolioStore
	AgentService interfaces.AgentService
	StartupTime  time.Time
}

// NewApp initializes configuration, logging, storage, clients, and the
// agent service. configPath may be empty, in which case ARGUS_CONFIG and
// the default path are tried.
func NewApp(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("ARGUS_CONFIG")
	}
	if configPath == "" {
		configPath = "config/argus.toml"
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	store, err := storage.NewPortfolioStore(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	newsClient := newswire.NewClient(config.Clients.Newswire.APIKey,
		newswire.WithBaseURL(config.Clients.Newswire.BaseURL),
		newswire.WithRateLimit(config.Clients.Newswire.RateLimit),
		newswire.WithTimeout(config.Clients.Newswire.GetTimeout()),
		newswire.WithMaxAge(config.Clients.Newswire.GetMaxAge()),
		newswire.WithLogger(logger),
	)

	var quoteClient interfaces.QuoteClient
	if config.Clients.EODHD.APIKey != "" {
		quoteClient = eodhd.NewClient(config.Clients.EODHD.APIKey,
			eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
			eodhd.WithLogger(logger),
		)
	} else {
		logger.Warn().Msg("EODHD API key not configured - decisions will use the fallback price")
	}

	reasoningClient, err := gemini.NewClient(context.Background(), config.Clients.Gemini.APIKey,
		gemini.WithModel(config.Clients.Gemini.Model),
		gemini.WithLogger(logger),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	ledgerClient := ledger.NewClient(config.Clients.Ledger.APIKey,
		ledger.WithBaseURL(config.Clients.Ledger.BaseURL),
		ledger.WithAssetCode(config.Clients.Ledger.AssetCode),
		ledger.WithTimeout(config.Clients.Ledger.GetTimeout()),
		ledger.WithLogger(logger),
	)

	agentService := agent.NewService(
		agent.Dependencies{
			Store:     store,
			News:      newsClient,
			Reasoning: reasoningClient,
			Quotes:    quoteClient,
			Ledger:    ledgerClient,
		},
		agent.Settings{
			Backoff:        config.Agent.GetBackoff(),
			CallTimeout:    config.Agent.GetCallTimeout(),
			EventBuffer:    config.Agent.EventBuffer,
			FallbackPrice:  config.Agent.FallbackPrice,
			MinContentSize: config.Agent.MinContentSize,
			MinImpactScore: config.Risk.MinImpactScore,
			MinConfidence:  config.Risk.MinConfidence,
			RiskLimits: risk.Limits{
				MaxPositionPct: config.Risk.MaxPositionPct,
				MaxDailyTrades: config.Risk.MaxDailyTrades,
				TradeWindow:    config.Risk.GetTradeWindow(),
			},
		},
		logger,
	)

	logger.Info().
		Str("version", common.GetVersion()).
		Str("environment", config.Environment).
		Str("storage", config.Storage.Driver).
		Msg("Argus initialized")

	return &App{
		Config:       config,
		Logger:       logger,
		Store:        store,
		AgentService: agentService,
		StartupTime:  time.Now(),
	}, nil
}

// Shutdown stops all agents and closes storage.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.AgentService.Shutdown(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Agent service shutdown incomplete")
	}
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}
