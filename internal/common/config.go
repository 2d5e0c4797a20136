// Package common provides shared utilities for Argus
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Argus
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Agent       AgentConfig   `toml:"agent"`
	Risk        RiskConfig    `toml:"risk"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects and configures the portfolio store backend.
// Driver is "badger" (embedded, default) or "surrealdb" (server).
type StorageConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"` // badger data directory

	// SurrealDB connection settings (driver = "surrealdb")
	Address   string `toml:"address"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Newswire NewswireConfig `toml:"newswire"`
	EODHD    EODHDConfig    `toml:"eodhd"`
	Gemini   GeminiConfig   `toml:"gemini"`
	Ledger   LedgerConfig   `toml:"ledger"`
}

// NewswireConfig holds news search API configuration
type NewswireConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
	MaxAge    string `toml:"max_age"` // articles older than this are ignored
}

// GetTimeout parses and returns the timeout duration
func (c *NewswireConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetMaxAge parses and returns the article age cutoff
func (c *NewswireConfig) GetMaxAge() time.Duration {
	d, err := time.ParseDuration(c.MaxAge)
	if err != nil {
		return 72 * time.Hour
	}
	return d
}

// EODHDConfig holds EODHD pricing API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *GeminiConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// LedgerConfig holds settlement gateway configuration
type LedgerConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	AssetCode string `toml:"asset_code"` // settlement asset, e.g. "USDC"
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *LedgerConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 45 * time.Second
	}
	return d
}

// AgentConfig holds orchestrator loop tunables
type AgentConfig struct {
	Backoff        string  `toml:"backoff"`          // delay between no-progress monitoring passes
	CallTimeout    string  `toml:"call_timeout"`     // bound on each external call made by the loop
	EventBuffer    int     `toml:"event_buffer"`     // per-tenant event ring size
	LogBuffer      int     `toml:"log_buffer"`       // per-tenant log history retained in store
	FallbackPrice  float64 `toml:"fallback_price"`   // reference price when no live quote is available
	MinContentSize int     `toml:"min_content_size"` // articles shorter than this trigger full-text extraction
}

// GetBackoff parses and returns the monitoring backoff duration
func (c *AgentConfig) GetBackoff() time.Duration {
	d, err := time.ParseDuration(c.Backoff)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetCallTimeout parses and returns the external call timeout
func (c *AgentConfig) GetCallTimeout() time.Duration {
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// RiskConfig holds risk gate thresholds
type RiskConfig struct {
	MaxPositionPct  float64 `toml:"max_position_pct"`  // concentration cap as a fraction (0.30)
	MaxDailyTrades  int     `toml:"max_daily_trades"`  // trades allowed per trailing 24h
	MinImpactScore  float64 `toml:"min_impact_score"`  // minimum analysis impact to act
	MinConfidence   float64 `toml:"min_confidence"`    // minimum analysis confidence to act
	TradeWindow     string  `toml:"trade_window"`      // trailing window for the frequency gate
}

// GetTradeWindow parses and returns the frequency gate window
func (c *RiskConfig) GetTradeWindow() time.Duration {
	d, err := time.ParseDuration(c.TradeWindow)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Driver:    "badger",
			Path:      "data/argus",
			Namespace: "argus",
			Database:  "argus",
		},
		Clients: ClientsConfig{
			Newswire: NewswireConfig{
				BaseURL:   "https://api.newswire.dev/v1",
				RateLimit: 5,
				Timeout:   "30s",
				MaxAge:    "72h",
			},
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model:   "gemini-2.0-flash",
				Timeout: "60s",
			},
			Ledger: LedgerConfig{
				BaseURL:   "https://gateway.ledger.dev",
				AssetCode: "USDC",
				Timeout:   "45s",
			},
		},
		Agent: AgentConfig{
			Backoff:        "30s",
			CallTimeout:    "60s",
			EventBuffer:    100,
			LogBuffer:      200,
			FallbackPrice:  100.0,
			MinContentSize: 200,
		},
		Risk: RiskConfig{
			MaxPositionPct: 0.30,
			MaxDailyTrades: 3,
			MinImpactScore: 7,
			MinConfidence:  0.75,
			TradeWindow:    "24h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ARGUS_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("ARGUS_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("ARGUS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("ARGUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if driver := os.Getenv("ARGUS_STORAGE_DRIVER"); driver != "" {
		config.Storage.Driver = driver
	}

	if path := os.Getenv("ARGUS_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if addr := os.Getenv("ARGUS_SURREALDB_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}

	if v := os.Getenv("NEWSWIRE_API_KEY"); v != "" {
		config.Clients.Newswire.APIKey = v
	}
	if v := os.Getenv("EODHD_API_KEY"); v != "" {
		config.Clients.EODHD.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Clients.Gemini.APIKey = v
	}
	if v := os.Getenv("LEDGER_API_KEY"); v != "" {
		config.Clients.Ledger.APIKey = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
