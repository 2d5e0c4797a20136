// Package ledger provides a client for the settlement gateway. Settlements
// are irreversible: once SubmitTrade returns a transaction hash the trade
// is recorded on the external ledger and cannot be rolled back.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/interfaces"
	"github.com/bobmcallan/argus/internal/models"
)

const (
	DefaultBaseURL   = "https://gateway.ledger.dev"
	DefaultTimeout   = 45 * time.Second
	DefaultAssetCode = "USDC"
)

// Client implements the LedgerClient interface
type Client struct {
	baseURL    string
	apiKey     string
	assetCode  string
	httpClient *http.Client
	logger     *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithAssetCode sets the settlement asset code
func WithAssetCode(code string) ClientOption {
	return func(c *Client) {
		if code != "" {
			c.assetCode = code
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new ledger gateway client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		apiKey:    apiKey,
		assetCode: DefaultAssetCode,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ledger API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// post performs an authenticated POST request with a JSON body
func (c *Client) post(ctx context.Context, path string, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Ledger API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
			Endpoint:   path,
		}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// CreateAccount provisions (or returns the existing) settlement account
// for a tenant.
func (c *Client) CreateAccount(ctx context.Context, tenant string) (*interfaces.LedgerAccount, error) {
	var account interfaces.LedgerAccount
	payload := map[string]string{"tenant": tenant}
	if err := c.post(ctx, "/v1/accounts", payload, &account); err != nil {
		return nil, fmt.Errorf("account provisioning for tenant %s failed: %w", tenant, err)
	}

	c.logger.Info().Str("tenant", tenant).Str("wallet", account.WalletID).Msg("Settlement account ready")

	return &account, nil
}

// EstablishTrust sets up the trustline for the settlement asset. Idempotent
// at the gateway: re-establishing an existing trustline succeeds.
func (c *Client) EstablishTrust(ctx context.Context, walletID string) error {
	payload := map[string]string{
		"wallet_id":  walletID,
		"asset_code": c.assetCode,
	}
	if err := c.post(ctx, "/v1/trustlines", payload, nil); err != nil {
		return fmt.Errorf("trustline for wallet %s failed: %w", walletID, err)
	}
	return nil
}

// GetBalance returns the settlement asset balance for a wallet.
func (c *Client) GetBalance(ctx context.Context, walletID string) (float64, error) {
	var result struct {
		Balance float64 `json:"balance"`
	}
	payload := map[string]string{
		"wallet_id":  walletID,
		"asset_code": c.assetCode,
	}
	if err := c.post(ctx, "/v1/balances", payload, &result); err != nil {
		return 0, fmt.Errorf("balance lookup for wallet %s failed: %w", walletID, err)
	}
	return result.Balance, nil
}

// SubmitTrade executes an irreversible settlement transaction.
func (c *Client) SubmitTrade(ctx context.Context, walletID string, action models.TradeAction, ticker string, amountUSD, price float64) (*interfaces.Settlement, error) {
	var settlement interfaces.Settlement
	payload := map[string]interface{}{
		"wallet_id":  walletID,
		"action":     string(action),
		"ticker":     ticker,
		"amount_usd": amountUSD,
		"price":      price,
		"asset_code": c.assetCode,
	}
	if err := c.post(ctx, "/v1/trades", payload, &settlement); err != nil {
		return nil, fmt.Errorf("settlement of %s %s failed: %w", action, ticker, err)
	}

	if settlement.TxHash == "" {
		return nil, fmt.Errorf("settlement of %s %s returned no transaction hash", action, ticker)
	}

	c.logger.Info().
		Str("wallet", walletID).
		Str("ticker", ticker).
		Str("action", string(action)).
		Float64("amount_usd", amountUSD).
		Str("tx", settlement.TxHash).
		Msg("Trade settled")

	return &settlement, nil
}

// Ensure Client implements LedgerClient
var _ interfaces.LedgerClient = (*Client)(nil)
