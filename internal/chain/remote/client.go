// Package remote signs and broadcasts deposits on chains without an
// in-process signer (THOR, BTC, BNB, GAIA...) by calling an external signing
// daemon over HMAC-authenticated HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/lpbot/internal/crypto"
	"github.com/alanyoungcy/lpbot/internal/domain"
)

// depositRequest is the daemon's deposit payload. Amount is in base units.
type depositRequest struct {
	Chain    string `json:"chain"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Asset    string `json:"asset"`
	Amount   string `json:"amount"`
	Decimals int32  `json:"decimals"`
	Memo     string `json:"memo"`
}

type depositResponse struct {
	TxID  string `json:"tx_id"`
	Error string `json:"error,omitempty"`
}

type addressResponse struct {
	Address string `json:"address"`
}

// Client implements domain.ChainClient for one chain served by the daemon.
type Client struct {
	chain      domain.Chain
	baseURL    string
	auth       *crypto.HMACAuth
	httpClient *http.Client
	logger     *slog.Logger

	mu      sync.RWMutex
	address string
}

// NewClient creates a Client for chain. auth may be nil for an
// unauthenticated local daemon.
func NewClient(chain domain.Chain, baseURL string, auth *crypto.HMACAuth, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		chain:   chain,
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(slog.String("component", "remote_signer"), slog.String("chain", string(chain))),
	}
}

func (c *Client) Chain() domain.Chain { return c.chain }

// Address returns the daemon's address for the chain. The first successful
// answer is kept for the life of the client; until then concurrent callers
// each ask the daemon.
func (c *Client) Address(ctx context.Context) (string, error) {
	c.mu.RLock()
	cached := c.address
	c.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}

	body, err := c.do(ctx, http.MethodGet, "/v1/chains/"+url.PathEscape(string(c.chain))+"/address", nil)
	if err != nil {
		return "", fmt.Errorf("remote: %s address: %w", c.chain, err)
	}
	var resp addressResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("remote: decode address: %w", err)
	}
	if resp.Address == "" {
		return "", fmt.Errorf("remote: %s address: %w", c.chain, domain.ErrChainNotConfigured)
	}
	c.mu.Lock()
	c.address = resp.Address
	c.mu.Unlock()
	return resp.Address, nil
}

// BuildAndBroadcast asks the daemon to sign and send d.
func (c *Client) BuildAndBroadcast(ctx context.Context, d domain.Deposit) (string, error) {
	req := depositRequest{
		Chain:    string(c.chain),
		From:     d.From,
		To:       d.To,
		Asset:    d.Amount.Asset().String(),
		Amount:   d.Amount.Base().String(),
		Decimals: d.Amount.Asset().Decimals,
		Memo:     d.Memo,
	}
	body, err := c.do(ctx, http.MethodPost, "/v1/chains/"+url.PathEscape(string(c.chain))+"/deposits", req)
	if err != nil {
		return "", fmt.Errorf("remote: %s deposit: %w", c.chain, err)
	}

	var resp depositResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("remote: decode deposit: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("remote: %s deposit: %s", c.chain, resp.Error)
	}
	if resp.TxID == "" {
		return "", fmt.Errorf("remote: %s deposit: empty tx id", c.chain)
	}

	c.logger.Info("deposit sent", slog.String("tx_id", resp.TxID), slog.String("memo", d.Memo))
	return resp.TxID, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var bodyStr string
	var bodyReader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(b)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		for k, v := range c.auth.Headers(method, path, bodyStr) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrChainNotConfigured, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", domain.ErrSigningFailed, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

var _ domain.ChainClient = (*Client)(nil)
