package thornode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// Client is the REST client for a THORNode API endpoint. It implements
// domain.PoolSource and domain.TxObserver.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
}

// NewClient creates a THORNode client.
//
// baseURL is the node API root, e.g. "https://thornode.ninerealms.com".
// clientID, when set, is sent as x-client-id as public providers require.
func NewClient(baseURL, clientID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Pool returns the current pool state for asset.
func (c *Client) Pool(ctx context.Context, asset domain.Asset) (domain.PoolSnapshot, error) {
	body, err := c.doGet(ctx, "/thorchain/pool/"+url.PathEscape(asset.String()))
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("thornode: get pool %s: %w", asset, err)
	}

	var apiPool APIPool
	if err := json.Unmarshal(body, &apiPool); err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("thornode: decode pool: %w", err)
	}
	// Unknown pools come back as an empty object on some node versions.
	if apiPool.Asset == "" {
		return domain.PoolSnapshot{}, fmt.Errorf("thornode: pool %s: %w", asset, domain.ErrNotFound)
	}

	snap, err := apiPool.ToDomainPool(asset)
	if err != nil {
		return domain.PoolSnapshot{}, err
	}
	snap.FetchedAt = time.Now().UTC()
	return snap, nil
}

// LiquidityProvider returns the position record of address in pool.
func (c *Client) LiquidityProvider(ctx context.Context, pool domain.Asset, address string) (domain.LiquidityPositionRecord, error) {
	path := fmt.Sprintf("/thorchain/pool/%s/liquidity_provider/%s",
		url.PathEscape(pool.String()), url.PathEscape(address))

	body, err := c.doGet(ctx, path)
	if err != nil {
		return domain.LiquidityPositionRecord{}, fmt.Errorf("thornode: get liquidity provider %s: %w", address, err)
	}

	var apiLP APILiquidityProvider
	if err := json.Unmarshal(body, &apiLP); err != nil {
		return domain.LiquidityPositionRecord{}, fmt.Errorf("thornode: decode liquidity provider: %w", err)
	}
	if apiLP.Asset == "" && apiLP.Units == "" {
		return domain.LiquidityPositionRecord{}, fmt.Errorf("thornode: liquidity provider %s: %w", address, domain.ErrNotFound)
	}

	return apiLP.ToDomainRecord(pool)
}

// InboundAddresses returns the vault of every external chain.
func (c *Client) InboundAddresses(ctx context.Context) ([]domain.InboundAddress, error) {
	body, err := c.doGet(ctx, "/thorchain/inbound_addresses")
	if err != nil {
		return nil, fmt.Errorf("thornode: get inbound addresses: %w", err)
	}

	var apiAddrs []APIInboundAddress
	if err := json.Unmarshal(body, &apiAddrs); err != nil {
		return nil, fmt.Errorf("thornode: decode inbound addresses: %w", err)
	}

	out := make([]domain.InboundAddress, 0, len(apiAddrs))
	for i := range apiAddrs {
		in, err := apiAddrs[i].ToDomainInbound()
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// LastBlockHeight returns the settlement chain's current block height.
func (c *Client) LastBlockHeight(ctx context.Context) (int64, error) {
	body, err := c.doGet(ctx, "/thorchain/lastblock")
	if err != nil {
		return 0, fmt.Errorf("thornode: get last block: %w", err)
	}

	var blocks []APILastBlock
	if err := json.Unmarshal(body, &blocks); err != nil {
		return 0, fmt.Errorf("thornode: decode last block: %w", err)
	}

	var height int64
	for _, b := range blocks {
		if b.Thorchain > height {
			height = b.Thorchain
		}
	}
	if height == 0 {
		return 0, fmt.Errorf("thornode: last block: %w", domain.ErrNotFound)
	}
	return height, nil
}

// InboundObserved reports whether THORChain has observed the inbound tx. An
// unknown hash is not an error; it is simply not observed yet.
func (c *Client) InboundObserved(ctx context.Context, txID string) (bool, error) {
	hash := strings.TrimPrefix(strings.ToUpper(txID), "0X")
	body, err := c.doGet(ctx, "/thorchain/tx/status/"+url.PathEscape(hash))
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("thornode: get tx status %s: %w", txID, err)
	}

	var status APITxStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return false, fmt.Errorf("thornode: decode tx status: %w", err)
	}
	return status.Stages.InboundObserved.Completed, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.clientID != "" {
		req.Header.Set("x-client-id", c.clientID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors. THORNode
// answers unknown pools and providers with 404 or with a 400 whose message
// says the record does not exist.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch {
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case statusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(bodyStr), "not exist"):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
