// Package evm deposits gas assets into THORChain vaults through the router
// contract on EVM chains.
package evm

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/alanyoungcy/lpbot/internal/crypto"
	"github.com/alanyoungcy/lpbot/internal/domain"
)

const (
	weiDecimals     = 18
	depositLifetime = 15 * time.Minute
)

// Backend is the subset of ethclient.Client the deposit path needs.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Client implements domain.ChainClient for one EVM chain.
type Client struct {
	chain     domain.Chain
	backend   Backend
	rpcClient *rpc.Client
	signer    *crypto.TxSigner
	now       func() time.Time
	logger    *slog.Logger
}

// Dial connects to rpcURL and returns a Client for chain.
func Dial(ctx context.Context, chain domain.Chain, rpcURL string, signer *crypto.TxSigner, logger *slog.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", chain, err)
	}
	c := New(chain, ethclient.NewClient(rpcClient), signer, logger)
	c.rpcClient = rpcClient
	return c, nil
}

// New wraps an existing backend.
func New(chain domain.Chain, backend Backend, signer *crypto.TxSigner, logger *slog.Logger) *Client {
	return &Client{
		chain:   chain,
		backend: backend,
		signer:  signer,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "evm"), slog.String("chain", string(chain))),
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) Chain() domain.Chain { return c.chain }

func (c *Client) Address(context.Context) (string, error) {
	return c.signer.Address().Hex(), nil
}

// BuildAndBroadcast calls depositWithExpiry on the router with the amount as
// msg.value. Only the chain's gas asset is supported.
func (c *Client) BuildAndBroadcast(ctx context.Context, d domain.Deposit) (string, error) {
	gas := domain.GasAsset(c.chain)
	if !d.Amount.Asset().Equal(gas) {
		return "", fmt.Errorf("evm: %s deposits of %s are not supported: %w", c.chain, d.Amount.Asset(), domain.ErrInvalidRequest)
	}
	if !common.IsHexAddress(d.To) || !common.IsHexAddress(d.Router) {
		return "", fmt.Errorf("evm: vault %q router %q: %w", d.To, d.Router, domain.ErrInvalidRequest)
	}

	value := d.Amount.Convert(weiDecimals).Base()
	expiry := big.NewInt(c.now().Add(depositLifetime).Unix())

	routerABI, err := loadRouterABI()
	if err != nil {
		return "", fmt.Errorf("evm: router abi: %w", err)
	}
	data, err := routerABI.Pack("depositWithExpiry",
		common.HexToAddress(d.To), common.Address{}, value, d.Memo, expiry)
	if err != nil {
		return "", fmt.Errorf("evm: pack deposit: %w", err)
	}

	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("evm: chain id: %w", err)
	}
	tx, err := c.buildTx(ctx, chainID, common.HexToAddress(d.Router), value, data)
	if err != nil {
		return "", err
	}
	signed, err := c.signer.SignTx(tx, chainID)
	if err != nil {
		return "", err
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("evm: send: %w", err)
	}

	c.logger.Info("router deposit sent",
		slog.String("tx_id", signed.Hash().Hex()),
		slog.String("vault", d.To),
		slog.String("memo", d.Memo),
		slog.Uint64("nonce", signed.Nonce()),
	)
	return signed.Hash().Hex(), nil
}

// buildTx prices an EIP-1559 transaction at twice the base fee plus tip and
// pads the gas estimate by a fifth.
func (c *Client) buildTx(ctx context.Context, chainID *big.Int, router common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	from := c.signer.Address()

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("evm: nonce: %w", err)
	}
	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("evm: gas tip: %w", err)
	}
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("evm: head: %w", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	feeCap := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)

	gasLimit, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &router,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("evm: estimate gas: %w", err)
	}
	gasLimit += gasLimit / 5

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &router,
		Value:     value,
		Data:      data,
	}), nil
}

var _ domain.ChainClient = (*Client)(nil)
