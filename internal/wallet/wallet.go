// Package wallet maps chain identifiers to the chain clients that can sign
// for them.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// Wallet is a capability registry of chain clients, fixed at construction.
type Wallet struct {
	clients map[domain.Chain]domain.ChainClient
	logger  *slog.Logger
}

// New builds a Wallet. Registering two clients for one chain is an error.
func New(logger *slog.Logger, clients ...domain.ChainClient) (*Wallet, error) {
	m := make(map[domain.Chain]domain.ChainClient, len(clients))
	for _, c := range clients {
		if c == nil {
			continue
		}
		if _, dup := m[c.Chain()]; dup {
			return nil, fmt.Errorf("wallet: duplicate client for %s", c.Chain())
		}
		m[c.Chain()] = c
	}
	return &Wallet{
		clients: m,
		logger:  logger.With(slog.String("component", "wallet")),
	}, nil
}

// Chains lists the configured chains in sorted order.
func (w *Wallet) Chains() []domain.Chain {
	out := make([]domain.Chain, 0, len(w.clients))
	for c := range w.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether chain has a client.
func (w *Wallet) Has(chain domain.Chain) bool {
	_, ok := w.clients[chain]
	return ok
}

func (w *Wallet) client(chain domain.Chain) (domain.ChainClient, error) {
	c, ok := w.clients[chain]
	if !ok {
		return nil, fmt.Errorf("wallet: %s: %w", chain, domain.ErrChainNotConfigured)
	}
	return c, nil
}

// Address returns the wallet's address on chain.
func (w *Wallet) Address(ctx context.Context, chain domain.Chain) (string, error) {
	c, err := w.client(chain)
	if err != nil {
		return "", err
	}
	addr, err := c.Address(ctx)
	if err != nil {
		return "", fmt.Errorf("wallet: %s address: %w", chain, err)
	}
	if addr == "" {
		return "", fmt.Errorf("wallet: %s returned an empty address", chain)
	}
	return addr, nil
}

// BuildAndBroadcast signs and sends d on chain and returns the tx id.
func (w *Wallet) BuildAndBroadcast(ctx context.Context, chain domain.Chain, d domain.Deposit) (string, error) {
	c, err := w.client(chain)
	if err != nil {
		return "", err
	}
	txID, err := c.BuildAndBroadcast(ctx, d)
	if err != nil {
		return "", fmt.Errorf("wallet: %s broadcast: %w", chain, err)
	}
	w.logger.Debug("deposit broadcast",
		slog.String("chain", string(chain)),
		slog.String("amount", d.Amount.String()),
		slog.String("tx_id", txID),
	)
	return txID, nil
}
