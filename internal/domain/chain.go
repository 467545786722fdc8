package domain

import "context"

// Deposit is one memo-carrying transfer into the settlement chain.
type Deposit struct {
	From   string
	To     string // inbound vault; empty for the settlement chain itself
	Router string // EVM router contract, when the chain uses one
	Amount Amount
	Memo   string
}

// ChainClient resolves the wallet address on one chain and builds, signs and
// broadcasts deposits there.
type ChainClient interface {
	Chain() Chain
	Address(ctx context.Context) (string, error)
	BuildAndBroadcast(ctx context.Context, d Deposit) (txID string, err error)
}

// PoolSource is the raw settlement-chain query surface used by the pool
// query adapter.
type PoolSource interface {
	Pool(ctx context.Context, asset Asset) (PoolSnapshot, error)
	LiquidityProvider(ctx context.Context, pool Asset, address string) (LiquidityPositionRecord, error)
	InboundAddresses(ctx context.Context) ([]InboundAddress, error)
	LastBlockHeight(ctx context.Context) (int64, error)
}

// TxObserver reports whether the settlement chain has observed an inbound tx.
type TxObserver interface {
	InboundObserved(ctx context.Context, txID string) (bool, error)
}
