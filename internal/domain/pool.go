package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolStatus mirrors the settlement chain's pool status.
type PoolStatus string

const (
	PoolStatusAvailable PoolStatus = "available"
	PoolStatusStaged    PoolStatus = "staged"
	PoolStatusSuspended PoolStatus = "suspended"
)

// PoolSnapshot is settlement-chain pool state read at one point in time.
// Depths are in settlement precision.
type PoolSnapshot struct {
	Asset      Asset
	AssetDepth Amount
	RuneDepth  Amount
	PoolUnits  decimal.Decimal // total liquidity units outstanding
	Status     PoolStatus
	FetchedAt  time.Time
}

// Tradable reports whether the pool accepts swaps.
func (p PoolSnapshot) Tradable() bool {
	return p.Status == PoolStatusAvailable
}

// PoolRatio is the price relation between the two sides of a pool. When
// Defined is false the pool has no liquidity and both fields are zero.
type PoolRatio struct {
	AssetToRune decimal.Decimal // rune per one asset unit
	RuneToAsset decimal.Decimal // asset per one rune unit
	Defined     bool
}

// UndefinedRatio is the sentinel returned for empty pools.
var UndefinedRatio = PoolRatio{}

// Ratio derives the pool ratio from the snapshot depths without dividing by zero.
func (p PoolSnapshot) Ratio() PoolRatio {
	runeDepth := p.RuneDepth.Display()
	assetDepth := p.AssetDepth.Display()
	if runeDepth.IsZero() || assetDepth.IsZero() {
		return UndefinedRatio
	}
	return PoolRatio{
		AssetToRune: runeDepth.DivRound(assetDepth, 2*MaxDecimals),
		RuneToAsset: assetDepth.DivRound(runeDepth, 2*MaxDecimals),
		Defined:     true,
	}
}

// InboundAddress is the settlement chain's vault for one external chain.
type InboundAddress struct {
	Chain         Chain
	Address       string
	Router        string // EVM router contract; empty on UTXO and cosmos chains
	DustThreshold Amount // settlement precision
	Halted        bool
}
