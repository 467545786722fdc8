package domain

import (
	"github.com/shopspring/decimal"
)

// LiquidityPositionRecord is a provider's deposit history for one pool as
// kept by the settlement chain's ledger. Values are in settlement precision.
type LiquidityPositionRecord struct {
	Asset              Asset
	AssetAddress       string
	RuneAddress        string
	Units              decimal.Decimal
	AssetDepositValue  Amount // cumulative asset deposited
	RuneDepositValue   Amount // cumulative rune deposited
	PendingAsset       Amount
	PendingRune        Amount
	LastAddHeight      int64
	LastWithdrawHeight int64
}

// ImpermanentLossProtection is the rune-denominated protection a position has
// vested so far.
type ImpermanentLossProtection struct {
	Protection Amount          // rune, settlement precision
	Progress   decimal.Decimal // 0..1 share of full protection vested
	TotalDays  decimal.Decimal // elapsed days since last add
}

// LiquidityPosition combines a record with a current pool snapshot.
type LiquidityPosition struct {
	Record     LiquidityPositionRecord
	Pool       PoolSnapshot
	AssetShare Amount // current redeemable asset
	RuneShare  Amount // current redeemable rune
	PoolShare  decimal.Decimal
	ILP        ImpermanentLossProtection
}
