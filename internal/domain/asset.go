package domain

import (
	"fmt"
	"strings"
)

// Chain identifies a blockchain by its settlement-chain ticker (THOR, ETH, BTC, BNB, GAIA...).
type Chain string

const (
	ChainTHOR Chain = "THOR"
	ChainETH  Chain = "ETH"
	ChainBTC  Chain = "BTC"
	ChainBNB  Chain = "BNB"
	ChainBSC  Chain = "BSC"
	ChainAVAX Chain = "AVAX"
	ChainGAIA Chain = "GAIA"
	ChainLTC  Chain = "LTC"
	ChainBCH  Chain = "BCH"
	ChainDOGE Chain = "DOGE"
)

// SettlementDecimals is the fixed precision used by the settlement chain for
// every pool depth and deposit value it reports.
const SettlementDecimals = 8

// Asset identifies a fungible unit on a chain. Equality ignores Decimals.
type Asset struct {
	Chain    Chain
	Ticker   string
	ID       string // optional sub-identifier (token contract, denom suffix)
	Decimals int32
}

var (
	// AssetRune is the settlement chain's native asset.
	AssetRune = Asset{Chain: ChainTHOR, Ticker: "RUNE", Decimals: 8}
	AssetETH  = Asset{Chain: ChainETH, Ticker: "ETH", Decimals: 18}
	AssetBTC  = Asset{Chain: ChainBTC, Ticker: "BTC", Decimals: 8}
	AssetATOM = Asset{Chain: ChainGAIA, Ticker: "ATOM", Decimals: 6}
	AssetBNB  = Asset{Chain: ChainBNB, Ticker: "BNB", Decimals: 8}
	AssetAVAX = Asset{Chain: ChainAVAX, Ticker: "AVAX", Decimals: 18}
)

// MaxDecimals is the largest decimal precision an Asset may declare.
const MaxDecimals = 18

// ParseAsset parses the settlement-chain notation CHAIN.SYMBOL where SYMBOL is
// either TICKER or TICKER-ID, e.g. "BNB.BUSD-BD1" or "ETH.ETH".
func ParseAsset(s string, decimals int32) (Asset, error) {
	chain, symbol, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok || chain == "" || symbol == "" {
		return Asset{}, fmt.Errorf("domain: parse asset %q: %w", s, ErrInvalidRequest)
	}
	if decimals < 0 || decimals > MaxDecimals {
		return Asset{}, fmt.Errorf("domain: parse asset %q: decimals %d out of range: %w", s, decimals, ErrInvalidAmount)
	}
	ticker, id, _ := strings.Cut(symbol, "-")
	return Asset{
		Chain:    Chain(strings.ToUpper(chain)),
		Ticker:   strings.ToUpper(ticker),
		ID:       strings.ToUpper(id),
		Decimals: decimals,
	}, nil
}

// Symbol returns TICKER or TICKER-ID.
func (a Asset) Symbol() string {
	if a.ID == "" {
		return a.Ticker
	}
	return a.Ticker + "-" + a.ID
}

// String renders the asset in settlement-chain notation.
func (a Asset) String() string {
	return string(a.Chain) + "." + a.Symbol()
}

// Equal reports whether a and b name the same asset.
func (a Asset) Equal(b Asset) bool {
	return a.Chain == b.Chain && a.Ticker == b.Ticker && a.ID == b.ID
}

// IsRune reports whether a is the settlement chain's native asset.
func (a Asset) IsRune() bool {
	return a.Equal(AssetRune)
}

// IsZero reports whether a is the zero Asset.
func (a Asset) IsZero() bool {
	return a.Chain == "" && a.Ticker == ""
}

// WithDecimals returns a copy of a with a different precision.
func (a Asset) WithDecimals(decimals int32) Asset {
	a.Decimals = decimals
	return a
}

var gasAssets = map[Chain]Asset{
	ChainTHOR: AssetRune,
	ChainETH:  AssetETH,
	ChainBTC:  AssetBTC,
	ChainBNB:  AssetBNB,
	ChainBSC:  {Chain: ChainBSC, Ticker: "BNB", Decimals: 18},
	ChainAVAX: AssetAVAX,
	ChainGAIA: AssetATOM,
	ChainLTC:  {Chain: ChainLTC, Ticker: "LTC", Decimals: 8},
	ChainBCH:  {Chain: ChainBCH, Ticker: "BCH", Decimals: 8},
	ChainDOGE: {Chain: ChainDOGE, Ticker: "DOGE", Decimals: 8},
}

// GasAsset returns the native fee asset of chain. Unknown chains get an asset
// named after the chain with settlement precision.
func GasAsset(chain Chain) Asset {
	if a, ok := gasAssets[chain]; ok {
		return a
	}
	return Asset{Chain: chain, Ticker: string(chain), Decimals: SettlementDecimals}
}

// DecimalsUnknown asks LookupAsset to infer an asset's precision.
const DecimalsUnknown int32 = -1

// LookupAsset parses s and picks its precision: decimals when it is not
// DecimalsUnknown (0 is a valid precision), else the gas asset's precision
// when s names one, else settlement precision.
func LookupAsset(s string, decimals int32) (Asset, error) {
	a, err := ParseAsset(s, 0)
	if err != nil {
		return Asset{}, err
	}
	switch {
	case decimals == DecimalsUnknown:
		if gas := GasAsset(a.Chain); gas.Equal(a) {
			return a.WithDecimals(gas.Decimals), nil
		}
		return a.WithDecimals(SettlementDecimals), nil
	case decimals < 0 || decimals > MaxDecimals:
		return Asset{}, fmt.Errorf("domain: lookup asset %q: decimals %d out of range: %w", s, decimals, ErrInvalidAmount)
	default:
		return a.WithDecimals(decimals), nil
	}
}
