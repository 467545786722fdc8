package thornode

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// --------------------------------------------------------------------------
// THORNode API DTOs
// --------------------------------------------------------------------------

// APIPool is a pool as returned by /thorchain/pool/{asset}. Depths are
// strings of 1e8 base units.
type APIPool struct {
	Asset        string `json:"asset"`
	Status       string `json:"status"`
	Decimals     int32  `json:"decimals"`
	BalanceAsset string `json:"balance_asset"`
	BalanceRune  string `json:"balance_rune"`
	PoolUnits    string `json:"pool_units"`
	LPUnits      string `json:"LP_units"`
}

// APILiquidityProvider is returned by /thorchain/pool/{asset}/liquidity_provider/{address}.
type APILiquidityProvider struct {
	Asset              string `json:"asset"`
	RuneAddress        string `json:"rune_address"`
	AssetAddress       string `json:"asset_address"`
	Units              string `json:"units"`
	PendingRune        string `json:"pending_rune"`
	PendingAsset       string `json:"pending_asset"`
	RuneDepositValue   string `json:"rune_deposit_value"`
	AssetDepositValue  string `json:"asset_deposit_value"`
	LastAddHeight      int64  `json:"last_add_height"`
	LastWithdrawHeight int64  `json:"last_withdraw_height"`
}

// APIInboundAddress is one entry of /thorchain/inbound_addresses.
type APIInboundAddress struct {
	Chain               string `json:"chain"`
	Address             string `json:"address"`
	Router              string `json:"router"`
	Halted              bool   `json:"halted"`
	ChainTradingPaused  bool   `json:"chain_trading_paused"`
	ChainLPActionsPause bool   `json:"chain_lp_actions_paused"`
	GlobalTradingPaused bool   `json:"global_trading_paused"`
	DustThreshold       string `json:"dust_threshold"`
}

// APILastBlock is one entry of /thorchain/lastblock.
type APILastBlock struct {
	Chain          string `json:"chain"`
	LastObservedIn int64  `json:"last_observed_in"`
	Thorchain      int64  `json:"thorchain"`
}

// APITxStatus is the subset of /thorchain/tx/status/{hash} used to detect
// inbound observation.
type APITxStatus struct {
	Stages struct {
		InboundObserved struct {
			Started   *bool `json:"started,omitempty"`
			Completed bool  `json:"completed"`
		} `json:"inbound_observed"`
		InboundFinalised *struct {
			Completed bool `json:"completed"`
		} `json:"inbound_finalised,omitempty"`
	} `json:"stages"`
}

// --------------------------------------------------------------------------
// Conversions
// --------------------------------------------------------------------------

func parseBase(field, s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("thornode: %s %q is not an integer", field, s)
	}
	return n, nil
}

func settlementAmount(asset domain.Asset, field, s string) (domain.Amount, error) {
	n, err := parseBase(field, s)
	if err != nil {
		return domain.Amount{}, err
	}
	return domain.AmountFromBase(asset.WithDecimals(domain.SettlementDecimals), n), nil
}

func parseUnits(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("thornode: %s %q: %w", field, s, err)
	}
	return d, nil
}

func toPoolStatus(s string) domain.PoolStatus {
	switch strings.ToLower(s) {
	case "available":
		return domain.PoolStatusAvailable
	case "staged":
		return domain.PoolStatusStaged
	default:
		return domain.PoolStatusSuspended
	}
}

// ToDomainPool converts the DTO. The asset precision is taken from the
// response when THORNode reports one, otherwise from fallback.
func (p APIPool) ToDomainPool(fallback domain.Asset) (domain.PoolSnapshot, error) {
	dec := fallback.Decimals
	if p.Decimals > 0 {
		dec = p.Decimals
	}
	asset, err := domain.ParseAsset(p.Asset, dec)
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("thornode: pool asset: %w", err)
	}
	assetDepth, err := settlementAmount(asset, "balance_asset", p.BalanceAsset)
	if err != nil {
		return domain.PoolSnapshot{}, err
	}
	runeDepth, err := settlementAmount(domain.AssetRune, "balance_rune", p.BalanceRune)
	if err != nil {
		return domain.PoolSnapshot{}, err
	}
	units, err := parseUnits("pool_units", p.PoolUnits)
	if err != nil {
		return domain.PoolSnapshot{}, err
	}
	return domain.PoolSnapshot{
		Asset:      asset,
		AssetDepth: assetDepth,
		RuneDepth:  runeDepth,
		PoolUnits:  units,
		Status:     toPoolStatus(p.Status),
	}, nil
}

// ToDomainRecord converts the DTO for the given pool asset.
func (lp APILiquidityProvider) ToDomainRecord(pool domain.Asset) (domain.LiquidityPositionRecord, error) {
	rec := domain.LiquidityPositionRecord{
		Asset:              pool,
		AssetAddress:       lp.AssetAddress,
		RuneAddress:        lp.RuneAddress,
		LastAddHeight:      lp.LastAddHeight,
		LastWithdrawHeight: lp.LastWithdrawHeight,
	}
	var err error
	if rec.Units, err = parseUnits("units", lp.Units); err != nil {
		return rec, err
	}
	if rec.AssetDepositValue, err = settlementAmount(pool, "asset_deposit_value", lp.AssetDepositValue); err != nil {
		return rec, err
	}
	if rec.RuneDepositValue, err = settlementAmount(domain.AssetRune, "rune_deposit_value", lp.RuneDepositValue); err != nil {
		return rec, err
	}
	if rec.PendingAsset, err = settlementAmount(pool, "pending_asset", lp.PendingAsset); err != nil {
		return rec, err
	}
	if rec.PendingRune, err = settlementAmount(domain.AssetRune, "pending_rune", lp.PendingRune); err != nil {
		return rec, err
	}
	return rec, nil
}

// ToDomainInbound converts the DTO. A chain whose LP actions or trading are
// paused is reported as halted.
func (a APIInboundAddress) ToDomainInbound() (domain.InboundAddress, error) {
	chain := domain.Chain(strings.ToUpper(a.Chain))
	dust, err := settlementAmount(domain.GasAsset(chain), "dust_threshold", a.DustThreshold)
	if err != nil {
		return domain.InboundAddress{}, err
	}
	return domain.InboundAddress{
		Chain:         chain,
		Address:       a.Address,
		Router:        a.Router,
		DustThreshold: dust,
		Halted:        a.Halted || a.ChainTradingPaused || a.ChainLPActionsPause || a.GlobalTradingPaused,
	}, nil
}
