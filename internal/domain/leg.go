package domain

import "time"

// LegRole tells which side of a pool a chain transaction belongs to.
type LegRole string

const (
	LegRoleAsset LegRole = "asset"
	LegRoleRune  LegRole = "rune"
)

// Stage is a step of the liquidity action state machine.
type Stage string

const (
	StageValidated         Stage = "validated"
	StageAddressesResolved Stage = "addresses_resolved"
	StageMemoBuilt         Stage = "memo_built"
	StageDispatching       Stage = "dispatching"
	StageObserving         Stage = "observing"
	StageDone              Stage = "done"
)

// LegResult is the outcome of one chain-native transaction.
type LegResult struct {
	Role        LegRole
	Chain       Chain
	From        string
	To          string
	Amount      Amount
	Memo        string
	TxID        string // set on success
	Err         error  // set on failure
	Attempted   bool   // false when the leg was never broadcast
	SubmittedAt time.Time
}

// OK reports whether the leg was broadcast successfully.
func (l LegResult) OK() bool {
	return l.Attempted && l.Err == nil && l.TxID != ""
}

// ActionKind names the liquidity action.
type ActionKind string

const (
	ActionAdd      ActionKind = "add"
	ActionWithdraw ActionKind = "withdraw"
)

// Mode is symmetric (both sides) or asymmetric (one side).
type Mode string

const (
	ModeSymmetric       Mode = "symmetric"
	ModeAsymmetricAsset Mode = "asymmetric_asset"
	ModeAsymmetricRune  Mode = "asymmetric_rune"
)

// OutcomeStatus is the terminal state of a liquidity action.
type OutcomeStatus string

const (
	OutcomeSuccess        OutcomeStatus = "success"
	OutcomePartialSuccess OutcomeStatus = "partial_success"
	OutcomeFailed         OutcomeStatus = "failed"
)

// Outcome is the per-leg result of an add or withdraw call.
type Outcome struct {
	Action ActionKind
	Pool   Asset
	Mode   Mode
	Status OutcomeStatus
	Stage  Stage // last stage reached
	Legs   []LegResult
}

// Leg returns the result for role, if present.
func (o Outcome) Leg(role LegRole) (LegResult, bool) {
	for _, l := range o.Legs {
		if l.Role == role {
			return l, true
		}
	}
	return LegResult{}, false
}

// TxIDs returns the identifiers of every committed leg in dispatch order.
func (o Outcome) TxIDs() []string {
	var ids []string
	for _, l := range o.Legs {
		if l.OK() {
			ids = append(ids, l.TxID)
		}
	}
	return ids
}
