package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrContextDone  = errors.New("context cancelled")

	ErrInvalidAmount     = errors.New("invalid amount")
	ErrAssetMismatch     = errors.New("asset mismatch")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidPercentage = errors.New("invalid percentage")

	ErrPoolNotFound     = errors.New("pool not found")
	ErrPoolStaged       = errors.New("pool staged")
	ErrPositionNotFound = errors.New("position not found")

	ErrChainNotConfigured      = errors.New("chain not configured")
	ErrAddressResolutionFailed = errors.New("address resolution failed")
	ErrChainHalted             = errors.New("chain halted")

	ErrLegDispatchFailed  = errors.New("leg dispatch failed")
	ErrObservationTimeout = errors.New("leg observation timed out")
	ErrPartialSuccess     = errors.New("partial success")

	ErrSigningFailed = errors.New("signing failed")
	ErrLockHeld      = errors.New("lock held by another process")
)

// LegError describes the failure of one leg of a liquidity action. It matches
// both ErrLegDispatchFailed and its cause under errors.Is.
type LegError struct {
	Role  LegRole
	Chain Chain
	Stage Stage
	Err   error
}

func (e *LegError) Error() string {
	return fmt.Sprintf("%s leg on %s failed at %s: %v", e.Role, e.Chain, e.Stage, e.Err)
}

func (e *LegError) Unwrap() []error {
	return []error{ErrLegDispatchFailed, e.Err}
}

// PartialError is returned when the asset leg committed and the rune leg did
// not. It matches ErrPartialSuccess and the failed leg's LegError.
type PartialError struct {
	Committed LegResult
	Failed    *LegError
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("partial success: %s leg committed as %s; %v",
		e.Committed.Role, e.Committed.TxID, e.Failed)
}

func (e *PartialError) Unwrap() []error {
	return []error{ErrPartialSuccess, e.Failed}
}

// IsPartial reports whether err signals a partially committed action.
func IsPartial(err error) bool {
	return errors.Is(err, ErrPartialSuccess)
}
