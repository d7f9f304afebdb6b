package pool

import (
	"errors"

	"github.com/patronhq/poolengine/fixedpoint"
	"github.com/patronhq/poolengine/token"
)

var (
	// ErrUnauthorized indicates the caller lacks the required role.
	ErrUnauthorized = errors.New("pool: unauthorized")

	// ErrInvalidTier indicates the tier is inactive or the pool is not accepting commitments.
	ErrInvalidTier = errors.New("pool: tier not accepting commitments")

	// ErrTierNotFound indicates the tier index does not exist.
	ErrTierNotFound = errors.New("pool: tier not found")

	// ErrInvalidTierSpec indicates inconsistent tier pricing or capacity.
	ErrInvalidTierSpec = errors.New("pool: invalid tier spec")

	// ErrTierLocked indicates a tier already has commitments and cannot be edited.
	ErrTierLocked = errors.New("pool: tier has commitments")

	// ErrPriceMismatch indicates a fixed-price tier received a different amount.
	ErrPriceMismatch = errors.New("pool: amount does not match tier price")

	// ErrOutOfRange indicates a variable-price tier received an amount outside its bounds.
	ErrOutOfRange = errors.New("pool: amount outside tier price range")

	// ErrTierFull indicates the tier reached its patron capacity.
	ErrTierFull = errors.New("pool: tier is full")

	// ErrCapExceeded indicates the commitment would push the pool over its cap.
	ErrCapExceeded = errors.New("pool: commitment exceeds pool cap")

	// ErrZeroAmount indicates an amount of zero where a positive amount is required.
	ErrZeroAmount = errors.New("pool: amount must be positive")

	// ErrInvalidAccount indicates the unset address or a pool custody account
	// was given as an actor.
	ErrInvalidAccount = errors.New("pool: invalid account")

	// ErrInvalidParams indicates invalid pool creation parameters.
	ErrInvalidParams = errors.New("pool: invalid parameters")

	// ErrInvalidFee indicates fee basis points above 10000.
	ErrInvalidFee = errors.New("pool: fee basis points out of range")

	// ErrFeeLocked indicates the fee can no longer change because revenue was received.
	ErrFeeLocked = errors.New("pool: fee locked after first revenue")

	// ErrNotConfigurable indicates tiers cannot be changed in the current status.
	ErrNotConfigurable = errors.New("pool: pool is not open for configuration")

	// ErrNoTiers indicates activation of a pool without tiers.
	ErrNoTiers = errors.New("pool: pool has no tiers")

	// ErrInvalidTransition indicates a status change not in the transition table.
	ErrInvalidTransition = errors.New("pool: invalid status transition")

	// ErrTargetNotReached indicates the pool has not crossed its funding target.
	ErrTargetNotReached = errors.New("pool: target not reached")

	// ErrPoolNotFailed indicates a refund on a pool that neither failed nor was cancelled.
	ErrPoolNotFailed = errors.New("pool: pool has not failed")

	// ErrCapitalWithdrawn indicates cancellation after the owner drew capital.
	ErrCapitalWithdrawn = errors.New("pool: capital already withdrawn")

	// ErrRevenueNotAccepted indicates revenue sent to a pool that is not executing.
	ErrRevenueNotAccepted = errors.New("pool: pool is not accepting revenue")

	// ErrNoShares indicates revenue sent to a pool with zero share supply.
	ErrNoShares = errors.New("pool: no shares outstanding")

	// ErrExceedsAvailable indicates a withdrawal larger than the available capital.
	ErrExceedsAvailable = errors.New("pool: amount exceeds available funds")

	// ErrNothingToWithdraw indicates a withdraw-all request with nothing available.
	ErrNothingToWithdraw = errors.New("pool: no funds available to withdraw")

	// ErrNothingToRefund indicates the patron has no unrefunded commitment.
	ErrNothingToRefund = errors.New("pool: nothing to refund")

	// ErrInsufficientFunds indicates the payer's token balance is too low.
	ErrInsufficientFunds = errors.New("pool: insufficient token balance")

	// ErrConservationViolated indicates the accounting invariants do not hold.
	ErrConservationViolated = errors.New("pool: conservation violated")

	// ErrPoolNotFound indicates an unknown pool id.
	ErrPoolNotFound = errors.New("pool: pool not found")

	// ErrPoolExists indicates a duplicate pool id.
	ErrPoolExists = errors.New("pool: pool already exists")
)

// Kind groups errors for callers that only need to know the category.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindInvalidState
	KindValidation
	KindInsufficientFunds
	KindArithmeticOverflow
	KindNotFound
)

// String returns the name of k.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "Unauthorized"
	case KindInvalidState:
		return "InvalidState"
	case KindValidation:
		return "ValidationError"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindArithmeticOverflow:
		return "ArithmeticOverflow"
	case KindNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrUnauthorized, KindUnauthorized},

	{ErrInvalidTier, KindInvalidState},
	{ErrTierLocked, KindInvalidState},
	{ErrFeeLocked, KindInvalidState},
	{ErrNotConfigurable, KindInvalidState},
	{ErrNoTiers, KindInvalidState},
	{ErrInvalidTransition, KindInvalidState},
	{ErrTargetNotReached, KindInvalidState},
	{ErrPoolNotFailed, KindInvalidState},
	{ErrCapitalWithdrawn, KindInvalidState},
	{ErrRevenueNotAccepted, KindInvalidState},
	{ErrNoShares, KindInvalidState},
	{ErrConservationViolated, KindInvalidState},

	{ErrTierNotFound, KindValidation},
	{ErrInvalidTierSpec, KindValidation},
	{ErrPriceMismatch, KindValidation},
	{ErrOutOfRange, KindValidation},
	{ErrTierFull, KindValidation},
	{ErrCapExceeded, KindValidation},
	{ErrZeroAmount, KindValidation},
	{ErrInvalidAccount, KindValidation},
	{ErrInvalidParams, KindValidation},
	{ErrInvalidFee, KindValidation},
	{ErrPoolExists, KindValidation},

	{ErrExceedsAvailable, KindInsufficientFunds},
	{ErrNothingToWithdraw, KindInsufficientFunds},
	{ErrNothingToRefund, KindInsufficientFunds},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{token.ErrInsufficientBalance, KindInsufficientFunds},

	{fixedpoint.ErrOverflow, KindArithmeticOverflow},
	{fixedpoint.ErrUnderflow, KindArithmeticOverflow},
	{fixedpoint.ErrDivideByZero, KindArithmeticOverflow},

	{ErrPoolNotFound, KindNotFound},
}

// KindOf classifies err. Errors from other packages map to KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
