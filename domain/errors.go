package domain

import (
	"errors"
	"fmt"
)

// Business rule violations. Callers match them with errors.Is.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoPrizesAvailable = errors.New("no prizes available")
	ErrWeightOverflow    = errors.New("active prize weights exceed 100")
	ErrRecordNotFound    = errors.New("ledger record not found")
	ErrAlreadyRevoked    = errors.New("ledger record already revoked")

	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidUserID         = errors.New("user id is required")
	ErrPrizeNotFound         = errors.New("prize not found")
	ErrLevelNotFound         = errors.New("level not found")
	ErrLevelInactive         = errors.New("level is not active")
	ErrLevelAlreadyCompleted = errors.New("level already completed")
	ErrInvalidLevel          = errors.New("invalid level definition")
	ErrOwnershipNotFound     = errors.New("prize ownership not found")
	ErrInvalidWeight         = errors.New("weight must be between 0 and 100")
	ErrInvalidAmount         = errors.New("invalid point amount")
	ErrInvalidPrize          = errors.New("invalid prize definition")
	ErrFillerExists          = errors.New("a filler prize already exists")
	ErrFillerProtected       = errors.New("filler prize cannot be removed or disabled")
)

// Store failures
var (
	// ErrStoreConflict is a transient concurrency failure. The operation
	// changed nothing and is safe to retry.
	ErrStoreConflict = errors.New("store conflict")

	// ErrStoreUnavailable is fatal for the current request.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// WeightOverflowError reports the active non-filler weight sum that broke
// the 100 point ceiling.
type WeightOverflowError struct {
	Sum float64
}

func (e *WeightOverflowError) Error() string {
	return fmt.Sprintf("active prize weights sum to %.4f, exceeding 100", e.Sum)
}

func (e *WeightOverflowError) Unwrap() error {
	return ErrWeightOverflow
}

// InsufficientFundsError carries the balance and cost of a rejected debit.
type InsufficientFundsError struct {
	Balance int64
	Cost    int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: have %d, need %d", e.Balance, e.Cost)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
