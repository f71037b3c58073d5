package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrProtectedAccount  = errors.New("account is protected")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidPlan       = errors.New("invalid plan")
	ErrAlreadyOwned      = errors.New("plan already owned")
	ErrCooling           = errors.New("mining is cooling down")
	ErrInvalidCode       = errors.New("invalid referral code")
	ErrSelfReferral      = errors.New("account cannot refer itself")
	ErrEmailInUse        = errors.New("email already in use")
	ErrIncorrectSecret   = errors.New("incorrect secret")
	ErrAccountBlocked    = errors.New("account is blocked")
	ErrInvalidProof      = errors.New("proof is required")
	ErrAlreadySettled    = errors.New("transaction already settled")
	ErrBalanceMismatch   = errors.New("balance does not match journal")
	ErrInvalidInput      = errors.New("invalid input")
)

// CoolingError is returned by Collect while the cooldown window is open.
// It matches ErrCooling with errors.Is.
type CoolingError struct {
	Remaining time.Duration
}

// HoursRemaining rounds the remaining wait up to whole hours.
func (e *CoolingError) HoursRemaining() int {
	return int(math.Ceil(e.Remaining.Hours()))
}

func (e *CoolingError) Error() string {
	return fmt.Sprintf("%s: %d hours remaining", ErrCooling, e.HoursRemaining())
}

func (e *CoolingError) Is(target error) bool {
	return target == ErrCooling
}
