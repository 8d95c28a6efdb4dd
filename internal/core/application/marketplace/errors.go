package marketplace

import (
	"errors"
	"fmt"
)

var (
	// ErrListingNotFound ...
	ErrListingNotFound = errors.New("listing not found")
	// ErrAttemptNotFound ...
	ErrAttemptNotFound = errors.New("purchase attempt not found")
	// ErrListingNotOpen is returned when trying to purchase a listing that is
	// not OPEN, or that stopped being OPEN while settling.
	ErrListingNotOpen = errors.New("listing is not open")
	// ErrListingNotPending is returned when submitting the seller signature
	// for a listing that is not PENDING.
	ErrListingNotPending = errors.New("listing is not pending")
	// ErrListingExpired ...
	ErrListingExpired = errors.New("listing has expired")
	// ErrListingBusy is returned when another purchase attempt is settling
	// the listing.
	ErrListingBusy = errors.New("listing is being settled by another purchase")
	// ErrAssetAlreadyListed ...
	ErrAssetAlreadyListed = errors.New("asset is already listed")
	// ErrAttemptNotPending is returned when finalizing an attempt that
	// already failed.
	ErrAttemptNotPending = errors.New("purchase attempt is not pending signatures")
	// ErrAssetAlreadySpent is returned when the listed asset has been spent
	// outside of the marketplace. The listing is cancelled.
	ErrAssetAlreadySpent = errors.New("asset already spent")
	// ErrInsufficientFunds is returned when buyer inputs can't cover price,
	// market fee and miner fee.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUnauthorized is returned when the listing cancellation proof is not
	// valid for the payout address.
	ErrUnauthorized = errors.New("proof of ownership of the payout address is not valid")
	// ErrServiceUnavailable is returned in case the oracle or the store can't
	// be reached.
	ErrServiceUnavailable = errors.New("service is unavailable, try again later")
)

// ValidationError is returned for malformed or incomplete requests. The
// caller can fix and resubmit.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Reason, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// FraudError is returned when a transaction doesn't match the agreed
// terms. The purchase attempt, if any, is abandoned.
type FraudError struct {
	Field string
	Err   error
}

func (e *FraudError) Error() string {
	return fmt.Sprintf("fraud detected on %s: %s", e.Field, e.Err)
}

func (e *FraudError) Unwrap() error {
	return e.Err
}

// BroadcastError is returned when the network refuses the settlement
// transaction. The purchase attempt is FAILED and the listing stays OPEN.
type BroadcastError struct {
	Err error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("failed to broadcast transaction: %s", e.Err)
}

func (e *BroadcastError) Unwrap() error {
	return e.Err
}

func newValidationError(reason string, err error) error {
	return &ValidationError{reason, err}
}

func newFraudError(field string, err error) error {
	return &FraudError{field, err}
}
