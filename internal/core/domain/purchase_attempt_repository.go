package domain

import "context"

// PurchaseAttemptRepository is the abstraction for any kind of database
// intended to persist PurchaseAttempts.
type PurchaseAttemptRepository interface {
	AddPurchaseAttempt(ctx context.Context, attempt *PurchaseAttempt) error
	// GetPurchaseAttempt returns the attempt with the given id or
	// ErrPurchaseAttemptNotFound.
	GetPurchaseAttempt(ctx context.Context, id string) (*PurchaseAttempt, error)
	// GetPendingPurchaseAttempts returns all attempts of the given listing
	// in PENDING_SIGNATURES state.
	GetPendingPurchaseAttempts(
		ctx context.Context, listingID string,
	) ([]PurchaseAttempt, error)
	UpdatePurchaseAttempt(
		ctx context.Context, id string,
		updateFn func(a *PurchaseAttempt) (*PurchaseAttempt, error),
	) error
}
