package ports

import (
	"context"

	"github.com/tdex-network/ordex-daemon/internal/core/domain"
)

// RepoManager interface defines the methods for listings and purchase
// attempts.
type RepoManager interface {
	ListingRepository() domain.ListingRepository
	PurchaseAttemptRepository() domain.PurchaseAttemptRepository

	// RunTransaction executes the handler within a single database
	// transaction. Repositories invoked with the ctx passed to the handler
	// take part in it, and any error rolls back all of their writes.
	RunTransaction(
		ctx context.Context,
		readOnly bool,
		handler func(ctx context.Context) (interface{}, error),
	) (interface{}, error)

	Close()
}
