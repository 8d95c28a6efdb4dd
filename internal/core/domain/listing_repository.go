package domain

import "context"

// ListingRepository is the abstraction for any kind of database intended to
// persist Listings.
type ListingRepository interface {
	// AddListing inserts a new listing.
	AddListing(ctx context.Context, listing *Listing) error
	// GetListing returns the listing with the given id or
	// ErrListingNotFound.
	GetListing(ctx context.Context, id string) (*Listing, error)
	// GetListingsByStatus returns the requested page of listings with the
	// given status, oldest first.
	GetListingsByStatus(
		ctx context.Context, status ListingStatus, page Page,
	) ([]Listing, error)
	// GetListingsByAsset returns all listings for the given asset. Within a
	// transaction, a listing of the same asset added by a concurrent
	// transaction makes one of the two fail.
	GetListingsByAsset(ctx context.Context, asset Outpoint) ([]Listing, error)
	// UpdateListing atomically reads, updates and writes back the listing
	// with the given id. Concurrent updates of the same listing never
	// interleave.
	UpdateListing(
		ctx context.Context, id string,
		updateFn func(l *Listing) (*Listing, error),
	) error
}
