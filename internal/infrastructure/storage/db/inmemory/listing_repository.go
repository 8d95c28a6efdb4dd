package inmemory

import (
	"context"
	"sort"

	"github.com/tdex-network/ordex-daemon/internal/core/domain"
)

type listingRepository struct {
	store *store
}

func (r *listingRepository) AddListing(
	ctx context.Context, listing *domain.Listing,
) error {
	return r.store.write(ctx, func() error {
		if _, ok := r.store.listings[listing.ID]; ok {
			return ErrListingAlreadyExists
		}
		r.store.listings[listing.ID] = *listing
		return nil
	})
}

func (r *listingRepository) GetListing(
	_ context.Context, id string,
) (*domain.Listing, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	listing, ok := r.store.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return &listing, nil
}

func (r *listingRepository) GetListingsByStatus(
	_ context.Context, status domain.ListingStatus, page domain.Page,
) ([]domain.Listing, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	listings := make([]domain.Listing, 0)
	for _, l := range r.store.listings {
		if l.Status == status {
			listings = append(listings, l)
		}
	}
	sort.SliceStable(listings, func(i, j int) bool {
		if listings[i].CreatedAt == listings[j].CreatedAt {
			return listings[i].ID < listings[j].ID
		}
		return listings[i].CreatedAt < listings[j].CreatedAt
	})

	return paginate(listings, page), nil
}

func (r *listingRepository) GetListingsByAsset(
	_ context.Context, asset domain.Outpoint,
) ([]domain.Listing, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	listings := make([]domain.Listing, 0)
	for _, l := range r.store.listings {
		if l.Asset.Outpoint == asset {
			listings = append(listings, l)
		}
	}
	return listings, nil
}

func (r *listingRepository) UpdateListing(
	ctx context.Context, id string,
	updateFn func(l *domain.Listing) (*domain.Listing, error),
) error {
	return r.store.write(ctx, func() error {
		listing, ok := r.store.listings[id]
		if !ok {
			return domain.ErrListingNotFound
		}

		updatedListing, err := updateFn(&listing)
		if err != nil {
			return err
		}
		r.store.listings[id] = *updatedListing
		return nil
	})
}

func paginate(listings []domain.Listing, page domain.Page) []domain.Listing {
	start := page.Offset()
	if start >= len(listings) {
		return []domain.Listing{}
	}
	end := start + page.Size
	if end > len(listings) {
		end = len(listings)
	}
	return listings[start:end]
}
