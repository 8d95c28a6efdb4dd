package dbbadger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type listingRepository struct {
	store *badgerhold.Store
}

// assetLock is rewritten by every listing insert of an asset. Reading and
// writing it makes concurrent transactions listing the same asset conflict.
type assetLock struct {
	ListingID string
}

func (r *listingRepository) AddListing(
	ctx context.Context, listing *domain.Listing,
) error {
	return update(ctx, r.store, func(tx *badger.Txn) error {
		err := r.store.TxInsert(tx, listing.ID, *listing)
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return ErrListingAlreadyExists
		}
		if err != nil {
			return err
		}

		key := listing.Asset.Outpoint.String()
		var lock assetLock
		if err := r.store.TxGet(tx, key, &lock); err != nil &&
			!errors.Is(err, badgerhold.ErrNotFound) {
			return err
		}
		return r.store.TxUpsert(tx, key, assetLock{listing.ID})
	})
}

func (r *listingRepository) GetListing(
	ctx context.Context, id string,
) (*domain.Listing, error) {
	var listing domain.Listing
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxGet(tx, id, &listing)
	} else {
		err = r.store.Get(id, &listing)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepository) GetListingsByStatus(
	ctx context.Context, status domain.ListingStatus, page domain.Page,
) ([]domain.Listing, error) {
	query := badgerhold.Where("Status").Eq(status).
		SortBy("CreatedAt", "ID").
		Skip(page.Offset()).
		Limit(page.Size)
	return r.findListings(ctx, query)
}

func (r *listingRepository) GetListingsByAsset(
	ctx context.Context, asset domain.Outpoint,
) ([]domain.Listing, error) {
	query := badgerhold.Where("Asset.TxID").Eq(asset.TxID).
		And("Asset.VOut").Eq(asset.VOut)
	return r.findListings(ctx, query)
}

func (r *listingRepository) UpdateListing(
	ctx context.Context, id string,
	updateFn func(l *domain.Listing) (*domain.Listing, error),
) error {
	return update(ctx, r.store, func(tx *badger.Txn) error {
		var listing domain.Listing
		if err := r.store.TxGet(tx, id, &listing); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrListingNotFound
			}
			return err
		}

		updatedListing, err := updateFn(&listing)
		if err != nil {
			return err
		}
		return r.store.TxUpdate(tx, id, *updatedListing)
	})
}

func (r *listingRepository) findListings(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.Listing, error) {
	var listings []domain.Listing
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxFind(tx, &listings, query)
	} else {
		err = r.store.Find(&listings, query)
	}
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = make([]domain.Listing, 0)
	}
	return listings, nil
}
