package db_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
)

var ctx = context.Background()

func TestListingRepository(t *testing.T) {
	for _, r := range newRepoManagers(t) {
		r := r
		t.Run(r.name, func(t *testing.T) {
			t.Run("add_get", func(t *testing.T) {
				testAddGetListing(t, r)
			})
			t.Run("by_status", func(t *testing.T) {
				testGetListingsByStatus(t, r)
			})
			t.Run("by_asset", func(t *testing.T) {
				testGetListingsByAsset(t, r)
			})
			t.Run("update", func(t *testing.T) {
				testUpdateListing(t, r)
			})
			t.Run("concurrent_claims", func(t *testing.T) {
				testConcurrentClaims(t, r)
			})
			t.Run("concurrent_listings_of_asset", func(t *testing.T) {
				testConcurrentListingsOfAsset(t, r)
			})
		})
	}
}

func testAddGetListing(t *testing.T, r repoManager) {
	repo := r.ListingRepository()
	listing := randomListing(t)

	require.NoError(t, repo.AddListing(ctx, listing))
	require.Error(t, repo.AddListing(ctx, listing))

	got, err := repo.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	require.Exactly(t, *listing, *got)

	got, err = repo.GetListing(ctx, "unknown")
	require.ErrorIs(t, err, domain.ErrListingNotFound)
	require.Nil(t, got)
}

func testGetListingsByStatus(t *testing.T, r repoManager) {
	repo := r.ListingRepository()

	before, err := repo.GetListingsByStatus(
		ctx, domain.ListingStatusOpen, domain.NewPage(1, 100),
	)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		listing := randomListing(t)
		require.NoError(t, repo.AddListing(ctx, listing))
		err := repo.UpdateListing(
			ctx, listing.ID,
			func(l *domain.Listing) (*domain.Listing, error) {
				if err := l.Open(randomEscrow()); err != nil {
					return nil, err
				}
				return l, nil
			},
		)
		require.NoError(t, err)
	}
	require.NoError(t, repo.AddListing(ctx, randomListing(t)))

	open, err := repo.GetListingsByStatus(
		ctx, domain.ListingStatusOpen, domain.NewPage(1, 100),
	)
	require.NoError(t, err)
	require.Len(t, open, len(before)+3)
	for _, l := range open {
		require.True(t, l.IsOpen())
		require.NotNil(t, l.Escrow)
	}

	firstPage, err := repo.GetListingsByStatus(
		ctx, domain.ListingStatusOpen, domain.NewPage(1, 2),
	)
	require.NoError(t, err)
	require.Len(t, firstPage, 2)
	secondPage, err := repo.GetListingsByStatus(
		ctx, domain.ListingStatusOpen, domain.NewPage(2, 2),
	)
	require.NoError(t, err)
	require.NotEmpty(t, secondPage)
	require.NotEqual(t, firstPage[0].ID, secondPage[0].ID)

	empty, err := repo.GetListingsByStatus(
		ctx, domain.ListingStatusFilled, domain.NewPage(1, 10),
	)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func testGetListingsByAsset(t *testing.T, r repoManager) {
	repo := r.ListingRepository()
	listing := randomListing(t)
	relisting := randomListing(t)
	relisting.Asset = listing.Asset

	require.NoError(t, repo.AddListing(ctx, listing))
	require.NoError(t, repo.AddListing(ctx, relisting))
	require.NoError(t, repo.AddListing(ctx, randomListing(t)))

	listings, err := repo.GetListingsByAsset(ctx, listing.Asset.Outpoint)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	listings, err = repo.GetListingsByAsset(ctx, domain.Outpoint{
		TxID: listing.Asset.TxID, VOut: 1,
	})
	require.NoError(t, err)
	require.Empty(t, listings)
}

func testUpdateListing(t *testing.T, r repoManager) {
	repo := r.ListingRepository()
	listing := randomListing(t)
	require.NoError(t, repo.AddListing(ctx, listing))

	err := repo.UpdateListing(
		ctx, listing.ID, func(l *domain.Listing) (*domain.Listing, error) {
			if err := l.Open(randomEscrow()); err != nil {
				return nil, err
			}
			if err := l.Claim("attempt", time.Minute); err != nil {
				return nil, err
			}
			return l, nil
		},
	)
	require.NoError(t, err)

	got, err := repo.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	require.True(t, got.IsOpen())
	require.NotNil(t, got.Settlement)
	require.Equal(t, "attempt", got.Settlement.AttemptID)

	failure := errors.New("failure")
	err = repo.UpdateListing(
		ctx, listing.ID, func(l *domain.Listing) (*domain.Listing, error) {
			return nil, failure
		},
	)
	require.ErrorIs(t, err, failure)

	err = repo.UpdateListing(
		ctx, listing.ID, func(l *domain.Listing) (*domain.Listing, error) {
			if err := l.Fill("attempt", randomHex(32)); err != nil {
				return nil, err
			}
			return l, nil
		},
	)
	require.NoError(t, err)

	got, err = repo.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	require.True(t, got.IsFilled())
	require.Nil(t, got.Escrow)
	require.Nil(t, got.Settlement)

	err = repo.UpdateListing(
		ctx, "unknown", func(l *domain.Listing) (*domain.Listing, error) {
			return l, nil
		},
	)
	require.ErrorIs(t, err, domain.ErrListingNotFound)
}

func testConcurrentClaims(t *testing.T, r repoManager) {
	repo := r.ListingRepository()
	listing := randomListing(t)
	require.NoError(t, repo.AddListing(ctx, listing))
	require.NoError(t, repo.UpdateListing(
		ctx, listing.ID, func(l *domain.Listing) (*domain.Listing, error) {
			if err := l.Open(randomEscrow()); err != nil {
				return nil, err
			}
			return l, nil
		},
	))

	const claimers = 8
	wg := &sync.WaitGroup{}
	results := make(chan error, claimers)
	for i := 0; i < claimers; i++ {
		attemptID := randomHex(16)
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.UpdateListing(
				ctx, listing.ID,
				func(l *domain.Listing) (*domain.Listing, error) {
					if err := l.Claim(attemptID, time.Minute); err != nil {
						return nil, err
					}
					return l, nil
				},
			)
		}()
	}
	wg.Wait()
	close(results)

	claimed := 0
	for err := range results {
		if err == nil {
			claimed++
			continue
		}
		require.ErrorIs(t, err, domain.ErrListingAlreadyClaimed)
	}
	require.Equal(t, 1, claimed)
}

func testConcurrentListingsOfAsset(t *testing.T, r repoManager) {
	errAlreadyListed := errors.New("asset already listed")
	asset := randomListing(t).Asset

	const sellers = 8
	wg := &sync.WaitGroup{}
	results := make(chan error, sellers)
	for i := 0; i < sellers; i++ {
		listing := randomListing(t)
		listing.Asset = asset
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.RunTransaction(
				ctx, false, func(ctx context.Context) (interface{}, error) {
					repo := r.ListingRepository()
					listings, err := repo.GetListingsByAsset(ctx, asset.Outpoint)
					if err != nil {
						return nil, err
					}
					if len(listings) > 0 {
						return nil, errAlreadyListed
					}
					return nil, repo.AddListing(ctx, listing)
				},
			)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	added := 0
	for err := range results {
		if err == nil {
			added++
		}
	}
	require.Equal(t, 1, added)

	listings, err := r.ListingRepository().GetListingsByAsset(ctx, asset.Outpoint)
	require.NoError(t, err)
	require.Len(t, listings, 1)
}
