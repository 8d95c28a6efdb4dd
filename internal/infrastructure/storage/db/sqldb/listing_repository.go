package sqldb

import (
	"context"
	"errors"

	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type listingRepository struct {
	db *gorm.DB
}

func (r *listingRepository) AddListing(
	ctx context.Context, listing *domain.Listing,
) error {
	res := conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(toListingModel(listing))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrListingAlreadyExists
	}
	return nil
}

func (r *listingRepository) GetListing(
	ctx context.Context, id string,
) (*domain.Listing, error) {
	var m listingModel
	if err := conn(ctx, r.db).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrListingNotFound
		}
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *listingRepository) GetListingsByStatus(
	ctx context.Context, status domain.ListingStatus, page domain.Page,
) ([]domain.Listing, error) {
	var models []listingModel
	err := conn(ctx, r.db).
		Where("status = ?", string(status)).
		Order("created_at").Order("id").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toListings(models), nil
}

func (r *listingRepository) GetListingsByAsset(
	ctx context.Context, asset domain.Outpoint,
) ([]domain.Listing, error) {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		if err := lockAsset(tx, asset); err != nil {
			return nil, err
		}
	}

	var models []listingModel
	err := conn(ctx, r.db).
		Where("asset_txid = ? AND asset_vout = ?", asset.TxID, asset.VOut).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toListings(models), nil
}

func (r *listingRepository) UpdateListing(
	ctx context.Context, id string,
	updateFn func(l *domain.Listing) (*domain.Listing, error),
) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		var m listingModel
		if err := forUpdate(tx).First(&m, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrListingNotFound
			}
			return err
		}

		updatedListing, err := updateFn(m.toDomain())
		if err != nil {
			return err
		}
		return tx.Save(toListingModel(updatedListing)).Error
	})
}

func toListings(models []listingModel) []domain.Listing {
	listings := make([]domain.Listing, 0, len(models))
	for i := range models {
		listings = append(listings, *models[i].toDomain())
	}
	return listings
}

// forUpdate locks the selected rows until the end of the transaction where
// the dialect supports row-level locking.
// lockAsset holds the row lock of the asset until the end of the
// transaction, so that concurrent transactions listing the same asset run
// one after the other.
func lockAsset(tx *gorm.DB, asset domain.Outpoint) error {
	lock := assetLockModel{Outpoint: asset.String()}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&lock).Error; err != nil {
		return err
	}
	return forUpdate(tx).First(&lock, "outpoint = ?", lock.Outpoint).Error
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == DriverPostgres {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
