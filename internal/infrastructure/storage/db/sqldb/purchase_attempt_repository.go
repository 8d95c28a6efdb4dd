package sqldb

import (
	"context"
	"errors"

	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type purchaseAttemptRepository struct {
	db *gorm.DB
}

func (r *purchaseAttemptRepository) AddPurchaseAttempt(
	ctx context.Context, attempt *domain.PurchaseAttempt,
) error {
	res := conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(toAttemptModel(attempt))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPurchaseAttemptAlreadyExists
	}
	return nil
}

func (r *purchaseAttemptRepository) GetPurchaseAttempt(
	ctx context.Context, id string,
) (*domain.PurchaseAttempt, error) {
	var m attemptModel
	if err := conn(ctx, r.db).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPurchaseAttemptNotFound
		}
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *purchaseAttemptRepository) GetPendingPurchaseAttempts(
	ctx context.Context, listingID string,
) ([]domain.PurchaseAttempt, error) {
	var models []attemptModel
	err := conn(ctx, r.db).
		Where(
			"listing_id = ? AND state = ?",
			listingID, string(domain.AttemptStatePendingSignatures),
		).
		Order("created_at").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.PurchaseAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, *models[i].toDomain())
	}
	return attempts, nil
}

func (r *purchaseAttemptRepository) UpdatePurchaseAttempt(
	ctx context.Context, id string,
	updateFn func(a *domain.PurchaseAttempt) (*domain.PurchaseAttempt, error),
) error {
	return inTx(ctx, r.db, func(tx *gorm.DB) error {
		var m attemptModel
		if err := forUpdate(tx).First(&m, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPurchaseAttemptNotFound
			}
			return err
		}

		updatedAttempt, err := updateFn(m.toDomain())
		if err != nil {
			return err
		}
		return tx.Save(toAttemptModel(updatedAttempt)).Error
	})
}
