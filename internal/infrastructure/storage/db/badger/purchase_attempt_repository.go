package dbbadger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type purchaseAttemptRepository struct {
	store *badgerhold.Store
}

func (r *purchaseAttemptRepository) AddPurchaseAttempt(
	ctx context.Context, attempt *domain.PurchaseAttempt,
) error {
	return update(ctx, r.store, func(tx *badger.Txn) error {
		err := r.store.TxInsert(tx, attempt.ID, *attempt)
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return ErrPurchaseAttemptAlreadyExists
		}
		return err
	})
}

func (r *purchaseAttemptRepository) GetPurchaseAttempt(
	ctx context.Context, id string,
) (*domain.PurchaseAttempt, error) {
	var attempt domain.PurchaseAttempt
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxGet(tx, id, &attempt)
	} else {
		err = r.store.Get(id, &attempt)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrPurchaseAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *purchaseAttemptRepository) GetPendingPurchaseAttempts(
	ctx context.Context, listingID string,
) ([]domain.PurchaseAttempt, error) {
	query := badgerhold.Where("ListingID").Eq(listingID).
		And("State").Eq(domain.AttemptStatePendingSignatures)

	var attempts []domain.PurchaseAttempt
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxFind(tx, &attempts, query)
	} else {
		err = r.store.Find(&attempts, query)
	}
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = make([]domain.PurchaseAttempt, 0)
	}
	return attempts, nil
}

func (r *purchaseAttemptRepository) UpdatePurchaseAttempt(
	ctx context.Context, id string,
	updateFn func(a *domain.PurchaseAttempt) (*domain.PurchaseAttempt, error),
) error {
	return update(ctx, r.store, func(tx *badger.Txn) error {
		var attempt domain.PurchaseAttempt
		if err := r.store.TxGet(tx, id, &attempt); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrPurchaseAttemptNotFound
			}
			return err
		}

		updatedAttempt, err := updateFn(&attempt)
		if err != nil {
			return err
		}
		return r.store.TxUpdate(tx, id, *updatedAttempt)
	})
}
