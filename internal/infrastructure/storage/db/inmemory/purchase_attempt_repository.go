package inmemory

import (
	"context"

	"github.com/tdex-network/ordex-daemon/internal/core/domain"
)

type purchaseAttemptRepository struct {
	store *store
}

func (r *purchaseAttemptRepository) AddPurchaseAttempt(
	ctx context.Context, attempt *domain.PurchaseAttempt,
) error {
	return r.store.write(ctx, func() error {
		if _, ok := r.store.attempts[attempt.ID]; ok {
			return ErrPurchaseAttemptAlreadyExists
		}
		r.store.attempts[attempt.ID] = *attempt
		return nil
	})
}

func (r *purchaseAttemptRepository) GetPurchaseAttempt(
	_ context.Context, id string,
) (*domain.PurchaseAttempt, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	attempt, ok := r.store.attempts[id]
	if !ok {
		return nil, domain.ErrPurchaseAttemptNotFound
	}
	return &attempt, nil
}

func (r *purchaseAttemptRepository) GetPendingPurchaseAttempts(
	_ context.Context, listingID string,
) ([]domain.PurchaseAttempt, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	attempts := make([]domain.PurchaseAttempt, 0)
	for _, a := range r.store.attempts {
		if a.ListingID == listingID && a.IsPending() {
			attempts = append(attempts, a)
		}
	}
	return attempts, nil
}

func (r *purchaseAttemptRepository) UpdatePurchaseAttempt(
	ctx context.Context, id string,
	updateFn func(a *domain.PurchaseAttempt) (*domain.PurchaseAttempt, error),
) error {
	return r.store.write(ctx, func() error {
		attempt, ok := r.store.attempts[id]
		if !ok {
			return domain.ErrPurchaseAttemptNotFound
		}

		updatedAttempt, err := updateFn(&attempt)
		if err != nil {
			return err
		}
		r.store.attempts[id] = *updatedAttempt
		return nil
	})
}
