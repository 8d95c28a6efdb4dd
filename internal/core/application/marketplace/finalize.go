package marketplace

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/tdex-network/ordex-daemon/pkg/ordswap"
)

// FinalizePurchase checks the buyer-signed transaction against the listing
// and the purchase attempt, and only if everything matches unseals the
// seller signature and broadcasts the completed transaction.
// Finalizing an already broadcasted attempt returns its txid.
func (s *Service) FinalizePurchase(
	ctx context.Context, orderID, attemptID, signedPsbt string,
) (string, error) {
	attempt, err := s.getPurchaseAttempt(ctx, attemptID)
	if err != nil {
		return "", err
	}
	if attempt.ListingID != orderID {
		return "", ErrAttemptNotFound
	}
	if attempt.IsBroadcasted() {
		return attempt.TxID, nil
	}
	if !attempt.IsPending() {
		return "", ErrAttemptNotPending
	}

	listing, err := s.getListing(ctx, orderID)
	if err != nil {
		return "", err
	}
	if !listing.IsOpen() {
		return s.abandonClosed(ctx, attempt.ID)
	}

	ptx, err := decodePsbt(signedPsbt)
	if err != nil {
		return "", newValidationError("signed purchase", err)
	}

	if err := s.validator.verify(listing, attempt, ptx); err != nil {
		if errors.Is(err, ordswap.ErrIncompleteBuyerInput) {
			return "", newValidationError("signed purchase", err)
		}
		field := fraudField(err)
		fraudErr := s.validator.fraud(listing.ID, attempt.ID, field, err)
		s.abandon(ctx, attempt.ID, fraudErr.Error())
		return "", fraudErr
	}

	txid, err := s.validator.settle(ctx, listing.ID, attempt, ptx)
	if errors.Is(err, ErrListingNotOpen) {
		return s.abandonClosed(ctx, attempt.ID)
	}
	return txid, err
}

// abandon marks a poisoned attempt as FAILED.
func (s *Service) abandon(ctx context.Context, attemptID, reason string) {
	if err := s.repoManager.PurchaseAttemptRepository().UpdatePurchaseAttempt(
		ctx, attemptID,
		func(a *domain.PurchaseAttempt) (*domain.PurchaseAttempt, error) {
			if err := a.Fail(reason); err != nil {
				return nil, err
			}
			return a, nil
		},
	); err != nil {
		log.WithError(err).Warnf("failed to abandon purchase attempt %s", attemptID)
	}
}

// abandonClosed fails the attempt of a listing that is no longer OPEN. If
// the attempt is the one that filled the listing its txid is returned.
func (s *Service) abandonClosed(
	ctx context.Context, attemptID string,
) (string, error) {
	var txid string
	if err := s.repoManager.PurchaseAttemptRepository().UpdatePurchaseAttempt(
		ctx, attemptID,
		func(a *domain.PurchaseAttempt) (*domain.PurchaseAttempt, error) {
			if !a.IsPending() {
				txid = a.TxID
				return a, nil
			}
			if err := a.Fail(ErrListingNotOpen.Error()); err != nil {
				return nil, err
			}
			return a, nil
		},
	); err != nil {
		log.WithError(err).Warnf("failed to abandon purchase attempt %s", attemptID)
	}
	if txid != "" {
		return txid, nil
	}
	return "", ErrListingNotOpen
}
