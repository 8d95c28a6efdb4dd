package marketplace

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
	"github.com/tdex-network/ordex-daemon/pkg/ordswap"
	"github.com/tdex-network/ordex-daemon/pkg/taprootsig"
)

// validator is the settlement gate. It is the only holder of the escrow
// and unseals a seller signature only for a transaction that passed every
// check, for a listing it holds the settlement claim of.
type validator struct {
	repoManager ports.RepoManager
	escrow      ports.SignatureEscrow
	broadcaster ports.Broadcaster
	metrics     *Metrics

	treasuryScript   []byte
	claimTimeout     time.Duration
	broadcastTimeout time.Duration
}

// verify runs the checks that don't need the seller signature.
func (v *validator) verify(
	listing *domain.Listing, attempt *domain.PurchaseAttempt, ptx *psbt.Packet,
) error {
	template, err := decodePsbt(listing.ListingPsbt)
	if err != nil {
		return fmt.Errorf("failed to decode listing template: %w", err)
	}
	return ordswap.VerifyPurchase(ptx, ordswap.SettlementTerms{
		Template:       template,
		TreasuryScript: v.treasuryScript,
		MarketFee:      attempt.Breakdown.MarketFeeValue,
		BuyerScript:    attempt.BuyerScript,
		Inputs:         prevouts(listing, attempt),
	})
}

// settle claims the listing, unseals the seller signature, completes and
// broadcasts the transaction. The claim is released on any failure.
func (v *validator) settle(
	ctx context.Context, listingID string, attempt *domain.PurchaseAttempt,
	ptx *psbt.Packet,
) (string, error) {
	listing, err := v.claim(ctx, listingID, attempt.ID)
	if err != nil {
		return "", err
	}

	tx, err := v.complete(listing, attempt, ptx)
	if err != nil {
		v.fail(ctx, listingID, attempt.ID, err.Error())
		return "", err
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		v.fail(ctx, listingID, attempt.ID, err.Error())
		return "", err
	}
	txid := tx.TxHash().String()

	bctx, cancel := context.WithTimeout(ctx, v.broadcastTimeout)
	defer cancel()
	broadcastedTxid, err := v.broadcaster.BroadcastTransaction(
		bctx, hex.EncodeToString(buf.Bytes()),
	)
	if err != nil {
		v.fail(ctx, listingID, attempt.ID, err.Error())
		v.metrics.observeSettlement(string(domain.AttemptStateFailed))
		log.WithFields(log.Fields{
			"listing": listingID,
			"attempt": attempt.ID,
		}).WithError(err).Warn("failed to broadcast settlement transaction")
		return "", &BroadcastError{err}
	}
	if broadcastedTxid != "" && broadcastedTxid != txid {
		log.Warnf(
			"broadcaster returned txid %s for settlement tx %s",
			broadcastedTxid, txid,
		)
	}

	if _, err := v.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			if err := v.repoManager.ListingRepository().UpdateListing(
				ctx, listingID,
				func(l *domain.Listing) (*domain.Listing, error) {
					if err := l.Fill(attempt.ID, txid); err != nil {
						return nil, err
					}
					return l, nil
				},
			); err != nil {
				return nil, err
			}
			if err := v.failOtherAttempts(ctx, listingID, attempt.ID); err != nil {
				return nil, err
			}
			return nil, v.repoManager.PurchaseAttemptRepository().
				UpdatePurchaseAttempt(
					ctx, attempt.ID,
					func(a *domain.PurchaseAttempt) (*domain.PurchaseAttempt, error) {
						if err := a.Broadcast(txid); err != nil {
							return nil, err
						}
						return a, nil
					},
				)
		},
	); err != nil {
		log.WithFields(log.Fields{
			"listing": listingID,
			"attempt": attempt.ID,
			"txid":    txid,
		}).WithError(err).Error("settlement tx broadcasted but not stored")
		return txid, ErrServiceUnavailable
	}

	v.metrics.observeListing(string(domain.ListingStatusFilled))
	v.metrics.observeSettlement(string(domain.AttemptStateBroadcasted))
	log.Infof("listing %s filled with tx %s", listingID, txid)
	return txid, nil
}

// claim reserves the listing for the attempt. The listing must still be
// OPEN at this point, whatever it was when finalization started.
func (v *validator) claim(
	ctx context.Context, listingID, attemptID string,
) (*domain.Listing, error) {
	var claimed *domain.Listing
	err := v.repoManager.ListingRepository().UpdateListing(
		ctx, listingID, func(l *domain.Listing) (*domain.Listing, error) {
			// Any live claim, even by the same attempt, means a settlement
			// is in flight.
			if l.IsClaimed("", time.Now()) {
				return nil, domain.ErrListingAlreadyClaimed
			}
			if err := l.Claim(attemptID, v.claimTimeout); err != nil {
				return nil, err
			}
			if l.Escrow == nil {
				return nil, domain.ErrListingMissingEscrow
			}
			claimed = l
			return l, nil
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrListingMustBeOpen):
			return nil, ErrListingNotOpen
		case errors.Is(err, domain.ErrListingAlreadyClaimed):
			return nil, ErrListingBusy
		case errors.Is(err, domain.ErrListingNotFound):
			return nil, ErrListingNotFound
		}
		log.WithError(err).Warnf("failed to claim listing %s", listingID)
		return nil, ErrServiceUnavailable
	}
	return claimed, nil
}

// complete unseals the seller signature and returns the fully signed and
// script-verified transaction. The plaintext signature only lives in memory
// and is zeroed before returning.
func (v *validator) complete(
	listing *domain.Listing, attempt *domain.PurchaseAttempt, ptx *psbt.Packet,
) (*wire.MsgTx, error) {
	plaintext, err := v.escrow.Open(
		listing.Escrow.Ciphertext, listing.Escrow.WrappedKey,
	)
	if err != nil {
		return nil, v.fraud(listing.ID, attempt.ID, "escrow", err)
	}
	sig, err := taprootsig.Parse(plaintext)
	wipe(plaintext)
	if err != nil {
		return nil, v.fraud(listing.ID, attempt.ID, "escrow", err)
	}
	defer sig.Wipe()

	tx, err := ordswap.CompleteTransaction(ptx, sig, prevouts(listing, attempt))
	if err != nil {
		ordswap.WipeInput(&ptx.Inputs[0])
		return nil, v.fraud(listing.ID, attempt.ID, fraudField(err), err)
	}
	return tx, nil
}

// fail releases the claim on the listing and marks the attempt FAILED.
func (v *validator) fail(
	ctx context.Context, listingID, attemptID, reason string,
) {
	if _, err := v.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			if err := v.repoManager.ListingRepository().UpdateListing(
				ctx, listingID,
				func(l *domain.Listing) (*domain.Listing, error) {
					l.ReleaseClaim(attemptID)
					return l, nil
				},
			); err != nil {
				return nil, err
			}
			return nil, v.repoManager.PurchaseAttemptRepository().
				UpdatePurchaseAttempt(
					ctx, attemptID,
					func(a *domain.PurchaseAttempt) (*domain.PurchaseAttempt, error) {
						if err := a.Fail(reason); err != nil {
							return nil, err
						}
						return a, nil
					},
				)
		},
	); err != nil {
		log.WithError(err).Warnf(
			"failed to release listing %s for attempt %s", listingID, attemptID,
		)
	}
}

// failOtherAttempts fails the pending attempts of the listing other than
// the settled one.
func (v *validator) failOtherAttempts(
	ctx context.Context, listingID, attemptID string,
) error {
	attemptRepo := v.repoManager.PurchaseAttemptRepository()
	attempts, err := attemptRepo.GetPendingPurchaseAttempts(ctx, listingID)
	if err != nil {
		return err
	}
	for _, a := range attempts {
		if a.ID == attemptID {
			continue
		}
		if err := attemptRepo.UpdatePurchaseAttempt(
			ctx, a.ID,
			func(a *domain.PurchaseAttempt) (*domain.PurchaseAttempt, error) {
				if err := a.Fail("listing filled by another purchase"); err != nil {
					return nil, err
				}
				return a, nil
			},
		); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) fraud(listingID, attemptID, field string, err error) error {
	v.metrics.observeFraud("settlement", field)
	log.WithFields(log.Fields{
		"listing": listingID,
		"attempt": attemptID,
		"field":   field,
	}).WithError(err).Warn("fraud detected")
	return newFraudError(field, err)
}

// prevouts returns the outputs spent by the purchase, asset first.
func prevouts(
	listing *domain.Listing, attempt *domain.PurchaseAttempt,
) []ordswap.Utxo {
	utxos := make([]ordswap.Utxo, 0, len(attempt.BuyerInputs)+1)
	utxos = append(utxos, toOrdswapUtxo(listing.Asset))
	return append(utxos, toOrdswapUtxos(attempt.BuyerInputs)...)
}
