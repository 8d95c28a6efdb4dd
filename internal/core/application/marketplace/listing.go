package marketplace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
	"github.com/tdex-network/ordex-daemon/pkg/feeutil"
	"github.com/tdex-network/ordex-daemon/pkg/ordswap"
	"github.com/tdex-network/ordex-daemon/pkg/taprootsig"
)

// CreateListing snapshots the asset from the oracle and returns the
// template the seller must sign to open the listing.
func (s *Service) CreateListing(
	ctx context.Context, asset domain.Outpoint, payoutAddress string,
	price uint64,
) (*NewListing, error) {
	payoutScript, err := ordswap.AddressScript(payoutAddress, s.network)
	if err != nil {
		return nil, newValidationError("payout address", err)
	}
	if price < domain.DustLimit {
		return nil, newValidationError("price", domain.ErrListingPriceBelowDust)
	}

	utxo, err := s.getUtxo(ctx, asset)
	if err != nil {
		if errors.Is(err, ports.ErrUtxoNotFound) {
			return nil, newValidationError("asset", err)
		}
		return nil, err
	}
	if utxo.IsSpent() {
		return nil, ErrAssetAlreadySpent
	}
	if !txscript.IsPayToTaproot(utxo.GetScript()) {
		return nil, newValidationError("asset", ordswap.ErrAssetNotTaproot)
	}
	assetUtxo := domain.Utxo{
		Outpoint: asset,
		Value:    utxo.GetValue(),
		Script:   utxo.GetScript(),
	}

	marketFee := feeutil.MarketFee(price, s.marketFeePercentage, domain.DustLimit)
	template, err := ordswap.BuildTemplate(ordswap.TemplateOpts{
		Asset:          toOrdswapUtxo(assetUtxo),
		PayoutScript:   payoutScript,
		Price:          price,
		Policy:         s.policy,
		TreasuryScript: s.treasuryScript,
		MarketFee:      marketFee,
	})
	if err != nil {
		return nil, newValidationError("listing", err)
	}
	listingPsbt, err := template.B64Encode()
	if err != nil {
		return nil, err
	}

	listing, err := domain.NewListing(
		assetUtxo, payoutAddress, payoutScript, price, marketFee, listingPsbt,
		s.listingExpiry,
	)
	if err != nil {
		return nil, newValidationError("listing", err)
	}

	if _, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			repo := s.repoManager.ListingRepository()
			listings, err := repo.GetListingsByAsset(ctx, asset)
			if err != nil {
				return nil, err
			}
			now := time.Now()
			for _, l := range listings {
				if l.IsActive(now) {
					return nil, ErrAssetAlreadyListed
				}
			}
			return nil, repo.AddListing(ctx, listing)
		},
	); err != nil {
		if errors.Is(err, ErrAssetAlreadyListed) {
			return nil, err
		}
		log.WithError(err).Warn("failed to store listing")
		return nil, ErrServiceUnavailable
	}

	s.metrics.observeListing(string(domain.ListingStatusPending))
	log.Debugf("created listing %s for asset %s", listing.ID, asset)

	return &NewListing{
		ListingSummary: listingSummary(*listing).toSummary(),
		ListingPsbt:    listingPsbt,
		Policy:         s.policy,
	}, nil
}

// SubmitSellerSignature validates the signed template and, if it matches
// the listing terms, seals the seller signature and opens the listing. The
// signed template is never stored.
func (s *Service) SubmitSellerSignature(
	ctx context.Context, orderID, signedPsbt string,
) (*ListingSummary, error) {
	listing, err := s.getListing(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !listing.IsPending() {
		return nil, ErrListingNotPending
	}
	if listing.IsExpired(time.Now()) {
		return nil, ErrListingExpired
	}

	ptx, err := decodePsbt(signedPsbt)
	if err != nil {
		return nil, newValidationError("signed template", err)
	}

	sig, err := ordswap.ValidateSignedTemplate(ptx, ordswap.ExpectedTerms{
		Asset:        toOrdswapUtxo(listing.Asset),
		PayoutScript: listing.PayoutScript,
		Price:        listing.PriceSats,
		Policy:       s.policy,
	})
	if err != nil {
		switch {
		case errors.Is(err, ordswap.ErrSigHashMismatch),
			errors.Is(err, ordswap.ErrPayoutMismatch),
			errors.Is(err, ordswap.ErrInvalidSellerSignature):
			field := fraudField(err)
			s.metrics.observeFraud("listing", field)
			log.WithFields(log.Fields{
				"listing": listing.ID,
				"field":   field,
			}).WithError(err).Warn("rejected seller signature")
			return nil, newFraudError(field, err)
		default:
			return nil, newValidationError("signed template", err)
		}
	}

	plaintext := sig.Serialize()
	sig.Wipe()
	ciphertext, wrappedKey, err := s.sealer.Seal(plaintext)
	wipe(plaintext)
	if err != nil {
		log.WithError(err).Warnf("failed to seal signature for listing %s", orderID)
		return nil, ErrServiceUnavailable
	}

	var opened *domain.Listing
	if err := s.repoManager.ListingRepository().UpdateListing(
		ctx, orderID, func(l *domain.Listing) (*domain.Listing, error) {
			if err := l.Open(domain.EscrowedSignature{
				Ciphertext: ciphertext,
				WrappedKey: wrappedKey,
			}); err != nil {
				return nil, err
			}
			opened = l
			return l, nil
		},
	); err != nil {
		switch {
		case errors.Is(err, domain.ErrListingMustBePending):
			return nil, ErrListingNotPending
		case errors.Is(err, domain.ErrListingExpired):
			return nil, ErrListingExpired
		}
		log.WithError(err).Warnf("failed to open listing %s", orderID)
		return nil, ErrServiceUnavailable
	}

	s.metrics.observeListing(string(domain.ListingStatusOpen))
	log.Infof("listing %s is open", orderID)

	summary := listingSummary(*opened).toSummary()
	return &summary, nil
}

func (s *Service) ListOpenListings(
	ctx context.Context, page domain.Page,
) ([]ListingSummary, error) {
	listings, err := s.repoManager.ListingRepository().GetListingsByStatus(
		ctx, domain.ListingStatusOpen, page,
	)
	if err != nil {
		log.WithError(err).Warn("failed to list open listings")
		return nil, ErrServiceUnavailable
	}
	return listingList(listings).toSummaryList(), nil
}

func (s *Service) GetListing(
	ctx context.Context, orderID string,
) (*ListingSummary, error) {
	listing, err := s.getListing(ctx, orderID)
	if err != nil {
		return nil, err
	}
	summary := listingSummary(*listing).toSummary()
	return &summary, nil
}

// CancelListing cancels a PENDING or OPEN listing on behalf of the seller.
// The proof must be a signature of the cancel message made by the owner of
// the payout address.
func (s *Service) CancelListing(
	ctx context.Context, orderID, payoutAddress, proof string,
) (*ListingSummary, error) {
	listing, err := s.getListing(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if listing.IsCancelled() {
		summary := listingSummary(*listing).toSummary()
		return &summary, nil
	}
	if listing.IsFilled() {
		return nil, ErrListingNotOpen
	}

	if strings.TrimSpace(payoutAddress) != listing.PayoutAddress {
		return nil, ErrUnauthorized
	}
	addr, err := ordswap.DecodeAddress(listing.PayoutAddress, s.network)
	if err != nil {
		return nil, newValidationError("payout address", err)
	}
	if err := ordswap.VerifyOwnership(addr, listing.ID, proof); err != nil {
		if errors.Is(err, ordswap.ErrUnsupportedAddress) {
			return nil, newValidationError("payout address", err)
		}
		log.WithField("listing", listing.ID).WithError(err).
			Debug("rejected cancel request")
		return nil, ErrUnauthorized
	}

	cancelled, err := s.cancelListing(ctx, listing.ID, "cancelled by seller")
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrListingAlreadyClaimed):
			return nil, ErrListingBusy
		case errors.Is(err, domain.ErrListingAlreadyFilled):
			return nil, ErrListingNotOpen
		}
		log.WithError(err).Warnf("failed to cancel listing %s", orderID)
		return nil, ErrServiceUnavailable
	}

	summary := listingSummary(*cancelled).toSummary()
	return &summary, nil
}

func decodePsbt(b64 string) (*psbt.Packet, error) {
	return psbt.NewFromRawBytes(strings.NewReader(strings.TrimSpace(b64)), true)
}

func fraudField(err error) string {
	switch {
	case errors.Is(err, ordswap.ErrSigHashMismatch):
		return "sighash"
	case errors.Is(err, ordswap.ErrPayoutMismatch),
		errors.Is(err, ordswap.ErrPayoutTampered):
		return "payout"
	case errors.Is(err, ordswap.ErrInvalidSellerSignature):
		return "seller_signature"
	case errors.Is(err, ordswap.ErrInputsMismatch),
		errors.Is(err, ordswap.ErrTemplateInputMismatch):
		return "inputs"
	case errors.Is(err, ordswap.ErrTxTemplateMismatch):
		return "template"
	case errors.Is(err, ordswap.ErrFeeOutputMismatch):
		return "market_fee"
	case errors.Is(err, ordswap.ErrAssetRoutingMismatch):
		return "asset_routing"
	case errors.Is(err, ordswap.ErrScriptVerification),
		errors.Is(err, ordswap.ErrFinalizeFailed):
		return "scripts"
	case errors.Is(err, taprootsig.ErrInvalidLength),
		errors.Is(err, taprootsig.ErrInvalidSigHashType):
		return "escrow"
	default:
		return "unknown"
	}
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
