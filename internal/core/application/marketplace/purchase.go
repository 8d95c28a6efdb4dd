package marketplace

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
	"github.com/tdex-network/ordex-daemon/pkg/ordswap"
	"golang.org/x/sync/errgroup"
)

// PreparePurchase composes the transaction the buyer must countersign to
// purchase an OPEN listing. The asset and all buyer inputs are confirmed
// unspent by the oracle, and a listing whose asset has been spent is
// cancelled. The returned breakdown is stored with the attempt and used as
// ground truth at settlement.
func (s *Service) PreparePurchase(
	ctx context.Context, req PurchaseRequest,
) (*PurchaseInfo, error) {
	if req.FeeRate < 1 || req.FeeRate > s.maxFeeRate {
		return nil, newValidationError(
			"fee rate", fmt.Errorf("must be in range [1, %d] sat/vB", s.maxFeeRate),
		)
	}
	buyerScript, err := ordswap.AddressScript(req.BuyerAddress, s.network)
	if err != nil {
		return nil, newValidationError("buyer address", err)
	}
	changeScript, err := ordswap.AddressScript(req.BuyerChangeAddress, s.network)
	if err != nil {
		return nil, newValidationError("buyer change address", err)
	}
	if len(req.BuyerInputs) <= 0 {
		return nil, newValidationError("buyer inputs", ordswap.ErrNoBuyerInputs)
	}

	listing, err := s.getListing(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !listing.IsOpen() {
		return nil, ErrListingNotOpen
	}

	seen := map[domain.Outpoint]bool{listing.Asset.Outpoint: true}
	for _, in := range req.BuyerInputs {
		if seen[in.Outpoint] {
			return nil, newValidationError("buyer inputs", ordswap.ErrDuplicatedInput)
		}
		seen[in.Outpoint] = true
	}

	buyerInputs, err := s.checkUtxos(ctx, listing, req.BuyerInputs)
	if err != nil {
		return nil, err
	}

	// The payout output is derived again from the listing terms, the
	// composer checks it against the one of the stored template.
	payoutScript, err := ordswap.AddressScript(listing.PayoutAddress, s.network)
	if err != nil || !bytes.Equal(payoutScript, listing.PayoutScript) {
		return nil, s.purchaseFraud(listing, ordswap.ErrPayoutTampered)
	}
	template, err := decodePsbt(listing.ListingPsbt)
	if err != nil {
		log.WithError(err).Warnf("failed to decode template of listing %s", listing.ID)
		return nil, ErrServiceUnavailable
	}

	ptx, breakdown, err := ordswap.ComposePurchase(ordswap.PurchaseOpts{
		Template:          template,
		Asset:             toOrdswapUtxo(listing.Asset),
		PayoutScript:      payoutScript,
		Price:             listing.PriceSats,
		BuyerScript:       buyerScript,
		BuyerChangeScript: changeScript,
		TreasuryScript:    s.treasuryScript,
		MarketFee:         listing.MarketFee,
		BuyerInputs:       toOrdswapUtxos(buyerInputs),
		FeeRate:           req.FeeRate,
	})
	if err != nil {
		s.metrics.observePurchase("rejected")
		switch {
		case errors.Is(err, ordswap.ErrInsufficientFunds):
			return nil, fmt.Errorf("%w: %s", ErrInsufficientFunds, err)
		case errors.Is(err, ordswap.ErrPayoutTampered),
			errors.Is(err, ordswap.ErrTemplateInputMismatch):
			return nil, s.purchaseFraud(listing, err)
		default:
			return nil, newValidationError("purchase", err)
		}
	}
	buyerPsbt, err := ptx.B64Encode()
	if err != nil {
		return nil, err
	}

	attempt, err := domain.NewPurchaseAttempt(
		listing.ID, req.BuyerAddress, buyerScript, req.BuyerChangeAddress,
		buyerInputs, buyerPsbt, domain.FeeBreakdown(*breakdown),
	)
	if err != nil {
		return nil, newValidationError("purchase", err)
	}
	if err := s.repoManager.PurchaseAttemptRepository().AddPurchaseAttempt(
		ctx, attempt,
	); err != nil {
		log.WithError(err).Warn("failed to store purchase attempt")
		return nil, ErrServiceUnavailable
	}

	s.metrics.observePurchase("prepared")
	log.Debugf(
		"prepared purchase attempt %s for listing %s", attempt.ID, listing.ID,
	)

	info := purchaseInfo(*attempt).toInfo()
	return &info, nil
}

// checkUtxos queries the oracle for the listed asset first, then for all
// buyer inputs concurrently, and returns the buyer inputs as reported by the
// oracle. A spent asset cancels the listing whatever the buyer inputs are.
func (s *Service) checkUtxos(
	ctx context.Context, listing *domain.Listing, inputs []BuyerInput,
) ([]domain.Utxo, error) {
	if err := s.checkAsset(ctx, listing); err != nil {
		return nil, err
	}

	buyerUtxos := make([]ports.Utxo, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range inputs {
		i := i
		g.Go(func() error {
			utxo, err := s.getUtxo(gctx, inputs[i].Outpoint)
			if err != nil {
				if errors.Is(err, ports.ErrUtxoNotFound) {
					return newValidationError(
						"buyer inputs", fmt.Errorf("%s not found", inputs[i].Outpoint),
					)
				}
				return err
			}
			buyerUtxos[i] = utxo
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	utxos := make([]domain.Utxo, 0, len(inputs))
	for i, in := range inputs {
		utxo := buyerUtxos[i]
		if utxo.IsSpent() {
			return nil, newValidationError(
				"buyer inputs", fmt.Errorf("%s already spent", in.Outpoint),
			)
		}
		if (in.Value > 0 && in.Value != utxo.GetValue()) ||
			(len(in.Script) > 0 && !bytes.Equal(in.Script, utxo.GetScript())) {
			return nil, newValidationError(
				"buyer inputs", fmt.Errorf("%s value or script mismatch", in.Outpoint),
			)
		}
		utxos = append(utxos, domain.Utxo{
			Outpoint: in.Outpoint,
			Value:    utxo.GetValue(),
			Script:   utxo.GetScript(),
		})
	}
	return utxos, nil
}

// checkAsset makes sure the listed asset is still unspent, otherwise the
// listing is cancelled.
func (s *Service) checkAsset(ctx context.Context, listing *domain.Listing) error {
	utxo, err := s.getUtxo(ctx, listing.Asset.Outpoint)
	if err != nil {
		if errors.Is(err, ports.ErrUtxoNotFound) {
			return fmt.Errorf("%w: asset not found", ErrServiceUnavailable)
		}
		return err
	}
	if !utxo.IsSpent() {
		return nil
	}

	if _, err := s.cancelListing(
		ctx, listing.ID, "asset spent outside of the marketplace",
	); err != nil && !errors.Is(err, domain.ErrListingAlreadyClaimed) {
		log.WithError(err).Warnf("failed to cancel listing %s", listing.ID)
	}
	return ErrAssetAlreadySpent
}

func (s *Service) purchaseFraud(listing *domain.Listing, err error) error {
	field := fraudField(err)
	s.metrics.observeFraud("purchase", field)
	log.WithFields(log.Fields{
		"listing": listing.ID,
		"field":   field,
	}).WithError(err).Warn("listing template does not match listing terms")
	return newFraudError(field, err)
}
