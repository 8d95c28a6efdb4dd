package marketplace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
	"github.com/tdex-network/ordex-daemon/pkg/ordswap"
)

const (
	defaultListingExpiry    = 24 * time.Hour
	defaultClaimTimeout     = 2 * time.Minute
	defaultOracleTimeout    = 15 * time.Second
	defaultBroadcastTimeout = 30 * time.Second
	defaultMaxFeeRate       = 1000
)

// Opts holds the dependencies and the terms of the marketplace. Zero
// durations and MaxFeeRate fall back to defaults.
type Opts struct {
	RepoManager ports.RepoManager
	Oracle      ports.UtxoOracle
	Broadcaster ports.Broadcaster
	Escrow      ports.SignatureEscrow
	Metrics     *Metrics

	Network             *chaincfg.Params
	TreasuryAddress     string
	MarketFeePercentage decimal.Decimal
	Policy              ordswap.SigHashPolicy

	ListingExpiry    time.Duration
	ClaimTimeout     time.Duration
	OracleTimeout    time.Duration
	BroadcastTimeout time.Duration
	MaxFeeRate       uint64
}

type sealer interface {
	Seal(plaintext []byte) (ciphertext, wrappedKey []byte, err error)
}

// Service is the settlement orchestrator. It drives listings and purchase
// attempts through their lifecycle and is the only component mutating them.
type Service struct {
	repoManager ports.RepoManager
	oracle      ports.UtxoOracle
	sealer      sealer
	validator   *validator
	metrics     *Metrics

	network             *chaincfg.Params
	treasuryAddress     string
	treasuryScript      []byte
	marketFeePercentage decimal.Decimal
	policy              ordswap.SigHashPolicy

	listingExpiry time.Duration
	oracleTimeout time.Duration
	maxFeeRate    uint64
}

func NewService(opts Opts) (*Service, error) {
	if opts.RepoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if opts.Oracle == nil {
		return nil, fmt.Errorf("missing utxo oracle")
	}
	if opts.Broadcaster == nil {
		return nil, fmt.Errorf("missing broadcaster")
	}
	if opts.Escrow == nil {
		return nil, fmt.Errorf("missing signature escrow")
	}
	if opts.Network == nil {
		return nil, fmt.Errorf("missing network")
	}
	if _, err := ordswap.ParsePolicy(opts.Policy.String()); err != nil {
		return nil, err
	}
	if opts.MarketFeePercentage.IsNegative() ||
		opts.MarketFeePercentage.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("market fee percentage must be in range [0, 100)")
	}
	treasuryScript, err := ordswap.AddressScript(
		opts.TreasuryAddress, opts.Network,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid treasury address: %w", err)
	}

	listingExpiry := opts.ListingExpiry
	if listingExpiry <= 0 {
		listingExpiry = defaultListingExpiry
	}
	claimTimeout := opts.ClaimTimeout
	if claimTimeout <= 0 {
		claimTimeout = defaultClaimTimeout
	}
	oracleTimeout := opts.OracleTimeout
	if oracleTimeout <= 0 {
		oracleTimeout = defaultOracleTimeout
	}
	broadcastTimeout := opts.BroadcastTimeout
	if broadcastTimeout <= 0 {
		broadcastTimeout = defaultBroadcastTimeout
	}
	if claimTimeout <= broadcastTimeout {
		return nil, fmt.Errorf(
			"settlement claim timeout must be greater than broadcast timeout",
		)
	}
	maxFeeRate := opts.MaxFeeRate
	if maxFeeRate == 0 {
		maxFeeRate = defaultMaxFeeRate
	}

	return &Service{
		repoManager: opts.RepoManager,
		oracle:      opts.Oracle,
		sealer:      opts.Escrow,
		validator: &validator{
			repoManager:      opts.RepoManager,
			escrow:           opts.Escrow,
			broadcaster:      opts.Broadcaster,
			metrics:          opts.Metrics,
			treasuryScript:   treasuryScript,
			claimTimeout:     claimTimeout,
			broadcastTimeout: broadcastTimeout,
		},
		metrics:             opts.Metrics,
		network:             opts.Network,
		treasuryAddress:     opts.TreasuryAddress,
		treasuryScript:      treasuryScript,
		marketFeePercentage: opts.MarketFeePercentage,
		policy:              opts.Policy,
		listingExpiry:       listingExpiry,
		oracleTimeout:       oracleTimeout,
		maxFeeRate:          maxFeeRate,
	}, nil
}

func (s *Service) Info() MarketInfo {
	return MarketInfo{
		Network:             s.network.Name,
		TreasuryAddress:     s.treasuryAddress,
		MarketFeePercentage: s.marketFeePercentage.String(),
		MinMarketFee:        domain.DustLimit,
		Policy:              s.policy,
		MaxFeeRate:          s.maxFeeRate,
		ListingExpiry:       int64(s.listingExpiry.Seconds()),
	}
}

func (s *Service) GetPurchaseAttempt(
	ctx context.Context, attemptID string,
) (*PurchaseInfo, error) {
	attempt, err := s.getPurchaseAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	info := purchaseInfo(*attempt).toInfo()
	return &info, nil
}

func (s *Service) getListing(
	ctx context.Context, id string,
) (*domain.Listing, error) {
	listing, err := s.repoManager.ListingRepository().GetListing(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, ErrListingNotFound
		}
		log.WithError(err).Warnf("failed to fetch listing %s", id)
		return nil, ErrServiceUnavailable
	}
	return listing, nil
}

func (s *Service) getPurchaseAttempt(
	ctx context.Context, id string,
) (*domain.PurchaseAttempt, error) {
	attempt, err := s.repoManager.PurchaseAttemptRepository().
		GetPurchaseAttempt(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPurchaseAttemptNotFound) {
			return nil, ErrAttemptNotFound
		}
		log.WithError(err).Warnf("failed to fetch purchase attempt %s", id)
		return nil, ErrServiceUnavailable
	}
	return attempt, nil
}

// getUtxo queries the oracle with a bounded timeout.
func (s *Service) getUtxo(
	ctx context.Context, outpoint domain.Outpoint,
) (ports.Utxo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	defer cancel()

	utxo, err := s.oracle.GetUtxo(ctx, outpoint)
	if err != nil {
		if errors.Is(err, ports.ErrUtxoNotFound) {
			return nil, err
		}
		log.WithError(err).Warnf("failed to fetch utxo %s", outpoint)
		return nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, err)
	}
	return utxo, nil
}

// cancelListing cancels the listing and fails all of its pending purchase
// attempts in a single transaction.
func (s *Service) cancelListing(
	ctx context.Context, listingID, reason string,
) (*domain.Listing, error) {
	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			var cancelled *domain.Listing
			if err := s.repoManager.ListingRepository().UpdateListing(
				ctx, listingID,
				func(l *domain.Listing) (*domain.Listing, error) {
					if err := l.Cancel(reason); err != nil {
						return nil, err
					}
					cancelled = l
					return l, nil
				},
			); err != nil {
				return nil, err
			}

			attemptRepo := s.repoManager.PurchaseAttemptRepository()
			attempts, err := attemptRepo.GetPendingPurchaseAttempts(ctx, listingID)
			if err != nil {
				return nil, err
			}
			for _, a := range attempts {
				if err := attemptRepo.UpdatePurchaseAttempt(
					ctx, a.ID,
					func(a *domain.PurchaseAttempt) (*domain.PurchaseAttempt, error) {
						if err := a.Fail("listing cancelled: " + reason); err != nil {
							return nil, err
						}
						return a, nil
					},
				); err != nil {
					return nil, err
				}
			}
			return cancelled, nil
		},
	)
	if err != nil {
		return nil, err
	}

	s.metrics.observeListing(string(domain.ListingStatusCancelled))
	log.Infof("listing %s cancelled: %s", listingID, reason)
	return res.(*domain.Listing), nil
}
