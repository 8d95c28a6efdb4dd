package marketplace

import (
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/tdex-network/ordex-daemon/pkg/ordswap"
)

// ListingSummary is the public view of a listing. It never carries any
// signature material.
type ListingSummary struct {
	ID            string
	Asset         domain.Outpoint
	AssetValue    uint64
	PayoutAddress string
	PriceSats     uint64
	MarketFee     uint64
	Status        domain.ListingStatus
	TxID          string
	CreatedAt     int64
	ExpiresAt     int64
}

// NewListing is returned by CreateListing. ListingPsbt is the base64 template
// the seller must sign with the policy sighash flag.
type NewListing struct {
	ListingSummary
	ListingPsbt string
	Policy      ordswap.SigHashPolicy
}

// BuyerInput is an output the buyer funds the purchase with. Value and
// Script are optional and, if set, must match what the oracle reports.
type BuyerInput struct {
	domain.Outpoint
	Value  uint64
	Script []byte
}

// PurchaseRequest holds the params of PreparePurchase.
type PurchaseRequest struct {
	OrderID            string
	BuyerAddress       string
	BuyerChangeAddress string
	BuyerInputs        []BuyerInput
	FeeRate            uint64
}

// PurchaseInfo is the view of a purchase attempt.
type PurchaseInfo struct {
	AttemptID     string
	ListingID     string
	BuyerPsbt     string
	Breakdown     domain.FeeBreakdown
	State         domain.AttemptState
	TxID          string
	FailureReason string
	CreatedAt     int64
}

// MarketInfo describes the marketplace terms.
type MarketInfo struct {
	Network             string
	TreasuryAddress     string
	MarketFeePercentage string
	MinMarketFee        uint64
	Policy              ordswap.SigHashPolicy
	MaxFeeRate          uint64
	ListingExpiry       int64
}

type listingSummary domain.Listing

func (l listingSummary) toSummary() ListingSummary {
	return ListingSummary{
		ID:            l.ID,
		Asset:         l.Asset.Outpoint,
		AssetValue:    l.Asset.Value,
		PayoutAddress: l.PayoutAddress,
		PriceSats:     l.PriceSats,
		MarketFee:     l.MarketFee,
		Status:        l.Status,
		TxID:          l.TxID,
		CreatedAt:     l.CreatedAt,
		ExpiresAt:     l.ExpiresAt,
	}
}

type listingList []domain.Listing

func (l listingList) toSummaryList() []ListingSummary {
	list := make([]ListingSummary, 0, len(l))
	for _, listing := range l {
		list = append(list, listingSummary(listing).toSummary())
	}
	return list
}

type purchaseInfo domain.PurchaseAttempt

func (a purchaseInfo) toInfo() PurchaseInfo {
	return PurchaseInfo{
		AttemptID:     a.ID,
		ListingID:     a.ListingID,
		BuyerPsbt:     a.BuyerPsbt,
		Breakdown:     a.Breakdown,
		State:         a.State,
		TxID:          a.TxID,
		FailureReason: a.FailureReason,
		CreatedAt:     a.CreatedAt,
	}
}

func toOrdswapUtxo(u domain.Utxo) ordswap.Utxo {
	return ordswap.Utxo{
		TxID:   u.TxID,
		VOut:   u.VOut,
		Value:  u.Value,
		Script: u.Script,
	}
}

func toOrdswapUtxos(utxos []domain.Utxo) []ordswap.Utxo {
	list := make([]ordswap.Utxo, 0, len(utxos))
	for _, u := range utxos {
		list = append(list, toOrdswapUtxo(u))
	}
	return list
}
