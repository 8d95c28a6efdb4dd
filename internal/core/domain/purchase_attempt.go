package domain

import (
	"time"

	"github.com/thanhpk/randstr"
)

// AttemptState represents the different states of a purchase attempt.
type AttemptState string

const (
	AttemptStatePendingSignatures AttemptState = "PENDING_SIGNATURES"
	AttemptStateBroadcasted       AttemptState = "BROADCASTED"
	AttemptStateFailed            AttemptState = "FAILED"
)

// FeeBreakdown is the snapshot of how buyer funds are split across the
// outputs of a purchase.
type FeeBreakdown struct {
	InscriptionOutputValue uint64
	MarketFeeValue         uint64
	ChangeValue            uint64
	MinerFee               uint64
	FeeRate                uint64
	TotalBuyerInput        uint64
	VirtualSize            int
}

// PurchaseAttempt is a buyer's attempt to purchase a listing.
type PurchaseAttempt struct {
	ID                 string
	ListingID          string
	BuyerAddress       string
	BuyerScript        []byte
	BuyerChangeAddress string
	BuyerInputs        []Utxo
	BuyerPsbt          string
	Breakdown          FeeBreakdown
	State              AttemptState
	TxID               string
	FailureReason      string
	CreatedAt          int64
	UpdatedAt          int64
}

// NewPurchaseAttempt returns an attempt in PENDING_SIGNATURES state.
func NewPurchaseAttempt(
	listingID, buyerAddress string, buyerScript []byte,
	buyerChangeAddress string, buyerInputs []Utxo, buyerPsbt string,
	breakdown FeeBreakdown,
) (*PurchaseAttempt, error) {
	if listingID == "" {
		return nil, ErrAttemptMissingListing
	}
	if buyerAddress == "" || len(buyerScript) <= 0 || buyerChangeAddress == "" {
		return nil, ErrAttemptMissingBuyerAddress
	}
	if len(buyerInputs) <= 0 {
		return nil, ErrAttemptMissingInputs
	}
	if buyerPsbt == "" {
		return nil, ErrAttemptMissingPsbt
	}

	now := time.Now().Unix()
	return &PurchaseAttempt{
		ID:                 randstr.Hex(16),
		ListingID:          listingID,
		BuyerAddress:       buyerAddress,
		BuyerScript:        buyerScript,
		BuyerChangeAddress: buyerChangeAddress,
		BuyerInputs:        buyerInputs,
		BuyerPsbt:          buyerPsbt,
		Breakdown:          breakdown,
		State:              AttemptStatePendingSignatures,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (a *PurchaseAttempt) IsPending() bool {
	return a.State == AttemptStatePendingSignatures
}

func (a *PurchaseAttempt) IsBroadcasted() bool {
	return a.State == AttemptStateBroadcasted
}

func (a *PurchaseAttempt) IsFailed() bool {
	return a.State == AttemptStateFailed
}

// Broadcast brings a pending attempt to the BROADCASTED state.
func (a *PurchaseAttempt) Broadcast(txid string) error {
	if a.IsBroadcasted() && a.TxID == txid {
		return nil
	}
	if !a.IsPending() {
		return ErrAttemptMustBePending
	}
	if txid == "" {
		return ErrAttemptMissingTxID
	}

	a.State = AttemptStateBroadcasted
	a.TxID = txid
	a.UpdatedAt = time.Now().Unix()
	return nil
}

// Fail brings a pending attempt to the FAILED state.
func (a *PurchaseAttempt) Fail(reason string) error {
	if a.IsFailed() {
		return nil
	}
	if !a.IsPending() {
		return ErrAttemptMustBePending
	}

	a.State = AttemptStateFailed
	a.FailureReason = reason
	a.UpdatedAt = time.Now().Unix()
	return nil
}
