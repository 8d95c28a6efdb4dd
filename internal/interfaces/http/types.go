package httpinterface

import (
	"encoding/hex"
	"fmt"

	"github.com/tdex-network/ordex-daemon/internal/core/application/marketplace"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
)

type createListingRequest struct {
	AssetOutpoint string `json:"asset_outpoint"`
	PayoutAddress string `json:"payout_address"`
	PriceSats     uint64 `json:"price_sats"`
}

type createListingResponse struct {
	OrderID         string  `json:"order_id"`
	ListingTemplate string  `json:"listing_template"`
	SigHashPolicy   string  `json:"sighash_policy"`
	Listing         listing `json:"listing"`
}

type submitSignatureRequest struct {
	SignedTemplate string `json:"signed_template"`
}

type cancelListingRequest struct {
	PayoutAddress string `json:"payout_address"`
	Proof         string `json:"proof"`
}

type buyerInput struct {
	Outpoint string `json:"outpoint"`
	Value    uint64 `json:"value,omitempty"`
	Script   string `json:"script,omitempty"`
}

type preparePurchaseRequest struct {
	BuyerAddress       string       `json:"buyer_address"`
	BuyerChangeAddress string       `json:"buyer_change_address"`
	BuyerInputs        []buyerInput `json:"buyer_inputs"`
	FeeRate            uint64       `json:"fee_rate"`
}

type finalizePurchaseRequest struct {
	BuyerSignedPsbt string `json:"buyer_signed_psbt"`
}

type finalizePurchaseResponse struct {
	TxID string `json:"txid"`
}

type listing struct {
	OrderID       string `json:"order_id"`
	AssetOutpoint string `json:"asset_outpoint"`
	AssetValue    uint64 `json:"asset_value"`
	PayoutAddress string `json:"payout_address"`
	PriceSats     uint64 `json:"price_sats"`
	MarketFee     uint64 `json:"market_fee"`
	Status        string `json:"status"`
	TxID          string `json:"txid,omitempty"`
	CreatedAt     int64  `json:"created_at"`
	ExpiresAt     int64  `json:"expires_at,omitempty"`
}

type listings struct {
	Listings []listing `json:"listings"`
	Page     int       `json:"page"`
	Size     int       `json:"size"`
}

type feeBreakdown struct {
	InscriptionOutputValue uint64 `json:"inscription_output_value"`
	MarketFeeValue         uint64 `json:"market_fee_value"`
	ChangeValue            uint64 `json:"change_value"`
	MinerFee               uint64 `json:"miner_fee"`
	FeeRate                uint64 `json:"fee_rate"`
	TotalBuyerInput        uint64 `json:"total_buyer_input"`
	VirtualSize            int    `json:"virtual_size"`
}

type purchase struct {
	AttemptID     string       `json:"attempt_id"`
	OrderID       string       `json:"order_id"`
	BuyerPsbt     string       `json:"buyer_psbt"`
	FeeBreakdown  feeBreakdown `json:"fee_breakdown"`
	State         string       `json:"state"`
	TxID          string       `json:"txid,omitempty"`
	FailureReason string       `json:"failure_reason,omitempty"`
	CreatedAt     int64        `json:"created_at"`
}

type marketInfo struct {
	Network             string `json:"network"`
	TreasuryAddress     string `json:"treasury_address"`
	MarketFeePercentage string `json:"market_fee_percentage"`
	MinMarketFee        uint64 `json:"min_market_fee"`
	SigHashPolicy       string `json:"sighash_policy"`
	MaxFeeRate          uint64 `json:"max_fee_rate"`
	ListingExpiry       int64  `json:"listing_expiry"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

type listingInfo marketplace.ListingSummary

func (l listingInfo) toJSON() listing {
	return listing{
		OrderID:       l.ID,
		AssetOutpoint: l.Asset.String(),
		AssetValue:    l.AssetValue,
		PayoutAddress: l.PayoutAddress,
		PriceSats:     l.PriceSats,
		MarketFee:     l.MarketFee,
		Status:        string(l.Status),
		TxID:          l.TxID,
		CreatedAt:     l.CreatedAt,
		ExpiresAt:     l.ExpiresAt,
	}
}

type listingList []marketplace.ListingSummary

func (l listingList) toJSON() []listing {
	list := make([]listing, 0, len(l))
	for _, v := range l {
		list = append(list, listingInfo(v).toJSON())
	}
	return list
}

type purchaseInfo marketplace.PurchaseInfo

func (p purchaseInfo) toJSON() purchase {
	return purchase{
		AttemptID:     p.AttemptID,
		OrderID:       p.ListingID,
		BuyerPsbt:     p.BuyerPsbt,
		FeeBreakdown:  feeBreakdown(p.Breakdown),
		State:         string(p.State),
		TxID:          p.TxID,
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt,
	}
}

func (r preparePurchaseRequest) toPurchaseRequest(
	orderID string,
) (marketplace.PurchaseRequest, error) {
	inputs := make([]marketplace.BuyerInput, 0, len(r.BuyerInputs))
	for i, in := range r.BuyerInputs {
		outpoint, err := domain.ParseOutpoint(in.Outpoint)
		if err != nil {
			return marketplace.PurchaseRequest{}, fmt.Errorf(
				"invalid buyer input %d: %w", i, err,
			)
		}
		var script []byte
		if in.Script != "" {
			if script, err = hex.DecodeString(in.Script); err != nil {
				return marketplace.PurchaseRequest{}, fmt.Errorf(
					"invalid buyer input %d script: %w", i, err,
				)
			}
		}
		inputs = append(inputs, marketplace.BuyerInput{
			Outpoint: outpoint,
			Value:    in.Value,
			Script:   script,
		})
	}
	return marketplace.PurchaseRequest{
		OrderID:            orderID,
		BuyerAddress:       r.BuyerAddress,
		BuyerChangeAddress: r.BuyerChangeAddress,
		BuyerInputs:        inputs,
		FeeRate:            r.FeeRate,
	}, nil
}
