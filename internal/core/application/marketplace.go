package application

import (
	"context"

	"github.com/tdex-network/ordex-daemon/internal/core/application/marketplace"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
)

type MarketplaceService interface {
	// Seller
	CreateListing(
		ctx context.Context, asset domain.Outpoint, payoutAddress string,
		price uint64,
	) (*marketplace.NewListing, error)
	SubmitSellerSignature(
		ctx context.Context, orderID, signedPsbt string,
	) (*marketplace.ListingSummary, error)
	CancelListing(
		ctx context.Context, orderID, payoutAddress, proof string,
	) (*marketplace.ListingSummary, error)

	// Buyer
	ListOpenListings(
		ctx context.Context, page domain.Page,
	) ([]marketplace.ListingSummary, error)
	GetListing(
		ctx context.Context, orderID string,
	) (*marketplace.ListingSummary, error)
	PreparePurchase(
		ctx context.Context, req marketplace.PurchaseRequest,
	) (*marketplace.PurchaseInfo, error)
	FinalizePurchase(
		ctx context.Context, orderID, attemptID, signedPsbt string,
	) (string, error)
	GetPurchaseAttempt(
		ctx context.Context, attemptID string,
	) (*marketplace.PurchaseInfo, error)

	Info() marketplace.MarketInfo
}

func NewMarketplaceService(opts marketplace.Opts) (MarketplaceService, error) {
	return marketplace.NewService(opts)
}
