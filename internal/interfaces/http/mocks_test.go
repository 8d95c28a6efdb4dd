package httpinterface_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tdex-network/ordex-daemon/internal/core/application/marketplace"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
)

type mockMarketplaceService struct {
	mock.Mock
}

func (m *mockMarketplaceService) CreateListing(
	ctx context.Context, asset domain.Outpoint, payoutAddress string,
	price uint64,
) (*marketplace.NewListing, error) {
	args := m.Called(ctx, asset, payoutAddress, price)

	var res *marketplace.NewListing
	if a := args.Get(0); a != nil {
		res = a.(*marketplace.NewListing)
	}
	return res, args.Error(1)
}

func (m *mockMarketplaceService) SubmitSellerSignature(
	ctx context.Context, orderID, signedPsbt string,
) (*marketplace.ListingSummary, error) {
	args := m.Called(ctx, orderID, signedPsbt)

	var res *marketplace.ListingSummary
	if a := args.Get(0); a != nil {
		res = a.(*marketplace.ListingSummary)
	}
	return res, args.Error(1)
}

func (m *mockMarketplaceService) CancelListing(
	ctx context.Context, orderID, payoutAddress, proof string,
) (*marketplace.ListingSummary, error) {
	args := m.Called(ctx, orderID, payoutAddress, proof)

	var res *marketplace.ListingSummary
	if a := args.Get(0); a != nil {
		res = a.(*marketplace.ListingSummary)
	}
	return res, args.Error(1)
}

func (m *mockMarketplaceService) ListOpenListings(
	ctx context.Context, page domain.Page,
) ([]marketplace.ListingSummary, error) {
	args := m.Called(ctx, page)

	var res []marketplace.ListingSummary
	if a := args.Get(0); a != nil {
		res = a.([]marketplace.ListingSummary)
	}
	return res, args.Error(1)
}

func (m *mockMarketplaceService) GetListing(
	ctx context.Context, orderID string,
) (*marketplace.ListingSummary, error) {
	args := m.Called(ctx, orderID)

	var res *marketplace.ListingSummary
	if a := args.Get(0); a != nil {
		res = a.(*marketplace.ListingSummary)
	}
	return res, args.Error(1)
}

func (m *mockMarketplaceService) PreparePurchase(
	ctx context.Context, req marketplace.PurchaseRequest,
) (*marketplace.PurchaseInfo, error) {
	args := m.Called(ctx, req)

	var res *marketplace.PurchaseInfo
	if a := args.Get(0); a != nil {
		res = a.(*marketplace.PurchaseInfo)
	}
	return res, args.Error(1)
}

func (m *mockMarketplaceService) FinalizePurchase(
	ctx context.Context, orderID, attemptID, signedPsbt string,
) (string, error) {
	args := m.Called(ctx, orderID, attemptID, signedPsbt)
	return args.String(0), args.Error(1)
}

func (m *mockMarketplaceService) GetPurchaseAttempt(
	ctx context.Context, attemptID string,
) (*marketplace.PurchaseInfo, error) {
	args := m.Called(ctx, attemptID)

	var res *marketplace.PurchaseInfo
	if a := args.Get(0); a != nil {
		res = a.(*marketplace.PurchaseInfo)
	}
	return res, args.Error(1)
}

func (m *mockMarketplaceService) Info() marketplace.MarketInfo {
	args := m.Called()
	return args.Get(0).(marketplace.MarketInfo)
}
