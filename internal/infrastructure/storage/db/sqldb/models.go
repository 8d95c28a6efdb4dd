package sqldb

import (
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
)

type listingModel struct {
	ID                  string `gorm:"primaryKey"`
	AssetTxID           string `gorm:"column:asset_txid;index:idx_listing_asset"`
	AssetVOut           uint32 `gorm:"column:asset_vout;index:idx_listing_asset"`
	AssetValue          uint64
	AssetScript         []byte
	PayoutAddress       string
	PayoutScript        []byte
	PriceSats           uint64
	MarketFee           uint64
	ListingPsbt         string
	Status              string `gorm:"index"`
	EscrowCiphertext    []byte
	EscrowWrappedKey    []byte
	SettlementAttemptID string
	SettlementExpiresAt int64
	TxID                string
	CancelReason        string
	CreatedAt           int64 `gorm:"autoCreateTime:false;index"`
	ExpiresAt           int64
	UpdatedAt           int64 `gorm:"autoUpdateTime:false"`
}

func (listingModel) TableName() string {
	return "listings"
}

type assetLockModel struct {
	Outpoint string `gorm:"primaryKey"`
}

func (assetLockModel) TableName() string {
	return "asset_locks"
}

type breakdownModel struct {
	InscriptionOutputValue uint64
	MarketFeeValue         uint64
	ChangeValue            uint64
	MinerFee               uint64
	FeeRate                uint64
	TotalBuyerInput        uint64
	VirtualSize            int
}

type attemptModel struct {
	ID                 string `gorm:"primaryKey"`
	ListingID          string `gorm:"index"`
	BuyerAddress       string
	BuyerScript        []byte
	BuyerChangeAddress string
	BuyerInputs        []domain.Utxo `gorm:"serializer:json"`
	BuyerPsbt          string
	Breakdown          breakdownModel `gorm:"embedded;embeddedPrefix:breakdown_"`
	State              string         `gorm:"index"`
	TxID               string
	FailureReason      string
	CreatedAt          int64 `gorm:"autoCreateTime:false"`
	UpdatedAt          int64 `gorm:"autoUpdateTime:false"`
}

func (attemptModel) TableName() string {
	return "purchase_attempts"
}

func toListingModel(l *domain.Listing) *listingModel {
	m := &listingModel{
		ID:            l.ID,
		AssetTxID:     l.Asset.TxID,
		AssetVOut:     l.Asset.VOut,
		AssetValue:    l.Asset.Value,
		AssetScript:   l.Asset.Script,
		PayoutAddress: l.PayoutAddress,
		PayoutScript:  l.PayoutScript,
		PriceSats:     l.PriceSats,
		MarketFee:     l.MarketFee,
		ListingPsbt:   l.ListingPsbt,
		Status:        string(l.Status),
		TxID:          l.TxID,
		CancelReason:  l.CancelReason,
		CreatedAt:     l.CreatedAt,
		ExpiresAt:     l.ExpiresAt,
		UpdatedAt:     l.UpdatedAt,
	}
	if l.Escrow != nil {
		m.EscrowCiphertext = l.Escrow.Ciphertext
		m.EscrowWrappedKey = l.Escrow.WrappedKey
	}
	if l.Settlement != nil {
		m.SettlementAttemptID = l.Settlement.AttemptID
		m.SettlementExpiresAt = l.Settlement.ExpiresAt
	}
	return m
}

func (m *listingModel) toDomain() *domain.Listing {
	l := &domain.Listing{
		ID: m.ID,
		Asset: domain.Utxo{
			Outpoint: domain.Outpoint{TxID: m.AssetTxID, VOut: m.AssetVOut},
			Value:    m.AssetValue,
			Script:   m.AssetScript,
		},
		PayoutAddress: m.PayoutAddress,
		PayoutScript:  m.PayoutScript,
		PriceSats:     m.PriceSats,
		MarketFee:     m.MarketFee,
		ListingPsbt:   m.ListingPsbt,
		Status:        domain.ListingStatus(m.Status),
		TxID:          m.TxID,
		CancelReason:  m.CancelReason,
		CreatedAt:     m.CreatedAt,
		ExpiresAt:     m.ExpiresAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if len(m.EscrowCiphertext) > 0 {
		l.Escrow = &domain.EscrowedSignature{
			Ciphertext: m.EscrowCiphertext,
			WrappedKey: m.EscrowWrappedKey,
		}
	}
	if m.SettlementAttemptID != "" {
		l.Settlement = &domain.SettlementClaim{
			AttemptID: m.SettlementAttemptID,
			ExpiresAt: m.SettlementExpiresAt,
		}
	}
	return l
}

func toAttemptModel(a *domain.PurchaseAttempt) *attemptModel {
	return &attemptModel{
		ID:                 a.ID,
		ListingID:          a.ListingID,
		BuyerAddress:       a.BuyerAddress,
		BuyerScript:        a.BuyerScript,
		BuyerChangeAddress: a.BuyerChangeAddress,
		BuyerInputs:        a.BuyerInputs,
		BuyerPsbt:          a.BuyerPsbt,
		Breakdown:          breakdownModel(a.Breakdown),
		State:              string(a.State),
		TxID:               a.TxID,
		FailureReason:      a.FailureReason,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func (m *attemptModel) toDomain() *domain.PurchaseAttempt {
	return &domain.PurchaseAttempt{
		ID:                 m.ID,
		ListingID:          m.ListingID,
		BuyerAddress:       m.BuyerAddress,
		BuyerScript:        m.BuyerScript,
		BuyerChangeAddress: m.BuyerChangeAddress,
		BuyerInputs:        m.BuyerInputs,
		BuyerPsbt:          m.BuyerPsbt,
		Breakdown:          domain.FeeBreakdown(m.Breakdown),
		State:              domain.AttemptState(m.State),
		TxID:               m.TxID,
		FailureReason:      m.FailureReason,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}
