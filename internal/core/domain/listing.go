package domain

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DustLimit is the minimum price of a listing.
const DustLimit = uint64(546)

// ListingStatus represents the different statuses that a listing can assume.
type ListingStatus string

const (
	ListingStatusPending   ListingStatus = "PENDING"
	ListingStatusOpen      ListingStatus = "OPEN"
	ListingStatusCancelled ListingStatus = "CANCELLED"
	ListingStatusFilled    ListingStatus = "FILLED"
)

// Outpoint identifies a transaction output.
type Outpoint struct {
	TxID string
	VOut uint32
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.VOut)
}

// ParseOutpoint parses an outpoint in the txid:vout form.
func ParseOutpoint(str string) (Outpoint, error) {
	parts := strings.Split(strings.TrimSpace(str), ":")
	if len(parts) != 2 {
		return Outpoint{}, ErrInvalidOutpoint
	}
	if buf, err := hex.DecodeString(parts[0]); err != nil || len(buf) != 32 {
		return Outpoint{}, ErrInvalidOutpoint
	}
	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Outpoint{}, ErrInvalidOutpoint
	}
	return Outpoint{TxID: strings.ToLower(parts[0]), VOut: uint32(vout)}, nil
}

// Utxo is an output confirmed unspent by the oracle.
type Utxo struct {
	Outpoint
	Value  uint64
	Script []byte
}

// EscrowedSignature is the sealed seller signature of an open listing.
type EscrowedSignature struct {
	Ciphertext []byte
	WrappedKey []byte
}

func (e *EscrowedSignature) isEmpty() bool {
	return e == nil || len(e.Ciphertext) <= 0 || len(e.WrappedKey) <= 0
}

// SettlementClaim reserves an open listing for the purchase attempt that is
// being finalized.
type SettlementClaim struct {
	AttemptID string
	ExpiresAt int64
}

// Listing is the data structure representing an asset put on sale.
type Listing struct {
	ID            string
	Asset         Utxo
	PayoutAddress string
	PayoutScript  []byte
	PriceSats     uint64
	MarketFee     uint64
	ListingPsbt   string
	Status        ListingStatus
	Escrow        *EscrowedSignature
	Settlement    *SettlementClaim
	TxID          string
	CancelReason  string
	CreatedAt     int64
	ExpiresAt     int64
	UpdatedAt     int64
}

// NewListing returns a PENDING listing for the given asset and terms, that
// dies if not signed within expiry.
func NewListing(
	asset Utxo, payoutAddress string, payoutScript []byte,
	price, marketFee uint64, listingPsbt string, expiry time.Duration,
) (*Listing, error) {
	if asset.TxID == "" || len(asset.Script) <= 0 {
		return nil, ErrListingInvalidAsset
	}
	if payoutAddress == "" || len(payoutScript) <= 0 {
		return nil, ErrListingMissingPayout
	}
	if price < DustLimit {
		return nil, ErrListingPriceBelowDust
	}
	if listingPsbt == "" {
		return nil, ErrListingMissingTemplate
	}

	now := time.Now()
	return &Listing{
		ID:            uuid.New().String(),
		Asset:         asset,
		PayoutAddress: payoutAddress,
		PayoutScript:  payoutScript,
		PriceSats:     price,
		MarketFee:     marketFee,
		ListingPsbt:   listingPsbt,
		Status:        ListingStatusPending,
		CreatedAt:     now.Unix(),
		ExpiresAt:     now.Add(expiry).Unix(),
		UpdatedAt:     now.Unix(),
	}, nil
}

func (l *Listing) IsPending() bool {
	return l.Status == ListingStatusPending
}

func (l *Listing) IsOpen() bool {
	return l.Status == ListingStatusOpen
}

func (l *Listing) IsCancelled() bool {
	return l.Status == ListingStatusCancelled
}

func (l *Listing) IsFilled() bool {
	return l.Status == ListingStatusFilled
}

// IsActive returns whether the listing still locks its asset, ie. it is
// open or pending and not yet expired.
func (l *Listing) IsActive(now time.Time) bool {
	return l.IsOpen() || (l.IsPending() && !l.IsExpired(now))
}

// IsExpired returns whether a pending listing has not been signed in time.
func (l *Listing) IsExpired(now time.Time) bool {
	return l.IsPending() && l.ExpiresAt > 0 && now.Unix() >= l.ExpiresAt
}

// IsClaimed returns whether a purchase attempt other than attemptID holds a
// live settlement claim on the listing.
func (l *Listing) IsClaimed(attemptID string, now time.Time) bool {
	return l.Settlement != nil &&
		l.Settlement.AttemptID != attemptID &&
		now.Unix() < l.Settlement.ExpiresAt
}

// Open brings a PENDING listing to the OPEN status once the seller
// signature has been sealed.
func (l *Listing) Open(escrow EscrowedSignature) error {
	if l.IsOpen() {
		return nil
	}
	if !l.IsPending() {
		return ErrListingMustBePending
	}
	if l.IsExpired(time.Now()) {
		return ErrListingExpired
	}
	if escrow.isEmpty() {
		return ErrListingMissingEscrow
	}

	l.Escrow = &escrow
	l.Status = ListingStatusOpen
	l.touch()
	return nil
}

// Cancel brings a PENDING or OPEN listing to the CANCELLED status and drops
// the escrowed signature. A listing being settled can't be cancelled until
// the claim is released or expires.
func (l *Listing) Cancel(reason string) error {
	if l.IsCancelled() {
		return nil
	}
	if l.IsFilled() {
		return ErrListingAlreadyFilled
	}
	if l.IsClaimed("", time.Now()) {
		return ErrListingAlreadyClaimed
	}

	l.Status = ListingStatusCancelled
	l.CancelReason = reason
	l.Escrow = nil
	l.Settlement = nil
	l.touch()
	return nil
}

// Claim reserves the OPEN listing for the given attempt until ttl elapses.
// It fails if another attempt holds a live claim.
func (l *Listing) Claim(attemptID string, ttl time.Duration) error {
	if !l.IsOpen() {
		return ErrListingMustBeOpen
	}
	now := time.Now()
	if l.IsClaimed(attemptID, now) {
		return ErrListingAlreadyClaimed
	}

	l.Settlement = &SettlementClaim{
		AttemptID: attemptID,
		ExpiresAt: now.Add(ttl).Unix(),
	}
	l.touch()
	return nil
}

// ReleaseClaim drops the settlement claim if held by the given attempt.
func (l *Listing) ReleaseClaim(attemptID string) {
	if l.Settlement == nil || l.Settlement.AttemptID != attemptID {
		return
	}
	l.Settlement = nil
	l.touch()
}

// Fill brings an OPEN listing claimed by the given attempt to the FILLED
// status and drops the escrowed signature.
func (l *Listing) Fill(attemptID, txid string) error {
	if l.IsFilled() && l.TxID == txid {
		return nil
	}
	if !l.IsOpen() {
		return ErrListingMustBeOpen
	}
	if l.Settlement == nil || l.Settlement.AttemptID != attemptID {
		return ErrListingNotClaimed
	}
	if txid == "" {
		return ErrListingMissingTxID
	}

	l.Status = ListingStatusFilled
	l.TxID = txid
	l.Escrow = nil
	l.Settlement = nil
	l.touch()
	return nil
}

func (l *Listing) touch() {
	l.UpdatedAt = time.Now().Unix()
}

func (o Outpoint) GetTxid() string {
	return o.TxID
}

func (o Outpoint) GetIndex() uint32 {
	return o.VOut
}
