package domain

import "errors"

var (
	// ErrInvalidOutpoint ...
	ErrInvalidOutpoint = errors.New("outpoint must be in the form txid:vout")
	// ErrListingNotFound ...
	ErrListingNotFound = errors.New("listing not found")
	// ErrListingInvalidAsset ...
	ErrListingInvalidAsset = errors.New("listing asset must have a valid outpoint and script")
	// ErrListingMissingPayout ...
	ErrListingMissingPayout = errors.New("listing payout address must not be null")
	// ErrListingPriceBelowDust ...
	ErrListingPriceBelowDust = errors.New("listing price must be at least the dust limit")
	// ErrListingMissingTemplate ...
	ErrListingMissingTemplate = errors.New("listing template must not be null")
	// ErrListingMissingEscrow ...
	ErrListingMissingEscrow = errors.New("listing escrowed signature must not be null")
	// ErrListingMissingTxID ...
	ErrListingMissingTxID = errors.New("settlement txid must not be null")
	// ErrListingMustBePending is returned when signing a listing that is not
	// in PENDING status.
	ErrListingMustBePending = errors.New("listing must be pending")
	// ErrListingMustBeOpen is returned when trying to settle a listing that
	// is not in OPEN status.
	ErrListingMustBeOpen = errors.New("listing must be open")
	// ErrListingExpired is returned when signing a pending listing after its
	// expiration.
	ErrListingExpired = errors.New("listing has expired")
	// ErrListingAlreadyFilled ...
	ErrListingAlreadyFilled = errors.New("listing is already filled")
	// ErrListingAlreadyClaimed is returned when another purchase attempt is
	// settling the listing.
	ErrListingAlreadyClaimed = errors.New("listing is being settled by another purchase attempt")
	// ErrListingNotClaimed ...
	ErrListingNotClaimed = errors.New("listing is not claimed by the purchase attempt")
	// ErrListingAssetAlreadyListed ...
	ErrListingAssetAlreadyListed = errors.New("asset is already listed")
)

var (
	// ErrPurchaseAttemptNotFound ...
	ErrPurchaseAttemptNotFound = errors.New("purchase attempt not found")
	// ErrAttemptMissingListing ...
	ErrAttemptMissingListing = errors.New("purchase attempt listing must not be null")
	// ErrAttemptMissingBuyerAddress ...
	ErrAttemptMissingBuyerAddress = errors.New("purchase attempt buyer addresses must not be null")
	// ErrAttemptMissingInputs ...
	ErrAttemptMissingInputs = errors.New("purchase attempt must have at least one buyer input")
	// ErrAttemptMissingPsbt ...
	ErrAttemptMissingPsbt = errors.New("purchase attempt psbt must not be null")
	// ErrAttemptMissingTxID ...
	ErrAttemptMissingTxID = errors.New("purchase attempt txid must not be null")
	// ErrAttemptMustBePending is returned when trying to move an attempt out
	// of a terminal state.
	ErrAttemptMustBePending = errors.New("purchase attempt must be pending signatures")
)
