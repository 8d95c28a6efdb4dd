package ordswap

import "errors"

var (
	// ErrInvalidPolicy ...
	ErrInvalidPolicy = errors.New("unknown sighash policy")
	// ErrInvalidAddress ...
	ErrInvalidAddress = errors.New("invalid address")
	// ErrAddressNetworkMismatch ...
	ErrAddressNetworkMismatch = errors.New("address is not for the configured network")
	// ErrInvalidOutpoint ...
	ErrInvalidOutpoint = errors.New("invalid outpoint")
	// ErrAssetNotTaproot is returned when the asset is not locked by a
	// taproot output and thus cannot be sold with a key-path signature.
	ErrAssetNotTaproot = errors.New("asset must be locked by a taproot output")
	// ErrPriceBelowDust ...
	ErrPriceBelowDust = errors.New("price must be at least the dust limit")
	// ErrNullScript ...
	ErrNullScript = errors.New("script must not be null")
	// ErrNullTemplate ...
	ErrNullTemplate = errors.New("listing template must not be null")
	// ErrMalformedTemplate ...
	ErrMalformedTemplate = errors.New("malformed listing template")
)

// Seller signature errors.
var (
	// ErrMissingSellerSignature ...
	ErrMissingSellerSignature = errors.New("asset input is missing the seller key-path signature")
	// ErrSigHashMismatch ...
	ErrSigHashMismatch = errors.New("seller signature sighash flag does not match the marketplace policy")
	// ErrPayoutMismatch ...
	ErrPayoutMismatch = errors.New("payout output does not match the listing terms")
	// ErrInvalidSellerSignature ...
	ErrInvalidSellerSignature = errors.New("seller signature does not commit to the listing template")
	// ErrTemplateInputMismatch ...
	ErrTemplateInputMismatch = errors.New("template must spend exactly the listed asset")
)

// Purchase composition errors.
var (
	// ErrNoBuyerInputs ...
	ErrNoBuyerInputs = errors.New("at least one buyer input is required")
	// ErrDuplicatedInput ...
	ErrDuplicatedInput = errors.New("buyer inputs must be unique and must not spend the asset")
	// ErrUnsupportedInputScript ...
	ErrUnsupportedInputScript = errors.New("buyer input script type is not supported")
	// ErrInvalidFeeRate ...
	ErrInvalidFeeRate = errors.New("fee rate must be greater than zero")
	// ErrInsufficientFunds ...
	ErrInsufficientFunds = errors.New("buyer inputs do not cover price, fees and miner fee")
	// ErrPayoutTampered is returned whenever the payout output of a
	// transaction differs from the one of the listing template.
	ErrPayoutTampered = errors.New("payout output differs from the listing template")
)

// Settlement errors.
var (
	// ErrInputsMismatch ...
	ErrInputsMismatch = errors.New("transaction inputs differ from the purchase attempt")
	// ErrTxTemplateMismatch ...
	ErrTxTemplateMismatch = errors.New("transaction version, locktime or asset sequence differ from the listing template")
	// ErrFeeOutputMismatch ...
	ErrFeeOutputMismatch = errors.New("market fee output is missing, misrouted or underpaid")
	// ErrAssetRoutingMismatch ...
	ErrAssetRoutingMismatch = errors.New("asset output is not routed to the buyer")
	// ErrIncompleteBuyerInput ...
	ErrIncompleteBuyerInput = errors.New("buyer input is not signed")
	// ErrFinalizeFailed ...
	ErrFinalizeFailed = errors.New("failed to finalize transaction")
	// ErrScriptVerification ...
	ErrScriptVerification = errors.New("transaction input failed script verification")
)

// Ownership proof errors.
var (
	// ErrUnsupportedAddress ...
	ErrUnsupportedAddress = errors.New("address type does not support ownership proofs")
	// ErrMalformedProof ...
	ErrMalformedProof = errors.New("malformed ownership proof")
	// ErrInvalidProof ...
	ErrInvalidProof = errors.New("ownership proof does not match the address")
)
