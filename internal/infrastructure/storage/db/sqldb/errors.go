package sqldb

import "errors"

var (
	// ErrListingAlreadyExists ...
	ErrListingAlreadyExists = errors.New("listing already exists")
	// ErrPurchaseAttemptAlreadyExists ...
	ErrPurchaseAttemptAlreadyExists = errors.New("purchase attempt already exists")
)
