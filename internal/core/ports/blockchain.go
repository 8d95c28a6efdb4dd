package ports

import (
	"context"
	"errors"
)

var (
	// ErrUtxoNotFound is returned by the oracle when the transaction or the
	// output is unknown.
	ErrUtxoNotFound = errors.New("utxo not found")
	// ErrTxRejected is returned by the broadcaster when the network refuses
	// the transaction.
	ErrTxRejected = errors.New("transaction rejected")
)

// UtxoOracle answers whether an output exists, and if so its value, script
// and spent status.
type UtxoOracle interface {
	GetUtxo(ctx context.Context, key UtxoKey) (Utxo, error)
}

// Broadcaster publishes a serialized transaction and returns its txid.
type Broadcaster interface {
	BroadcastTransaction(ctx context.Context, txHex string) (string, error)
}
