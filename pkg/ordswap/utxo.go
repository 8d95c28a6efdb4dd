package ordswap

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

const (
	// DustLimit is the minimum value of any output created by the
	// marketplace.
	DustLimit = uint64(546)

	txVersion = 2
)

// Utxo is an unspent output along with the data needed to spend it.
type Utxo struct {
	TxID   string
	VOut   uint32
	Value  uint64
	Script []byte
}

// OutPoint returns the wire outpoint of the utxo.
func (u Utxo) OutPoint() (*wire.OutPoint, error) {
	hash, err := chainhash.NewHashFromStr(u.TxID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOutpoint, err)
	}
	return wire.NewOutPoint(hash, u.VOut), nil
}

// TxOut returns the output spent by the utxo.
func (u Utxo) TxOut() *wire.TxOut {
	return wire.NewTxOut(int64(u.Value), u.Script)
}

// Key returns the txid:vout representation of the utxo.
func (u Utxo) Key() string {
	return fmt.Sprintf("%s:%d", u.TxID, u.VOut)
}

// AddressScript decodes the address and returns its output script.
func AddressScript(addr string, net *chaincfg.Params) ([]byte, error) {
	address, err := DecodeAddress(addr, net)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(address)
}

// DecodeAddress decodes the address and makes sure it belongs to net.
func DecodeAddress(addr string, net *chaincfg.Params) (btcutil.Address, error) {
	address, err := btcutil.DecodeAddress(addr, net)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}
	if !address.IsForNet(net) {
		return nil, ErrAddressNetworkMismatch
	}
	return address, nil
}

func txOutsEqual(a, b *wire.TxOut) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Value == b.Value && bytes.Equal(a.PkScript, b.PkScript)
}
