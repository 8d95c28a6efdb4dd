package ordswap

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

const (
	cancelMessagePrefix = "ordex:cancel:"
	signedMessageMagic  = "Bitcoin Signed Message:\n"
)

var cancelTag = []byte("ordex/cancel")

// CancelMessage returns the message a seller must sign to cancel a listing.
func CancelMessage(orderID string) string {
	return cancelMessagePrefix + orderID
}

// VerifyOwnership checks that proof is a signature of the cancel message of
// the given order made by the owner of addr.
// Taproot addresses expect a hex encoded BIP340 signature over the tagged
// hash of the message by the output key. Key-hash addresses expect a base64
// encoded compact signature over the Bitcoin signed-message digest.
func VerifyOwnership(addr btcutil.Address, orderID, proof string) error {
	msg := CancelMessage(orderID)

	switch a := addr.(type) {
	case *btcutil.AddressTaproot:
		return verifySchnorrProof(a.ScriptAddress(), msg, proof)
	case *btcutil.AddressWitnessPubKeyHash:
		return verifyCompactProof(msg, proof, func(pubkey []byte) bool {
			return bytes.Equal(btcutil.Hash160(pubkey), a.ScriptAddress())
		})
	case *btcutil.AddressPubKeyHash:
		return verifyCompactProof(msg, proof, func(pubkey []byte) bool {
			return bytes.Equal(btcutil.Hash160(pubkey), a.ScriptAddress())
		})
	case *btcutil.AddressScriptHash:
		return verifyCompactProof(msg, proof, func(pubkey []byte) bool {
			redeemScript := append(
				[]byte{txscript.OP_0, txscript.OP_DATA_20},
				btcutil.Hash160(pubkey)...,
			)
			return bytes.Equal(btcutil.Hash160(redeemScript), a.ScriptAddress())
		})
	default:
		return ErrUnsupportedAddress
	}
}

// SignOwnershipSchnorr signs the cancel message of the order with the given
// taproot output key.
func SignOwnershipSchnorr(key *btcec.PrivateKey, orderID string) (string, error) {
	hash := chainhash.TaggedHash(cancelTag, []byte(CancelMessage(orderID)))
	sig, err := schnorr.Sign(key, hash[:])
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig.Serialize()), nil
}

// SignOwnershipCompact signs the cancel message of the order as a Bitcoin
// signed message.
func SignOwnershipCompact(key *btcec.PrivateKey, orderID string) (string, error) {
	hash, err := signedMessageHash(CancelMessage(orderID))
	if err != nil {
		return "", err
	}
	sig, err := ecdsa.SignCompact(key, hash, true)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func verifySchnorrProof(outputKey []byte, msg, proof string) error {
	sigBytes, err := hex.DecodeString(proof)
	if err != nil {
		return ErrMalformedProof
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return ErrMalformedProof
	}
	pubkey, err := schnorr.ParsePubKey(outputKey)
	if err != nil {
		return ErrUnsupportedAddress
	}

	hash := chainhash.TaggedHash(cancelTag, []byte(msg))
	if !sig.Verify(hash[:], pubkey) {
		return ErrInvalidProof
	}
	return nil
}

func verifyCompactProof(
	msg, proof string, matches func(pubkey []byte) bool,
) error {
	sig, err := base64.StdEncoding.DecodeString(proof)
	if err != nil || len(sig) != 65 {
		return ErrMalformedProof
	}
	hash, err := signedMessageHash(msg)
	if err != nil {
		return err
	}

	pubkey, compressed, err := ecdsa.RecoverCompact(sig, hash)
	if err != nil {
		return ErrInvalidProof
	}
	serialized := pubkey.SerializeUncompressed()
	if compressed {
		serialized = pubkey.SerializeCompressed()
	}
	if !matches(serialized) {
		return ErrInvalidProof
	}
	return nil
}

func signedMessageHash(msg string) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarString(&buf, 0, signedMessageMagic); err != nil {
		return nil, err
	}
	if err := wire.WriteVarString(&buf, 0, msg); err != nil {
		return nil, err
	}
	return chainhash.DoubleHashB(buf.Bytes()), nil
}
