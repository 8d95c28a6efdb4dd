// Package taprootsig encodes and decodes BIP340 key-path signatures as they
// appear in taproot witnesses and PSBT key-spend fields.
//
// A key-path signature is 64 bytes when it commits with SIGHASH_DEFAULT, in
// which case the flag is implied, or 65 bytes when the flag is appended as the
// trailing byte.
package taprootsig

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

const (
	// DefaultLen is the size of a signature committing with SIGHASH_DEFAULT.
	DefaultLen = schnorr.SignatureSize
	// ExplicitLen is the size of a signature carrying its flag byte.
	ExplicitLen = schnorr.SignatureSize + 1
)

var (
	// ErrInvalidLength is returned when the raw signature is neither 64 nor
	// 65 bytes.
	ErrInvalidLength = errors.New("taproot signature must be 64 or 65 bytes")
	// ErrInvalidSigHashType is returned for flags that are not valid for a
	// taproot spend.
	ErrInvalidSigHashType = errors.New("invalid taproot sighash type")
	// ErrExplicitDefaultSigHash is returned for a 65 bytes signature whose
	// trailing byte is SIGHASH_DEFAULT, which consensus rejects.
	ErrExplicitDefaultSigHash = errors.New(
		"sighash default must not be serialized explicitly",
	)
	// ErrMissingSignature is returned when a psbt input has no key-path
	// signature.
	ErrMissingSignature = errors.New("input has no taproot key-path signature")
	// ErrNullInput ...
	ErrNullInput = errors.New("psbt input must not be null")
)

// Signature is a decoded key-path signature.
type Signature struct {
	Sig     []byte
	SigHash txscript.SigHashType
}

// Parse decodes a raw 64 or 65 bytes key-path signature.
func Parse(raw []byte) (*Signature, error) {
	switch len(raw) {
	case DefaultLen:
		return &Signature{
			Sig:     copyBytes(raw),
			SigHash: txscript.SigHashDefault,
		}, nil
	case ExplicitLen:
		hashType := txscript.SigHashType(raw[DefaultLen])
		if hashType == txscript.SigHashDefault {
			return nil, ErrExplicitDefaultSigHash
		}
		if !IsValidSigHashType(hashType) {
			return nil, ErrInvalidSigHashType
		}
		return &Signature{
			Sig:     copyBytes(raw[:DefaultLen]),
			SigHash: hashType,
		}, nil
	default:
		return nil, ErrInvalidLength
	}
}

// New returns a signature for the given 64 bytes schnorr signature and flag.
func New(sig []byte, hashType txscript.SigHashType) (*Signature, error) {
	if len(sig) != DefaultLen {
		return nil, ErrInvalidLength
	}
	if !IsValidSigHashType(hashType) {
		return nil, ErrInvalidSigHashType
	}
	return &Signature{Sig: copyBytes(sig), SigHash: hashType}, nil
}

// Serialize returns the witness encoding of the signature, appending the
// flag byte unless it is SIGHASH_DEFAULT.
func (s *Signature) Serialize() []byte {
	if s.SigHash == txscript.SigHashDefault {
		return copyBytes(s.Sig)
	}
	out := make([]byte, 0, ExplicitLen)
	out = append(out, s.Sig...)
	return append(out, byte(s.SigHash))
}

// Verify checks the signature against the given sighash and the x-only
// output key.
func (s *Signature) Verify(sigHash []byte, outputKey *btcec.PublicKey) error {
	sig, err := schnorr.ParseSignature(s.Sig)
	if err != nil {
		return fmt.Errorf("malformed schnorr signature: %w", err)
	}
	if !sig.Verify(sigHash, outputKey) {
		return errors.New("schnorr signature verification failed")
	}
	return nil
}

// FromInput extracts the key-path signature of the given psbt input, either
// from the dedicated key-spend field or from a finalized single element
// witness.
func FromInput(in *psbt.PInput) (*Signature, error) {
	if in == nil {
		return nil, ErrNullInput
	}
	if len(in.TaprootKeySpendSig) > 0 {
		return Parse(in.TaprootKeySpendSig)
	}
	if len(in.FinalScriptWitness) > 0 {
		witness, err := parseWitness(in.FinalScriptWitness)
		if err != nil {
			return nil, err
		}
		if len(witness) != 1 {
			return nil, ErrMissingSignature
		}
		return Parse(witness[0])
	}
	return nil, ErrMissingSignature
}

// Attach sets the signature as the key-path signature of the given input.
// Any previous finalization is discarded so that the input can be finalized
// again.
func (s *Signature) Attach(in *psbt.PInput) error {
	if in == nil {
		return ErrNullInput
	}
	in.TaprootKeySpendSig = s.Serialize()
	in.SighashType = s.SigHash
	in.FinalScriptWitness = nil
	in.FinalScriptSig = nil
	return nil
}

// Wipe overwrites the signature bytes in place.
func (s *Signature) Wipe() {
	for i := range s.Sig {
		s.Sig[i] = 0
	}
}

// IsValidSigHashType returns whether the flag can be committed by a taproot
// signature.
func IsValidSigHashType(hashType txscript.SigHashType) bool {
	switch hashType {
	case txscript.SigHashDefault, txscript.SigHashAll, txscript.SigHashNone,
		txscript.SigHashSingle:
		return true
	case txscript.SigHashAll | txscript.SigHashAnyOneCanPay,
		txscript.SigHashNone | txscript.SigHashAnyOneCanPay,
		txscript.SigHashSingle | txscript.SigHashAnyOneCanPay:
		return true
	default:
		return false
	}
}

func parseWitness(serialized []byte) (wire.TxWitness, error) {
	r := bytes.NewReader(serialized)
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, fmt.Errorf("malformed witness: %w", err)
	}
	if count > uint64(len(serialized)) {
		return nil, errors.New("malformed witness: too many items")
	}
	witness := make(wire.TxWitness, 0, count)
	for i := uint64(0); i < count; i++ {
		item, err := wire.ReadVarBytes(
			r, 0, uint32(len(serialized)), "witness item",
		)
		if err != nil {
			return nil, fmt.Errorf("malformed witness: %w", err)
		}
		witness = append(witness, item)
	}
	return witness, nil
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
