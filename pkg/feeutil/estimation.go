// Package feeutil estimates transaction virtual sizes and computes the fees
// charged on a purchase.
package feeutil

import (
	"github.com/btcsuite/btcd/txscript"
)

const (
	P2PKH = iota
	P2SH_P2WPKH
	P2WPKH
	P2WSH
	P2TR
)

const (
	// Unknown is returned by ScriptType for unsupported scripts.
	Unknown = -1
)

// ScriptType returns the estimation type for the given output script.
// P2SH scripts are assumed to wrap a P2WPKH program.
func ScriptType(script []byte) int {
	switch txscript.GetScriptClass(script) {
	case txscript.PubKeyHashTy:
		return P2PKH
	case txscript.ScriptHashTy:
		return P2SH_P2WPKH
	case txscript.WitnessV0PubKeyHashTy:
		return P2WPKH
	case txscript.WitnessV0ScriptHashTy:
		return P2WSH
	case txscript.WitnessV1TaprootTy:
		return P2TR
	default:
		return Unknown
	}
}

// IsSpendable returns whether an input locked by the given script type can be
// estimated without auxiliary witness sizes.
func IsSpendable(scriptType int) bool {
	switch scriptType {
	case P2PKH, P2SH_P2WPKH, P2WPKH, P2TR:
		return true
	default:
		return false
	}
}

// EstimateTxSize makes an estimation of the virtual size of a transaction for
// which is required to specify the type of the inputs and outputs.
// Taproot inputs are assumed to be key-path spends carrying an explicit
// sighash flag.
func EstimateTxSize(inScriptTypes, outScriptTypes []int) int {
	baseSize := calcTxBaseSize(inScriptTypes, outScriptTypes)
	totalSize := baseSize + calcTxWitnessSize(inScriptTypes)

	weight := baseSize*3 + totalSize
	vsize := (weight + 3) / 4

	return vsize
}

var (
	scriptSigSizeByScriptType = map[int]int{
		P2PKH:       108, // len + opcode + sig + opcode + pubkey
		P2SH_P2WPKH: 24,  // len + push + p2wpkh script
		P2WPKH:      1,   // no scriptsig, still len is serialized
		P2WSH:       1,
		P2TR:        1,
	}
	scriptPubKeySizeByScriptType = map[int]int{
		P2PKH:       26, // len + opcodes (3) + hash(pubkey) + opcodes (2)
		P2SH_P2WPKH: 24, // len + opcodes (2) + hash(script) + opcode
		P2WPKH:      23, // len + opcodes (2) + hash(pubkey)
		P2WSH:       35, // len + opcodes (2) + hash(script)
		P2TR:        35, // len + opcodes (2) + xonly(pubkey)
	}
	witnessSizeByScriptType = map[int]int{
		P2PKH:       1,   // empty stack
		P2SH_P2WPKH: 108, // len + witness[sig,pubkey]
		P2WPKH:      108,
		P2TR:        67, // len + witness[sig+flag]
	}
)

func calcTxBaseSize(inScriptTypes, outScriptTypes []int) int {
	// hash + index + sequence
	inBaseSize := 40
	insSize := 0
	for _, scriptType := range inScriptTypes {
		insSize += inBaseSize + scriptSigSizeByScriptType[scriptType]
	}

	// value
	outBaseSize := 8
	outsSize := 0
	for _, scriptType := range outScriptTypes {
		outsSize += outBaseSize + scriptPubKeySizeByScriptType[scriptType]
	}

	// version + locktime
	return 8 +
		varIntSerializeSize(uint64(len(inScriptTypes))) +
		varIntSerializeSize(uint64(len(outScriptTypes))) +
		insSize + outsSize
}

func calcTxWitnessSize(inScriptTypes []int) int {
	hasWitness := false
	insSize := 0
	for _, scriptType := range inScriptTypes {
		if scriptType != P2PKH {
			hasWitness = true
		}
		insSize += witnessSizeByScriptType[scriptType]
	}
	if !hasWitness {
		return 0
	}
	// marker + flag
	return 2 + insSize
}

func varIntSerializeSize(val uint64) int {
	if val < 0xfd {
		return 1
	}
	if val <= 0xffff {
		return 3
	}
	if val <= 0xffffffff {
		return 5
	}
	return 9
}
