package ordswap

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/tdex-network/ordex-daemon/pkg/taprootsig"
)

// SettlementTerms is the snapshot a buyer-signed purchase is checked
// against. Inputs lists the spent utxos in order, the asset first.
type SettlementTerms struct {
	Template       *psbt.Packet
	TreasuryScript []byte
	MarketFee      uint64
	BuyerScript    []byte
	Inputs         []Utxo
}

// VerifyPurchase runs the checks that must pass before the seller signature
// can be revealed, stopping at the first failure:
// the inputs must be the ones of the purchase attempt, output 0 must be
// byte-identical to the template payout, output 2 must pay at least the
// market fee to the treasury, output 1 must send the asset to the buyer and
// every buyer input must be signed.
func VerifyPurchase(ptx *psbt.Packet, terms SettlementTerms) error {
	if ptx == nil || ptx.UnsignedTx == nil {
		return ErrMalformedTemplate
	}
	if terms.Template == nil || terms.Template.UnsignedTx == nil ||
		len(terms.Template.UnsignedTx.TxIn) != 1 ||
		len(terms.Template.UnsignedTx.TxOut) <= 0 {
		return ErrNullTemplate
	}
	tx := ptx.UnsignedTx
	template := terms.Template.UnsignedTx

	if err := verifyInputs(tx, terms.Inputs); err != nil {
		return err
	}
	if tx.Version != template.Version || tx.LockTime != template.LockTime ||
		tx.TxIn[0].Sequence != template.TxIn[0].Sequence {
		return ErrTxTemplateMismatch
	}

	if len(tx.TxOut) <= 0 || !txOutsEqual(tx.TxOut[0], template.TxOut[0]) {
		return ErrPayoutTampered
	}

	if len(tx.TxOut) < 3 ||
		!bytes.Equal(tx.TxOut[2].PkScript, terms.TreasuryScript) ||
		tx.TxOut[2].Value < int64(terms.MarketFee) {
		return ErrFeeOutputMismatch
	}

	if !bytes.Equal(tx.TxOut[1].PkScript, terms.BuyerScript) {
		return ErrAssetRoutingMismatch
	}

	for i := 1; i < len(ptx.Inputs); i++ {
		if !isSigned(&ptx.Inputs[i]) {
			return fmt.Errorf("%w: input %d", ErrIncompleteBuyerInput, i)
		}
	}
	return nil
}

// CompleteTransaction attaches the seller signature to input 0, finalizes
// every input and returns the extracted transaction once all of its inputs
// pass script verification against the given prevouts.
func CompleteTransaction(
	ptx *psbt.Packet, sig *taprootsig.Signature, prevouts []Utxo,
) (*wire.MsgTx, error) {
	if err := verifyInputs(ptx.UnsignedTx, prevouts); err != nil {
		return nil, err
	}

	if err := sig.Attach(&ptx.Inputs[0]); err != nil {
		return nil, err
	}
	for i, prevout := range prevouts {
		in := &ptx.Inputs[i]
		if in.FinalScriptSig != nil || in.FinalScriptWitness != nil {
			continue
		}
		if txscript.GetScriptClass(prevout.Script) != txscript.PubKeyHashTy {
			in.WitnessUtxo = prevout.TxOut()
		}
	}

	if err := psbt.MaybeFinalizeAll(ptx); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFinalizeFailed, err)
	}
	tx, err := psbt.Extract(ptx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFinalizeFailed, err)
	}

	if err := VerifyScripts(tx, prevouts); err != nil {
		return nil, err
	}
	return tx, nil
}

// VerifyScripts executes the script of every input of tx.
func VerifyScripts(tx *wire.MsgTx, prevouts []Utxo) error {
	if len(tx.TxIn) != len(prevouts) {
		return ErrInputsMismatch
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, prevout := range prevouts {
		fetcher.AddPrevOut(tx.TxIn[i].PreviousOutPoint, prevout.TxOut())
	}
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i, prevout := range prevouts {
		engine, err := txscript.NewEngine(
			prevout.Script, tx, i, txscript.StandardVerifyFlags, nil,
			sigHashes, int64(prevout.Value), fetcher,
		)
		if err != nil {
			return fmt.Errorf("%w: input %d: %s", ErrScriptVerification, i, err)
		}
		if err := engine.Execute(); err != nil {
			return fmt.Errorf("%w: input %d: %s", ErrScriptVerification, i, err)
		}
	}
	return nil
}

// WipeInput zeroes any signature material attached to the given input.
func WipeInput(in *psbt.PInput) {
	wipe(in.TaprootKeySpendSig)
	wipe(in.FinalScriptWitness)
	in.TaprootKeySpendSig = nil
	in.FinalScriptWitness = nil
}

func verifyInputs(tx *wire.MsgTx, prevouts []Utxo) error {
	if tx == nil || len(tx.TxIn) != len(prevouts) || len(prevouts) <= 0 {
		return ErrInputsMismatch
	}
	for i, prevout := range prevouts {
		op, err := prevout.OutPoint()
		if err != nil {
			return err
		}
		if tx.TxIn[i].PreviousOutPoint != *op {
			return ErrInputsMismatch
		}
	}
	return nil
}

func isSigned(in *psbt.PInput) bool {
	return len(in.FinalScriptWitness) > 0 || len(in.FinalScriptSig) > 0 ||
		len(in.PartialSigs) > 0 || len(in.TaprootKeySpendSig) > 0 ||
		len(in.TaprootScriptSpendSig) > 0
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
