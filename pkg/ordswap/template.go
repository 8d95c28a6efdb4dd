package ordswap

import (
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/tdex-network/ordex-daemon/pkg/taprootsig"
)

// PlaceholderScript is a taproot-shaped script used for template outputs
// whose recipient is not known until a buyer shows up.
var PlaceholderScript = append(
	[]byte{txscript.OP_1, txscript.OP_DATA_32}, make([]byte, 32)...,
)

// TemplateOpts defines the terms of a listing.
type TemplateOpts struct {
	Asset          Utxo
	PayoutScript   []byte
	Price          uint64
	Policy         SigHashPolicy
	TreasuryScript []byte
	MarketFee      uint64
}

func (o TemplateOpts) validate() error {
	if !txscript.IsPayToTaproot(o.Asset.Script) {
		return ErrAssetNotTaproot
	}
	if _, err := o.Asset.OutPoint(); err != nil {
		return err
	}
	if len(o.PayoutScript) <= 0 {
		return ErrNullScript
	}
	if o.Price < DustLimit {
		return ErrPriceBelowDust
	}
	if _, err := ParsePolicy(string(o.Policy)); err != nil {
		return err
	}
	if o.Policy == PolicySingle && len(o.TreasuryScript) <= 0 {
		return ErrNullScript
	}
	return nil
}

// BuildTemplate returns the unsigned listing template the seller is asked to
// sign. Input 0 spends the asset, output 0 pays the seller. With the single
// policy the remaining outputs of a purchase are included as placeholders so
// that wallets can display the full layout.
func BuildTemplate(opts TemplateOpts) (*psbt.Packet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	prevout, _ := opts.Asset.OutPoint()
	tx := wire.NewMsgTx(txVersion)
	tx.AddTxIn(wire.NewTxIn(prevout, nil, nil))
	tx.AddTxOut(wire.NewTxOut(int64(opts.Price), opts.PayoutScript))

	if opts.Policy == PolicySingle {
		tx.AddTxOut(wire.NewTxOut(int64(opts.Asset.Value), PlaceholderScript))
		tx.AddTxOut(wire.NewTxOut(int64(opts.MarketFee), opts.TreasuryScript))
		tx.AddTxOut(wire.NewTxOut(0, PlaceholderScript))
	}

	ptx, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, err
	}

	updater, err := psbt.NewUpdater(ptx)
	if err != nil {
		return nil, err
	}
	if err := updater.AddInWitnessUtxo(opts.Asset.TxOut(), 0); err != nil {
		return nil, err
	}
	if err := updater.AddInSighashType(opts.Policy.SigHashType(), 0); err != nil {
		return nil, err
	}

	return ptx, nil
}

// ExpectedTerms are the listing terms a signed template is checked against.
type ExpectedTerms struct {
	Asset        Utxo
	PayoutScript []byte
	Price        uint64
	Policy       SigHashPolicy
}

// ValidateSignedTemplate checks the template returned by the seller and
// returns its key-path signature. The template must spend only the asset,
// carry a signature with the policy flag, pay exactly the price to the
// payout script at index 0 and the signature must be valid for the asset
// output key.
func ValidateSignedTemplate(
	ptx *psbt.Packet, terms ExpectedTerms,
) (*taprootsig.Signature, error) {
	if ptx == nil || ptx.UnsignedTx == nil {
		return nil, ErrNullTemplate
	}
	tx := ptx.UnsignedTx

	prevout, err := terms.Asset.OutPoint()
	if err != nil {
		return nil, err
	}
	if len(tx.TxIn) != 1 || len(ptx.Inputs) != 1 ||
		tx.TxIn[0].PreviousOutPoint != *prevout {
		return nil, ErrTemplateInputMismatch
	}
	if tx.Version != txVersion || tx.LockTime != 0 ||
		tx.TxIn[0].Sequence != wire.MaxTxInSequenceNum {
		return nil, ErrMalformedTemplate
	}

	sig, err := taprootsig.FromInput(&ptx.Inputs[0])
	if err != nil {
		if err == taprootsig.ErrMissingSignature {
			return nil, ErrMissingSellerSignature
		}
		return nil, err
	}
	if sig.SigHash != terms.Policy.SigHashType() {
		return nil, ErrSigHashMismatch
	}

	payout := wire.NewTxOut(int64(terms.Price), terms.PayoutScript)
	if len(tx.TxOut) <= 0 || !txOutsEqual(tx.TxOut[0], payout) {
		return nil, ErrPayoutMismatch
	}

	if err := verifySellerSignature(tx, sig, terms.Asset); err != nil {
		return nil, err
	}
	return sig, nil
}

func verifySellerSignature(
	tx *wire.MsgTx, sig *taprootsig.Signature, asset Utxo,
) error {
	outputKey, err := schnorr.ParsePubKey(asset.Script[2:])
	if err != nil {
		return ErrAssetNotTaproot
	}

	fetcher := txscript.NewCannedPrevOutputFetcher(
		asset.Script, int64(asset.Value),
	)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	sigHash, err := txscript.CalcTaprootSignatureHash(
		sigHashes, sig.SigHash, tx, 0, fetcher,
	)
	if err != nil {
		return ErrInvalidSellerSignature
	}

	if err := sig.Verify(sigHash, outputKey); err != nil {
		return ErrInvalidSellerSignature
	}
	return nil
}
