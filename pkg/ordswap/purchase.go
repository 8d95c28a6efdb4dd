package ordswap

import (
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/tdex-network/ordex-daemon/pkg/feeutil"
)

// PurchaseOpts defines the inputs of a purchase composition. Asset and
// buyer inputs are expected to be already confirmed unspent.
type PurchaseOpts struct {
	Template          *psbt.Packet
	Asset             Utxo
	PayoutScript      []byte
	Price             uint64
	BuyerScript       []byte
	BuyerChangeScript []byte
	TreasuryScript    []byte
	MarketFee         uint64
	BuyerInputs       []Utxo
	FeeRate           uint64
}

func (o PurchaseOpts) validate() error {
	if o.Template == nil || o.Template.UnsignedTx == nil {
		return ErrNullTemplate
	}
	if len(o.Template.UnsignedTx.TxIn) != 1 ||
		len(o.Template.UnsignedTx.TxOut) <= 0 {
		return ErrMalformedTemplate
	}
	if len(o.BuyerScript) <= 0 || len(o.BuyerChangeScript) <= 0 ||
		len(o.TreasuryScript) <= 0 {
		return ErrNullScript
	}
	if len(o.BuyerInputs) <= 0 {
		return ErrNoBuyerInputs
	}
	if o.FeeRate <= 0 {
		return ErrInvalidFeeRate
	}

	assetPrevout, err := o.Asset.OutPoint()
	if err != nil {
		return err
	}
	if o.Template.UnsignedTx.TxIn[0].PreviousOutPoint != *assetPrevout {
		return ErrTemplateInputMismatch
	}

	seen := map[wire.OutPoint]bool{*assetPrevout: true}
	for _, in := range o.BuyerInputs {
		prevout, err := in.OutPoint()
		if err != nil {
			return err
		}
		if seen[*prevout] {
			return ErrDuplicatedInput
		}
		seen[*prevout] = true

		if !feeutil.IsSpendable(feeutil.ScriptType(in.Script)) {
			return ErrUnsupportedInputScript
		}
	}
	return nil
}

// Breakdown reports how the buyer funds are split across the outputs of a
// purchase.
type Breakdown struct {
	InscriptionOutputValue uint64
	MarketFeeValue         uint64
	ChangeValue            uint64
	MinerFee               uint64
	FeeRate                uint64
	TotalBuyerInput        uint64
	VirtualSize            int
}

// ComposePurchase builds the buyer PSBT for a listing. Inputs are the asset
// (unsigned) followed by the buyer inputs, outputs are in fixed order:
// payout, asset to buyer, market fee to treasury and, if not dust, change.
func ComposePurchase(opts PurchaseOpts) (*psbt.Packet, *Breakdown, error) {
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}

	template := opts.Template.UnsignedTx
	payout := wire.NewTxOut(int64(opts.Price), opts.PayoutScript)
	if !txOutsEqual(template.TxOut[0], payout) {
		return nil, nil, ErrPayoutTampered
	}

	tx := wire.NewMsgTx(template.Version)
	tx.LockTime = template.LockTime
	assetIn := template.TxIn[0]
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: assetIn.PreviousOutPoint,
		Sequence:         assetIn.Sequence,
	})

	totalBuyerInput := uint64(0)
	inScriptTypes := []int{feeutil.P2TR}
	for _, in := range opts.BuyerInputs {
		prevout, _ := in.OutPoint()
		tx.AddTxIn(wire.NewTxIn(prevout, nil, nil))
		totalBuyerInput += in.Value
		inScriptTypes = append(inScriptTypes, feeutil.ScriptType(in.Script))
	}

	tx.AddTxOut(copyTxOut(template.TxOut[0]))
	tx.AddTxOut(wire.NewTxOut(int64(opts.Asset.Value), opts.BuyerScript))
	tx.AddTxOut(wire.NewTxOut(int64(opts.MarketFee), opts.TreasuryScript))

	outScriptTypes := []int{
		outputScriptType(opts.PayoutScript),
		outputScriptType(opts.BuyerScript),
		outputScriptType(opts.TreasuryScript),
	}
	outScriptTypesWithChange := append(
		append([]int{}, outScriptTypes...),
		outputScriptType(opts.BuyerChangeScript),
	)

	vsize := feeutil.EstimateTxSize(inScriptTypes, outScriptTypesWithChange)
	minerFee := feeutil.MinerFee(vsize, opts.FeeRate)
	spent := opts.Price + opts.MarketFee
	if totalBuyerInput < spent+minerFee {
		vsizeNoChange := feeutil.EstimateTxSize(inScriptTypes, outScriptTypes)
		if totalBuyerInput < spent+feeutil.MinerFee(vsizeNoChange, opts.FeeRate) {
			return nil, nil, ErrInsufficientFunds
		}
		vsize = vsizeNoChange
		minerFee = totalBuyerInput - spent
	}

	change := totalBuyerInput - spent - minerFee
	if change >= DustLimit {
		tx.AddTxOut(wire.NewTxOut(int64(change), opts.BuyerChangeScript))
	} else {
		// Sub-dust change is left to miners.
		vsize = feeutil.EstimateTxSize(inScriptTypes, outScriptTypes)
		minerFee += change
		change = 0
	}

	ptx, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, nil, err
	}
	updater, err := psbt.NewUpdater(ptx)
	if err != nil {
		return nil, nil, err
	}
	if err := updater.AddInWitnessUtxo(opts.Asset.TxOut(), 0); err != nil {
		return nil, nil, err
	}
	if sigHashType := opts.Template.Inputs[0].SighashType; sigHashType != 0 {
		if err := updater.AddInSighashType(sigHashType, 0); err != nil {
			return nil, nil, err
		}
	}
	for i, in := range opts.BuyerInputs {
		if txscript.GetScriptClass(in.Script) == txscript.PubKeyHashTy {
			continue
		}
		if err := updater.AddInWitnessUtxo(in.TxOut(), i+1); err != nil {
			return nil, nil, err
		}
	}

	return ptx, &Breakdown{
		InscriptionOutputValue: opts.Asset.Value,
		MarketFeeValue:         opts.MarketFee,
		ChangeValue:            change,
		MinerFee:               minerFee,
		FeeRate:                opts.FeeRate,
		TotalBuyerInput:        totalBuyerInput,
		VirtualSize:            vsize,
	}, nil
}

func outputScriptType(script []byte) int {
	if t := feeutil.ScriptType(script); t != feeutil.Unknown {
		return t
	}
	return feeutil.P2WSH
}

func copyTxOut(out *wire.TxOut) *wire.TxOut {
	script := make([]byte, len(out.PkScript))
	copy(script, out.PkScript)
	return wire.NewTxOut(out.Value, script)
}
