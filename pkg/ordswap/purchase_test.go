package ordswap_test

import (
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ordex-daemon/pkg/ordswap"
)

func TestComposePurchase(t *testing.T) {
	f := newFixture(t, ordswap.PolicySingle)
	buyerIn := randomUtxo(t, 150000, f.buyer.script)

	ptx, breakdown, err := ordswap.ComposePurchase(f.purchaseOpts(buyerIn))
	require.NoError(t, err)

	tx := ptx.UnsignedTx
	require.Len(t, tx.TxIn, 2)
	assetPrevout, _ := f.asset.OutPoint()
	require.Equal(t, *assetPrevout, tx.TxIn[0].PreviousOutPoint)

	require.Len(t, tx.TxOut, 4)
	require.Equal(t, f.template.UnsignedTx.TxOut[0], tx.TxOut[0])
	require.Equal(t, int64(10000), tx.TxOut[1].Value)
	require.Equal(t, f.buyer.script, tx.TxOut[1].PkScript)
	require.Equal(t, int64(2000), tx.TxOut[2].Value)
	require.Equal(t, f.treasury.script, tx.TxOut[2].PkScript)

	expectedChange := 150000 - 100000 - 2000 - breakdown.MinerFee
	require.Equal(t, int64(expectedChange), tx.TxOut[3].Value)
	require.Equal(t, expectedChange, breakdown.ChangeValue)
	require.Equal(t, uint64(298*5), breakdown.MinerFee)
	require.Equal(t, 298, breakdown.VirtualSize)
	require.Equal(t, uint64(150000), breakdown.TotalBuyerInput)
	require.Equal(t, uint64(10000), breakdown.InscriptionOutputValue)
	require.Equal(t, uint64(2000), breakdown.MarketFeeValue)

	require.Equal(
		t, txscript.SigHashSingle|txscript.SigHashAnyOneCanPay,
		ptx.Inputs[0].SighashType,
	)
	require.NotNil(t, ptx.Inputs[1].WitnessUtxo)
	require.Empty(t, ptx.Inputs[0].TaprootKeySpendSig)
}

func TestComposePurchaseFoldsDustChange(t *testing.T) {
	f := newFixture(t, ordswap.PolicySingle)
	// 1490 sats of miner fee with change, 1275 without: 85 sats of change
	// would be left, below dust.
	buyerIn := randomUtxo(t, 103575, f.buyer.script)

	ptx, breakdown, err := ordswap.ComposePurchase(f.purchaseOpts(buyerIn))
	require.NoError(t, err)

	require.Len(t, ptx.UnsignedTx.TxOut, 3)
	require.Zero(t, breakdown.ChangeValue)
	require.Equal(t, uint64(1575), breakdown.MinerFee)
	require.Equal(t, 255, breakdown.VirtualSize)
}

func TestComposePurchaseWithoutRoomForChange(t *testing.T) {
	f := newFixture(t, ordswap.PolicySingle)
	buyerIn := randomUtxo(t, 103300, f.buyer.script)

	ptx, breakdown, err := ordswap.ComposePurchase(f.purchaseOpts(buyerIn))
	require.NoError(t, err)

	require.Len(t, ptx.UnsignedTx.TxOut, 3)
	require.Zero(t, breakdown.ChangeValue)
	require.Equal(t, uint64(1300), breakdown.MinerFee)
}

func TestFailingComposePurchase(t *testing.T) {
	f := newFixture(t, ordswap.PolicySingle)
	buyerIn := randomUtxo(t, 150000, f.buyer.script)
	p2wsh := append([]byte{txscript.OP_0, txscript.OP_DATA_32}, make([]byte, 32)...)

	tests := []struct {
		name string
		opts func() ordswap.PurchaseOpts
		err  error
	}{
		{
			name: "insufficient funds",
			opts: func() ordswap.PurchaseOpts {
				return f.purchaseOpts(randomUtxo(t, 103000, f.buyer.script))
			},
			err: ordswap.ErrInsufficientFunds,
		},
		{
			name: "no buyer inputs",
			opts: func() ordswap.PurchaseOpts { return f.purchaseOpts() },
			err:  ordswap.ErrNoBuyerInputs,
		},
		{
			name: "duplicated input",
			opts: func() ordswap.PurchaseOpts { return f.purchaseOpts(buyerIn, buyerIn) },
			err:  ordswap.ErrDuplicatedInput,
		},
		{
			name: "asset as buyer input",
			opts: func() ordswap.PurchaseOpts { return f.purchaseOpts(f.asset) },
			err:  ordswap.ErrDuplicatedInput,
		},
		{
			name: "unsupported input",
			opts: func() ordswap.PurchaseOpts {
				return f.purchaseOpts(randomUtxo(t, 150000, p2wsh))
			},
			err: ordswap.ErrUnsupportedInputScript,
		},
		{
			name: "zero fee rate",
			opts: func() ordswap.PurchaseOpts {
				opts := f.purchaseOpts(buyerIn)
				opts.FeeRate = 0
				return opts
			},
			err: ordswap.ErrInvalidFeeRate,
		},
		{
			name: "payout differs from template",
			opts: func() ordswap.PurchaseOpts {
				opts := f.purchaseOpts(buyerIn)
				opts.Price++
				return opts
			},
			err: ordswap.ErrPayoutTampered,
		},
		{
			name: "other asset",
			opts: func() ordswap.PurchaseOpts {
				opts := f.purchaseOpts(buyerIn)
				opts.Asset = randomUtxo(t, 10000, f.seller.script)
				return opts
			},
			err: ordswap.ErrTemplateInputMismatch,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ordswap.ComposePurchase(tt.opts())
			require.ErrorIs(t, err, tt.err)
		})
	}
}
