package feeutil_test

import (
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ordex-daemon/pkg/feeutil"
)

func TestEstimateTxSize(t *testing.T) {
	tests := []struct {
		name           string
		inScriptTypes  []int
		outScriptTypes []int
		expectedSize   int
	}{
		{
			name:           "taproot 1-1",
			inScriptTypes:  []int{feeutil.P2TR},
			outScriptTypes: []int{feeutil.P2TR},
			expectedSize:   112,
		},
		{
			name:           "p2wpkh 1-2",
			inScriptTypes:  []int{feeutil.P2WPKH},
			outScriptTypes: []int{feeutil.P2WPKH, feeutil.P2WPKH},
			expectedSize:   141,
		},
		{
			name:           "p2pkh 1-1",
			inScriptTypes:  []int{feeutil.P2PKH},
			outScriptTypes: []int{feeutil.P2PKH},
			expectedSize:   192,
		},
		{
			name:           "purchase",
			inScriptTypes:  []int{feeutil.P2TR, feeutil.P2TR},
			outScriptTypes: []int{feeutil.P2TR, feeutil.P2TR, feeutil.P2TR, feeutil.P2TR},
			expectedSize:   298,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			size := feeutil.EstimateTxSize(tt.inScriptTypes, tt.outScriptTypes)
			require.Equal(t, tt.expectedSize, size)
		})
	}
}

func TestScriptType(t *testing.T) {
	p2tr := append([]byte{txscript.OP_1, txscript.OP_DATA_32}, make([]byte, 32)...)
	p2wpkh := append([]byte{txscript.OP_0, txscript.OP_DATA_20}, make([]byte, 20)...)

	require.Equal(t, feeutil.P2TR, feeutil.ScriptType(p2tr))
	require.Equal(t, feeutil.P2WPKH, feeutil.ScriptType(p2wpkh))
	require.Equal(t, feeutil.Unknown, feeutil.ScriptType([]byte{txscript.OP_RETURN}))
	require.True(t, feeutil.IsSpendable(feeutil.P2TR))
	require.False(t, feeutil.IsSpendable(feeutil.P2WSH))
}

func TestMarketFee(t *testing.T) {
	two := decimal.NewFromInt(2)

	tests := []struct {
		name       string
		price      uint64
		percentage decimal.Decimal
		expected   uint64
	}{
		{"percentage", 100000, two, 2000},
		{"rounded down", 100049, two, 2000},
		{"minimum", 10000, two, 546},
		{"fractional percentage", 1000000, decimal.RequireFromString("0.5"), 5000},
		{"zero percentage", 100000, decimal.Zero, 546},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, feeutil.MarketFee(tt.price, tt.percentage, 546))
		})
	}
}

func TestMinerFee(t *testing.T) {
	require.Equal(t, uint64(1415), feeutil.MinerFee(283, 5))
	require.Zero(t, feeutil.MinerFee(0, 5))
}
