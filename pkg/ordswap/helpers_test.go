package ordswap_test

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ordex-daemon/pkg/ordswap"
)

type taprootKey struct {
	priv   *btcec.PrivateKey
	script []byte
}

func newTaprootKey(t *testing.T) taprootKey {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	script := append(
		[]byte{txscript.OP_1, txscript.OP_DATA_32},
		schnorr.SerializePubKey(priv.PubKey())...,
	)
	return taprootKey{priv, script}
}

func randomUtxo(t *testing.T, value uint64, script []byte) ordswap.Utxo {
	t.Helper()

	b := make([]byte, 32)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return ordswap.Utxo{
		TxID:   hex.EncodeToString(b),
		VOut:   0,
		Value:  value,
		Script: script,
	}
}

// signKeyPath signs the given input of the packet with a taproot key-path
// signature and stores it in the dedicated psbt field.
func signKeyPath(
	t *testing.T, ptx *psbt.Packet, index int, key taprootKey,
	prevouts []ordswap.Utxo, hashType txscript.SigHashType,
) {
	t.Helper()

	tx := ptx.UnsignedTx
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, prevout := range prevouts {
		fetcher.AddPrevOut(tx.TxIn[i].PreviousOutPoint, prevout.TxOut())
	}
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	sigHash, err := txscript.CalcTaprootSignatureHash(
		sigHashes, hashType, tx, index, fetcher,
	)
	require.NoError(t, err)

	sig, err := schnorr.Sign(key.priv, sigHash)
	require.NoError(t, err)

	raw := sig.Serialize()
	if hashType != txscript.SigHashDefault {
		raw = append(raw, byte(hashType))
	}
	ptx.Inputs[index].TaprootKeySpendSig = raw
}

type fixture struct {
	seller    taprootKey
	buyer     taprootKey
	treasury  taprootKey
	asset     ordswap.Utxo
	price     uint64
	marketFee uint64
	policy    ordswap.SigHashPolicy
	template  *psbt.Packet
}

func newFixture(t *testing.T, policy ordswap.SigHashPolicy) *fixture {
	t.Helper()

	f := &fixture{
		seller:    newTaprootKey(t),
		buyer:     newTaprootKey(t),
		treasury:  newTaprootKey(t),
		price:     100000,
		marketFee: 2000,
		policy:    policy,
	}
	f.asset = randomUtxo(t, 10000, f.seller.script)

	template, err := ordswap.BuildTemplate(ordswap.TemplateOpts{
		Asset:          f.asset,
		PayoutScript:   f.seller.script,
		Price:          f.price,
		Policy:         policy,
		TreasuryScript: f.treasury.script,
		MarketFee:      f.marketFee,
	})
	require.NoError(t, err)
	f.template = template
	return f
}

func (f *fixture) terms() ordswap.ExpectedTerms {
	return ordswap.ExpectedTerms{
		Asset:        f.asset,
		PayoutScript: f.seller.script,
		Price:        f.price,
		Policy:       f.policy,
	}
}

func (f *fixture) signedTemplate(t *testing.T) *psbt.Packet {
	t.Helper()

	signed := copyPacket(t, f.template)
	signKeyPath(
		t, signed, 0, f.seller, []ordswap.Utxo{f.asset},
		f.policy.SigHashType(),
	)
	return signed
}

func (f *fixture) purchaseOpts(inputs ...ordswap.Utxo) ordswap.PurchaseOpts {
	return ordswap.PurchaseOpts{
		Template:          f.template,
		Asset:             f.asset,
		PayoutScript:      f.seller.script,
		Price:             f.price,
		BuyerScript:       f.buyer.script,
		BuyerChangeScript: f.buyer.script,
		TreasuryScript:    f.treasury.script,
		MarketFee:         f.marketFee,
		BuyerInputs:       inputs,
		FeeRate:           5,
	}
}

func (f *fixture) settlementTerms(inputs ...ordswap.Utxo) ordswap.SettlementTerms {
	return ordswap.SettlementTerms{
		Template:       f.template,
		TreasuryScript: f.treasury.script,
		MarketFee:      f.marketFee,
		BuyerScript:    f.buyer.script,
		Inputs:         append([]ordswap.Utxo{f.asset}, inputs...),
	}
}

func copyPacket(t *testing.T, ptx *psbt.Packet) *psbt.Packet {
	t.Helper()

	b64, err := ptx.B64Encode()
	require.NoError(t, err)
	cp, err := psbt.NewFromRawBytes(strings.NewReader(b64), true)
	require.NoError(t, err)
	return cp
}
