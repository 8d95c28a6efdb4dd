package marketplace_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ordex-daemon/internal/core/application/marketplace"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
	"github.com/tdex-network/ordex-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/tdex-network/ordex-daemon/pkg/envelope"
	"github.com/tdex-network/ordex-daemon/pkg/ordswap"
)

var (
	ctx     = context.Background()
	network = &chaincfg.RegressionNetParams
	rsaKey  *rsa.PrivateKey
)

const (
	assetValue = uint64(10000)
	price      = uint64(100000)
	marketFee  = uint64(2000)
	feeRate    = uint64(5)

	defaultClaimTTL = time.Minute
)

func TestMain(m *testing.M) {
	key, err := envelope.GenerateKey(2048)
	if err != nil {
		panic(err)
	}
	rsaKey = key
	os.Exit(m.Run())
}

type taprootKey struct {
	priv    *btcec.PrivateKey
	script  []byte
	address string
}

func newTaprootKey(t *testing.T) taprootKey {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	xonly := schnorr.SerializePubKey(priv.PubKey())
	addr, err := btcutil.NewAddressTaproot(xonly, network)
	require.NoError(t, err)
	script := append([]byte{txscript.OP_1, txscript.OP_DATA_32}, xonly...)
	return taprootKey{priv, script, addr.EncodeAddress()}
}

type testEnv struct {
	svc         *marketplace.Service
	repoManager ports.RepoManager
	oracle      *mockOracle
	broadcaster *mockBroadcaster
	escrow      *countingEscrow

	seller   taprootKey
	buyer    taprootKey
	treasury taprootKey
	asset    domain.Utxo

	assetCall *mock.Call
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cipher, err := envelope.New(rsaKey)
	require.NoError(t, err)

	env := &testEnv{
		repoManager: inmemory.NewRepoManager(),
		oracle:      &mockOracle{},
		broadcaster: &mockBroadcaster{},
		escrow:      &countingEscrow{Cipher: cipher},
		seller:      newTaprootKey(t),
		buyer:       newTaprootKey(t),
		treasury:    newTaprootKey(t),
	}
	env.asset = randomUtxo(assetValue, env.seller.script)

	svc, err := marketplace.NewService(marketplace.Opts{
		RepoManager:         env.repoManager,
		Oracle:              env.oracle,
		Broadcaster:         env.broadcaster,
		Escrow:              env.escrow,
		Metrics:             marketplace.NewMetrics(),
		Network:             network,
		TreasuryAddress:     env.treasury.address,
		MarketFeePercentage: decimal.NewFromInt(2),
		Policy:              ordswap.PolicySingle,
	})
	require.NoError(t, err)
	env.svc = svc
	return env
}

// mockUtxo makes the oracle report the given utxo for any further call.
func (e *testEnv) mockUtxo(u domain.Utxo, spent bool) *mock.Call {
	return e.oracle.On("GetUtxo", mock.Anything, u.Outpoint).Return(utxo{
		txid:   u.TxID,
		index:  u.VOut,
		value:  u.Value,
		script: u.Script,
		spent:  spent,
	}, nil)
}

// spendAsset makes the oracle report the env asset as spent.
func (e *testEnv) spendAsset() {
	if e.assetCall != nil {
		e.assetCall.Unset()
	}
	e.assetCall = e.mockUtxo(e.asset, true)
}

func (e *testEnv) mockBroadcast(err error) *mock.Call {
	return e.broadcaster.On(
		"BroadcastTransaction", mock.Anything, mock.AnythingOfType("string"),
	).Return("", err)
}

func (e *testEnv) newBuyerInput(value uint64) domain.Utxo {
	u := randomUtxo(value, e.buyer.script)
	e.mockUtxo(u, false)
	return u
}

// createListing returns a PENDING listing for the env asset.
func (e *testEnv) createListing(t *testing.T) *marketplace.NewListing {
	t.Helper()

	listing, err := e.svc.CreateListing(
		ctx, e.asset.Outpoint, e.seller.address, price,
	)
	require.NoError(t, err)
	return listing
}

// openListing returns the id of an OPEN listing for the env asset.
func (e *testEnv) openListing(t *testing.T) string {
	t.Helper()

	e.assetCall = e.mockUtxo(e.asset, false)
	listing := e.createListing(t)
	signed := e.signTemplate(t, listing.ListingPsbt, e.seller, sigHashSingle)
	summary, err := e.svc.SubmitSellerSignature(ctx, listing.ID, signed)
	require.NoError(t, err)
	require.Equal(t, domain.ListingStatusOpen, summary.Status)
	return listing.ID
}

func (e *testEnv) signTemplate(
	t *testing.T, b64 string, key taprootKey, hashType txscript.SigHashType,
) string {
	t.Helper()

	ptx := decodePsbt(t, b64)
	signKeyPath(t, ptx, 0, key, []domain.Utxo{e.asset}, hashType)
	return encodePsbt(t, ptx)
}

func (e *testEnv) preparePurchase(
	t *testing.T, orderID string, inputs ...domain.Utxo,
) *marketplace.PurchaseInfo {
	t.Helper()

	info, err := e.svc.PreparePurchase(ctx, e.purchaseRequest(orderID, inputs...))
	require.NoError(t, err)
	return info
}

func (e *testEnv) purchaseRequest(
	orderID string, inputs ...domain.Utxo,
) marketplace.PurchaseRequest {
	buyerInputs := make([]marketplace.BuyerInput, 0, len(inputs))
	for _, in := range inputs {
		buyerInputs = append(buyerInputs, marketplace.BuyerInput{
			Outpoint: in.Outpoint,
		})
	}
	return marketplace.PurchaseRequest{
		OrderID:            orderID,
		BuyerAddress:       e.buyer.address,
		BuyerChangeAddress: e.buyer.address,
		BuyerInputs:        buyerInputs,
		FeeRate:            feeRate,
	}
}

// signPurchase signs all buyer inputs of the purchase psbt after applying
// the given changes to the unsigned tx.
func (e *testEnv) signPurchase(
	t *testing.T, b64 string, inputs []domain.Utxo,
	tamper func(ptx *psbt.Packet),
) string {
	t.Helper()

	ptx := decodePsbt(t, b64)
	if tamper != nil {
		tamper(ptx)
	}
	prevouts := append([]domain.Utxo{e.asset}, inputs...)
	for i := 1; i < len(prevouts); i++ {
		signKeyPath(t, ptx, i, e.buyer, prevouts, txscript.SigHashDefault)
	}
	return encodePsbt(t, ptx)
}

const sigHashSingle = txscript.SigHashSingle | txscript.SigHashAnyOneCanPay

func signKeyPath(
	t *testing.T, ptx *psbt.Packet, index int, key taprootKey,
	prevouts []domain.Utxo, hashType txscript.SigHashType,
) {
	t.Helper()

	tx := ptx.UnsignedTx
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, prevout := range prevouts {
		fetcher.AddPrevOut(
			tx.TxIn[i].PreviousOutPoint,
			wireTxOut(prevout),
		)
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

func decodePsbt(t *testing.T, b64 string) *psbt.Packet {
	t.Helper()

	ptx, err := psbt.NewFromRawBytes(strings.NewReader(b64), true)
	require.NoError(t, err)
	return ptx
}

func encodePsbt(t *testing.T, ptx *psbt.Packet) string {
	t.Helper()

	b64, err := ptx.B64Encode()
	require.NoError(t, err)
	return b64
}

func randomUtxo(value uint64, script []byte) domain.Utxo {
	return domain.Utxo{
		Outpoint: domain.Outpoint{TxID: randomHex(32), VOut: 0},
		Value:    value,
		Script:   script,
	}
}

func randomHex(len int) string {
	b := make([]byte, len)
	//nolint
	rand.Read(b)
	return hex.EncodeToString(b)
}

func wireTxOut(u domain.Utxo) *wire.TxOut {
	return wire.NewTxOut(int64(u.Value), u.Script)
}
