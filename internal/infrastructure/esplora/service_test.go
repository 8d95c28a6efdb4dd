package esplora_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
	"github.com/tdex-network/ordex-daemon/internal/infrastructure/esplora"
)

const (
	knownTxid   = "9f8b1f2c4a1d3e5b7a6c8d0e2f4a6b8c0d2e4f6a8b0c2d4e6f8a0b2c4d6e8f0a"
	unknownTxid = "0000000000000000000000000000000000000000000000000000000000000001"
	script      = "51200c1ec2a8a4de6b6e57d83c1f8d7c6a5b4e3f2d1c0b9a8f7e6d5c4b3a2918f7"
)

type explorerMock struct {
	*httptest.Server
	spent      map[uint32]bool
	txRequests int32
	broadcasts int32
	failures   int32
}

func newExplorerMock(t *testing.T) *explorerMock {
	m := &explorerMock{spent: map[uint32]bool{1: true}}

	r := chi.NewRouter()
	r.Get("/tx/{txid}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.txRequests, 1)
		if chi.URLParam(r, "txid") != knownTxid {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"txid":"%s","vout":[{"scriptpubkey":"%s","value":10000},{"scriptpubkey":"%s","value":546}]}`,
			knownTxid, script, script)
	})
	r.Get("/tx/{txid}/outspend/{vout}", func(w http.ResponseWriter, r *http.Request) {
		var vout uint32
		fmt.Sscanf(chi.URLParam(r, "vout"), "%d", &vout)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"spent":%t}`, m.spent[vout])
	})
	r.Post("/tx", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.broadcasts, 1)
		body, _ := io.ReadAll(r.Body)
		switch strings.TrimSpace(string(body)) {
		case "rejected":
			http.Error(w, "sendrawtransaction RPC error: bad-txns-inputs-missingorspent", http.StatusBadRequest)
		case "flaky":
			if atomic.AddInt32(&m.failures, 1) < 2 {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, knownTxid)
		default:
			fmt.Fprint(w, knownTxid)
		}
	})

	m.Server = httptest.NewServer(r)
	t.Cleanup(m.Close)
	return m
}

func newService(t *testing.T, url string) esplora.Service {
	svc, err := esplora.NewService(esplora.Config{
		URL:            url,
		RequestTimeout: 2 * time.Second,
		RateLimit:      1000,
	})
	require.NoError(t, err)
	return svc
}

func TestGetUtxo(t *testing.T) {
	m := newExplorerMock(t)
	svc := newService(t, m.URL)
	ctx := context.Background()

	utxo, err := svc.GetUtxo(ctx, domain.Outpoint{TxID: knownTxid, VOut: 0})
	require.NoError(t, err)
	require.Equal(t, uint64(10000), utxo.GetValue())
	require.Len(t, utxo.GetScript(), 34)
	require.False(t, utxo.IsSpent())

	utxo, err = svc.GetUtxo(ctx, domain.Outpoint{TxID: knownTxid, VOut: 1})
	require.NoError(t, err)
	require.Equal(t, uint64(546), utxo.GetValue())
	require.True(t, utxo.IsSpent())

	// Outputs of known txs are fetched once.
	require.Equal(t, int32(1), atomic.LoadInt32(&m.txRequests))

	_, err = svc.GetUtxo(ctx, domain.Outpoint{TxID: knownTxid, VOut: 2})
	require.ErrorIs(t, err, ports.ErrUtxoNotFound)

	_, err = svc.GetUtxo(ctx, domain.Outpoint{TxID: unknownTxid, VOut: 0})
	require.ErrorIs(t, err, ports.ErrUtxoNotFound)
}

func TestBroadcastTransaction(t *testing.T) {
	m := newExplorerMock(t)
	svc := newService(t, m.URL)
	ctx := context.Background()

	txid, err := svc.BroadcastTransaction(ctx, "0200000000")
	require.NoError(t, err)
	require.Equal(t, knownTxid, txid)

	txid, err = svc.BroadcastTransaction(ctx, "flaky")
	require.NoError(t, err)
	require.Equal(t, knownTxid, txid)

	before := atomic.LoadInt32(&m.broadcasts)
	txid, err = svc.BroadcastTransaction(ctx, "rejected")
	require.ErrorIs(t, err, ports.ErrTxRejected)
	require.Contains(t, err.Error(), "missingorspent")
	require.Empty(t, txid)
	require.Equal(t, before+1, atomic.LoadInt32(&m.broadcasts))
}

func TestServiceUnavailable(t *testing.T) {
	m := newExplorerMock(t)
	url := m.URL
	m.Close()

	svc := newService(t, url)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := svc.GetUtxo(ctx, domain.Outpoint{TxID: knownTxid, VOut: 0})
	require.Error(t, err)
	require.NotErrorIs(t, err, ports.ErrUtxoNotFound)
}

func TestNewService(t *testing.T) {
	_, err := esplora.NewService(esplora.Config{})
	require.Error(t, err)
}
