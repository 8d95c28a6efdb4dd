package marketplace_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
	"github.com/tdex-network/ordex-daemon/pkg/envelope"
)

// **** Oracle ****

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) GetUtxo(
	ctx context.Context, key ports.UtxoKey,
) (ports.Utxo, error) {
	args := m.Called(ctx, key)

	var res ports.Utxo
	if a := args.Get(0); a != nil {
		res = a.(ports.Utxo)
	}
	return res, args.Error(1)
}

// **** Broadcaster ****

type mockBroadcaster struct {
	mock.Mock
	lock sync.Mutex
	txs  []string
}

func (m *mockBroadcaster) BroadcastTransaction(
	ctx context.Context, txHex string,
) (string, error) {
	args := m.Called(ctx, txHex)

	var res string
	if a := args.Get(0); a != nil {
		res = a.(string)
	}
	if err := args.Error(1); err != nil {
		return "", err
	}

	m.lock.Lock()
	m.txs = append(m.txs, txHex)
	m.lock.Unlock()
	return res, nil
}

func (m *mockBroadcaster) broadcasted() []string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]string{}, m.txs...)
}

// **** Escrow ****

// countingEscrow is a real envelope cipher that counts how many times a
// signature has been unsealed.
type countingEscrow struct {
	*envelope.Cipher
	opened int32
}

func (e *countingEscrow) Open(ciphertext, wrappedKey []byte) ([]byte, error) {
	atomic.AddInt32(&e.opened, 1)
	return e.Cipher.Open(ciphertext, wrappedKey)
}

func (e *countingEscrow) openCount() int {
	return int(atomic.LoadInt32(&e.opened))
}

// **** Utxo ****

type utxo struct {
	txid   string
	index  uint32
	value  uint64
	script []byte
	spent  bool
}

func (u utxo) GetTxid() string   { return u.txid }
func (u utxo) GetIndex() uint32  { return u.index }
func (u utxo) GetValue() uint64  { return u.value }
func (u utxo) GetScript() []byte { return u.script }
func (u utxo) IsSpent() bool     { return u.spent }
