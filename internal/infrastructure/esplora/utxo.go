package esplora

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/patrickmn/go-cache"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
)

// GetUtxo returns the output referenced by key along with its spent status.
// Outputs of known transactions are cached, as is the spent status once the
// output has been spent.
func (s *service) GetUtxo(
	ctx context.Context, key ports.UtxoKey,
) (ports.Utxo, error) {
	txid, index := key.GetTxid(), key.GetIndex()

	outs, err := s.getTxOuts(ctx, txid)
	if err != nil {
		return nil, err
	}
	if int(index) >= len(outs) {
		return nil, ports.ErrUtxoNotFound
	}
	out := outs[index]

	script, err := hex.DecodeString(out.ScriptPubKey)
	if err != nil {
		return nil, fmt.Errorf("invalid script for %s:%d: %w", txid, index, err)
	}

	spent, err := s.isSpent(ctx, txid, index)
	if err != nil {
		return nil, err
	}

	return utxo{
		txid:   txid,
		index:  index,
		value:  out.Value,
		script: script,
		spent:  spent,
	}, nil
}

func (s *service) getTxOuts(ctx context.Context, txid string) ([]txOut, error) {
	if cached, ok := s.txCache.Get(txid); ok {
		return cached.([]txOut), nil
	}

	var t tx
	if err := s.get(ctx, fmt.Sprintf("/tx/%s", txid), &t); err != nil {
		if errors.Is(err, errNotFound) || errors.Is(err, ports.ErrTxRejected) {
			return nil, ports.ErrUtxoNotFound
		}
		return nil, err
	}

	s.txCache.Set(txid, t.Vout, cache.DefaultExpiration)
	return t.Vout, nil
}

func (s *service) isSpent(
	ctx context.Context, txid string, index uint32,
) (bool, error) {
	key := fmt.Sprintf("%s:%d", txid, index)
	if _, ok := s.spentCache.Get(key); ok {
		return true, nil
	}

	var o outspend
	path := fmt.Sprintf("/tx/%s/outspend/%d", txid, index)
	if err := s.get(ctx, path, &o); err != nil {
		if errors.Is(err, errNotFound) {
			return false, ports.ErrUtxoNotFound
		}
		return false, err
	}

	if o.Spent {
		s.spentCache.Set(key, struct{}{}, cache.DefaultExpiration)
	}
	return o.Spent, nil
}
