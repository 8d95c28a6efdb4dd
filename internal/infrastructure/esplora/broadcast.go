package esplora

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// BroadcastTransaction publishes the given tx hex and returns the txid
// echoed by the explorer. Transactions refused by the network are reported
// with ports.ErrTxRejected.
func (s *service) BroadcastTransaction(
	ctx context.Context, txHex string,
) (string, error) {
	body, err := s.do(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("Content-Type", "text/plain").
			SetBody(txHex).
			Post("/tx")
	})
	if err != nil {
		return "", err
	}

	txid := strings.TrimSpace(string(body))
	log.Debugf("broadcasted tx %s", txid)
	return txid, nil
}
