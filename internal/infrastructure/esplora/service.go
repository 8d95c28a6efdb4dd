package esplora

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
	"github.com/tdex-network/ordex-daemon/pkg/circuitbreaker"
	"go.uber.org/ratelimit"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultRateLimit      = 10
	maxRetries            = 3
)

var (
	// ErrServiceUnavailable is returned when the explorer can't be reached
	// or is failing most of the requests.
	ErrServiceUnavailable = errors.New("explorer service unavailable")

	errNotFound = errors.New("not found")
)

// Service is the explorer acting as utxo oracle and broadcaster.
type Service interface {
	ports.UtxoOracle
	ports.Broadcaster
}

// Config holds the explorer connection params. Zero values fall back to
// defaults.
type Config struct {
	URL            string
	RequestTimeout time.Duration
	// RateLimit is the max number of requests per second.
	RateLimit int
}

type service struct {
	client  *resty.Client
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter

	txCache    *cache.Cache
	spentCache *cache.Cache
}

// NewService returns a client for the esplora REST API reachable at the
// given URL.
func NewService(cfg Config) (Service, error) {
	url := strings.TrimSuffix(strings.TrimSpace(cfg.URL), "/")
	if url == "" {
		return nil, fmt.Errorf("missing explorer url")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}

	client := resty.New().
		SetBaseURL(url).
		SetTimeout(timeout).
		SetHeader("User-Agent", "ordexd")

	return &service{
		client: client,
		cb: circuitbreaker.NewCircuitBreaker("esplora", func(err error) bool {
			return err == nil ||
				errors.Is(err, errNotFound) ||
				errors.Is(err, ports.ErrTxRejected)
		}),
		limiter:    ratelimit.New(rateLimit),
		txCache:    cache.New(10*time.Minute, 15*time.Minute),
		spentCache: cache.New(time.Hour, 2*time.Hour),
	}, nil
}

// get fetches the given path and decodes the JSON response into result.
func (s *service) get(
	ctx context.Context, path string, result interface{},
) error {
	body, err := s.do(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.Get(path)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", path, err)
	}
	return nil
}

// do sends the request through the circuit breaker and retries it on
// network and server errors. Client errors are not retried: 404 and 400
// are returned as errNotFound and ports.ErrTxRejected respectively.
func (s *service) do(
	ctx context.Context,
	send func(req *resty.Request) (*resty.Response, error),
) ([]byte, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		var body []byte
		op := func() error {
			s.limiter.Take()

			resp, err := send(s.client.R().SetContext(ctx))
			if err != nil {
				if ctx.Err() != nil {
					return backoff.Permanent(ctx.Err())
				}
				return err
			}

			switch status := resp.StatusCode(); {
			case status == http.StatusNotFound:
				return backoff.Permanent(errNotFound)
			case status == http.StatusBadRequest:
				return backoff.Permanent(
					fmt.Errorf("%w: %s", ports.ErrTxRejected, resp.String()),
				)
			case status >= http.StatusInternalServerError:
				return fmt.Errorf("explorer error: %s", resp.Status())
			case resp.IsError():
				return backoff.Permanent(
					fmt.Errorf("unexpected explorer response: %s", resp.Status()),
				)
			}

			body = resp.Body()
			return nil
		}

		notify := func(err error, next time.Duration) {
			log.WithError(err).Debugf("explorer request failed, retrying in %s", next)
		}
		b := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx,
		)
		if err := backoff.RetryNotify(op, b, notify); err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) ||
			errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, err)
		}
		return nil, err
	}
	return res.([]byte), nil
}
