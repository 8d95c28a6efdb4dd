package inmemory

import (
	"context"
	"sync"

	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
)

type txKey struct{}

type store struct {
	txLock   *sync.Mutex
	lock     *sync.RWMutex
	listings map[string]domain.Listing
	attempts map[string]domain.PurchaseAttempt
}

type repoManager struct {
	store   *store
	listing domain.ListingRepository
	attempt domain.PurchaseAttemptRepository
}

// NewRepoManager returns a RepoManager that keeps everything in memory.
// Transactions are serialized and rolled back by restoring a snapshot of
// the store.
func NewRepoManager() ports.RepoManager {
	s := &store{
		txLock:   &sync.Mutex{},
		lock:     &sync.RWMutex{},
		listings: make(map[string]domain.Listing),
		attempts: make(map[string]domain.PurchaseAttempt),
	}
	return &repoManager{
		store:   s,
		listing: &listingRepository{s},
		attempt: &purchaseAttemptRepository{s},
	}
}

func (r *repoManager) ListingRepository() domain.ListingRepository {
	return r.listing
}

func (r *repoManager) PurchaseAttemptRepository() domain.PurchaseAttemptRepository {
	return r.attempt
}

func (r *repoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if readOnly {
		return handler(ctx)
	}

	if ctx.Value(txKey{}) != nil {
		return handler(ctx)
	}

	r.store.txLock.Lock()
	defer r.store.txLock.Unlock()

	listings, attempts := r.store.snapshot()
	res, err := handler(context.WithValue(ctx, txKey{}, struct{}{}))
	if err != nil {
		r.store.restore(listings, attempts)
		return nil, err
	}
	return res, nil
}

func (r *repoManager) Close() {}

// write serializes fn with running transactions unless it is part of one.
func (s *store) write(ctx context.Context, fn func() error) error {
	if ctx.Value(txKey{}) == nil {
		s.txLock.Lock()
		defer s.txLock.Unlock()
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	return fn()
}

func (s *store) snapshot() (map[string]domain.Listing, map[string]domain.PurchaseAttempt) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	listings := make(map[string]domain.Listing, len(s.listings))
	for k, v := range s.listings {
		listings[k] = v
	}
	attempts := make(map[string]domain.PurchaseAttempt, len(s.attempts))
	for k, v := range s.attempts {
		attempts[k] = v
	}
	return listings, attempts
}

func (s *store) restore(
	listings map[string]domain.Listing,
	attempts map[string]domain.PurchaseAttempt,
) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.listings = listings
	s.attempts = attempts
}
