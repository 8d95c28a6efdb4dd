package dbbadger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

const (
	marketDir = "market"

	maxConflictRetries = 10
)

type txKey struct{}

type repoManager struct {
	store *badgerhold.Store

	listingRepository         domain.ListingRepository
	purchaseAttemptRepository domain.PurchaseAttemptRepository
}

// NewRepoManager opens (or creates if not exists) the badger store on disk.
// It expects a base data dir and an optional logger. An empty dir opens an
// in-memory store.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	dbDir := ""
	if baseDbDir != "" {
		dbDir = filepath.Join(baseDbDir, marketDir)
	}
	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening market db: %w", err)
	}

	return &repoManager{
		store:                     store,
		listingRepository:         &listingRepository{store},
		purchaseAttemptRepository: &purchaseAttemptRepository{store},
	}, nil
}

func (r *repoManager) ListingRepository() domain.ListingRepository {
	return r.listingRepository
}

func (r *repoManager) PurchaseAttemptRepository() domain.PurchaseAttemptRepository {
	return r.purchaseAttemptRepository
}

func (r *repoManager) Close() {
	if err := r.store.Close(); err != nil {
		log.WithError(err).Warn("failed to close market db")
	}
}

// RunTransaction runs the handler in a badger transaction that is retried
// in case of conflicts with concurrent ones.
func (r *repoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	for i := 0; ; i++ {
		res, err := r.runTransaction(ctx, readOnly, handler)
		if err == nil || !errors.Is(err, badger.ErrConflict) ||
			i >= maxConflictRetries {
			return res, err
		}
		log.Debugf("db transaction conflict, retrying (%d)", i+1)
		time.Sleep(conflictBackoff(i))
	}
}

func (r *repoManager) runTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	tx := r.store.Badger().NewTransaction(!readOnly)
	defer tx.Discard()

	res, err := handler(context.WithValue(ctx, txKey{}, tx))
	if err != nil {
		return nil, err
	}
	if !readOnly {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// update runs fn within the transaction carried by ctx if any, otherwise
// within a new one that is committed, and retried on conflicts, before
// returning.
func update(
	ctx context.Context, store *badgerhold.Store, fn func(tx *badger.Txn) error,
) error {
	if tx, ok := ctx.Value(txKey{}).(*badger.Txn); ok {
		return fn(tx)
	}

	for i := 0; ; i++ {
		err := store.Badger().Update(fn)
		if err == nil || !errors.Is(err, badger.ErrConflict) ||
			i >= maxConflictRetries {
			return err
		}
		time.Sleep(conflictBackoff(i))
	}
}

func txFromContext(ctx context.Context) *badger.Txn {
	tx, _ := ctx.Value(txKey{}).(*badger.Txn)
	return tx
}

func conflictBackoff(attempt int) time.Duration {
	return time.Duration(attempt+1) * 5 * time.Millisecond
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	if dbDir == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
