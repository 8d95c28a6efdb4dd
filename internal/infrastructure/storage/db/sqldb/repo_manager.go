package sqldb

import (
	"context"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

type txKey struct{}

// DbConfig holds what's required to connect to a SQL database.
type DbConfig struct {
	Driver string
	// DSN is the connection string for postgres, or the path of the db file
	// for sqlite.
	DSN      string
	LogLevel log.Level
}

type repoManager struct {
	db *gorm.DB

	listingRepository         domain.ListingRepository
	purchaseAttemptRepository domain.PurchaseAttemptRepository
}

// NewRepoManager connects to the configured database and migrates its
// schema before returning.
func NewRepoManager(cfg DbConfig) (ports.RepoManager, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverSqlite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", cfg.Driver, err)
	}

	if db.Dialector.Name() == DriverSqlite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(
		&listingModel{}, &attemptModel{}, &assetLockModel{},
	); err != nil {
		return nil, fmt.Errorf("migrating db: %w", err)
	}

	return &repoManager{
		db:                        db,
		listingRepository:         &listingRepository{db},
		purchaseAttemptRepository: &purchaseAttemptRepository{db},
	}, nil
}

func (r *repoManager) ListingRepository() domain.ListingRepository {
	return r.listingRepository
}

func (r *repoManager) PurchaseAttemptRepository() domain.PurchaseAttemptRepository {
	return r.purchaseAttemptRepository
}

func (r *repoManager) RunTransaction(
	ctx context.Context,
	readOnly bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return handler(ctx)
	}

	var res interface{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = handler(context.WithValue(ctx, txKey{}, tx))
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *repoManager) Close() {
	sqlDB, err := r.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Warn("failed to close sql db")
	}
}

// conn returns the transaction carried by ctx if any.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// inTx runs fn within the transaction carried by ctx if any, otherwise
// within a new one.
func inTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(tx)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func gormLogLevel(lvl log.Level) logger.LogLevel {
	switch {
	case lvl >= log.DebugLevel:
		return logger.Info
	case lvl >= log.WarnLevel:
		return logger.Warn
	default:
		return logger.Silent
	}
}
