package application

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ordex-daemon/internal/core/application/marketplace"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
	"github.com/tdex-network/ordex-daemon/internal/infrastructure/esplora"
	dbbadger "github.com/tdex-network/ordex-daemon/internal/infrastructure/storage/db/badger"
	"github.com/tdex-network/ordex-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/tdex-network/ordex-daemon/internal/infrastructure/storage/db/sqldb"
	"github.com/tdex-network/ordex-daemon/pkg/envelope"
	"github.com/tdex-network/ordex-daemon/pkg/ordswap"
)

const (
	DBBadger   = "badger"
	DBInMemory = "inmemory"
	DBPostgres = sqldb.DriverPostgres
	DBSqlite   = sqldb.DriverSqlite
)

var (
	SupportedDBType = map[string]struct{}{
		DBBadger:   {},
		DBInMemory: {},
		DBPostgres: {},
		DBSqlite:   {},
	}
)

type Config struct {
	// DBConfig is the datadir for badger, the connection string for
	// postgres and sqlite, and is ignored for inmemory.
	DBType   string
	DBConfig string

	Network                *chaincfg.Params
	ExplorerEndpoint       string
	ExplorerRequestTimeout time.Duration
	ExplorerRateLimit      int

	EscrowKeyPath     string
	EscrowKeyPassword string

	TreasuryAddress        string
	MarketFeePercentage    decimal.Decimal
	SigHashPolicy          string
	ListingExpiry          time.Duration
	SettlementClaimTimeout time.Duration
	OracleTimeout          time.Duration
	BroadcastTimeout       time.Duration
	MaxFeeRate             uint64

	repo        ports.RepoManager
	explorer    esplora.Service
	escrow      ports.SignatureEscrow
	marketplace MarketplaceService
}

func (c *Config) Validate() error {
	if _, ok := SupportedDBType[c.DBType]; !ok {
		return fmt.Errorf("unsupported db type %s", c.DBType)
	}
	if c.Network == nil {
		return fmt.Errorf("missing network")
	}
	if _, err := ordswap.ParsePolicy(c.SigHashPolicy); err != nil {
		return err
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}
	if _, err := c.explorerService(); err != nil {
		return err
	}
	if _, err := c.signatureEscrow(); err != nil {
		return err
	}
	if _, err := c.marketplaceService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) RepoManager() ports.RepoManager {
	svc, _ := c.repoManager()
	return svc
}

func (c *Config) MarketplaceService() MarketplaceService {
	svc, _ := c.marketplaceService()
	return svc
}

func (c *Config) repoManager() (ports.RepoManager, error) {
	if c.repo == nil {
		var (
			repoManager ports.RepoManager
			err         error
		)
		switch c.DBType {
		case DBBadger:
			repoManager, err = dbbadger.NewRepoManager(c.DBConfig, log.New())
		case DBInMemory:
			repoManager = inmemory.NewRepoManager()
		case DBPostgres, DBSqlite:
			repoManager, err = sqldb.NewRepoManager(sqldb.DbConfig{
				Driver:   c.DBType,
				DSN:      c.DBConfig,
				LogLevel: log.GetLevel(),
			})
		default:
			err = fmt.Errorf("unsupported db type %s", c.DBType)
		}
		if err != nil {
			return nil, err
		}
		c.repo = repoManager
	}
	return c.repo, nil
}

func (c *Config) explorerService() (esplora.Service, error) {
	if c.explorer == nil {
		svc, err := esplora.NewService(esplora.Config{
			URL:            c.ExplorerEndpoint,
			RequestTimeout: c.ExplorerRequestTimeout,
			RateLimit:      c.ExplorerRateLimit,
		})
		if err != nil {
			return nil, err
		}
		c.explorer = svc
	}
	return c.explorer, nil
}

func (c *Config) signatureEscrow() (ports.SignatureEscrow, error) {
	if c.escrow == nil {
		if c.EscrowKeyPath == "" {
			return nil, fmt.Errorf("missing escrow key path")
		}
		cipher, err := envelope.LoadOrCreateCipher(
			c.EscrowKeyPath, c.EscrowKeyPassword, envelope.DefaultKeyBits,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load escrow key: %w", err)
		}
		c.escrow = cipher
	}
	return c.escrow, nil
}

func (c *Config) marketplaceService() (MarketplaceService, error) {
	if c.marketplace == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		explorer, err := c.explorerService()
		if err != nil {
			return nil, err
		}
		escrow, err := c.signatureEscrow()
		if err != nil {
			return nil, err
		}
		policy, err := ordswap.ParsePolicy(c.SigHashPolicy)
		if err != nil {
			return nil, err
		}

		svc, err := NewMarketplaceService(marketplace.Opts{
			RepoManager:         repo,
			Oracle:              explorer,
			Broadcaster:         explorer,
			Escrow:              escrow,
			Metrics:             marketplace.DefaultMetrics(),
			Network:             c.Network,
			TreasuryAddress:     c.TreasuryAddress,
			MarketFeePercentage: c.MarketFeePercentage,
			Policy:              policy,
			ListingExpiry:       c.ListingExpiry,
			ClaimTimeout:        c.SettlementClaimTimeout,
			OracleTimeout:       c.OracleTimeout,
			BroadcastTimeout:    c.BroadcastTimeout,
			MaxFeeRate:          c.MaxFeeRate,
		})
		if err != nil {
			return nil, err
		}
		c.marketplace = svc
	}
	return c.marketplace, nil
}
