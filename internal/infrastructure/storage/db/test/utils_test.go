package db_test

import (
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
	"github.com/tdex-network/ordex-daemon/internal/core/ports"
	dbbadger "github.com/tdex-network/ordex-daemon/internal/infrastructure/storage/db/badger"
	"github.com/tdex-network/ordex-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/tdex-network/ordex-daemon/internal/infrastructure/storage/db/sqldb"
)

type repoManager struct {
	name string
	ports.RepoManager
}

// newRepoManagers returns a fresh instance of every storage backend.
func newRepoManagers(t *testing.T) []repoManager {
	t.Helper()

	badgerInMemory, err := dbbadger.NewRepoManager("", nil)
	require.NoError(t, err)
	badgerOnDisk, err := dbbadger.NewRepoManager(t.TempDir(), nil)
	require.NoError(t, err)
	sqlite, err := sqldb.NewRepoManager(sqldb.DbConfig{
		Driver: sqldb.DriverSqlite,
		DSN:    filepath.Join(t.TempDir(), "ordex.db"),
	})
	require.NoError(t, err)

	repoManagers := []repoManager{
		{"inmemory", inmemory.NewRepoManager()},
		{"badger-inmemory", badgerInMemory},
		{"badger", badgerOnDisk},
		{"sqlite", sqlite},
	}
	t.Cleanup(func() {
		for _, r := range repoManagers {
			r.Close()
		}
	})
	return repoManagers
}

func randomListing(t *testing.T) *domain.Listing {
	t.Helper()

	asset := domain.Utxo{
		Outpoint: domain.Outpoint{TxID: randomHex(32), VOut: 0},
		Value:    10000,
		Script:   append([]byte{0x51, 0x20}, randomBytes(32)...),
	}
	listing, err := domain.NewListing(
		asset, "bc1pseller", append([]byte{0x51, 0x20}, randomBytes(32)...),
		100000, 2000, "cHNidP8BAA==", time.Hour,
	)
	require.NoError(t, err)
	return listing
}

func randomAttempt(t *testing.T, listingID string) *domain.PurchaseAttempt {
	t.Helper()

	inputs := []domain.Utxo{{
		Outpoint: domain.Outpoint{TxID: randomHex(32), VOut: 1},
		Value:    150000,
		Script:   append([]byte{0x51, 0x20}, randomBytes(32)...),
	}}
	attempt, err := domain.NewPurchaseAttempt(
		listingID, "bc1pbuyer", inputs[0].Script, "bc1pbuyer", inputs,
		"cHNidP8BAA==", domain.FeeBreakdown{
			InscriptionOutputValue: 10000,
			MarketFeeValue:         2000,
			ChangeValue:            36510,
			MinerFee:               1490,
			FeeRate:                5,
			TotalBuyerInput:        150000,
			VirtualSize:            298,
		},
	)
	require.NoError(t, err)
	return attempt
}

func randomEscrow() domain.EscrowedSignature {
	return domain.EscrowedSignature{
		Ciphertext: randomBytes(89),
		WrappedKey: randomBytes(384),
	}
}

func randomHex(len int) string {
	return hex.EncodeToString(randomBytes(len))
}

func randomBytes(len int) []byte {
	b := make([]byte, len)
	//nolint
	rand.Read(b)
	return b
}
