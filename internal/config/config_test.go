package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ordex-daemon/internal/config"
)

func TestInitConfig(t *testing.T) {
	treasury := randomTaprootAddress(t)

	t.Run("valid", func(t *testing.T) {
		datadir := t.TempDir()
		setEnv(t, map[string]string{
			"ORDEX_DATADIR":             datadir,
			"ORDEX_NETWORK":             "regtest",
			"ORDEX_TREASURY_ADDRESS":    treasury,
			"ORDEX_ESCROW_KEY_PASSWORD": "password",
			"ORDEX_DB_TYPE":             "sqlite",
		})

		require.NoError(t, config.InitConfig())
		require.Equal(t, &chaincfg.RegressionNetParams, config.GetNetwork())
		require.Equal(t, "2", config.GetMarketFeePercentage().String())
		require.Equal(t, 2*time.Minute, config.GetSeconds(config.SettlementClaimTimeoutKey))
		require.Equal(t, filepath.Join(datadir, "db", "ordex.db"), config.GetDBConfig())
		require.Equal(
			t, filepath.Join(datadir, "escrow", "escrow.key"),
			config.GetEscrowKeyPath(),
		)
		require.DirExists(t, filepath.Join(datadir, "db"))
		require.DirExists(t, filepath.Join(datadir, "escrow"))
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name string
			env  map[string]string
		}{
			{
				name: "missing_treasury",
				env:  map[string]string{"ORDEX_TREASURY_ADDRESS": ""},
			},
			{
				name: "treasury_on_other_network",
				env:  map[string]string{"ORDEX_NETWORK": "mainnet"},
			},
			{
				name: "unknown_network",
				env:  map[string]string{"ORDEX_NETWORK": "liquid"},
			},
			{
				name: "unknown_policy",
				env:  map[string]string{"ORDEX_SIGHASH_POLICY": "all"},
			},
			{
				name: "fee_percentage_out_of_range",
				env:  map[string]string{"ORDEX_MARKET_FEE_PERCENTAGE": "100"},
			},
			{
				name: "claim_shorter_than_broadcast",
				env: map[string]string{
					"ORDEX_SETTLEMENT_CLAIM_TIMEOUT": "10",
					"ORDEX_BROADCAST_TIMEOUT":        "30",
				},
			},
			{
				name: "invalid_pg_connection",
				env: map[string]string{
					"ORDEX_DB_TYPE":         "postgres",
					"ORDEX_PG_CONNECT_ADDR": "localhost:5432",
				},
			},
			{
				name: "unknown_db",
				env:  map[string]string{"ORDEX_DB_TYPE": "mongo"},
			},
			{
				name: "missing_escrow_password",
				env:  map[string]string{"ORDEX_ESCROW_KEY_PASSWORD": ""},
			},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				env := map[string]string{
					"ORDEX_DATADIR":             t.TempDir(),
					"ORDEX_NETWORK":             "regtest",
					"ORDEX_TREASURY_ADDRESS":    treasury,
					"ORDEX_ESCROW_KEY_PASSWORD": "password",
				}
				for k, v := range tt.env {
					env[k] = v
				}
				setEnv(t, env)

				require.Error(t, config.InitConfig())
			})
		}
	})
}

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func randomTaprootAddress(t *testing.T) string {
	t.Helper()

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := btcutil.NewAddressTaproot(
		schnorr.SerializePubKey(key.PubKey()), &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)
	return addr.EncodeAddress()
}
