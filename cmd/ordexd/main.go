package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tdex-network/ordex-daemon/internal/config"
	"github.com/tdex-network/ordex-daemon/internal/core/application"
	httpinterface "github.com/tdex-network/ordex-daemon/internal/interfaces/http"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	app = &cobra.Command{
		Use:           "ordexd",
		Short:         "ordex marketplace daemon",
		Long:          "ordexd settles ordinal sales between sellers and buyers with one atomic on-chain transaction",
		Version:       formatVersion(),
		RunE:          action,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	if err := app.Execute(); err != nil {
		log.Fatal(err)
	}
}

func action(_ *cobra.Command, _ []string) error {
	if err := config.InitConfig(); err != nil {
		return err
	}

	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	appConfig := &application.Config{
		DBType:                 config.GetString(config.DBTypeKey),
		DBConfig:               config.GetDBConfig(),
		Network:                config.GetNetwork(),
		ExplorerEndpoint:       config.GetString(config.ExplorerEndpointKey),
		ExplorerRequestTimeout: config.GetSeconds(config.ExplorerRequestTimeoutKey),
		ExplorerRateLimit:      config.GetInt(config.ExplorerRateLimitKey),
		EscrowKeyPath:          config.GetEscrowKeyPath(),
		EscrowKeyPassword:      config.GetString(config.EscrowKeyPasswordKey),
		TreasuryAddress:        config.GetString(config.TreasuryAddressKey),
		MarketFeePercentage:    config.GetMarketFeePercentage(),
		SigHashPolicy:          config.GetString(config.SigHashPolicyKey),
		ListingExpiry:          config.GetSeconds(config.ListingExpiryTimeKey),
		SettlementClaimTimeout: config.GetSeconds(config.SettlementClaimTimeoutKey),
		OracleTimeout:          config.GetSeconds(config.OracleTimeoutKey),
		BroadcastTimeout:       config.GetSeconds(config.BroadcastTimeoutKey),
		MaxFeeRate:             config.GetUint64(config.MaxFeeRateKey),
	}
	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	defer appConfig.RepoManager().Close()

	svc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		Port:           config.GetInt(config.ListeningPortKey),
		MarketplaceSvc: appConfig.MarketplaceService(),
	})
	if err != nil {
		return err
	}

	log.RegisterExitHandler(svc.Stop)

	log.Info("starting daemon")
	if err := svc.Start(); err != nil {
		return err
	}
	defer svc.Stop()

	log.Infof(
		"marketplace running on %s with %s policy",
		appConfig.Network.Name, appConfig.SigHashPolicy,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, os.Interrupt)
	<-sigChan

	log.Info("shutting down daemon")
	return nil
}

func formatVersion() string {
	return fmt.Sprintf(
		"Version: %s\nCommit: %s\nDate: %s",
		version, commit, date,
	)
}
