package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-marketplace/internal/config"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/marketplace"
	"github.com/feral-file/ff-marketplace/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	config.ChdirRepoRoot()
	cfg, err := config.LoadDeployConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "marketplace-deploy",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)

	deployer, err := cfg.Marketplace.DeployerAccount()
	if err != nil {
		logger.FatalCtx(ctx, "Invalid deployer", zap.Error(err))
	}
	allocations, err := cfg.Genesis.Balances()
	if err != nil {
		logger.FatalCtx(ctx, "Invalid genesis allocations", zap.Error(err))
	}

	var dataStore store.Store
	switch cfg.Database.Driver {
	case config.DATABASE_DRIVER_MEMORY:
		// Useful as a dry run: nothing is persisted
		dataStore = store.NewMemoryStore()
	default:
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
		}
		dataStore = store.NewPGStore(db)
	}

	fmt.Println("Deploying NFTMarketplace contract...")

	ledger := marketplace.New(dataStore)
	info, err := ledger.Deploy(ctx, deployer, allocations)
	if err != nil {
		logger.ErrorCtx(ctx, err, logger.Account("deployer", deployer))
		fmt.Fprintf(os.Stderr, "Deployment failed: %v\n", err)
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}

	fmt.Printf("NFTMarketplace deployed to %s\n", info.ContractAddress.Hex())
	logger.InfoCtx(ctx, "Marketplace deployed",
		logger.Account("contract", info.ContractAddress),
		logger.Account("administrator", info.Administrator),
		zap.Int("genesis_accounts", len(allocations)),
	)
}
