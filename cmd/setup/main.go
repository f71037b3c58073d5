package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"cloud-mining-ledger-go/internal/common"
	"cloud-mining-ledger-go/internal/config"
	"cloud-mining-ledger-go/internal/ledger"

	"go.uber.org/zap"
)

// seedAdmin registers the administrator account if it does not exist yet.
func seedAdmin(ctx context.Context, services *common.Services, secret string) {
	admin := services.Config.Admin

	existing, err := services.Ledger.FindAccountByEmail(ctx, admin.Email)
	if err == nil {
		zap.L().Info("Administrator account already exists", zap.String("account_id", existing.Id))
		fmt.Printf("✓ Administrator %s already exists (%s)\n", existing.Email, existing.Id)
		return
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		zap.L().Fatal("Failed to look up administrator", zap.Error(err))
	}

	acct, err := services.Ledger.Register(ctx, admin.Email, secret, "")
	if err != nil {
		zap.L().Fatal("Failed to create administrator account", zap.Error(err))
	}
	// Registration opens a session; setup should not leave one behind.
	if err := services.Ledger.Logout(ctx); err != nil {
		zap.L().Warn("Failed to clear session after seeding", zap.Error(err))
	}

	zap.L().Info("Administrator account created", zap.String("account_id", acct.Id))
	fmt.Printf("✓ Administrator %s created (%s)\n", acct.Email, acct.Id)
}


func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	adminSecret := flag.String("admin-secret", "", "Create the administrator account with this secret if it does not exist")
	flag.Parse()

	// Initialize services at top level; opening the store creates the schema
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	zap.L().Info("Store initialized",
		zap.String("backend", cfg.Database.Backend),
		zap.String("path", cfg.Database.Path))

	if *adminSecret != "" {
		seedAdmin(ctx, services, *adminSecret)
	}

	common.PrintPlans(services.Ledger.Plans())
	zap.L().Info("Initialization complete")
}
