package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cloud-mining-ledger-go/internal/auth"
	"cloud-mining-ledger-go/internal/config"
	"cloud-mining-ledger-go/internal/database"
	"cloud-mining-ledger-go/internal/formance"
	"cloud-mining-ledger-go/internal/ledger"
	"cloud-mining-ledger-go/internal/memory"
	"cloud-mining-ledger-go/internal/models"
	"cloud-mining-ledger-go/internal/pricefeed"
	"cloud-mining-ledger-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// ClosableStore is a ledger store that owns resources.
type ClosableStore interface {
	store.LedgerStore
	Close()
}

type Services struct {
	Config *models.Config
	Store  store.LedgerStore
	Ledger *ledger.Service
	Auth   *auth.Provider
	Tokens *auth.TokenIssuer // nil when TOKEN_SECRET is unset
	Prices *pricefeed.Client // nil in offline mode
	Mirror *formance.Service // nil unless FORMANCE_ENABLED

	closer ClosableStore
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeStore opens the configured store backend and nothing else.
// Useful for schema setup and read-only inspection.
func InitializeStore(ctx context.Context, cfg *models.Config) (ClosableStore, error) {
	switch cfg.Database.Backend {
	case "memory":
		zap.L().Warn("Using in-memory store; state is lost on exit")
		return memory.New(), nil
	case "sqlite", "":
		db, err := database.NewService(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Database.Backend)
	}
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	st, err := InitializeStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := buildServices(ctx, cfg, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	return svc, nil
}

func buildServices(ctx context.Context, cfg *models.Config, st ClosableStore) (*Services, error) {
	zap.L().Info("Loading plan table", zap.String("file", cfg.Ledger.PlansFile))
	plans, err := config.LoadPlans(cfg.Ledger.PlansFile)
	if err != nil {
		return nil, err
	}

	svc := &Services{
		Config: cfg,
		Store:  st,
		Auth:   auth.NewProvider(cfg.Auth.BcryptCost),
		closer: st,
	}

	if cfg.Auth.TokenSecret != "" {
		svc.Tokens, err = auth.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenIssuer, cfg.Auth.TokenTTL)
		if err != nil {
			return nil, err
		}
	}

	ledgerCfg := ledger.Config{
		Store:          st,
		Plans:          plans,
		Auth:           svc.Auth,
		Admin:          cfg.Admin,
		CommissionRate: cfg.Ledger.CommissionRate,
		FreeYieldRate:  cfg.Ledger.FreeYieldRate,
		Cooldown:       cfg.Ledger.YieldCooldown,
		MinWithdrawal:  cfg.Ledger.MinWithdrawal,
		MaxRetries:     cfg.Ledger.MaxRetries,
	}

	if !cfg.Prices.Offline {
		svc.Prices, err = pricefeed.NewClient(cfg.Prices)
		if err != nil {
			return nil, err
		}
		ledgerCfg.Prices = svc.Prices
	} else {
		zap.L().Info("Price feed offline, quotes come from the fallback table")
	}

	if cfg.Formance.Enabled {
		svc.Mirror, err = formance.NewService(ctx, cfg.Formance)
		if err != nil {
			return nil, err
		}
		ledgerCfg.Mirror = svc.Mirror
	}

	svc.Ledger, err = ledger.NewService(ledgerCfg)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Ledger services initialized",
		zap.String("backend", cfg.Database.Backend),
		zap.Int("plans", len(plans)),
		zap.Bool("live_prices", svc.Prices != nil),
		zap.Bool("mirror", svc.Mirror != nil))
	return svc, nil
}

func (cs *Services) Close() {
	if cs.Mirror != nil {
		cs.Mirror.Close()
	}
	if cs.closer != nil {
		cs.closer.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
