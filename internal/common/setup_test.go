package common

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cloud-mining-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func testConfig(t *testing.T, backend string) *models.Config {
	t.Helper()
	return &models.Config{
		Database: models.DatabaseConfig{
			Backend:      backend,
			Path:         filepath.Join(t.TempDir(), "ledger.db"),
			MaxOpenConns: 1,
			PingTimeout:  time.Second,
			BusyTimeout:  time.Second,
		},
		Ledger: models.LedgerConfig{
			PlansFile:      filepath.Join(t.TempDir(), "missing.yaml"),
			CommissionRate: decimal.RequireFromString("0.05"),
			FreeYieldRate:  decimal.RequireFromString("0.0000000001"),
			YieldCooldown:  24 * time.Hour,
			MinWithdrawal:  decimal.NewFromInt(2),
			MaxRetries:     3,
		},
		Admin: models.AdminConfig{AccountId: "uid3026", Email: "admin@example.com"},
		Auth: models.AuthConfig{
			BcryptCost:  4,
			TokenSecret: "test-secret",
			TokenTTL:    time.Hour,
			TokenIssuer: "test",
		},
		Prices: models.PriceConfig{Offline: true},
	}
}

func TestInitializeServices_Backends(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			svc, err := InitializeServices(context.Background(), testConfig(t, backend))
			if err != nil {
				t.Fatalf("InitializeServices failed: %v", err)
			}
			defer svc.Close()

			if svc.Ledger == nil || svc.Tokens == nil {
				t.Fatal("expected ledger and token issuer to be wired")
			}
			if svc.Prices != nil || svc.Mirror != nil {
				t.Error("expected offline prices and no mirror")
			}
			if len(svc.Ledger.Plans()) != 5 {
				t.Errorf("expected default plan table, got %d plans", len(svc.Ledger.Plans()))
			}

			ctx := context.Background()
			acct, err := svc.Ledger.Register(ctx, "admin@example.com", "pw", "")
			if err != nil {
				t.Fatalf("Register failed: %v", err)
			}
			if acct.Id != "uid3026" {
				t.Errorf("expected admin id, got %s", acct.Id)
			}

			accounts, err := LookupAccounts(ctx, svc.Ledger, "uid3026", "")
			if err != nil || len(accounts) != 1 {
				t.Errorf("expected one account, got %d (%v)", len(accounts), err)
			}
			accounts, err = LookupAccounts(ctx, svc.Ledger, "", "ADMIN@example.com")
			if err != nil || len(accounts) != 1 || accounts[0].Tier != 0 {
				t.Errorf("expected lookup by email to succeed, got %+v (%v)", accounts, err)
			}
		})
	}
}

func TestInitializeStore_UnknownBackend(t *testing.T) {
	_, err := InitializeStore(context.Background(), testConfig(t, "postgres"))
	if err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestInitializeLogger_ReplacesNoopGlobal(t *testing.T) {
	previous := zap.L()
	defer zap.ReplaceGlobals(previous)

	zap.ReplaceGlobals(zap.NewNop())
	logger, cleanup := InitializeLogger()
	defer cleanup()

	if zap.L() != logger {
		t.Fatal("expected InitializeLogger to install the global logger")
	}
	if !zap.L().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected the global logger to emit errors once installed")
	}
}

func TestIsIgnorableSyncError(t *testing.T) {
	if !isIgnorableSyncError(errors.New("sync /dev/stderr: inappropriate ioctl for device")) {
		t.Error("expected tty sync error to be ignorable")
	}
	if isIgnorableSyncError(errors.New("disk full")) {
		t.Error("expected other errors to be reported")
	}
}
