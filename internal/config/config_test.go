package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Backend != "sqlite" {
		t.Errorf("Expected sqlite backend, got %s", cfg.Database.Backend)
	}
	if !cfg.Ledger.CommissionRate.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("Expected commission 0.05, got %s", cfg.Ledger.CommissionRate)
	}
	if !cfg.Ledger.FreeYieldRate.Equal(decimal.RequireFromString("0.0000000001")) {
		t.Errorf("Expected free yield 0.0000000001, got %s", cfg.Ledger.FreeYieldRate)
	}
	if cfg.Ledger.YieldCooldown != 24*time.Hour {
		t.Errorf("Expected 24h cooldown, got %v", cfg.Ledger.YieldCooldown)
	}
	if cfg.Ledger.MaxRetries != 3 {
		t.Errorf("Expected 3 retries, got %d", cfg.Ledger.MaxRetries)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_BACKEND", "memory")
	t.Setenv("ADMIN_EMAIL", "  Boss@Example.COM ")
	t.Setenv("MIN_WITHDRAWAL", "5.5")
	t.Setenv("MONITOR_SYMBOLS", "btc, eth")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Admin.Email != "boss@example.com" {
		t.Errorf("Expected normalized admin email, got %q", cfg.Admin.Email)
	}
	if !cfg.Ledger.MinWithdrawal.Equal(decimal.RequireFromString("5.5")) {
		t.Errorf("Expected min withdrawal 5.5, got %s", cfg.Ledger.MinWithdrawal)
	}
	if len(cfg.Monitor.Symbols) != 2 || cfg.Monitor.Symbols[1] != "ETH" {
		t.Errorf("Unexpected symbols: %v", cfg.Monitor.Symbols)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"DATABASE_BACKEND": "postgres",
		"COMMISSION_RATE":  "abc",
		"YIELD_COOLDOWN":   "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s", key, value)
			}
		})
	}
}

func TestLoadPlans_MissingFileUsesDefaults(t *testing.T) {
	plans, err := LoadPlans(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadPlans failed: %v", err)
	}
	if len(plans) != 5 {
		t.Fatalf("Expected 5 default plans, got %d", len(plans))
	}
	vip5, ok := plans.Lookup(5)
	if !ok || !vip5.DailyYield().Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected VIP 5 daily yield 10, got %v", vip5.DailyYield())
	}
}

func TestLoadPlans_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	content := `plans:
  - level: 1
    name: Starter
    cost: 20
    daily_return_percent: 5
  - level: 2
    cost: "40.5"
    daily_return_percent: "7.5"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write plans file: %v", err)
	}

	plans, err := LoadPlans(path)
	if err != nil {
		t.Fatalf("LoadPlans failed: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("Expected 2 plans, got %d", len(plans))
	}
	if plans[0].Name != "Starter" || !plans[0].DailyYield().Equal(decimal.NewFromInt(1)) {
		t.Errorf("Unexpected first plan: %+v", plans[0])
	}
	if plans[1].Name != "VIP 2" || !plans[1].Cost.Equal(decimal.RequireFromString("40.5")) {
		t.Errorf("Unexpected second plan: %+v", plans[1])
	}
}

func TestParsePlans_Validation(t *testing.T) {
	bad := []string{
		`plans: []`,
		"plans:\n  - level: 0\n    cost: 10\n    daily_return_percent: 10\n",
		"plans:\n  - level: 2\n    cost: 10\n    daily_return_percent: 10\n  - level: 1\n    cost: 10\n    daily_return_percent: 10\n",
		"plans:\n  - level: 1\n    cost: -5\n    daily_return_percent: 10\n",
	}
	for i, doc := range bad {
		if _, err := ParsePlans([]byte(doc)); err == nil {
			t.Errorf("Case %d: expected validation error", i)
		}
	}
}
