/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud-mining-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	busyTimeout, err := getEnvDuration("DB_BUSY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cooldown, err := getEnvDuration("YIELD_COOLDOWN", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	commissionRate, err := getEnvDecimal("COMMISSION_RATE", decimal.RequireFromString("0.05"))
	if err != nil {
		return nil, err
	}

	freeYieldRate, err := getEnvDecimal("FREE_YIELD_RATE", decimal.RequireFromString("0.0000000001"))
	if err != nil {
		return nil, err
	}

	minWithdrawal, err := getEnvDecimal("MIN_WITHDRAWAL", decimal.NewFromInt(2))
	if err != nil {
		return nil, err
	}

	tokenTTL, err := getEnvDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	priceTimeout, err := getEnvDuration("PRICE_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	pollingInterval, err := getEnvDuration("MONITOR_POLLING_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Backend:         getEnvString("DATABASE_BACKEND", "sqlite"),
			Path:            getEnvString("DATABASE_PATH", "ledger.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			BusyTimeout:     busyTimeout,
		},
		Ledger: models.LedgerConfig{
			PlansFile:      getEnvString("PLANS_FILE", "plans.yaml"),
			CommissionRate: commissionRate,
			FreeYieldRate:  freeYieldRate,
			YieldCooldown:  cooldown,
			MinWithdrawal:  minWithdrawal,
			MaxRetries:     getEnvInt("LEDGER_MAX_RETRIES", 3),
		},
		Admin: models.AdminConfig{
			AccountId: getEnvString("ADMIN_ACCOUNT_ID", "uid3026"),
			Email:     strings.ToLower(strings.TrimSpace(getEnvString("ADMIN_EMAIL", "admin@cloudmining.local"))),
		},
		Auth: models.AuthConfig{
			BcryptCost:  getEnvInt("BCRYPT_COST", 10),
			TokenSecret: getEnvString("TOKEN_SECRET", ""),
			TokenTTL:    tokenTTL,
			TokenIssuer: getEnvString("TOKEN_ISSUER", "cloud-mining-ledger"),
		},
		Prices: models.PriceConfig{
			BaseURL:        getEnvString("PRICE_BASE_URL", "https://api.coingecko.com/api/v3"),
			RequestTimeout: priceTimeout,
			RatePerMinute:  getEnvInt("PRICE_RATE_PER_MINUTE", 30),
			Offline:        getEnvBool("PRICE_OFFLINE", false),
		},
		Formance: models.FormanceConfig{
			Enabled:      getEnvBool("FORMANCE_ENABLED", false),
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER_NAME", "cloud-mining"),
		},
		Monitor: models.MonitorConfig{
			PollingInterval: pollingInterval,
			MetricsAddr:     getEnvString("MONITOR_METRICS_ADDR", ":9102"),
			Symbols:         getEnvList("MONITOR_SYMBOLS", []string{"BTC", "ETH", "SOL", "XRP", "DOGE"}),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	switch cfg.Database.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("invalid DATABASE_BACKEND %q: must be sqlite or memory", cfg.Database.Backend)
	}
	if cfg.Admin.AccountId == "" || cfg.Admin.Email == "" {
		return fmt.Errorf("ADMIN_ACCOUNT_ID and ADMIN_EMAIL must both be set")
	}
	if cfg.Ledger.CommissionRate.IsNegative() || cfg.Ledger.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("COMMISSION_RATE must be between 0 and 1, got %s", cfg.Ledger.CommissionRate)
	}
	if cfg.Ledger.FreeYieldRate.IsNegative() {
		return fmt.Errorf("FREE_YIELD_RATE cannot be negative, got %s", cfg.Ledger.FreeYieldRate)
	}
	if cfg.Ledger.MinWithdrawal.IsNegative() {
		return fmt.Errorf("MIN_WITHDRAWAL cannot be negative, got %s", cfg.Ledger.MinWithdrawal)
	}
	if cfg.Ledger.YieldCooldown <= 0 {
		return fmt.Errorf("YIELD_COOLDOWN must be positive, got %v", cfg.Ledger.YieldCooldown)
	}
	if cfg.Ledger.MaxRetries < 1 {
		return fmt.Errorf("LEDGER_MAX_RETRIES must be at least 1, got %d", cfg.Ledger.MaxRetries)
	}
	if cfg.Prices.RatePerMinute <= 0 {
		return fmt.Errorf("PRICE_RATE_PER_MINUTE must be positive, got %d", cfg.Prices.RatePerMinute)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		return d, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, strings.ToUpper(item))
		}
	}
	return items
}
