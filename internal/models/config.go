package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Ledger   LedgerConfig
	Admin    AdminConfig
	Auth     AuthConfig
	Prices   PriceConfig
	Formance FormanceConfig
	Monitor  MonitorConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Backend         string // "sqlite" or "memory"
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
}

// LedgerConfig holds the economic constants of the engine
type LedgerConfig struct {
	PlansFile      string
	CommissionRate decimal.Decimal
	FreeYieldRate  decimal.Decimal
	YieldCooldown  time.Duration
	MinWithdrawal  decimal.Decimal
	MaxRetries     int
}

// AdminConfig identifies the single distinguished administrator
type AdminConfig struct {
	AccountId string
	Email     string
}

// AuthConfig holds credential and session token settings
type AuthConfig struct {
	BcryptCost  int
	TokenSecret string
	TokenTTL    time.Duration
	TokenIssuer string
}

// PriceConfig holds live price feed settings
type PriceConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RatePerMinute  int
	Offline        bool
}

// FormanceConfig holds the optional journal mirror settings
type FormanceConfig struct {
	Enabled      bool
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// MonitorConfig holds approval-queue monitor settings
type MonitorConfig struct {
	PollingInterval time.Duration
	MetricsAddr     string
	Symbols         []string
}
