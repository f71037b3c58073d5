package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency identifies one of the two balances held by an account
type Currency string

const (
	CurrencyPrimary   Currency = "USDT"
	CurrencySecondary Currency = "BTC"
)

// ParseCurrency accepts the ledger symbols as well as the "primary"/"secondary" aliases
func ParseCurrency(raw string) (Currency, bool) {
	switch raw {
	case "USDT", "usdt", "primary":
		return CurrencyPrimary, true
	case "BTC", "btc", "secondary":
		return CurrencySecondary, true
	}
	return "", false
}

// Balances holds the stable-unit (primary) and crypto-unit (secondary) balances
type Balances struct {
	Primary   decimal.Decimal `db:"primary_balance"`
	Secondary decimal.Decimal `db:"secondary_balance"`
}

// Of returns the balance for the given currency
func (b Balances) Of(c Currency) decimal.Decimal {
	if c == CurrencySecondary {
		return b.Secondary
	}
	return b.Primary
}

// Account is the single source of truth for a user's balances and profile
type Account struct {
	Id               string          `db:"id"`
	Email            string          `db:"email"`
	SecretHash       string          `db:"secret_hash"`
	Balances         Balances        `db:"-"`
	Tier             int             `db:"tier"`
	LastYieldTime    time.Time       `db:"last_yield_time"`
	TotalEarned      decimal.Decimal `db:"total_earned"`
	ReferralCode     string          `db:"referral_code"`
	ReferredBy       string          `db:"referred_by"`
	ReferralCount    int             `db:"referral_count"`
	ReferralEarnings decimal.Decimal `db:"referral_earnings"`
	Blocked          bool            `db:"blocked"`
	JoinDate         time.Time       `db:"join_date"`
	Version          int64           `db:"version"`
}

// Clone returns a copy that shares no mutable state with the receiver
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// TransactionKind is the direction of a funds request
type TransactionKind string

const (
	KindDeposit  TransactionKind = "deposit"
	KindWithdraw TransactionKind = "withdraw"
)

// TransactionStatus is the approval state of a funds request
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
)

// Terminal reports whether no further transition is allowed
func (s TransactionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Transaction is a deposit or withdrawal request and its lifecycle
type Transaction struct {
	Id           string            `db:"id"`
	AccountId    string            `db:"account_id"`
	AccountEmail string            `db:"account_email"`
	Kind         TransactionKind   `db:"kind"`
	Amount       decimal.Decimal   `db:"amount"`
	Status       TransactionStatus `db:"status"`
	Network      string            `db:"network"`
	Proof        string            `db:"proof"`
	CreatedAt    time.Time         `db:"created_at"`
	SettledAt    time.Time         `db:"settled_at"`
}

// Journal entry types, one per kind of balance movement
const (
	EntryDeposit        = "deposit"
	EntryWithdrawEscrow = "withdraw_escrow"
	EntryWithdrawRefund = "withdraw_refund"
	EntryCommission     = "referral_commission"
	EntryYield          = "yield"
	EntryPlanPurchase   = "plan_purchase"
	EntrySwapOut        = "swap_out"
	EntrySwapIn         = "swap_in"
	EntryAdminAdjust    = "admin_adjust"
	EntryAdminReset     = "admin_reset"
)

// JournalEntry is an immutable signed balance movement (audit trail)
type JournalEntry struct {
	Id        string          `db:"id"`
	Reference string          `db:"reference"`
	AccountId string          `db:"account_id"`
	Currency  Currency        `db:"currency"`
	Amount    decimal.Decimal `db:"amount"`
	EntryType string          `db:"entry_type"`
	CreatedAt time.Time       `db:"created_at"`
}
