package formance

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"cloud-mining-ledger-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func TestFormanceAsset(t *testing.T) {
	tests := []struct {
		currency models.Currency
		want     string
	}{
		{models.CurrencyPrimary, "USDT/6"},
		{models.CurrencySecondary, "BTC/8"},
		{models.Currency("DOGE"), "DOGE/6"}, // default precision
	}
	for _, tt := range tests {
		if got := formanceAsset(tt.currency); got != tt.want {
			t.Errorf("formanceAsset(%q) = %q, want %q", tt.currency, got, tt.want)
		}
	}
}

func TestAssetCurrency(t *testing.T) {
	tests := []struct {
		input string
		want  models.Currency
	}{
		{"USDT/6", models.CurrencyPrimary},
		{"BTC/8", models.CurrencySecondary},
		{"PLAIN", models.Currency("PLAIN")},
	}
	for _, tt := range tests {
		if got := assetCurrency(tt.input); got != tt.want {
			t.Errorf("assetCurrency(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestBigIntToDecimal(t *testing.T) {
	// 1_000_000 smallest units of USDT (precision 6) = 1.0
	result := bigIntToDecimal(big.NewInt(1_000_000), models.CurrencyPrimary)
	if !result.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", result.String())
	}

	// 100_000_000 smallest units of BTC (precision 8) = 1.0
	result = bigIntToDecimal(big.NewInt(100_000_000), models.CurrencySecondary)
	if !result.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", result.String())
	}

	// nil should return zero
	if result = bigIntToDecimal(nil, models.CurrencyPrimary); !result.IsZero() {
		t.Errorf("expected 0, got %s", result.String())
	}
}

func TestVolumesToBalances(t *testing.T) {
	vols := map[string]shared.V2Volume{
		"USDT/6": {Input: big.NewInt(15_500_000), Output: big.NewInt(500_000)},
		"BTC/8":  {Balance: big.NewInt(250_000)},
	}
	b := volumesToBalances(vols)
	if !b.Primary.Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected primary 15, got %s", b.Primary)
	}
	if !b.Secondary.Equal(decimal.RequireFromString("0.0025")) {
		t.Errorf("expected secondary 0.0025, got %s", b.Secondary)
	}

	empty := volumesToBalances(nil)
	if !empty.Primary.IsZero() || !empty.Secondary.IsZero() {
		t.Errorf("expected zero balances, got %+v", empty)
	}
}

func TestBuildPostTransaction_Credit(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entry := models.JournalEntry{
		Id:        "entry-1",
		Reference: "yield_1_abcd",
		AccountId: "acct-1",
		Currency:  models.CurrencyPrimary,
		Amount:    decimal.RequireFromString("1.5"),
		EntryType: models.EntryYield,
		CreatedAt: createdAt,
	}

	postTx, ok := buildPostTransaction(entry)
	if !ok {
		t.Fatal("expected entry to be postable")
	}
	if postTx.Reference == nil || *postTx.Reference != "entry-1" {
		t.Errorf("expected reference entry-1, got %v", postTx.Reference)
	}
	if postTx.Timestamp == nil || !postTx.Timestamp.Equal(createdAt) {
		t.Errorf("expected timestamp %v, got %v", createdAt, postTx.Timestamp)
	}
	if postTx.Script.Plain != numscriptCredit {
		t.Error("expected credit script for positive amount")
	}
	vars := postTx.Script.Vars
	if vars["asset"] != "USDT/6" || vars["amount"] != "1500000" {
		t.Errorf("unexpected asset/amount vars: %v", vars)
	}
	if vars["account_id"] != "acct-1" || vars["entry_type"] != models.EntryYield {
		t.Errorf("unexpected account vars: %v", vars)
	}
}

func TestBuildPostTransaction_Debit(t *testing.T) {
	entry := models.JournalEntry{
		Id:        "entry-2",
		AccountId: "acct-1",
		Currency:  models.CurrencySecondary,
		Amount:    decimal.RequireFromString("-0.004"),
		EntryType: models.EntrySwapOut,
	}

	postTx, ok := buildPostTransaction(entry)
	if !ok {
		t.Fatal("expected entry to be postable")
	}
	if postTx.Script.Plain != numscriptDebit {
		t.Error("expected debit script for negative amount")
	}
	if got := postTx.Script.Vars["amount"]; got != "400000" {
		t.Errorf("expected 400000 satoshi, got %s", got)
	}
	if got := postTx.Script.Vars["amount_human"]; got != "-0.004" {
		t.Errorf("expected signed human amount, got %s", got)
	}
}

func TestBuildPostTransaction_BelowPrecision(t *testing.T) {
	entry := models.JournalEntry{
		Id:       "entry-3",
		Currency: models.CurrencySecondary,
		Amount:   decimal.RequireFromString("0.0000000001"),
	}
	if _, ok := buildPostTransaction(entry); ok {
		t.Error("expected sub-satoshi entry to be skipped")
	}
}

func TestAccountMetadata(t *testing.T) {
	meta := accountMetadata(&models.Account{
		Id:           "acct-1",
		Email:        "a@example.com",
		Tier:         3,
		Blocked:      true,
		ReferralCode: "ABC123",
		ReferredBy:   "parent",
	})
	if meta["email"] != "a@example.com" || meta["tier"] != "3" || meta["blocked"] != "true" {
		t.Errorf("unexpected metadata: %v", meta)
	}
	if meta["referred_by"] != "parent" || meta["referral_code"] != "ABC123" {
		t.Errorf("unexpected referral metadata: %v", meta)
	}
}

func TestIsConflictError(t *testing.T) {
	// nil error should not be a conflict
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
	if isConflictError(errors.New("boom")) {
		t.Error("plain error should not be a conflict error")
	}
	if isNotFoundError(errors.New("boom")) {
		t.Error("plain error should not be a not-found error")
	}
}
