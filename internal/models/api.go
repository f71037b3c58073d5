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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectResult is returned by a successful yield collection
type CollectResult struct {
	Account  *Account        `json:"account"`
	Currency Currency        `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Message  string          `json:"message"`
}

// SwapResult describes a completed BTC -> USDT swap
type SwapResult struct {
	Account     *Account        `json:"account"`
	BtcAmount   decimal.Decimal `json:"btc_amount"`
	UsdtAmount  decimal.Decimal `json:"usdt_amount"`
	Price       decimal.Decimal `json:"price"`
	PriceSource string          `json:"price_source"`
}

// Quote sources
const (
	QuoteSourceLive     = "live"
	QuoteSourceFallback = "fallback"
)

// Quote is a point-in-time price for a symbol
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Source        string          `json:"source"`
	FetchedAt     time.Time       `json:"fetched_at"`
}

// LeaderboardEntry is one row of the top-earners ranking
type LeaderboardEntry struct {
	Rank        int             `json:"rank"`
	AccountId   string          `json:"account_id"`
	TotalEarned decimal.Decimal `json:"total_earned"`
	Tier        int             `json:"tier"`
}

// ReconcileResult compares stored balances to the journal for one account
type ReconcileResult struct {
	AccountId        string          `json:"account_id"`
	Primary          decimal.Decimal `json:"primary"`
	Secondary        decimal.Decimal `json:"secondary"`
	JournalPrimary   decimal.Decimal `json:"journal_primary"`
	JournalSecondary decimal.Decimal `json:"journal_secondary"`
	Balanced         bool            `json:"balanced"`
}
