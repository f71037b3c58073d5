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

package common

import (
	"context"
	"fmt"
	"time"

	"cloud-mining-ledger-go/internal/ledger"
	"cloud-mining-ledger-go/internal/models"

	"go.uber.org/zap"
)

// AccountInfo represents simplified account information for command-line utilities
type AccountInfo struct {
	Id       string
	Email    string
	Tier     int
	Blocked  bool
	Balances models.Balances
}

func toAccountInfo(a *models.Account) AccountInfo {
	return AccountInfo{
		Id:       a.Id,
		Email:    a.Email,
		Tier:     a.Tier,
		Blocked:  a.Blocked,
		Balances: a.Balances,
	}
}

// LookupAccounts retrieves accounts based on an optional email filter.
// If emailFilter is provided, returns the single account with that email.
// If emailFilter is empty, returns all accounts, which requires adminId.
func LookupAccounts(ctx context.Context, lg *ledger.Service, adminId, emailFilter string) ([]AccountInfo, error) {
	var accounts []AccountInfo

	if emailFilter != "" {
		zap.L().Info("Looking up account by email", zap.String("email", emailFilter))
		acct, err := lg.FindAccountByEmail(ctx, emailFilter)
		if err != nil {
			return nil, fmt.Errorf("account not found: %w", err)
		}
		accounts = append(accounts, toAccountInfo(acct))
	} else {
		all, err := lg.ListAccounts(ctx, adminId)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}
		for i := range all {
			accounts = append(accounts, toAccountInfo(&all[i]))
		}
	}

	zap.L().Info("Retrieved accounts", zap.Int("count", len(accounts)))
	return accounts, nil
}

// PrintAccount prints the profile and balances of one account
func PrintAccount(a *models.Account) {
	status := "active"
	if a.Blocked {
		status = "BLOCKED"
	}
	fmt.Printf("Account:   %s (%s)\n", a.Email, a.Id)
	fmt.Printf("Status:    %s\n", status)
	fmt.Printf("Tier:      %s\n", TierLabel(a.Tier))
	fmt.Printf("USDT:      %s\n", a.Balances.Primary.StringFixed(2))
	fmt.Printf("BTC:       %s\n", a.Balances.Secondary.String())
	fmt.Printf("Earned:    %s USDT\n", a.TotalEarned.StringFixed(2))
	fmt.Printf("Referral:  code %s, %d invited, %s USDT earned\n",
		a.ReferralCode, a.ReferralCount, a.ReferralEarnings.StringFixed(2))
	if a.ReferredBy != "" {
		fmt.Printf("Invited by: %s\n", a.ReferredBy)
	}
	if !a.LastYieldTime.IsZero() {
		fmt.Printf("Last collect: %s\n", a.LastYieldTime.Format(time.RFC3339))
	}
}

// PrintTransactions prints requests as a box-drawn list, newest first
func PrintTransactions(txs []models.Transaction) {
	if len(txs) == 0 {
		fmt.Println("└  (no transactions)")
		return
	}
	for i, tx := range txs {
		isLast := i == len(txs)-1
		fmt.Printf("%s%-8s %12s USDT  %-8s %s\n",
			BoxPrefix(isLast), tx.Kind, tx.Amount.StringFixed(2), tx.Status, tx.Id)
		fmt.Printf("%s   %s | %s | %s\n",
			BoxDetailPrefix(isLast), tx.AccountEmail, tx.Network, tx.CreatedAt.Format(time.RFC3339))
	}
}

// TierLabel names a tier for display
func TierLabel(tier int) string {
	if tier == 0 {
		return "Free"
	}
	return fmt.Sprintf("VIP %d", tier)
}

// PrintPlans prints the plan table
func PrintPlans(plans models.PlanTable) {
	PrintHeader("MINING PLANS", DefaultWidth)
	for _, p := range plans {
		fmt.Printf("%-8s cost %8s USDT   daily %6s%%   yield %s USDT/day\n",
			TierLabel(p.Level), p.Cost.StringFixed(2), p.DailyReturnPercent.String(), p.DailyYield().StringFixed(2))
	}
	PrintSeparator("=", DefaultWidth)
}
