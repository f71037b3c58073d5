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

package main

import (
	"context"
	"flag"
	"fmt"

	"cloud-mining-ledger-go/internal/common"
	"cloud-mining-ledger-go/internal/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type balanceStats struct {
	totalAccounts        int
	accountsWithBalances int
	totalPrimary         decimal.Decimal
	totalSecondary       decimal.Decimal
}

func printAccountHeader(acct common.AccountInfo) {
	status := ""
	if acct.Blocked {
		status = " [BLOCKED]"
	}
	fmt.Printf("\n┌─ Account: %s%s\n", acct.Email, status)
	fmt.Printf("│  ID: %s\n", acct.Id)
	fmt.Printf("│  Tier: %s\n", common.TierLabel(acct.Tier))
	common.PrintBoxSeparator(78)
}

func printBalances(acct common.AccountInfo) {
	fmt.Printf("%s %-6s: %20s\n", common.BoxPrefix(false), "USDT", acct.Balances.Primary.StringFixed(2))
	fmt.Printf("%s %-6s: %20s\n", common.BoxPrefix(true), "BTC", acct.Balances.Secondary.String())
}

func generateReport(accounts []common.AccountInfo) balanceStats {
	stats := balanceStats{totalPrimary: decimal.Zero, totalSecondary: decimal.Zero}

	for _, acct := range accounts {
		stats.totalAccounts++
		if acct.Balances.Primary.IsZero() && acct.Balances.Secondary.IsZero() {
			continue
		}
		stats.accountsWithBalances++
		stats.totalPrimary = stats.totalPrimary.Add(acct.Balances.Primary)
		stats.totalSecondary = stats.totalSecondary.Add(acct.Balances.Secondary)

		printAccountHeader(acct)
		printBalances(acct)
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	emailFlag := flag.String("email", "", "Filter by specific account email (optional)")
	allFlag := flag.Bool("all", false, "Report every account (administrator session required)")
	tokenFlag := flag.String("token", "", "Session token (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	caller, err := common.ResolveCaller(ctx, services, *tokenFlag)
	if err != nil {
		logger.Fatal("Failed to resolve caller", zap.Error(err))
	}

	if !*allFlag && *emailFlag == "" {
		// Own account with its request history
		common.PrintHeader("ACCOUNT BALANCES", common.DefaultWidth)
		common.PrintAccount(caller)
		history, err := services.Ledger.History(ctx, caller.Id)
		if err != nil {
			logger.Fatal("Failed to load history", zap.Error(err))
		}
		fmt.Println("\nRequests:")
		common.PrintTransactions(history)
		common.PrintSeparator("=", common.DefaultWidth)
		return
	}

	accounts, err := common.LookupAccounts(ctx, services.Ledger, caller.Id, *emailFlag)
	if err != nil {
		logger.Fatal("Failed to look up accounts", zap.Error(err))
	}

	common.PrintHeader("ACCOUNT BALANCE REPORT", common.DefaultWidth)
	stats := generateReport(accounts)

	summary := fmt.Sprintf("SUMMARY: %d of %d accounts hold funds (%s USDT, %s BTC)",
		stats.accountsWithBalances, stats.totalAccounts,
		stats.totalPrimary.StringFixed(2), stats.totalSecondary.String())
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("accounts_queried", stats.totalAccounts),
		zap.Int("accounts_with_balances", stats.accountsWithBalances))
}
