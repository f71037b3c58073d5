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
	"errors"
	"flag"
	"fmt"
	"os"

	"cloud-mining-ledger-go/internal/common"
	"cloud-mining-ledger-go/internal/config"
	"cloud-mining-ledger-go/internal/ledger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const usage = `usage: mine [flags] <collect|upgrade|swap|plans|quote|leaderboard|team>

  collect                     collect the daily yield of the current tier
  upgrade --level N           buy the plan at level N
  swap    --amount BTC        convert BTC balance into USDT
  plans                       list the plan table
  quote   --symbol SYM        show the current price of SYM
  leaderboard [--limit N]     top earners
  team                        accounts invited by the current account
`

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	levelFlag := flag.Int("level", 0, "Plan level (upgrade)")
	amountFlag := flag.String("amount", "", "BTC amount (swap)")
	symbolFlag := flag.String("symbol", "BTC", "Asset symbol (quote)")
	limitFlag := flag.Int("limit", 10, "Number of rows (leaderboard)")
	tokenFlag := flag.String("token", "", "Session token (optional)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	// Commands that do not need a caller
	switch flag.Arg(0) {
	case "plans":
		common.PrintPlans(services.Ledger.Plans())
		return
	case "quote":
		q, err := services.Ledger.Quote(ctx, *symbolFlag)
		if err != nil {
			zap.L().Fatal("Quote failed", zap.Error(err))
		}
		fmt.Printf("%s  $%s  (%s%% 24h, %s)\n", q.Symbol, q.Price.String(), q.ChangePercent.StringFixed(2), q.Source)
		return
	case "leaderboard":
		rows, err := services.Ledger.Leaderboard(ctx, *limitFlag)
		if err != nil {
			zap.L().Fatal("Leaderboard failed", zap.Error(err))
		}
		common.PrintHeader("TOP EARNERS", common.DefaultWidth)
		for _, r := range rows {
			fmt.Printf("#%-3d %-16s %-7s %12s USDT\n", r.Rank, r.AccountId, common.TierLabel(r.Tier), r.TotalEarned.StringFixed(2))
		}
		common.PrintSeparator("=", common.DefaultWidth)
		return
	}

	caller, err := common.ResolveCaller(ctx, services, *tokenFlag)
	if err != nil {
		zap.L().Fatal("Failed to resolve caller", zap.Error(err))
	}

	switch flag.Arg(0) {
	case "collect":
		res, err := services.Ledger.Collect(ctx, caller.Id)
		var cooling *ledger.CoolingError
		if errors.As(err, &cooling) {
			fmt.Printf("⏳ Cooling down, try again in %d h\n", cooling.HoursRemaining())
			return
		}
		if err != nil {
			zap.L().Fatal("Collect failed", zap.Error(err))
		}
		fmt.Printf("✓ %s\n", res.Message)

	case "upgrade":
		acct, err := services.Ledger.Upgrade(ctx, caller.Id, *levelFlag)
		if err != nil {
			zap.L().Fatal("Upgrade failed", zap.Error(err))
		}
		fmt.Printf("✓ Upgraded to %s, balance %s USDT\n", common.TierLabel(acct.Tier), acct.Balances.Primary.StringFixed(2))

	case "swap":
		amount, err := decimal.NewFromString(*amountFlag)
		if err != nil {
			zap.L().Fatal("Invalid amount", zap.Error(err))
		}
		res, err := services.Ledger.Swap(ctx, caller.Id, amount)
		if err != nil {
			zap.L().Fatal("Swap failed", zap.Error(err))
		}
		fmt.Printf("✓ Swapped %s BTC for %s USDT at $%s (%s)\n",
			res.BtcAmount.String(), res.UsdtAmount.StringFixed(2), res.Price.String(), res.PriceSource)

	case "team":
		team, err := services.Ledger.Team(ctx, caller.Id)
		if err != nil {
			zap.L().Fatal("Team lookup failed", zap.Error(err))
		}
		common.PrintHeader(fmt.Sprintf("TEAM OF %s (%d)", caller.Email, len(team)), common.DefaultWidth)
		for i, member := range team {
			fmt.Printf("%s%s  %s  joined %s\n",
				common.BoxPrefix(i == len(team)-1), member.Email, common.TierLabel(member.Tier), member.JoinDate.Format("2006-01-02"))
		}
		fmt.Printf("Referral earnings: %s USDT\n", caller.ReferralEarnings.StringFixed(2))
		common.PrintSeparator("=", common.DefaultWidth)

	default:
		flag.Usage()
		os.Exit(2)
	}
}
