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
	"cloud-mining-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const usage = `usage: admin [flags] <command>

  list                                    all accounts
  pending                                 approval queue
  block     --target|--email              toggle the blocked flag
  adjust    --target|--email --currency --delta
                                          add delta (may be negative) to a balance
  tier      --target|--email --level      force a tier without charging
  reset     --target|--email              zero balances, tier and earnings
  delete    --target|--email              delete an account
  relink    --target|--email --code       change the referrer
  journal   [--target|--email]            balance movements
  reconcile [--target|--email]            compare balances with the journal
  mirror-sync                             replay the journal and profiles to Formance
  mirror-check                            compare balances with the Formance mirror
`

type adminCommand struct {
	ctx      context.Context
	services *common.Services
	adminId  string
	targetId string
}

func (c *adminCommand) requireTarget() {
	if c.targetId == "" {
		zap.L().Fatal("This command requires --target or --email")
	}
}

func (c *adminCommand) printResult(title string, acct *models.Account) {
	common.PrintHeader(title, common.DefaultWidth)
	common.PrintAccount(acct)
	common.PrintSeparator("=", common.DefaultWidth)
}

func (c *adminCommand) reconcile() {
	results, err := c.services.Ledger.Reconcile(c.ctx, c.adminId, c.targetId)
	if err != nil && !errors.Is(err, ledger.ErrBalanceMismatch) {
		zap.L().Fatal("Reconcile failed", zap.Error(err))
	}

	common.PrintHeader("JOURNAL RECONCILIATION", common.WideWidth)
	mismatches := 0
	for _, r := range results {
		mark := "✓"
		if !r.Balanced {
			mark = "✗"
			mismatches++
		}
		fmt.Printf("%s %-38s USDT %14s / %-14s BTC %14s / %s\n", mark, r.AccountId,
			r.Primary.StringFixed(2), r.JournalPrimary.StringFixed(2), r.Secondary.String(), r.JournalSecondary.String())
	}
	common.PrintFooter(fmt.Sprintf("SUMMARY: %d accounts checked, %d mismatched", len(results), mismatches), common.WideWidth)
	if mismatches > 0 {
		os.Exit(1)
	}
}

func (c *adminCommand) mirrorSync() {
	if c.services.Mirror == nil {
		zap.L().Fatal("Formance mirror is not enabled (FORMANCE_ENABLED)")
	}
	accounts, err := c.services.Ledger.ListAccounts(c.ctx, c.adminId)
	if err != nil {
		zap.L().Fatal("Failed to list accounts", zap.Error(err))
	}
	for i := range accounts {
		if err := c.services.Mirror.SyncAccount(c.ctx, &accounts[i]); err != nil {
			zap.L().Error("Failed to sync account", zap.String("account_id", accounts[i].Id), zap.Error(err))
		}
	}

	entries, err := c.services.Ledger.Journal(c.ctx, c.adminId, "")
	if err != nil {
		zap.L().Fatal("Failed to read journal", zap.Error(err))
	}
	// Entries already mirrored are recognized by reference and skipped
	if err := c.services.Mirror.PostEntries(c.ctx, entries); err != nil {
		zap.L().Fatal("Mirror replay incomplete", zap.Error(err))
	}
	fmt.Printf("✓ Synced %d accounts and %d journal entries\n", len(accounts), len(entries))
}

func (c *adminCommand) mirrorCheck() {
	if c.services.Mirror == nil {
		zap.L().Fatal("Formance mirror is not enabled (FORMANCE_ENABLED)")
	}
	accounts, err := c.services.Ledger.ListAccounts(c.ctx, c.adminId)
	if err != nil {
		zap.L().Fatal("Failed to list accounts", zap.Error(err))
	}

	common.PrintHeader("FORMANCE MIRROR CHECK", common.WideWidth)
	drifted := 0
	for _, acct := range accounts {
		mirrored, err := c.services.Mirror.Balances(c.ctx, acct.Id)
		if err != nil {
			zap.L().Error("Failed to read mirrored balances", zap.String("account_id", acct.Id), zap.Error(err))
			drifted++
			continue
		}
		// The mirror stores amounts at currency precision
		primaryOk := mirrored.Primary.Equal(acct.Balances.Primary.Truncate(6))
		secondaryOk := mirrored.Secondary.Equal(acct.Balances.Secondary.Truncate(8))
		mark := "✓"
		if !primaryOk || !secondaryOk {
			mark = "✗"
			drifted++
		}
		fmt.Printf("%s %-38s USDT %14s / %-14s BTC %14s / %s\n", mark, acct.Id,
			acct.Balances.Primary.StringFixed(2), mirrored.Primary.StringFixed(2),
			acct.Balances.Secondary.String(), mirrored.Secondary.String())
	}
	common.PrintFooter(fmt.Sprintf("SUMMARY: %d accounts checked, %d drifted", len(accounts), drifted), common.WideWidth)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	targetFlag := flag.String("target", "", "Target account ID")
	emailFlag := flag.String("email", "", "Target account email (alternative to --target)")
	currencyFlag := flag.String("currency", "USDT", "Currency for adjust: USDT/primary or BTC/secondary")
	deltaFlag := flag.String("delta", "", "Signed amount for adjust")
	levelFlag := flag.Int("level", 0, "Tier level for tier")
	codeFlag := flag.String("code", "", "Referral code for relink")
	tokenFlag := flag.String("token", "", "Administrator session token (optional)")
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

	caller, err := common.ResolveCaller(ctx, services, *tokenFlag)
	if err != nil {
		zap.L().Fatal("Failed to resolve caller", zap.Error(err))
	}

	cmd := &adminCommand{ctx: ctx, services: services, adminId: caller.Id, targetId: *targetFlag}
	if cmd.targetId == "" && *emailFlag != "" {
		target, err := services.Ledger.FindAccountByEmail(ctx, *emailFlag)
		if err != nil {
			zap.L().Fatal("Target not found", zap.Error(err))
		}
		cmd.targetId = target.Id
	}

	switch flag.Arg(0) {
	case "list":
		accounts, err := common.LookupAccounts(ctx, services.Ledger, caller.Id, "")
		if err != nil {
			zap.L().Fatal("Failed to list accounts", zap.Error(err))
		}
		common.PrintHeader(fmt.Sprintf("ACCOUNTS (%d)", len(accounts)), common.WideWidth)
		for _, a := range accounts {
			status := ""
			if a.Blocked {
				status = "BLOCKED"
			}
			fmt.Printf("%-38s %-32s %-7s %12s USDT %14s BTC %s\n", a.Id, a.Email, common.TierLabel(a.Tier),
				a.Balances.Primary.StringFixed(2), a.Balances.Secondary.String(), status)
		}
		common.PrintSeparator("=", common.WideWidth)

	case "pending":
		pending, err := services.Ledger.PendingTransactions(ctx, caller.Id)
		if err != nil {
			zap.L().Fatal("Failed to list pending transactions", zap.Error(err))
		}
		common.PrintHeader(fmt.Sprintf("APPROVAL QUEUE (%d)", len(pending)), common.DefaultWidth)
		common.PrintTransactions(pending)
		common.PrintSeparator("=", common.DefaultWidth)

	case "block":
		cmd.requireTarget()
		acct, err := services.Ledger.ToggleBlock(ctx, caller.Id, cmd.targetId)
		if err != nil {
			zap.L().Fatal("Toggle block failed", zap.Error(err))
		}
		cmd.printResult("BLOCK TOGGLED", acct)

	case "adjust":
		cmd.requireTarget()
		currency, ok := models.ParseCurrency(*currencyFlag)
		if !ok {
			zap.L().Fatal("Invalid currency", zap.String("currency", *currencyFlag))
		}
		delta, err := decimal.NewFromString(*deltaFlag)
		if err != nil {
			zap.L().Fatal("Invalid delta", zap.Error(err))
		}
		acct, err := services.Ledger.AdjustFunds(ctx, caller.Id, cmd.targetId, currency, delta)
		if err != nil {
			zap.L().Fatal("Adjust funds failed", zap.Error(err))
		}
		cmd.printResult("FUNDS ADJUSTED", acct)

	case "tier":
		cmd.requireTarget()
		acct, err := services.Ledger.ForceSetTier(ctx, caller.Id, cmd.targetId, *levelFlag)
		if err != nil {
			zap.L().Fatal("Force tier failed", zap.Error(err))
		}
		cmd.printResult("TIER SET", acct)

	case "reset":
		cmd.requireTarget()
		acct, err := services.Ledger.ResetAccount(ctx, caller.Id, cmd.targetId)
		if err != nil {
			zap.L().Fatal("Reset failed", zap.Error(err))
		}
		cmd.printResult("ACCOUNT RESET", acct)

	case "delete":
		cmd.requireTarget()
		if err := services.Ledger.DeleteAccount(ctx, caller.Id, cmd.targetId); err != nil {
			zap.L().Fatal("Delete failed", zap.Error(err))
		}
		fmt.Printf("✓ Deleted account %s\n", cmd.targetId)

	case "relink":
		cmd.requireTarget()
		acct, err := services.Ledger.RelinkReferrer(ctx, caller.Id, cmd.targetId, *codeFlag)
		if err != nil {
			zap.L().Fatal("Relink failed", zap.Error(err))
		}
		cmd.printResult("REFERRER CHANGED", acct)

	case "journal":
		entries, err := services.Ledger.Journal(ctx, caller.Id, cmd.targetId)
		if err != nil {
			zap.L().Fatal("Failed to read journal", zap.Error(err))
		}
		common.PrintHeader(fmt.Sprintf("JOURNAL (%d entries)", len(entries)), common.WideWidth)
		for _, e := range entries {
			fmt.Printf("%s  %-38s %-4s %16s  %-20s %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.AccountId, e.Currency, e.Amount.String(), e.EntryType, e.Reference)
		}
		common.PrintSeparator("=", common.WideWidth)

	case "reconcile":
		cmd.reconcile()

	case "mirror-sync":
		cmd.mirrorSync()

	case "mirror-check":
		cmd.mirrorCheck()

	default:
		flag.Usage()
		os.Exit(2)
	}
}
