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
	"strings"

	"cloud-mining-ledger-go/internal/common"
	"cloud-mining-ledger-go/internal/config"
	"cloud-mining-ledger-go/internal/models"

	"go.uber.org/zap"
)

func parseDecision(raw string) (models.TransactionStatus, error) {
	switch strings.ToLower(raw) {
	case "approve", "approved":
		return models.StatusApproved, nil
	case "reject", "rejected":
		return models.StatusRejected, nil
	}
	return "", fmt.Errorf("invalid decision %q, expected approve or reject", raw)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	txFlag := flag.String("tx", "", "Transaction ID to settle")
	decisionFlag := flag.String("decision", "", "approve or reject")
	listFlag := flag.Bool("list", false, "List the pending approval queue instead of settling")
	tokenFlag := flag.String("token", "", "Administrator session token (optional)")
	flag.Parse()

	if !*listFlag && (*txFlag == "" || *decisionFlag == "") {
		zap.L().Fatal("Flags are required: --tx and --decision (or --list)")
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

	if *listFlag {
		pending, err := services.Ledger.PendingTransactions(ctx, caller.Id)
		if err != nil {
			zap.L().Fatal("Failed to list pending transactions", zap.Error(err))
		}
		common.PrintHeader(fmt.Sprintf("APPROVAL QUEUE (%d)", len(pending)), common.DefaultWidth)
		common.PrintTransactions(pending)
		common.PrintSeparator("=", common.DefaultWidth)
		return
	}

	decision, err := parseDecision(*decisionFlag)
	if err != nil {
		zap.L().Fatal("Invalid decision", zap.Error(err))
	}

	tx, err := services.Ledger.Settle(ctx, caller.Id, *txFlag, decision)
	if err != nil {
		zap.L().Fatal("Settlement failed", zap.Error(err))
	}

	common.PrintHeader("REQUEST SETTLED", common.DefaultWidth)
	fmt.Printf("Transaction ID: %s\n", tx.Id)
	fmt.Printf("Account:        %s\n", tx.AccountEmail)
	fmt.Printf("Kind:           %s\n", tx.Kind)
	fmt.Printf("Amount:         %s USDT\n", tx.Amount.StringFixed(2))
	fmt.Printf("Status:         %s\n", tx.Status)
	common.PrintSeparator("=", common.DefaultWidth)
}
