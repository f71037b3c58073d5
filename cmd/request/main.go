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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fundsRequest struct {
	kind    models.TransactionKind
	amount  decimal.Decimal
	network string
	proof   string
	token   string
}

func parseAndValidateFlags() (*fundsRequest, error) {
	kindFlag := flag.String("kind", "", "Request kind: deposit or withdraw (required)")
	amountFlag := flag.String("amount", "", "Amount in USDT (required)")
	networkFlag := flag.String("network", "TRC20", "Transfer network label")
	proofFlag := flag.String("proof", "", "Deposit proof reference or withdrawal destination address (required)")
	tokenFlag := flag.String("token", "", "Session token (optional)")
	flag.Parse()

	if *kindFlag == "" || *amountFlag == "" || *proofFlag == "" {
		return nil, fmt.Errorf("flags are required: --kind, --amount, --proof")
	}

	kind := models.TransactionKind(strings.ToLower(*kindFlag))
	if kind != models.KindDeposit && kind != models.KindWithdraw {
		return nil, fmt.Errorf("invalid kind %q, expected deposit or withdraw", *kindFlag)
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	return &fundsRequest{
		kind:    kind,
		amount:  amount,
		network: *networkFlag,
		proof:   *proofFlag,
		token:   *tokenFlag,
	}, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid request", zap.Error(err))
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

	caller, err := common.ResolveCaller(ctx, services, req.token)
	if err != nil {
		zap.L().Fatal("Failed to resolve caller", zap.Error(err))
	}

	tx, err := services.Ledger.Request(ctx, caller.Id, req.kind, req.amount, req.network, req.proof)
	if err != nil {
		zap.L().Fatal("Request rejected", zap.Error(err))
	}

	common.PrintHeader("REQUEST SUBMITTED", common.DefaultWidth)
	fmt.Printf("Transaction ID: %s\n", tx.Id)
	fmt.Printf("Kind:           %s\n", tx.Kind)
	fmt.Printf("Amount:         %s USDT\n", tx.Amount.StringFixed(2))
	fmt.Printf("Network:        %s\n", tx.Network)
	fmt.Printf("Status:         %s\n", tx.Status)
	if tx.Kind == models.KindWithdraw {
		fmt.Println("The amount is held until an administrator settles the request.")
	}
	common.PrintSeparator("=", common.DefaultWidth)
}
