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
	"os"

	"cloud-mining-ledger-go/internal/common"
	"cloud-mining-ledger-go/internal/config"

	"go.uber.org/zap"
)

const usage = `usage: session [flags] <login|logout|whoami|passwd|reset>

  login   --email --secret          open a session (and print a token when configured)
  logout                            close the current session
  whoami  [--token]                 show the account behind the session or token
  passwd  --secret --new-secret     change the secret of the current account
  reset   --email --new-secret      reset a forgotten secret
`

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Account email")
	secretFlag := flag.String("secret", "", "Current secret")
	newSecretFlag := flag.String("new-secret", "", "New secret (passwd, reset)")
	tokenFlag := flag.String("token", "", "Session token (optional, overrides the stored session)")
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

	switch flag.Arg(0) {
	case "login":
		acct, err := services.Ledger.Login(ctx, *emailFlag, *secretFlag)
		if err != nil {
			zap.L().Fatal("Login failed", zap.Error(err))
		}
		common.PrintHeader("LOGGED IN", common.DefaultWidth)
		common.PrintAccount(acct)
		if services.Tokens != nil {
			token, err := services.Tokens.Issue(acct.Id)
			if err != nil {
				zap.L().Fatal("Failed to issue session token", zap.Error(err))
			}
			fmt.Printf("Token:     %s\n", token)
		}
		common.PrintSeparator("=", common.DefaultWidth)

	case "logout":
		if err := services.Ledger.Logout(ctx); err != nil {
			zap.L().Fatal("Logout failed", zap.Error(err))
		}
		fmt.Println("✓ Logged out")

	case "whoami":
		acct, err := common.ResolveCaller(ctx, services, *tokenFlag)
		if err != nil {
			zap.L().Fatal("No caller", zap.Error(err))
		}
		common.PrintHeader("CURRENT ACCOUNT", common.DefaultWidth)
		common.PrintAccount(acct)
		common.PrintSeparator("=", common.DefaultWidth)

	case "passwd":
		acct, err := common.ResolveCaller(ctx, services, *tokenFlag)
		if err != nil {
			zap.L().Fatal("No caller", zap.Error(err))
		}
		if err := services.Ledger.ChangeSecret(ctx, acct.Id, *secretFlag, *newSecretFlag); err != nil {
			zap.L().Fatal("Failed to change secret", zap.Error(err))
		}
		fmt.Println("✓ Secret changed")

	case "reset":
		if err := services.Ledger.ResetSecret(ctx, *emailFlag, *newSecretFlag); err != nil {
			zap.L().Fatal("Failed to reset secret", zap.Error(err))
		}
		fmt.Println("✓ Secret reset")

	default:
		flag.Usage()
		os.Exit(2)
	}
}
