package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"regexp"

	"cloud-mining-ledger-go/internal/common"
	"cloud-mining-ledger-go/internal/config"
	"cloud-mining-ledger-go/internal/ledger"

	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func validateSecret(secret string) error {
	if len(secret) < 6 {
		return fmt.Errorf("secret must be at least 6 characters")
	}
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	emailFlag := flag.String("email", "", "Account email address (required)")
	secretFlag := flag.String("secret", "", "Account secret (required)")
	codeFlag := flag.String("code", "", "Referral code of the inviting account (optional)")
	flag.Parse()

	if err := validateEmail(*emailFlag); err != nil {
		zap.L().Fatal("Invalid email", zap.Error(err))
	}
	if err := validateSecret(*secretFlag); err != nil {
		zap.L().Fatal("Invalid secret", zap.Error(err))
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

	acct, err := services.Ledger.Register(ctx, *emailFlag, *secretFlag, *codeFlag)
	if err != nil {
		if errors.Is(err, ledger.ErrEmailInUse) {
			zap.L().Fatal("An account already exists with this email", zap.String("email", *emailFlag))
		}
		zap.L().Fatal("Failed to register account", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("ACCOUNT CREATED", common.DefaultWidth)
	common.PrintAccount(acct)
	if services.Tokens != nil {
		token, err := services.Tokens.Issue(acct.Id)
		if err != nil {
			zap.L().Warn("Failed to issue session token", zap.Error(err))
		} else {
			fmt.Printf("Token:     %s\n", token)
		}
	}
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	zap.L().Info("Account registered", zap.String("id", acct.Id))
}
