package common

import (
	"context"
	"fmt"

	"cloud-mining-ledger-go/internal/ledger"
	"cloud-mining-ledger-go/internal/models"
)

// ResolveCaller identifies the account a command acts for. A bearer token
// takes precedence; otherwise the persisted session slot is used.
func ResolveCaller(ctx context.Context, svc *Services, token string) (*models.Account, error) {
	if token != "" {
		if svc.Tokens == nil {
			return nil, fmt.Errorf("token supplied but TOKEN_SECRET is not configured")
		}
		claims, err := svc.Tokens.Parse(token)
		if err != nil {
			return nil, err
		}
		acct, err := svc.Ledger.Account(ctx, claims.AccountId)
		if err != nil {
			return nil, fmt.Errorf("token account: %w", err)
		}
		if acct.Blocked {
			return nil, fmt.Errorf("%w: %s", ledger.ErrAccountBlocked, acct.Id)
		}
		return acct, nil
	}

	acct, err := svc.Ledger.CurrentAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("no active session, log in first: %w", err)
	}
	return acct, nil
}
