package ledger

import (
	"context"
	"fmt"

	"cloud-mining-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Journal lists an account's balance movements in the order they happened.
// Administrator only.
func (s *Service) Journal(ctx context.Context, adminId, accountId string) ([]models.JournalEntry, error) {
	var entries []models.JournalEntry
	err := s.view(ctx, func(u *unit) error {
		if _, err := s.requireAdmin(u, adminId); err != nil {
			return err
		}
		var err error
		entries, err = u.tx.ListJournal(ctx, accountId)
		return err
	})
	return entries, err
}

// Reconcile checks that each account's balances equal the sum of its journal
// entries. An empty targetId checks every account. Results are returned even
// when a mismatch is found; the error then wraps ErrBalanceMismatch.
func (s *Service) Reconcile(ctx context.Context, adminId, targetId string) ([]models.ReconcileResult, error) {
	var results []models.ReconcileResult
	err := s.view(ctx, func(u *unit) error {
		if _, err := s.requireAdmin(u, adminId); err != nil {
			return err
		}

		var accounts []models.Account
		if targetId == "" {
			var err error
			if accounts, err = u.tx.ListAccounts(ctx); err != nil {
				return err
			}
		} else {
			acct, err := u.account(targetId)
			if err != nil {
				return err
			}
			accounts = []models.Account{*acct}
		}

		for _, acct := range accounts {
			entries, err := u.tx.ListJournal(ctx, acct.Id)
			if err != nil {
				return err
			}
			results = append(results, reconcileAccount(acct, entries))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var mismatched int
	for _, r := range results {
		if !r.Balanced {
			mismatched++
			zap.L().Warn("Journal does not match balances",
				zap.String("account_id", r.AccountId),
				zap.String("primary", r.Primary.String()),
				zap.String("journal_primary", r.JournalPrimary.String()),
				zap.String("secondary", r.Secondary.String()),
				zap.String("journal_secondary", r.JournalSecondary.String()))
		}
	}
	if mismatched > 0 {
		return results, fmt.Errorf("%w: %d account(s)", ErrBalanceMismatch, mismatched)
	}
	return results, nil
}

func reconcileAccount(acct models.Account, entries []models.JournalEntry) models.ReconcileResult {
	primary, secondary := decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.Currency == models.CurrencySecondary {
			secondary = secondary.Add(e.Amount)
		} else {
			primary = primary.Add(e.Amount)
		}
	}
	return models.ReconcileResult{
		AccountId:        acct.Id,
		Primary:          acct.Balances.Primary,
		Secondary:        acct.Balances.Secondary,
		JournalPrimary:   primary,
		JournalSecondary: secondary,
		Balanced:         primary.Equal(acct.Balances.Primary) && secondary.Equal(acct.Balances.Secondary),
	}
}
