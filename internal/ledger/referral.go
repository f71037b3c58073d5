package ledger

import (
	"context"
	"errors"
	"fmt"

	"cloud-mining-ledger-go/internal/metrics"
	"cloud-mining-ledger-go/internal/models"
	"cloud-mining-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// linkOnRegister attaches a new account to the owner of rawCode. Codes that
// do not resolve are ignored.
func (s *Service) linkOnRegister(u *unit, child *models.Account, rawCode string) error {
	code := normalizeCode(rawCode)
	if code == "" {
		return nil
	}

	parent, err := u.tx.FindAccountByReferralCode(u.ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		zap.L().Info("Ignoring unknown referral code at registration", zap.String("code", code))
		return nil
	}
	if err != nil {
		return err
	}

	child.ReferredBy = parent.Id
	parent.ReferralCount++
	return u.save(parent)
}

// relink moves child under the owner of rawCode, keeping both parents'
// referral counts consistent.
func (s *Service) relink(u *unit, child *models.Account, rawCode string) error {
	code := normalizeCode(rawCode)
	parent, err := u.tx.FindAccountByReferralCode(u.ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	if err != nil {
		return err
	}
	if parent.Id == child.Id {
		return ErrSelfReferral
	}
	if child.ReferredBy == parent.Id {
		return nil
	}

	if err := s.detachFromReferrer(u, child); err != nil {
		return err
	}

	parent.ReferralCount++
	if err := u.save(parent); err != nil {
		return err
	}
	child.ReferredBy = parent.Id
	return u.save(child)
}

// detachFromReferrer drops child from its current referrer's count. The
// child's own ReferredBy is left for the caller to rewrite.
func (s *Service) detachFromReferrer(u *unit, child *models.Account) error {
	if child.ReferredBy == "" {
		return nil
	}
	prior, err := u.tx.GetAccount(u.ctx, child.ReferredBy)
	switch {
	case err == nil:
		if prior.ReferralCount > 0 {
			prior.ReferralCount--
		}
		return u.save(prior)
	case errors.Is(err, store.ErrNotFound):
		zap.L().Debug("Prior referrer no longer exists", zap.String("account_id", child.ReferredBy))
		return nil
	default:
		return err
	}
}

// payCommission credits the depositor's referrer with its share of an
// approved deposit. A referrer that no longer exists earns nothing.
func (s *Service) payCommission(u *unit, depositor *models.Account, amount decimal.Decimal, reference string) error {
	if depositor.ReferredBy == "" || depositor.ReferredBy == depositor.Id {
		return nil
	}

	parent, err := u.tx.GetAccount(u.ctx, depositor.ReferredBy)
	if errors.Is(err, store.ErrNotFound) {
		zap.L().Debug("Referrer no longer exists, no commission paid",
			zap.String("depositor", depositor.Id),
			zap.String("referrer", depositor.ReferredBy))
		return nil
	}
	if err != nil {
		return err
	}

	commission := amount.Mul(s.commissionRate)
	if !commission.IsPositive() {
		return nil
	}

	u.move(parent, models.CurrencyPrimary, commission, reference, models.EntryCommission)
	parent.ReferralEarnings = parent.ReferralEarnings.Add(commission)
	if err := u.save(parent); err != nil {
		return err
	}

	u.onCommit(func() { metrics.AddDecimal(metrics.CommissionPaidTotal, commission) })
	zap.L().Info("Referral commission paid",
		zap.String("referrer", parent.Id),
		zap.String("depositor", depositor.Id),
		zap.String("amount", commission.String()))
	return nil
}

// Team lists the accounts directly referred by id.
func (s *Service) Team(ctx context.Context, id string) ([]models.Account, error) {
	var team []models.Account
	err := s.view(ctx, func(u *unit) error {
		if _, err := u.account(id); err != nil {
			return err
		}
		accounts, err := u.tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		for _, acct := range accounts {
			if acct.ReferredBy == id {
				team = append(team, acct)
			}
		}
		return nil
	})
	return team, err
}
