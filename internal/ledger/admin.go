package ledger

import (
	"context"
	"errors"
	"fmt"

	"cloud-mining-ledger-go/internal/models"
	"cloud-mining-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// requireAdmin passes only when callerId is the configured administrator id
// and that account carries the configured administrator email.
func (s *Service) requireAdmin(u *unit, callerId string) (*models.Account, error) {
	if callerId == "" || callerId != s.admin.AccountId {
		return nil, ErrUnauthorized
	}
	acct, err := u.tx.GetAccount(u.ctx, callerId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if s.auth.NormalizeEmail(acct.Email) != s.admin.Email {
		zap.L().Warn("Administrator id presented with a foreign email", zap.String("account_id", callerId))
		return nil, ErrUnauthorized
	}
	return acct, nil
}

func (s *Service) isProtected(id string) bool {
	return id == s.admin.AccountId
}

// adminUpdate runs fn against the target account after the admin gate.
func (s *Service) adminUpdate(ctx context.Context, operation, adminId, targetId string, fn func(u *unit, target *models.Account) error) (*models.Account, error) {
	var result *models.Account
	err := s.update(ctx, operation, func(u *unit) error {
		if _, err := s.requireAdmin(u, adminId); err != nil {
			return err
		}
		target, err := u.account(targetId)
		if err != nil {
			return err
		}
		if err := fn(u, target); err != nil {
			return err
		}
		result = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Administrative override applied",
		zap.String("operation", operation),
		zap.String("target", targetId))
	return result, nil
}

func (s *Service) ToggleBlock(ctx context.Context, adminId, targetId string) (*models.Account, error) {
	return s.adminUpdate(ctx, "admin_toggle_block", adminId, targetId, func(u *unit, target *models.Account) error {
		if s.isProtected(target.Id) {
			return ErrProtectedAccount
		}
		target.Blocked = !target.Blocked
		return u.save(target)
	})
}

// AdjustFunds adds delta to one balance. A debit larger than the balance
// clamps to zero instead of failing.
func (s *Service) AdjustFunds(ctx context.Context, adminId, targetId string, currency models.Currency, delta decimal.Decimal) (*models.Account, error) {
	if currency != models.CurrencyPrimary && currency != models.CurrencySecondary {
		return nil, fmt.Errorf("%w: unknown currency %q", ErrInvalidInput, currency)
	}

	return s.adminUpdate(ctx, "admin_adjust_funds", adminId, targetId, func(u *unit, target *models.Account) error {
		current := target.Balances.Of(currency)
		next := current.Add(delta)
		if next.IsNegative() {
			zap.L().Warn("Adjustment clamped at zero",
				zap.String("target", target.Id),
				zap.String("currency", string(currency)),
				zap.String("requested", delta.String()),
				zap.String("balance", current.String()))
			next = decimal.Zero
		}
		u.move(target, currency, next.Sub(current), newReference("adjust", u.now), models.EntryAdminAdjust)
		return u.save(target)
	})
}

// ForceSetTier sets the tier without charging and restarts the cooldown.
func (s *Service) ForceSetTier(ctx context.Context, adminId, targetId string, level int) (*models.Account, error) {
	if level < 0 {
		return nil, fmt.Errorf("%w: level %d", ErrInvalidPlan, level)
	}
	return s.adminUpdate(ctx, "admin_force_tier", adminId, targetId, func(u *unit, target *models.Account) error {
		target.Tier = level
		target.LastYieldTime = u.now
		return u.save(target)
	})
}

// ResetAccount zeroes both balances and the earning aggregates.
func (s *Service) ResetAccount(ctx context.Context, adminId, targetId string) (*models.Account, error) {
	return s.adminUpdate(ctx, "admin_reset", adminId, targetId, func(u *unit, target *models.Account) error {
		reference := newReference("reset", u.now)
		u.move(target, models.CurrencyPrimary, target.Balances.Primary.Neg(), reference, models.EntryAdminReset)
		u.move(target, models.CurrencySecondary, target.Balances.Secondary.Neg(), reference, models.EntryAdminReset)
		target.TotalEarned = decimal.Zero
		target.ReferralEarnings = decimal.Zero
		return u.save(target)
	})
}

// DeleteAccount removes the account for good and drops it from its
// referrer's count. Children keep their dangling ReferredBy and simply stop
// paying commission.
func (s *Service) DeleteAccount(ctx context.Context, adminId, targetId string) error {
	_, err := s.adminUpdate(ctx, "admin_delete", adminId, targetId, func(u *unit, target *models.Account) error {
		if s.isProtected(target.Id) {
			return ErrProtectedAccount
		}
		if err := s.detachFromReferrer(u, target); err != nil {
			return err
		}
		return u.tx.DeleteAccount(u.ctx, target.Id)
	})
	return err
}

func (s *Service) RelinkReferrer(ctx context.Context, adminId, targetId, code string) (*models.Account, error) {
	return s.adminUpdate(ctx, "admin_relink", adminId, targetId, func(u *unit, target *models.Account) error {
		return s.relink(u, target, code)
	})
}
