package ledger

import (
	"context"
	"fmt"

	"cloud-mining-ledger-go/internal/metrics"
	"cloud-mining-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Collect credits one cooldown window's yield. Free-tier accounts earn the
// secondary currency, plan holders earn the plan's daily return in primary.
func (s *Service) Collect(ctx context.Context, id string) (*models.CollectResult, error) {
	var result *models.CollectResult
	err := s.update(ctx, "collect", func(u *unit) error {
		acct, err := u.account(id)
		if err != nil {
			return err
		}
		if acct.Blocked {
			return ErrAccountBlocked
		}

		if !acct.LastYieldTime.IsZero() {
			if elapsed := u.now.Sub(acct.LastYieldTime); elapsed < s.cooldown {
				return &CoolingError{Remaining: s.cooldown - elapsed}
			}
		}

		var (
			currency models.Currency
			amount   decimal.Decimal
		)
		if acct.Tier == 0 {
			currency, amount = models.CurrencySecondary, s.freeYieldRate
		} else {
			plan, ok := s.plans.Lookup(acct.Tier)
			if !ok {
				return fmt.Errorf("%w: tier %d has no plan", ErrInvalidPlan, acct.Tier)
			}
			currency, amount = models.CurrencyPrimary, plan.DailyYield()
			acct.TotalEarned = acct.TotalEarned.Add(amount)
		}

		u.move(acct, currency, amount, newReference("yield", u.now), models.EntryYield)
		acct.LastYieldTime = u.now
		if err := u.save(acct); err != nil {
			return err
		}

		u.onCommit(func() { metrics.AddDecimal(metrics.YieldCreditedTotal.WithLabelValues(string(currency)), amount) })
		result = &models.CollectResult{
			Account:  acct,
			Currency: currency,
			Amount:   amount,
			Message:  fmt.Sprintf("Collected %s %s", amount.String(), currency),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Yield collected",
		zap.String("account_id", id),
		zap.String("currency", string(result.Currency)),
		zap.String("amount", result.Amount.String()))
	return result, nil
}

// Upgrade buys the plan at level with primary balance and restarts the
// cooldown window.
func (s *Service) Upgrade(ctx context.Context, id string, level int) (*models.Account, error) {
	var upgraded *models.Account
	err := s.update(ctx, "upgrade", func(u *unit) error {
		acct, err := u.account(id)
		if err != nil {
			return err
		}
		if acct.Blocked {
			return ErrAccountBlocked
		}

		plan, ok := s.plans.Lookup(level)
		if !ok {
			return fmt.Errorf("%w: level %d", ErrInvalidPlan, level)
		}
		if acct.Tier >= level {
			return fmt.Errorf("%w: current tier %d", ErrAlreadyOwned, acct.Tier)
		}
		if acct.Balances.Primary.LessThan(plan.Cost) {
			return fmt.Errorf("%w: plan costs %s", ErrInsufficientFunds, plan.Cost)
		}

		u.move(acct, models.CurrencyPrimary, plan.Cost.Neg(), newReference("plan", u.now), models.EntryPlanPurchase)
		acct.Tier = level
		acct.LastYieldTime = u.now
		if err := u.save(acct); err != nil {
			return err
		}
		upgraded = acct
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Plan purchased", zap.String("account_id", id), zap.Int("level", level))
	return upgraded, nil
}
