package ledger

import (
	"context"
	"fmt"
	"strings"

	"cloud-mining-ledger-go/internal/metrics"
	"cloud-mining-ledger-go/internal/models"
	"cloud-mining-ledger-go/internal/pricefeed"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Quote returns the live quote for symbol, or the static fallback when the
// live source is absent or unavailable.
func (s *Service) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if s.prices != nil {
		q, err := s.prices.Quote(ctx, symbol)
		if err == nil {
			metrics.PriceQuotesTotal.WithLabelValues(symbol, q.Source).Inc()
			return q, nil
		}
		zap.L().Debug("Live price unavailable, using fallback", zap.String("symbol", symbol), zap.Error(err))
	}

	q, ok := pricefeed.FallbackQuote(symbol)
	if !ok {
		return models.Quote{}, fmt.Errorf("%w: no price for %s", ErrNotFound, symbol)
	}
	q.FetchedAt = s.now().UTC()
	metrics.PriceQuotesTotal.WithLabelValues(symbol, q.Source).Inc()
	return q, nil
}

// Swap converts secondary balance into primary at the current BTC price.
func (s *Service) Swap(ctx context.Context, id string, btcAmount decimal.Decimal) (*models.SwapResult, error) {
	if !btcAmount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, btcAmount)
	}

	quote, err := s.Quote(ctx, "BTC")
	if err != nil {
		return nil, err
	}

	var result *models.SwapResult
	err = s.update(ctx, "swap", func(u *unit) error {
		acct, err := u.account(id)
		if err != nil {
			return err
		}
		if acct.Blocked {
			return ErrAccountBlocked
		}
		if acct.Balances.Secondary.LessThan(btcAmount) {
			return fmt.Errorf("%w: BTC balance %s", ErrInsufficientFunds, acct.Balances.Secondary)
		}

		usdt := btcAmount.Mul(quote.Price)
		reference := newReference("swap", u.now)
		u.move(acct, models.CurrencySecondary, btcAmount.Neg(), reference, models.EntrySwapOut)
		u.move(acct, models.CurrencyPrimary, usdt, reference, models.EntrySwapIn)
		if err := u.save(acct); err != nil {
			return err
		}

		result = &models.SwapResult{
			Account:     acct,
			BtcAmount:   btcAmount,
			UsdtAmount:  usdt,
			Price:       quote.Price,
			PriceSource: quote.Source,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Swapped BTC to USDT",
		zap.String("account_id", id),
		zap.String("btc", btcAmount.String()),
		zap.String("usdt", result.UsdtAmount.String()),
		zap.String("price_source", quote.Source))
	return result, nil
}
