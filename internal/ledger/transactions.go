package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud-mining-ledger-go/internal/metrics"
	"cloud-mining-ledger-go/internal/models"
	"cloud-mining-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Request opens a pending deposit or withdrawal. Withdrawals are escrowed
// immediately; deposits credit nothing until approved.
func (s *Service) Request(ctx context.Context, id string, kind models.TransactionKind, amount decimal.Decimal, network, proof string) (*models.Transaction, error) {
	if kind != models.KindDeposit && kind != models.KindWithdraw {
		return nil, fmt.Errorf("%w: unknown transaction kind %q", ErrInvalidInput, kind)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if kind == models.KindWithdraw && amount.LessThan(s.minWithdrawal) {
		return nil, fmt.Errorf("%w: minimum withdrawal is %s", ErrInvalidAmount, s.minWithdrawal)
	}
	proof = strings.TrimSpace(proof)
	if proof == "" {
		return nil, ErrInvalidProof
	}

	var created *models.Transaction
	err := s.update(ctx, "request_"+string(kind), func(u *unit) error {
		acct, err := u.account(id)
		if err != nil {
			return err
		}
		if acct.Blocked {
			return ErrAccountBlocked
		}

		rec := &models.Transaction{
			Id:           newTransactionId(u.now),
			AccountId:    acct.Id,
			AccountEmail: acct.Email,
			Kind:         kind,
			Amount:       amount,
			Status:       models.StatusPending,
			Network:      strings.TrimSpace(network),
			Proof:        proof,
			CreatedAt:    u.now,
		}

		if kind == models.KindWithdraw {
			if acct.Balances.Primary.LessThan(amount) {
				return fmt.Errorf("%w: balance %s", ErrInsufficientFunds, acct.Balances.Primary)
			}
			u.move(acct, models.CurrencyPrimary, amount.Neg(), rec.Id, models.EntryWithdrawEscrow)
			if err := u.save(acct); err != nil {
				return err
			}
		}

		if err := u.tx.AppendTransaction(ctx, rec); err != nil {
			return fmt.Errorf("unable to record transaction: %w", err)
		}
		created = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Transaction requested",
		zap.String("transaction_id", created.Id),
		zap.String("account_id", id),
		zap.String("kind", string(kind)),
		zap.String("amount", amount.String()))
	return created, nil
}

// Settle moves a pending transaction to approved or rejected. Repeating the
// same decision is a no-op; reversing a terminal decision fails.
func (s *Service) Settle(ctx context.Context, adminId, txId string, decision models.TransactionStatus) (*models.Transaction, error) {
	if !decision.Terminal() {
		return nil, fmt.Errorf("%w: decision must be approved or rejected, got %q", ErrInvalidInput, decision)
	}

	var (
		settled *models.Transaction
		changed bool
	)
	err := s.update(ctx, "settle", func(u *unit) error {
		settled, changed = nil, false
		if _, err := s.requireAdmin(u, adminId); err != nil {
			return err
		}

		rec, err := u.tx.GetTransaction(ctx, txId)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: transaction %s", ErrNotFound, txId)
		}
		if err != nil {
			return err
		}

		if rec.Status == decision {
			settled = rec
			return nil
		}
		if rec.Status.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrAlreadySettled, rec.Id, rec.Status)
		}

		owner, err := u.tx.GetAccount(ctx, rec.AccountId)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if owner == nil {
			zap.L().Warn("Settling transaction of a deleted account, status only",
				zap.String("transaction_id", rec.Id),
				zap.String("account_id", rec.AccountId))
		} else if err := s.applySettlement(u, owner, rec, decision); err != nil {
			return err
		}

		rec.Status = decision
		rec.SettledAt = u.now
		if err := u.tx.UpdateTransaction(ctx, rec); err != nil {
			return fmt.Errorf("unable to update transaction: %w", err)
		}

		u.onCommit(func() { metrics.SettlementsTotal.WithLabelValues(string(rec.Kind), string(decision)).Inc() })
		settled, changed = rec, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		zap.L().Info("Transaction settled",
			zap.String("transaction_id", settled.Id),
			zap.String("kind", string(settled.Kind)),
			zap.String("status", string(settled.Status)))
	}
	return settled, nil
}

func (s *Service) applySettlement(u *unit, owner *models.Account, rec *models.Transaction, decision models.TransactionStatus) error {
	switch {
	case rec.Kind == models.KindDeposit && decision == models.StatusApproved:
		u.move(owner, models.CurrencyPrimary, rec.Amount, rec.Id, models.EntryDeposit)
		if err := u.save(owner); err != nil {
			return err
		}
		return s.payCommission(u, owner, rec.Amount, rec.Id)

	case rec.Kind == models.KindWithdraw && decision == models.StatusRejected:
		u.move(owner, models.CurrencyPrimary, rec.Amount, rec.Id, models.EntryWithdrawRefund)
		return u.save(owner)
	}

	// Approved withdrawals were escrowed at request time; rejected deposits
	// never credited anything.
	return nil
}

// History lists an account's transactions, newest first.
func (s *Service) History(ctx context.Context, id string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.view(ctx, func(u *unit) error {
		var err error
		txs, err = u.tx.ListTransactions(ctx, id)
		return err
	})
	return txs, err
}

// AllTransactions lists every transaction, newest first. Administrator only.
func (s *Service) AllTransactions(ctx context.Context, adminId string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.view(ctx, func(u *unit) error {
		if _, err := s.requireAdmin(u, adminId); err != nil {
			return err
		}
		var err error
		txs, err = u.tx.ListTransactions(ctx, "")
		return err
	})
	return txs, err
}

// PendingTransactions is the approval queue, newest first.
func (s *Service) PendingTransactions(ctx context.Context, adminId string) ([]models.Transaction, error) {
	all, err := s.AllTransactions(ctx, adminId)
	if err != nil {
		return nil, err
	}
	var pending []models.Transaction
	for _, tx := range all {
		if tx.Status == models.StatusPending {
			pending = append(pending, tx)
		}
	}
	return pending, nil
}
