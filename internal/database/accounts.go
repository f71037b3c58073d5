package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cloud-mining-ledger-go/internal/models"
	"cloud-mining-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		acct                                              models.Account
		primary, secondary, totalEarned, referralEarnings string
		lastYield, joinDate                               int64
	)
	err := row.Scan(
		&acct.Id, &acct.Email, &acct.SecretHash, &primary, &secondary, &acct.Tier, &lastYield,
		&totalEarned, &acct.ReferralCode, &acct.ReferredBy, &acct.ReferralCount, &referralEarnings,
		&acct.Blocked, &joinDate, &acct.Version)
	if err != nil {
		return nil, err
	}

	if acct.Balances.Primary, err = decimal.NewFromString(primary); err != nil {
		return nil, fmt.Errorf("invalid primary balance for %s: %w", acct.Id, err)
	}
	if acct.Balances.Secondary, err = decimal.NewFromString(secondary); err != nil {
		return nil, fmt.Errorf("invalid secondary balance for %s: %w", acct.Id, err)
	}
	if acct.TotalEarned, err = decimal.NewFromString(totalEarned); err != nil {
		return nil, fmt.Errorf("invalid total earned for %s: %w", acct.Id, err)
	}
	if acct.ReferralEarnings, err = decimal.NewFromString(referralEarnings); err != nil {
		return nil, fmt.Errorf("invalid referral earnings for %s: %w", acct.Id, err)
	}
	acct.LastYieldTime = store.MillisToTime(lastYield)
	acct.JoinDate = store.MillisToTime(joinDate)
	return &acct, nil
}

func (t *sqlTx) queryAccount(ctx context.Context, query string, arg any) (*models.Account, error) {
	acct, err := scanAccount(t.tx.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		zap.L().Error("Failed to query account", zap.Any("key", arg), zap.Error(err))
		return nil, fmt.Errorf("unable to query account: %w", err)
	}
	return acct, nil
}

func (t *sqlTx) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return t.queryAccount(ctx, queryGetAccountById, id)
}

func (t *sqlTx) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return t.queryAccount(ctx, queryGetAccountByEmail, email)
}

func (t *sqlTx) FindAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	if code == "" {
		return nil, store.ErrNotFound
	}
	return t.queryAccount(ctx, queryGetAccountByReferralCode, code)
}

func (t *sqlTx) ListAccounts(ctx context.Context) ([]models.Account, error) {
	zap.L().Debug("Querying accounts")

	rows, err := t.tx.QueryContext(ctx, queryListAccounts)
	if err != nil {
		zap.L().Error("Failed to query accounts", zap.Error(err))
		return nil, fmt.Errorf("unable to query accounts: %w", err)
	}
	defer closeRows(rows)

	var accounts []models.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			zap.L().Error("Failed to scan account row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan account row: %w", err)
		}
		accounts = append(accounts, *acct)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during account row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accounts, nil
}

func (t *sqlTx) UpsertAccount(ctx context.Context, acct *models.Account) error {
	if err := t.writable(); err != nil {
		return err
	}

	if acct.Version == 0 {
		_, err := t.tx.ExecContext(ctx, queryInsertAccount,
			acct.Id, acct.Email, acct.SecretHash,
			acct.Balances.Primary.String(), acct.Balances.Secondary.String(),
			acct.Tier, store.TimeToMillis(acct.LastYieldTime), acct.TotalEarned.String(),
			acct.ReferralCode, acct.ReferredBy, acct.ReferralCount, acct.ReferralEarnings.String(),
			acct.Blocked, store.TimeToMillis(acct.JoinDate))
		if err != nil {
			if isUniqueViolation(err) {
				return store.ErrDuplicate
			}
			zap.L().Error("Failed to insert account", zap.String("account_id", acct.Id), zap.Error(err))
			return fmt.Errorf("unable to insert account: %w", err)
		}
		acct.Version = 1
		zap.L().Debug("Inserted account", zap.String("account_id", acct.Id))
		return nil
	}

	result, err := t.tx.ExecContext(ctx, queryUpdateAccount,
		acct.Email, acct.SecretHash,
		acct.Balances.Primary.String(), acct.Balances.Secondary.String(),
		acct.Tier, store.TimeToMillis(acct.LastYieldTime), acct.TotalEarned.String(),
		acct.ReferralCode, acct.ReferredBy, acct.ReferralCount, acct.ReferralEarnings.String(),
		acct.Blocked, acct.Id, acct.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		zap.L().Error("Failed to update account", zap.String("account_id", acct.Id), zap.Error(err))
		return fmt.Errorf("unable to update account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists int
		if err := t.tx.QueryRowContext(ctx, queryAccountExists, acct.Id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrNotFound
			}
			return fmt.Errorf("unable to check account: %w", err)
		}
		zap.L().Warn("Optimistic lock conflict on account",
			zap.String("account_id", acct.Id),
			zap.Int64("expected_version", acct.Version))
		return store.ErrConcurrentModification
	}

	acct.Version++
	return nil
}

func (t *sqlTx) DeleteAccount(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}

	result, err := t.tx.ExecContext(ctx, queryDeleteAccount, id)
	if err != nil {
		zap.L().Error("Failed to delete account", zap.String("account_id", id), zap.Error(err))
		return fmt.Errorf("unable to delete account: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *sqlTx) RekeyAccount(ctx context.Context, oldId, newId string) error {
	if err := t.writable(); err != nil {
		return err
	}

	result, err := t.tx.ExecContext(ctx, queryRekeyAccount, newId, oldId)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("unable to rekey account: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}

	for _, query := range []string{queryRekeyChildren, queryRekeyTransactions, queryRekeyJournal, queryRekeySession} {
		if _, err := t.tx.ExecContext(ctx, query, newId, oldId); err != nil {
			return fmt.Errorf("unable to repoint references to %s: %w", oldId, err)
		}
	}

	zap.L().Info("Rekeyed account", zap.String("old_id", oldId), zap.String("new_id", newId))
	return nil
}
