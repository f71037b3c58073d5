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

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		tx                 models.Transaction
		amount             string
		createdAt, settled int64
	)
	err := row.Scan(&tx.Id, &tx.AccountId, &tx.AccountEmail, &tx.Kind, &amount, &tx.Status,
		&tx.Network, &tx.Proof, &createdAt, &settled)
	if err != nil {
		return nil, err
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount for transaction %s: %w", tx.Id, err)
	}
	tx.CreatedAt = store.MillisToTime(createdAt)
	tx.SettledAt = store.MillisToTime(settled)
	return &tx, nil
}

func (t *sqlTx) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	tx, err := scanTransaction(t.tx.QueryRowContext(ctx, queryGetTransaction, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		zap.L().Error("Failed to query transaction", zap.String("transaction_id", id), zap.Error(err))
		return nil, fmt.Errorf("unable to query transaction: %w", err)
	}
	return tx, nil
}

func (t *sqlTx) ListTransactions(ctx context.Context, accountId string) ([]models.Transaction, error) {
	zap.L().Debug("Querying transactions", zap.String("account_id", accountId))

	var (
		rows *sql.Rows
		err  error
	)
	if accountId == "" {
		rows, err = t.tx.QueryContext(ctx, queryListAllTransactions)
	} else {
		rows, err = t.tx.QueryContext(ctx, queryListAccountTransactions, accountId)
	}
	if err != nil {
		zap.L().Error("Failed to query transactions", zap.Error(err))
		return nil, fmt.Errorf("unable to query transactions: %w", err)
	}
	defer closeRows(rows)

	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			zap.L().Error("Failed to scan transaction row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan transaction row: %w", err)
		}
		txs = append(txs, *tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txs, nil
}

func (t *sqlTx) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := t.writable(); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(ctx, queryInsertTransaction,
		tx.Id, tx.AccountId, tx.AccountEmail, string(tx.Kind), tx.Amount.String(), string(tx.Status),
		tx.Network, tx.Proof, store.TimeToMillis(tx.CreatedAt), store.TimeToMillis(tx.SettledAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		zap.L().Error("Failed to insert transaction", zap.String("transaction_id", tx.Id), zap.Error(err))
		return fmt.Errorf("unable to insert transaction: %w", err)
	}

	zap.L().Debug("Recorded transaction",
		zap.String("transaction_id", tx.Id),
		zap.String("account_id", tx.AccountId),
		zap.String("kind", string(tx.Kind)),
		zap.String("amount", tx.Amount.String()))
	return nil
}

func (t *sqlTx) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := t.writable(); err != nil {
		return err
	}

	result, err := t.tx.ExecContext(ctx, queryUpdateTransaction,
		string(tx.Status), store.TimeToMillis(tx.SettledAt), tx.Id)
	if err != nil {
		zap.L().Error("Failed to update transaction", zap.String("transaction_id", tx.Id), zap.Error(err))
		return fmt.Errorf("unable to update transaction: %w", err)
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
