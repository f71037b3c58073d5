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

func (t *sqlTx) AppendJournal(ctx context.Context, entries ...models.JournalEntry) error {
	if err := t.writable(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	stmt, err := t.tx.PrepareContext(ctx, queryInsertJournalEntry)
	if err != nil {
		return fmt.Errorf("failed to prepare journal insert: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			zap.L().Warn("Failed to close journal statement", zap.Error(err))
		}
	}()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx, e.Id, e.Reference, e.AccountId, string(e.Currency),
			e.Amount.String(), e.EntryType, store.TimeToMillis(e.CreatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return store.ErrDuplicate
			}
			return fmt.Errorf("failed to insert journal entry %s: %w", e.Id, err)
		}
	}
	return nil
}

func (t *sqlTx) ListJournal(ctx context.Context, accountId string) ([]models.JournalEntry, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if accountId == "" {
		rows, err = t.tx.QueryContext(ctx, queryListAllJournal)
	} else {
		rows, err = t.tx.QueryContext(ctx, queryListAccountJournal, accountId)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query journal: %w", err)
	}
	defer closeRows(rows)

	var entries []models.JournalEntry
	for rows.Next() {
		var (
			e         models.JournalEntry
			amount    string
			createdAt int64
		)
		if err := rows.Scan(&e.Id, &e.Reference, &e.AccountId, &e.Currency, &amount, &e.EntryType, &createdAt); err != nil {
			return nil, fmt.Errorf("unable to scan journal row: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid journal amount for %s: %w", e.Id, err)
		}
		e.CreatedAt = store.MillisToTime(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal rows: %w", err)
	}
	return entries, nil
}

func (t *sqlTx) SessionAccountId(ctx context.Context) (string, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, queryGetSession, sessionSlot).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("unable to read session: %w", err)
	}
	return id, nil
}

// SetSessionAccountId stores the current session; an empty id clears it.
func (t *sqlTx) SetSessionAccountId(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	var err error
	if id == "" {
		_, err = t.tx.ExecContext(ctx, queryDeleteSession, sessionSlot)
	} else {
		_, err = t.tx.ExecContext(ctx, queryUpsertSession, sessionSlot, id)
	}
	if err != nil {
		return fmt.Errorf("unable to write session: %w", err)
	}
	return nil
}
