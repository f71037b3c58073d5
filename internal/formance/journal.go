package formance

import (
	"context"
	"errors"
	"fmt"

	"cloud-mining-ledger-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// Numscript templates. Every journal entry moves value between the account
// and the platform account named after the entry type, so the platform side
// of the mirror always nets against the sum of user balances.

const numscriptCredit = `vars {
  asset $asset
  number $amount
  account $account_id
  account $entry_type
  string $kind
  string $journal_reference
  string $amount_human
}

send [$asset $amount] (
  source = @platform:$entry_type allowing unbounded overdraft
  destination = @users:$account_id
)

set_tx_meta("event_type", $kind)
set_tx_meta("journal_reference", $journal_reference)
set_tx_meta("amount_human", $amount_human)
`

const numscriptDebit = `vars {
  asset $asset
  number $amount
  account $account_id
  account $entry_type
  string $kind
  string $journal_reference
  string $amount_human
}

send [$asset $amount] (
  source = @users:$account_id allowing unbounded overdraft
  destination = @platform:$entry_type
)

set_tx_meta("event_type", $kind)
set_tx_meta("journal_reference", $journal_reference)
set_tx_meta("amount_human", $amount_human)
`

// PostEntries posts each entry as its own Formance transaction, keyed by the
// entry id so a retried post is recognized as a duplicate and skipped.
func (s *Service) PostEntries(ctx context.Context, entries []models.JournalEntry) error {
	var errs []error
	for _, entry := range entries {
		if err := s.postEntry(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) postEntry(ctx context.Context, entry models.JournalEntry) error {
	postTx, ok := buildPostTransaction(entry)
	if !ok {
		zap.L().Debug("Skipping journal entry below mirror precision",
			zap.String("entry_id", entry.Id),
			zap.String("currency", string(entry.Currency)),
			zap.String("amount", entry.Amount.String()))
		return nil
	}

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Journal entry already mirrored", zap.String("entry_id", entry.Id))
			return nil
		}
		return fmt.Errorf("error mirroring journal entry %s: %w", entry.Id, err)
	}

	zap.L().Debug("Journal entry mirrored",
		zap.String("entry_id", entry.Id),
		zap.String("account_id", entry.AccountId),
		zap.String("entry_type", entry.EntryType),
		zap.String("amount", entry.Amount.String()))
	return nil
}

// buildPostTransaction converts a journal entry to a Numscript posting. It
// reports false when the amount rounds to zero at the currency's precision.
func buildPostTransaction(entry models.JournalEntry) (shared.V2PostTransaction, bool) {
	smallAmt := entry.Amount.Abs().Shift(int32(precisionFor(entry.Currency))).BigInt()
	if smallAmt.Sign() == 0 {
		return shared.V2PostTransaction{}, false
	}

	script := numscriptCredit
	if entry.Amount.IsNegative() {
		script = numscriptDebit
	}

	createdAt := entry.CreatedAt
	return shared.V2PostTransaction{
		Reference: strPtr(entry.Id),
		Timestamp: &createdAt,
		Script: &shared.V2PostTransactionScript{
			Plain: script,
			Vars: map[string]string{
				"asset":             formanceAsset(entry.Currency),
				"amount":            smallAmt.String(),
				"account_id":        entry.AccountId,
				"entry_type":        entry.EntryType,
				"kind":              entry.EntryType,
				"journal_reference": entry.Reference,
				"amount_human":      entry.Amount.String(),
			},
		},
	}, true
}
