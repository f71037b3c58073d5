package store

import (
	"context"
	"errors"
	"time"

	"cloud-mining-ledger-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicate              = errors.New("duplicate record")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrReadOnly               = errors.New("write attempted in read-only unit")
)

// Tx is the view of the persisted snapshot inside a single unit of work.
// Every mutation made through a Tx becomes visible atomically when the unit
// commits, or not at all.
type Tx interface {
	// --- Accounts ---
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	FindAccountByReferralCode(ctx context.Context, code string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	// UpsertAccount inserts when Version is 0, otherwise updates only if the
	// stored version still matches. Version is advanced on success.
	UpsertAccount(ctx context.Context, acct *models.Account) error
	DeleteAccount(ctx context.Context, id string) error
	// RekeyAccount moves an account to a new id, repointing children,
	// transactions, journal entries and the session slot.
	RekeyAccount(ctx context.Context, oldId, newId string) error

	// --- Transactions ---
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	// ListTransactions returns newest first; an empty accountId lists all.
	ListTransactions(ctx context.Context, accountId string) ([]models.Transaction, error)
	AppendTransaction(ctx context.Context, t *models.Transaction) error
	UpdateTransaction(ctx context.Context, t *models.Transaction) error

	// --- Journal ---
	AppendJournal(ctx context.Context, entries ...models.JournalEntry) error
	ListJournal(ctx context.Context, accountId string) ([]models.JournalEntry, error)

	// --- Session slot ---
	SessionAccountId(ctx context.Context) (string, error)
	SetSessionAccountId(ctx context.Context, id string) error
}

// LedgerStore defines the contract that every backend (SQLite, memory) must satisfy.
type LedgerStore interface {
	// Update runs fn as one exclusive read-modify-write unit.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent snapshot; writes fail with ErrReadOnly.
	View(ctx context.Context, fn func(tx Tx) error) error
	Close()
}

// MillisToTime converts the persisted unix-millis form back to a time, keeping
// 0 as the zero time.
func MillisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// TimeToMillis is the inverse of MillisToTime.
func TimeToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
