package memory

import (
	"context"
	"sort"
	"sync"

	"cloud-mining-ledger-go/internal/models"
	"cloud-mining-ledger-go/internal/store"

	"go.uber.org/zap"
)

// Compile-time check: *Store must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Store)(nil)

// Store is a mutex-guarded in-process snapshot. Update works on a deep copy
// and swaps it in only when the unit succeeds, so a failed unit leaves no trace.
type Store struct {
	mu   sync.Mutex
	snap *snapshot
}

type snapshot struct {
	accounts     map[string]models.Account
	transactions []models.Transaction
	journal      []models.JournalEntry
	session      string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{snap: &snapshot{accounts: make(map[string]models.Account)}}
}

func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.snap.clone()
	if err := fn(&memTx{snap: working}); err != nil {
		zap.L().Debug("Discarding in-memory unit", zap.Error(err))
		return err
	}
	s.snap = working
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memTx{snap: s.snap, readOnly: true})
}

// Close is a no-op for the memory backend.
func (s *Store) Close() {}

func (sn *snapshot) clone() *snapshot {
	c := &snapshot{
		accounts:     make(map[string]models.Account, len(sn.accounts)),
		transactions: make([]models.Transaction, len(sn.transactions)),
		journal:      make([]models.JournalEntry, len(sn.journal)),
		session:      sn.session,
	}
	for id, a := range sn.accounts {
		c.accounts[id] = a
	}
	copy(c.transactions, sn.transactions)
	copy(c.journal, sn.journal)
	return c
}

type memTx struct {
	snap     *snapshot
	readOnly bool
}

func (t *memTx) writable() error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	return nil
}

func (t *memTx) GetAccount(_ context.Context, id string) (*models.Account, error) {
	a, ok := t.snap.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (t *memTx) FindAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	for _, a := range t.snap.accounts {
		if a.Email == email {
			found := a
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *memTx) FindAccountByReferralCode(_ context.Context, code string) (*models.Account, error) {
	if code == "" {
		return nil, store.ErrNotFound
	}
	for _, a := range t.snap.accounts {
		if a.ReferralCode == code {
			found := a
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *memTx) ListAccounts(_ context.Context) ([]models.Account, error) {
	accounts := make([]models.Account, 0, len(t.snap.accounts))
	for _, a := range t.snap.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].JoinDate.Equal(accounts[j].JoinDate) {
			return accounts[i].Id < accounts[j].Id
		}
		return accounts[i].JoinDate.Before(accounts[j].JoinDate)
	})
	return accounts, nil
}

func (t *memTx) UpsertAccount(_ context.Context, acct *models.Account) error {
	if err := t.writable(); err != nil {
		return err
	}

	existing, ok := t.snap.accounts[acct.Id]
	switch {
	case acct.Version == 0 && ok:
		return store.ErrDuplicate
	case acct.Version != 0 && !ok:
		return store.ErrNotFound
	case ok && existing.Version != acct.Version:
		return store.ErrConcurrentModification
	}

	for id, other := range t.snap.accounts {
		if id == acct.Id {
			continue
		}
		if other.Email == acct.Email || (acct.ReferralCode != "" && other.ReferralCode == acct.ReferralCode) {
			return store.ErrDuplicate
		}
	}

	acct.Version++
	t.snap.accounts[acct.Id] = *acct
	return nil
}

func (t *memTx) DeleteAccount(_ context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.snap.accounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.snap.accounts, id)
	return nil
}

func (t *memTx) RekeyAccount(_ context.Context, oldId, newId string) error {
	if err := t.writable(); err != nil {
		return err
	}
	a, ok := t.snap.accounts[oldId]
	if !ok {
		return store.ErrNotFound
	}
	if _, taken := t.snap.accounts[newId]; taken {
		return store.ErrDuplicate
	}

	delete(t.snap.accounts, oldId)
	a.Id = newId
	a.Version++
	t.snap.accounts[newId] = a

	for id, child := range t.snap.accounts {
		if child.ReferredBy == oldId {
			child.ReferredBy = newId
			child.Version++
			t.snap.accounts[id] = child
		}
	}
	for i := range t.snap.transactions {
		if t.snap.transactions[i].AccountId == oldId {
			t.snap.transactions[i].AccountId = newId
		}
	}
	for i := range t.snap.journal {
		if t.snap.journal[i].AccountId == oldId {
			t.snap.journal[i].AccountId = newId
		}
	}
	if t.snap.session == oldId {
		t.snap.session = newId
	}
	return nil
}

func (t *memTx) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	for _, tx := range t.snap.transactions {
		if tx.Id == id {
			found := tx
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *memTx) ListTransactions(_ context.Context, accountId string) ([]models.Transaction, error) {
	var txs []models.Transaction
	for _, tx := range t.snap.transactions {
		if accountId == "" || tx.AccountId == accountId {
			txs = append(txs, tx)
		}
	}
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].Id > txs[j].Id
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	return txs, nil
}

func (t *memTx) AppendTransaction(_ context.Context, tx *models.Transaction) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, existing := range t.snap.transactions {
		if existing.Id == tx.Id {
			return store.ErrDuplicate
		}
	}
	t.snap.transactions = append(t.snap.transactions, *tx)
	return nil
}

func (t *memTx) UpdateTransaction(_ context.Context, tx *models.Transaction) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i := range t.snap.transactions {
		if t.snap.transactions[i].Id == tx.Id {
			t.snap.transactions[i] = *tx
			return nil
		}
	}
	return store.ErrNotFound
}

func (t *memTx) AppendJournal(_ context.Context, entries ...models.JournalEntry) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.snap.journal = append(t.snap.journal, entries...)
	return nil
}

func (t *memTx) ListJournal(_ context.Context, accountId string) ([]models.JournalEntry, error) {
	var entries []models.JournalEntry
	for _, e := range t.snap.journal {
		if accountId == "" || e.AccountId == accountId {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (t *memTx) SessionAccountId(_ context.Context) (string, error) {
	return t.snap.session, nil
}

func (t *memTx) SetSessionAccountId(_ context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.snap.session = id
	return nil
}
