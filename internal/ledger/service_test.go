package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud-mining-ledger-go/internal/auth"
	"cloud-mining-ledger-go/internal/config"
	"cloud-mining-ledger-go/internal/memory"
	"cloud-mining-ledger-go/internal/models"
	"cloud-mining-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAdminId    = "uid3026"
	testAdminEmail = "admin@example.com"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	svc   *Service
	store store.LedgerStore
	clock *clock
	auth  *auth.Provider
}

func testConfig(st store.LedgerStore, clk *clock, provider *auth.Provider) Config {
	return Config{
		Store:          st,
		Plans:          config.DefaultPlans(),
		Auth:           provider,
		Admin:          models.AdminConfig{AccountId: testAdminId, Email: testAdminEmail},
		Now:            clk.Now,
		CommissionRate: decimal.RequireFromString("0.05"),
		FreeYieldRate:  decimal.RequireFromString("0.0000000001"),
		Cooldown:       24 * time.Hour,
		MinWithdrawal:  decimal.NewFromInt(2),
		MaxRetries:     3,
	}
}

// newBareFixture builds a service without registering the administrator.
func newBareFixture(t *testing.T, st store.LedgerStore, mutate ...func(*Config)) *fixture {
	t.Helper()
	if st == nil {
		st = memory.New()
	}
	clk := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	provider := auth.NewProvider(bcrypt.MinCost)

	cfg := testConfig(st, clk, provider)
	for _, m := range mutate {
		m(&cfg)
	}
	svc, err := NewService(cfg)
	require.NoError(t, err)

	return &fixture{t: t, ctx: context.Background(), svc: svc, store: st, clock: clk, auth: provider}
}

// newFixture builds a service with the administrator registered.
func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()
	f := newBareFixture(t, nil, mutate...)
	admin, err := f.svc.Register(f.ctx, testAdminEmail, "admin-secret", "")
	require.NoError(t, err)
	require.Equal(t, testAdminId, admin.Id)
	return f
}

func (f *fixture) register(email, code string) *models.Account {
	f.t.Helper()
	acct, err := f.svc.Register(f.ctx, email, "secret-"+email, code)
	require.NoError(f.t, err)
	return acct
}

func (f *fixture) account(id string) *models.Account {
	f.t.Helper()
	acct, err := f.svc.Account(f.ctx, id)
	require.NoError(f.t, err)
	return acct
}

// fund credits an account through an approved deposit.
func (f *fixture) fund(id string, amount int64) {
	f.t.Helper()
	rec, err := f.svc.Request(f.ctx, id, models.KindDeposit, decimal.NewFromInt(amount), "TRC20", "0xfund")
	require.NoError(f.t, err)
	_, err = f.svc.Settle(f.ctx, testAdminId, rec.Id, models.StatusApproved)
	require.NoError(f.t, err)
}

// checkInvariants asserts non-negative balances, consistent referral counts
// and a balanced journal for every account.
func (f *fixture) checkInvariants() {
	f.t.Helper()
	accounts, err := f.svc.ListAccounts(f.ctx, testAdminId)
	require.NoError(f.t, err)

	children := make(map[string]int)
	for _, acct := range accounts {
		if acct.ReferredBy != "" {
			children[acct.ReferredBy]++
		}
	}
	for _, acct := range accounts {
		assert.False(f.t, acct.Balances.Primary.IsNegative(), "primary balance of %s is negative", acct.Id)
		assert.False(f.t, acct.Balances.Secondary.IsNegative(), "secondary balance of %s is negative", acct.Id)
		assert.Equal(f.t, children[acct.Id], acct.ReferralCount, "referral count of %s", acct.Id)
	}

	_, err = f.svc.Reconcile(f.ctx, testAdminId, "")
	assert.NoError(f.t, err)
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)

	_, err = NewService(Config{Store: memory.New(), Auth: auth.NewProvider(bcrypt.MinCost)})
	assert.Error(t, err, "admin identity is required")
}

// flakyStore fails the first n units with a concurrent modification.
type flakyStore struct {
	store.LedgerStore
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *flakyStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	s.calls++
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()

	if fail {
		return store.ErrConcurrentModification
	}
	return s.LedgerStore.Update(ctx, fn)
}

func TestUpdate_RetriesConcurrentModification(t *testing.T) {
	flaky := &flakyStore{LedgerStore: memory.New()}
	f := newBareFixture(t, flaky)

	flaky.failures = 2
	acct, err := f.svc.Register(f.ctx, "retry@example.com", "pw", "")
	require.NoError(t, err)
	assert.Equal(t, 3, flaky.calls)
	assert.Equal(t, "retry@example.com", f.account(acct.Id).Email)

	flaky.failures = 3
	_, err = f.svc.Register(f.ctx, "gives-up@example.com", "pw", "")
	assert.ErrorIs(t, err, store.ErrConcurrentModification)
}

type recordingMirror struct {
	mu      sync.Mutex
	batches [][]models.JournalEntry
	err     error
}

func (m *recordingMirror) PostEntries(_ context.Context, entries []models.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, entries)
	return m.err
}

func TestMirror_ReceivesCommittedEntriesOnly(t *testing.T) {
	mirror := &recordingMirror{}
	f := newFixture(t, func(c *Config) { c.Mirror = mirror })
	user := f.register("user@example.com", "")

	f.fund(user.Id, 100)
	require.Len(t, mirror.batches, 1, "only the approval moves balances")
	assert.Equal(t, models.EntryDeposit, mirror.batches[0][0].EntryType)
	assert.True(t, mirror.batches[0][0].Amount.Equal(decimal.NewFromInt(100)))

	_, err := f.svc.Request(f.ctx, user.Id, models.KindWithdraw, decimal.NewFromInt(500), "TRC20", "addr")
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Len(t, mirror.batches, 1, "failed units are not mirrored")
}

func TestMirror_FailureDoesNotFailOperation(t *testing.T) {
	mirror := &recordingMirror{err: errors.New("stack down")}
	f := newFixture(t, func(c *Config) { c.Mirror = mirror })
	user := f.register("user@example.com", "")

	f.fund(user.Id, 10)
	assert.True(t, f.account(user.Id).Balances.Primary.Equal(decimal.NewFromInt(10)))
}

func TestHealthCheck(t *testing.T) {
	f := newBareFixture(t, memory.New())
	assert.NoError(t, f.svc.HealthCheck(f.ctx))

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()
	assert.Error(t, f.svc.HealthCheck(ctx))
}
