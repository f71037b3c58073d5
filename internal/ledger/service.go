package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud-mining-ledger-go/internal/metrics"
	"cloud-mining-ledger-go/internal/models"
	"cloud-mining-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AuthProvider owns email normalization and the opaque secret hash.
type AuthProvider interface {
	NormalizeEmail(raw string) string
	HashSecret(secret string) (string, error)
	Verify(acct *models.Account, supplied string) bool
}

// PriceSource supplies live quotes. Any error is treated as unavailable.
type PriceSource interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// JournalMirror receives the journal entries of every committed unit.
type JournalMirror interface {
	PostEntries(ctx context.Context, entries []models.JournalEntry) error
}

type Config struct {
	Store  store.LedgerStore
	Plans  models.PlanTable
	Auth   AuthProvider
	Prices PriceSource   // optional, nil quotes from the fallback table
	Mirror JournalMirror // optional
	Admin  models.AdminConfig
	Now    func() time.Time

	CommissionRate decimal.Decimal
	FreeYieldRate  decimal.Decimal
	Cooldown       time.Duration
	MinWithdrawal  decimal.Decimal
	MaxRetries     int
}

// Service is the account ledger and settlement engine. Every mutating
// operation runs as one store unit of work.
type Service struct {
	store  store.LedgerStore
	plans  models.PlanTable
	auth   AuthProvider
	prices PriceSource
	mirror JournalMirror
	admin  models.AdminConfig
	now    func() time.Time

	commissionRate decimal.Decimal
	freeYieldRate  decimal.Decimal
	cooldown       time.Duration
	minWithdrawal  decimal.Decimal
	maxRetries     int
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("ledger requires a store")
	}
	if cfg.Auth == nil {
		return nil, fmt.Errorf("ledger requires an auth provider")
	}
	if cfg.Admin.AccountId == "" || cfg.Admin.Email == "" {
		return nil, fmt.Errorf("ledger requires an administrator id and email")
	}
	if len(cfg.Plans) == 0 {
		return nil, fmt.Errorf("ledger requires a plan table")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 24 * time.Hour
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}

	admin := cfg.Admin
	admin.Email = cfg.Auth.NormalizeEmail(admin.Email)

	return &Service{
		store:          cfg.Store,
		plans:          cfg.Plans,
		auth:           cfg.Auth,
		prices:         cfg.Prices,
		mirror:         cfg.Mirror,
		admin:          admin,
		now:            cfg.Now,
		commissionRate: cfg.CommissionRate,
		freeYieldRate:  cfg.FreeYieldRate,
		cooldown:       cfg.Cooldown,
		minWithdrawal:  cfg.MinWithdrawal,
		maxRetries:     cfg.MaxRetries,
	}, nil
}

// Plans returns the static plan table.
func (s *Service) Plans() models.PlanTable {
	return s.plans
}

func (s *Service) HealthCheck(ctx context.Context) error {
	err := s.store.View(ctx, func(tx store.Tx) error {
		_, err := tx.SessionAccountId(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}
	return nil
}

// unit is the state of one operation inside a store transaction: the
// journal entries it produced and hooks to run once it has committed.
type unit struct {
	ctx     context.Context
	tx      store.Tx
	now     time.Time
	entries []models.JournalEntry
	after   []func()
}

// update runs fn as one atomic unit, retrying on optimistic lock conflicts.
func (s *Service) update(ctx context.Context, operation string, fn func(u *unit) error) error {
	start := time.Now()

	var (
		u   *unit
		err error
	)
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		u = &unit{ctx: ctx, now: s.now().UTC()}
		err = s.store.Update(ctx, func(tx store.Tx) error {
			u.tx = tx
			if err := fn(u); err != nil {
				return err
			}
			return tx.AppendJournal(ctx, u.entries...)
		})
		if !errors.Is(err, store.ErrConcurrentModification) {
			break
		}
		zap.L().Warn("Concurrent modification, retrying unit",
			zap.String("operation", operation),
			zap.Int("attempt", attempt))
	}

	metrics.ObserveOperation(operation, start, err)
	if err != nil {
		return err
	}

	s.afterCommit(ctx, operation, u)
	return nil
}

func (s *Service) view(ctx context.Context, fn func(u *unit) error) error {
	return s.store.View(ctx, func(tx store.Tx) error {
		return fn(&unit{ctx: ctx, tx: tx, now: s.now().UTC()})
	})
}

func (s *Service) afterCommit(ctx context.Context, operation string, u *unit) {
	if s.mirror != nil && len(u.entries) > 0 {
		if err := s.mirror.PostEntries(ctx, u.entries); err != nil {
			metrics.MirrorFailuresTotal.Inc()
			zap.L().Warn("Failed to mirror journal entries",
				zap.String("operation", operation),
				zap.Int("entries", len(u.entries)),
				zap.Error(err))
		}
	}
	for _, hook := range u.after {
		hook()
	}
}

// account loads an account, translating the store's not-found sentinel.
func (u *unit) account(id string) (*models.Account, error) {
	acct, err := u.tx.GetAccount(u.ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: account %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (u *unit) save(acct *models.Account) error {
	if err := u.tx.UpsertAccount(u.ctx, acct); err != nil {
		return fmt.Errorf("unable to save account %s: %w", acct.Id, err)
	}
	return nil
}

// move applies a signed delta to one balance and journals it.
func (u *unit) move(acct *models.Account, currency models.Currency, delta decimal.Decimal, reference, entryType string) {
	if delta.IsZero() {
		return
	}
	if currency == models.CurrencySecondary {
		acct.Balances.Secondary = acct.Balances.Secondary.Add(delta)
	} else {
		acct.Balances.Primary = acct.Balances.Primary.Add(delta)
	}
	u.entries = append(u.entries, models.JournalEntry{
		Id:        uuid.NewString(),
		Reference: reference,
		AccountId: acct.Id,
		Currency:  currency,
		Amount:    delta,
		EntryType: entryType,
		CreatedAt: u.now,
	})
}

func (u *unit) onCommit(hook func()) {
	u.after = append(u.after, hook)
}

func newReference(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), uuid.NewString()[:8])
}

func newTransactionId(now time.Time) string {
	return newReference("tx", now)
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

func normalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
