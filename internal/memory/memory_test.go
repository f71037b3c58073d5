package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud-mining-ledger-go/internal/models"
	"cloud-mining-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

func seedAccount(t *testing.T, s *Store, id, email, code string) {
	t.Helper()
	err := s.Update(context.Background(), func(tx store.Tx) error {
		return tx.UpsertAccount(context.Background(), &models.Account{
			Id:           id,
			Email:        email,
			ReferralCode: code,
			JoinDate:     time.Now(),
		})
	})
	if err != nil {
		t.Fatalf("Failed to seed account %s: %v", id, err)
	}
}

func TestUpdate_FailedUnitLeavesNoTrace(t *testing.T) {
	s := New()
	seedAccount(t, s, "a1", "a@example.com", "AAAAAA")
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Update(ctx, func(tx store.Tx) error {
		acct, err := tx.GetAccount(ctx, "a1")
		if err != nil {
			return err
		}
		acct.Balances.Primary = decimal.NewFromInt(100)
		if err := tx.UpsertAccount(ctx, acct); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	_ = s.View(ctx, func(tx store.Tx) error {
		acct, err := tx.GetAccount(ctx, "a1")
		if err != nil {
			t.Fatalf("GetAccount failed: %v", err)
		}
		if !acct.Balances.Primary.IsZero() {
			t.Errorf("Expected rolled back balance 0, got %s", acct.Balances.Primary)
		}
		return nil
	})
}

func TestUpsertAccount_VersionCheck(t *testing.T) {
	s := New()
	seedAccount(t, s, "a1", "a@example.com", "AAAAAA")
	ctx := context.Background()

	err := s.Update(ctx, func(tx store.Tx) error {
		stale := &models.Account{Id: "a1", Email: "a@example.com", Version: 7}
		return tx.UpsertAccount(ctx, stale)
	})
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Errorf("Expected concurrent modification, got %v", err)
	}

	err = s.Update(ctx, func(tx store.Tx) error {
		return tx.UpsertAccount(ctx, &models.Account{Id: "a2", Email: "a@example.com"})
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("Expected duplicate email error, got %v", err)
	}
}

func TestView_IsReadOnly(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.View(ctx, func(tx store.Tx) error {
		return tx.SetSessionAccountId(ctx, "a1")
	})
	if !errors.Is(err, store.ErrReadOnly) {
		t.Errorf("Expected read-only error, got %v", err)
	}
}

func TestRekeyAccount_RepointsChildrenAndHistory(t *testing.T) {
	s := New()
	seedAccount(t, s, "old", "admin@example.com", "PARENT")
	ctx := context.Background()

	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.UpsertAccount(ctx, &models.Account{Id: "kid", Email: "kid@example.com", ReferralCode: "KIDKID", ReferredBy: "old"}); err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, &models.Transaction{Id: "tx1", AccountId: "old", CreatedAt: time.Now()}); err != nil {
			return err
		}
		if err := tx.SetSessionAccountId(ctx, "old"); err != nil {
			return err
		}
		return tx.RekeyAccount(ctx, "old", "admin")
	})
	if err != nil {
		t.Fatalf("Rekey unit failed: %v", err)
	}

	_ = s.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetAccount(ctx, "old"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected old id to be gone, got %v", err)
		}
		kid, _ := tx.GetAccount(ctx, "kid")
		if kid.ReferredBy != "admin" {
			t.Errorf("Expected child to point at admin, got %q", kid.ReferredBy)
		}
		txs, _ := tx.ListTransactions(ctx, "admin")
		if len(txs) != 1 {
			t.Errorf("Expected 1 transaction under new id, got %d", len(txs))
		}
		session, _ := tx.SessionAccountId(ctx)
		if session != "admin" {
			t.Errorf("Expected session to follow rekey, got %q", session)
		}
		return nil
	})
}

func TestListTransactions_NewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = s.Update(ctx, func(tx store.Tx) error {
		for i, id := range []string{"t1", "t2", "t3"} {
			_ = tx.AppendTransaction(ctx, &models.Transaction{Id: id, AccountId: "a", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		}
		return nil
	})

	_ = s.View(ctx, func(tx store.Tx) error {
		txs, _ := tx.ListTransactions(ctx, "")
		if len(txs) != 3 || txs[0].Id != "t3" || txs[2].Id != "t1" {
			t.Errorf("Unexpected order: %+v", txs)
		}
		return nil
	})
}
