package ledger

import (
	"strings"
	"testing"

	"cloud-mining-ledger-go/internal/models"
	"cloud-mining-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_ReferralScenario(t *testing.T) {
	f := newFixture(t)

	a := f.register("a@example.com", "")
	assert.Empty(t, a.ReferredBy)
	assert.Equal(t, 0, a.ReferralCount)
	assert.Equal(t, 0, a.Tier)
	assert.True(t, a.Balances.Primary.IsZero())
	assert.True(t, a.Balances.Secondary.IsZero())
	assert.Len(t, a.ReferralCode, 6)

	b := f.register("b@example.com", " "+a.ReferralCode+" ")
	assert.Equal(t, a.Id, b.ReferredBy)
	assert.Equal(t, 1, f.account(a.Id).ReferralCount)

	team, err := f.svc.Team(f.ctx, a.Id)
	require.NoError(t, err)
	require.Len(t, team, 1)
	assert.Equal(t, b.Id, team[0].Id)

	f.checkInvariants()
}

func TestRegister_CodeIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	a := f.register("a@example.com", "")

	b := f.register("b@example.com", strings.ToLower(a.ReferralCode))
	assert.Equal(t, a.Id, b.ReferredBy)
}

func TestRegister_UnknownCodeIsIgnored(t *testing.T) {
	f := newFixture(t)
	acct := f.register("a@example.com", "NOPE00")
	assert.Empty(t, acct.ReferredBy)
	f.checkInvariants()
}

func TestRegister_EmailInUse(t *testing.T) {
	f := newFixture(t)
	f.register("a@example.com", "")

	_, err := f.svc.Register(f.ctx, "  A@Example.com ", "pw", "")
	assert.ErrorIs(t, err, ErrEmailInUse)

	_, err = f.svc.Register(f.ctx, "", "pw", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegister_StoresOnlyHash(t *testing.T) {
	f := newFixture(t)
	acct := f.register("a@example.com", "")
	assert.NotEmpty(t, acct.SecretHash)
	assert.NotContains(t, acct.SecretHash, "secret-a@example.com")
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	acct := f.register("a@example.com", "")
	require.NoError(t, f.svc.Logout(f.ctx))

	_, err := f.svc.Login(f.ctx, "missing@example.com", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Login(f.ctx, "a@example.com", "wrong")
	assert.ErrorIs(t, err, ErrIncorrectSecret)

	got, err := f.svc.Login(f.ctx, " A@EXAMPLE.COM", "secret-a@example.com")
	require.NoError(t, err)
	assert.Equal(t, acct.Id, got.Id)

	current, err := f.svc.CurrentAccount(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, acct.Id, current.Id)

	_, err = f.svc.ToggleBlock(f.ctx, testAdminId, acct.Id)
	require.NoError(t, err)
	_, err = f.svc.Login(f.ctx, "a@example.com", "secret-a@example.com")
	assert.ErrorIs(t, err, ErrAccountBlocked)
}

func TestCurrentAccount_ClearsBlockedSession(t *testing.T) {
	f := newFixture(t)
	acct := f.register("a@example.com", "")

	_, err := f.svc.ToggleBlock(f.ctx, testAdminId, acct.Id)
	require.NoError(t, err)

	_, err = f.svc.CurrentAccount(f.ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	// The session was cleared, so unblocking does not resurrect it
	_, err = f.svc.ToggleBlock(f.ctx, testAdminId, acct.Id)
	require.NoError(t, err)
	_, err = f.svc.CurrentAccount(f.ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogin_NormalizesAdministratorIdentity(t *testing.T) {
	f := newBareFixture(t, nil)

	hash, err := f.auth.HashSecret("admin-secret")
	require.NoError(t, err)

	// An administrator account created under a generated id, with a child
	// and some history.
	err = f.store.Update(f.ctx, func(tx store.Tx) error {
		if err := tx.UpsertAccount(f.ctx, &models.Account{
			Id: "legacy-admin", Email: testAdminEmail, SecretHash: hash,
			ReferralCode: "ADMIN1", ReferralCount: 1, JoinDate: f.clock.Now(),
		}); err != nil {
			return err
		}
		if err := tx.UpsertAccount(f.ctx, &models.Account{
			Id: "child", Email: "child@example.com", ReferralCode: "CHILD1",
			ReferredBy: "legacy-admin", JoinDate: f.clock.Now(),
		}); err != nil {
			return err
		}
		return tx.AppendTransaction(f.ctx, &models.Transaction{
			Id: "tx_1", AccountId: "legacy-admin", Kind: models.KindDeposit,
			Amount: decimal.NewFromInt(1), Status: models.StatusPending, CreatedAt: f.clock.Now(),
		})
	})
	require.NoError(t, err)

	admin, err := f.svc.Login(f.ctx, testAdminEmail, "admin-secret")
	require.NoError(t, err)
	assert.Equal(t, testAdminId, admin.Id)
	assert.Equal(t, 1, admin.ReferralCount)

	child := f.account("child")
	assert.Equal(t, testAdminId, child.ReferredBy)

	history, err := f.svc.History(f.ctx, testAdminId)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.svc.Account(f.ctx, "legacy-admin")
	assert.ErrorIs(t, err, ErrNotFound)

	current, err := f.svc.CurrentAccount(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, testAdminId, current.Id)

	f.checkInvariants()
}

func TestLogin_BackfillsReferralCode(t *testing.T) {
	f := newBareFixture(t, nil)
	hash, err := f.auth.HashSecret("pw")
	require.NoError(t, err)

	err = f.store.Update(f.ctx, func(tx store.Tx) error {
		return tx.UpsertAccount(f.ctx, &models.Account{Id: "old", Email: "old@example.com", SecretHash: hash, JoinDate: f.clock.Now()})
	})
	require.NoError(t, err)

	acct, err := f.svc.Login(f.ctx, "old@example.com", "pw")
	require.NoError(t, err)
	assert.Len(t, acct.ReferralCode, 6)
}

func TestChangeAndResetSecret(t *testing.T) {
	f := newFixture(t)
	acct := f.register("a@example.com", "")

	err := f.svc.ChangeSecret(f.ctx, acct.Id, "wrong", "new-secret")
	assert.ErrorIs(t, err, ErrIncorrectSecret)

	require.NoError(t, f.svc.ChangeSecret(f.ctx, acct.Id, "secret-a@example.com", "new-secret"))
	_, err = f.svc.Login(f.ctx, "a@example.com", "new-secret")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ResetSecret(f.ctx, "nobody@example.com", "x"), ErrNotFound)
	require.NoError(t, f.svc.ResetSecret(f.ctx, "A@example.com", "reset-secret"))
	_, err = f.svc.Login(f.ctx, "a@example.com", "reset-secret")
	require.NoError(t, err)
}

func TestSecretLongerThanBcryptLimit(t *testing.T) {
	f := newFixture(t)
	acct := f.register("a@example.com", "")
	long := strings.Repeat("s", 73)

	_, err := f.svc.Register(f.ctx, "b@example.com", long, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, f.svc.ChangeSecret(f.ctx, acct.Id, "secret-a@example.com", long), ErrInvalidInput)
	assert.ErrorIs(t, f.svc.ResetSecret(f.ctx, "a@example.com", long), ErrInvalidInput)

	_, err = f.svc.Register(f.ctx, "c@example.com", strings.Repeat("s", 72), "")
	assert.NoError(t, err)
}

func TestListAccounts_AdminOnly(t *testing.T) {
	f := newFixture(t)
	user := f.register("a@example.com", "")

	_, err := f.svc.ListAccounts(f.ctx, user.Id)
	assert.ErrorIs(t, err, ErrUnauthorized)

	accounts, err := f.svc.ListAccounts(f.ctx, testAdminId)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}
