package auth

import (
	"errors"
	"testing"
	"time"

	"cloud-mining-ledger-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNormalizeEmail(t *testing.T) {
	p := NewProvider(bcrypt.MinCost)
	assert.Equal(t, "user@example.com", p.NormalizeEmail("  User@Example.COM\t"))
}

func TestHashAndVerify(t *testing.T) {
	p := NewProvider(bcrypt.MinCost)

	hash, err := p.HashSecret("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash, "raw secret must never be stored")

	acct := &models.Account{SecretHash: hash}
	assert.True(t, p.Verify(acct, "hunter2"))
	assert.False(t, p.Verify(acct, "hunter3"))
	assert.False(t, p.Verify(&models.Account{}, ""))
	assert.False(t, p.Verify(nil, "hunter2"))
}

func TestNewProvider_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewProvider(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewProvider(99).cost)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("s3cret", "cloud-mining-ledger", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue("acct-1")
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.AccountId)
	assert.Equal(t, "cloud-mining-ledger", claims.Issuer)
}

func TestTokenIssuer_RejectsExpiredAndForeign(t *testing.T) {
	issuer, err := NewTokenIssuer("s3cret", "cloud-mining-ledger", time.Hour)
	require.NoError(t, err)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return base }
	token, err := issuer.Issue("acct-1")
	require.NoError(t, err)

	issuer.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = issuer.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken), "expired token should be rejected, got %v", err)

	other, err := NewTokenIssuer("different", "cloud-mining-ledger", time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue("acct-1")
	require.NoError(t, err)
	issuer.now = time.Now
	_, err = issuer.Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuer_Validation(t *testing.T) {
	_, err := NewTokenIssuer("", "x", time.Hour)
	assert.Error(t, err)
	_, err = NewTokenIssuer("s", "x", 0)
	assert.Error(t, err)
}
