package ledger

import (
	"context"
	"errors"
	"fmt"

	"cloud-mining-ledger-go/internal/models"
	"cloud-mining-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxCodeAttempts = 10

	// bcrypt refuses secrets longer than this many bytes.
	maxSecretBytes = 72
)

func validateSecret(secret string) error {
	if len(secret) > maxSecretBytes {
		return fmt.Errorf("%w: secret exceeds %d bytes", ErrInvalidInput, maxSecretBytes)
	}
	return nil
}

// Register creates an account, links it to the owner of referralCode when
// the code resolves, and makes it the current session.
func (s *Service) Register(ctx context.Context, email, secret, referralCode string) (*models.Account, error) {
	email = s.auth.NormalizeEmail(email)
	if email == "" || secret == "" {
		return nil, fmt.Errorf("%w: email and secret are required", ErrInvalidInput)
	}
	if err := validateSecret(secret); err != nil {
		return nil, err
	}

	hash, err := s.auth.HashSecret(secret)
	if err != nil {
		return nil, err
	}

	var created *models.Account
	err = s.update(ctx, "register", func(u *unit) error {
		if _, err := u.tx.FindAccountByEmail(ctx, email); err == nil {
			return fmt.Errorf("%w: %s", ErrEmailInUse, email)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		id, err := s.newAccountId(u, email)
		if err != nil {
			return err
		}
		code, err := uniqueReferralCode(u)
		if err != nil {
			return err
		}

		acct := &models.Account{
			Id:           id,
			Email:        email,
			SecretHash:   hash,
			ReferralCode: code,
			JoinDate:     u.now,
		}
		if err := s.linkOnRegister(u, acct, referralCode); err != nil {
			return err
		}
		if err := u.save(acct); err != nil {
			return err
		}
		if err := u.tx.SetSessionAccountId(ctx, acct.Id); err != nil {
			return err
		}

		created = acct
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Registered account",
		zap.String("account_id", created.Id),
		zap.String("referred_by", created.ReferredBy))
	return created, nil
}

func (s *Service) newAccountId(u *unit, email string) (string, error) {
	if email != s.admin.Email {
		return uuid.NewString(), nil
	}
	if _, err := u.tx.GetAccount(u.ctx, s.admin.AccountId); err == nil {
		zap.L().Warn("Administrator id already taken, assigning a generated id",
			zap.String("admin_id", s.admin.AccountId))
		return uuid.NewString(), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	return s.admin.AccountId, nil
}

func uniqueReferralCode(u *unit) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := newReferralCode()
		_, err := u.tx.FindAccountByReferralCode(u.ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("unable to generate a unique referral code after %d attempts", maxCodeAttempts)
}

// Login verifies credentials and opens a session. The administrator's
// account is moved to the configured administrator id if it was created
// under another id.
func (s *Service) Login(ctx context.Context, email, secret string) (*models.Account, error) {
	email = s.auth.NormalizeEmail(email)

	var loggedIn *models.Account
	err := s.update(ctx, "login", func(u *unit) error {
		acct, err := u.tx.FindAccountByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: account %s", ErrNotFound, email)
		}
		if err != nil {
			return err
		}

		if !s.auth.Verify(acct, secret) {
			return ErrIncorrectSecret
		}
		if acct.Blocked {
			return ErrAccountBlocked
		}

		if acct.ReferralCode == "" {
			if acct.ReferralCode, err = uniqueReferralCode(u); err != nil {
				return err
			}
			if err := u.save(acct); err != nil {
				return err
			}
		}

		if acct.Email == s.admin.Email && acct.Id != s.admin.AccountId {
			if acct, err = s.normalizeAdminIdentity(u, acct); err != nil {
				return err
			}
		}

		if err := u.tx.SetSessionAccountId(ctx, acct.Id); err != nil {
			return err
		}
		loggedIn = acct
		return nil
	})
	if err != nil {
		zap.L().Info("Login rejected", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	zap.L().Info("Logged in", zap.String("account_id", loggedIn.Id))
	return loggedIn, nil
}

func (s *Service) normalizeAdminIdentity(u *unit, acct *models.Account) (*models.Account, error) {
	if _, err := u.tx.GetAccount(u.ctx, s.admin.AccountId); err == nil {
		zap.L().Warn("Administrator id held by another account, skipping identity normalization",
			zap.String("account_id", acct.Id))
		return acct, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if err := u.tx.RekeyAccount(u.ctx, acct.Id, s.admin.AccountId); err != nil {
		return nil, fmt.Errorf("unable to normalize administrator identity: %w", err)
	}
	zap.L().Info("Normalized administrator identity",
		zap.String("old_id", acct.Id),
		zap.String("new_id", s.admin.AccountId))
	return u.account(s.admin.AccountId)
}

func (s *Service) Logout(ctx context.Context) error {
	return s.update(ctx, "logout", func(u *unit) error {
		return u.tx.SetSessionAccountId(ctx, "")
	})
}

// CurrentAccount resolves the session. A session pointing at a missing or
// blocked account is cleared and reported as ErrNotFound.
func (s *Service) CurrentAccount(ctx context.Context) (*models.Account, error) {
	var (
		current *models.Account
		cleared bool
	)
	err := s.update(ctx, "current_account", func(u *unit) error {
		current, cleared = nil, false

		id, err := u.tx.SessionAccountId(ctx)
		if err != nil || id == "" {
			return err
		}

		acct, err := u.tx.GetAccount(ctx, id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if acct == nil || acct.Blocked {
			cleared = true
			return u.tx.SetSessionAccountId(ctx, "")
		}
		current = acct
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cleared {
		zap.L().Info("Cleared stale session")
	}
	if current == nil {
		return nil, fmt.Errorf("%w: no active session", ErrNotFound)
	}
	return current, nil
}

// ChangeSecret replaces the secret after checking the old one. Accounts that
// never had a secret accept any old value.
func (s *Service) ChangeSecret(ctx context.Context, id, oldSecret, newSecret string) error {
	if newSecret == "" {
		return fmt.Errorf("%w: new secret is required", ErrInvalidInput)
	}
	if err := validateSecret(newSecret); err != nil {
		return err
	}
	hash, err := s.auth.HashSecret(newSecret)
	if err != nil {
		return err
	}

	return s.update(ctx, "change_secret", func(u *unit) error {
		acct, err := u.account(id)
		if err != nil {
			return err
		}
		if acct.SecretHash != "" && !s.auth.Verify(acct, oldSecret) {
			return ErrIncorrectSecret
		}
		acct.SecretHash = hash
		return u.save(acct)
	})
}

func (s *Service) ResetSecret(ctx context.Context, email, newSecret string) error {
	email = s.auth.NormalizeEmail(email)
	if newSecret == "" {
		return fmt.Errorf("%w: new secret is required", ErrInvalidInput)
	}
	if err := validateSecret(newSecret); err != nil {
		return err
	}
	hash, err := s.auth.HashSecret(newSecret)
	if err != nil {
		return err
	}

	return s.update(ctx, "reset_secret", func(u *unit) error {
		acct, err := u.tx.FindAccountByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: account %s", ErrNotFound, email)
		}
		if err != nil {
			return err
		}
		acct.SecretHash = hash
		return u.save(acct)
	})
}

func (s *Service) Account(ctx context.Context, id string) (*models.Account, error) {
	var acct *models.Account
	err := s.view(ctx, func(u *unit) error {
		var err error
		acct, err = u.account(id)
		return err
	})
	return acct, err
}

func (s *Service) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	email = s.auth.NormalizeEmail(email)

	var acct *models.Account
	err := s.view(ctx, func(u *unit) error {
		var err error
		acct, err = u.tx.FindAccountByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: account %s", ErrNotFound, email)
		}
		return err
	})
	return acct, err
}

// ListAccounts returns every account in join order. Administrator only.
func (s *Service) ListAccounts(ctx context.Context, adminId string) ([]models.Account, error) {
	var accounts []models.Account
	err := s.view(ctx, func(u *unit) error {
		if _, err := s.requireAdmin(u, adminId); err != nil {
			return err
		}
		var err error
		accounts, err = u.tx.ListAccounts(ctx)
		return err
	})
	return accounts, err
}
