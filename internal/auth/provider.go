package auth

import (
	"fmt"
	"strings"

	"cloud-mining-ledger-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Provider normalizes emails and owns the salted secret hash stored on accounts.
type Provider struct {
	cost int
}

// NewProvider returns a bcrypt-backed provider. Out-of-range costs fall back
// to bcrypt.DefaultCost.
func NewProvider(cost int) *Provider {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		zap.L().Warn("Invalid bcrypt cost, using default",
			zap.Int("cost", cost),
			zap.Int("default", bcrypt.DefaultCost))
		cost = bcrypt.DefaultCost
	}
	return &Provider{cost: cost}
}

// NormalizeEmail lowercases and trims an email so lookups are case and
// whitespace insensitive.
func (p *Provider) NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func (p *Provider) HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), p.cost)
	if err != nil {
		return "", fmt.Errorf("unable to hash secret: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether the supplied secret matches the account's stored hash.
func (p *Provider) Verify(acct *models.Account, supplied string) bool {
	if acct == nil || acct.SecretHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(acct.SecretHash), []byte(supplied)) == nil
}
