package formance

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"cloud-mining-ledger-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SyncAccount copies the profile fields of an account onto its mirror
// account as metadata.
func (s *Service) SyncAccount(ctx context.Context, acct *models.Account) error {
	addr := accountAddress(acct.Id)
	zap.L().Debug("Syncing account metadata to Formance", zap.String("address", addr))

	_, err := s.client.Ledger.V2.AddMetadataToAccount(ctx, operations.V2AddMetadataToAccountRequest{
		Ledger:      s.ledger,
		Address:     addr,
		RequestBody: accountMetadata(acct),
	})
	if err != nil {
		return fmt.Errorf("failed to sync account %s: %w", acct.Id, err)
	}
	return nil
}

// Balances returns the mirrored balances of an account. An account the
// mirror has never seen has zero balances.
func (s *Service) Balances(ctx context.Context, accountId string) (models.Balances, error) {
	addr := accountAddress(accountId)
	zap.L().Debug("Getting mirrored balances from Formance", zap.String("address", addr))

	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: addr,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if isNotFoundError(err) {
			return models.Balances{Primary: decimal.Zero, Secondary: decimal.Zero}, nil
		}
		return models.Balances{}, fmt.Errorf("failed to get account volumes: %w", err)
	}
	return volumesToBalances(resp.V2AccountResponse.Data.Volumes), nil
}

func accountMetadata(acct *models.Account) map[string]string {
	return map[string]string{
		"entity_type":   "end_user",
		"email":         acct.Email,
		"tier":          strconv.Itoa(acct.Tier),
		"blocked":       strconv.FormatBool(acct.Blocked),
		"referral_code": acct.ReferralCode,
		"referred_by":   acct.ReferredBy,
	}
}

func volumesToBalances(vols map[string]shared.V2Volume) models.Balances {
	b := models.Balances{Primary: decimal.Zero, Secondary: decimal.Zero}
	for fAsset := range vols {
		raw := volumeBalance(vols, fAsset)
		switch assetCurrency(fAsset) {
		case models.CurrencyPrimary:
			b.Primary = bigIntToDecimal(raw, models.CurrencyPrimary)
		case models.CurrencySecondary:
			b.Secondary = bigIntToDecimal(raw, models.CurrencySecondary)
		}
	}
	return b
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

// bigIntToDecimal converts a *big.Int in smallest-unit to a human-readable decimal.
func bigIntToDecimal(raw *big.Int, c models.Currency) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(precisionFor(c)))
}
