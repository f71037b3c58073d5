package ledger

import (
	"context"
	"sort"

	"cloud-mining-ledger-go/internal/models"
)

const defaultLeaderboardSize = 10

// Leaderboard ranks accounts by cumulative yield. Ids are masked.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}

	var accounts []models.Account
	err := s.view(ctx, func(u *unit) error {
		var err error
		accounts, err = u.tx.ListAccounts(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		if c := accounts[i].TotalEarned.Cmp(accounts[j].TotalEarned); c != 0 {
			return c > 0
		}
		return accounts[i].JoinDate.Before(accounts[j].JoinDate)
	})

	if len(accounts) > limit {
		accounts = accounts[:limit]
	}
	entries := make([]models.LeaderboardEntry, len(accounts))
	for i, acct := range accounts {
		entries[i] = models.LeaderboardEntry{
			Rank:        i + 1,
			AccountId:   maskId(acct.Id),
			TotalEarned: acct.TotalEarned,
			Tier:        acct.Tier,
		}
	}
	return entries, nil
}

func maskId(id string) string {
	if len(id) <= 5 {
		return "user_" + id
	}
	return "user_" + id[:3] + "..." + id[len(id)-2:]
}
