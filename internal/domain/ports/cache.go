package ports

import (
	"context"
	"time"

	"github.com/poultryops/settlement-service/internal/domain"
)

// LeaderboardCache is an optional read-through cache for leaderboard queries,
// which back a frequently polled dashboard widget.
type LeaderboardCache interface {
	Get(ctx context.Context, key string) ([]domain.LeaderboardRow, bool, error)
	Set(ctx context.Context, key string, rows []domain.LeaderboardRow, ttl time.Duration) error
}

// NoopLeaderboardCache is used when no cache backend is configured
type NoopLeaderboardCache struct{}

func (NoopLeaderboardCache) Get(_ context.Context, _ string) ([]domain.LeaderboardRow, bool, error) {
	return nil, false, nil
}

func (NoopLeaderboardCache) Set(_ context.Context, _ string, _ []domain.LeaderboardRow, _ time.Duration) error {
	return nil
}
