package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/domain/ports"
)

// MockShopDirectory implements ports.ShopDirectory.
type MockShopDirectory struct {
	mock.Mock
}

func (m *MockShopDirectory) IsManagerOf(ctx context.Context, userID, shopID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, shopID)
	return args.Bool(0), args.Error(1)
}

func (m *MockShopDirectory) IsApprover(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockShopDirectory) HasBackdateCapability(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockShopDirectory) ShopTimezone(ctx context.Context, shopID uuid.UUID) (string, error) {
	args := m.Called(ctx, shopID)
	return args.String(0), args.Error(1)
}

// FixedClock returns a constant time, keeping transition stamps deterministic.
type FixedClock struct {
	Time time.Time
}

func (c FixedClock) Now() time.Time { return c.Time }

// MockLeaderboardCache implements ports.LeaderboardCache.
type MockLeaderboardCache struct {
	mock.Mock
}

func (m *MockLeaderboardCache) Get(ctx context.Context, key string) ([]domain.LeaderboardRow, bool, error) {
	args := m.Called(ctx, key)
	if rows, ok := args.Get(0).([]domain.LeaderboardRow); ok {
		return rows, args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *MockLeaderboardCache) Set(ctx context.Context, key string, rows []domain.LeaderboardRow, ttl time.Duration) error {
	args := m.Called(ctx, key, rows, ttl)
	return args.Error(0)
}

// MockPointsRecorder satisfies the settlement and transfer services' points
// hooks.
type MockPointsRecorder struct {
	mock.Mock
}

func (m *MockPointsRecorder) AwardTimeliness(ctx context.Context, q ports.DBTX, s *domain.Settlement, submittedAt time.Time) error {
	args := m.Called(ctx, q, s, submittedAt)
	return args.Error(0)
}

func (m *MockPointsRecorder) AwardVarianceResolution(ctx context.Context, q ports.DBTX, v *domain.VarianceRecord, shopID, userID uuid.UUID, settlementDate time.Time) error {
	args := m.Called(ctx, q, v, shopID, userID, settlementDate)
	return args.Error(0)
}

func (m *MockPointsRecorder) AwardZeroVariance(ctx context.Context, q ports.DBTX, s *domain.Settlement) error {
	args := m.Called(ctx, q, s)
	return args.Error(0)
}

func (m *MockPointsRecorder) AwardTransferApproved(ctx context.Context, q ports.DBTX, t *domain.StockTransfer) error {
	args := m.Called(ctx, q, t)
	return args.Error(0)
}
