package points

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/domain/ports"
	"github.com/poultryops/settlement-service/internal/testutil/mocks"
)

type engineFixture struct {
	db          *mocks.MockDB
	points      *mocks.MockPointsRepository
	variances   *mocks.MockVarianceRepository
	settlements *mocks.MockSettlementRepository
	directory   *mocks.MockShopDirectory
	cache       *mocks.MockLeaderboardCache
	clock       mocks.FixedClock
	engine      *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		db:          mocks.NewMockDB(),
		points:      &mocks.MockPointsRepository{},
		variances:   &mocks.MockVarianceRepository{},
		settlements: &mocks.MockSettlementRepository{},
		directory:   &mocks.MockShopDirectory{},
		cache:       &mocks.MockLeaderboardCache{},
		clock:       mocks.FixedClock{Time: time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)},
	}
	f.engine = NewEngine(f.db, f.points, f.variances, f.settlements, f.directory, f.cache, f.clock, zap.NewNop())
	return f
}

func (f *engineFixture) expectDefaults() {
	f.points.On("ConfigOverrides", mock.Anything, mock.Anything).Return(map[string]int{}, nil)
}

func (f *engineFixture) captureInsert(inserted bool) *[]*domain.StaffPointsEntry {
	var entries []*domain.StaffPointsEntry
	f.points.On("Insert", mock.Anything, mock.Anything, mock.AnythingOfType("*domain.StaffPointsEntry")).
		Run(func(args mock.Arguments) {
			entries = append(entries, args.Get(2).(*domain.StaffPointsEntry))
		}).Return(inserted, nil)
	return &entries
}

func TestConfig_MergesOverrides(t *testing.T) {
	f := newEngineFixture(t)
	f.points.On("ConfigOverrides", mock.Anything, mock.Anything).Return(map[string]int{
		"zero_variance_bonus":     10,
		"negative_penalty_per_kg": -4,
	}, nil)

	cfg := f.engine.Config(context.Background(), nil)
	assert.Equal(t, 10, cfg.ZeroVarianceBonus)
	assert.Equal(t, -4, cfg.NegativePenaltyPerKg)
	// untouched keys keep defaults
	assert.Equal(t, 3, cfg.PositiveVarianceBonus)
	assert.Equal(t, 3, cfg.RepeatedNegativeWindow)
}

func TestConfig_ReadFailureFallsBack(t *testing.T) {
	f := newEngineFixture(t)
	f.points.On("ConfigOverrides", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	cfg := f.engine.Config(context.Background(), nil)
	assert.Equal(t, domain.DefaultPointsConfig(), cfg)
}

func TestAwardTimeliness_OnTime(t *testing.T) {
	f := newEngineFixture(t)
	f.expectDefaults()

	submitter := uuid.New()
	s := &domain.Settlement{
		ID:             uuid.New(),
		ShopID:         uuid.New(),
		SettlementDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		SubmittedBy:    &submitter,
	}
	f.directory.On("ShopTimezone", mock.Anything, s.ShopID).Return("Asia/Kolkata", nil)
	entries := f.captureInsert(true)

	// 12:00 UTC is 17:30 the same day in Kolkata
	submittedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	err := f.engine.AwardTimeliness(context.Background(), nil, s, submittedAt)
	require.NoError(t, err)

	require.Len(t, *entries, 1)
	entry := (*entries)[0]
	assert.Equal(t, domain.PointsReasonOnTimeSubmission, entry.Reason)
	assert.Equal(t, 2, entry.PointsChange)
	assert.Equal(t, submitter, entry.UserID)
	assert.Equal(t, s.ID, entry.RefID)
	assert.Equal(t, domain.PointsRefTypeSettlement, entry.RefType)
}

func TestAwardTimeliness_LateInShopTimezone(t *testing.T) {
	f := newEngineFixture(t)
	f.expectDefaults()

	submitter := uuid.New()
	s := &domain.Settlement{
		ID:             uuid.New(),
		ShopID:         uuid.New(),
		SettlementDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		SubmittedBy:    &submitter,
	}
	f.directory.On("ShopTimezone", mock.Anything, s.ShopID).Return("Asia/Kolkata", nil)
	entries := f.captureInsert(true)

	// 19:00 UTC is already 00:30 on the 11th in Kolkata
	submittedAt := time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)
	err := f.engine.AwardTimeliness(context.Background(), nil, s, submittedAt)
	require.NoError(t, err)

	require.Len(t, *entries, 1)
	assert.Equal(t, domain.PointsReasonLateSubmission, (*entries)[0].Reason)
	assert.Equal(t, -3, (*entries)[0].PointsChange)
}

func TestAwardVarianceResolution(t *testing.T) {
	shopID := uuid.New()
	userID := uuid.New()
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		variance   *domain.VarianceRecord
		wantInsert bool
		wantPoints int
		wantReason domain.PointsReason
	}{
		{
			name: "positive stock variance credits the bonus",
			variance: &domain.VarianceRecord{
				ID:            uuid.New(),
				Category:      domain.VarianceCategoryStock,
				InventoryType: domain.InventoryTypeSkinless,
				VarianceType:  domain.VarianceTypePositive,
				Magnitude:     decimal.RequireFromString("1.200"),
			},
			wantInsert: true,
			wantPoints: 3,
			wantReason: domain.PointsReasonPositiveVarianceBonus,
		},
		{
			name: "negative stock variance penalizes per started kg",
			variance: &domain.VarianceRecord{
				ID:            uuid.New(),
				Category:      domain.VarianceCategoryStock,
				InventoryType: domain.InventoryTypeSkin,
				VarianceType:  domain.VarianceTypeNegative,
				Magnitude:     decimal.RequireFromString("2.300"),
			},
			wantInsert: true,
			wantPoints: -24,
			wantReason: domain.PointsReasonNegativeVariancePenalty,
		},
		{
			name: "negative cash variance charges one kg equivalent",
			variance: &domain.VarianceRecord{
				ID:           uuid.New(),
				Category:     domain.VarianceCategoryCash,
				VarianceType: domain.VarianceTypeNegative,
				Magnitude:    decimal.RequireFromString("200.00"),
			},
			wantInsert: true,
			wantPoints: -8,
			wantReason: domain.PointsReasonNegativeVariancePenalty,
		},
		{
			name: "live count mismatch is informational",
			variance: &domain.VarianceRecord{
				ID:            uuid.New(),
				Category:      domain.VarianceCategoryStock,
				InventoryType: domain.InventoryTypeLive,
				VarianceType:  domain.VarianceTypeNegative,
				Magnitude:     decimal.NewFromInt(4),
			},
			wantInsert: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t)
			f.expectDefaults()
			entries := f.captureInsert(true)

			err := f.engine.AwardVarianceResolution(context.Background(), nil, tt.variance, shopID, userID, date)
			require.NoError(t, err)

			if !tt.wantInsert {
				assert.Empty(t, *entries)
				return
			}
			require.Len(t, *entries, 1)
			entry := (*entries)[0]
			assert.Equal(t, tt.wantPoints, entry.PointsChange)
			assert.Equal(t, tt.wantReason, entry.Reason)
			assert.Equal(t, tt.variance.ID, entry.RefID)
			assert.Equal(t, domain.PointsRefTypeVariance, entry.RefType)
		})
	}
}

func TestAwardTransferApproved_DisabledByDefault(t *testing.T) {
	f := newEngineFixture(t)
	f.expectDefaults()

	transfer := &domain.StockTransfer{
		ID:          uuid.New(),
		FromShop:    uuid.New(),
		ToShop:      uuid.New(),
		InitiatedBy: uuid.New(),
		Weight:      decimal.RequireFromString("5.000"),
	}
	err := f.engine.AwardTransferApproved(context.Background(), nil, transfer)
	require.NoError(t, err)
	f.points.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func TestAwardTransferApproved_EnabledByOverride(t *testing.T) {
	f := newEngineFixture(t)
	f.points.On("ConfigOverrides", mock.Anything, mock.Anything).Return(map[string]int{
		"transfer_approved_bonus": 1,
	}, nil)
	entries := f.captureInsert(true)

	transfer := &domain.StockTransfer{
		ID:          uuid.New(),
		FromShop:    uuid.New(),
		ToShop:      uuid.New(),
		InitiatedBy: uuid.New(),
		Weight:      decimal.RequireFromString("5.000"),
	}
	err := f.engine.AwardTransferApproved(context.Background(), nil, transfer)
	require.NoError(t, err)

	require.Len(t, *entries, 1)
	entry := (*entries)[0]
	assert.Equal(t, 1, entry.PointsChange)
	assert.Equal(t, domain.PointsReasonTransferApproved, entry.Reason)
	assert.Equal(t, transfer.InitiatedBy, entry.UserID)
	assert.Equal(t, transfer.FromShop, entry.ShopID)
}

func TestScanRepeatedNegative(t *testing.T) {
	f := newEngineFixture(t)
	f.expectDefaults()

	repeatUser := uuid.New()
	cleanUser := uuid.New()
	shopID := uuid.New()
	latestSettlement := uuid.New()

	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }
	days := []ports.NegativeVarianceDay{
		{UserID: repeatUser, ShopID: shopID, Date: day(8), SettlementID: uuid.New()},
		{UserID: repeatUser, ShopID: shopID, Date: day(9), SettlementID: uuid.New()},
		{UserID: repeatUser, ShopID: shopID, Date: day(10), SettlementID: latestSettlement},
		{UserID: cleanUser, ShopID: shopID, Date: day(10), SettlementID: uuid.New()},
	}
	f.variances.On("NegativeVarianceDays", mock.Anything, mock.Anything, day(8), day(10)).Return(days, nil)
	entries := f.captureInsert(true)

	issued, err := f.engine.ScanRepeatedNegative(context.Background(), day(10))
	require.NoError(t, err)
	assert.Equal(t, 1, issued)

	require.Len(t, *entries, 1)
	entry := (*entries)[0]
	assert.Equal(t, repeatUser, entry.UserID)
	assert.Equal(t, -20, entry.PointsChange)
	assert.Equal(t, domain.PointsReasonRepeatedNegativeVariance, entry.Reason)
	// keyed to the settlement that completed the window
	assert.Equal(t, latestSettlement, entry.RefID)
	assert.Equal(t, day(10), entry.EffectiveDate)
}

func TestScanRepeatedNegative_IdempotentRerun(t *testing.T) {
	f := newEngineFixture(t)
	f.expectDefaults()

	userID := uuid.New()
	shopID := uuid.New()
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }
	days := []ports.NegativeVarianceDay{
		{UserID: userID, ShopID: shopID, Date: day(8), SettlementID: uuid.New()},
		{UserID: userID, ShopID: shopID, Date: day(9), SettlementID: uuid.New()},
		{UserID: userID, ShopID: shopID, Date: day(10), SettlementID: uuid.New()},
	}
	f.variances.On("NegativeVarianceDays", mock.Anything, mock.Anything, day(8), day(10)).Return(days, nil)
	f.points.On("Insert", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	issued, err := f.engine.ScanRepeatedNegative(context.Background(), day(10))
	require.NoError(t, err)
	assert.Zero(t, issued)
}

func TestScanMissedSettlements(t *testing.T) {
	f := newEngineFixture(t)
	f.expectDefaults()

	date := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	shops := []ports.ShopManager{
		{ShopID: uuid.New(), ManagerID: uuid.New()},
		{ShopID: uuid.New(), ManagerID: uuid.New()},
	}
	f.settlements.On("ShopsWithoutSettlement", mock.Anything, mock.Anything, date).Return(shops, nil)
	entries := f.captureInsert(true)

	issued, err := f.engine.ScanMissedSettlements(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, 2, issued)

	require.Len(t, *entries, 2)
	for i, entry := range *entries {
		assert.Equal(t, shops[i].ManagerID, entry.UserID)
		assert.Equal(t, -5, entry.PointsChange)
		assert.Equal(t, domain.PointsReasonMissedSettlement, entry.Reason)
		assert.Equal(t, domain.PointsRefTypeShopDate, entry.RefType)
	}
	// the derived ref is stable across reruns for the same shop and date
	assert.Equal(t, missedSettlementRef(shops[0].ShopID, date), (*entries)[0].RefID)
	assert.NotEqual(t, (*entries)[0].RefID, (*entries)[1].RefID)
}

func TestAdjustManually(t *testing.T) {
	f := newEngineFixture(t)
	actorID := uuid.New()
	userID := uuid.New()
	shopID := uuid.New()

	f.directory.On("IsApprover", mock.Anything, actorID).Return(true, nil)
	entries := f.captureInsert(true)

	entry, err := f.engine.AdjustManually(context.Background(), actorID, userID, shopID, -10, "till shortage writeoff")
	require.NoError(t, err)

	require.Len(t, *entries, 1)
	assert.Equal(t, -10, entry.PointsChange)
	assert.Equal(t, domain.PointsReasonManualAdjustment, entry.Reason)
	assert.Equal(t, entry.ID, entry.RefID)
}

func TestAdjustManually_Forbidden(t *testing.T) {
	f := newEngineFixture(t)
	actorID := uuid.New()
	f.directory.On("IsApprover", mock.Anything, actorID).Return(false, nil)

	_, err := f.engine.AdjustManually(context.Background(), actorID, uuid.New(), uuid.New(), 5, "x")
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeAuthForbidden))
}

func TestAdjustManually_RejectsZero(t *testing.T) {
	f := newEngineFixture(t)
	actorID := uuid.New()
	f.directory.On("IsApprover", mock.Anything, actorID).Return(true, nil)

	_, err := f.engine.AdjustManually(context.Background(), actorID, uuid.New(), uuid.New(), 0, "noop")
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationFailed))
	f.points.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func TestLeaderboard_CacheHit(t *testing.T) {
	f := newEngineFixture(t)
	shopID := uuid.New()
	cached := []domain.LeaderboardRow{{UserID: uuid.New(), TotalPoints: 40, Rank: 1}}

	f.cache.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(cached, true, nil)

	rows, err := f.engine.Leaderboard(context.Background(), shopID, 10)
	require.NoError(t, err)
	assert.Equal(t, cached, rows)
	f.points.AssertNotCalled(t, "Leaderboard", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLeaderboard_CacheMissQueriesAndBackfills(t *testing.T) {
	f := newEngineFixture(t)
	shopID := uuid.New()
	rows := []domain.LeaderboardRow{
		{UserID: uuid.New(), TotalPoints: 40, Rank: 1},
		{UserID: uuid.New(), TotalPoints: 12, Rank: 2},
	}
	monthStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	f.cache.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(nil, false, nil)
	f.points.On("Leaderboard", mock.Anything, mock.Anything, shopID, monthStart, 10).Return(rows, nil)
	f.cache.On("Set", mock.Anything, mock.AnythingOfType("string"), rows, leaderboardCacheTTL).Return(nil)

	got, err := f.engine.Leaderboard(context.Background(), shopID, 10)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
	f.cache.AssertExpectations(t)
}

func TestLeaderboard_CacheErrorDegradesToQuery(t *testing.T) {
	f := newEngineFixture(t)
	shopID := uuid.New()
	rows := []domain.LeaderboardRow{{UserID: uuid.New(), TotalPoints: 7, Rank: 1}}

	f.cache.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(nil, false, assert.AnError)
	f.points.On("Leaderboard", mock.Anything, mock.Anything, shopID, mock.Anything, 10).Return(rows, nil)
	f.cache.On("Set", mock.Anything, mock.Anything, rows, leaderboardCacheTTL).Return(nil)

	got, err := f.engine.Leaderboard(context.Background(), shopID, 10)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestSummary(t *testing.T) {
	f := newEngineFixture(t)
	userID := uuid.New()
	shopID := uuid.New()
	monthStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	today := f.clock.Time.Truncate(24 * time.Hour)

	f.points.On("SumForUser", mock.Anything, mock.Anything, userID, shopID, time.Time{}, time.Time{}).Return(55, nil)
	f.points.On("SumForUser", mock.Anything, mock.Anything, userID, shopID, monthStart, time.Time{}).Return(12, nil)
	f.points.On("SumForUser", mock.Anything, mock.Anything, userID, shopID, today, time.Time{}).Return(2, nil)
	f.cache.On("Get", mock.Anything, mock.AnythingOfType("string")).Return([]domain.LeaderboardRow{
		{UserID: uuid.New(), TotalPoints: 90, Rank: 1},
		{UserID: userID, TotalPoints: 12, Rank: 2},
	}, true, nil)

	summary, err := f.engine.Summary(context.Background(), userID, shopID)
	require.NoError(t, err)
	assert.Equal(t, 55, summary.Total)
	assert.Equal(t, 12, summary.MonthToDate)
	assert.Equal(t, 2, summary.Today)
	assert.Equal(t, 2, summary.Rank)
}
