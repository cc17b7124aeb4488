package settlement

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
	"github.com/poultryops/settlement-service/internal/testutil/mocks"
)

type serviceFixture struct {
	db          *mocks.MockDB
	settlements *mocks.MockSettlementRepository
	variances   *mocks.MockVarianceRepository
	ledger      *mocks.MockLedgerRepository
	sales       *mocks.MockSalesRepository
	directory   *mocks.MockShopDirectory
	points      *mocks.MockPointsRecorder
	clock       mocks.FixedClock
	service     *Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		db:          mocks.NewMockDB(),
		settlements: &mocks.MockSettlementRepository{},
		variances:   &mocks.MockVarianceRepository{},
		ledger:      &mocks.MockLedgerRepository{},
		sales:       &mocks.MockSalesRepository{},
		directory:   &mocks.MockShopDirectory{},
		points:      &mocks.MockPointsRecorder{},
		clock:       mocks.FixedClock{Time: time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)},
	}
	f.service = NewService(
		f.db, f.settlements, f.variances, f.ledger, f.sales,
		f.directory, f.points, f.clock, zap.NewNop(),
	)
	return f
}

func draftSettlement(shopID uuid.UUID) *domain.Settlement {
	return &domain.Settlement{
		ID:             uuid.New(),
		ShopID:         shopID,
		SettlementDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:         domain.SettlementStatusDraft,
		DeclaredStock:  domain.NewStockSheet(),
	}
}

func TestCreateDraft(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()
	shopID := uuid.New()

	f.directory.On("IsManagerOf", mock.Anything, userID, shopID).Return(true, nil)
	f.settlements.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*domain.Settlement")).Return(nil)

	s, err := f.service.CreateDraft(context.Background(), userID, shopID, time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusDraft, s.Status)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), s.SettlementDate)
	f.settlements.AssertExpectations(t)
}

func TestCreateDraft_NotManager(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()
	shopID := uuid.New()

	f.directory.On("IsManagerOf", mock.Anything, userID, shopID).Return(false, nil)

	_, err := f.service.CreateDraft(context.Background(), userID, shopID, time.Now())
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeAuthForbidden))
	f.settlements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

// TestSubmit_DetectsVariances checks one variance record is created per
// differing cell plus one per currency mismatch, and none for matches.
func TestSubmit_DetectsVariances(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()
	shopID := uuid.New()
	existing := draftSettlement(shopID)

	f.settlements.On("GetByID", mock.Anything, mock.Anything, existing.ID).Return(existing, nil)
	f.directory.On("IsManagerOf", mock.Anything, userID, shopID).Return(true, nil)
	f.settlements.On("MarkSubmitted", mock.Anything, mock.Anything, existing).Return(true, nil)

	// expected: 5000 cash, 1000 upi, 40 live broilers and 10.5kg skinless
	f.sales.On("SumByPaymentMethod", mock.Anything, mock.Anything, shopID, existing.SettlementDate, domain.PaymentMethodCash).
		Return(decimal.RequireFromString("5000.00"), nil)
	f.sales.On("SumByPaymentMethod", mock.Anything, mock.Anything, shopID, existing.SettlementDate, domain.PaymentMethodUPI).
		Return(decimal.RequireFromString("1000.00"), nil)
	f.settlements.On("LastLockedBefore", mock.Anything, mock.Anything, shopID, existing.SettlementDate).Return(nil, nil)
	f.ledger.On("SumDeltas", mock.Anything, mock.Anything, shopID, time.Time{}, existing.SettlementDate).
		Return([]domain.StockDelta{
			{Key: domain.StockKey{BirdType: domain.BirdTypeBroiler, InventoryType: domain.InventoryTypeLive}, BirdCountChange: 40},
			{Key: domain.StockKey{BirdType: domain.BirdTypeBroiler, InventoryType: domain.InventoryTypeSkinless}, QuantityChange: decimal.RequireFromString("10.500")},
		}, nil)

	var created []domain.VarianceRecord
	f.variances.On("CreateBatch", mock.Anything, mock.Anything, mock.AnythingOfType("[]domain.VarianceRecord")).
		Run(func(args mock.Arguments) {
			created = args.Get(2).([]domain.VarianceRecord)
		}).Return(nil)
	f.points.On("AwardTimeliness", mock.Anything, mock.Anything, existing, f.clock.Time).Return(nil)

	decl := domain.Declaration{
		// declared cash 4700 + 100 expenses vs 5000 expected: 200 short
		Cash:          decimal.RequireFromString("4700.00"),
		UPI:           decimal.RequireFromString("1000.00"),
		ExpenseAmount: decimal.RequireFromString("100.00"),
	}
	decl.Stock.Set(domain.StockKey{BirdType: domain.BirdTypeBroiler, InventoryType: domain.InventoryTypeLive}, decimal.NewFromInt(40))
	decl.Stock.Set(domain.StockKey{BirdType: domain.BirdTypeBroiler, InventoryType: domain.InventoryTypeSkinless}, decimal.RequireFromString("8.200"))

	s, err := f.service.Submit(context.Background(), userID, existing.ID, decl)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusSubmitted, s.Status)

	// one stock variance (skinless short 2.3kg) and one cash variance; UPI and
	// live counts matched
	require.Len(t, created, 2)
	assert.Equal(t, domain.VarianceCategoryStock, created[0].Category)
	assert.Equal(t, domain.VarianceTypeNegative, created[0].VarianceType)
	assert.True(t, created[0].Magnitude.Equal(decimal.RequireFromString("2.300")))
	assert.Equal(t, domain.VarianceCategoryCash, created[1].Category)
	assert.Equal(t, domain.VarianceTypeNegative, created[1].VarianceType)
	assert.True(t, created[1].Magnitude.Equal(decimal.RequireFromString("200.00")))

	f.points.AssertCalled(t, "AwardTimeliness", mock.Anything, mock.Anything, existing, f.clock.Time)
}

// TestSubmit_ResubmitAfterReject: correcting a rejected settlement goes back
// through submit, which re-detects variances as a fresh batch. Timeliness is
// not re-scored.
func TestSubmit_ResubmitAfterReject(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()
	shopID := uuid.New()
	existing := draftSettlement(shopID)
	existing.Status = domain.SettlementStatusRejected
	existing.RejectionReason = "counts look wrong"
	firstSubmit := f.clock.Time.Add(-2 * time.Hour)
	existing.SubmittedBy = &userID
	existing.SubmittedAt = &firstSubmit

	f.settlements.On("GetByID", mock.Anything, mock.Anything, existing.ID).Return(existing, nil)
	f.directory.On("IsManagerOf", mock.Anything, userID, shopID).Return(true, nil)
	f.settlements.On("MarkSubmitted", mock.Anything, mock.Anything, existing).Return(true, nil)

	f.sales.On("SumByPaymentMethod", mock.Anything, mock.Anything, shopID, existing.SettlementDate, domain.PaymentMethodCash).
		Return(decimal.RequireFromString("5000.00"), nil)
	f.sales.On("SumByPaymentMethod", mock.Anything, mock.Anything, shopID, existing.SettlementDate, domain.PaymentMethodUPI).
		Return(decimal.Zero, nil)
	f.settlements.On("LastLockedBefore", mock.Anything, mock.Anything, shopID, existing.SettlementDate).Return(nil, nil)
	f.ledger.On("SumDeltas", mock.Anything, mock.Anything, shopID, time.Time{}, existing.SettlementDate).
		Return([]domain.StockDelta{}, nil)

	var created []domain.VarianceRecord
	f.variances.On("CreateBatch", mock.Anything, mock.Anything, mock.AnythingOfType("[]domain.VarianceRecord")).
		Run(func(args mock.Arguments) {
			created = args.Get(2).([]domain.VarianceRecord)
		}).Return(nil)

	// corrected declaration, still 200 short on cash
	decl := domain.Declaration{Cash: decimal.RequireFromString("4800.00")}
	s, err := f.service.Submit(context.Background(), userID, existing.ID, decl)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusSubmitted, s.Status)

	require.Len(t, created, 1)
	assert.Equal(t, domain.VarianceCategoryCash, created[0].Category)
	assert.Equal(t, domain.VarianceStatusPending, created[0].Status)
	assert.True(t, created[0].Magnitude.Equal(decimal.RequireFromString("200.00")))

	f.points.AssertNotCalled(t, "AwardTimeliness", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_InvalidState(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()
	shopID := uuid.New()
	existing := draftSettlement(shopID)
	existing.Status = domain.SettlementStatusLocked

	f.settlements.On("GetByID", mock.Anything, mock.Anything, existing.ID).Return(existing, nil)
	f.directory.On("IsManagerOf", mock.Anything, userID, shopID).Return(true, nil)

	_, err := f.service.Submit(context.Background(), userID, existing.ID, domain.Declaration{})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeSettlementInvalidState))
	f.variances.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_BackdateRequiresCapability(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()
	shopID := uuid.New()
	existing := draftSettlement(shopID)

	f.settlements.On("GetByID", mock.Anything, mock.Anything, existing.ID).Return(existing, nil)
	f.directory.On("IsManagerOf", mock.Anything, userID, shopID).Return(true, nil)
	f.directory.On("HasBackdateCapability", mock.Anything, userID).Return(false, nil)

	decl := domain.Declaration{SettlementDate: time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)}
	_, err := f.service.Submit(context.Background(), userID, existing.ID, decl)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeAuthForbidden))
}

// TestApprove_ResolvesPendingVariances verifies approval settles each pending
// variance by sign, appends the stock ledger adjustment, and awards points.
func TestApprove_ResolvesPendingVariances(t *testing.T) {
	f := newServiceFixture(t)
	approverID := uuid.New()
	shopID := uuid.New()
	submitterID := uuid.New()

	existing := draftSettlement(shopID)
	existing.Status = domain.SettlementStatusSubmitted
	existing.SubmittedBy = &submitterID

	pendingStock := domain.VarianceRecord{
		ID:            uuid.New(),
		SettlementID:  existing.ID,
		Category:      domain.VarianceCategoryStock,
		BirdType:      domain.BirdTypeBroiler,
		InventoryType: domain.InventoryTypeSkinless,
		VarianceType:  domain.VarianceTypeNegative,
		Expected:      decimal.RequireFromString("10.500"),
		Declared:      decimal.RequireFromString("8.200"),
		Magnitude:     decimal.RequireFromString("2.300"),
		Status:        domain.VarianceStatusPending,
	}
	resolvedCash := domain.VarianceRecord{
		ID:           uuid.New(),
		SettlementID: existing.ID,
		Category:     domain.VarianceCategoryCash,
		VarianceType: domain.VarianceTypePositive,
		Status:       domain.VarianceStatusApproved,
	}

	f.directory.On("IsApprover", mock.Anything, approverID).Return(true, nil)
	f.settlements.On("GetByID", mock.Anything, mock.Anything, existing.ID).Return(existing, nil)
	f.settlements.On("MarkApproved", mock.Anything, mock.Anything, existing.ID, approverID, f.clock.Time).Return(true, nil)
	f.variances.On("ListBySettlement", mock.Anything, mock.Anything, existing.ID).
		Return([]domain.VarianceRecord{pendingStock, resolvedCash}, nil)
	f.variances.On("Resolve", mock.Anything, mock.Anything, pendingStock.ID, domain.VarianceStatusDeducted, approverID, f.clock.Time, "").
		Return(true, nil)

	var appended *domain.LedgerEntry
	f.ledger.On("Append", mock.Anything, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).
		Run(func(args mock.Arguments) {
			appended = args.Get(2).(*domain.LedgerEntry)
		}).Return(nil)
	f.points.On("AwardVarianceResolution", mock.Anything, mock.Anything, mock.AnythingOfType("*domain.VarianceRecord"), shopID, submitterID, existing.SettlementDate).
		Return(nil)

	s, err := f.service.Approve(context.Background(), approverID, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusApproved, s.Status)

	// adjustment realigns the ledger to the declared value: 8.2 - 10.5 = -2.3
	require.NotNil(t, appended)
	assert.Equal(t, domain.LedgerReasonVarianceNegative, appended.Reason)
	assert.True(t, appended.QuantityChange.Equal(decimal.RequireFromString("-2.300")))
	assert.Equal(t, domain.BirdTypeBroiler, appended.BirdType)

	// the already-resolved cash variance is untouched
	f.variances.AssertNumberOfCalls(t, "Resolve", 1)
	f.points.AssertNotCalled(t, "AwardZeroVariance", mock.Anything, mock.Anything, mock.Anything)
}

func TestApprove_ZeroVarianceBonus(t *testing.T) {
	f := newServiceFixture(t)
	approverID := uuid.New()
	existing := draftSettlement(uuid.New())
	existing.Status = domain.SettlementStatusSubmitted

	f.directory.On("IsApprover", mock.Anything, approverID).Return(true, nil)
	f.settlements.On("GetByID", mock.Anything, mock.Anything, existing.ID).Return(existing, nil)
	f.settlements.On("MarkApproved", mock.Anything, mock.Anything, existing.ID, approverID, f.clock.Time).Return(true, nil)
	f.variances.On("ListBySettlement", mock.Anything, mock.Anything, existing.ID).Return([]domain.VarianceRecord{}, nil)
	f.points.On("AwardZeroVariance", mock.Anything, mock.Anything, existing).Return(nil)

	_, err := f.service.Approve(context.Background(), approverID, existing.ID)
	require.NoError(t, err)
	f.points.AssertCalled(t, "AwardZeroVariance", mock.Anything, mock.Anything, existing)
}

// TestApprove_ZeroVarianceBonus_AfterRejectedHistory: variance rows left
// IGNORED by an earlier rejection do not block the bonus when the corrected
// resubmission is clean.
func TestApprove_ZeroVarianceBonus_AfterRejectedHistory(t *testing.T) {
	f := newServiceFixture(t)
	approverID := uuid.New()
	existing := draftSettlement(uuid.New())
	existing.Status = domain.SettlementStatusSubmitted

	ignored := domain.VarianceRecord{
		ID:           uuid.New(),
		SettlementID: existing.ID,
		Category:     domain.VarianceCategoryCash,
		VarianceType: domain.VarianceTypeNegative,
		Status:       domain.VarianceStatusIgnored,
	}

	f.directory.On("IsApprover", mock.Anything, approverID).Return(true, nil)
	f.settlements.On("GetByID", mock.Anything, mock.Anything, existing.ID).Return(existing, nil)
	f.settlements.On("MarkApproved", mock.Anything, mock.Anything, existing.ID, approverID, f.clock.Time).Return(true, nil)
	f.variances.On("ListBySettlement", mock.Anything, mock.Anything, existing.ID).
		Return([]domain.VarianceRecord{ignored}, nil)
	f.points.On("AwardZeroVariance", mock.Anything, mock.Anything, existing).Return(nil)

	_, err := f.service.Approve(context.Background(), approverID, existing.ID)
	require.NoError(t, err)
	f.points.AssertCalled(t, "AwardZeroVariance", mock.Anything, mock.Anything, existing)
	f.variances.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestApprove_ConcurrentLoser: the CAS fails and the settlement already reads
// APPROVED, so the caller gets the already-approved conflict and no variance
// work happens.
func TestApprove_ConcurrentLoser(t *testing.T) {
	f := newServiceFixture(t)
	approverID := uuid.New()
	existing := draftSettlement(uuid.New())
	existing.Status = domain.SettlementStatusApproved

	f.directory.On("IsApprover", mock.Anything, approverID).Return(true, nil)
	f.settlements.On("GetByID", mock.Anything, mock.Anything, existing.ID).Return(existing, nil)
	f.settlements.On("MarkApproved", mock.Anything, mock.Anything, existing.ID, approverID, f.clock.Time).Return(false, nil)

	_, err := f.service.Approve(context.Background(), approverID, existing.ID)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeSettlementAlreadyApproved))
	f.variances.AssertNotCalled(t, "ListBySettlement", mock.Anything, mock.Anything, mock.Anything)
}

func TestReject_IgnoresPendingVariances(t *testing.T) {
	f := newServiceFixture(t)
	approverID := uuid.New()
	existing := draftSettlement(uuid.New())
	existing.Status = domain.SettlementStatusSubmitted

	pending := domain.VarianceRecord{
		ID:           uuid.New(),
		SettlementID: existing.ID,
		Category:     domain.VarianceCategoryUPI,
		VarianceType: domain.VarianceTypeNegative,
		Status:       domain.VarianceStatusPending,
	}

	f.directory.On("IsApprover", mock.Anything, approverID).Return(true, nil)
	f.settlements.On("GetByID", mock.Anything, mock.Anything, existing.ID).Return(existing, nil)
	f.settlements.On("MarkRejected", mock.Anything, mock.Anything, existing.ID, approverID, "counts look wrong", f.clock.Time).Return(true, nil)
	f.variances.On("ListBySettlement", mock.Anything, mock.Anything, existing.ID).Return([]domain.VarianceRecord{pending}, nil)
	f.variances.On("Resolve", mock.Anything, mock.Anything, pending.ID, domain.VarianceStatusIgnored, approverID, f.clock.Time, "settlement rejected").
		Return(true, nil)

	s, err := f.service.Reject(context.Background(), approverID, existing.ID, "counts look wrong")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementStatusRejected, s.Status)
	assert.Equal(t, "counts look wrong", s.RejectionReason)

	// no ledger adjustment and no points on reject
	f.ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	f.points.AssertNotCalled(t, "AwardVarianceResolution", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReject_RequiresReason(t *testing.T) {
	f := newServiceFixture(t)
	approverID := uuid.New()
	f.directory.On("IsApprover", mock.Anything, approverID).Return(true, nil)

	_, err := f.service.Reject(context.Background(), approverID, uuid.New(), "")
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationMissingField))
}

func TestResolveVariance_WrongSign(t *testing.T) {
	f := newServiceFixture(t)
	approverID := uuid.New()
	v := &domain.VarianceRecord{
		ID:           uuid.New(),
		SettlementID: uuid.New(),
		Category:     domain.VarianceCategoryStock,
		VarianceType: domain.VarianceTypeNegative,
		Status:       domain.VarianceStatusPending,
	}

	f.directory.On("IsApprover", mock.Anything, approverID).Return(true, nil)
	f.variances.On("GetByID", mock.Anything, mock.Anything, v.ID).Return(v, nil)

	_, err := f.service.ResolveVariance(context.Background(), approverID, v.ID, domain.VarianceStatusApproved, "")
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeVarianceWrongSign))
}

func TestResolveVariance_AlreadyResolved(t *testing.T) {
	f := newServiceFixture(t)
	approverID := uuid.New()
	v := &domain.VarianceRecord{
		ID:           uuid.New(),
		VarianceType: domain.VarianceTypeNegative,
		Status:       domain.VarianceStatusDeducted,
	}

	f.directory.On("IsApprover", mock.Anything, approverID).Return(true, nil)
	f.variances.On("GetByID", mock.Anything, mock.Anything, v.ID).Return(v, nil)

	_, err := f.service.ResolveVariance(context.Background(), approverID, v.ID, domain.VarianceStatusDeducted, "")
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeVarianceAlreadyResolved))
}

// TestGetExpected_PartialDegradation: a failing sales query degrades that
// category to zero with a warning instead of failing the whole read.
func TestGetExpected_PartialDegradation(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()
	shopID := uuid.New()
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	f.directory.On("IsManagerOf", mock.Anything, userID, shopID).Return(true, nil)
	f.sales.On("SumByPaymentMethod", mock.Anything, mock.Anything, shopID, date, domain.PaymentMethodCash).
		Return(decimal.Zero, assert.AnError)
	f.sales.On("SumByPaymentMethod", mock.Anything, mock.Anything, shopID, date, domain.PaymentMethodUPI).
		Return(decimal.RequireFromString("750.00"), nil)
	f.settlements.On("LastLockedBefore", mock.Anything, mock.Anything, shopID, date).Return(nil, nil)
	f.ledger.On("SumDeltas", mock.Anything, mock.Anything, shopID, time.Time{}, date).Return([]domain.StockDelta{}, nil)

	expected, err := f.service.GetExpected(context.Background(), userID, shopID, date)
	require.NoError(t, err)
	assert.True(t, expected.Partial())
	assert.True(t, expected.Cash.IsZero())
	assert.True(t, expected.UPI.Equal(decimal.RequireFromString("750.00")))
	require.Len(t, expected.Warnings, 1)
	assert.Contains(t, expected.Warnings[0], "cash")
}

// TestGetExpected_UsesLockedCutLine: the declared sheet of the last locked
// settlement is the base, with ledger deltas after the cut applied on top.
func TestGetExpected_UsesLockedCutLine(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()
	shopID := uuid.New()
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	cut := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)

	locked := draftSettlement(shopID)
	locked.Status = domain.SettlementStatusLocked
	locked.SettlementDate = cut
	key := domain.StockKey{BirdType: domain.BirdTypeBroiler, InventoryType: domain.InventoryTypeSkinless}
	locked.DeclaredStock.Set(key, decimal.RequireFromString("12.000"))

	f.directory.On("IsManagerOf", mock.Anything, userID, shopID).Return(true, nil)
	f.sales.On("SumByPaymentMethod", mock.Anything, mock.Anything, shopID, date, mock.Anything).
		Return(decimal.Zero, nil)
	f.settlements.On("LastLockedBefore", mock.Anything, mock.Anything, shopID, date).Return(locked, nil)
	f.ledger.On("SumDeltas", mock.Anything, mock.Anything, shopID, cut, date).
		Return([]domain.StockDelta{
			{Key: key, QuantityChange: decimal.RequireFromString("-4.500")},
		}, nil)

	expected, err := f.service.GetExpected(context.Background(), userID, shopID, date)
	require.NoError(t, err)
	assert.False(t, expected.Partial())
	assert.True(t, expected.Stock.Get(key).Equal(decimal.RequireFromString("7.500")))
}
