package processing

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

type processingFixture struct {
	db        *mocks.MockDB
	ledger    *mocks.MockLedgerRepository
	wastage   *mocks.MockWastageRepository
	directory *mocks.MockShopDirectory
	clock     mocks.FixedClock
	service   *Service
}

func newProcessingFixture(t *testing.T) *processingFixture {
	t.Helper()
	f := &processingFixture{
		db:        mocks.NewMockDB(),
		ledger:    &mocks.MockLedgerRepository{},
		wastage:   &mocks.MockWastageRepository{},
		directory: &mocks.MockShopDirectory{},
		clock:     mocks.FixedClock{Time: time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)},
	}
	f.service = NewService(f.db, f.ledger, f.wastage, f.directory, f.clock, zap.NewNop())
	return f
}

func batchRequest(shopID uuid.UUID) Request {
	return Request{
		ShopID:        shopID,
		BirdType:      domain.BirdTypeBroiler,
		Target:        domain.InventoryTypeSkinless,
		BirdCount:     10,
		LiveWeight:    decimal.RequireFromString("20.000"),
		ProcessedDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func skinlessRate() *domain.WastageRate {
	return &domain.WastageRate{
		ID:                  uuid.New(),
		BirdType:            domain.BirdTypeBroiler,
		TargetInventoryType: domain.InventoryTypeSkinless,
		Percentage:          decimal.RequireFromString("15.00"),
		EffectiveDate:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:              true,
	}
}

// TestRecordBatch verifies the ledger triple: live debit, gross credit to the
// target category, and the wastage debit netting the credit down to the yield.
func TestRecordBatch(t *testing.T) {
	f := newProcessingFixture(t)
	userID := uuid.New()
	req := batchRequest(uuid.New())
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	f.directory.On("IsManagerOf", mock.Anything, userID, req.ShopID).Return(true, nil)
	f.wastage.On("RateFor", mock.Anything, mock.Anything, req.BirdType, req.Target, date).Return(skinlessRate(), nil)
	f.ledger.On("OnHand", mock.Anything, mock.Anything, req.ShopID, domain.StockKey{
		BirdType: req.BirdType, InventoryType: domain.InventoryTypeLive,
	}).Return(decimal.Zero, 30, nil)

	var entries []*domain.LedgerEntry
	f.ledger.On("Append", mock.Anything, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).
		Run(func(args mock.Arguments) {
			entries = append(entries, args.Get(2).(*domain.LedgerEntry))
		}).Return(nil)

	result, err := f.service.RecordBatch(context.Background(), userID, req)
	require.NoError(t, err)
	assert.True(t, result.Yield.OutputWeight.Equal(decimal.RequireFromString("17.000")))
	assert.True(t, result.Yield.WastageWeight.Equal(decimal.RequireFromString("3.000")))

	require.Len(t, entries, 3)
	live, credit, waste := entries[0], entries[1], entries[2]

	assert.Equal(t, domain.LedgerReasonProcessingDebit, live.Reason)
	assert.Equal(t, domain.InventoryTypeLive, live.InventoryType)
	assert.Equal(t, -10, live.BirdCountChange)

	assert.Equal(t, domain.LedgerReasonProcessingCredit, credit.Reason)
	assert.Equal(t, domain.InventoryTypeSkinless, credit.InventoryType)
	assert.True(t, credit.QuantityChange.Equal(decimal.RequireFromString("20.000")))

	assert.Equal(t, domain.LedgerReasonWastage, waste.Reason)
	assert.True(t, waste.QuantityChange.Equal(decimal.RequireFromString("-3.000")))

	// all three share the batch reference
	require.NotNil(t, live.RefID)
	assert.Equal(t, result.BatchID, *live.RefID)
	assert.Equal(t, *live.RefID, *credit.RefID)
	assert.Equal(t, *live.RefID, *waste.RefID)
	assert.Equal(t, refTypeProcessing, live.RefType)
}

func TestRecordBatch_ZeroWastageSkipsThirdEntry(t *testing.T) {
	f := newProcessingFixture(t)
	userID := uuid.New()
	req := batchRequest(uuid.New())

	rate := skinlessRate()
	rate.Percentage = decimal.Zero

	f.directory.On("IsManagerOf", mock.Anything, userID, req.ShopID).Return(true, nil)
	f.wastage.On("RateFor", mock.Anything, mock.Anything, req.BirdType, req.Target, mock.Anything).Return(rate, nil)
	f.ledger.On("OnHand", mock.Anything, mock.Anything, req.ShopID, mock.Anything).Return(decimal.Zero, 30, nil)
	f.ledger.On("Append", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.RecordBatch(context.Background(), userID, req)
	require.NoError(t, err)
	assert.True(t, result.Yield.OutputWeight.Equal(req.LiveWeight))
	f.ledger.AssertNumberOfCalls(t, "Append", 2)
}

func TestRecordBatch_IdempotentReplay(t *testing.T) {
	f := newProcessingFixture(t)
	userID := uuid.New()
	req := batchRequest(uuid.New())
	req.IdempotencyKey = "batch-2025-03-10-morning"

	wantRef := batchRef(req.ShopID, req.IdempotencyKey)

	f.directory.On("IsManagerOf", mock.Anything, userID, req.ShopID).Return(true, nil)
	f.wastage.On("RateFor", mock.Anything, mock.Anything, req.BirdType, req.Target, mock.Anything).Return(skinlessRate(), nil)
	f.ledger.On("RefExists", mock.Anything, mock.Anything, wantRef, refTypeProcessing).Return(true, nil)

	result, err := f.service.RecordBatch(context.Background(), userID, req)
	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, wantRef, result.BatchID)
	f.ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	f.ledger.AssertNotCalled(t, "OnHand", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordBatch_InsufficientLiveBirds(t *testing.T) {
	f := newProcessingFixture(t)
	userID := uuid.New()
	req := batchRequest(uuid.New())

	f.directory.On("IsManagerOf", mock.Anything, userID, req.ShopID).Return(true, nil)
	f.wastage.On("RateFor", mock.Anything, mock.Anything, req.BirdType, req.Target, mock.Anything).Return(skinlessRate(), nil)
	f.ledger.On("OnHand", mock.Anything, mock.Anything, req.ShopID, mock.Anything).Return(decimal.Zero, 4, nil)

	_, err := f.service.RecordBatch(context.Background(), userID, req)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationFailed))
	f.ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordBatch_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"zero bird count", func(r *Request) { r.BirdCount = 0 }},
		{"non-positive weight", func(r *Request) { r.LiveWeight = decimal.Zero }},
		{"live target", func(r *Request) { r.Target = domain.InventoryTypeLive }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessingFixture(t)
			userID := uuid.New()
			req := batchRequest(uuid.New())
			tt.mutate(&req)

			f.directory.On("IsManagerOf", mock.Anything, userID, req.ShopID).Return(true, nil)

			_, err := f.service.RecordBatch(context.Background(), userID, req)
			assert.Error(t, err)
			f.wastage.AssertNotCalled(t, "RateFor", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRecordBatch_NotManager(t *testing.T) {
	f := newProcessingFixture(t)
	userID := uuid.New()
	req := batchRequest(uuid.New())

	f.directory.On("IsManagerOf", mock.Anything, userID, req.ShopID).Return(false, nil)

	_, err := f.service.RecordBatch(context.Background(), userID, req)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeAuthForbidden))
}

func TestSetWastageRate(t *testing.T) {
	f := newProcessingFixture(t)
	approverID := uuid.New()
	rate := &domain.WastageRate{
		BirdType:            domain.BirdTypeParentCull,
		TargetInventoryType: domain.InventoryTypeSkin,
		Percentage:          decimal.RequireFromString("12.50"),
	}

	f.directory.On("IsApprover", mock.Anything, approverID).Return(true, nil)
	f.wastage.On("Create", mock.Anything, mock.Anything, rate).Return(nil)

	created, err := f.service.SetWastageRate(context.Background(), approverID, rate)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.True(t, created.Active)
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, approverID, *created.CreatedBy)
	// blank effective date defaults to today
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), created.EffectiveDate)
}

func TestSetWastageRate_ApproverOnly(t *testing.T) {
	f := newProcessingFixture(t)
	userID := uuid.New()
	f.directory.On("IsApprover", mock.Anything, userID).Return(false, nil)

	_, err := f.service.SetWastageRate(context.Background(), userID, skinlessRate())
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeAuthForbidden))
	f.wastage.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetWastageRate_RejectsInvalid(t *testing.T) {
	f := newProcessingFixture(t)
	approverID := uuid.New()
	f.directory.On("IsApprover", mock.Anything, approverID).Return(true, nil)

	rate := skinlessRate()
	rate.Percentage = decimal.RequireFromString("100.00")

	_, err := f.service.SetWastageRate(context.Background(), approverID, rate)
	assert.Error(t, err)
	f.wastage.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestStockOnHand(t *testing.T) {
	f := newProcessingFixture(t)
	shopID := uuid.New()
	key := domain.StockKey{BirdType: domain.BirdTypeBroiler, InventoryType: domain.InventoryTypeSkin}

	f.ledger.On("OnHand", mock.Anything, mock.Anything, shopID, key).
		Return(decimal.RequireFromString("8.250"), 0, nil)

	qty, birds, err := f.service.StockOnHand(context.Background(), shopID, key)
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.RequireFromString("8.250")))
	assert.Zero(t, birds)
}
