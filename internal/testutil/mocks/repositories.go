package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/domain/ports"
)

// MockSettlementRepository implements ports.SettlementRepository.
type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) Create(ctx context.Context, q ports.DBTX, s *domain.Settlement) error {
	args := m.Called(ctx, q, s)
	return args.Error(0)
}

func (m *MockSettlementRepository) GetByID(ctx context.Context, q ports.DBTX, id uuid.UUID) (*domain.Settlement, error) {
	args := m.Called(ctx, q, id)
	if s, ok := args.Get(0).(*domain.Settlement); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettlementRepository) GetByShopDate(ctx context.Context, q ports.DBTX, shopID uuid.UUID, date time.Time) (*domain.Settlement, error) {
	args := m.Called(ctx, q, shopID, date)
	if s, ok := args.Get(0).(*domain.Settlement); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettlementRepository) LastLockedBefore(ctx context.Context, q ports.DBTX, shopID uuid.UUID, date time.Time) (*domain.Settlement, error) {
	args := m.Called(ctx, q, shopID, date)
	if s, ok := args.Get(0).(*domain.Settlement); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettlementRepository) MarkSubmitted(ctx context.Context, q ports.DBTX, s *domain.Settlement) (bool, error) {
	args := m.Called(ctx, q, s)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettlementRepository) MarkApproved(ctx context.Context, q ports.DBTX, id, approverID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, q, id, approverID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettlementRepository) MarkRejected(ctx context.Context, q ports.DBTX, id, approverID uuid.UUID, reason string, at time.Time) (bool, error) {
	args := m.Called(ctx, q, id, approverID, reason, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettlementRepository) MarkLocked(ctx context.Context, q ports.DBTX, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, q, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettlementRepository) List(ctx context.Context, q ports.DBTX, filter domain.SettlementFilter) ([]domain.Settlement, error) {
	args := m.Called(ctx, q, filter)
	if s, ok := args.Get(0).([]domain.Settlement); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettlementRepository) ShopsWithoutSettlement(ctx context.Context, q ports.DBTX, date time.Time) ([]ports.ShopManager, error) {
	args := m.Called(ctx, q, date)
	if s, ok := args.Get(0).([]ports.ShopManager); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockVarianceRepository implements ports.VarianceRepository.
type MockVarianceRepository struct {
	mock.Mock
}

func (m *MockVarianceRepository) CreateBatch(ctx context.Context, q ports.DBTX, records []domain.VarianceRecord) error {
	args := m.Called(ctx, q, records)
	return args.Error(0)
}

func (m *MockVarianceRepository) GetByID(ctx context.Context, q ports.DBTX, id uuid.UUID) (*domain.VarianceRecord, error) {
	args := m.Called(ctx, q, id)
	if v, ok := args.Get(0).(*domain.VarianceRecord); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVarianceRepository) ListBySettlement(ctx context.Context, q ports.DBTX, settlementID uuid.UUID) ([]domain.VarianceRecord, error) {
	args := m.Called(ctx, q, settlementID)
	if v, ok := args.Get(0).([]domain.VarianceRecord); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVarianceRepository) List(ctx context.Context, q ports.DBTX, filter domain.VarianceFilter) ([]domain.VarianceRecord, error) {
	args := m.Called(ctx, q, filter)
	if v, ok := args.Get(0).([]domain.VarianceRecord); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVarianceRepository) Resolve(ctx context.Context, q ports.DBTX, id uuid.UUID, status domain.VarianceStatus, resolvedBy uuid.UUID, at time.Time, notes string) (bool, error) {
	args := m.Called(ctx, q, id, status, resolvedBy, at, notes)
	return args.Bool(0), args.Error(1)
}

func (m *MockVarianceRepository) NegativeVarianceDays(ctx context.Context, q ports.DBTX, from, to time.Time) ([]ports.NegativeVarianceDay, error) {
	args := m.Called(ctx, q, from, to)
	if d, ok := args.Get(0).([]ports.NegativeVarianceDay); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTransferRepository implements ports.TransferRepository.
type MockTransferRepository struct {
	mock.Mock
}

func (m *MockTransferRepository) Create(ctx context.Context, q ports.DBTX, t *domain.StockTransfer) error {
	args := m.Called(ctx, q, t)
	return args.Error(0)
}

func (m *MockTransferRepository) GetByID(ctx context.Context, q ports.DBTX, id uuid.UUID) (*domain.StockTransfer, error) {
	args := m.Called(ctx, q, id)
	if t, ok := args.Get(0).(*domain.StockTransfer); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransferRepository) List(ctx context.Context, q ports.DBTX, filter domain.TransferFilter) ([]domain.StockTransfer, error) {
	args := m.Called(ctx, q, filter)
	if t, ok := args.Get(0).([]domain.StockTransfer); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransferRepository) MarkReceived(ctx context.Context, q ports.DBTX, id, receiverID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, q, id, receiverID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransferRepository) MarkApproved(ctx context.Context, q ports.DBTX, id, approverID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, q, id, approverID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransferRepository) MarkRejected(ctx context.Context, q ports.DBTX, id, approverID uuid.UUID, reason string, at time.Time) (bool, error) {
	args := m.Called(ctx, q, id, approverID, reason, at)
	return args.Bool(0), args.Error(1)
}

// MockLedgerRepository implements ports.LedgerRepository.
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, q ports.DBTX, entry *domain.LedgerEntry) error {
	args := m.Called(ctx, q, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) SumDeltas(ctx context.Context, q ports.DBTX, shopID uuid.UUID, afterDate, throughDate time.Time) ([]domain.StockDelta, error) {
	args := m.Called(ctx, q, shopID, afterDate, throughDate)
	if d, ok := args.Get(0).([]domain.StockDelta); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerRepository) OnHand(ctx context.Context, q ports.DBTX, shopID uuid.UUID, key domain.StockKey) (decimal.Decimal, int, error) {
	args := m.Called(ctx, q, shopID, key)
	return args.Get(0).(decimal.Decimal), args.Int(1), args.Error(2)
}

func (m *MockLedgerRepository) RefExists(ctx context.Context, q ports.DBTX, refID uuid.UUID, refType string) (bool, error) {
	args := m.Called(ctx, q, refID, refType)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) ListByShop(ctx context.Context, q ports.DBTX, shopID uuid.UUID, from, to time.Time, limit, offset int) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, q, shopID, from, to, limit, offset)
	if e, ok := args.Get(0).([]domain.LedgerEntry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSalesRepository implements ports.SalesRepository.
type MockSalesRepository struct {
	mock.Mock
}

func (m *MockSalesRepository) SumByPaymentMethod(ctx context.Context, q ports.DBTX, shopID uuid.UUID, date time.Time, method domain.PaymentMethod) (decimal.Decimal, error) {
	args := m.Called(ctx, q, shopID, date, method)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockPointsRepository implements ports.PointsRepository.
type MockPointsRepository struct {
	mock.Mock
}

func (m *MockPointsRepository) Insert(ctx context.Context, q ports.DBTX, entry *domain.StaffPointsEntry) (bool, error) {
	args := m.Called(ctx, q, entry)
	return args.Bool(0), args.Error(1)
}

func (m *MockPointsRepository) Exists(ctx context.Context, q ports.DBTX, refID uuid.UUID, reason domain.PointsReason) (bool, error) {
	args := m.Called(ctx, q, refID, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockPointsRepository) SumForUser(ctx context.Context, q ports.DBTX, userID uuid.UUID, shopID uuid.UUID, from, to time.Time) (int, error) {
	args := m.Called(ctx, q, userID, shopID, from, to)
	return args.Int(0), args.Error(1)
}

func (m *MockPointsRepository) History(ctx context.Context, q ports.DBTX, filter domain.PointsFilter) ([]domain.StaffPointsEntry, error) {
	args := m.Called(ctx, q, filter)
	if e, ok := args.Get(0).([]domain.StaffPointsEntry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPointsRepository) Leaderboard(ctx context.Context, q ports.DBTX, shopID uuid.UUID, from time.Time, limit int) ([]domain.LeaderboardRow, error) {
	args := m.Called(ctx, q, shopID, from, limit)
	if r, ok := args.Get(0).([]domain.LeaderboardRow); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPointsRepository) ConfigOverrides(ctx context.Context, q ports.DBTX) (map[string]int, error) {
	args := m.Called(ctx, q)
	if c, ok := args.Get(0).(map[string]int); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockWastageRepository implements ports.WastageRepository.
type MockWastageRepository struct {
	mock.Mock
}

func (m *MockWastageRepository) Create(ctx context.Context, q ports.DBTX, rate *domain.WastageRate) error {
	args := m.Called(ctx, q, rate)
	return args.Error(0)
}

func (m *MockWastageRepository) RateFor(ctx context.Context, q ports.DBTX, birdType domain.BirdType, target domain.InventoryType, asOf time.Time) (*domain.WastageRate, error) {
	args := m.Called(ctx, q, birdType, target, asOf)
	if r, ok := args.Get(0).(*domain.WastageRate); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWastageRepository) List(ctx context.Context, q ports.DBTX, birdType domain.BirdType) ([]domain.WastageRate, error) {
	args := m.Called(ctx, q, birdType)
	if r, ok := args.Get(0).([]domain.WastageRate); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
