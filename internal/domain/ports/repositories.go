package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poultryops/settlement-service/internal/domain"
)

// SettlementRepository persists settlements. Status transitions are
// compare-and-swap on the current status: the bool result is false when the
// row was not in the expected state, which is how concurrent approvers lose
// the race without double-applying side effects.
type SettlementRepository interface {
	Create(ctx context.Context, q DBTX, s *domain.Settlement) error
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Settlement, error)
	GetByShopDate(ctx context.Context, q DBTX, shopID uuid.UUID, date time.Time) (*domain.Settlement, error)

	// LastLockedBefore returns the most recent LOCKED settlement strictly
	// before date, or nil when none exists. Its declared stock is the cut
	// line for expected-stock computation.
	LastLockedBefore(ctx context.Context, q DBTX, shopID uuid.UUID, date time.Time) (*domain.Settlement, error)

	// MarkSubmitted stores the declaration and stamps submission, guarded on
	// the row still being in DRAFT or REJECTED
	MarkSubmitted(ctx context.Context, q DBTX, s *domain.Settlement) (bool, error)
	MarkApproved(ctx context.Context, q DBTX, id, approverID uuid.UUID, at time.Time) (bool, error)
	MarkRejected(ctx context.Context, q DBTX, id, approverID uuid.UUID, reason string, at time.Time) (bool, error)
	MarkLocked(ctx context.Context, q DBTX, id uuid.UUID, at time.Time) (bool, error)

	List(ctx context.Context, q DBTX, filter domain.SettlementFilter) ([]domain.Settlement, error)

	// ShopsWithoutSettlement returns active shop IDs with no settlement row
	// for the given date, with the assigned manager of each
	ShopsWithoutSettlement(ctx context.Context, q DBTX, date time.Time) ([]ShopManager, error)
}

// ShopManager pairs a shop with its assigned manager
type ShopManager struct {
	ShopID    uuid.UUID
	ManagerID uuid.UUID
}

// VarianceRepository persists variance records
type VarianceRepository interface {
	CreateBatch(ctx context.Context, q DBTX, records []domain.VarianceRecord) error
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*domain.VarianceRecord, error)
	ListBySettlement(ctx context.Context, q DBTX, settlementID uuid.UUID) ([]domain.VarianceRecord, error)
	List(ctx context.Context, q DBTX, filter domain.VarianceFilter) ([]domain.VarianceRecord, error)

	// Resolve transitions one record out of PENDING; false when the record
	// was already resolved
	Resolve(ctx context.Context, q DBTX, id uuid.UUID, status domain.VarianceStatus, resolvedBy uuid.UUID, at time.Time, notes string) (bool, error)

	// NegativeVarianceDays lists, per submitter and shop, the distinct
	// settlement dates in [from, to] that carry at least one DEDUCTED
	// negative variance. Used by the repeated-negative scan.
	NegativeVarianceDays(ctx context.Context, q DBTX, from, to time.Time) ([]NegativeVarianceDay, error)
}

// NegativeVarianceDay is one (user, shop, date) with a negative variance
type NegativeVarianceDay struct {
	UserID       uuid.UUID
	ShopID       uuid.UUID
	Date         time.Time
	SettlementID uuid.UUID
}

// TransferRepository persists stock transfers with CAS transitions
type TransferRepository interface {
	Create(ctx context.Context, q DBTX, t *domain.StockTransfer) error
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*domain.StockTransfer, error)
	List(ctx context.Context, q DBTX, filter domain.TransferFilter) ([]domain.StockTransfer, error)

	MarkReceived(ctx context.Context, q DBTX, id, receiverID uuid.UUID, at time.Time) (bool, error)
	// MarkApproved succeeds from SENT or RECEIVED
	MarkApproved(ctx context.Context, q DBTX, id, approverID uuid.UUID, at time.Time) (bool, error)
	MarkRejected(ctx context.Context, q DBTX, id, approverID uuid.UUID, reason string, at time.Time) (bool, error)
}

// LedgerRepository appends to and aggregates the inventory ledger
type LedgerRepository interface {
	Append(ctx context.Context, q DBTX, entry *domain.LedgerEntry) error

	// SumDeltas aggregates signed movements per stock key with entry_date in
	// (afterDate, throughDate]. A zero afterDate means from epoch.
	SumDeltas(ctx context.Context, q DBTX, shopID uuid.UUID, afterDate, throughDate time.Time) ([]domain.StockDelta, error)

	// OnHand returns current stock for one key (all-time sum)
	OnHand(ctx context.Context, q DBTX, shopID uuid.UUID, key domain.StockKey) (decimal.Decimal, int, error)

	// RefExists reports whether any entry carries the reference
	RefExists(ctx context.Context, q DBTX, refID uuid.UUID, refType string) (bool, error)

	ListByShop(ctx context.Context, q DBTX, shopID uuid.UUID, from, to time.Time, limit, offset int) ([]domain.LedgerEntry, error)
}

// SalesRepository is the read-only sales projection the aggregator sums over
type SalesRepository interface {
	// SumByPaymentMethod totals a shop's sales for one date and method
	SumByPaymentMethod(ctx context.Context, q DBTX, shopID uuid.UUID, date time.Time, method domain.PaymentMethod) (decimal.Decimal, error)
}

// PointsRepository persists staff points entries
type PointsRepository interface {
	// Insert writes one entry guarded by the (ref_id, reason) idempotency
	// key; returns false (and no error) when an entry for that key already
	// exists
	Insert(ctx context.Context, q DBTX, entry *domain.StaffPointsEntry) (bool, error)
	Exists(ctx context.Context, q DBTX, refID uuid.UUID, reason domain.PointsReason) (bool, error)

	SumForUser(ctx context.Context, q DBTX, userID uuid.UUID, shopID uuid.UUID, from, to time.Time) (int, error)
	History(ctx context.Context, q DBTX, filter domain.PointsFilter) ([]domain.StaffPointsEntry, error)
	Leaderboard(ctx context.Context, q DBTX, shopID uuid.UUID, from time.Time, limit int) ([]domain.LeaderboardRow, error)

	// ConfigOverrides reads the points config table; missing keys keep their
	// defaults
	ConfigOverrides(ctx context.Context, q DBTX) (map[string]int, error)
}

// WastageRepository stores the versioned wastage table
type WastageRepository interface {
	Create(ctx context.Context, q DBTX, rate *domain.WastageRate) error
	// RateFor picks the latest active rate effective on or before asOf
	RateFor(ctx context.Context, q DBTX, birdType domain.BirdType, target domain.InventoryType, asOf time.Time) (*domain.WastageRate, error)
	List(ctx context.Context, q DBTX, birdType domain.BirdType) ([]domain.WastageRate, error)
}
