package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VarianceCategory says what a variance record measures. Stock variances carry
// a weight (or a bird count for LIVE); cash and UPI variances carry currency.
type VarianceCategory string

const (
	VarianceCategoryStock VarianceCategory = "STOCK"
	VarianceCategoryCash  VarianceCategory = "CASH"
	VarianceCategoryUPI   VarianceCategory = "UPI"
)

// VarianceType is the sign of a declared-vs-expected difference
type VarianceType string

const (
	VarianceTypePositive VarianceType = "POSITIVE" // declared > expected (found)
	VarianceTypeNegative VarianceType = "NEGATIVE" // declared < expected (lost)
)

// VarianceStatus is the resolution state of a variance record
type VarianceStatus string

const (
	VarianceStatusPending  VarianceStatus = "PENDING"
	VarianceStatusApproved VarianceStatus = "APPROVED" // positive variance accepted
	VarianceStatusDeducted VarianceStatus = "DEDUCTED" // negative variance written off
	VarianceStatusIgnored  VarianceStatus = "IGNORED"  // parent settlement rejected
)

// VarianceRecord is one declared-vs-expected discrepancy found at settlement
// submission. Identity (category, bird type, inventory type, magnitude) is
// immutable after creation; only Status transitions, exactly once.
type VarianceRecord struct {
	ID           uuid.UUID
	SettlementID uuid.UUID

	Category      VarianceCategory
	BirdType      BirdType      // STOCK only
	InventoryType InventoryType // STOCK only

	VarianceType VarianceType
	Expected     decimal.Decimal
	Declared     decimal.Decimal
	Magnitude    decimal.Decimal // non-negative |declared - expected|

	Status     VarianceStatus
	ResolvedBy *uuid.UUID
	ResolvedAt *time.Time
	Notes      string

	CreatedAt time.Time
}

// CountOnly reports whether the variance is a LIVE bird-count mismatch, which
// is informational: live-bird weight is not tracked, so no weight-based
// penalty applies.
func (v *VarianceRecord) CountOnly() bool {
	return v.Category == VarianceCategoryStock && v.InventoryType == InventoryTypeLive
}

// ResolutionFor maps the variance sign to its terminal status when the parent
// settlement is approved: found stock is APPROVED, lost stock is DEDUCTED.
func (v *VarianceRecord) ResolutionFor() VarianceStatus {
	if v.VarianceType == VarianceTypePositive {
		return VarianceStatusApproved
	}
	return VarianceStatusDeducted
}

// NewStockVariance builds a pending stock variance from a submit-time diff
func NewStockVariance(settlementID uuid.UUID, diff StockDiff, now time.Time) VarianceRecord {
	vt := VarianceTypePositive
	if diff.Delta.IsNegative() {
		vt = VarianceTypeNegative
	}
	return VarianceRecord{
		ID:            uuid.New(),
		SettlementID:  settlementID,
		Category:      VarianceCategoryStock,
		BirdType:      diff.Key.BirdType,
		InventoryType: diff.Key.InventoryType,
		VarianceType:  vt,
		Expected:      diff.Expected,
		Declared:      diff.Declared,
		Magnitude:     diff.Delta.Abs(),
		Status:        VarianceStatusPending,
		CreatedAt:     now,
	}
}

// NewCurrencyVariance builds a pending cash or UPI variance
func NewCurrencyVariance(settlementID uuid.UUID, category VarianceCategory, expected, declared decimal.Decimal, now time.Time) VarianceRecord {
	delta := declared.Sub(expected)
	vt := VarianceTypePositive
	if delta.IsNegative() {
		vt = VarianceTypeNegative
	}
	return VarianceRecord{
		ID:           uuid.New(),
		SettlementID: settlementID,
		Category:     category,
		VarianceType: vt,
		Expected:     expected,
		Declared:     declared,
		Magnitude:    delta.Abs(),
		Status:       VarianceStatusPending,
		CreatedAt:    now,
	}
}

// VarianceFilter narrows variance listings
type VarianceFilter struct {
	SettlementID uuid.UUID
	ShopID       uuid.UUID
	Status       VarianceStatus
	VarianceType VarianceType
	Limit        int
	Offset       int
}
