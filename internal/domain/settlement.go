package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementStatus is the lifecycle state of a daily settlement
type SettlementStatus string

const (
	SettlementStatusDraft     SettlementStatus = "DRAFT"
	SettlementStatusSubmitted SettlementStatus = "SUBMITTED"
	SettlementStatusApproved  SettlementStatus = "APPROVED"
	SettlementStatusRejected  SettlementStatus = "REJECTED"
	SettlementStatusLocked    SettlementStatus = "LOCKED"
)

// Valid returns true if the status is a known value
func (s SettlementStatus) Valid() bool {
	switch s {
	case SettlementStatusDraft, SettlementStatusSubmitted, SettlementStatusApproved,
		SettlementStatusRejected, SettlementStatusLocked:
		return true
	}
	return false
}

// Settlement is a shop's end-of-day reconciliation record for a single date.
// Expected values are never stored here; they are recomputed from the ledger
// until the settlement is LOCKED.
type Settlement struct {
	ID             uuid.UUID
	ShopID         uuid.UUID
	SettlementDate time.Time // date only, midnight UTC
	Status         SettlementStatus

	DeclaredCash  decimal.Decimal // 2 decimal places
	DeclaredUPI   decimal.Decimal // 2 decimal places
	DeclaredStock StockSheet

	ExpenseAmount decimal.Decimal
	ExpenseNotes  string

	RejectionReason string

	SubmittedBy *uuid.UUID
	SubmittedAt *time.Time
	ApprovedBy  *uuid.UUID
	ApprovedAt  *time.Time
	LockedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanSubmit returns true if a Submit is allowed from the current state.
// REJECTED settlements are editable again and may be resubmitted.
func (s *Settlement) CanSubmit() bool {
	return s.Status == SettlementStatusDraft || s.Status == SettlementStatusRejected
}

// CanApprove returns true if the settlement is awaiting approval
func (s *Settlement) CanApprove() bool {
	return s.Status == SettlementStatusSubmitted
}

// CanReject returns true if the settlement is awaiting approval
func (s *Settlement) CanReject() bool {
	return s.Status == SettlementStatusSubmitted
}

// CanLock returns true if the settlement has been approved and not yet locked
func (s *Settlement) CanLock() bool {
	return s.Status == SettlementStatusApproved
}

// IsFirstSubmission reports whether the settlement has never been submitted.
// Timeliness points are only awarded on the first submission.
func (s *Settlement) IsFirstSubmission() bool {
	return s.SubmittedAt == nil
}

// ExpectedValues is the system-derived counterpart of a declaration. Warnings
// name the categories that degraded to zero because their aggregation query
// failed; a partial result must still allow manual declaration entry.
type ExpectedValues struct {
	Cash     decimal.Decimal
	UPI      decimal.Decimal
	Stock    StockSheet
	Warnings []string
}

// Partial returns true if any category degraded to zero
func (e ExpectedValues) Partial() bool {
	return len(e.Warnings) > 0
}

// Declaration carries the values a manager physically counted at end of day
type Declaration struct {
	Cash          decimal.Decimal
	UPI           decimal.Decimal
	Stock         StockSheet
	ExpenseAmount decimal.Decimal
	ExpenseNotes  string
	// SettlementDate, when non-zero, moves the settlement date. Requires the
	// backdate capability.
	SettlementDate time.Time
}

// Validate checks amounts are non-negative and every stock cell is well formed
func (d Declaration) Validate() error {
	if d.Cash.IsNegative() || d.UPI.IsNegative() || d.ExpenseAmount.IsNegative() {
		return ErrValidationAmountInvalid.WithDetail("field", "declared amounts must be non-negative")
	}
	for _, cell := range d.Stock.Cells() {
		if err := cell.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SettlementFilter narrows settlement listings
type SettlementFilter struct {
	ShopID   uuid.UUID
	Status   SettlementStatus // empty matches all
	FromDate time.Time        // zero matches all
	ToDate   time.Time        // zero matches all
	Limit    int
	Offset   int
}
