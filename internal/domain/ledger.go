package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerReason codes every stock-affecting event. Positive quantity changes
// are credits, negative are debits; the sign lives on the quantity itself.
type LedgerReason string

const (
	LedgerReasonPurchaseReceived LedgerReason = "PURCHASE_RECEIVED"
	LedgerReasonProcessingDebit  LedgerReason = "PROCESSING_DEBIT"
	LedgerReasonProcessingCredit LedgerReason = "PROCESSING_CREDIT"
	LedgerReasonSaleDebit        LedgerReason = "SALE_DEBIT"
	LedgerReasonTransferOut      LedgerReason = "TRANSFER_OUT"
	LedgerReasonTransferIn       LedgerReason = "TRANSFER_IN"
	LedgerReasonVariancePositive LedgerReason = "VARIANCE_POSITIVE"
	LedgerReasonVarianceNegative LedgerReason = "VARIANCE_NEGATIVE"
	LedgerReasonWastage          LedgerReason = "WASTAGE"
	LedgerReasonAdjustmentCredit LedgerReason = "ADJUSTMENT_CREDIT"
	LedgerReasonAdjustmentDebit  LedgerReason = "ADJUSTMENT_DEBIT"
	LedgerReasonOpeningBalance   LedgerReason = "OPENING_BALANCE"
)

// LedgerEntry is one append-only stock movement. Entries are never updated or
// deleted; corrections are new entries.
type LedgerEntry struct {
	ID     uuid.UUID
	ShopID uuid.UUID

	BirdType      BirdType
	InventoryType InventoryType

	QuantityChange  decimal.Decimal // signed kg, 3 decimal places
	BirdCountChange int             // signed, LIVE only

	Reason    LedgerReason
	EntryDate time.Time // business date the movement belongs to

	RefID   *uuid.UUID
	RefType string

	RecordedBy uuid.UUID
	Notes      string
	CreatedAt  time.Time
}

// Validate checks the entry is well formed
func (e *LedgerEntry) Validate() error {
	if !e.BirdType.Valid() {
		return ErrValidationFailed.WithDetail("bird_type", string(e.BirdType))
	}
	if !e.InventoryType.Valid() {
		return ErrValidationFailed.WithDetail("inventory_type", string(e.InventoryType))
	}
	if e.QuantityChange.IsZero() && e.BirdCountChange == 0 {
		return ErrValidationFailed.WithDetail("reason", "entry must move weight or count")
	}
	return nil
}

// StockDelta is an aggregated ledger movement for one stock key over a window
type StockDelta struct {
	Key             StockKey
	QuantityChange  decimal.Decimal
	BirdCountChange int
}
