package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WastageRate is a versioned percentage loss applied when converting live-bird
// weight into a processed category. Lookups pick the latest rate whose
// effective date is on or before the processing date.
type WastageRate struct {
	ID                  uuid.UUID
	BirdType            BirdType
	TargetInventoryType InventoryType // SKIN or SKINLESS
	Percentage          decimal.Decimal // [0,100), 2 decimal places
	EffectiveDate       time.Time
	Active              bool
	CreatedBy           *uuid.UUID
	CreatedAt           time.Time
}

// Validate checks the rate is well formed
func (w *WastageRate) Validate() error {
	if !w.BirdType.Valid() {
		return ErrValidationFailed.WithDetail("bird_type", string(w.BirdType))
	}
	if w.TargetInventoryType != InventoryTypeSkin && w.TargetInventoryType != InventoryTypeSkinless {
		return ErrValidationFailed.WithDetail("target_inventory_type", "must be SKIN or SKINLESS")
	}
	if w.Percentage.IsNegative() || w.Percentage.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return ErrValidationAmountInvalid.WithDetail("percentage", w.Percentage.String())
	}
	return nil
}

var oneHundred = decimal.NewFromInt(100)

// YieldResult is the outcome of applying a wastage rate to a live input weight
type YieldResult struct {
	InputWeight       decimal.Decimal
	WastagePercentage decimal.Decimal
	WastageWeight     decimal.Decimal
	OutputWeight      decimal.Decimal
}

// ApplyWastage converts a live input weight into processed output weight.
// Weights are kept at 3 decimal places; the wastage share absorbs rounding so
// input = output + wastage holds exactly.
func ApplyWastage(inputWeight, percentage decimal.Decimal) YieldResult {
	wastage := inputWeight.Mul(percentage).Div(oneHundred).Round(3)
	return YieldResult{
		InputWeight:       inputWeight,
		WastagePercentage: percentage,
		WastageWeight:     wastage,
		OutputWeight:      inputWeight.Sub(wastage),
	}
}
