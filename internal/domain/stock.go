package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// BirdType classifies the poultry stock a shop handles
type BirdType string

const (
	BirdTypeBroiler    BirdType = "BROILER"
	BirdTypeParentCull BirdType = "PARENT_CULL"
)

// AllBirdTypes lists every bird type in deterministic order
var AllBirdTypes = []BirdType{BirdTypeBroiler, BirdTypeParentCull}

// Valid returns true if the bird type is a known value
func (b BirdType) Valid() bool {
	return b == BirdTypeBroiler || b == BirdTypeParentCull
}

// InventoryType is the processing state of stock
type InventoryType string

const (
	InventoryTypeLive     InventoryType = "LIVE"
	InventoryTypeSkin     InventoryType = "SKIN"
	InventoryTypeSkinless InventoryType = "SKINLESS"
)

// AllInventoryTypes lists every inventory type in deterministic order
var AllInventoryTypes = []InventoryType{InventoryTypeLive, InventoryTypeSkin, InventoryTypeSkinless}

// Valid returns true if the inventory type is a known value
func (i InventoryType) Valid() bool {
	return i == InventoryTypeLive || i == InventoryTypeSkin || i == InventoryTypeSkinless
}

// QuantityKind says whether a stock value is a bird count or a weight in kg.
// LIVE stock is counted; processed stock (SKIN/SKINLESS) is weighed.
type QuantityKind string

const (
	QuantityKindCount  QuantityKind = "COUNT"
	QuantityKindWeight QuantityKind = "WEIGHT"
)

// QuantityKindFor returns the quantity kind tracked for an inventory type
func QuantityKindFor(inv InventoryType) QuantityKind {
	if inv == InventoryTypeLive {
		return QuantityKindCount
	}
	return QuantityKindWeight
}

// StockKey identifies one stock category within a shop
type StockKey struct {
	BirdType      BirdType      `json:"bird_type"`
	InventoryType InventoryType `json:"inventory_type"`
}

// Validate checks both components of the key
func (k StockKey) Validate() error {
	if !k.BirdType.Valid() {
		return ErrValidationFailed.WithDetail("bird_type", string(k.BirdType))
	}
	if !k.InventoryType.Valid() {
		return ErrValidationFailed.WithDetail("inventory_type", string(k.InventoryType))
	}
	return nil
}

func (k StockKey) String() string {
	return fmt.Sprintf("%s/%s", k.BirdType, k.InventoryType)
}

// StockCell is one declared or expected stock value. Kind is COUNT for LIVE
// (Value is a whole bird count) and WEIGHT otherwise (Value is kg, 3 decimal
// places).
type StockCell struct {
	BirdType      BirdType        `json:"bird_type"`
	InventoryType InventoryType   `json:"inventory_type"`
	Kind          QuantityKind    `json:"kind"`
	Value         decimal.Decimal `json:"value"`
}

// Key returns the cell's stock key
func (c StockCell) Key() StockKey {
	return StockKey{BirdType: c.BirdType, InventoryType: c.InventoryType}
}

// Validate checks the cell is well formed: known key, kind matching the
// inventory type, non-negative value, and an integral value for counts.
func (c StockCell) Validate() error {
	if err := c.Key().Validate(); err != nil {
		return err
	}
	if c.Kind != QuantityKindFor(c.InventoryType) {
		return ErrValidationFailed.
			WithDetail("kind", string(c.Kind)).
			WithDetail("inventory_type", string(c.InventoryType))
	}
	if c.Value.IsNegative() {
		return ErrValidationAmountInvalid.WithDetail("value", c.Value.String())
	}
	if c.Kind == QuantityKindCount && !c.Value.Equal(c.Value.Truncate(0)) {
		return ErrValidationFailed.WithDetail("value", "bird count must be a whole number")
	}
	return nil
}

// StockSheet holds one value per stock key. The zero value is usable.
type StockSheet struct {
	cells map[StockKey]decimal.Decimal
}

// NewStockSheet returns an empty sheet
func NewStockSheet() StockSheet {
	return StockSheet{cells: make(map[StockKey]decimal.Decimal)}
}

// Set records the value for a key, replacing any previous value
func (s *StockSheet) Set(key StockKey, value decimal.Decimal) {
	if s.cells == nil {
		s.cells = make(map[StockKey]decimal.Decimal)
	}
	s.cells[key] = value
}

// Add accumulates onto the value for a key
func (s *StockSheet) Add(key StockKey, delta decimal.Decimal) {
	if s.cells == nil {
		s.cells = make(map[StockKey]decimal.Decimal)
	}
	s.cells[key] = s.cells[key].Add(delta)
}

// Get returns the value for a key, zero if absent
func (s StockSheet) Get(key StockKey) decimal.Decimal {
	return s.cells[key]
}

// Len returns the number of populated cells
func (s StockSheet) Len() int {
	return len(s.cells)
}

// Cells returns the sheet as a sorted slice of tagged cells
func (s StockSheet) Cells() []StockCell {
	out := make([]StockCell, 0, len(s.cells))
	for key, value := range s.cells {
		out = append(out, StockCell{
			BirdType:      key.BirdType,
			InventoryType: key.InventoryType,
			Kind:          QuantityKindFor(key.InventoryType),
			Value:         value,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BirdType != out[j].BirdType {
			return out[i].BirdType < out[j].BirdType
		}
		return out[i].InventoryType < out[j].InventoryType
	})
	return out
}

// FromCells builds a sheet from tagged cells. Later cells win on duplicate keys.
func FromCells(cells []StockCell) StockSheet {
	s := NewStockSheet()
	for _, c := range cells {
		s.Set(c.Key(), c.Value)
	}
	return s
}

// StockDiff is a single declared-vs-expected difference
type StockDiff struct {
	Key      StockKey
	Expected decimal.Decimal
	Declared decimal.Decimal
	Delta    decimal.Decimal // declared - expected
}

// Diff compares a declared sheet against an expected sheet over the union of
// their keys. Keys where the values match carry no entry in the result.
func (s StockSheet) Diff(expected StockSheet) []StockDiff {
	keys := make(map[StockKey]struct{}, len(s.cells)+len(expected.cells))
	for k := range s.cells {
		keys[k] = struct{}{}
	}
	for k := range expected.cells {
		keys[k] = struct{}{}
	}

	diffs := make([]StockDiff, 0, len(keys))
	for k := range keys {
		declared := s.Get(k)
		exp := expected.Get(k)
		if declared.Equal(exp) {
			continue
		}
		diffs = append(diffs, StockDiff{
			Key:      k,
			Expected: exp,
			Declared: declared,
			Delta:    declared.Sub(exp),
		})
	}
	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].Key.BirdType != diffs[j].Key.BirdType {
			return diffs[i].Key.BirdType < diffs[j].Key.BirdType
		}
		return diffs[i].Key.InventoryType < diffs[j].Key.InventoryType
	})
	return diffs
}
