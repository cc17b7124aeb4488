package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a sale was collected
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodUPI    PaymentMethod = "UPI"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodBank   PaymentMethod = "BANK"
	PaymentMethodCredit PaymentMethod = "CREDIT"
)

// SaleRecord is the aggregation-facing view of one sale. The settlement
// engine only reads these; sale capture itself belongs to the POS surface.
type SaleRecord struct {
	ID            uuid.UUID
	ShopID        uuid.UUID
	SaleDate      time.Time
	BirdType      BirdType
	InventoryType InventoryType
	Weight        decimal.Decimal
	Amount        decimal.Decimal // 2 decimal places
	PaymentMethod PaymentMethod
	CreatedAt     time.Time
}
