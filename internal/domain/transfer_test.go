package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// TestStockTransfer_Validate tests creation invariants
func TestStockTransfer_Validate(t *testing.T) {
	shopA := uuid.New()
	shopB := uuid.New()

	base := func() *StockTransfer {
		return &StockTransfer{
			FromShop:      shopA,
			ToShop:        shopB,
			BirdType:      BirdTypeBroiler,
			InventoryType: InventoryTypeSkinless,
			Weight:        decimal.RequireFromString("5.500"),
		}
	}

	tests := []struct {
		name        string
		mutate      func(*StockTransfer)
		expectError bool
	}{
		{"valid processed transfer", func(t *StockTransfer) {}, false},
		{"valid live transfer", func(t *StockTransfer) {
			t.InventoryType = InventoryTypeLive
			t.BirdCount = 10
		}, false},
		{"same shop", func(t *StockTransfer) { t.ToShop = t.FromShop }, true},
		{"zero weight", func(t *StockTransfer) { t.Weight = decimal.Zero }, true},
		{"negative weight", func(t *StockTransfer) { t.Weight = decimal.RequireFromString("-1") }, true},
		{"unknown bird type", func(t *StockTransfer) { t.BirdType = "GOOSE" }, true},
		{"live without bird count", func(t *StockTransfer) { t.InventoryType = InventoryTypeLive }, true},
		{"negative bird count", func(t *StockTransfer) { t.BirdCount = -2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transfer := base()
			tt.mutate(transfer)
			err := transfer.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransferStatus_Transitions(t *testing.T) {
	sent := &StockTransfer{Status: TransferStatusSent}
	assert.True(t, sent.CanReceive())
	assert.True(t, sent.CanApprove())
	assert.True(t, sent.CanReject())

	received := &StockTransfer{Status: TransferStatusReceived}
	assert.False(t, received.CanReceive())
	assert.True(t, received.CanApprove())
	assert.True(t, received.CanReject())

	approved := &StockTransfer{Status: TransferStatusApproved}
	assert.False(t, approved.CanApprove())
	assert.False(t, approved.CanReject())
	assert.True(t, approved.Status.Terminal())

	rejected := &StockTransfer{Status: TransferStatusRejected}
	assert.True(t, rejected.Status.Terminal())
	assert.False(t, TransferStatusSent.Terminal())
}
