package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus is the lifecycle state of an inter-shop stock transfer
type TransferStatus string

const (
	TransferStatusSent     TransferStatus = "SENT"
	TransferStatusReceived TransferStatus = "RECEIVED"
	TransferStatusApproved TransferStatus = "APPROVED"
	TransferStatusRejected TransferStatus = "REJECTED"
)

// Valid returns true if the status is a known value
func (s TransferStatus) Valid() bool {
	switch s {
	case TransferStatusSent, TransferStatusReceived, TransferStatusApproved, TransferStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible
func (s TransferStatus) Terminal() bool {
	return s == TransferStatusApproved || s == TransferStatusRejected
}

// StockTransfer moves inventory between two shops. The ledger is touched
// exactly once, on the transition into APPROVED; RECEIVED is a physical
// acknowledgement with no ledger effect.
type StockTransfer struct {
	ID       uuid.UUID
	FromShop uuid.UUID
	ToShop   uuid.UUID

	BirdType      BirdType
	InventoryType InventoryType
	Weight        decimal.Decimal // kg, 3 decimal places
	BirdCount     int             // meaningful only for LIVE

	TransferDate time.Time
	Status       TransferStatus
	Notes        string

	InitiatedBy     uuid.UUID
	ReceivedBy      *uuid.UUID
	ReceivedAt      *time.Time
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	RejectionReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate enforces the creation invariants: distinct shops, positive weight,
// known categories, and a bird count when moving LIVE stock.
func (t *StockTransfer) Validate() error {
	if t.FromShop == t.ToShop {
		return ErrInvalidTransfer.WithDetail("reason", "source and destination shop must differ")
	}
	if !t.Weight.IsPositive() {
		return ErrInvalidTransfer.WithDetail("reason", "weight must be positive")
	}
	if !t.BirdType.Valid() {
		return ErrInvalidTransfer.WithDetail("bird_type", string(t.BirdType))
	}
	if !t.InventoryType.Valid() {
		return ErrInvalidTransfer.WithDetail("inventory_type", string(t.InventoryType))
	}
	if t.InventoryType == InventoryTypeLive && t.BirdCount <= 0 {
		return ErrInvalidTransfer.WithDetail("reason", "live transfers require a bird count")
	}
	if t.BirdCount < 0 {
		return ErrInvalidTransfer.WithDetail("reason", "bird count must be non-negative")
	}
	return nil
}

// CanReceive returns true if a destination acknowledgement is allowed
func (t *StockTransfer) CanReceive() bool {
	return t.Status == TransferStatusSent
}

// CanApprove returns true if an approver may finalize the transfer. An admin
// may approve directly from SENT, skipping the RECEIVED acknowledgement.
func (t *StockTransfer) CanApprove() bool {
	return t.Status == TransferStatusSent || t.Status == TransferStatusReceived
}

// CanReject returns true if the transfer may still be rejected
func (t *StockTransfer) CanReject() bool {
	return t.Status == TransferStatusSent || t.Status == TransferStatusReceived
}

// TransferFilter narrows transfer listings
type TransferFilter struct {
	Status   TransferStatus
	FromShop uuid.UUID
	ToShop   uuid.UUID
	FromDate time.Time
	ToDate   time.Time
	Limit    int
	Offset   int
}
