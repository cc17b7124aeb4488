package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/poultryops/settlement-service/internal/domain/ports"
)

// ShopDirectory answers identity questions from the shops and shop_staff
// tables. Role data changes rarely; queries here stay outside the write
// transactions.
type ShopDirectory struct {
	db ports.DBPort
}

func NewShopDirectory(db ports.DBPort) *ShopDirectory {
	return &ShopDirectory{db: db}
}

// IsManagerOf reports whether the user is an active manager of the shop
func (d *ShopDirectory) IsManagerOf(ctx context.Context, userID, shopID uuid.UUID) (bool, error) {
	var ok bool
	err := d.db.Querier().QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM shop_staff
			WHERE user_id = $1 AND shop_id = $2 AND role = 'MANAGER' AND active
		)`,
		userID, shopID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check manager role: %w", err)
	}
	return ok, nil
}

// IsApprover reports whether the user holds an approver role. Approvers are
// not shop-scoped; OWNER and ADMIN approve for every shop.
func (d *ShopDirectory) IsApprover(ctx context.Context, userID uuid.UUID) (bool, error) {
	var ok bool
	err := d.db.Querier().QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM shop_staff
			WHERE user_id = $1 AND role IN ('OWNER', 'ADMIN') AND active
		)`,
		userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check approver role: %w", err)
	}
	return ok, nil
}

// HasBackdateCapability reports whether the user may move a settlement date
func (d *ShopDirectory) HasBackdateCapability(ctx context.Context, userID uuid.UUID) (bool, error) {
	var ok bool
	err := d.db.Querier().QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM shop_staff
			WHERE user_id = $1 AND role = 'OWNER' AND active
		)`,
		userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check backdate capability: %w", err)
	}
	return ok, nil
}

// ShopTimezone returns the shop's IANA timezone name, defaulting to UTC when
// the shop has none configured
func (d *ShopDirectory) ShopTimezone(ctx context.Context, shopID uuid.UUID) (string, error) {
	var tz *string
	err := d.db.Querier().QueryRow(ctx,
		`SELECT timezone FROM shops WHERE id = $1`, shopID).Scan(&tz)
	if errors.Is(err, pgx.ErrNoRows) {
		return "UTC", nil
	}
	if err != nil {
		return "", fmt.Errorf("query shop timezone: %w", err)
	}
	if tz == nil || *tz == "" {
		return "UTC", nil
	}
	return *tz, nil
}
