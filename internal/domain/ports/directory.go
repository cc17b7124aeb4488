package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ShopDirectory resolves authorization questions against the shop/role
// directory. The directory itself is an external boundary; this service only
// consumes answers.
type ShopDirectory interface {
	IsManagerOf(ctx context.Context, userID, shopID uuid.UUID) (bool, error)
	IsApprover(ctx context.Context, userID uuid.UUID) (bool, error)
	HasBackdateCapability(ctx context.Context, userID uuid.UUID) (bool, error)
	// ShopTimezone returns an IANA timezone name, e.g. "Asia/Kolkata"
	ShopTimezone(ctx context.Context, shopID uuid.UUID) (string, error)
}

// Clock supplies the current instant. Reconciliation logic never reads the
// process clock directly so behavior stays deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time { return time.Now().UTC() }
