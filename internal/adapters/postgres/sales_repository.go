package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/domain/ports"
)

// SalesRepository reads the sales projection the settlement aggregator sums
// over. This service never writes sales.
type SalesRepository struct{}

func NewSalesRepository() *SalesRepository {
	return &SalesRepository{}
}

func (r *SalesRepository) SumByPaymentMethod(ctx context.Context, q ports.DBTX, shopID uuid.UUID, date time.Time, method domain.PaymentMethod) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM sales
		WHERE shop_id = $1 AND sale_date = $2 AND payment_method = $3`,
		shopID, date, method,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum sales by payment method: %w", err)
	}
	return total, nil
}
