package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/domain/ports"
	"github.com/poultryops/settlement-service/pkg/observability"
)

// GetExpected returns the system-derived values a manager reconciles against.
// Reads run in one read-only transaction so cash, UPI and stock come from a
// consistent snapshot.
func (s *Service) GetExpected(ctx context.Context, userID, shopID uuid.UUID, date time.Time) (*domain.ExpectedValues, error) {
	if err := s.requireManagerOrApprover(ctx, userID, shopID); err != nil {
		return nil, err
	}

	var expected *domain.ExpectedValues
	err := s.db.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		expected = s.computeExpected(ctx, tx, shopID, dateOnly(date))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expected, nil
}

// computeExpected aggregates the three expected categories. Each category
// degrades independently: a failed query logs, appends a warning and leaves
// the value at zero, because a partial result must still allow the manager to
// declare. Stock comes from the declared sheet of the last LOCKED settlement
// plus ledger movements after that cut line.
func (s *Service) computeExpected(ctx context.Context, q ports.DBTX, shopID uuid.UUID, date time.Time) *domain.ExpectedValues {
	expected := &domain.ExpectedValues{
		Stock: domain.NewStockSheet(),
	}

	cash, err := s.sales.SumByPaymentMethod(ctx, q, shopID, date, domain.PaymentMethodCash)
	if err != nil {
		s.logger.Error("expected cash aggregation failed",
			zap.String("shop_id", shopID.String()),
			zap.Error(err),
		)
		observability.RecordAggregationFailure(shopID.String(), "cash")
		expected.Warnings = append(expected.Warnings, "cash aggregation failed; expected cash defaulted to zero")
	} else {
		expected.Cash = cash
	}

	upi, err := s.sales.SumByPaymentMethod(ctx, q, shopID, date, domain.PaymentMethodUPI)
	if err != nil {
		s.logger.Error("expected UPI aggregation failed",
			zap.String("shop_id", shopID.String()),
			zap.Error(err),
		)
		observability.RecordAggregationFailure(shopID.String(), "upi")
		expected.Warnings = append(expected.Warnings, "UPI aggregation failed; expected UPI defaulted to zero")
	} else {
		expected.UPI = upi
	}

	stock, err := s.computeExpectedStock(ctx, q, shopID, date)
	if err != nil {
		s.logger.Error("expected stock aggregation failed",
			zap.String("shop_id", shopID.String()),
			zap.Error(err),
		)
		observability.RecordAggregationFailure(shopID.String(), "stock")
		expected.Warnings = append(expected.Warnings, "stock aggregation failed; expected stock defaulted to zero")
	} else {
		expected.Stock = stock
	}

	return expected
}

// computeExpectedStock rebuilds the stock position: the cut line is the
// declared sheet of the newest LOCKED settlement before date; every ledger
// movement after that line is applied on top. With no locked history the
// ledger alone is the position.
func (s *Service) computeExpectedStock(ctx context.Context, q ports.DBTX, shopID uuid.UUID, date time.Time) (domain.StockSheet, error) {
	sheet := domain.NewStockSheet()

	var cut time.Time
	last, err := s.settlements.LastLockedBefore(ctx, q, shopID, date)
	if err != nil {
		return sheet, err
	}
	if last != nil {
		cut = last.SettlementDate
		for _, cell := range last.DeclaredStock.Cells() {
			sheet.Set(cell.Key(), cell.Value)
		}
	}

	deltas, err := s.ledger.SumDeltas(ctx, q, shopID, cut, date)
	if err != nil {
		return sheet, err
	}
	for _, d := range deltas {
		if d.Key.InventoryType == domain.InventoryTypeLive {
			sheet.Add(d.Key, intToDecimal(d.BirdCountChange))
		} else {
			sheet.Add(d.Key, d.QuantityChange)
		}
	}
	return sheet, nil
}
