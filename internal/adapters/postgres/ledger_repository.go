package postgres

import (
	"context"
	"errors"
	"fmt"

	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/domain/ports"
)

// LedgerRepository is the PostgreSQL implementation of
// ports.LedgerRepository. The table is append-only; there are no UPDATE or
// DELETE statements here.
type LedgerRepository struct{}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

func (r *LedgerRepository) Append(ctx context.Context, q ports.DBTX, entry *domain.LedgerEntry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO inventory_ledger (
			id, shop_id, bird_type, inventory_type,
			quantity_change, bird_count_change, reason, entry_date,
			ref_id, ref_type, recorded_by, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.ID, entry.ShopID, entry.BirdType, entry.InventoryType,
		entry.QuantityChange, entry.BirdCountChange, entry.Reason, entry.EntryDate,
		nullableUUID(entry.RefID), nullableString(entry.RefType),
		entry.RecordedBy, nullableString(entry.Notes), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (r *LedgerRepository) SumDeltas(ctx context.Context, q ports.DBTX, shopID uuid.UUID, afterDate, throughDate time.Time) ([]domain.StockDelta, error) {
	query := `
		SELECT bird_type, inventory_type,
			COALESCE(SUM(quantity_change), 0),
			COALESCE(SUM(bird_count_change), 0)
		FROM inventory_ledger
		WHERE shop_id = $1 AND entry_date <= $2`
	args := []any{shopID, throughDate}
	if !afterDate.IsZero() {
		args = append(args, afterDate)
		query += " AND entry_date > $3"
	}
	query += `
		GROUP BY bird_type, inventory_type
		ORDER BY bird_type, inventory_type`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum ledger deltas: %w", err)
	}
	defer rows.Close()

	var out []domain.StockDelta
	for rows.Next() {
		var d domain.StockDelta
		if err := rows.Scan(&d.Key.BirdType, &d.Key.InventoryType, &d.QuantityChange, &d.BirdCountChange); err != nil {
			return nil, fmt.Errorf("scan ledger delta: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *LedgerRepository) OnHand(ctx context.Context, q ports.DBTX, shopID uuid.UUID, key domain.StockKey) (decimal.Decimal, int, error) {
	var (
		weight decimal.Decimal
		count  int
	)
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_change), 0), COALESCE(SUM(bird_count_change), 0)
		FROM inventory_ledger
		WHERE shop_id = $1 AND bird_type = $2 AND inventory_type = $3`,
		shopID, key.BirdType, key.InventoryType,
	).Scan(&weight, &count)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("sum on-hand stock: %w", err)
	}
	return weight, count, nil
}

func (r *LedgerRepository) RefExists(ctx context.Context, q ports.DBTX, refID uuid.UUID, refType string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM inventory_ledger WHERE ref_id = $1 AND ref_type = $2
		)`,
		refID, refType,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check ledger ref: %w", err)
	}
	return exists, nil
}

func (r *LedgerRepository) ListByShop(ctx context.Context, q ports.DBTX, shopID uuid.UUID, from, to time.Time, limit, offset int) ([]domain.LedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := q.Query(ctx, `
		SELECT id, shop_id, bird_type, inventory_type,
			quantity_change, bird_count_change, reason, entry_date,
			ref_id, ref_type, recorded_by, notes, created_at
		FROM inventory_ledger
		WHERE shop_id = $1 AND entry_date >= $2 AND entry_date <= $3
		ORDER BY entry_date DESC, created_at DESC
		LIMIT $4 OFFSET $5`,
		shopID, from, to, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		e       domain.LedgerEntry
		refType *string
		notes   *string
	)
	err := row.Scan(
		&e.ID, &e.ShopID, &e.BirdType, &e.InventoryType,
		&e.QuantityChange, &e.BirdCountChange, &e.Reason, &e.EntryDate,
		&e.RefID, &refType, &e.RecordedBy, &notes, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	if refType != nil {
		e.RefType = *refType
	}
	if notes != nil {
		e.Notes = *notes
	}
	return &e, nil
}
