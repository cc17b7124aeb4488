package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/domain/ports"
)

// WastageRepository stores the versioned wastage percentage table
type WastageRepository struct{}

func NewWastageRepository() *WastageRepository {
	return &WastageRepository{}
}

func (r *WastageRepository) Create(ctx context.Context, q ports.DBTX, rate *domain.WastageRate) error {
	_, err := q.Exec(ctx, `
		INSERT INTO wastage_rates (
			id, bird_type, target_inventory_type, percentage,
			effective_date, active, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rate.ID, rate.BirdType, rate.TargetInventoryType, rate.Percentage,
		rate.EffectiveDate, rate.Active, nullableUUID(rate.CreatedBy), rate.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wastage rate: %w", err)
	}
	return nil
}

// RateFor picks the newest active rate effective on or before asOf
func (r *WastageRepository) RateFor(ctx context.Context, q ports.DBTX, birdType domain.BirdType, target domain.InventoryType, asOf time.Time) (*domain.WastageRate, error) {
	var rate domain.WastageRate
	err := q.QueryRow(ctx, `
		SELECT id, bird_type, target_inventory_type, percentage,
			effective_date, active, created_by, created_at
		FROM wastage_rates
		WHERE bird_type = $1 AND target_inventory_type = $2
		  AND active AND effective_date <= $3
		ORDER BY effective_date DESC, created_at DESC
		LIMIT 1`,
		birdType, target, asOf,
	).Scan(
		&rate.ID, &rate.BirdType, &rate.TargetInventoryType, &rate.Percentage,
		&rate.EffectiveDate, &rate.Active, &rate.CreatedBy, &rate.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWastageRateNotFound.
			WithDetail("bird_type", string(birdType)).
			WithDetail("target_inventory_type", string(target))
	}
	if err != nil {
		return nil, fmt.Errorf("query wastage rate: %w", err)
	}
	return &rate, nil
}

func (r *WastageRepository) List(ctx context.Context, q ports.DBTX, birdType domain.BirdType) ([]domain.WastageRate, error) {
	rows, err := q.Query(ctx, `
		SELECT id, bird_type, target_inventory_type, percentage,
			effective_date, active, created_by, created_at
		FROM wastage_rates
		WHERE bird_type = $1
		ORDER BY target_inventory_type, effective_date DESC`,
		birdType)
	if err != nil {
		return nil, fmt.Errorf("list wastage rates: %w", err)
	}
	defer rows.Close()

	var out []domain.WastageRate
	for rows.Next() {
		var rate domain.WastageRate
		if err := rows.Scan(
			&rate.ID, &rate.BirdType, &rate.TargetInventoryType, &rate.Percentage,
			&rate.EffectiveDate, &rate.Active, &rate.CreatedBy, &rate.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan wastage rate: %w", err)
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}
