package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/domain/ports"
)

// VarianceRepository is the PostgreSQL implementation of
// ports.VarianceRepository
type VarianceRepository struct{}

func NewVarianceRepository() *VarianceRepository {
	return &VarianceRepository{}
}

const varianceColumns = `
	id, settlement_id, category, bird_type, inventory_type,
	variance_type, expected, declared, magnitude,
	status, resolved_by, resolved_at, notes, created_at`

func (r *VarianceRepository) CreateBatch(ctx context.Context, q ports.DBTX, records []domain.VarianceRecord) error {
	for i := range records {
		v := &records[i]
		_, err := q.Exec(ctx, `
			INSERT INTO variance_records (
				id, settlement_id, category, bird_type, inventory_type,
				variance_type, expected, declared, magnitude,
				status, notes, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			v.ID, v.SettlementID, v.Category,
			nullableString(string(v.BirdType)), nullableString(string(v.InventoryType)),
			v.VarianceType, v.Expected, v.Declared, v.Magnitude,
			v.Status, nullableString(v.Notes), v.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert variance record: %w", err)
		}
	}
	return nil
}

func (r *VarianceRepository) GetByID(ctx context.Context, q ports.DBTX, id uuid.UUID) (*domain.VarianceRecord, error) {
	row := q.QueryRow(ctx, `SELECT `+varianceColumns+` FROM variance_records WHERE id = $1`, id)
	v, err := scanVariance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrVarianceNotFound.WithDetail("id", id.String())
	}
	return v, err
}

func (r *VarianceRepository) ListBySettlement(ctx context.Context, q ports.DBTX, settlementID uuid.UUID) ([]domain.VarianceRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT `+varianceColumns+`
		FROM variance_records
		WHERE settlement_id = $1
		ORDER BY category, bird_type, inventory_type`,
		settlementID)
	if err != nil {
		return nil, fmt.Errorf("list variances by settlement: %w", err)
	}
	defer rows.Close()
	return collectVariances(rows)
}

func (r *VarianceRepository) List(ctx context.Context, q ports.DBTX, filter domain.VarianceFilter) ([]domain.VarianceRecord, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.SettlementID != uuid.Nil {
		add("v.settlement_id = $%d", filter.SettlementID)
	}
	if filter.ShopID != uuid.Nil {
		add("s.shop_id = $%d", filter.ShopID)
	}
	if filter.Status != "" {
		add("v.status = $%d", filter.Status)
	}
	if filter.VarianceType != "" {
		add("v.variance_type = $%d", filter.VarianceType)
	}

	query := `
		SELECT v.id, v.settlement_id, v.category, v.bird_type, v.inventory_type,
			v.variance_type, v.expected, v.declared, v.magnitude,
			v.status, v.resolved_by, v.resolved_at, v.notes, v.created_at
		FROM variance_records v
		JOIN settlements s ON s.id = v.settlement_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY v.created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list variances: %w", err)
	}
	defer rows.Close()
	return collectVariances(rows)
}

// Resolve is the single exit from PENDING. Rows-affected zero means another
// resolver got there first.
func (r *VarianceRepository) Resolve(ctx context.Context, q ports.DBTX, id uuid.UUID, status domain.VarianceStatus, resolvedBy uuid.UUID, at time.Time, notes string) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE variance_records SET
			status = $2, resolved_by = $3, resolved_at = $4,
			notes = COALESCE($5, notes)
		WHERE id = $1 AND status = $6`,
		id, status, resolvedBy, at, nullableString(notes), domain.VarianceStatusPending)
	if err != nil {
		return false, fmt.Errorf("resolve variance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// NegativeVarianceDays counts only DEDUCTED variances. PENDING rows are not
// yet confirmed by an approver and IGNORED rows belong to rejected
// submissions; neither may feed the repeated-negative penalty.
func (r *VarianceRepository) NegativeVarianceDays(ctx context.Context, q ports.DBTX, from, to time.Time) ([]ports.NegativeVarianceDay, error) {
	rows, err := q.Query(ctx, `
		SELECT DISTINCT s.submitted_by, s.shop_id, s.settlement_date, s.id
		FROM variance_records v
		JOIN settlements s ON s.id = v.settlement_id
		WHERE v.variance_type = $1
		  AND v.status = $2
		  AND s.submitted_by IS NOT NULL
		  AND s.settlement_date BETWEEN $3 AND $4
		ORDER BY s.submitted_by, s.shop_id, s.settlement_date`,
		domain.VarianceTypeNegative, domain.VarianceStatusDeducted, from, to)
	if err != nil {
		return nil, fmt.Errorf("query negative variance days: %w", err)
	}
	defer rows.Close()

	var out []ports.NegativeVarianceDay
	for rows.Next() {
		var d ports.NegativeVarianceDay
		if err := rows.Scan(&d.UserID, &d.ShopID, &d.Date, &d.SettlementID); err != nil {
			return nil, fmt.Errorf("scan negative variance day: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanVariance(row pgx.Row) (*domain.VarianceRecord, error) {
	var (
		v             domain.VarianceRecord
		birdType      *string
		inventoryType *string
		notes         *string
	)
	err := row.Scan(
		&v.ID, &v.SettlementID, &v.Category, &birdType, &inventoryType,
		&v.VarianceType, &v.Expected, &v.Declared, &v.Magnitude,
		&v.Status, &v.ResolvedBy, &v.ResolvedAt, &notes, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan variance record: %w", err)
	}
	if birdType != nil {
		v.BirdType = domain.BirdType(*birdType)
	}
	if inventoryType != nil {
		v.InventoryType = domain.InventoryType(*inventoryType)
	}
	if notes != nil {
		v.Notes = *notes
	}
	return &v, nil
}

func collectVariances(rows pgx.Rows) ([]domain.VarianceRecord, error) {
	var out []domain.VarianceRecord
	for rows.Next() {
		v, err := scanVariance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}
