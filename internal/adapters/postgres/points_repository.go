package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/domain/ports"
)

// PointsRepository is the PostgreSQL implementation of
// ports.PointsRepository. The (ref_id, reason) unique constraint backs the
// idempotency guarantee; Insert never errors on a duplicate.
type PointsRepository struct{}

func NewPointsRepository() *PointsRepository {
	return &PointsRepository{}
}

func (r *PointsRepository) Insert(ctx context.Context, q ports.DBTX, entry *domain.StaffPointsEntry) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO staff_points (
			id, user_id, shop_id, points_change, reason, reason_details,
			ref_id, ref_type, effective_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (ref_id, reason) DO NOTHING`,
		entry.ID, entry.UserID, entry.ShopID, entry.PointsChange,
		entry.Reason, nullableString(entry.ReasonDetails),
		entry.RefID, entry.RefType, entry.EffectiveDate, entry.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert points entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PointsRepository) Exists(ctx context.Context, q ports.DBTX, refID uuid.UUID, reason domain.PointsReason) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM staff_points WHERE ref_id = $1 AND reason = $2)`,
		refID, reason,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check points entry: %w", err)
	}
	return exists, nil
}

func (r *PointsRepository) SumForUser(ctx context.Context, q ports.DBTX, userID uuid.UUID, shopID uuid.UUID, from, to time.Time) (int, error) {
	query := `SELECT COALESCE(SUM(points_change), 0) FROM staff_points WHERE user_id = $1`
	args := []any{userID}
	if shopID != uuid.Nil {
		args = append(args, shopID)
		query += fmt.Sprintf(" AND shop_id = $%d", len(args))
	}
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(" AND effective_date >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(" AND effective_date <= $%d", len(args))
	}

	var total int
	if err := q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}
	return total, nil
}

func (r *PointsRepository) History(ctx context.Context, q ports.DBTX, filter domain.PointsFilter) ([]domain.StaffPointsEntry, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != uuid.Nil {
		add("user_id = $%d", filter.UserID)
	}
	if filter.ShopID != uuid.Nil {
		add("shop_id = $%d", filter.ShopID)
	}
	if !filter.FromDate.IsZero() {
		add("effective_date >= $%d", filter.FromDate)
	}
	if !filter.ToDate.IsZero() {
		add("effective_date <= $%d", filter.ToDate)
	}

	query := `
		SELECT id, user_id, shop_id, points_change, reason, reason_details,
			ref_id, ref_type, effective_date, created_at
		FROM staff_points`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY effective_date DESC, created_at DESC"

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
		return nil, fmt.Errorf("list points history: %w", err)
	}
	defer rows.Close()

	var out []domain.StaffPointsEntry
	for rows.Next() {
		var (
			e       domain.StaffPointsEntry
			details *string
		)
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.ShopID, &e.PointsChange, &e.Reason, &details,
			&e.RefID, &e.RefType, &e.EffectiveDate, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan points entry: %w", err)
		}
		if details != nil {
			e.ReasonDetails = *details
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PointsRepository) Leaderboard(ctx context.Context, q ports.DBTX, shopID uuid.UUID, from time.Time, limit int) ([]domain.LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT user_id, SUM(points_change) AS total
		FROM staff_points
		WHERE effective_date >= $1`
	args := []any{from}
	if shopID != uuid.Nil {
		args = append(args, shopID)
		query += fmt.Sprintf(" AND shop_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(`
		GROUP BY user_id
		ORDER BY total DESC, user_id
		LIMIT $%d`, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []domain.LeaderboardRow
	rank := 0
	for rows.Next() {
		var row domain.LeaderboardRow
		if err := rows.Scan(&row.UserID, &row.TotalPoints); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		rank++
		row.Rank = rank
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PointsRepository) ConfigOverrides(ctx context.Context, q ports.DBTX) (map[string]int, error) {
	rows, err := q.Query(ctx, `SELECT key, value FROM points_config WHERE active`)
	if err != nil {
		return nil, fmt.Errorf("query points config: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			key   string
			value int
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan points config row: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}
