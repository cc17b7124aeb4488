package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/poultryops/settlement-service/internal/domain"
	"github.com/poultryops/settlement-service/internal/domain/ports"
)

// SettlementRepository is the PostgreSQL implementation of
// ports.SettlementRepository. Status transitions are single UPDATE statements
// guarded on the current status; rows-affected decides the CAS outcome.
type SettlementRepository struct{}

func NewSettlementRepository() *SettlementRepository {
	return &SettlementRepository{}
}

const settlementColumns = `
	id, shop_id, settlement_date, status,
	declared_cash, declared_upi, declared_stock,
	expense_amount, expense_notes, rejection_reason,
	submitted_by, submitted_at, approved_by, approved_at, locked_at,
	created_at, updated_at`

func (r *SettlementRepository) Create(ctx context.Context, q ports.DBTX, s *domain.Settlement) error {
	stockJSON, err := json.Marshal(s.DeclaredStock.Cells())
	if err != nil {
		return fmt.Errorf("marshal declared stock: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO settlements (
			id, shop_id, settlement_date, status,
			declared_cash, declared_upi, declared_stock,
			expense_amount, expense_notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		s.ID, s.ShopID, s.SettlementDate, s.Status,
		s.DeclaredCash, s.DeclaredUPI, stockJSON,
		s.ExpenseAmount, nullableString(s.ExpenseNotes),
		s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSettlement.
				WithDetail("shop_id", s.ShopID.String()).
				WithDetail("settlement_date", s.SettlementDate.Format("2006-01-02"))
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

func (r *SettlementRepository) GetByID(ctx context.Context, q ports.DBTX, id uuid.UUID) (*domain.Settlement, error) {
	row := q.QueryRow(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = $1`, id)
	s, err := scanSettlement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSettlementNotFound.WithDetail("id", id.String())
	}
	return s, err
}

func (r *SettlementRepository) GetByShopDate(ctx context.Context, q ports.DBTX, shopID uuid.UUID, date time.Time) (*domain.Settlement, error) {
	row := q.QueryRow(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE shop_id = $1 AND settlement_date = $2`,
		shopID, date)
	s, err := scanSettlement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSettlementNotFound.
			WithDetail("shop_id", shopID.String()).
			WithDetail("settlement_date", date.Format("2006-01-02"))
	}
	return s, err
}

func (r *SettlementRepository) LastLockedBefore(ctx context.Context, q ports.DBTX, shopID uuid.UUID, date time.Time) (*domain.Settlement, error) {
	row := q.QueryRow(ctx, `
		SELECT `+settlementColumns+`
		FROM settlements
		WHERE shop_id = $1 AND settlement_date < $2 AND status = $3
		ORDER BY settlement_date DESC
		LIMIT 1`,
		shopID, date, domain.SettlementStatusLocked)
	s, err := scanSettlement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// MarkSubmitted stores the declaration and stamps submission. The guard keeps
// the transition out of DRAFT or REJECTED atomic under concurrent submits. A
// backdated settlement_date colliding with another settlement of the same shop
// surfaces as a duplicate, not a database error.
func (r *SettlementRepository) MarkSubmitted(ctx context.Context, q ports.DBTX, s *domain.Settlement) (bool, error) {
	stockJSON, err := json.Marshal(s.DeclaredStock.Cells())
	if err != nil {
		return false, fmt.Errorf("marshal declared stock: %w", err)
	}

	tag, err := q.Exec(ctx, `
		UPDATE settlements SET
			status = $2,
			settlement_date = $3,
			declared_cash = $4,
			declared_upi = $5,
			declared_stock = $6,
			expense_amount = $7,
			expense_notes = $8,
			rejection_reason = NULL,
			submitted_by = $9,
			submitted_at = $10,
			updated_at = $10
		WHERE id = $1 AND status IN ($11, $12)`,
		s.ID, domain.SettlementStatusSubmitted,
		s.SettlementDate,
		s.DeclaredCash, s.DeclaredUPI, stockJSON,
		s.ExpenseAmount, nullableString(s.ExpenseNotes),
		s.SubmittedBy, s.SubmittedAt,
		domain.SettlementStatusDraft, domain.SettlementStatusRejected,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, domain.ErrDuplicateSettlement.
				WithDetail("shop_id", s.ShopID.String()).
				WithDetail("settlement_date", s.SettlementDate.Format("2006-01-02"))
		}
		return false, fmt.Errorf("mark settlement submitted: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SettlementRepository) MarkApproved(ctx context.Context, q ports.DBTX, id, approverID uuid.UUID, at time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE settlements SET
			status = $2, approved_by = $3, approved_at = $4, updated_at = $4
		WHERE id = $1 AND status = $5`,
		id, domain.SettlementStatusApproved, approverID, at, domain.SettlementStatusSubmitted)
	if err != nil {
		return false, fmt.Errorf("mark settlement approved: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SettlementRepository) MarkRejected(ctx context.Context, q ports.DBTX, id, approverID uuid.UUID, reason string, at time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE settlements SET
			status = $2, rejection_reason = $3, approved_by = $4, updated_at = $5
		WHERE id = $1 AND status = $6`,
		id, domain.SettlementStatusRejected, reason, approverID, at, domain.SettlementStatusSubmitted)
	if err != nil {
		return false, fmt.Errorf("mark settlement rejected: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SettlementRepository) MarkLocked(ctx context.Context, q ports.DBTX, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE settlements SET
			status = $2, locked_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4`,
		id, domain.SettlementStatusLocked, at, domain.SettlementStatusApproved)
	if err != nil {
		return false, fmt.Errorf("mark settlement locked: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SettlementRepository) List(ctx context.Context, q ports.DBTX, filter domain.SettlementFilter) ([]domain.Settlement, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.ShopID != uuid.Nil {
		add("shop_id = $%d", filter.ShopID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if !filter.FromDate.IsZero() {
		add("settlement_date >= $%d", filter.FromDate)
	}
	if !filter.ToDate.IsZero() {
		add("settlement_date <= $%d", filter.ToDate)
	}

	query := `SELECT ` + settlementColumns + ` FROM settlements`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY settlement_date DESC, created_at DESC"

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
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var out []domain.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SettlementRepository) ShopsWithoutSettlement(ctx context.Context, q ports.DBTX, date time.Time) ([]ports.ShopManager, error) {
	rows, err := q.Query(ctx, `
		SELECT sh.id, ss.user_id
		FROM shops sh
		JOIN shop_staff ss ON ss.shop_id = sh.id AND ss.role = 'MANAGER' AND ss.active
		WHERE sh.active
		  AND NOT EXISTS (
			SELECT 1 FROM settlements s
			WHERE s.shop_id = sh.id AND s.settlement_date = $1
		  )
		ORDER BY sh.id`,
		date)
	if err != nil {
		return nil, fmt.Errorf("query shops without settlement: %w", err)
	}
	defer rows.Close()

	var out []ports.ShopManager
	for rows.Next() {
		var sm ports.ShopManager
		if err := rows.Scan(&sm.ShopID, &sm.ManagerID); err != nil {
			return nil, fmt.Errorf("scan shop manager: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func scanSettlement(row pgx.Row) (*domain.Settlement, error) {
	var (
		s               domain.Settlement
		stockJSON       []byte
		expenseNotes    *string
		rejectionReason *string
	)
	err := row.Scan(
		&s.ID, &s.ShopID, &s.SettlementDate, &s.Status,
		&s.DeclaredCash, &s.DeclaredUPI, &stockJSON,
		&s.ExpenseAmount, &expenseNotes, &rejectionReason,
		&s.SubmittedBy, &s.SubmittedAt, &s.ApprovedBy, &s.ApprovedAt, &s.LockedAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan settlement: %w", err)
	}

	if len(stockJSON) > 0 {
		var cells []domain.StockCell
		if err := json.Unmarshal(stockJSON, &cells); err != nil {
			return nil, fmt.Errorf("unmarshal declared stock: %w", err)
		}
		s.DeclaredStock = domain.FromCells(cells)
	}
	if expenseNotes != nil {
		s.ExpenseNotes = *expenseNotes
	}
	if rejectionReason != nil {
		s.RejectionReason = *rejectionReason
	}
	return &s, nil
}
