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

// TransferRepository is the PostgreSQL implementation of
// ports.TransferRepository
type TransferRepository struct{}

func NewTransferRepository() *TransferRepository {
	return &TransferRepository{}
}

const transferColumns = `
	id, from_shop_id, to_shop_id, bird_type, inventory_type,
	weight, bird_count, transfer_date, status, notes,
	initiated_by, received_by, received_at, approved_by, approved_at,
	rejection_reason, created_at, updated_at`

func (r *TransferRepository) Create(ctx context.Context, q ports.DBTX, t *domain.StockTransfer) error {
	_, err := q.Exec(ctx, `
		INSERT INTO stock_transfers (
			id, from_shop_id, to_shop_id, bird_type, inventory_type,
			weight, bird_count, transfer_date, status, notes,
			initiated_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		t.ID, t.FromShop, t.ToShop, t.BirdType, t.InventoryType,
		t.Weight, t.BirdCount, t.TransferDate, t.Status, nullableString(t.Notes),
		t.InitiatedBy, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock transfer: %w", err)
	}
	return nil
}

func (r *TransferRepository) GetByID(ctx context.Context, q ports.DBTX, id uuid.UUID) (*domain.StockTransfer, error) {
	row := q.QueryRow(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1`, id)
	t, err := scanTransfer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransferNotFound.WithDetail("id", id.String())
	}
	return t, err
}

func (r *TransferRepository) List(ctx context.Context, q ports.DBTX, filter domain.TransferFilter) ([]domain.StockTransfer, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.FromShop != uuid.Nil {
		add("from_shop_id = $%d", filter.FromShop)
	}
	if filter.ToShop != uuid.Nil {
		add("to_shop_id = $%d", filter.ToShop)
	}
	if !filter.FromDate.IsZero() {
		add("transfer_date >= $%d", filter.FromDate)
	}
	if !filter.ToDate.IsZero() {
		add("transfer_date <= $%d", filter.ToDate)
	}

	query := `SELECT ` + transferColumns + ` FROM stock_transfers`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY transfer_date DESC, created_at DESC"

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
		return nil, fmt.Errorf("list stock transfers: %w", err)
	}
	defer rows.Close()

	var out []domain.StockTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TransferRepository) MarkReceived(ctx context.Context, q ports.DBTX, id, receiverID uuid.UUID, at time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE stock_transfers SET
			status = $2, received_by = $3, received_at = $4, updated_at = $4
		WHERE id = $1 AND status = $5`,
		id, domain.TransferStatusReceived, receiverID, at, domain.TransferStatusSent)
	if err != nil {
		return false, fmt.Errorf("mark transfer received: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkApproved succeeds from SENT or RECEIVED. The ledger pair is written by
// the caller inside the same transaction, so rows-affected zero means the
// entire approval is skipped.
func (r *TransferRepository) MarkApproved(ctx context.Context, q ports.DBTX, id, approverID uuid.UUID, at time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE stock_transfers SET
			status = $2, approved_by = $3, approved_at = $4, updated_at = $4
		WHERE id = $1 AND status IN ($5, $6)`,
		id, domain.TransferStatusApproved, approverID, at,
		domain.TransferStatusSent, domain.TransferStatusReceived)
	if err != nil {
		return false, fmt.Errorf("mark transfer approved: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TransferRepository) MarkRejected(ctx context.Context, q ports.DBTX, id, approverID uuid.UUID, reason string, at time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE stock_transfers SET
			status = $2, approved_by = $3, rejection_reason = $4, updated_at = $5
		WHERE id = $1 AND status IN ($6, $7)`,
		id, domain.TransferStatusRejected, approverID, reason, at,
		domain.TransferStatusSent, domain.TransferStatusReceived)
	if err != nil {
		return false, fmt.Errorf("mark transfer rejected: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanTransfer(row pgx.Row) (*domain.StockTransfer, error) {
	var (
		t               domain.StockTransfer
		notes           *string
		rejectionReason *string
	)
	err := row.Scan(
		&t.ID, &t.FromShop, &t.ToShop, &t.BirdType, &t.InventoryType,
		&t.Weight, &t.BirdCount, &t.TransferDate, &t.Status, &notes,
		&t.InitiatedBy, &t.ReceivedBy, &t.ReceivedAt, &t.ApprovedBy, &t.ApprovedAt,
		&rejectionReason, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan stock transfer: %w", err)
	}
	if notes != nil {
		t.Notes = *notes
	}
	if rejectionReason != nil {
		t.RejectionReason = *rejectionReason
	}
	return &t, nil
}
