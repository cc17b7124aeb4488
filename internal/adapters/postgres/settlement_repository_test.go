package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poultryops/settlement-service/internal/domain"
)

// recordingExecutor captures the statement and arguments handed to the
// driver and returns the configured outcome.
type recordingExecutor struct {
	query    string
	args     []any
	execErr  error
	queryErr error
}

func (e *recordingExecutor) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.query = sql
	e.args = args
	return pgconn.CommandTag{}, e.execErr
}

func (e *recordingExecutor) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	e.query = sql
	e.args = args
	return nil, e.queryErr
}

func (e *recordingExecutor) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	e.query = sql
	e.args = args
	return nil
}

// TestMarkSubmitted_DuplicateDateIsConflict: a backdated submission that
// lands on another settlement's (shop, date) violates the unique constraint
// and must read as a duplicate, not an opaque database error.
func TestMarkSubmitted_DuplicateDateIsConflict(t *testing.T) {
	repo := NewSettlementRepository()
	exec := &recordingExecutor{execErr: &pgconn.PgError{Code: "23505", ConstraintName: "uq_settlements_shop_date"}}

	s := &domain.Settlement{
		ID:             uuid.New(),
		ShopID:         uuid.New(),
		SettlementDate: time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
		Status:         domain.SettlementStatusDraft,
		DeclaredStock:  domain.NewStockSheet(),
	}

	ok, err := repo.MarkSubmitted(context.Background(), exec, s)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeSettlementDuplicate))
	assert.True(t, domain.IsConflictError(err))
}

func TestMarkSubmitted_OtherErrorPassesThrough(t *testing.T) {
	repo := NewSettlementRepository()
	exec := &recordingExecutor{execErr: assert.AnError}

	s := &domain.Settlement{
		ID:            uuid.New(),
		ShopID:        uuid.New(),
		Status:        domain.SettlementStatusDraft,
		DeclaredStock: domain.NewStockSheet(),
	}

	_, err := repo.MarkSubmitted(context.Background(), exec, s)
	require.Error(t, err)
	assert.False(t, domain.IsDomainError(err, domain.ErrorCodeSettlementDuplicate))
}

func TestCreate_DuplicateIsConflict(t *testing.T) {
	repo := NewSettlementRepository()
	exec := &recordingExecutor{execErr: &pgconn.PgError{Code: "23505", ConstraintName: "uq_settlements_shop_date"}}

	s := &domain.Settlement{
		ID:            uuid.New(),
		ShopID:        uuid.New(),
		Status:        domain.SettlementStatusDraft,
		DeclaredStock: domain.NewStockSheet(),
	}

	err := repo.Create(context.Background(), exec, s)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeSettlementDuplicate))
}
