// Package mocks provides shared mock implementations for testing.
package mocks

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/poultryops/settlement-service/internal/domain/ports"
)

// MockDB implements ports.DBPort. Transactions execute the callback inline
// with a nil pgx.Tx; repositories under test are mocks and never touch it.
type MockDB struct {
	mock.Mock
}

func (m *MockDB) Querier() ports.DBTX {
	args := m.Called()
	if q, ok := args.Get(0).(ports.DBTX); ok {
		return q
	}
	return nil
}

func (m *MockDB) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	m.Called(ctx, fn)
	return fn(ctx, nil)
}

func (m *MockDB) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	m.Called(ctx, fn)
	return fn(ctx, nil)
}

// NewMockDB returns a MockDB that accepts any transaction call.
func NewMockDB() *MockDB {
	db := &MockDB{}
	db.On("Querier").Return(nil).Maybe()
	db.On("WithTransaction", mock.Anything, mock.Anything).Return(nil).Maybe()
	db.On("WithReadOnlyTransaction", mock.Anything, mock.Anything).Return(nil).Maybe()
	return db
}
