package ports

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx query methods repositories need. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so the same repository method serves pooled reads and
// transactional writes.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DBPort manages database access and transaction scoping
type DBPort interface {
	// Querier returns a non-transactional executor backed by the pool
	Querier() DBTX

	// WithTransaction executes fn inside a transaction; any error rolls the
	// whole transaction back
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error

	// WithReadOnlyTransaction executes fn inside a read-only transaction for
	// consistent multi-query reads
	WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}
