// Package db provides the thin abstraction stores use to talk to Postgres.
// It exists so a *pgxpool.Pool, a pgx.Tx, or a pooled *pgxpool.Conn can all
// be passed to a store interchangeably, following the same seam the
// incident store used in the project this package is descended from.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgxpool.Conn, and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
