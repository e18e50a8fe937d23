package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx is the querier interface satisfied by both *pgxpool.Pool and pgx.Tx,
// letting repositories run against the pool or an open transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// nullableString maps empty strings to NULL parameters.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
