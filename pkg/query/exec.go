package query

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// RowQuerier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type RowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Exec runs q on db.
func (q Query) Exec(ctx context.Context, db Execer) (sql.Result, error) {
	return db.ExecContext(ctx, q.sql, q.params...)
}

// QueryContext runs q on db and returns its rows.
func (q Query) QueryContext(ctx context.Context, db Querier) (*sql.Rows, error) {
	return db.QueryContext(ctx, q.sql, q.params...)
}

// QueryRowContext runs q on db and returns at most one row.
func (q Query) QueryRowContext(ctx context.Context, db RowQuerier) *sql.Row {
	return db.QueryRowContext(ctx, q.sql, q.params...)
}

// PgxExecer is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type PgxExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgxQuerier is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type PgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxExec runs q through a pgx connection or pool.
func (q Query) PgxExec(ctx context.Context, db PgxExecer) (pgconn.CommandTag, error) {
	return db.Exec(ctx, q.sql, q.params...)
}

// PgxQuery runs q through a pgx connection or pool and returns its rows.
func (q Query) PgxQuery(ctx context.Context, db PgxQuerier) (pgx.Rows, error) {
	return db.Query(ctx, q.sql, q.params...)
}

// PgxQueryRow runs q through a pgx connection or pool and returns one row.
func (q Query) PgxQueryRow(ctx context.Context, db PgxQuerier) pgx.Row {
	return db.QueryRow(ctx, q.sql, q.params...)
}
