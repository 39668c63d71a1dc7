package dbx

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx so repositories can run
// inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Updates accumulates "column = $n" clauses for a partial UPDATE. Column
// names are always compile-time constants at the call sites.
type Updates struct {
	clauses []string
	args    []any
}

func (u *Updates) Set(column string, value any) {
	u.args = append(u.args, value)
	u.clauses = append(u.clauses, fmt.Sprintf("%s = $%d", column, len(u.args)))
}

func (u *Updates) Len() int {
	return len(u.clauses)
}

// Build renders the statement. updated_at is always refreshed, so an empty
// patch still counts as a mutation.
func (u *Updates) Build(table string, id any, returning string) (string, []any) {
	clauses := append(append([]string{}, u.clauses...), "updated_at = NOW()")
	args := append(append([]any{}, u.args...), id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		table, strings.Join(clauses, ", "), len(args), returning)
	return query, args
}
