/*
Package query is a small SQL builder for Go code that shares .sql files with
front-end code processed by sqlinline.

A Query is text plus positional parameters in PostgreSQL's $N form. New mirrors
the semantics of a tagged template literal: literal chunks alternate with
values, each value becomes the next placeholder, and a nested Query is spliced
in with its placeholders renumbered.

	filter := query.MustNew([]string{"org_id = ", ""}, org)
	q := query.MustNew([]string{"SELECT * FROM users WHERE id = ", " AND ", ""}, id, filter)
	// SELECT * FROM users WHERE id = $1 AND org_id = $2

SQL files can be loaded at run time with FromFile or, when embedded, FromFS:

	//go:embed sql
	var files embed.FS

	q, err := query.FromFS(files, "sql/get-user.sql", id)
	row := q.QueryRowContext(ctx, db)

Queries run against database/sql handles (Exec, QueryContext, QueryRowContext)
or pgx connections and pools (PgxExec, PgxQuery, PgxQueryRow).
*/
package query
