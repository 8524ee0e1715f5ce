package query

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// ErrArity is returned when template parts and values do not line up.
var ErrArity = errors.New("query: parts must have exactly one more element than values")

// Query is SQL text with PostgreSQL-style positional placeholders ($1, $2, ...)
// and the parameters bound to them. The zero value is an empty query.
// Query values are immutable; every combinator returns a new one.
type Query struct {
	sql    string
	params []any
}

// New builds a Query the way a tagged template does: parts are the literal
// chunks and each value sits between two of them. Plain values become the next
// placeholder. A Query value is spliced in with its own placeholders
// renumbered to follow the ones already emitted.
//
//	q, err := query.New([]string{"SELECT * FROM users WHERE id = ", " AND org = ", ""}, id, org)
//	// SELECT * FROM users WHERE id = $1 AND org = $2
func New(parts []string, values ...any) (Query, error) {
	if len(parts) != len(values)+1 {
		return Query{}, fmt.Errorf("%w: got %d parts and %d values", ErrArity, len(parts), len(values))
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var params []any
	for i, v := range values {
		_, _ = buf.WriteString(parts[i])
		switch sub := v.(type) {
		case Query:
			renumber(buf, sub.sql, len(params))
			params = append(params, sub.params...)
		case *Query:
			if sub == nil {
				return Query{}, fmt.Errorf("query: value %d is a nil *Query", i)
			}
			renumber(buf, sub.sql, len(params))
			params = append(params, sub.params...)
		default:
			params = append(params, v)
			writePlaceholder(buf, len(params))
		}
	}
	_, _ = buf.WriteString(parts[len(parts)-1])

	return Query{sql: buf.String(), params: params}, nil
}

// MustNew is like New but panics on error. Use it with literal parts only.
func MustNew(parts []string, values ...any) Query {
	q, err := New(parts, values...)
	if err != nil {
		panic(err)
	}
	return q
}

// Raw wraps SQL text that already contains its placeholders, binding params
// to them in order.
func Raw(text string, params ...any) Query {
	return Query{sql: text, params: params}
}

// Join concatenates queries with sep, renumbering placeholders so each
// parameter keeps its binding.
func Join(sep string, qs ...Query) Query {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var params []any
	for i, q := range qs {
		if i > 0 {
			_, _ = buf.WriteString(sep)
		}
		renumber(buf, q.sql, len(params))
		params = append(params, q.params...)
	}
	return Query{sql: buf.String(), params: params}
}

// Append returns q followed by other, separated by a single space.
func (q Query) Append(other Query) Query {
	return Join(" ", q, other)
}

// SQL returns the query text.
func (q Query) SQL() string {
	return q.sql
}

// Params returns a copy of the bound parameters.
func (q Query) Params() []any {
	if len(q.params) == 0 {
		return nil
	}
	out := make([]any, len(q.params))
	copy(out, q.params)
	return out
}

// String returns the text followed by the parameters, for logs.
func (q Query) String() string {
	if len(q.params) == 0 {
		return q.sql
	}
	return fmt.Sprintf("%s %v", q.sql, q.params)
}

func writePlaceholder(buf *bytebufferpool.ByteBuffer, n int) {
	_ = buf.WriteByte('$')
	_, _ = buf.WriteString(strconv.Itoa(n))
}
