package inline

import "strings"

// rewriteCall renders the query-building replacement for m with already
// escaped content. Trailing arguments force the parenthesized form since a
// tagged template has no slot for them.
func rewriteCall(m CallMatch, query, escaped string) string {
	var b strings.Builder
	b.Grow(len(query) + len(m.TypeArgs) + len(escaped) + len(m.Args) + 6)

	b.WriteString(query)
	b.WriteString(m.TypeArgs)
	if m.Args == "" {
		b.WriteByte('`')
		b.WriteString(escaped)
		b.WriteByte('`')
		return b.String()
	}

	b.WriteString("(`")
	b.WriteString(escaped)
	b.WriteString("`, ")
	b.WriteString(m.Args)
	b.WriteByte(')')
	return b.String()
}
