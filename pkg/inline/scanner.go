package inline

import (
	"strings"

	"github.com/leapstack-labs/sqlinline/pkg/jslex"
	"github.com/leapstack-labs/sqlinline/pkg/token"
)

// CallForm is the surface syntax of a matched call.
type CallForm int

// Call forms.
const (
	// FormTagged is name<T>`./file.sql`.
	FormTagged CallForm = iota
	// FormCall is name<T>("./file.sql", ...args).
	FormCall
)

// String returns the form name.
func (f CallForm) String() string {
	if f == FormCall {
		return "call"
	}
	return "tagged"
}

// CallMatch is one occurrence of an external-SQL-load call.
type CallMatch struct {
	Span      token.Span // from the callee identifier to the end of the call
	Text      string     // exact source text covered by Span
	Callee    string     // identifier as written
	Qualified bool       // called as a member, e.g. db.sql_file
	TypeArgs  string     // "<User>" including brackets, empty when absent
	Path      string     // SQL file path as written (escapes decoded)
	Args      string     // trailing arguments verbatim and trimmed, empty when absent
	Form      CallForm
}

// Scan finds every call to the loader in src, in order of appearance.
// Unqualified calls match name or any of aliases; member calls
// (obj.name) match name only.
func Scan(src, name string, aliases ...string) []CallMatch {
	return scanTokens(src, jslex.Tokenize(src), name, aliases)
}

func scanTokens(src string, toks []jslex.Token, name string, aliases []string) []CallMatch {
	locals := map[string]bool{name: true}
	for _, a := range aliases {
		locals[a] = true
	}

	var matches []CallMatch
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.Type != token.IDENT {
			continue
		}

		qualified := i > 0 && toks[i-1].Is(".")
		if qualified && tok.Literal != name {
			continue
		}
		if !qualified && !locals[tok.Literal] {
			continue
		}
		// Declarations such as `function sql_file<T>(path: string)` are not calls.
		if i > 0 && toks[i-1].IsIdent("function") {
			continue
		}

		m, next, ok := matchCall(src, toks, i)
		if !ok {
			continue
		}
		m.Qualified = qualified
		matches = append(matches, m)
		i = next - 1
	}
	return matches
}

// matchCall tries to match a call whose callee is toks[i]. It returns the
// match and the index of the first token after it.
func matchCall(src string, toks []jslex.Token, i int) (CallMatch, int, bool) {
	m := CallMatch{Callee: toks[i].Literal}
	j := i + 1

	if j < len(toks) && toks[j].Is("<") {
		end, ok := matchAngles(toks, j)
		if !ok {
			return m, 0, false
		}
		m.TypeArgs = src[toks[j].Span.Start.Offset:toks[end].Span.End.Offset]
		j = end + 1
	}
	if j >= len(toks) {
		return m, 0, false
	}

	var last int
	switch {
	case toks[j].Type == token.TEMPLATE:
		if !validPath(toks[j].Value) {
			return m, 0, false
		}
		m.Form = FormTagged
		m.Path = toks[j].Value
		last = j

	case toks[j].Is("("):
		j++
		if j >= len(toks) || toks[j].Type != token.STRING ||
			!validPath(toks[j].Value) || strings.ContainsAny(toks[j].Literal, "\r\n") {
			return m, 0, false
		}
		m.Form = FormCall
		m.Path = toks[j].Value
		j++
		if j >= len(toks) {
			return m, 0, false
		}
		switch {
		case toks[j].Is(")"):
			last = j
		case toks[j].Is(","):
			end, ok := matchClose(toks, j+1)
			if !ok {
				return m, 0, false
			}
			m.Args = strings.TrimSpace(src[toks[j].Span.End.Offset:toks[end].Span.Start.Offset])
			last = end
		default:
			return m, 0, false
		}

	default:
		return m, 0, false
	}

	m.Span = token.Span{Start: toks[i].Span.Start, End: toks[last].Span.End}
	m.Text = m.Span.Text(src)
	return m, last + 1, true
}

// validPath rejects empty paths and paths spanning lines.
func validPath(raw string) bool {
	return strings.TrimSpace(raw) != "" && !strings.ContainsAny(raw, "\r\n")
}

// matchAngles finds the '>' closing the '<' at toks[open], counting nested
// angle brackets so Map<string, Array<T>> is one annotation. An '=' or a
// bracket closing something opened before the annotation ends the search.
func matchAngles(toks []jslex.Token, open int) (int, bool) {
	angles := 0
	brackets := 0
	for k := open; k < len(toks); k++ {
		t := toks[k]
		switch {
		case t.Is("<"):
			angles++
		case t.Is(">"):
			angles--
			if angles == 0 {
				return k, true
			}
		case t.Is("(") || t.Is("[") || t.Is("{"):
			brackets++
		case t.Is(")") || t.Is("]") || t.Is("}"):
			brackets--
			if brackets < 0 {
				return 0, false
			}
		case t.Is("=") || (t.Is(";") && brackets == 0):
			return 0, false
		case t.Type == token.ILLEGAL:
			return 0, false
		}
	}
	return 0, false
}

// matchClose finds the ')' that closes an argument list whose contents start
// at toks[from]. Nested brackets must balance.
func matchClose(toks []jslex.Token, from int) (int, bool) {
	var stack []string
	for k := from; k < len(toks); k++ {
		t := toks[k]
		if t.Type != token.PUNCT {
			if t.Type == token.ILLEGAL {
				return 0, false
			}
			continue
		}
		switch t.Literal {
		case "(":
			stack = append(stack, ")")
		case "[":
			stack = append(stack, "]")
		case "{":
			stack = append(stack, "}")
		case ")", "]", "}":
			if len(stack) == 0 {
				if t.Literal == ")" {
					return k, true
				}
				return 0, false
			}
			if stack[len(stack)-1] != t.Literal {
				return 0, false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return 0, false
}
