package inline

import (
	"github.com/leapstack-labs/sqlinline/pkg/jslex"
	"github.com/leapstack-labs/sqlinline/pkg/token"
)

// ImportSpec is one binding inside the braces of an import declaration.
type ImportSpec struct {
	Imported string // exported name
	Local    string // name bound in this file
	TypeOnly bool   // `type` modifier on the specifier
	Span     token.Span
}

// ImportDecl is a parsed ES module import declaration.
type ImportDecl struct {
	Source    string // module specifier
	TypeOnly  bool   // import type { ... }
	Default   string // default binding, empty when absent
	Namespace string // * as ns binding, empty when absent
	Named     []ImportSpec
	HasBraces bool
	Span      token.Span
}

// Binds reports whether the declaration binds local as a value.
func (d ImportDecl) Binds(local string) bool {
	if d.TypeOnly {
		return false
	}
	if d.Default == local || d.Namespace == local {
		return true
	}
	for _, s := range d.Named {
		if !s.TypeOnly && s.Local == local {
			return true
		}
	}
	return false
}

// LocalFor returns the local name bound to the exported name imported,
// ignoring type-only bindings.
func (d ImportDecl) LocalFor(imported string) (string, bool) {
	if d.TypeOnly {
		return "", false
	}
	for _, s := range d.Named {
		if !s.TypeOnly && s.Imported == imported {
			return s.Local, true
		}
	}
	return "", false
}

// ParseImports returns the static import declarations of src in order.
// Dynamic import() and import.meta are skipped.
func ParseImports(src string) []ImportDecl {
	return parseImportTokens(jslex.Tokenize(src))
}

func parseImportTokens(toks []jslex.Token) []ImportDecl {
	var decls []ImportDecl
	for i := 0; i < len(toks); i++ {
		if !toks[i].IsIdent("import") || (i > 0 && toks[i-1].Is(".")) {
			continue
		}
		if d, next, ok := parseImport(toks, i); ok {
			decls = append(decls, d)
			i = next - 1
		}
	}
	return decls
}

// importParser walks the tokens of one declaration.
type importParser struct {
	toks []jslex.Token
	k    int
}

func (p *importParser) peek(n int) jslex.Token {
	if p.k+n < len(p.toks) {
		return p.toks[p.k+n]
	}
	return jslex.Token{Type: token.EOF}
}

func (p *importParser) ident() (string, bool) {
	t := p.peek(0)
	if t.Type != token.IDENT {
		return "", false
	}
	p.k++
	return t.Literal, true
}

func parseImport(toks []jslex.Token, start int) (ImportDecl, int, bool) {
	p := &importParser{toks: toks, k: start + 1}
	var d ImportDecl

	if next := p.peek(0); next.Is("(") || next.Is(".") {
		return d, 0, false
	}

	// `import type X from`, `import type { X } from`, `import type * as X from`
	if p.peek(0).IsIdent("type") {
		after := p.peek(1)
		if after.Is("{") || after.Is("*") || (after.Type == token.IDENT && !after.IsIdent("from")) {
			d.TypeOnly = true
			p.k++
		}
	}

	// Side-effect import.
	if t := p.peek(0); t.Type == token.STRING {
		d.Source = t.Value
		d.Span = token.Span{Start: toks[start].Span.Start, End: t.Span.End}
		return d, p.k + 1, true
	}

	if t := p.peek(0); t.Type == token.IDENT && !(t.IsIdent("from") && p.peek(1).Type == token.STRING) {
		d.Default = t.Literal
		p.k++
		if p.peek(0).Is(",") {
			p.k++
		}
	}

	switch {
	case p.peek(0).Is("*"):
		if !p.peek(1).IsIdent("as") || p.peek(2).Type != token.IDENT {
			return d, 0, false
		}
		d.Namespace = p.peek(2).Literal
		p.k += 3
	case p.peek(0).Is("{"):
		if !p.parseNamed(&d) {
			return d, 0, false
		}
	}

	if !p.peek(0).IsIdent("from") || p.peek(1).Type != token.STRING {
		return d, 0, false
	}
	src := p.peek(1)
	d.Source = src.Value
	d.Span = token.Span{Start: toks[start].Span.Start, End: src.Span.End}
	return d, p.k + 2, true
}

// parseNamed parses `{ a, b as c, type D, "e-f" as g, }`.
func (p *importParser) parseNamed(d *ImportDecl) bool {
	d.HasBraces = true
	p.k++ // '{'
	for {
		if p.peek(0).Is("}") {
			p.k++
			return true
		}

		var spec ImportSpec
		first := p.peek(0)
		if first.IsIdent("type") && (p.peek(1).Type == token.IDENT || p.peek(1).Type == token.STRING) &&
			!p.peek(1).IsIdent("as") {
			spec.TypeOnly = true
			p.k++
			first = p.peek(0)
		}

		switch first.Type {
		case token.IDENT:
			spec.Imported = first.Literal
		case token.STRING:
			spec.Imported = first.Value
		default:
			return false
		}
		p.k++
		spec.Local = spec.Imported
		end := first.Span.End

		if p.peek(0).IsIdent("as") {
			p.k++
			local, ok := p.ident()
			if !ok {
				return false
			}
			spec.Local = local
			end = p.toks[p.k-1].Span.End
		} else if first.Type == token.STRING {
			return false
		}

		spec.Span = token.Span{Start: first.Span.Start, End: end}
		d.Named = append(d.Named, spec)

		switch {
		case p.peek(0).Is(","):
			p.k++
		case p.peek(0).Is("}"):
		default:
			return false
		}
	}
}
