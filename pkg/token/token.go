// Package token defines the lexical token types of the JavaScript/TypeScript
// subset understood by the source scanner.
//
// Only the distinctions the scanner needs are modelled: identifiers, literals,
// template literal pieces and single-character punctuation. Keywords are
// reported as IDENT and recognised by literal text.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType mirrors go/token naming
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // sql_file, $el, import
	NUMBER // 123, 0xff, 1_000n
	STRING // 'a' or "a"
	REGEX  // /ab+c/gi

	// Template literal pieces
	TEMPLATE        // `no substitutions`
	TEMPLATE_HEAD   // `head ${
	TEMPLATE_MIDDLE // } middle ${
	TEMPLATE_TAIL   // } tail`

	// Punctuation
	PUNCT // any single character operator or delimiter
	ARROW // =>
)

var names = [...]string{
	EOF:             "EOF",
	ILLEGAL:         "ILLEGAL",
	IDENT:           "IDENT",
	NUMBER:          "NUMBER",
	STRING:          "STRING",
	REGEX:           "REGEX",
	TEMPLATE:        "TEMPLATE",
	TEMPLATE_HEAD:   "TEMPLATE_HEAD",
	TEMPLATE_MIDDLE: "TEMPLATE_MIDDLE",
	TEMPLATE_TAIL:   "TEMPLATE_TAIL",
	PUNCT:           "PUNCT",
	ARROW:           "ARROW",
}

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if t >= 0 && int(t) < len(names) {
		return names[t]
	}
	return fmt.Sprintf("TokenType(%d)", int32(t))
}

// IsTemplate reports whether t is any piece of a template literal.
func (t TokenType) IsTemplate() bool {
	return t >= TEMPLATE && t <= TEMPLATE_TAIL
}

// EndsExpression reports whether a token of this type can end an operand,
// which is what decides between a regex literal and a division after it.
func (t TokenType) EndsExpression() bool {
	switch t {
	case IDENT, NUMBER, STRING, REGEX, TEMPLATE, TEMPLATE_TAIL:
		return true
	}
	return false
}
