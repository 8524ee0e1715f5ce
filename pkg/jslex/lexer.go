// Package jslex is a small tokenizer for JavaScript and TypeScript sources.
//
// It is not a parser. It knows enough of the lexical grammar to never
// mistake the inside of a string, template literal, regular expression or
// comment for code, which is what source rewriting needs. Template literal
// substitutions are tracked with a brace stack so code nested inside ${...}
// is tokenized like any other code.
package jslex

import (
	"github.com/leapstack-labs/sqlinline/pkg/token"
)

// Token is a single lexical token.
type Token struct {
	Type    token.TokenType
	Literal string // exact source text of the token
	Value   string // decoded value for STRING, raw chunk for template pieces
	Span    token.Span
}

// Is reports whether the token is punctuation with the given text.
func (t Token) Is(punct string) bool {
	return (t.Type == token.PUNCT || t.Type == token.ARROW) && t.Literal == punct
}

// IsIdent reports whether the token is the identifier name.
func (t Token) IsIdent(name string) bool {
	return t.Type == token.IDENT && t.Literal == name
}

// Lexer tokenizes JavaScript/TypeScript input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based)

	prev      token.TokenType // last significant token type
	prevLit   string
	depth     int   // open { count
	templates []int // depth at which each open ${ was entered

	// Comments collected during lexing
	Comments []*token.Comment
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
		prev:  token.EOF,
	}
	l.readChar()
	if len(input) >= 3 && input[:3] == "\xef\xbb\xbf" {
		l.readChar()
		l.readChar()
		l.readChar()
	}
	return l
}

// Tokenize returns every token of src, excluding the trailing EOF.
func Tokenize(src string) []Token {
	l := NewLexer(src)
	var toks []Token
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	start := l.currentPos()
	if l.atEOF() {
		return Token{Type: token.EOF, Span: token.Span{Start: start, End: start}}
	}

	var tok Token
	switch ch := l.ch; {
	case ch == '`':
		tok = l.readTemplate(start, true)
	case ch == '}' && len(l.templates) > 0 && l.depth == l.templates[len(l.templates)-1]:
		l.templates = l.templates[:len(l.templates)-1]
		tok = l.readTemplate(start, false)
	case ch == '\'' || ch == '"':
		tok = l.readString(start)
	case isIdentStart(ch):
		for !l.atEOF() && isIdentPart(l.ch) {
			l.readChar()
		}
		tok = l.finish(token.IDENT, start)
	case isDigit(ch) || (ch == '.' && isDigit(l.peekChar())):
		l.readNumber()
		tok = l.finish(token.NUMBER, start)
	case ch == '/' && l.regexAllowed():
		tok = l.readRegex(start)
	case ch == '=' && l.peekChar() == '>':
		l.readChar()
		l.readChar()
		tok = l.finish(token.ARROW, start)
	default:
		switch ch {
		case '{':
			l.depth++
		case '}':
			if l.depth > 0 {
				l.depth--
			}
		}
		l.readChar()
		tok = l.finish(token.PUNCT, start)
	}

	l.prev = tok.Type
	l.prevLit = tok.Literal
	return tok
}

// finish builds a token spanning from start to the current position.
func (l *Lexer) finish(typ token.TokenType, start token.Position) Token {
	end := l.currentPos()
	return Token{
		Type:    typ,
		Literal: l.input[start.Offset:end.Offset],
		Span:    token.Span{Start: start, End: end},
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEOF() {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\v' || l.ch == '\f':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			l.readLineComment()
		case l.ch == '#' && l.pos == 0 && l.peekChar() == '!':
			// shebang
			l.readLineComment()
		case l.ch == '/' && l.peekChar() == '*':
			l.readBlockComment()
		default:
			return
		}
	}
}

func (l *Lexer) readLineComment() {
	start := l.currentPos()
	for !l.atEOF() && l.ch != '\n' {
		l.readChar()
	}
	end := l.currentPos()
	l.Comments = append(l.Comments, &token.Comment{
		Kind: token.LineComment,
		Text: l.input[start.Offset:end.Offset],
		Span: token.Span{Start: start, End: end},
	})
}

func (l *Lexer) readBlockComment() {
	start := l.currentPos()
	l.readChar() // '/'
	l.readChar() // '*'
	for !l.atEOF() {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			break
		}
		l.readChar()
	}
	end := l.currentPos()
	l.Comments = append(l.Comments, &token.Comment{
		Kind: token.BlockComment,
		Text: l.input[start.Offset:end.Offset],
		Span: token.Span{Start: start, End: end},
	})
}

// readString reads a single- or double-quoted string. An unescaped newline
// terminates an unterminated string as ILLEGAL so damage stays on one line.
func (l *Lexer) readString(start token.Position) Token {
	quote := l.ch
	l.readChar()
	for {
		if l.atEOF() || l.ch == '\n' {
			return l.finish(token.ILLEGAL, start)
		}
		if l.ch == '\\' {
			l.readChar()
			if !l.atEOF() {
				l.readChar()
			}
			continue
		}
		if l.ch == quote {
			l.readChar()
			break
		}
		l.readChar()
	}
	tok := l.finish(token.STRING, start)
	tok.Value = Unquote(tok.Literal[1 : len(tok.Literal)-1])
	return tok
}

// readTemplate reads a template piece starting at a backtick (head) or at
// the closing brace of a substitution.
func (l *Lexer) readTemplate(start token.Position, head bool) Token {
	l.readChar()
	chunk := l.pos
	for {
		if l.atEOF() {
			return l.finish(token.ILLEGAL, start)
		}
		switch {
		case l.ch == '\\':
			l.readChar()
			if !l.atEOF() {
				l.readChar()
			}
			continue
		case l.ch == '`':
			value := l.input[chunk:l.pos]
			l.readChar()
			typ := token.TEMPLATE_TAIL
			if head {
				typ = token.TEMPLATE
			}
			tok := l.finish(typ, start)
			tok.Value = value
			return tok
		case l.ch == '$' && l.peekChar() == '{':
			value := l.input[chunk:l.pos]
			l.readChar()
			l.readChar()
			l.templates = append(l.templates, l.depth)
			typ := token.TEMPLATE_MIDDLE
			if head {
				typ = token.TEMPLATE_HEAD
			}
			tok := l.finish(typ, start)
			tok.Value = value
			return tok
		}
		l.readChar()
	}
}

func (l *Lexer) readNumber() {
	for !l.atEOF() {
		switch {
		case isIdentPart(l.ch) || l.ch == '.':
			prev := l.ch
			l.readChar()
			if (prev == 'e' || prev == 'E') && (l.ch == '+' || l.ch == '-') {
				l.readChar()
			}
		default:
			return
		}
	}
}

// regexKeywords are identifiers after which a slash starts a regex.
var regexKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

// regexAllowed decides whether a '/' starts a regex literal based on the
// previous significant token.
func (l *Lexer) regexAllowed() bool {
	if l.peekChar() == '/' || l.peekChar() == '*' {
		return false
	}
	switch l.prev {
	case token.IDENT:
		return regexKeywords[l.prevLit]
	case token.PUNCT:
		return l.prevLit != ")" && l.prevLit != "]" && l.prevLit != "}"
	default:
		return !l.prev.EndsExpression()
	}
}

func (l *Lexer) readRegex(start token.Position) Token {
	l.readChar() // opening '/'
	inClass := false
	for {
		if l.atEOF() || l.ch == '\n' {
			return l.finish(token.ILLEGAL, start)
		}
		switch l.ch {
		case '\\':
			l.readChar()
			if l.atEOF() || l.ch == '\n' {
				continue
			}
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				l.readChar()
				for !l.atEOF() && isIdentPart(l.ch) {
					l.readChar()
				}
				return l.finish(token.REGEX, start)
			}
		}
		l.readChar()
	}
}

func isIdentStart(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_' || ch == '$' || ch >= 0x80
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
