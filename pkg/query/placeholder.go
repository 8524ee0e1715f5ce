package query

import (
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"
)

// renumber copies s into buf, adding offset to every $N placeholder. Quoted
// strings, quoted identifiers, comments and dollar-quoted bodies are copied
// verbatim.
func renumber(buf *bytebufferpool.ByteBuffer, s string, offset int) {
	if offset == 0 {
		_, _ = buf.WriteString(s)
		return
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\'' || c == '"':
			j := skipQuoted(s, i, c)
			_, _ = buf.WriteString(s[i:j])
			i = j
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			j := strings.IndexByte(s[i:], '\n')
			if j < 0 {
				j = len(s)
			} else {
				j += i
			}
			_, _ = buf.WriteString(s[i:j])
			i = j
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			j := strings.Index(s[i+2:], "*/")
			if j < 0 {
				j = len(s)
			} else {
				j += i + 4
			}
			_, _ = buf.WriteString(s[i:j])
			i = j
		case c == '$':
			if n, j, ok := placeholderAt(s, i); ok {
				writePlaceholder(buf, n+offset)
				i = j
				continue
			}
			if tag := dollarTag(s, i); tag != "" {
				end := strings.Index(s[i+len(tag):], tag)
				j := len(s)
				if end >= 0 {
					j = i + len(tag) + end + len(tag)
				}
				_, _ = buf.WriteString(s[i:j])
				i = j
				continue
			}
			_ = buf.WriteByte(c)
			i++
		default:
			_ = buf.WriteByte(c)
			i++
		}
	}
}

// placeholderAt parses $N at s[i]. A dollar directly after an identifier
// character is part of that identifier, not a placeholder.
func placeholderAt(s string, i int) (int, int, bool) {
	if i > 0 && isIdentByte(s[i-1]) {
		return 0, 0, false
	}
	j := i + 1
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == i+1 {
		return 0, 0, false
	}
	n, err := strconv.Atoi(s[i+1 : j])
	if err != nil {
		return 0, 0, false
	}
	return n, j, true
}

// dollarTag returns the opening tag of a dollar-quoted string at s[i], such
// as "$$" or "$body$", or "" if there is none.
func dollarTag(s string, i int) string {
	j := i + 1
	for j < len(s) && s[j] != '$' && isIdentByte(s[j]) {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return ""
	}
	if j > i+1 && s[i+1] >= '0' && s[i+1] <= '9' {
		return ""
	}
	return s[i : j+1]
}

// skipQuoted returns the index just past the quoted run starting at s[i].
// A doubled quote character is an escaped quote.
func skipQuoted(s string, i int, q byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}
