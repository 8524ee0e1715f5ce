package inline

import (
	"strings"

	"github.com/leapstack-labs/sqlinline/pkg/jslex"
)

// templateEscaper escapes in one left-to-right pass, so a backslash written
// for a backtick or dollar sign is never itself escaped again. Raw CR is
// escaped because template literals normalise CR and CRLF to LF.
var templateEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`$`, `\$`,
	"\r", `\r`,
)

// EscapeTemplate escapes s for embedding between backticks so that the
// evaluated template literal equals s exactly.
func EscapeTemplate(s string) string {
	return templateEscaper.Replace(s)
}

// UnescapeTemplate returns the cooked value of a substitution-free template
// literal body. It inverts EscapeTemplate.
func UnescapeTemplate(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return jslex.Unquote(raw)
}
