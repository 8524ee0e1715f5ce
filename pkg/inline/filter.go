package inline

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Default filter patterns.
var (
	DefaultInclude = []string{"**/*.{js,jsx,ts,tsx,mjs,cjs,mts,cts,vue,svelte}"}
	DefaultExclude = []string{"**/node_modules/**"}
)

// Filter decides which module ids are eligible for transformation.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter compiles include and exclude glob patterns. Relative patterns
// that do not start with "**" are anchored at baseDir when it is set.
// Empty include uses DefaultInclude; a nil exclude uses DefaultExclude.
func NewFilter(include, exclude []string, baseDir string) (*Filter, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	if exclude == nil {
		exclude = DefaultExclude
	}

	f := &Filter{}
	var err error
	if f.include, err = compilePatterns(include, baseDir); err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}
	if f.exclude, err = compilePatterns(exclude, baseDir); err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}
	return f, nil
}

func compilePatterns(patterns []string, baseDir string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = filepath.ToSlash(p)
		if baseDir != "" && !strings.HasPrefix(p, "**") && !isAbsSlash(p) {
			p = path.Join(strings.ReplaceAll(baseDir, `\`, "/"), p)
		}
		p = stripRoot(p)
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
		out = append(out, p)
	}
	return out, nil
}

// Match reports whether id is eligible: it matches no exclude pattern and at
// least one include pattern. Exclude is checked first.
func (f *Filter) Match(id string) bool {
	if id == "" || strings.ContainsRune(id, 0) {
		return false
	}
	name := stripRoot(strings.ReplaceAll(stripQuery(id), `\`, "/"))

	for _, p := range f.exclude {
		if ok, _ := doublestar.Match(p, name); ok {
			return false
		}
	}
	for _, p := range f.include {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// stripQuery removes a bundler query suffix such as "?vue&type=script".
func stripQuery(id string) string {
	if i := strings.IndexByte(id, '?'); i >= 0 {
		return id[:i]
	}
	return id
}

// stripRoot removes a leading slash or Windows volume so absolute ids and
// anchored patterns compare segment by segment.
func stripRoot(p string) string {
	if len(p) >= 2 && p[1] == ':' {
		p = p[2:]
	}
	return strings.TrimLeft(p, "/")
}

func isAbsSlash(p string) bool {
	return strings.HasPrefix(p, "/") || (len(p) >= 3 && p[1] == ':' && p[2] == '/')
}
