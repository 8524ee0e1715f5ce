package inline

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leapstack-labs/sqlinline/pkg/jslex"
)

// Default function names.
const (
	DefaultLoaderName = "sql_file"
	DefaultQueryName  = "sql"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Options configures a Transformer.
type Options struct {
	Include    []string // glob patterns; empty means DefaultInclude
	Exclude    []string // glob patterns; nil means DefaultExclude
	BaseDir    string   // anchor for relative patterns
	LoaderName string   // function loading SQL from a file
	QueryName  string   // function building a query from inline text
	ReadFile   ReadFileFunc
	Cache      *ContentCache
	Verify     bool // re-parse rewritten files with esbuild
	Logger     *slog.Logger
}

// Transformer inlines external SQL files into source files. It holds no
// mutable state of its own and is safe for concurrent use.
type Transformer struct {
	filter *Filter
	opts   Options
	logger *slog.Logger
}

// Result is the output of a Transform call that changed the file.
type Result struct {
	Code         string
	SourceMap    string   // always empty
	Rewritten    int      // call sites replaced
	Skipped      int      // call sites left verbatim
	Dependencies []string // resolved SQL files that were inlined
}

// New validates opts and creates a Transformer.
func New(opts Options) (*Transformer, error) {
	if opts.LoaderName == "" {
		opts.LoaderName = DefaultLoaderName
	}
	if opts.QueryName == "" {
		opts.QueryName = DefaultQueryName
	}
	if !IsIdentifier(opts.LoaderName) {
		return nil, fmt.Errorf("invalid loader name %q", opts.LoaderName)
	}
	if !IsIdentifier(opts.QueryName) {
		return nil, fmt.Errorf("invalid query name %q", opts.QueryName)
	}
	if opts.LoaderName == opts.QueryName {
		return nil, fmt.Errorf("loader and query names must differ, both are %q", opts.LoaderName)
	}

	filter, err := NewFilter(opts.Include, opts.Exclude, opts.BaseDir)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Transformer{filter: filter, opts: opts, logger: logger}, nil
}

// IsIdentifier reports whether s is a plain ASCII JavaScript identifier.
func IsIdentifier(s string) bool {
	return identPattern.MatchString(s)
}

// LoaderName returns the configured loader function name.
func (t *Transformer) LoaderName() string {
	return t.opts.LoaderName
}

// QueryName returns the configured query function name.
func (t *Transformer) QueryName() string {
	return t.opts.QueryName
}

// Cache returns the content cache, or nil.
func (t *Transformer) Cache() *ContentCache {
	return t.opts.Cache
}

// Eligible reports whether id passes the include/exclude filter.
func (t *Transformer) Eligible(id string) bool {
	return t.filter.Match(id)
}

// Scan returns the loader call sites in code, honouring import aliases. It
// does not apply the eligibility filter.
func (t *Transformer) Scan(code string) []CallMatch {
	toks := jslex.Tokenize(code)
	b := resolveBindings(parseImportTokens(toks), t.opts.LoaderName, t.opts.QueryName)
	return scanTokens(code, toks, t.opts.LoaderName, b.loaderAliases)
}

// Transform rewrites every loader call in code into a query call embedding
// the referenced file. The bool result is false when the file is ineligible
// or nothing was rewritten; the Result is nil in that case. Failures are
// reported through warn (or logged when warn is nil) and never abort.
func (t *Transformer) Transform(code, id string, warn WarnFunc) (*Result, bool) {
	if !t.filter.Match(id) || !strings.Contains(code, t.opts.LoaderName) {
		return nil, false
	}
	if warn == nil {
		warn = t.logWarning
	}
	logger := t.logger.With("file", id)

	toks := jslex.Tokenize(code)
	b := resolveBindings(parseImportTokens(toks), t.opts.LoaderName, t.opts.QueryName)
	matches := scanTokens(code, toks, t.opts.LoaderName, b.loaderAliases)
	if len(matches) == 0 {
		return nil, false
	}

	queryLocal := b.queryLocal
	if queryLocal == "" {
		queryLocal = t.opts.QueryName
	}

	loader := newResourceLoader(id, t.opts.ReadFile, t.opts.Cache)
	res := &Result{}
	needImport := false

	var out strings.Builder
	out.Grow(len(code))
	last := 0
	for _, m := range matches {
		content, first, err := loader.load(m.Path)
		if err != nil {
			res.Skipped++
			if first {
				warn(&Warning{Kind: ResourceUnavailable, File: id, Path: m.Path, Pos: m.Span.Start, Err: err})
			}
			continue
		}

		query := queryLocal
		if m.Qualified {
			query = t.opts.QueryName
		} else if b.queryLocal == "" {
			needImport = true
		}

		out.WriteString(code[last:m.Span.Start.Offset])
		out.WriteString(rewriteCall(m, query, EscapeTemplate(content)))
		last = m.Span.End.Offset
		res.Rewritten++
		logger.Debug("inlined sql", "path", m.Path, "form", m.Form.String(), "bytes", len(content))
	}
	if res.Rewritten == 0 {
		return nil, false
	}
	out.WriteString(code[last:])
	res.Code = out.String()

	if needImport {
		reconciled, ok := reconcileImports(res.Code, t.opts.LoaderName, t.opts.QueryName)
		if ok {
			res.Code = reconciled
		} else {
			warn(&Warning{
				Kind: ImportReconcileFailed,
				File: id,
				Err:  fmt.Errorf("%w: add %q next to %q", ErrImportReconcile, t.opts.QueryName, t.opts.LoaderName),
			})
		}
	}

	if t.opts.Verify {
		if err := verifySyntax(res.Code, id); err != nil {
			warn(&Warning{Kind: VerifyFailed, File: id, Err: err})
			return nil, false
		}
	}

	res.Dependencies = loader.dependencies()
	return res, true
}

func (t *Transformer) logWarning(w *Warning) {
	t.logger.Warn(w.Error(), "kind", w.Kind.String(), "file", w.File, "path", w.Path)
}
