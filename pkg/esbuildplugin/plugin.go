// Package esbuildplugin runs the sqlinline transformer inside esbuild builds.
package esbuildplugin

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/leapstack-labs/sqlinline/pkg/inline"
)

// Name is the plugin name reported in esbuild messages.
const Name = "sqlinline"

// DefaultExtensions are the file extensions routed through the transformer.
var DefaultExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".mts", ".cts"}

// FileStat records what the transformer did to one module.
type FileStat struct {
	Path         string   `json:"path"`
	Rewritten    int      `json:"rewritten"`
	Skipped      int      `json:"skipped"`
	Warnings     int      `json:"warnings"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Stats accumulates FileStat values across OnLoad calls. Safe for concurrent use.
type Stats struct {
	mu    sync.Mutex
	files map[string]FileStat
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	return &Stats{files: make(map[string]FileStat)}
}

func (s *Stats) record(fs FileStat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[fs.Path] = fs
}

// Reset drops all recorded files.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string]FileStat)
}

// Files returns the recorded files sorted by path.
func (s *Stats) Files() []FileStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileStat, 0, len(s.files))
	for _, fs := range s.files {
		out = append(out, fs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Option configures the plugin.
type Option func(*plugin)

// WithStats records per-file results into s. s is reset at the start of
// every build.
func WithStats(s *Stats) Option {
	return func(p *plugin) { p.stats = s }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(p *plugin) { p.logger = l }
}

// WithExtensions replaces DefaultExtensions.
func WithExtensions(exts ...string) Option {
	return func(p *plugin) { p.exts = exts }
}

type plugin struct {
	t      *inline.Transformer
	stats  *Stats
	logger *slog.Logger
	exts   []string
}

// New returns an esbuild plugin that rewrites SQL loader calls in every
// eligible module it loads.
func New(t *inline.Transformer, opts ...Option) api.Plugin {
	p := &plugin{t: t, exts: DefaultExtensions}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}

	return api.Plugin{
		Name: Name,
		Setup: func(build api.PluginBuild) {
			build.OnStart(p.onStart)
			build.OnLoad(api.OnLoadOptions{Filter: extensionFilter(p.exts), Namespace: "file"}, p.onLoad)
		},
	}
}

func (p *plugin) onStart() (api.OnStartResult, error) {
	if cache := p.t.Cache(); cache != nil {
		cache.Purge()
	}
	if p.stats != nil {
		p.stats.Reset()
	}
	return api.OnStartResult{}, nil
}

func (p *plugin) onLoad(args api.OnLoadArgs) (api.OnLoadResult, error) {
	loader, ok := inline.LoaderForPath(args.Path)
	if !ok || !p.t.Eligible(args.Path) {
		return api.OnLoadResult{}, nil
	}

	data, err := os.ReadFile(args.Path)
	if err != nil {
		return api.OnLoadResult{}, fmt.Errorf("read %s: %w", args.Path, err)
	}

	var warnings []api.Message
	res, changed := p.t.Transform(string(data), args.Path, func(w *inline.Warning) {
		warnings = append(warnings, warningMessage(w))
	})

	stat := FileStat{Path: args.Path, Warnings: len(warnings)}
	if changed {
		stat.Rewritten = res.Rewritten
		stat.Skipped = res.Skipped
		stat.Dependencies = res.Dependencies
	}
	if p.stats != nil && (changed || len(warnings) > 0) {
		p.stats.record(stat)
	}

	if !changed {
		// Nil contents hand the file back to esbuild's default loader.
		return api.OnLoadResult{Warnings: warnings}, nil
	}

	p.logger.Debug("transformed module", "file", args.Path, "rewritten", res.Rewritten, "skipped", res.Skipped)
	return api.OnLoadResult{
		Contents:   &res.Code,
		Loader:     loader,
		ResolveDir: filepath.Dir(args.Path),
		Warnings:   warnings,
		WatchFiles: res.Dependencies,
		PluginName: Name,
	}, nil
}

func warningMessage(w *inline.Warning) api.Message {
	msg := api.Message{
		PluginName: Name,
		Text:       w.Error(),
		Detail:     w.Kind.String(),
	}
	if w.Pos.IsValid() {
		msg.Location = &api.Location{
			File:   w.File,
			Line:   w.Pos.Line,
			Column: w.Pos.Column - 1,
		}
	}
	return msg
}

// extensionFilter builds the OnLoad filter, e.g. `\.(?:ts|tsx)$`.
func extensionFilter(exts []string) string {
	quoted := make([]string, 0, len(exts))
	for _, ext := range exts {
		quoted = append(quoted, regexp.QuoteMeta(strings.TrimPrefix(ext, ".")))
	}
	return `\.(?:` + strings.Join(quoted, "|") + `)$`
}
