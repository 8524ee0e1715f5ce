package esbuildplugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/leapstack-labs/sqlinline/pkg/inline"
)

// BuildConfig describes an esbuild bundle run with the plugin installed.
type BuildConfig struct {
	EntryPoints   []string
	Outdir        string
	Outfile       string
	Bundle        bool
	Format        string // esm, cjs, iife; empty for esbuild's default
	Platform      string // browser, node, neutral
	Target        string // es2015 ... es2022, esnext
	External      []string
	Minify        bool
	Sourcemap     bool
	Write         bool // write outputs to disk; otherwise keep them in memory
	AbsWorkingDir string
}

// OutputFile is one file produced by a build.
type OutputFile struct {
	Path     string
	Size     int
	Contents []byte
}

// BuildReport summarizes one build.
type BuildReport struct {
	Files    []FileStat
	Outputs  []OutputFile
	Warnings []string
	Duration time.Duration
}

// Rewritten returns the number of call sites inlined across all files.
func (r *BuildReport) Rewritten() int {
	n := 0
	for _, f := range r.Files {
		n += f.Rewritten
	}
	return n
}

// Skipped returns the number of call sites left verbatim across all files.
func (r *BuildReport) Skipped() int {
	n := 0
	for _, f := range r.Files {
		n += f.Skipped
	}
	return n
}

// ErrBuild wraps esbuild errors.
var ErrBuild = errors.New("esbuild failed")

var formats = map[string]api.Format{
	"":     api.FormatDefault,
	"esm":  api.FormatESModule,
	"cjs":  api.FormatCommonJS,
	"iife": api.FormatIIFE,
}

var platforms = map[string]api.Platform{
	"":        api.PlatformBrowser,
	"browser": api.PlatformBrowser,
	"node":    api.PlatformNode,
	"neutral": api.PlatformNeutral,
}

var targets = map[string]api.Target{
	"":       api.ES2020,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// ParseFormat maps a format name to its esbuild value.
func ParseFormat(s string) (api.Format, error) {
	if f, ok := formats[strings.ToLower(s)]; ok {
		return f, nil
	}
	return api.FormatDefault, fmt.Errorf("unknown format %q (want esm, cjs or iife)", s)
}

// ParsePlatform maps a platform name to its esbuild value.
func ParsePlatform(s string) (api.Platform, error) {
	if p, ok := platforms[strings.ToLower(s)]; ok {
		return p, nil
	}
	return api.PlatformBrowser, fmt.Errorf("unknown platform %q (want browser, node or neutral)", s)
}

// ParseTarget maps a target name to its esbuild value.
func ParseTarget(s string) (api.Target, error) {
	if t, ok := targets[strings.ToLower(s)]; ok {
		return t, nil
	}
	return api.ES2020, fmt.Errorf("unknown target %q", s)
}

// Builder holds an incremental esbuild context. Rebuild may be called
// repeatedly, e.g. from a file watcher; call Dispose when done.
type Builder struct {
	ctx    api.BuildContext
	stats  *Stats
	logger *slog.Logger
}

// NewBuilder validates cfg and prepares an esbuild context with the plugin
// installed.
func NewBuilder(cfg BuildConfig, t *inline.Transformer, logger *slog.Logger) (*Builder, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts, err := buildOptions(cfg)
	if err != nil {
		return nil, err
	}

	stats := NewStats()
	opts.Plugins = []api.Plugin{New(t, WithStats(stats), WithLogger(logger))}

	bctx, cerr := api.Context(opts)
	if cerr != nil {
		return nil, fmt.Errorf("%w: %s", ErrBuild, formatMessages(cerr.Errors))
	}
	return &Builder{ctx: bctx, stats: stats, logger: logger}, nil
}

// Rebuild runs one build. Cancelling ctx cancels the build in flight.
func (b *Builder) Rebuild(ctx context.Context) (*BuildReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			b.ctx.Cancel()
		case <-done:
		}
	}()

	start := time.Now()
	result := b.ctx.Rebuild()
	report := &BuildReport{
		Files:    b.stats.Files(),
		Duration: time.Since(start),
	}
	for _, w := range result.Warnings {
		report.Warnings = append(report.Warnings, formatMessage(w))
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if len(result.Errors) > 0 {
		return report, fmt.Errorf("%w:\n%s", ErrBuild, formatMessages(result.Errors))
	}

	for _, f := range result.OutputFiles {
		report.Outputs = append(report.Outputs, OutputFile{Path: f.Path, Size: len(f.Contents), Contents: f.Contents})
	}
	b.logger.Debug("build finished",
		"outputs", len(report.Outputs),
		"rewritten", report.Rewritten(),
		"duration", report.Duration)
	return report, nil
}

// Dispose releases the esbuild context.
func (b *Builder) Dispose() {
	b.ctx.Dispose()
}

// Build runs a single build with the plugin installed.
func Build(ctx context.Context, cfg BuildConfig, t *inline.Transformer, logger *slog.Logger) (*BuildReport, error) {
	b, err := NewBuilder(cfg, t, logger)
	if err != nil {
		return nil, err
	}
	defer b.Dispose()
	return b.Rebuild(ctx)
}

func buildOptions(cfg BuildConfig) (api.BuildOptions, error) {
	if len(cfg.EntryPoints) == 0 {
		return api.BuildOptions{}, errors.New("no entry points")
	}
	if cfg.Outdir != "" && cfg.Outfile != "" {
		return api.BuildOptions{}, errors.New("outdir and outfile are mutually exclusive")
	}
	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return api.BuildOptions{}, err
	}
	platform, err := ParsePlatform(cfg.Platform)
	if err != nil {
		return api.BuildOptions{}, err
	}
	target, err := ParseTarget(cfg.Target)
	if err != nil {
		return api.BuildOptions{}, err
	}

	opts := api.BuildOptions{
		EntryPoints:   cfg.EntryPoints,
		Bundle:        cfg.Bundle,
		Write:         cfg.Write,
		Outdir:        cfg.Outdir,
		Outfile:       cfg.Outfile,
		AbsWorkingDir: cfg.AbsWorkingDir,
		External:      cfg.External,

		Platform: platform,
		Format:   format,
		Target:   target,

		TreeShaking: api.TreeShakingDefault,
		Sourcemap:   api.SourceMapNone,

		// Messages are returned in the result and printed by the caller.
		LogLevel: api.LogLevelSilent,
	}

	// esbuild needs an output path to name in-memory outputs.
	if opts.Outdir == "" && opts.Outfile == "" {
		opts.Outdir = "out"
	}
	if cfg.Sourcemap {
		opts.Sourcemap = api.SourceMapLinked
	}
	if cfg.Minify {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}
	return opts, nil
}

func formatMessages(msgs []api.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, formatMessage(m))
	}
	return strings.Join(lines, "\n")
}

func formatMessage(m api.Message) string {
	if m.Location == nil {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column+1, m.Text)
}
