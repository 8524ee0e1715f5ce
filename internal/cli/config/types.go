// Package config provides configuration management for the sqlinline CLI.
//
// Values are layered with koanf: built-in defaults, then sqlinline.yaml, then
// SQLINLINE_* environment variables, then explicitly set command-line flags.
package config

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sqlinline/pkg/esbuildplugin"
	"github.com/leapstack-labs/sqlinline/pkg/inline"
)

// BuildConfig holds the esbuild settings used by the build and watch commands.
type BuildConfig struct {
	EntryPoints []string `koanf:"entry_points"`
	Outdir      string   `koanf:"outdir"`
	Outfile     string   `koanf:"outfile"`
	Bundle      bool     `koanf:"bundle"`
	Format      string   `koanf:"format"`
	Platform    string   `koanf:"platform"`
	Target      string   `koanf:"target"`
	External    []string `koanf:"external"`
	Minify      bool     `koanf:"minify"`
	Sourcemap   bool     `koanf:"sourcemap"`
}

// Config holds all CLI configuration options.
type Config struct {
	Include      []string    `koanf:"include"`
	Exclude      []string    `koanf:"exclude"`
	LoaderName   string      `koanf:"loader_name"`
	QueryName    string      `koanf:"query_name"`
	Verify       bool        `koanf:"verify"`
	CacheSize    int         `koanf:"cache_size"`
	Jobs         int         `koanf:"jobs"`
	Verbose      bool        `koanf:"verbose"`
	LogLevel     string      `koanf:"log_level"`
	OutputFormat string      `koanf:"output"`
	Build        BuildConfig `koanf:"build"`

	// ProjectRoot anchors relative paths and glob patterns. Not read from
	// configuration sources.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultLogLevel  = "info"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultJobs      = 4
	DefaultCacheSize = inline.DefaultCacheSize
	DefaultFormat    = "esm"
	DefaultPlatform  = "browser"
	DefaultTarget    = "es2020"
	DefaultOutdir    = "dist"
)

// ConfigFileNames are searched, in order, in the project root.
var ConfigFileNames = []string{"sqlinline.yaml", "sqlinline.yml"}

// SlogLevel returns the logging level, forcing debug when Verbose is set.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TransformerOptions maps the configuration onto inline.Options. A positive
// CacheSize gets a fresh content cache.
func (c *Config) TransformerOptions(logger *slog.Logger) (inline.Options, error) {
	opts := inline.Options{
		Include:    c.Include,
		Exclude:    c.Exclude,
		BaseDir:    c.ProjectRoot,
		LoaderName: c.LoaderName,
		QueryName:  c.QueryName,
		Verify:     c.Verify,
		Logger:     logger,
	}
	if c.CacheSize > 0 {
		cache, err := inline.NewContentCache(c.CacheSize)
		if err != nil {
			return inline.Options{}, err
		}
		opts.Cache = cache
	}
	return opts, nil
}

// NewTransformer creates the transformer described by the configuration.
func (c *Config) NewTransformer(logger *slog.Logger) (*inline.Transformer, error) {
	opts, err := c.TransformerOptions(logger)
	if err != nil {
		return nil, err
	}
	return inline.New(opts)
}

// EsbuildConfig returns the esbuild settings. Non-empty entries replace the
// configured entry points; an outfile wins over the default outdir.
func (c *Config) EsbuildConfig(entries []string) esbuildplugin.BuildConfig {
	eps := c.Build.EntryPoints
	if len(entries) > 0 {
		eps = entries
	}
	outdir := c.Build.Outdir
	if c.Build.Outfile != "" {
		outdir = ""
	}
	return esbuildplugin.BuildConfig{
		EntryPoints:   eps,
		Outdir:        outdir,
		Outfile:       c.Build.Outfile,
		Bundle:        c.Build.Bundle,
		Format:        c.Build.Format,
		Platform:      c.Build.Platform,
		Target:        c.Build.Target,
		External:      c.Build.External,
		Minify:        c.Build.Minify,
		Sourcemap:     c.Build.Sourcemap,
		Write:         true,
		AbsWorkingDir: c.ProjectRoot,
	}
}
