package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlinline/internal/cli/output"
	"github.com/leapstack-labs/sqlinline/pkg/esbuildplugin"
	"github.com/leapstack-labs/sqlinline/pkg/inline"
)

var logLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate checks if the configuration is valid. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []error

	if !inline.IsIdentifier(c.LoaderName) {
		errs = append(errs, fmt.Errorf("loader_name %q is not a valid identifier", c.LoaderName))
	}
	if !inline.IsIdentifier(c.QueryName) {
		errs = append(errs, fmt.Errorf("query_name %q is not a valid identifier", c.QueryName))
	}
	if c.LoaderName == c.QueryName {
		errs = append(errs, fmt.Errorf("loader_name and query_name must differ"))
	}
	if _, err := inline.NewFilter(c.Include, c.Exclude, c.ProjectRoot); err != nil {
		errs = append(errs, err)
	}
	if c.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs must not be negative, got %d", c.Jobs))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize))
	}
	if !validLogLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level %q is not one of %s", c.LogLevel, strings.Join(logLevels, ", ")))
	}
	if !output.ValidMode(c.OutputFormat) {
		errs = append(errs, fmt.Errorf("output %q is not one of %s", c.OutputFormat, strings.Join(output.Modes, ", ")))
	}

	if _, err := esbuildplugin.ParseFormat(c.Build.Format); err != nil {
		errs = append(errs, fmt.Errorf("build.format: %w", err))
	}
	if _, err := esbuildplugin.ParsePlatform(c.Build.Platform); err != nil {
		errs = append(errs, fmt.Errorf("build.platform: %w", err))
	}
	if _, err := esbuildplugin.ParseTarget(c.Build.Target); err != nil {
		errs = append(errs, fmt.Errorf("build.target: %w", err))
	}

	return errors.Join(errs...)
}

func validLogLevel(s string) bool {
	if s == "" {
		return true
	}
	for _, l := range logLevels {
		if strings.EqualFold(s, l) {
			return true
		}
	}
	return false
}
