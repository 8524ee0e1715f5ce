package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sqlinline/internal/cli/output"
	"github.com/spf13/cobra"
)

// ErrUnresolved is returned by check when a call site's SQL file cannot be read.
var ErrUnresolved = errors.New("unresolved sql files")

// checkEntry describes one call site.
type checkEntry struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Form     string `json:"form"`
	Path     string `json:"path"`
	Resolved string `json:"resolved"`
	Bytes    int    `json:"bytes"`
	Eligible bool   `json:"eligible"`
	Missing  bool   `json:"missing,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file|dir>...",
		Short: "Report sql_file call sites and whether their SQL resolves",
		Long: `List every sql_file call in the given files together with the SQL file it
resolves to, without rewriting anything.

The command exits non-zero when any referenced SQL file is missing or
unreadable, which makes it suitable for CI. Files excluded by the
include/exclude patterns are listed but marked as excluded.`,
		Example: `  # Check a source tree
  sqlinline check src

  # Machine-readable report
  sqlinline check src --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheck,
	}

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	t := cmdCtx.Transformer

	files, err := collectSources(args)
	if err != nil {
		return err
	}

	var entries []checkEntry
	failed := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		eligible := t.Eligible(path)
		for _, ref := range t.Inspect(string(data), path) {
			e := checkEntry{
				File:     relPath(cmdCtx.Cfg.ProjectRoot, path),
				Line:     ref.Span.Start.Line,
				Column:   ref.Span.Start.Column,
				Form:     ref.Form.String(),
				Path:     ref.Path,
				Resolved: ref.Resolved,
				Bytes:    ref.Bytes,
				Eligible: eligible,
			}
			if ref.Err != nil {
				e.Error = ref.Err.Error()
				e.Missing = errors.Is(ref.Err, os.ErrNotExist)
				failed++
			}
			entries = append(entries, e)
		}
	}
	cmdCtx.Logger.Debug("checked call sites", "files", len(files), "calls", len(entries), "failed", failed)

	if r.EffectiveMode() == output.ModeJSON {
		if entries == nil {
			entries = []checkEntry{}
		}
		if err := r.JSON(entries); err != nil {
			return err
		}
	} else {
		printCheck(r, t.LoaderName(), entries, len(files), failed)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d call sites", ErrUnresolved, failed, len(entries))
	}
	return nil
}

func printCheck(r *output.Renderer, loaderName string, entries []checkEntry, files, failed int) {
	if len(entries) == 0 {
		r.Printf("No %s calls found in %d files\n", loaderName, files)
		return
	}

	r.Header(1, "SQL references")
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		status := fmt.Sprintf("ok (%d bytes)", e.Bytes)
		switch {
		case e.Missing:
			status = "missing"
		case e.Error != "":
			status = "unreadable"
		}
		if !e.Eligible {
			status += ", excluded"
		}
		rows = append(rows, table.Row{fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column), e.Form, e.Path, status})
	}
	r.Table(table.Row{"Call site", "Form", "SQL file", "Status"}, rows, nil)

	if failed == 0 {
		r.Success(fmt.Sprintf("%d call sites in %d files resolve", len(entries), files))
		return
	}
	for _, e := range entries {
		if e.Error != "" {
			r.Warning(fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Error))
		}
	}
}
