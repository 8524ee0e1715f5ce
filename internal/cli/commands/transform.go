package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sqlinline/internal/cli/output"
	"github.com/leapstack-labs/sqlinline/pkg/inline"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// ErrWarnings is returned by transform --strict when any warning was emitted.
var ErrWarnings = errors.New("warnings were emitted")

// transformResult is the outcome for one file.
type transformResult struct {
	Path         string   `json:"path"`
	Changed      bool     `json:"changed"`
	Rewritten    int      `json:"rewritten"`
	Skipped      int      `json:"skipped"`
	Warnings     []string `json:"warnings,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Written      string   `json:"written,omitempty"`
	Code         string   `json:"code,omitempty"`
}

type transformOptions struct {
	write  bool
	outDir string
	strict bool
}

// NewTransformCommand creates the transform command.
func NewTransformCommand() *cobra.Command {
	var opts transformOptions

	cmd := &cobra.Command{
		Use:   "transform <file|dir>...",
		Short: "Inline SQL files into source files",
		Long: `Rewrite every sql_file call in the given files into a sql call embedding the
referenced SQL file's text.

Directories are searched for .js, .jsx, .ts, .tsx, .mjs, .cjs, .mts, .cts,
.vue and .svelte files. Files excluded by the include/exclude patterns are
passed through unchanged.

By default the result is printed to stdout. Use --write to update files in
place or --out-dir to write them under another directory.

A SQL file that cannot be read leaves its call untouched and prints a
warning; --strict turns any warning into a non-zero exit.`,
		Example: `  # Print the rewritten file
  sqlinline transform src/users.ts

  # Rewrite a whole tree in place
  sqlinline transform --write src

  # Write rewritten copies to a separate directory, failing on warnings
  sqlinline transform --out-dir build/src --strict src`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.write, "write", "w", false, "Rewrite files in place")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "Write results under this directory, keeping paths relative to the project root")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit non-zero when any warning is emitted")
	cmd.Flags().IntP("jobs", "j", 0, "Files processed concurrently, 0 for one per CPU (default: 4)")
	cmd.MarkFlagsMutuallyExclusive("write", "out-dir")

	return cmd
}

func runTransform(cmd *cobra.Command, args []string, opts transformOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	files, err := collectSources(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		r.Warning("no source files found")
		return nil
	}

	outDir := opts.outDir
	if outDir != "" {
		if outDir, err = filepath.Abs(outDir); err != nil {
			return err
		}
	}

	jobs := cmdCtx.Cfg.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]*transformResult, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			res, err := transformFile(ctx, cmdCtx.Transformer, path)
			if err != nil {
				return err
			}
			if err := writeResult(res, cmdCtx.Cfg.ProjectRoot, opts.write, outDir); err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	warnings := 0
	for _, res := range results {
		for _, w := range res.Warnings {
			r.Warning(w)
		}
		warnings += len(res.Warnings)
	}

	toStdout := !opts.write && outDir == ""
	if r.EffectiveMode() == output.ModeJSON {
		if !toStdout {
			for _, res := range results {
				res.Code = ""
			}
		}
		if err := r.JSON(results); err != nil {
			return err
		}
	} else if toStdout {
		printTransformed(r, cmdCtx.Cfg.ProjectRoot, results)
	} else {
		printTransformSummary(r, cmdCtx.Cfg.ProjectRoot, results)
	}

	if opts.strict && warnings > 0 {
		return fmt.Errorf("%w: %d", ErrWarnings, warnings)
	}
	return nil
}

// transformFile reads and transforms one file. Unchanged files keep their
// original text in Code.
func transformFile(ctx context.Context, t *inline.Transformer, path string) (*transformResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	res := &transformResult{Path: path, Code: string(data)}
	warn := func(w *inline.Warning) {
		res.Warnings = append(res.Warnings, formatWarning(w))
	}

	out, changed := t.Transform(res.Code, path, warn)
	if changed {
		res.Changed = true
		res.Code = out.Code
		res.Rewritten = out.Rewritten
		res.Skipped = out.Skipped
		res.Dependencies = out.Dependencies
	} else if t.Eligible(path) {
		res.Skipped = len(t.Scan(res.Code))
	}
	return res, nil
}

func writeResult(res *transformResult, root string, inPlace bool, outDir string) error {
	switch {
	case inPlace:
		if !res.Changed {
			return nil
		}
		info, err := os.Stat(res.Path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(res.Path, []byte(res.Code), info.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to write %s: %w", res.Path, err)
		}
		res.Written = res.Path
	case outDir != "":
		rel := relPath(root, res.Path)
		if filepath.IsAbs(rel) {
			rel = filepath.Base(rel)
		}
		dest := filepath.Join(outDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(dest, []byte(res.Code), 0o644); err != nil { //nolint:gosec // G306: generated sources are meant to be readable
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		res.Written = dest
	}
	return nil
}

// formatWarning renders a warning as "file:line:col: KIND: message".
func formatWarning(w *inline.Warning) string {
	if w.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %v", w.File, w.Pos.Line, w.Pos.Column, w.Kind, w.Err)
	}
	return fmt.Sprintf("%s: %s: %v", w.File, w.Kind, w.Err)
}

func printTransformed(r *output.Renderer, root string, results []*transformResult) {
	if len(results) == 1 {
		r.Printf("%s", results[0].Code)
		return
	}
	for _, res := range results {
		if r.EffectiveMode() == output.ModeMarkdown {
			r.Println(output.FormatHeader(2, relPath(root, res.Path)))
			r.Println("")
			r.Println(output.FormatCodeBlock(codeFenceLang(res.Path), res.Code))
			r.Println("")
			continue
		}
		r.Header(2, relPath(root, res.Path))
		r.Println(res.Code)
	}
}

func printTransformSummary(r *output.Renderer, root string, results []*transformResult) {
	rows := make([]table.Row, 0, len(results))
	var changed, rewritten, skipped int
	for _, res := range results {
		if res.Changed {
			changed++
		}
		rewritten += res.Rewritten
		skipped += res.Skipped
		rows = append(rows, table.Row{relPath(root, res.Path), res.Rewritten, res.Skipped, len(res.Warnings)})
	}

	r.Table(
		table.Row{"File", "Inlined", "Skipped", "Warnings"},
		rows,
		table.Row{"Total", rewritten, skipped, ""},
	)
	r.Success(fmt.Sprintf("inlined %d call sites, %d of %d files changed", rewritten, changed, len(results)))
}

func codeFenceLang(path string) string {
	switch filepath.Ext(path) {
	case ".ts", ".mts", ".cts":
		return "ts"
	case ".tsx":
		return "tsx"
	case ".vue":
		return "vue"
	case ".svelte":
		return "svelte"
	default:
		return "js"
	}
}
