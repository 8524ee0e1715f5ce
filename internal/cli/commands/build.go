package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sqlinline/internal/cli/output"
	"github.com/leapstack-labs/sqlinline/pkg/esbuildplugin"
	"github.com/spf13/cobra"
)

// buildSummary is the JSON form of a build report.
type buildSummary struct {
	Files     []esbuildplugin.FileStat `json:"files"`
	Outputs   []buildOutput            `json:"outputs"`
	Warnings  []string                 `json:"warnings,omitempty"`
	Rewritten int                      `json:"rewritten"`
	Skipped   int                      `json:"skipped"`
	Duration  string                   `json:"duration"`
}

type buildOutput struct {
	Path string `json:"path"`
	Size int    `json:"size"`
}

// addBuildFlags registers the esbuild flags shared by build and watch. Each
// overrides the matching build.* configuration key when set.
func addBuildFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("outdir", "", "Output directory (default: dist)")
	f.String("outfile", "", "Output file for a single entry point; replaces --outdir")
	f.Bool("bundle", true, "Bundle imports into the output")
	f.String("format", "", "Output format (esm|cjs|iife)")
	f.String("platform", "", "Target platform (browser|node|neutral)")
	f.String("target", "", "Language target (es2015 ... es2022, esnext)")
	f.StringSlice("external", nil, "Module paths left as imports")
	f.Bool("minify", false, "Minify the output")
	f.Bool("sourcemap", false, "Emit linked source maps")
	cmd.MarkFlagsMutuallyExclusive("outdir", "outfile")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"esm", "cjs", "iife"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("platform", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"browser", "node", "neutral"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [entry...]",
		Short: "Bundle with esbuild, inlining SQL files",
		Long: `Bundle the project's entry points with esbuild. Every module passing the
include/exclude patterns has its sql_file calls inlined before esbuild parses
it, so the output contains the SQL text and no file lookups.

Entry points given as arguments replace build.entry_points from the config
file. Missing SQL files are reported as esbuild warnings and leave their call
in place; esbuild errors fail the command.`,
		Example: `  # Build the configured entry points
  sqlinline build

  # Bundle one entry for node into a single file
  sqlinline build src/server.ts --platform node --format cjs --outfile dist/server.js`,
		RunE: runBuild,
	}

	addBuildFlags(cmd)
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	entries, err := absPaths(args)
	if err != nil {
		return err
	}

	report, err := esbuildplugin.Build(cmd.Context(), cmdCtx.Cfg.EsbuildConfig(entries), cmdCtx.Transformer, cmdCtx.Logger)
	if report != nil {
		for _, w := range report.Warnings {
			cmdCtx.Renderer.Warning(w)
		}
	}
	if err != nil {
		return err
	}

	return printBuildReport(cmdCtx.Renderer, cmdCtx.Cfg.ProjectRoot, report)
}

func printBuildReport(r *output.Renderer, root string, report *esbuildplugin.BuildReport) error {
	if r.EffectiveMode() == output.ModeJSON {
		summary := buildSummary{
			Files:     report.Files,
			Outputs:   make([]buildOutput, 0, len(report.Outputs)),
			Warnings:  report.Warnings,
			Rewritten: report.Rewritten(),
			Skipped:   report.Skipped(),
			Duration:  report.Duration.String(),
		}
		if summary.Files == nil {
			summary.Files = []esbuildplugin.FileStat{}
		}
		for _, o := range report.Outputs {
			summary.Outputs = append(summary.Outputs, buildOutput{Path: o.Path, Size: o.Size})
		}
		return r.JSON(summary)
	}

	if len(report.Files) > 0 {
		rows := make([]table.Row, 0, len(report.Files))
		for _, f := range report.Files {
			rows = append(rows, table.Row{relPath(root, f.Path), f.Rewritten, f.Skipped, f.Warnings})
		}
		r.Table(
			table.Row{"Module", "Inlined", "Skipped", "Warnings"},
			rows,
			table.Row{"Total", report.Rewritten(), report.Skipped(), len(report.Warnings)},
		)
	}

	rows := make([]table.Row, 0, len(report.Outputs))
	for _, o := range report.Outputs {
		rows = append(rows, table.Row{relPath(root, o.Path), formatSize(o.Size)})
	}
	if len(rows) > 0 {
		r.Table(table.Row{"Output", "Size"}, rows, nil)
	}

	r.Success(fmt.Sprintf("inlined %d call sites into %d outputs in %s",
		report.Rewritten(), len(report.Outputs), report.Duration.Round(time.Millisecond)))
	return nil
}

func absPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		out = append(out, abs)
	}
	return out, nil
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
