package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/sqlinline/internal/cli/config"
	"github.com/leapstack-labs/sqlinline/internal/cli/output"
	"github.com/leapstack-labs/sqlinline/internal/cli/testutil"
	fstestutil "github.com/leapstack-labs/sqlinline/internal/testutil"
	"github.com/leapstack-labs/sqlinline/pkg/esbuildplugin"
	"github.com/leapstack-labs/sqlinline/pkg/inline"
	"github.com/leapstack-labs/sqlinline/pkg/token"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inlinedGetUser = "sql<User>`SELECT * FROM users WHERE id = \\$1`"

// runCommand executes cmd from inside dir and returns stdout and stderr.
func runCommand(t *testing.T, dir string, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	t.Chdir(dir)

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNewTransformCommand(t *testing.T) {
	cmd := NewTransformCommand()

	assert.Equal(t, "transform <file|dir>...", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flags := []string{"write", "out-dir", "strict", "jobs"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewBuildAndWatchCommands(t *testing.T) {
	for _, cmd := range []*cobra.Command{NewBuildCommand(), NewWatchCommand()} {
		assert.NotEmpty(t, cmd.Short, "Short should not be empty")
		assert.NotEmpty(t, cmd.Example, "Example should not be empty")

		flags := []string{"outdir", "outfile", "bundle", "format", "platform", "target", "external", "minify", "sourcemap"}
		for _, flag := range flags {
			assert.NotNil(t, cmd.Flags().Lookup(flag), "%s: flag %q should exist", cmd.Name(), flag)
		}
	}
	assert.NotNil(t, NewWatchCommand().Flags().Lookup("debounce"))
}

func TestNewCheckCommand(t *testing.T) {
	cmd := NewCheckCommand()

	assert.Equal(t, "check <file|dir>...", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
}

func TestTransform_Stdout(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, errOut, err := runCommand(t, dir, NewTransformCommand(), "src/index.ts")
	require.NoError(t, err)

	assert.Contains(t, out, inlinedGetUser)
	assert.Contains(t, out, `import { sql_file, sql } from "@acme/db";`)
	assert.Empty(t, errOut)

	// stdout mode never touches the file
	data, err := os.ReadFile(filepath.Join(dir, "src", "index.ts"))
	require.NoError(t, err)
	assert.Equal(t, testutil.IndexTS, string(data))
}

func TestTransform_WriteInPlace(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, errOut, err := runCommand(t, dir, NewTransformCommand(), "--write", "src")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "src", "index.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(data), inlinedGetUser)

	data, err = os.ReadFile(filepath.Join(dir, "src", "broken.ts"))
	require.NoError(t, err)
	assert.Equal(t, testutil.BrokenTS, string(data), "files with nothing inlined are left alone")

	assert.Contains(t, out, "inlined 1 call sites, 1 of 2 files changed")
	assert.Contains(t, errOut, "broken.ts:3:21: RESOURCE_UNAVAILABLE")
	testutil.AssertNoANSI(t, out)
}

func TestTransform_Strict(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, _, err := runCommand(t, dir, NewTransformCommand(), "--strict", "src")
	require.ErrorIs(t, err, ErrWarnings)

	_, _, err = runCommand(t, dir, NewTransformCommand(), "--strict", "src/index.ts")
	assert.NoError(t, err)
}

func TestTransform_OutDir(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, _, err := runCommand(t, dir, NewTransformCommand(), "--out-dir", "out", "src")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out", "src", "index.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(data), inlinedGetUser)

	data, err = os.ReadFile(filepath.Join(dir, "out", "src", "broken.ts"))
	require.NoError(t, err)
	assert.Equal(t, testutil.BrokenTS, string(data))

	_, _, err = runCommand(t, dir, NewTransformCommand(), "--out-dir", "out", "--write", "src")
	assert.Error(t, err, "--write and --out-dir are exclusive")
}

func TestTransform_JSON(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Setenv("SQLINLINE_OUTPUT", "json")

	out, _, err := runCommand(t, dir, NewTransformCommand(), "--jobs", "1", "src")
	require.NoError(t, err)

	var results []transformResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)

	byName := map[string]transformResult{}
	for _, r := range results {
		byName[filepath.Base(r.Path)] = r
	}
	assert.True(t, byName["index.ts"].Changed)
	assert.Equal(t, 1, byName["index.ts"].Rewritten)
	assert.Contains(t, byName["index.ts"].Code, inlinedGetUser)
	assert.False(t, byName["broken.ts"].Changed)
	assert.Equal(t, 1, byName["broken.ts"].Skipped)
	assert.Len(t, byName["broken.ts"].Warnings, 1)
}

func TestTransform_MissingArgument(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, _, err := runCommand(t, dir, NewTransformCommand(), "src/nope.ts")
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, errOut, err := runCommand(t, dir, NewCheckCommand(), "src/index.ts")
	require.NoError(t, err)
	assert.Contains(t, out, "./queries/get-user.sql")
	assert.Contains(t, out, "ok (33 bytes)")
	assert.Contains(t, out, "1 call sites in 1 files resolve")
	assert.Empty(t, errOut)
	testutil.AssertValidMarkdown(t, out)

	out, errOut, err = runCommand(t, dir, NewCheckCommand(), "src")
	require.ErrorIs(t, err, ErrUnresolved)
	assert.Contains(t, out, "missing")
	assert.Contains(t, errOut, "missing.sql")
}

func TestCheck_JSON(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Setenv("SQLINLINE_OUTPUT", "json")

	out, _, err := runCommand(t, dir, NewCheckCommand(), "src")
	require.ErrorIs(t, err, ErrUnresolved)

	var entries []checkEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)

	for _, e := range entries {
		assert.True(t, e.Eligible)
		switch filepath.Base(e.File) {
		case "index.ts":
			assert.Empty(t, e.Error)
			assert.Equal(t, "tagged", e.Form)
			assert.Equal(t, 5, e.Line)
		case "broken.ts":
			assert.True(t, e.Missing)
			assert.Equal(t, "call", e.Form)
		default:
			t.Errorf("unexpected file %s", e.File)
		}
	}
}

func TestBuild(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Setenv("SQLINLINE_OUTPUT", "json")

	out, _, err := runCommand(t, dir, NewBuildCommand())
	require.NoError(t, err)

	var summary buildSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.Rewritten)
	require.Len(t, summary.Outputs, 1)

	data, err := os.ReadFile(filepath.Join(dir, "dist", "index.js"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "SELECT * FROM users WHERE id = \\$1")
	assert.NotContains(t, string(data), "get-user.sql")
}

func TestBuild_Outfile(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := runCommand(t, dir, NewBuildCommand(), "src/index.ts", "--outfile", "bundle/app.js", "--format", "cjs")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "bundle", "app.js"))
	assert.NoDirExists(t, filepath.Join(dir, "dist"))
	assert.Contains(t, out, "inlined 1 call sites into 1 outputs")
}

func TestBuild_InvalidFlag(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, _, err := runCommand(t, dir, NewBuildCommand(), "--format", "amd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build.format")
}

func TestCollectSources(t *testing.T) {
	dir := t.TempDir()
	fstestutil.WriteTree(t, dir, map[string]string{
		"a.ts":                    "",
		"b.sql":                   "",
		"sub/c.tsx":               "",
		"sub/d.vue":               "",
		"node_modules/pkg/e.js":   "",
		".cache/f.js":             "",
		"sub/deeper/g.svelte":     "",
		"sub/deeper/notes.md":     "",
		"sub/deeper/types.d.mts":  "",
		"sub/deeper/handler.cjs":  "",
		"sub/deeper/handler.json": "",
	})

	files, err := collectSources([]string{dir, filepath.Join(dir, "a.ts")})
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		rel = append(rel, filepath.ToSlash(relPath(dir, f)))
	}
	assert.ElementsMatch(t, []string{
		"a.ts", "sub/c.tsx", "sub/d.vue", "sub/deeper/g.svelte",
		"sub/deeper/types.d.mts", "sub/deeper/handler.cjs",
	}, rel)

	_, err = collectSources([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestPrintTransformSummary(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeMarkdown, false)
	results := []*transformResult{
		{Path: "/p/src/a.ts", Changed: true, Rewritten: 2},
		{Path: "/p/src/b.ts", Skipped: 1, Warnings: []string{"w"}},
	}

	printTransformSummary(tr.Renderer, "/p", results)

	assert.Contains(t, tr.Output(), "| src/a.ts | 2 | 0 | 0 |")
	assert.Contains(t, tr.Output(), "| src/b.ts | 0 | 1 | 1 |")
	assert.Contains(t, tr.Output(), "inlined 2 call sites, 1 of 2 files changed")
	testutil.AssertValidMarkdown(t, tr.Output())
}

func TestReportWatchBuild(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeText, false)

	reportWatchBuild(tr.Renderer, "/p", nil, errors.New("esbuild failed: boom"))
	assert.Contains(t, tr.ErrorOutput(), "error: esbuild failed: boom")
	assert.Empty(t, tr.Output())

	report := &esbuildplugin.BuildReport{
		Files:    []esbuildplugin.FileStat{{Path: "/p/src/a.ts", Rewritten: 1, Warnings: 1}},
		Warnings: []string{"src/a.ts:3:21: missing"},
	}
	reportWatchBuild(tr.Renderer, "/p", report, nil)
	assert.Contains(t, tr.ErrorOutput(), "warning: src/a.ts:3:21: missing")
	assert.Contains(t, tr.Output(), "rebuilt: inlined 1 call sites into 0 outputs")
	assert.Contains(t, tr.Output(), "src/a.ts: 1 warnings")
	testutil.AssertNoANSI(t, tr.Output())
}

func TestFormatWarning(t *testing.T) {
	w := &inline.Warning{
		Kind: inline.ResourceUnavailable,
		File: "/p/a.ts",
		Path: "./x.sql",
		Pos:  token.Position{Line: 2, Column: 7, Offset: 20},
		Err:  inline.ErrResourceUnavailable,
	}
	assert.Equal(t, "/p/a.ts:2:7: RESOURCE_UNAVAILABLE: sql resource unavailable", formatWarning(w))

	w.Pos = token.Position{}
	w.Kind = inline.VerifyFailed
	w.Err = inline.ErrVerify
	assert.Equal(t, "/p/a.ts: VERIFY_FAILED: rewritten source does not parse", formatWarning(w))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KiB", formatSize(1536))
	assert.Equal(t, "2.0 MiB", formatSize(2<<20))
}
