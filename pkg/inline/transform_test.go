package inline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/leapstack-labs/sqlinline/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector records warnings from Transform.
type collector struct {
	mu       sync.Mutex
	warnings []*Warning
}

func (c *collector) warn(w *Warning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, w)
}

func newTransformer(t *testing.T, opts Options) *Transformer {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testutil.NewTestLogger(t)
	}
	tr, err := New(opts)
	require.NoError(t, err)
	return tr
}

func TestTransform_TaggedWithTypeArgument(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"get-user.sql": "SELECT * FROM users WHERE id = $1",
	})
	src := `import { sql_file } from "@acme/db";

type User = { id: number; name: string };

const q = sql_file<User>` + "`./get-user.sql`" + `;
`
	tr := newTransformer(t, Options{})
	c := &collector{}

	res, changed := tr.Transform(src, filepath.Join(dir, "users.ts"), c.warn)
	require.True(t, changed)
	require.NotNil(t, res)

	assert.Contains(t, res.Code, "const q = sql<User>`SELECT * FROM users WHERE id = \\$1`;")
	assert.Contains(t, res.Code, `import { sql_file, sql } from "@acme/db";`)
	assert.NotContains(t, res.Code, "./get-user.sql")
	assert.Equal(t, 1, res.Rewritten)
	assert.Zero(t, res.Skipped)
	assert.Empty(t, res.SourceMap)
	assert.Equal(t, []string{filepath.Join(dir, "get-user.sql")}, res.Dependencies)
	assert.Empty(t, c.warnings)
}

func TestTransform_CallWithTrailingArguments(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a.sql": "SELECT 1"})
	src := "import { sql_file } from 'db';\nconst q = sql_file<T>(\"a.sql\", x, y);\n"

	tr := newTransformer(t, Options{})
	res, changed := tr.Transform(src, filepath.Join(dir, "q.ts"), nil)
	require.True(t, changed)

	assert.Equal(t, "import { sql_file, sql } from 'db';\nconst q = sql<T>(`SELECT 1`, x, y);\n", res.Code)
}

func TestTransform_CallFormWithoutArguments(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"sub/a.sql": "SELECT 1"})
	src := "import { sql_file, sql } from 'db';\nconst q = sql_file('./sub/a.sql');\n"

	tr := newTransformer(t, Options{})
	res, changed := tr.Transform(src, filepath.Join(dir, "q.js"), nil)
	require.True(t, changed)

	assert.Equal(t, "import { sql_file, sql } from 'db';\nconst q = sql`SELECT 1`;\n", res.Code)
}

func TestTransform_MissingFileWarnsOnce(t *testing.T) {
	dir := t.TempDir()
	src := "import { sql_file } from 'db';\n" +
		"const a = sql_file`./missing.sql`;\n" +
		"const b = sql_file`./missing.sql`;\n"

	tr := newTransformer(t, Options{})
	c := &collector{}

	res, changed := tr.Transform(src, filepath.Join(dir, "q.ts"), c.warn)
	assert.False(t, changed)
	assert.Nil(t, res)

	require.Len(t, c.warnings, 1)
	w := c.warnings[0]
	assert.Equal(t, ResourceUnavailable, w.Kind)
	assert.Equal(t, "./missing.sql", w.Path)
	assert.Equal(t, 2, w.Pos.Line)
	assert.Equal(t, 11, w.Pos.Column)
	assert.Equal(t, filepath.Join(dir, "q.ts"), w.File)
	assert.ErrorIs(t, w, ErrResourceUnavailable)
	assert.ErrorIs(t, w, os.ErrNotExist)
	assert.Contains(t, w.Error(), "missing.sql")
}

func TestTransform_PartialFailureKeepsFailedCall(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"ok.sql": "SELECT 1"})
	src := "import { sql_file } from 'db';\n" +
		"const a = sql_file`./ok.sql`;\n" +
		"const b = sql_file`./gone.sql`;\n"

	tr := newTransformer(t, Options{})
	c := &collector{}

	res, changed := tr.Transform(src, filepath.Join(dir, "q.ts"), c.warn)
	require.True(t, changed)

	assert.Contains(t, res.Code, "const a = sql`SELECT 1`;")
	assert.Contains(t, res.Code, "const b = sql_file`./gone.sql`;")
	assert.Contains(t, res.Code, "import { sql_file, sql } from 'db';")
	assert.Equal(t, 1, res.Rewritten)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, c.warnings, 1)
	assert.Equal(t, "./gone.sql", c.warnings[0].Path)
}

func TestTransform_Unchanged(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a.sql": "SELECT 1"})
	tr := newTransformer(t, Options{})

	tests := []struct {
		name string
		src  string
		id   string
	}{
		{"no loader mention", "export const x = 1;\n", "q.ts"},
		{"mention without call", "import { sql_file } from 'db';\nexport { sql_file };\n", "q.ts"},
		{"only in comment", "// sql_file`./a.sql`\n", "q.ts"},
		{"dynamic path", "const q = sql_file(name);\n", "q.ts"},
		{"excluded dependency", "const q = sql_file`./a.sql`;\n", "node_modules/lib/q.js"},
		{"not a script", "const q = sql_file`./a.sql`;\n", "q.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &collector{}
			res, changed := tr.Transform(tt.src, filepath.Join(dir, tt.id), c.warn)
			assert.False(t, changed)
			assert.Nil(t, res)
			assert.Empty(t, c.warnings)
		})
	}
}

func TestTransform_DuplicatesAllReplacedAndReadOnce(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a.sql": "SELECT 1"})

	var mu sync.Mutex
	reads := map[string]int{}
	readFile := func(p string) ([]byte, error) {
		mu.Lock()
		reads[p]++
		mu.Unlock()
		return os.ReadFile(p)
	}

	src := "import { sql_file } from 'db';\n" +
		"const a = sql_file`./a.sql`;\n" +
		"const b = sql_file('a.sql');\n" +
		"const c = sql_file`./a.sql`;\n"

	tr := newTransformer(t, Options{ReadFile: readFile})
	res, changed := tr.Transform(src, filepath.Join(dir, "q.ts"), nil)
	require.True(t, changed)

	assert.Equal(t, 3, strings.Count(res.Code, "sql`SELECT 1`"))
	assert.NotContains(t, res.Code, "sql_file`")
	assert.Equal(t, 3, res.Rewritten)
	assert.Equal(t, map[string]int{filepath.Join(dir, "a.sql"): 1}, reads)
	assert.Len(t, res.Dependencies, 1)
}

func TestTransform_ResolvesRelativeToEachFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"users/q.sql":  "SELECT * FROM users",
		"orders/q.sql": "SELECT * FROM orders",
	})
	src := "import { sql_file } from 'db';\nconst q = sql_file`./q.sql`;\n"
	tr := newTransformer(t, Options{})

	users, ok := tr.Transform(src, filepath.Join(dir, "users", "index.ts"), nil)
	require.True(t, ok)
	orders, ok := tr.Transform(src, filepath.Join(dir, "orders", "index.ts"), nil)
	require.True(t, ok)

	assert.Contains(t, users.Code, "sql`SELECT * FROM users`")
	assert.Contains(t, orders.Code, "sql`SELECT * FROM orders`")
	assert.NotContains(t, users.Code, "orders")
}

func TestTransform_ModuleQuerySuffix(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a.sql": "SELECT 1"})
	src := "import { sql_file } from 'db';\nconst q = sql_file`./a.sql`;\n"

	tr := newTransformer(t, Options{})
	res, changed := tr.Transform(src, filepath.Join(dir, "App.vue")+"?vue&type=script&lang.ts", nil)
	require.True(t, changed)
	assert.Contains(t, res.Code, "sql`SELECT 1`")
}

func TestTransform_EscapedContentRoundTrips(t *testing.T) {
	dir := t.TempDir()
	content := "-- `quoted` ${not_a_sub} \\n $1\r\nSELECT '\\' AS slash"
	testutil.WriteTree(t, dir, map[string]string{"weird.sql": content})
	src := "import { sql_file, sql } from 'db';\nexport const q = sql_file`./weird.sql`;\n"

	tr := newTransformer(t, Options{Verify: true})
	c := &collector{}
	res, changed := tr.Transform(src, filepath.Join(dir, "q.ts"), c.warn)
	require.True(t, changed)
	require.Empty(t, c.warnings)

	const prefix = "export const q = sql`"
	start := strings.Index(res.Code, prefix)
	require.GreaterOrEqual(t, start, 0)
	body := res.Code[start+len(prefix):]
	body = body[:strings.LastIndex(body, "`;")]

	assert.Equal(t, EscapeTemplate(content), body)
	assert.Equal(t, content, UnescapeTemplate(body))
}

func TestTransform_Bindings(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a.sql": "SELECT 1"})

	tests := []struct {
		name     string
		src      string
		want     string
		wantWarn bool
	}{
		{
			name: "query already imported",
			src:  "import { sql, sql_file } from 'db';\nconst q = sql_file`./a.sql`;\n",
			want: "import { sql, sql_file } from 'db';\nconst q = sql`SELECT 1`;\n",
		},
		{
			name: "aliases reused",
			src:  "import { sql_file as load, sql as q } from 'db';\nconst x = load`./a.sql`;\n",
			want: "import { sql_file as load, sql as q } from 'db';\nconst x = q`SELECT 1`;\n",
		},
		{
			name: "loader alias gets query added",
			src:  "import { sql_file as load } from 'db';\nconst x = load`./a.sql`;\n",
			want: "import { sql_file as load, sql } from 'db';\nconst x = sql`SELECT 1`;\n",
		},
		{
			name: "qualified call keeps namespace",
			src:  "import * as db from 'db';\nconst x = db.sql_file`./a.sql`;\n",
			want: "import * as db from 'db';\nconst x = db.sql`SELECT 1`;\n",
		},
		{
			name:     "no import to extend",
			src:      "const x = sql_file`./a.sql`;\n",
			want:     "const x = sql`SELECT 1`;\n",
			wantWarn: true,
		},
	}

	tr := newTransformer(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &collector{}
			res, changed := tr.Transform(tt.src, filepath.Join(dir, "q.ts"), c.warn)
			require.True(t, changed)
			assert.Equal(t, tt.want, res.Code)

			if tt.wantWarn {
				require.Len(t, c.warnings, 1)
				assert.Equal(t, ImportReconcileFailed, c.warnings[0].Kind)
				assert.ErrorIs(t, c.warnings[0], ErrImportReconcile)
			} else {
				assert.Empty(t, c.warnings)
			}
		})
	}
}

func TestTransform_CustomNames(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a.sql": "SELECT 1"})
	src := "import { loadSql } from 'db';\nconst x = loadSql`./a.sql`;\nconst y = sql_file`./a.sql`;\n"

	tr := newTransformer(t, Options{LoaderName: "loadSql", QueryName: "query"})
	res, changed := tr.Transform(src, filepath.Join(dir, "q.ts"), nil)
	require.True(t, changed)

	assert.Equal(t, "import { loadSql, query } from 'db';\nconst x = query`SELECT 1`;\nconst y = sql_file`./a.sql`;\n", res.Code)
	assert.Equal(t, "loadSql", tr.LoaderName())
	assert.Equal(t, "query", tr.QueryName())
}

func TestTransform_VerifyRejectsBrokenOutput(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a.sql": "SELECT 1"})
	src := "import { sql_file } from 'db';\nconst q = sql_file`./a.sql`;\nconst = ;\n"

	tr := newTransformer(t, Options{Verify: true})
	c := &collector{}
	res, changed := tr.Transform(src, filepath.Join(dir, "q.ts"), c.warn)
	assert.False(t, changed)
	assert.Nil(t, res)

	require.Len(t, c.warnings, 1)
	assert.Equal(t, VerifyFailed, c.warnings[0].Kind)
	assert.ErrorIs(t, c.warnings[0], ErrVerify)
}

func TestTransform_VerifySkipsComponentFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a.sql": "SELECT 1"})
	src := "<script>\nimport { sql_file } from 'db';\nconst q = sql_file`./a.sql`;\n</script>\n"

	tr := newTransformer(t, Options{Verify: true})
	res, changed := tr.Transform(src, filepath.Join(dir, "Q.svelte"), nil)
	require.True(t, changed)
	assert.Contains(t, res.Code, "sql`SELECT 1`")
}

func TestTransform_NilWarnLogs(t *testing.T) {
	logger, buf := testutil.NewCaptureLogger(t)
	tr := newTransformer(t, Options{Logger: logger})

	_, changed := tr.Transform("const q = sql_file`./none.sql`;\n", filepath.Join(t.TempDir(), "q.ts"), nil)
	assert.False(t, changed)
	assert.Contains(t, buf.String(), "RESOURCE_UNAVAILABLE")
	assert.Contains(t, buf.String(), "none.sql")
}

func TestTransform_InvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"bad.sql": "SELECT '\xff'"})

	tr := newTransformer(t, Options{})
	c := &collector{}
	_, changed := tr.Transform("const q = sql_file`./bad.sql`;\n", filepath.Join(dir, "q.ts"), c.warn)
	assert.False(t, changed)
	require.Len(t, c.warnings, 1)

	var rerr *ResourceError
	require.True(t, errors.As(c.warnings[0], &rerr))
	assert.Equal(t, filepath.Join(dir, "bad.sql"), rerr.Path)
}

func TestTransform_ContentCache(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a.sql": "SELECT 1"})

	reads := 0
	readFile := func(p string) ([]byte, error) {
		reads++
		return os.ReadFile(p)
	}
	cache, err := NewContentCache(0)
	require.NoError(t, err)

	tr := newTransformer(t, Options{ReadFile: readFile, Cache: cache})
	assert.Same(t, cache, tr.Cache())

	src := "import { sql_file } from 'db';\nconst q = sql_file`./a.sql`;\n"
	id := filepath.Join(dir, "q.ts")

	_, ok := tr.Transform(src, id, nil)
	require.True(t, ok)
	_, ok = tr.Transform(src, id, nil)
	require.True(t, ok)
	assert.Equal(t, 1, reads)
	assert.Equal(t, 1, cache.Len())

	testutil.WriteTree(t, dir, map[string]string{"a.sql": "SELECT 2"})
	cache.Invalidate(filepath.Join(dir, "a.sql"))

	res, ok := tr.Transform(src, id, nil)
	require.True(t, ok)
	assert.Equal(t, 2, reads)
	assert.Contains(t, res.Code, "sql`SELECT 2`")

	cache.Purge()
	assert.Zero(t, cache.Len())
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{"bad loader", Options{LoaderName: "sql-file"}, "invalid loader name"},
		{"bad query", Options{QueryName: "1sql"}, "invalid query name"},
		{"same names", Options{LoaderName: "q", QueryName: "q"}, "must differ"},
		{"bad include", Options{Include: []string{"[src"}}, "include"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTransformer_Eligible(t *testing.T) {
	tr := newTransformer(t, Options{})

	assert.True(t, tr.Eligible("/app/src/a.ts"))
	assert.False(t, tr.Eligible("/app/node_modules/a.ts"))
}
