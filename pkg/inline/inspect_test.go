package inline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/sqlinline/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformer_Inspect(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"queries/ok.sql": "SELECT 1"})
	src := `import { sql_file as load } from "db";
const a = load` + "`./queries/ok.sql`" + `;
const b = load("./queries/missing.sql", id);
const c = load("./queries/missing.sql");
`
	tr := newTransformer(t, Options{})
	refs := tr.Inspect(src, filepath.Join(dir, "node_modules", "x.ts"))
	require.Len(t, refs, 3)

	assert.Equal(t, "./queries/ok.sql", refs[0].Path)
	assert.Equal(t, filepath.Join(dir, "node_modules", "queries", "ok.sql"), refs[0].Resolved)
	assert.Error(t, refs[0].Err, "resolution is relative to the inspected file")

	refs = tr.Inspect(src, filepath.Join(dir, "x.ts"))
	require.Len(t, refs, 3)

	assert.NoError(t, refs[0].Err)
	assert.Equal(t, 8, refs[0].Bytes)
	assert.Equal(t, FormTagged, refs[0].Form)

	for _, r := range refs[1:] {
		assert.ErrorIs(t, r.Err, ErrResourceUnavailable)
		assert.ErrorIs(t, r.Err, os.ErrNotExist)
		assert.Zero(t, r.Bytes)
		assert.Equal(t, filepath.Join(dir, "queries", "missing.sql"), r.Resolved)
	}
	assert.Equal(t, "id", refs[1].Args)
}

func TestTransformer_InspectNoCalls(t *testing.T) {
	tr := newTransformer(t, Options{})
	assert.Nil(t, tr.Inspect("const x = 1;", "/src/a.ts"))
}
