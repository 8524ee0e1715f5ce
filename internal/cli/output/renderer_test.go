package output

import (
	"bytes"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_EffectiveMode(t *testing.T) {
	var buf bytes.Buffer

	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, "").EffectiveMode())
	assert.Equal(t, ModeText, NewRenderer(&buf, &buf, ModeText).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRenderer(&buf, &buf, ModeJSON).EffectiveMode())
	assert.False(t, NewRenderer(&buf, &buf, ModeAuto).IsTTY())
}

func TestRenderer_PlainOutputHasNoEscapes(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)

	r.Header(1, "Summary")
	r.Success("done")
	r.Warning("careful")
	r.Error("broken")

	assert.Equal(t, "Summary\n✓ done\n", out.String())
	assert.Equal(t, "warning: careful\nerror: broken\n", errOut.String())
	assert.NotContains(t, out.String(), "\x1b[")
}

func TestRenderer_Table(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &out, ModeMarkdown)

	r.Table(table.Row{"File", "Inlined"}, []table.Row{{"a.ts", 2}}, table.Row{"Total", 2})

	assert.Contains(t, out.String(), "| File | Inlined |")
	assert.Contains(t, out.String(), "| a.ts | 2 |")

	out.Reset()
	r = NewRenderer(&out, &out, ModeText)
	r.Table(table.Row{"File", "Inlined"}, []table.Row{{"a.ts", 2}}, nil)
	assert.Contains(t, out.String(), "a.ts")
	assert.Contains(t, out.String(), "┌")
}

func TestRenderer_JSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &out, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"rewritten": 3}))
	assert.JSONEq(t, `{"rewritten": 3}`, out.String())
}

func TestFormatHeader(t *testing.T) {
	assert.Equal(t, "## Files", FormatHeader(2, "Files"))
	assert.Equal(t, "# Files", FormatHeader(0, "Files"))
}

func TestValidMode(t *testing.T) {
	assert.True(t, ValidMode(""))
	assert.True(t, ValidMode("markdown"))
	assert.False(t, ValidMode("yaml"))
}
