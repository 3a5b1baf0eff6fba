package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode OutputMode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestMode(t *testing.T) {
	tests := map[string]OutputMode{
		"":         ModeAuto,
		"auto":     ModeAuto,
		"TEXT":     ModeText,
		"md":       ModeMarkdown,
		"markdown": ModeMarkdown,
		"json":     ModeJSON,
		"yaml":     ModeAuto,
	}
	for in, want := range tests {
		assert.Equal(t, want, Mode(in), in)
	}
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{name: "auto on tty", mode: ModeAuto, isTTY: true, want: ModeText},
		{name: "auto piped", mode: ModeAuto, isTTY: false, want: ModeMarkdown},
		{name: "explicit json", mode: ModeJSON, isTTY: true, want: ModeJSON},
		{name: "explicit text piped", mode: ModeText, isTTY: false, want: ModeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestRenderer_StatusLine(t *testing.T) {
	r, out, _ := newTestRenderer(ModeText, false)

	r.StatusLine("companies", "passed", "3 passes")
	r.StatusLine("reviews", "failed", "")
	r.StatusLine("orders", "skipped", "")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "✓ companies passed  3 passes", strings.TrimSpace(lines[0]))
	assert.Equal(t, "✗ reviews failed", strings.TrimSpace(lines[1]))
	assert.Equal(t, "! orders skipped", strings.TrimSpace(lines[2]))
}

func TestRenderer_ErrorStreams(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, false)

	r.Warning("careful")
	r.Error("broken")

	assert.Empty(t, out.String())
	assert.Equal(t, "! careful\n✗ broken\n", errOut.String())
}

func TestRenderer_Table(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown, false)
		r.Table([]string{"name", "rows"}, [][]any{{"companies", 3}})
		assert.Contains(t, out.String(), "| companies | 3 |")
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, false)
		r.Table([]string{"name", "rows"}, [][]any{{"companies", 3}})
		assert.Contains(t, out.String(), "companies")
		assert.Contains(t, out.String(), "┌")
	})
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSON(ListOutput{Env: "base", Datasets: []DatasetInfo{{Name: "companies", Tabular: true}}}))
	assert.Contains(t, out.String(), `"env": "base"`)
	assert.Contains(t, out.String(), `"name": "companies"`)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Datasets", FormatHeader(2, "Datasets"))
	assert.Equal(t, "# Top", FormatHeader(0, "Top"))
	assert.Equal(t, "- **Env:** base", FormatKeyValue("Env", "base"))
}
