package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pstuifzand/dtsedit/internal/diff"
)

func TestParseColorString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#9ece6a", "#9ece6a"},
		{"#fff", "#ffffff"},
		{" rgb(255, 0, 16) ", "#ff0010"},
		{"rgb(256,0,0)", ""},
		{"rgb(1,2)", ""},
		{"green", ""},
		{"#12345", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseColorString(tt.in).Hex())
		})
	}
}

func TestPaint(t *testing.T) {
	c := HexToColor("#ff0000")
	assert.Equal(t, "\x1b[38;2;255;0;0mx\x1b[0m", c.Paint("x"))
	assert.Equal(t, "x", ColorDefault.Paint("x"))
	assert.Equal(t, "", c.Paint(""))
	assert.True(t, ColorDefault.Dim(0.5).IsDefault())
	assert.False(t, c.Dim(0.5).IsDefault())
}

func TestColorFor(t *testing.T) {
	th := TokyoNight()
	assert.Equal(t, th.Colors.Added, th.ColorFor(diff.DiffTypeNewItem))
	assert.Equal(t, th.Colors.Removed, th.ColorFor(diff.DiffTypeDeletedItem))
	assert.True(t, th.ColorFor(diff.DiffTypeBlank).IsDefault())
	assert.True(t, Default().ColorFor(diff.DiffTypeHeader).IsDefault())
}

func TestRender(t *testing.T) {
	lines := []diff.DiffLine{
		{Type: diff.DiffTypeHeader, Content: "Bin 0 (index 0):"},
		{Type: diff.DiffTypeNewItem, Content: "+ level 2", Indent: 1},
		{Type: diff.DiffTypeBlank},
	}
	th := TokyoNight()
	assert.Equal(t, "Bin 0 (index 0):\n  + level 2\n\n", th.Render(lines, false))

	colored := th.Render(lines, true)
	assert.Contains(t, colored, th.Colors.Added.Escape()+"  + level 2"+reset)

	unified := "--- a\n+++ b\n@@ -1 +1 @@\n-x\n+y\n"
	assert.Equal(t, unified, th.RenderUnified(unified, false))
	out := th.RenderUnified(unified, true)
	assert.Contains(t, out, th.Colors.Removed.Paint("-x")+"\n")
	assert.Contains(t, out, th.Colors.Header.Paint("+++ b")+"\n")
}

func TestLoadThemeFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.toml")
	content := "name = \"mono\"\n[colors]\nadded = \"#00ff00\"\nremoved = \"bogus\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	th, err := LoadThemeFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mono", th.Name)
	assert.Equal(t, "#00ff00", th.Colors.Added.Hex())
	assert.Equal(t, TokyoNight().Colors.Removed, th.Colors.Removed)

	_, err = LoadThemeFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadThemeOrDefault(t *testing.T) {
	assert.Equal(t, "default", LoadThemeOrDefault("none").Name)
	assert.Equal(t, "tokyo-night", LoadThemeOrDefault("").Name)
	assert.Equal(t, "tokyo-night", LoadThemeOrDefault("does-not-exist-anywhere").Name)
}
