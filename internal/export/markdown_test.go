package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pstuifzand/dtsedit/internal/chips"
	"github.com/pstuifzand/dtsedit/internal/codec"
	"github.com/pstuifzand/dtsedit/internal/dtstest"
	"github.com/pstuifzand/dtsedit/internal/model"
	"github.com/pstuifzand/dtsedit/internal/project"
)

func projectFixture(t *testing.T, text, chip string) *project.Document {
	t.Helper()
	def, err := chips.Default().ByName(chip)
	if err != nil {
		t.Fatalf("chip %s: %v", chip, err)
	}
	doc, err := project.Project(dtstest.Parse(t, text), def, nil)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	return doc
}

func TestExportToMarkdown(t *testing.T) {
	doc := projectFixture(t, dtstest.SingleBin, "kona")

	tempDir := t.TempDir()
	outputFile := filepath.Join(tempDir, "test_output.md")

	if err := ExportToMarkdown(doc, outputFile); err != nil {
		t.Fatalf("ExportToMarkdown failed: %v", err)
	}

	content, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}

	expectedContent := "# kona GPU frequency tables\n" +
		"\n" +
		"## Bin 0\n" +
		"\n" +
		"`/soc/qcom,kgsl-3d0@3d00000/qcom,gpu-pwrlevels`\n" +
		"\n" +
		"| # | gpu-freq | bus-freq | level |\n" +
		"|---|---|---|---|\n" +
		"| 0 | 587 MHz | 11 | TURBO |\n" +
		"| 1 | 500 MHz | 9 | NOM |\n" +
		"| 2 | 305 MHz | 5 | SVS |\n"

	if string(content) != expectedContent {
		t.Errorf("Output mismatch.\nExpected:\n%s\n\nGot:\n%s", expectedContent, string(content))
	}
}

func TestRenderMarkdownMultiBin(t *testing.T) {
	doc := projectFixture(t, dtstest.MultiBin, "lahaina")
	out := RenderMarkdown(doc)

	if !strings.Contains(out, "## Bin 0\n") || !strings.Contains(out, "## Bin 1\n") {
		t.Fatalf("expected a section per bin, got:\n%s", out)
	}

	// bin 1 has no bus-freq so its table has one column less
	_, bin1, _ := strings.Cut(out, "## Bin 1\n")
	if strings.Contains(bin1, "bus-freq") {
		t.Errorf("bin 1 table should not have a bus-freq column:\n%s", bin1)
	}
	if !strings.Contains(bin1, "| 1 | 305 MHz | LOW_SVS |") {
		t.Errorf("missing last level of bin 1:\n%s", bin1)
	}
}

func TestWriteBinTableEmpty(t *testing.T) {
	var sb strings.Builder
	writeBinTable(&sb, model.Bin{ID: 3}, codec.New(), nil)
	if sb.String() != "_no levels_\n" {
		t.Errorf("unexpected output for empty bin: %q", sb.String())
	}
}

func TestCellText(t *testing.T) {
	levels := codec.LevelMap{384: "TURBO"}
	tests := []struct {
		prop model.Property
		want string
	}{
		{model.Property{Name: "qcom,gpu-freq", Raw: "<0x22fce8c0>"}, "587 MHz"},
		{model.Property{Name: "qcom,level", Raw: "<0x180>"}, "TURBO"},
		{model.Property{Name: "qcom,level", Raw: "<0x40>"}, "64"},
		{model.Property{Name: "qcom,bus-freq", Raw: "<0x0b>"}, "11"},
		{model.Property{Name: "qcom,bus-range", Raw: "<0x01 0x02>"}, "<0x01 0x02>"},
		{model.Property{Name: "label", Raw: `"a|b"`}, `"a|b"`},
	}
	for _, tt := range tests {
		if got := cellText(tt.prop, levels); got != tt.want {
			t.Errorf("cellText(%s = %s) = %q, want %q", tt.prop.Name, tt.prop.Raw, got, tt.want)
		}
	}
	if got := escapeCell(`"a|b"`); got != `"a\|b"` {
		t.Errorf("escapeCell = %q", got)
	}
}
