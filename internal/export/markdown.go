package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/pstuifzand/dtsedit/internal/codec"
	"github.com/pstuifzand/dtsedit/internal/model"
	"github.com/pstuifzand/dtsedit/internal/project"
)

// ExportToMarkdown writes the frequency tables of doc as markdown tables,
// one section per bin.
func ExportToMarkdown(doc *project.Document, filePath string) error {
	content := RenderMarkdown(doc)
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write markdown file: %w", err)
	}
	return nil
}

// RenderMarkdown renders every bin of doc as a markdown table. Columns are
// the level properties in order of first appearance; reg is left out.
func RenderMarkdown(doc *project.Document) string {
	var sb strings.Builder
	chip := doc.Chip()
	fmt.Fprintf(&sb, "# %s GPU frequency tables\n", chip.Name)

	for i, bin := range doc.Bins() {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "## Bin %d\n\n", bin.ID)
		if path := doc.BinPath(i); path != "" {
			fmt.Fprintf(&sb, "`%s`\n\n", path)
		}
		writeBinTable(&sb, bin, doc.Codec(), chip)
	}
	return sb.String()
}

// writeBinTable writes the levels of one bin as a markdown table
func writeBinTable(sb *strings.Builder, bin model.Bin, c *codec.Codec, levels codec.LevelTable) {
	if len(bin.Levels) == 0 {
		sb.WriteString("_no levels_\n")
		return
	}

	rows := make([]map[string]string, len(bin.Levels))
	var columns []string
	seen := make(map[string]bool)
	for i, level := range bin.Levels {
		rows[i] = make(map[string]string)
		for _, line := range level.Lines {
			p, err := c.Decode(line)
			if err != nil || p.Name == "reg" {
				continue
			}
			if !seen[p.Name] {
				seen[p.Name] = true
				columns = append(columns, p.Name)
			}
			rows[i][p.Name] = cellText(p, levels)
		}
	}

	sb.WriteString("| # |")
	for _, col := range columns {
		sb.WriteString(" " + shortName(col) + " |")
	}
	sb.WriteString("\n|---|")
	for range columns {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")

	for i, row := range rows {
		fmt.Fprintf(sb, "| %d |", i)
		for _, col := range columns {
			sb.WriteString(" " + escapeCell(row[col]) + " |")
		}
		sb.WriteString("\n")
	}
}

// cellText renders a property value for humans: frequencies in MHz, level
// codes by label, other single cells in decimal
func cellText(p model.Property, levels codec.LevelTable) string {
	v, err := codec.Uint(p)
	if err != nil {
		return p.Raw
	}
	switch base := shortName(p.Name); {
	case base == "gpu-freq":
		return codec.Frequency(v).String()
	case base == "level":
		return codec.LevelLabel(v, levels)
	default:
		return fmt.Sprintf("%d", v)
	}
}

// shortName drops the vendor prefix of a property name
func shortName(name string) string {
	if i := strings.LastIndexByte(name, ','); i >= 0 {
		return name[i+1:]
	}
	return name
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
